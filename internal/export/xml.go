package export

import (
	"strconv"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>`

// xmlEscaper covers exactly the five predefined XML entities. Values are
// escaped, structural markup is not.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(v string) string {
	return xmlEscaper.Replace(v)
}

func xmlElement(b *strings.Builder, indent, name, value string) {
	b.WriteString(indent)
	b.WriteString("<")
	b.WriteString(name)
	b.WriteString(">")
	b.WriteString(escapeXML(value))
	b.WriteString("</")
	b.WriteString(name)
	b.WriteString(">\n")
}

func writeMessageXML(b *strings.Builder, indent string, m MessageRecord, withSessionRef bool) {
	b.WriteString(indent + "<message>\n")
	inner := indent + "  "
	xmlElement(b, inner, "id", m.ID)
	xmlElement(b, inner, "content", m.Content)
	xmlElement(b, inner, "role", m.Role)
	xmlElement(b, inner, "created_at", timeString(m.CreatedAt))
	if withSessionRef {
		xmlElement(b, inner, "username", m.Username)
		xmlElement(b, inner, "email", m.Email)
		xmlElement(b, inner, "session_id", m.SessionID)
	}
	xmlElement(b, inner, "rating", optString(m.Rating))
	xmlElement(b, inner, "rating_reason", optString(m.RatingReason))
	xmlElement(b, inner, "rating_created_at", optTimeString(m.RatingCreatedAt))
	b.WriteString(indent + "</message>\n")
}

func messagesXML(records []MessageRecord) string {
	var b strings.Builder
	b.WriteString(xmlHeader + "\n")
	b.WriteString("<chat_messages>\n")
	for _, m := range records {
		writeMessageXML(&b, "  ", m, true)
	}
	b.WriteString("</chat_messages>")
	return b.String()
}

func sessionsXML(records []SessionRecord) string {
	var b strings.Builder
	b.WriteString(xmlHeader + "\n")
	b.WriteString("<chat_sessions>\n")
	for _, s := range records {
		b.WriteString("  <session>\n")
		xmlElement(&b, "    ", "session_id", s.SessionID)
		xmlElement(&b, "    ", "session_created_at", timeString(s.SessionCreatedAt))
		xmlElement(&b, "    ", "session_updated_at", timeString(s.SessionUpdatedAt))
		xmlElement(&b, "    ", "username", s.Username)
		xmlElement(&b, "    ", "user_email", s.UserEmail)
		xmlElement(&b, "    ", "message_count", strconv.Itoa(s.MessageCount))
		xmlElement(&b, "    ", "last_message_at", optTimeString(s.LastMessageAt))
		b.WriteString("    <messages>\n")
		for _, m := range s.Messages {
			writeMessageXML(&b, "      ", m, false)
		}
		b.WriteString("    </messages>\n")
		b.WriteString("  </session>\n")
	}
	b.WriteString("</chat_sessions>")
	return b.String()
}
