package export

import (
	"strconv"
	"strings"
)

// Column lists are fixed and ordered; they are emitted even when the first
// record happens to have empty fields, but never for an empty record set.
var messageCSVColumns = []string{
	"id", "content", "role", "created_at", "username", "email",
	"session_id", "rating", "rating_reason", "rating_created_at",
}

var sessionCSVColumns = []string{
	"session_id", "session_created_at", "session_updated_at", "username",
	"user_email", "message_count", "last_message_at",
	"message_id", "message_role", "message_content", "message_created_at",
	"message_rating", "message_rating_reason",
}

// escapeCSV wraps a value in double quotes, doubling internal quotes, iff it
// contains a comma, a double quote, or a newline. Anything else passes
// through verbatim.
func escapeCSV(v string) string {
	if !strings.ContainsAny(v, ",\"\n") {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func csvLine(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeCSV(f)
	}
	return strings.Join(escaped, ",")
}

func messagesCSV(records []MessageRecord) string {
	if len(records) == 0 {
		return ""
	}

	lines := make([]string, 0, len(records)+1)
	lines = append(lines, strings.Join(messageCSVColumns, ","))
	for _, r := range records {
		lines = append(lines, csvLine([]string{
			r.ID,
			r.Content,
			r.Role,
			timeString(r.CreatedAt),
			r.Username,
			r.Email,
			r.SessionID,
			optString(r.Rating),
			optString(r.RatingReason),
			optTimeString(r.RatingCreatedAt),
		}))
	}
	return strings.Join(lines, "\n")
}

func sessionsCSV(records []SessionRecord) string {
	if len(records) == 0 {
		return ""
	}

	lines := []string{strings.Join(sessionCSVColumns, ",")}
	for _, s := range records {
		sessionFields := []string{
			s.SessionID,
			timeString(s.SessionCreatedAt),
			timeString(s.SessionUpdatedAt),
			s.Username,
			s.UserEmail,
			strconv.Itoa(s.MessageCount),
			optTimeString(s.LastMessageAt),
		}

		if len(s.Messages) == 0 {
			// Empty sessions still appear, with message fields blank.
			row := append(append([]string{}, sessionFields...), "", "", "", "", "", "")
			lines = append(lines, csvLine(row))
			continue
		}

		for _, m := range s.Messages {
			row := append(append([]string{}, sessionFields...),
				m.ID,
				m.Role,
				m.Content,
				timeString(m.CreatedAt),
				optString(m.Rating),
				optString(m.RatingReason),
			)
			lines = append(lines, csvLine(row))
		}
	}
	return strings.Join(lines, "\n")
}
