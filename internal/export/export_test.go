package export

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	messages []MessageRecord
	sessions []SessionRecord
	err      error
}

func (m *mockStore) ExportMessages(ctx context.Context, f Filter) ([]MessageRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.messages, nil
}

func (m *mockStore) ExportSessions(ctx context.Context, f Filter) ([]SessionRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sessions, nil
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func sampleMessages() []MessageRecord {
	ratedAt := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	return []MessageRecord{
		{
			ID:              "msg-2",
			Content:         "The answer is 42.",
			Role:            "assistant",
			CreatedAt:       time.Date(2024, 3, 2, 9, 15, 0, 0, time.UTC),
			Username:        "alice",
			Email:           "alice@example.com",
			SessionID:       "sess-1",
			Rating:          strPtr("like"),
			RatingReason:    strPtr("accurate"),
			RatingCreatedAt: timePtr(ratedAt),
		},
		{
			ID:        "msg-1",
			Content:   "What is the answer?",
			Role:      "user",
			CreatedAt: time.Date(2024, 3, 2, 9, 14, 0, 0, time.UTC),
			Username:  "alice",
			Email:     "alice@example.com",
			SessionID: "sess-1",
		},
	}
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, ParseFormat("csv"))
	assert.Equal(t, FormatXML, ParseFormat("xml"))
	assert.Equal(t, FormatXML, ParseFormat("XML"), "matching is case-insensitive")
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatJSON, ParseFormat("pdf"), "unsupported formats fall back to JSON")
	assert.Equal(t, FormatJSON, ParseFormat(""))
}

func TestEscapeCSV(t *testing.T) {
	assert.Equal(t, "plain value", escapeCSV("plain value"))
	assert.Equal(t, `"a,b"`, escapeCSV("a,b"))
	assert.Equal(t, "\"line\nbreak\"", escapeCSV("line\nbreak"))
	assert.Equal(t, "\"He said, \"\"hi\"\"\nbye\"", escapeCSV("He said, \"hi\"\nbye"))
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "&lt;a&gt; &amp; &quot;b&quot;", escapeXML(`<a> & "b"`))
	assert.Equal(t, "it&apos;s", escapeXML("it's"))
	assert.Equal(t, "plain", escapeXML("plain"))
}

func TestExportMessagesEmpty(t *testing.T) {
	svc := NewService(&mockStore{})
	ctx := context.Background()

	csvOut, err := svc.ExportMessages(ctx, Filter{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "", csvOut, "empty CSV export emits no header")

	jsonOut, err := svc.ExportMessages(ctx, Filter{}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", jsonOut)

	xmlOut, err := svc.ExportMessages(ctx, Filter{}, FormatXML)
	require.NoError(t, err)
	assert.Contains(t, xmlOut, "<chat_messages>")
	assert.Contains(t, xmlOut, "</chat_messages>")
	assert.NotContains(t, xmlOut, "<message>")
}

func TestExportSessionsEmpty(t *testing.T) {
	svc := NewService(&mockStore{})
	ctx := context.Background()

	csvOut, err := svc.ExportSessions(ctx, Filter{}, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "", csvOut)

	jsonOut, err := svc.ExportSessions(ctx, Filter{}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]", jsonOut)

	xmlOut, err := svc.ExportSessions(ctx, Filter{}, FormatXML)
	require.NoError(t, err)
	assert.Contains(t, xmlOut, "<chat_sessions>")
	assert.NotContains(t, xmlOut, "<session>")
}

func TestExportMessagesJSONRoundTrip(t *testing.T) {
	records := sampleMessages()
	svc := NewService(&mockStore{messages: records})

	out, err := svc.ExportMessages(context.Background(), Filter{}, FormatJSON)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[\n  {"), "output is a pretty-printed array with 2-space indent")

	var parsed []MessageRecord
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, records, parsed)
}

func TestExportMessagesCSV(t *testing.T) {
	svc := NewService(&mockStore{messages: sampleMessages()})

	out, err := svc.ExportMessages(context.Background(), Filter{}, FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,content,role,created_at,username,email,session_id,rating,rating_reason,rating_created_at", lines[0])
	assert.Equal(t, "msg-2,The answer is 42.,assistant,2024-03-02T09:15:00Z,alice,alice@example.com,sess-1,like,accurate,2024-03-02T09:30:00Z", lines[1])
	// Nil rating fields become empty strings.
	assert.Equal(t, "msg-1,What is the answer?,user,2024-03-02T09:14:00Z,alice,alice@example.com,sess-1,,,", lines[2])
}

func TestExportMessagesCSVEscaping(t *testing.T) {
	svc := NewService(&mockStore{messages: []MessageRecord{{
		ID:        "msg-1",
		Content:   "He said, \"hi\"\nbye",
		Role:      "assistant",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Username:  "bob",
		Email:     "bob@example.com",
		SessionID: "sess-9",
	}}})

	out, err := svc.ExportMessages(context.Background(), Filter{}, FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, out, "\"He said, \"\"hi\"\"\nbye\"")
}

func TestExportMessagesXML(t *testing.T) {
	svc := NewService(&mockStore{messages: []MessageRecord{{
		ID:        "msg-1",
		Content:   `<a> & "b"`,
		Role:      "assistant",
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Username:  "bob",
		Email:     "bob@example.com",
		SessionID: "sess-9",
	}}})

	out, err := svc.ExportMessages(context.Background(), Filter{}, FormatXML)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, "<content>&lt;a&gt; &amp; &quot;b&quot;</content>")
	assert.Contains(t, out, "<chat_messages>")
	assert.Contains(t, out, "</chat_messages>")
}

func TestExportSessionsCSV(t *testing.T) {
	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	withMessages := SessionRecord{
		SessionID:        "sess-1",
		SessionCreatedAt: first,
		SessionUpdatedAt: first.Add(time.Hour),
		Username:         "alice",
		UserEmail:        "alice@example.com",
	}
	withMessages.AttachMessages([]MessageRecord{
		{ID: "m1", Content: "hello", Role: "user", CreatedAt: first.Add(time.Minute)},
		{ID: "m2", Content: "hi there", Role: "assistant", CreatedAt: first.Add(2 * time.Minute), Rating: strPtr("like")},
	})

	empty := SessionRecord{
		SessionID:        "sess-2",
		SessionCreatedAt: first.Add(24 * time.Hour),
		SessionUpdatedAt: first.Add(24 * time.Hour),
		Username:         "alice",
		UserEmail:        "alice@example.com",
	}
	empty.AttachMessages(nil)

	svc := NewService(&mockStore{sessions: []SessionRecord{withMessages, empty}})
	out, err := svc.ExportSessions(context.Background(), Filter{}, FormatCSV)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4, "header, two rows for sess-1, one blank row for sess-2")
	assert.Equal(t, strings.Join(sessionCSVColumns, ","), lines[0])
	assert.Contains(t, lines[1], "sess-1,")
	assert.Contains(t, lines[1], ",m1,user,hello,")
	assert.Contains(t, lines[2], ",m2,assistant,hi there,")
	assert.Contains(t, lines[2], ",like,")
	// Session fields are repeated on both message rows.
	assert.True(t, strings.HasPrefix(lines[2], "sess-1,"))
	// The empty session keeps its row with message fields blank.
	assert.True(t, strings.HasPrefix(lines[3], "sess-2,"))
	assert.True(t, strings.HasSuffix(lines[3], ",,,,,,"), "six blank message columns")
	assert.Contains(t, lines[3], ",0,", "message_count is zero")
}

func TestExportSessionsXMLNesting(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := SessionRecord{
		SessionID:        "sess-1",
		SessionCreatedAt: created,
		SessionUpdatedAt: created,
		Username:         "alice",
		UserEmail:        "alice@example.com",
	}
	rec.AttachMessages([]MessageRecord{
		{ID: "m1", Content: "hello", Role: "user", CreatedAt: created.Add(time.Minute)},
	})

	svc := NewService(&mockStore{sessions: []SessionRecord{rec}})
	out, err := svc.ExportSessions(context.Background(), Filter{}, FormatXML)
	require.NoError(t, err)

	assert.Contains(t, out, "<chat_sessions>")
	assert.Contains(t, out, "<session>")
	assert.Contains(t, out, "<messages>")
	assert.Contains(t, out, "<message>")
	// Nested messages carry no session reference; context is implicit.
	assert.Equal(t, 1, strings.Count(out, "<session_id>"), "only the session element names the session")
	sessionIdx := strings.Index(out, "<session>")
	messagesIdx := strings.Index(out, "<messages>")
	assert.Less(t, sessionIdx, messagesIdx, "messages element is nested inside session")
}

func TestExportSessionsZeroMessagesXML(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := SessionRecord{SessionID: "sess-2", SessionCreatedAt: created, SessionUpdatedAt: created, Username: "alice"}
	rec.AttachMessages(nil)

	svc := NewService(&mockStore{sessions: []SessionRecord{rec}})
	out, err := svc.ExportSessions(context.Background(), Filter{}, FormatXML)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "<session>"), "exactly one element for the empty session")
	assert.NotContains(t, out, "<message>")
	assert.Contains(t, out, "<message_count>0</message_count>")
	assert.Contains(t, out, "<last_message_at></last_message_at>")
}

func TestAttachMessagesDerivedFields(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var rec SessionRecord
	rec.AttachMessages([]MessageRecord{
		{ID: "m1", CreatedAt: base},
		{ID: "m2", CreatedAt: base.Add(time.Minute)},
	})
	assert.Equal(t, 2, rec.MessageCount)
	require.NotNil(t, rec.LastMessageAt)
	assert.Equal(t, base.Add(time.Minute), *rec.LastMessageAt)

	rec.AttachMessages(nil)
	assert.Equal(t, 0, rec.MessageCount)
	assert.Nil(t, rec.LastMessageAt)
}

func TestExportFailureIsGeneric(t *testing.T) {
	svc := NewService(&mockStore{err: errors.New("connection refused: 10.0.0.5:5432")})
	ctx := context.Background()

	_, err := svc.ExportMessages(ctx, Filter{}, FormatJSON)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.NotContains(t, err.Error(), "connection refused", "storage detail must not leak")

	_, err = svc.ExportSessions(ctx, Filter{}, FormatCSV)
	assert.ErrorIs(t, err, ErrExportFailed)
}
