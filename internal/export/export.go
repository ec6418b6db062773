// Package export turns filtered chat records into JSON, CSV, or XML dumps.
// It performs no query construction itself; a Store supplies materialized
// rows already joined with user and rating data.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// Filter selects the records to export. Every field is optional; the zero
// value imposes no constraint.
type Filter struct {
	Username string     // substring match on the owning user's name
	Role     string     // "user" or "assistant"
	Rating   string     // "like", "dislike", or "none" (unrated assistant turns)
	DateFrom *time.Time // inclusive
	DateTo   *time.Time // inclusive
	Content  string     // substring match on message content
}

// MessageRecord is an immutable snapshot of one chat message joined with its
// optional rating. Absence of a rating means all three rating fields are nil.
type MessageRecord struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	Role            string     `json:"role"`
	CreatedAt       time.Time  `json:"created_at"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	SessionID       string     `json:"session_id,omitempty"`
	Rating          *string    `json:"rating"`
	RatingReason    *string    `json:"rating_reason"`
	RatingCreatedAt *time.Time `json:"rating_created_at"`
}

// SessionRecord is one session with its full ordered message list. The
// nested records carry no session reference since context is implicit.
type SessionRecord struct {
	SessionID        string          `json:"session_id"`
	SessionCreatedAt time.Time       `json:"session_created_at"`
	SessionUpdatedAt time.Time       `json:"session_updated_at"`
	Username         string          `json:"username"`
	UserEmail        string          `json:"user_email"`
	MessageCount     int             `json:"message_count"`
	LastMessageAt    *time.Time      `json:"last_message_at"`
	Messages         []MessageRecord `json:"messages"`
}

// AttachMessages sets the nested sequence and the fields derived from it.
// Messages must already be ordered by creation time ascending.
func (r *SessionRecord) AttachMessages(messages []MessageRecord) {
	r.Messages = messages
	r.MessageCount = len(messages)
	if len(messages) > 0 {
		r.LastMessageAt = &messages[len(messages)-1].CreatedAt
	} else {
		r.LastMessageAt = nil
	}
}

// Store supplies the materialized rows for an export call.
type Store interface {
	ExportMessages(ctx context.Context, f Filter) ([]MessageRecord, error)
	ExportSessions(ctx context.Context, f Filter) ([]SessionRecord, error)
}

// ErrExportFailed is the single failure signal of the pipeline. The
// underlying storage error is logged, never surfaced to callers.
var ErrExportFailed = errors.New("export failed")

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ExportMessages resolves all messages matching the filter and serializes
// them in the requested format. The dump is not paginated.
func (s *Service) ExportMessages(ctx context.Context, f Filter, format Format) (string, error) {
	records, err := s.store.ExportMessages(ctx, f)
	if err != nil {
		log.Printf("Message export query failed: %v", err)
		return "", ErrExportFailed
	}

	switch format {
	case FormatCSV:
		return messagesCSV(records), nil
	case FormatXML:
		return messagesXML(records), nil
	default:
		return marshalJSON(records)
	}
}

// ExportSessions resolves matching sessions with their nested message lists
// and serializes them. Only the username and date range filter fields apply
// at session granularity; sessions with zero messages are retained.
func (s *Service) ExportSessions(ctx context.Context, f Filter, format Format) (string, error) {
	records, err := s.store.ExportSessions(ctx, f)
	if err != nil {
		log.Printf("Session export query failed: %v", err)
		return "", ErrExportFailed
	}

	switch format {
	case FormatCSV:
		return sessionsCSV(records), nil
	case FormatXML:
		return sessionsXML(records), nil
	default:
		return marshalJSON(records)
	}
}

func marshalJSON[T any](records []T) (string, error) {
	if records == nil {
		records = make([]T, 0) // empty input serializes as [], not null
	}
	out, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		log.Printf("Export JSON marshaling failed: %v", err)
		return "", ErrExportFailed
	}
	return string(out), nil
}

func timeString(t time.Time) string {
	return t.Format(time.RFC3339)
}

func optString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func optTimeString(p *time.Time) string {
	if p == nil {
		return ""
	}
	return timeString(*p)
}
