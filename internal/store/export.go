package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/healthymind-tech/llm-rating-platform/internal/export"
)

// ExportMessages materializes the flat message projection for an export
// call: messages joined with their session's user and optional rating,
// newest first, with no pagination.
func (s *SQLiteStore) ExportMessages(ctx context.Context, f export.Filter) ([]export.MessageRecord, error) {
	query := `
		SELECT m.id, m.content, m.role, m.created_at, u.username, u.email, m.session_id,
		       r.rating, r.reason, r.created_at
		FROM chat_messages m
		JOIN chat_sessions cs ON m.session_id = cs.id
		JOIN users u ON cs.user_id = u.id
		LEFT JOIN message_ratings r ON r.message_id = m.id`

	var conditions []string
	var args []any

	if f.Username != "" {
		conditions = append(conditions, "u.username LIKE ?")
		args = append(args, "%"+f.Username+"%")
	}

	switch f.Rating {
	case "none":
		// Unrated assistant turns, regardless of any role filter: rating
		// filters are only meaningful for assistant messages.
		conditions = append(conditions, "m.role = 'assistant'", "r.id IS NULL")
	case RatingLike, RatingDislike:
		conditions = append(conditions, "r.rating = ?")
		args = append(args, f.Rating)
		// A concrete rating constrains role to assistant only when the
		// caller gave no explicit role filter.
		if f.Role == "" {
			conditions = append(conditions, "m.role = 'assistant'")
		} else {
			conditions = append(conditions, "m.role = ?")
			args = append(args, f.Role)
		}
	default:
		if f.Role != "" {
			conditions = append(conditions, "m.role = ?")
			args = append(args, f.Role)
		}
	}

	if f.DateFrom != nil {
		conditions = append(conditions, "m.created_at >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		conditions = append(conditions, "m.created_at <= ?")
		args = append(args, *f.DateTo)
	}
	if f.Content != "" {
		conditions = append(conditions, "m.content LIKE ?")
		args = append(args, "%"+f.Content+"%")
	}

	query += whereClause(conditions)
	query += " ORDER BY m.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export messages: %w", err)
	}
	defer rows.Close()

	var records []export.MessageRecord
	for rows.Next() {
		rec, err := scanExportMessage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ExportSessions materializes the nested session projection. Only the
// username and date range filter fields apply here; each session's full
// message list is fetched independently, ratings included, and sessions
// with zero messages are kept.
func (s *SQLiteStore) ExportSessions(ctx context.Context, f export.Filter) ([]export.SessionRecord, error) {
	query := `
		SELECT cs.id, cs.created_at, cs.updated_at, u.username, u.email
		FROM chat_sessions cs
		JOIN users u ON cs.user_id = u.id`

	var conditions []string
	var args []any

	if f.Username != "" {
		conditions = append(conditions, "u.username LIKE ?")
		args = append(args, "%"+f.Username+"%")
	}
	if f.DateFrom != nil {
		conditions = append(conditions, "cs.created_at >= ?")
		args = append(args, *f.DateFrom)
	}
	if f.DateTo != nil {
		conditions = append(conditions, "cs.created_at <= ?")
		args = append(args, *f.DateTo)
	}

	query += whereClause(conditions)
	query += " ORDER BY cs.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export sessions: %w", err)
	}
	defer rows.Close()

	var records []export.SessionRecord
	for rows.Next() {
		var rec export.SessionRecord
		if err := rows.Scan(&rec.SessionID, &rec.SessionCreatedAt, &rec.SessionUpdatedAt,
			&rec.Username, &rec.UserEmail); err != nil {
			return nil, fmt.Errorf("failed to scan export session row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// One fetch per session. A batch join would avoid the N+1 pattern but
	// the dump sizes here do not warrant it.
	for i := range records {
		messages, err := s.exportSessionMessages(ctx, &records[i])
		if err != nil {
			return nil, err
		}
		records[i].AttachMessages(messages)
	}
	return records, nil
}

func (s *SQLiteStore) exportSessionMessages(ctx context.Context, rec *export.SessionRecord) ([]export.MessageRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.content, m.role, m.created_at,
		       r.rating, r.reason, r.created_at
		FROM chat_messages m
		LEFT JOIN message_ratings r ON r.message_id = m.id
		WHERE m.session_id = ?
		ORDER BY m.created_at ASC`, rec.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query session messages: %w", err)
	}
	defer rows.Close()

	messages := make([]export.MessageRecord, 0)
	for rows.Next() {
		var m export.MessageRecord
		var rating, reason sql.NullString
		var ratingCreatedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Content, &m.Role, &m.CreatedAt,
			&rating, &reason, &ratingCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session message row: %w", err)
		}
		// Session context is implicit for nested records; the user columns
		// are still carried so each row is self-describing.
		m.Username = rec.Username
		m.Email = rec.UserEmail
		assignRating(&m, rating, reason, ratingCreatedAt)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanExportMessage(rows *sql.Rows) (*export.MessageRecord, error) {
	var m export.MessageRecord
	var rating, reason sql.NullString
	var ratingCreatedAt sql.NullTime
	if err := rows.Scan(&m.ID, &m.Content, &m.Role, &m.CreatedAt,
		&m.Username, &m.Email, &m.SessionID,
		&rating, &reason, &ratingCreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan export message row: %w", err)
	}
	assignRating(&m, rating, reason, ratingCreatedAt)
	return &m, nil
}

// assignRating maps a LEFT JOIN result onto the record. A message either has
// a full rating or none at all; partial ratings do not exist.
func assignRating(m *export.MessageRecord, rating, reason sql.NullString, createdAt sql.NullTime) {
	if !rating.Valid {
		return
	}
	m.Rating = &rating.String
	if reason.Valid {
		m.RatingReason = &reason.String
	}
	if createdAt.Valid {
		t := createdAt.Time
		m.RatingCreatedAt = &t
	}
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	clause := " WHERE " + conditions[0]
	for _, c := range conditions[1:] {
		clause += " AND " + c
	}
	return clause
}
