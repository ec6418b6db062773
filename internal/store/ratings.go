package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertRating creates or replaces the single rating for a message.
func (s *SQLiteStore) UpsertRating(messageID string, userID int64, rating string, reason *string) (*MessageRating, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO message_ratings (message_id, user_id, rating, reason, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (message_id) DO UPDATE SET
			user_id = excluded.user_id,
			rating = excluded.rating,
			reason = excluded.reason,
			created_at = excluded.created_at`,
		messageID, userID, rating, reason, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}
	return s.GetRatingByMessageID(messageID)
}

func (s *SQLiteStore) GetRatingByMessageID(messageID string) (*MessageRating, error) {
	var r MessageRating
	var reason sql.NullString
	err := s.db.QueryRow(
		"SELECT id, message_id, user_id, rating, reason, created_at FROM message_ratings WHERE message_id = ?",
		messageID).Scan(&r.ID, &r.MessageID, &r.UserID, &r.Rating, &reason, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rating: %w", err)
	}
	if reason.Valid {
		r.Reason = &reason.String
	}
	return &r, nil
}

func (s *SQLiteStore) DeleteRating(messageID string) error {
	res, err := s.db.Exec("DELETE FROM message_ratings WHERE message_id = ?", messageID)
	if err != nil {
		return fmt.Errorf("failed to delete rating: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("rating not found")
	}
	return nil
}
