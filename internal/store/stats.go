package store

import (
	"fmt"
	"time"
)

// UsageStats aggregates platform activity for the admin dashboard.
type UsageStats struct {
	TotalUsers    int64        `json:"total_users"`
	TotalSessions int64        `json:"total_sessions"`
	TotalMessages int64        `json:"total_messages"`
	Likes         int64        `json:"likes"`
	Dislikes      int64        `json:"dislikes"`
	DailyStats    []DailyStats `json:"daily_stats"`
}

// DailyStats is message volume for one calendar day.
type DailyStats struct {
	Date         time.Time `json:"date"`
	MessageCount int64     `json:"message_count"`
}

// GetUsageStats returns totals plus per-day message counts for the given
// date range.
func (s *SQLiteStore) GetUsageStats(startDate, endDate time.Time) (*UsageStats, error) {
	stats := &UsageStats{}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chat_sessions").Scan(&stats.TotalSessions); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM chat_messages").Scan(&stats.TotalMessages); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	ratingQuery := `
		SELECT
			COALESCE(SUM(CASE WHEN rating = 'like' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN rating = 'dislike' THEN 1 ELSE 0 END), 0)
		FROM message_ratings`
	if err := s.db.QueryRow(ratingQuery).Scan(&stats.Likes, &stats.Dislikes); err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	dailyQuery := `
		SELECT DATE(created_at) as date, COUNT(*) as message_count
		FROM chat_messages
		WHERE created_at >= ? AND created_at <= ?
		GROUP BY DATE(created_at)
		ORDER BY date ASC`
	rows, err := s.db.Query(dailyQuery, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var dateStr string
		var count int64
		if err := rows.Scan(&dateStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		stats.DailyStats = append(stats.DailyStats, DailyStats{Date: date, MessageCount: count})
	}
	return stats, rows.Err()
}
