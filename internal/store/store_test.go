package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOpenStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err, "NewSQLiteStore(:memory:)")
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *SQLiteStore, username, email string) *User {
	t.Helper()
	user, err := s.CreateUser(username, email, "hash", RoleUser)
	require.NoError(t, err)
	return user
}

func seedSession(t *testing.T, s *SQLiteStore, userID int64, createdAt time.Time) *ChatSession {
	t.Helper()
	session, err := s.CreateSession(userID, nil)
	require.NoError(t, err)
	_, err = s.db.Exec("UPDATE chat_sessions SET created_at = ?, updated_at = ? WHERE id = ?",
		createdAt, createdAt, session.ID)
	require.NoError(t, err)
	session.CreatedAt = createdAt
	session.UpdatedAt = createdAt
	return session
}

func seedMessage(t *testing.T, s *SQLiteStore, sessionID, role, content string, createdAt time.Time) *ChatMessage {
	t.Helper()
	msg := &ChatMessage{SessionID: sessionID, Role: role, Content: content}
	require.NoError(t, s.CreateMessage(msg))
	_, err := s.db.Exec("UPDATE chat_messages SET created_at = ? WHERE id = ?", createdAt, msg.ID)
	require.NoError(t, err)
	msg.CreatedAt = createdAt
	return msg
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := mustOpenStore(t)

	v1, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Greater(t, v1, 0)

	// Running migrations again must be a no-op.
	require.NoError(t, s.Migrate())
	v2, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}

func TestMigrateCreatesTables(t *testing.T) {
	s := mustOpenStore(t)

	for _, table := range []string{"users", "chat_sessions", "chat_messages", "message_ratings", "settings", "llm_configs", "schema_migrations"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s should exist", table)
	}
}

func TestMigrateSeedsDefaultSettings(t *testing.T) {
	s := mustOpenStore(t)

	value, err := s.GetSettingValue("registration_enabled", "")
	require.NoError(t, err)
	assert.Equal(t, "true", value)

	value, err = s.GetSettingValue("require_profile_completion", "")
	require.NoError(t, err)
	assert.Equal(t, "false", value)
}

func TestUserCRUD(t *testing.T) {
	s := mustOpenStore(t)

	user := seedUser(t, s, "alice", "alice@example.com")
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, RoleUser, user.Role)
	assert.False(t, user.ProfileComplete(), "display name not set yet")

	require.NoError(t, s.UpdateUserProfile(user.ID, "alice@example.com", "Alice"))
	updated, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.True(t, updated.ProfileComplete())

	missing, err := s.GetUserByUsername("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.DeleteUser(user.ID))
	gone, err := s.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSessionOwnershipScoping(t *testing.T) {
	s := mustOpenStore(t)
	alice := seedUser(t, s, "alice", "alice@example.com")
	bob := seedUser(t, s, "bob", "bob@example.com")

	session, err := s.CreateSession(alice.ID, nil)
	require.NoError(t, err)

	found, err := s.GetSessionByID(session.ID, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	// Another user's lookup must come back empty, not error.
	other, err := s.GetSessionByID(session.ID, bob.ID)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCreateMessageTouchesSession(t *testing.T) {
	s := mustOpenStore(t)
	alice := seedUser(t, s, "alice", "alice@example.com")
	session := seedSession(t, s, alice.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	msg := &ChatMessage{SessionID: session.ID, Role: MessageRoleUser, Content: "hello"}
	require.NoError(t, s.CreateMessage(msg))

	refetched, err := s.GetSessionByID(session.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, refetched.UpdatedAt.After(session.UpdatedAt), "posting a message bumps updated_at")
}

func TestRatingUpsertKeepsOneRow(t *testing.T) {
	s := mustOpenStore(t)
	alice := seedUser(t, s, "alice", "alice@example.com")
	session := seedSession(t, s, alice.ID, time.Now().UTC())
	msg := seedMessage(t, s, session.ID, MessageRoleAssistant, "answer", time.Now().UTC())

	reason := "helpful"
	first, err := s.UpsertRating(msg.ID, alice.ID, RatingLike, &reason)
	require.NoError(t, err)
	assert.Equal(t, RatingLike, first.Rating)
	require.NotNil(t, first.Reason)

	second, err := s.UpsertRating(msg.ID, alice.ID, RatingDislike, nil)
	require.NoError(t, err)
	assert.Equal(t, RatingDislike, second.Rating)
	assert.Nil(t, second.Reason)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM message_ratings WHERE message_id = ?", msg.ID).Scan(&count))
	assert.Equal(t, 1, count, "upsert must never produce a second rating row")

	require.NoError(t, s.DeleteRating(msg.ID))
	gone, err := s.GetRatingByMessageID(msg.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestActivateLLMConfigKeepsSingleActive(t *testing.T) {
	s := mustOpenStore(t)

	a, err := s.CreateLLMConfig(&LLMConfig{Name: "gpt", Provider: ProviderOpenAI, Model: "gpt-4o"})
	require.NoError(t, err)
	b, err := s.CreateLLMConfig(&LLMConfig{Name: "local", Provider: ProviderOllama, Model: "llama3"})
	require.NoError(t, err)

	active, err := s.GetActiveLLMConfig()
	require.NoError(t, err)
	assert.Nil(t, active, "nothing active on a fresh install")

	require.NoError(t, s.ActivateLLMConfig(a.ID))
	require.NoError(t, s.ActivateLLMConfig(b.ID))

	active, err = s.GetActiveLLMConfig()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, b.ID, active.ID)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM llm_configs WHERE is_active = TRUE").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDeleteSessionCascades(t *testing.T) {
	s := mustOpenStore(t)
	alice := seedUser(t, s, "alice", "alice@example.com")
	session := seedSession(t, s, alice.ID, time.Now().UTC())
	msg := seedMessage(t, s, session.ID, MessageRoleAssistant, "answer", time.Now().UTC())
	_, err := s.UpsertRating(msg.ID, alice.ID, RatingLike, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(session.ID, alice.ID))

	var messages, ratings int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM chat_messages").Scan(&messages))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM message_ratings").Scan(&ratings))
	assert.Zero(t, messages)
	assert.Zero(t, ratings)
}

func TestGetUsageStats(t *testing.T) {
	s := mustOpenStore(t)
	alice := seedUser(t, s, "alice", "alice@example.com")
	session := seedSession(t, s, alice.ID, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	m1 := seedMessage(t, s, session.ID, MessageRoleUser, "q", time.Date(2024, 6, 1, 10, 1, 0, 0, time.UTC))
	m2 := seedMessage(t, s, session.ID, MessageRoleAssistant, "a", time.Date(2024, 6, 2, 10, 2, 0, 0, time.UTC))
	_ = m1
	_, err := s.UpsertRating(m2.ID, alice.ID, RatingDislike, nil)
	require.NoError(t, err)

	stats, err := s.GetUsageStats(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 30, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, int64(1), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalSessions)
	assert.Equal(t, int64(2), stats.TotalMessages)
	assert.Equal(t, int64(0), stats.Likes)
	assert.Equal(t, int64(1), stats.Dislikes)
	require.Len(t, stats.DailyStats, 2, "one bucket per day with traffic")
	assert.Equal(t, int64(1), stats.DailyStats[0].MessageCount)
}
