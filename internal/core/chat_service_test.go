package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

type mockCompleter struct {
	response string
	title    string
	err      error
}

func (m *mockCompleter) ChatCompletion(ctx context.Context, history []store.ChatMessage) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockCompleter) GenerateTitle(ctx context.Context, basisContent string) (string, error) {
	if m.title == "" {
		return "", errors.New("no title configured")
	}
	return m.title, nil
}

func newTestChatService(t *testing.T, llm Completer) (*ChatService, *store.SQLiteStore, *store.User) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	user, err := dbStore.CreateUser("alice", "alice@example.com", "hash", store.RoleUser)
	require.NoError(t, err)

	return NewChatService(dbStore, llm), dbStore, user
}

func TestCreateSessionWithFirstMessage(t *testing.T) {
	svc, _, user := newTestChatService(t, &mockCompleter{response: "Hello! How can I help?"})

	first := "hi there"
	session, messages, err := svc.CreateSession(context.Background(), user, &first)
	require.NoError(t, err)
	require.NotNil(t, session)

	require.Len(t, messages, 2)
	assert.Equal(t, store.MessageRoleUser, messages[0].Role)
	assert.Equal(t, "hi there", messages[0].Content)
	assert.Equal(t, store.MessageRoleAssistant, messages[1].Role)
	assert.Equal(t, "Hello! How can I help?", messages[1].Content)
}

func TestCreateSessionWithoutFirstMessage(t *testing.T) {
	svc, _, user := newTestChatService(t, &mockCompleter{})

	session, messages, err := svc.CreateSession(context.Background(), user, nil)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Empty(t, messages)
	assert.Nil(t, session.Title)
}

func TestPostMessageStoresApologyOnLLMFailure(t *testing.T) {
	svc, _, user := newTestChatService(t, &mockCompleter{err: errors.New("backend down")})

	session, _, err := svc.CreateSession(context.Background(), user, nil)
	require.NoError(t, err)

	assistantMsg, err := svc.PostMessage(context.Background(), session.ID, user, "hello?")
	require.NoError(t, err, "LLM failure must not fail the request")
	assert.Equal(t, store.MessageRoleAssistant, assistantMsg.Role)
	assert.Contains(t, assistantMsg.Content, "I'm sorry")

	// Both turns are persisted.
	_, messages, err := svc.GetSessionDetails(session.ID, user.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 2)
}

func TestPostMessageUnknownSession(t *testing.T) {
	svc, _, user := newTestChatService(t, &mockCompleter{response: "ok"})

	_, err := svc.PostMessage(context.Background(), "no-such-session", user, "hello")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProfileCompletionGate(t *testing.T) {
	svc, dbStore, _ := newTestChatService(t, &mockCompleter{response: "ok"})
	require.NoError(t, dbStore.SetSetting("require_profile_completion", "true"))

	incomplete, err := dbStore.CreateUser("newbie", "", "hash", store.RoleUser)
	require.NoError(t, err)

	session, _, err := svc.CreateSession(context.Background(), incomplete, nil)
	require.NoError(t, err, "creating an empty session is allowed")

	_, err = svc.PostMessage(context.Background(), session.ID, incomplete, "hello")
	assert.ErrorIs(t, err, ErrProfileIncomplete)

	// Completing the profile lifts the gate.
	require.NoError(t, dbStore.UpdateUserProfile(incomplete.ID, "newbie@example.com", "Newbie"))
	completed, err := dbStore.GetUserByID(incomplete.ID)
	require.NoError(t, err)

	_, err = svc.PostMessage(context.Background(), session.ID, completed, "hello")
	assert.NoError(t, err)
}

func TestSessionLimit(t *testing.T) {
	svc, dbStore, user := newTestChatService(t, &mockCompleter{response: "ok"})
	require.NoError(t, dbStore.SetSetting("max_sessions_per_user", "1"))

	_, _, err := svc.CreateSession(context.Background(), user, nil)
	require.NoError(t, err)

	_, _, err = svc.CreateSession(context.Background(), user, nil)
	assert.ErrorIs(t, err, ErrSessionLimit)
}

func TestRateMessage(t *testing.T) {
	svc, dbStore, user := newTestChatService(t, &mockCompleter{response: "the answer"})

	first := "a question"
	_, messages, err := svc.CreateSession(context.Background(), user, &first)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	userMsg, assistantMsg := messages[0], messages[1]

	// Only assistant turns are ratable.
	_, err = svc.RateMessage(userMsg.ID, user, store.RatingLike, nil)
	assert.ErrorIs(t, err, ErrNotRatable)

	reason := "useful"
	rating, err := svc.RateMessage(assistantMsg.ID, user, store.RatingLike, &reason)
	require.NoError(t, err)
	assert.Equal(t, store.RatingLike, rating.Rating)

	// Another user cannot touch it.
	stranger, err := dbStore.CreateUser("mallory", "m@example.com", "hash", store.RoleUser)
	require.NoError(t, err)
	_, err = svc.RateMessage(assistantMsg.ID, stranger, store.RatingDislike, nil)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	require.NoError(t, svc.UnrateMessage(assistantMsg.ID, user))
	err = svc.UnrateMessage(assistantMsg.ID, user)
	assert.ErrorIs(t, err, ErrMessageNotFound, "removing twice reports not found")
}
