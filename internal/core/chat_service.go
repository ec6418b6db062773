package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrSessionLimit      = errors.New("session limit reached")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrNotRatable        = errors.New("only assistant messages can be rated")
)

// Completer is the subset of LLMService the chat flow needs; it is easy to
// mock in tests.
type Completer interface {
	ChatCompletion(ctx context.Context, history []store.ChatMessage) (string, error)
	GenerateTitle(ctx context.Context, basisContent string) (string, error)
}

type ChatService struct {
	dbStore *store.SQLiteStore
	llm     Completer
}

func NewChatService(db *store.SQLiteStore, llm Completer) *ChatService {
	return &ChatService{dbStore: db, llm: llm}
}

func (s *ChatService) CreateSession(ctx context.Context, user *store.User, firstMessageContent *string) (*store.ChatSession, []store.ChatMessage, error) {
	if err := s.checkSessionLimit(user.ID); err != nil {
		return nil, nil, err
	}

	session, err := s.dbStore.CreateSession(user.ID, nil) // Title is generated later
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session in DB: %w", err)
	}

	var messages []store.ChatMessage

	if firstMessageContent != nil && *firstMessageContent != "" {
		if err := s.checkProfileGate(user); err != nil {
			return nil, nil, err
		}

		userMsg := store.ChatMessage{
			SessionID: session.ID,
			Role:      store.MessageRoleUser,
			Content:   *firstMessageContent,
		}
		if err := s.dbStore.CreateMessage(&userMsg); err != nil {
			log.Printf("Failed to store first user message for new session %s: %v", session.ID, err)
		} else {
			messages = append(messages, userMsg)

			assistantMsg, err := s.generateAssistantTurn(ctx, session.ID, messages)
			if err != nil {
				return nil, nil, err
			}
			messages = append(messages, *assistantMsg)

			// Auto-generate title after first exchange
			go s.generateAndSaveSessionTitle(session.ID, user.ID, userMsg.Content)
		}
	}

	return session, messages, nil
}

func (s *ChatService) GetSessions(userID int64, limit, offset int) ([]store.ChatSession, error) {
	return s.dbStore.GetSessionsByUserID(userID, limit, offset)
}

func (s *ChatService) GetSessionDetails(sessionID string, userID int64) (*store.ChatSession, []store.ChatMessage, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}

	messages, err := s.dbStore.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get messages for session: %w", err)
	}
	return session, messages, nil
}

func (s *ChatService) DeleteSession(sessionID string, userID int64) error {
	session, err := s.dbStore.GetSessionByID(sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return s.dbStore.DeleteSession(sessionID, userID)
}

func (s *ChatService) PostMessage(ctx context.Context, sessionID string, user *store.User, userContent string) (*store.ChatMessage, error) {
	session, err := s.dbStore.GetSessionByID(sessionID, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	if err := s.checkProfileGate(user); err != nil {
		return nil, err
	}

	userMsg := store.ChatMessage{
		SessionID: sessionID,
		Role:      store.MessageRoleUser,
		Content:   userContent,
	}
	if err := s.dbStore.CreateMessage(&userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	history, err := s.dbStore.GetMessagesBySessionID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session history: %w", err)
	}

	assistantMsg, err := s.generateAssistantTurn(ctx, sessionID, history)
	if err != nil {
		return nil, err
	}

	if session.Title == nil || *session.Title == "" {
		go s.generateAndSaveSessionTitle(sessionID, user.ID, userContent)
	}

	return assistantMsg, nil
}

// generateAssistantTurn asks the LLM for a response and stores it. LLM
// failures do not fail the request: the stored assistant turn carries a
// canned apology instead, so the user's message is never lost.
func (s *ChatService) generateAssistantTurn(ctx context.Context, sessionID string, history []store.ChatMessage) (*store.ChatMessage, error) {
	content, err := s.llm.ChatCompletion(ctx, history)
	if err != nil {
		log.Printf("Error generating assistant response for session %s: %v", sessionID, err)
		content = "I'm sorry, I encountered an error while processing your request."
	}

	assistantMsg := store.ChatMessage{
		SessionID: sessionID,
		Role:      store.MessageRoleAssistant,
		Content:   content,
	}
	if err := s.dbStore.CreateMessage(&assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	return &assistantMsg, nil
}

func (s *ChatService) generateAndSaveSessionTitle(sessionID string, userID int64, basisContent string) {
	title, err := s.llm.GenerateTitle(context.Background(), basisContent)
	if err != nil {
		log.Printf("Failed to generate title for session %s: %v", sessionID, err)
		return
	}

	if err := s.dbStore.UpdateSessionTitle(sessionID, userID, title); err != nil {
		log.Printf("Failed to save generated title '%s' for session %s: %v", title, sessionID, err)
	}
}

// RateMessage attaches or replaces the caller's rating on an assistant
// message in one of their own sessions.
func (s *ChatService) RateMessage(messageID string, user *store.User, rating string, reason *string) (*store.MessageRating, error) {
	msg, ownerID, err := s.dbStore.GetMessageByID(messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg == nil || ownerID != user.ID {
		return nil, ErrMessageNotFound
	}
	if msg.Role != store.MessageRoleAssistant {
		return nil, ErrNotRatable
	}
	return s.dbStore.UpsertRating(messageID, user.ID, rating, reason)
}

func (s *ChatService) UnrateMessage(messageID string, user *store.User) error {
	msg, ownerID, err := s.dbStore.GetMessageByID(messageID)
	if err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}
	if msg == nil || ownerID != user.ID {
		return ErrMessageNotFound
	}
	if err := s.dbStore.DeleteRating(messageID); err != nil {
		return ErrMessageNotFound
	}
	return nil
}

func (s *ChatService) checkProfileGate(user *store.User) error {
	required, err := s.dbStore.GetSettingValue("require_profile_completion", "false")
	if err != nil {
		return fmt.Errorf("failed to read profile completion setting: %w", err)
	}
	if required == "true" && !user.ProfileComplete() {
		return ErrProfileIncomplete
	}
	return nil
}

func (s *ChatService) checkSessionLimit(userID int64) error {
	limitStr, err := s.dbStore.GetSettingValue("max_sessions_per_user", "0")
	if err != nil {
		return fmt.Errorf("failed to read session limit setting: %w", err)
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return nil // unlimited
	}
	count, err := s.dbStore.CountSessionsByUserID(userID)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}
	if count >= int64(limit) {
		return ErrSessionLimit
	}
	return nil
}
