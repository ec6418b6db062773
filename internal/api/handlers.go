package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/healthymind-tech/llm-rating-platform/internal/auth"
	"github.com/healthymind-tech/llm-rating-platform/internal/core"
	"github.com/healthymind-tech/llm-rating-platform/internal/export"
	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

type contextKey string

const userContextKey contextKey = "user"

type APIHandler struct {
	userService   *core.UserService
	chatService   *core.ChatService
	adminService  *core.AdminService
	exportService *export.Service
}

func NewAPIHandler(us *core.UserService, cs *core.ChatService, as *core.AdminService, es *export.Service) *APIHandler {
	return &APIHandler{
		userService:   us,
		chatService:   cs,
		adminService:  as,
		exportService: es,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		subject, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		userID, err := strconv.ParseInt(subject, 10, 64)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.userService.GetUserByID(userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %d: %v", userID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *APIHandler) AdminOnlyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := requestUser(r)
		if user.Role != store.RoleAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestUser(r *http.Request) *store.User {
	return r.Context().Value(userContextKey).(*store.User)
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrRegistrationDisabled):
			http.Error(w, "Registration is disabled", http.StatusForbidden)
		case errors.Is(err, core.ErrUsernameTaken):
			http.Error(w, "Username already taken", http.StatusConflict)
		default:
			log.Printf("Error registering user %s: %v", req.Username, err)
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Authenticate(req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidCredentials) {
			log.Printf("Error authenticating user %s: %v", req.Username, err)
		}
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"token": token, "user": user})
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(requestUser(r))
}

type UpdateProfileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := h.userService.UpdateProfile(user.ID, req.Email, req.DisplayName)
	if err != nil {
		log.Printf("Error updating profile for user %d: %v", user.ID, err)
		http.Error(w, "Failed to update profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(updated)
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *APIHandler) ChangePasswordHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.NewPassword == "" {
		http.Error(w, "New password is required", http.StatusBadRequest)
		return
	}

	if err := h.userService.ChangePassword(user, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, core.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		log.Printf("Error changing password for user %d: %v", user.ID, err)
		http.Error(w, "Failed to change password", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type CreateSessionRequest struct {
	FirstMessage *string `json:"first_message,omitempty"`
}

type SessionDetailsResponse struct {
	*store.ChatSession
	Messages []store.ChatMessage `json:"messages"`
}

func (h *APIHandler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	var req CreateSessionRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	session, messages, err := h.chatService.CreateSession(r.Context(), user, req.FirstMessage)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionLimit):
			http.Error(w, "Session limit reached", http.StatusForbidden)
		case errors.Is(err, core.ErrProfileIncomplete):
			http.Error(w, "Profile must be completed before chatting", http.StatusForbidden)
		default:
			log.Printf("Error creating session for user %d: %v", user.ID, err)
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
		}
		return
	}

	resp := SessionDetailsResponse{
		ChatSession: session,
		Messages:    messages,
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	limit, offset := paginationParams(r, 50)

	sessions, err := h.chatService.GetSessions(user.ID, limit, offset)
	if err != nil {
		log.Printf("Error listing sessions for user %d: %v", user.ID, err)
		http.Error(w, "Failed to list sessions", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []store.ChatSession{}
	}
	json.NewEncoder(w).Encode(sessions)
}

func (h *APIHandler) GetSessionDetailsHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	sessionID := chi.URLParam(r, "sessionID")

	session, messages, err := h.chatService.GetSessionDetails(sessionID, user.ID)
	if err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error getting session details for user %d, session %s: %v", user.ID, sessionID, err)
		http.Error(w, "Failed to get session details", http.StatusInternalServerError)
		return
	}

	resp := SessionDetailsResponse{
		ChatSession: session,
		Messages:    messages,
	}
	json.NewEncoder(w).Encode(resp)
}

func (h *APIHandler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.chatService.DeleteSession(sessionID, user.ID); err != nil {
		if errors.Is(err, core.ErrSessionNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting session %s for user %d: %v", sessionID, user.ID, err)
		http.Error(w, "Failed to delete session", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	sessionID := chi.URLParam(r, "sessionID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	assistantMessage, err := h.chatService.PostMessage(r.Context(), sessionID, user, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrSessionNotFound):
			http.Error(w, "Session not found", http.StatusNotFound)
		case errors.Is(err, core.ErrProfileIncomplete):
			http.Error(w, "Profile must be completed before chatting", http.StatusForbidden)
		default:
			log.Printf("Error posting message for user %d, session %s: %v", user.ID, sessionID, err)
			http.Error(w, "Failed to post message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(assistantMessage)
}

type RateMessageRequest struct {
	Rating string  `json:"rating"`
	Reason *string `json:"reason,omitempty"`
}

func (h *APIHandler) RateMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	messageID := chi.URLParam(r, "messageID")

	var req RateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rating != store.RatingLike && req.Rating != store.RatingDislike {
		http.Error(w, "Rating must be 'like' or 'dislike'", http.StatusBadRequest)
		return
	}

	rating, err := h.chatService.RateMessage(messageID, user, req.Rating, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMessageNotFound):
			http.Error(w, "Message not found", http.StatusNotFound)
		case errors.Is(err, core.ErrNotRatable):
			http.Error(w, "Only assistant messages can be rated", http.StatusBadRequest)
		default:
			log.Printf("Error rating message %s by user %d: %v", messageID, user.ID, err)
			http.Error(w, "Failed to rate message", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(rating)
}

func (h *APIHandler) UnrateMessageHandler(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)
	messageID := chi.URLParam(r, "messageID")

	if err := h.chatService.UnrateMessage(messageID, user); err != nil {
		if errors.Is(err, core.ErrMessageNotFound) {
			http.Error(w, "Message not found", http.StatusNotFound)
			return
		}
		log.Printf("Error removing rating on message %s by user %d: %v", messageID, user.ID, err)
		http.Error(w, "Failed to remove rating", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func paginationParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
