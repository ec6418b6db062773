package store

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"

	RatingLike    = "like"
	RatingDislike = "dislike"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileComplete reports whether the user has filled in the fields the
// platform considers mandatory before chatting.
func (u *User) ProfileComplete() bool {
	return u.Email != "" && u.DisplayName != ""
}

type ChatSession struct {
	ID        string    `json:"id"` // UUID
	UserID    int64     `json:"user_id"`
	Title     *string   `json:"title"` // Nullable, generated after first exchange
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ChatMessage struct {
	ID        string    `json:"id"` // UUID
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageRating struct {
	ID        int64     `json:"id"`
	MessageID string    `json:"message_id"`
	UserID    int64     `json:"user_id"`
	Rating    string    `json:"rating"` // "like" or "dislike"
	Reason    *string   `json:"reason"` // Nullable
	CreatedAt time.Time `json:"created_at"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LLMConfig struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Provider    string    `json:"provider"` // "openai" or "ollama"
	BaseURL     string    `json:"base_url"`
	APIKey      string    `json:"-"` // Never serialized back to clients
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
