package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/healthymind-tech/llm-rating-platform/internal/config"
	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"

	titleSystemInstruction = "You are a helpful assistant that generates concise titles for chat conversations. " +
		"The title should be 3-5 words maximum. Just return the title itself, nothing else."
)

// ErrNoActiveLLMConfig is returned when no backend has been activated by an
// administrator yet.
var ErrNoActiveLLMConfig = errors.New("no active llm config")

// LLMService routes chat completions to whichever backend the active
// LLMConfig points at: an OpenAI-compatible API or an Ollama server.
type LLMService struct {
	dbStore    *store.SQLiteStore
	httpClient *http.Client
}

func NewLLMService(db *store.SQLiteStore) *LLMService {
	return &LLMService{
		dbStore: db,
		httpClient: &http.Client{
			Timeout: time.Duration(config.AppConfig.LLMTimeoutSeconds) * time.Second,
		},
	}
}

// ChatCompletion generates the assistant turn for the given history. The
// history must be ordered oldest first and end with the user's latest turn.
func (s *LLMService) ChatCompletion(ctx context.Context, history []store.ChatMessage) (string, error) {
	cfg, err := s.dbStore.GetActiveLLMConfig()
	if err != nil {
		return "", fmt.Errorf("failed to resolve active llm config: %w", err)
	}
	if cfg == nil {
		return "", ErrNoActiveLLMConfig
	}

	if len(history) == 0 {
		return "", fmt.Errorf("history is empty for chat completion")
	}
	if history[len(history)-1].Role != store.MessageRoleUser {
		return "", fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	switch cfg.Provider {
	case store.ProviderOllama:
		return s.completeOllama(ctx, cfg, history)
	default:
		return s.completeOpenAI(ctx, cfg, history)
	}
}

// GenerateTitle asks the active backend for a short conversation title.
func (s *LLMService) GenerateTitle(ctx context.Context, basisContent string) (string, error) {
	prompt := fmt.Sprintf("Generate a very concise title (3-5 words maximum) for a conversation that starts with or is about: \"%s\".", basisContent)
	history := []store.ChatMessage{
		{Role: store.MessageRoleUser, Content: titleSystemInstruction + "\n\n" + prompt},
	}
	title, err := s.ChatCompletion(ctx, history)
	if err != nil {
		return "", err
	}
	title = strings.Trim(title, "\"'\n\r\t .")
	if title == "" {
		return "Chat", fmt.Errorf("LLM generated an empty title string")
	}
	return title, nil
}

func (s *LLMService) completeOpenAI(ctx context.Context, cfg *store.LLMConfig, history []store.ChatMessage) (string, error) {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = s.httpClient
	client := openai.NewClientWithConfig(clientConfig)

	messages := make([]openai.ChatCompletionMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role, // store roles match the OpenAI role names
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: float32(cfg.Temperature),
	}
	if cfg.MaxTokens > 0 {
		req.MaxTokens = cfg.MaxTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model     string        `json:"model"`
	CreatedAt string        `json:"created_at"`
	Message   ollamaMessage `json:"message"`
	Done      bool          `json:"done"`
}

func (s *LLMService) completeOllama(ctx context.Context, cfg *store.LLMConfig, history []store.ChatMessage) (string, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}

	messages := make([]ollamaMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, ollamaMessage{Role: m.Role, Content: m.Content})
	}

	reqBody := ollamaChatRequest{
		Model:    cfg.Model,
		Messages: messages,
		Stream:   false,
		Options:  map[string]any{"temperature": cfg.Temperature},
	}
	if cfg.MaxTokens > 0 {
		reqBody.Options["num_predict"] = cfg.MaxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama error: %s", string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode ollama response: %w", err)
	}
	return chatResp.Message.Content, nil
}
