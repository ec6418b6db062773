package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/healthymind-tech/llm-rating-platform/internal/auth"
	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrSelfDeletion      = errors.New("cannot delete own account")
	ErrUnknownSetting    = errors.New("unknown setting key")
	ErrInvalidProvider   = errors.New("invalid llm provider")
	ErrLLMConfigNotFound = errors.New("llm config not found")
)

// knownSettings are the only keys an administrator may write.
var knownSettings = map[string]bool{
	"registration_enabled":       true,
	"require_profile_completion": true,
	"max_sessions_per_user":      true,
}

// AdminService covers the administrative console: user management, system
// settings, LLM configurations, and usage metrics.
type AdminService struct {
	dbStore *store.SQLiteStore
}

func NewAdminService(db *store.SQLiteStore) *AdminService {
	return &AdminService{dbStore: db}
}

// User management

func (s *AdminService) ListUsers(limit, offset int) ([]store.User, error) {
	return s.dbStore.ListUsers(limit, offset)
}

func (s *AdminService) CreateUser(username, email, password, role string) (*store.User, error) {
	if role != store.RoleAdmin && role != store.RoleUser {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	existing, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return s.dbStore.CreateUser(username, email, hashedPassword, role)
}

func (s *AdminService) UpdateUserRole(userID int64, role string) (*store.User, error) {
	if role != store.RoleAdmin && role != store.RoleUser {
		return nil, fmt.Errorf("invalid role %q", role)
	}
	user, err := s.dbStore.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.dbStore.UpdateUserRole(userID, role); err != nil {
		return nil, err
	}
	return s.dbStore.GetUserByID(userID)
}

func (s *AdminService) ResetUserPassword(userID int64, newPassword string) error {
	user, err := s.dbStore.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.dbStore.UpdateUserPassword(userID, hashedPassword)
}

func (s *AdminService) DeleteUser(userID, callerID int64) error {
	if userID == callerID {
		return ErrSelfDeletion
	}
	user, err := s.dbStore.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return s.dbStore.DeleteUser(userID)
}

// Settings

func (s *AdminService) ListSettings() ([]store.Setting, error) {
	return s.dbStore.ListSettings()
}

func (s *AdminService) UpdateSetting(key, value string) (*store.Setting, error) {
	if !knownSettings[key] {
		return nil, ErrUnknownSetting
	}
	if err := s.dbStore.SetSetting(key, value); err != nil {
		return nil, err
	}
	return s.dbStore.GetSetting(key)
}

// LLM configurations

func (s *AdminService) ListLLMConfigs() ([]store.LLMConfig, error) {
	return s.dbStore.ListLLMConfigs()
}

func (s *AdminService) CreateLLMConfig(cfg *store.LLMConfig) (*store.LLMConfig, error) {
	if cfg.Provider != store.ProviderOpenAI && cfg.Provider != store.ProviderOllama {
		return nil, ErrInvalidProvider
	}
	return s.dbStore.CreateLLMConfig(cfg)
}

func (s *AdminService) UpdateLLMConfig(cfg *store.LLMConfig) (*store.LLMConfig, error) {
	if cfg.Provider != store.ProviderOpenAI && cfg.Provider != store.ProviderOllama {
		return nil, ErrInvalidProvider
	}
	existing, err := s.dbStore.GetLLMConfigByID(cfg.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrLLMConfigNotFound
	}
	if cfg.APIKey == "" {
		cfg.APIKey = existing.APIKey // blank means keep the stored key
	}
	if err := s.dbStore.UpdateLLMConfig(cfg); err != nil {
		return nil, err
	}
	return s.dbStore.GetLLMConfigByID(cfg.ID)
}

func (s *AdminService) ActivateLLMConfig(id int64) (*store.LLMConfig, error) {
	existing, err := s.dbStore.GetLLMConfigByID(id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrLLMConfigNotFound
	}
	if err := s.dbStore.ActivateLLMConfig(id); err != nil {
		return nil, err
	}
	return s.dbStore.GetLLMConfigByID(id)
}

func (s *AdminService) DeleteLLMConfig(id int64) error {
	existing, err := s.dbStore.GetLLMConfigByID(id)
	if err != nil {
		return err
	}
	if existing == nil {
		return ErrLLMConfigNotFound
	}
	return s.dbStore.DeleteLLMConfig(id)
}

// Metrics

func (s *AdminService) GetUsageStats(startDate, endDate time.Time) (*store.UsageStats, error) {
	return s.dbStore.GetUsageStats(startDate, endDate)
}
