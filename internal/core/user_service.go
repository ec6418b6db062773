package core

import (
	"errors"
	"fmt"

	"github.com/healthymind-tech/llm-rating-platform/internal/auth"
	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

var (
	ErrRegistrationDisabled = errors.New("registration disabled")
	ErrUsernameTaken        = errors.New("username taken")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)

// UserService covers self-service account operations: registration, login,
// profile updates, password changes.
type UserService struct {
	dbStore *store.SQLiteStore
}

func NewUserService(db *store.SQLiteStore) *UserService {
	return &UserService{dbStore: db}
}

// Register creates a new account. The first account on a fresh install
// becomes the admin; after that the registration_enabled setting gates
// self-signup.
func (s *UserService) Register(username, email, password string) (*store.User, error) {
	count, err := s.dbStore.CountUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	role := store.RoleUser
	if count == 0 {
		role = store.RoleAdmin
	} else {
		enabled, err := s.dbStore.GetSettingValue("registration_enabled", "true")
		if err != nil {
			return nil, fmt.Errorf("failed to read registration setting: %w", err)
		}
		if enabled != "true" {
			return nil, ErrRegistrationDisabled
		}
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

// Authenticate verifies credentials and returns the user on success.
func (s *UserService) Authenticate(username, password string) (*store.User, error) {
	user, err := s.dbStore.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetUserByID(id int64) (*store.User, error) {
	return s.dbStore.GetUserByID(id)
}

func (s *UserService) UpdateProfile(userID int64, email, displayName string) (*store.User, error) {
	if err := s.dbStore.UpdateUserProfile(userID, email, displayName); err != nil {
		return nil, err
	}
	return s.dbStore.GetUserByID(userID)
}

func (s *UserService) ChangePassword(user *store.User, oldPassword, newPassword string) error {
	if !auth.CheckPasswordHash(oldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.dbStore.UpdateUserPassword(user.ID, hashedPassword)
}
