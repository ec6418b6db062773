package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healthymind-tech/llm-rating-platform/internal/core"
	"github.com/healthymind-tech/llm-rating-platform/internal/store"
)

func (h *APIHandler) AdminListUsersHandler(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r, 50)

	users, err := h.adminService.ListUsers(limit, offset)
	if err != nil {
		log.Printf("Error listing users: %v", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	json.NewEncoder(w).Encode(users)
}

type AdminCreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *APIHandler) AdminCreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req AdminCreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = store.RoleUser
	}

	user, err := h.adminService.CreateUser(req.Username, req.Email, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, core.ErrUsernameTaken) {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		}
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type AdminUpdateUserRequest struct {
	Role        *string `json:"role,omitempty"`
	NewPassword *string `json:"new_password,omitempty"`
}

func (h *APIHandler) AdminUpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	var req AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var updated *store.User
	if req.Role != nil {
		updated, err = h.adminService.UpdateUserRole(userID, *req.Role)
		if err != nil {
			if errors.Is(err, core.ErrUserNotFound) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			log.Printf("Error updating role for user %d: %v", userID, err)
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
	}
	if req.NewPassword != nil {
		if err := h.adminService.ResetUserPassword(userID, *req.NewPassword); err != nil {
			if errors.Is(err, core.ErrUserNotFound) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			log.Printf("Error resetting password for user %d: %v", userID, err)
			http.Error(w, "Failed to update user", http.StatusInternalServerError)
			return
		}
	}

	if updated == nil {
		updated, err = h.userService.GetUserByID(userID)
		if err != nil || updated == nil {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
	}
	json.NewEncoder(w).Encode(updated)
}

func (h *APIHandler) AdminDeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	caller := requestUser(r)
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid user id", http.StatusBadRequest)
		return
	}

	if err := h.adminService.DeleteUser(userID, caller.ID); err != nil {
		switch {
		case errors.Is(err, core.ErrUserNotFound):
			http.Error(w, "User not found", http.StatusNotFound)
		case errors.Is(err, core.ErrSelfDeletion):
			http.Error(w, "Cannot delete own account", http.StatusBadRequest)
		default:
			log.Printf("Error deleting user %d: %v", userID, err)
			http.Error(w, "Failed to delete user", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AdminListSettingsHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := h.adminService.ListSettings()
	if err != nil {
		log.Printf("Error listing settings: %v", err)
		http.Error(w, "Failed to list settings", http.StatusInternalServerError)
		return
	}
	if settings == nil {
		settings = []store.Setting{}
	}
	json.NewEncoder(w).Encode(settings)
}

type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func (h *APIHandler) AdminUpdateSettingHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	setting, err := h.adminService.UpdateSetting(req.Key, req.Value)
	if err != nil {
		if errors.Is(err, core.ErrUnknownSetting) {
			http.Error(w, "Unknown setting key", http.StatusBadRequest)
			return
		}
		log.Printf("Error updating setting %s: %v", req.Key, err)
		http.Error(w, "Failed to update setting", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(setting)
}

type LLMConfigRequest struct {
	Name        string  `json:"name"`
	Provider    string  `json:"provider"`
	BaseURL     string  `json:"base_url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

func (h *APIHandler) AdminListLLMConfigsHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := h.adminService.ListLLMConfigs()
	if err != nil {
		log.Printf("Error listing llm configs: %v", err)
		http.Error(w, "Failed to list llm configs", http.StatusInternalServerError)
		return
	}
	if configs == nil {
		configs = []store.LLMConfig{}
	}
	json.NewEncoder(w).Encode(configs)
}

func (h *APIHandler) AdminCreateLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req LLMConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Model == "" {
		http.Error(w, "Name and model are required", http.StatusBadRequest)
		return
	}

	cfg, err := h.adminService.CreateLLMConfig(&store.LLMConfig{
		Name:        req.Name,
		Provider:    req.Provider,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, core.ErrInvalidProvider) {
			http.Error(w, "Provider must be 'openai' or 'ollama'", http.StatusBadRequest)
			return
		}
		log.Printf("Error creating llm config %s: %v", req.Name, err)
		http.Error(w, "Failed to create llm config", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(cfg)
}

func (h *APIHandler) AdminUpdateLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid config id", http.StatusBadRequest)
		return
	}

	var req LLMConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := h.adminService.UpdateLLMConfig(&store.LLMConfig{
		ID:          configID,
		Name:        req.Name,
		Provider:    req.Provider,
		BaseURL:     req.BaseURL,
		APIKey:      req.APIKey,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		switch {
		case errors.Is(err, core.ErrLLMConfigNotFound):
			http.Error(w, "LLM config not found", http.StatusNotFound)
		case errors.Is(err, core.ErrInvalidProvider):
			http.Error(w, "Provider must be 'openai' or 'ollama'", http.StatusBadRequest)
		default:
			log.Printf("Error updating llm config %d: %v", configID, err)
			http.Error(w, "Failed to update llm config", http.StatusInternalServerError)
		}
		return
	}
	json.NewEncoder(w).Encode(cfg)
}

func (h *APIHandler) AdminActivateLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid config id", http.StatusBadRequest)
		return
	}

	cfg, err := h.adminService.ActivateLLMConfig(configID)
	if err != nil {
		if errors.Is(err, core.ErrLLMConfigNotFound) {
			http.Error(w, "LLM config not found", http.StatusNotFound)
			return
		}
		log.Printf("Error activating llm config %d: %v", configID, err)
		http.Error(w, "Failed to activate llm config", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(cfg)
}

func (h *APIHandler) AdminDeleteLLMConfigHandler(w http.ResponseWriter, r *http.Request) {
	configID, err := strconv.ParseInt(chi.URLParam(r, "configID"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid config id", http.StatusBadRequest)
		return
	}

	if err := h.adminService.DeleteLLMConfig(configID); err != nil {
		if errors.Is(err, core.ErrLLMConfigNotFound) {
			http.Error(w, "LLM config not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting llm config %d: %v", configID, err)
		http.Error(w, "Failed to delete llm config", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) AdminStatsHandler(w http.ResponseWriter, r *http.Request) {
	endDate := time.Now().UTC()
	startDate := endDate.AddDate(0, 0, -30)

	if v := r.URL.Query().Get("start_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			startDate = t
		}
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			endDate = t.Add(24*time.Hour - time.Nanosecond)
		}
	}

	stats, err := h.adminService.GetUsageStats(startDate, endDate)
	if err != nil {
		log.Printf("Error computing usage stats: %v", err)
		http.Error(w, "Failed to compute stats", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}
