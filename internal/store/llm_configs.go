package store

import (
	"database/sql"
	"fmt"
	"time"
)

const llmConfigColumns = "id, name, provider, base_url, api_key, model, temperature, max_tokens, is_active, created_at, updated_at"

func scanLLMConfig(row interface{ Scan(...any) error }) (*LLMConfig, error) {
	var cfg LLMConfig
	err := row.Scan(&cfg.ID, &cfg.Name, &cfg.Provider, &cfg.BaseURL, &cfg.APIKey,
		&cfg.Model, &cfg.Temperature, &cfg.MaxTokens, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *SQLiteStore) CreateLLMConfig(cfg *LLMConfig) (*LLMConfig, error) {
	now := time.Now().UTC()
	res, err := s.db.Exec(
		"INSERT INTO llm_configs (name, provider, base_url, api_key, model, temperature, max_tokens, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		cfg.Name, cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens, false, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert llm config: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetLLMConfigByID(id)
}

func (s *SQLiteStore) GetLLMConfigByID(id int64) (*LLMConfig, error) {
	row := s.db.QueryRow("SELECT "+llmConfigColumns+" FROM llm_configs WHERE id = ?", id)
	cfg, err := scanLLMConfig(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get llm config: %w", err)
	}
	return cfg, nil
}

// GetActiveLLMConfig returns the currently active config, or nil when no
// config has been activated yet.
func (s *SQLiteStore) GetActiveLLMConfig() (*LLMConfig, error) {
	row := s.db.QueryRow("SELECT " + llmConfigColumns + " FROM llm_configs WHERE is_active = TRUE LIMIT 1")
	cfg, err := scanLLMConfig(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active llm config: %w", err)
	}
	return cfg, nil
}

func (s *SQLiteStore) ListLLMConfigs() ([]LLMConfig, error) {
	rows, err := s.db.Query("SELECT " + llmConfigColumns + " FROM llm_configs ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query llm configs: %w", err)
	}
	defer rows.Close()

	var configs []LLMConfig
	for rows.Next() {
		cfg, err := scanLLMConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan llm config row: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

func (s *SQLiteStore) UpdateLLMConfig(cfg *LLMConfig) error {
	res, err := s.db.Exec(
		"UPDATE llm_configs SET name = ?, provider = ?, base_url = ?, api_key = ?, model = ?, temperature = ?, max_tokens = ?, updated_at = ? WHERE id = ?",
		cfg.Name, cfg.Provider, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens, time.Now().UTC(), cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to update llm config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("llm config not found")
	}
	return nil
}

// ActivateLLMConfig marks one config active and deactivates every other one,
// keeping the single-active invariant inside one transaction.
func (s *SQLiteStore) ActivateLLMConfig(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin activation: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("UPDATE llm_configs SET is_active = TRUE, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to activate llm config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("llm config not found")
	}

	if _, err := tx.Exec("UPDATE llm_configs SET is_active = FALSE WHERE id != ?", id); err != nil {
		return fmt.Errorf("failed to deactivate other llm configs: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) DeleteLLMConfig(id int64) error {
	res, err := s.db.Exec("DELETE FROM llm_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete llm config: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("llm config not found")
	}
	return nil
}
