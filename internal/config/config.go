package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

var (
	ErrNoConfig        = errors.New("config file not found")
	ErrInvalidJSON     = errors.New("invalid config JSON")
	ErrInvalidCapacity = errors.New("history capacities must be positive")
)

// Config holds the global mend configuration.
type Config struct {
	BaseURL               string `json:"base_url"`                // Rewrite service endpoint
	APIKey                string `json:"api_key"`                 // Optional bearer token for the service
	Model                 string `json:"model"`                   // Model identifier forwarded to the service
	RequestTimeoutSecs    int    `json:"request_timeout_seconds"` // Per-request timeout (default: 120)
	ContextCapacity       int    `json:"context_capacity"`        // Conversation context cap (default: 10 messages)
	PromptHistoryCapacity int    `json:"prompt_history_capacity"` // Prompt history cap (default: 20 entries)
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		BaseURL:               "http://localhost:8000/api",
		Model:                 "gemini-1.5-pro",
		RequestTimeoutSecs:    120,
		ContextCapacity:       10,
		PromptHistoryCapacity: 20,
	}
}

// Load reads the config from ~/.config/mend/config.json.
// A missing file is not an error; built-in defaults are returned.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(homeDir, ".config", "mend", "config.json")
	cfg, err := LoadFrom(configPath)
	if errors.Is(err, ErrNoConfig) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFrom reads the config from a specific path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoConfig
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, ErrInvalidJSON
	}

	// Set defaults
	def := Default()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.RequestTimeoutSecs == 0 {
		cfg.RequestTimeoutSecs = def.RequestTimeoutSecs
	}
	if cfg.ContextCapacity == 0 {
		cfg.ContextCapacity = def.ContextCapacity
	}
	if cfg.PromptHistoryCapacity == 0 {
		cfg.PromptHistoryCapacity = def.PromptHistoryCapacity
	}

	if cfg.ContextCapacity < 0 || cfg.PromptHistoryCapacity < 0 || cfg.RequestTimeoutSecs < 0 {
		return nil, ErrInvalidCapacity
	}

	return &cfg, nil
}
