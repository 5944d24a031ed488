// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete alit-chat configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Assistant (AI chat) settings
	Assistant AssistantConfig `toml:"assistant"`

	// Global (shared) chat settings
	Global GlobalConfig `toml:"global"`

	// Storage settings
	Storage StorageConfig `toml:"storage"`
}

// ServerConfig contains the application server location.
type ServerConfig struct {
	// BaseURL is the root of the chat server (auth, global chat, and the
	// Ollama proxy all live behind it).
	BaseURL string `toml:"base_url"`
}

// AssistantConfig contains AI conversation settings.
type AssistantConfig struct {
	// Model is the Ollama model name served behind the proxy.
	Model string `toml:"model"`
	// RequestDelayMS is the minimum interval between AI requests.
	RequestDelayMS int `toml:"request_delay_ms"`
	// HistoryWindow is how many trailing messages are replayed as context.
	HistoryWindow int `toml:"history_window"`
	// Temperature, TopP and NumPredict are the fixed generation parameters.
	Temperature float64 `toml:"temperature"`
	TopP        float64 `toml:"top_p"`
	NumPredict  int     `toml:"num_predict"`
	// SystemPrompt overrides the built-in assistant preamble when set.
	SystemPrompt string `toml:"system_prompt"`
}

// GlobalConfig contains shared chat feed settings.
type GlobalConfig struct {
	// PollIntervalSecs is the feed polling interval while the global view
	// is active.
	PollIntervalSecs int `toml:"poll_interval_secs"`
	// FetchLimit is how many recent messages a fetch requests.
	FetchLimit int `toml:"fetch_limit"`
}

// StorageConfig selects the session persistence backend.
type StorageConfig struct {
	// Backend is "file", "sqlite" or "memory".
	Backend string `toml:"backend"`
	// Path overrides the backend's default location when set.
	Path string `toml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:5000",
		},
		Assistant: AssistantConfig{
			Model:          "mistral",
			RequestDelayMS: 1000,
			HistoryWindow:  10,
			Temperature:    0.5,
			TopP:           0.9,
			NumPredict:     512,
		},
		Global: GlobalConfig{
			PollIntervalSecs: 3,
			FetchLimit:       50,
		},
		Storage: StorageConfig{
			Backend: "file",
		},
	}
}

// RequestDelay returns the AI request delay as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.Assistant.RequestDelayMS) * time.Millisecond
}

// PollInterval returns the global chat polling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Global.PollIntervalSecs) * time.Second
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the alit configuration directory (~/.alit).
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".alit"), nil
}

// ConfigPath returns the TOML config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from its default location, fills defaults for
// unset fields, applies environment overrides and validates. A missing file
// is not an error; defaults are used.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err == nil {
		if err := loadTOML(cfg, path); err != nil {
			return nil, err
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath reads the configuration from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := loadTOML(cfg, path); err != nil {
		return nil, err
	}
	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to its default location.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// fillDefaults replaces zero values with the built-in defaults so a partial
// config file still produces a complete configuration.
func (c *Config) fillDefaults() {
	def := Default()

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Assistant.Model == "" {
		c.Assistant.Model = def.Assistant.Model
	}
	if c.Assistant.RequestDelayMS == 0 {
		c.Assistant.RequestDelayMS = def.Assistant.RequestDelayMS
	}
	if c.Assistant.HistoryWindow == 0 {
		c.Assistant.HistoryWindow = def.Assistant.HistoryWindow
	}
	if c.Assistant.Temperature == 0 {
		c.Assistant.Temperature = def.Assistant.Temperature
	}
	if c.Assistant.TopP == 0 {
		c.Assistant.TopP = def.Assistant.TopP
	}
	if c.Assistant.NumPredict == 0 {
		c.Assistant.NumPredict = def.Assistant.NumPredict
	}
	if c.Global.PollIntervalSecs == 0 {
		c.Global.PollIntervalSecs = def.Global.PollIntervalSecs
	}
	if c.Global.FetchLimit == 0 {
		c.Global.FetchLimit = def.Global.FetchLimit
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = def.Storage.Backend
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies ALIT_* environment variables over the loaded
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ALIT_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("ALIT_MODEL"); v != "" {
		c.Assistant.Model = v
	}
	if v := os.Getenv("ALIT_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("ALIT_REQUEST_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			c.Assistant.RequestDelayMS = ms
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "server.base_url", Message: "must be an absolute http(s) URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server.base_url", Message: "scheme must be http or https"}
	}
	if c.Assistant.RequestDelayMS < 0 {
		return ValidationError{Field: "assistant.request_delay_ms", Message: "must not be negative"}
	}
	if c.Assistant.HistoryWindow < 0 {
		return ValidationError{Field: "assistant.history_window", Message: "must not be negative"}
	}
	if c.Global.PollIntervalSecs <= 0 {
		return ValidationError{Field: "global.poll_interval_secs", Message: "must be positive"}
	}
	if c.Global.FetchLimit <= 0 {
		return ValidationError{Field: "global.fetch_limit", Message: "must be positive"}
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "file", "sqlite", "memory":
	default:
		return ValidationError{Field: "storage.backend", Message: `must be "file", "sqlite" or "memory"`}
	}
	return nil
}
