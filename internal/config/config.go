// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for allma.
//
// Configuration is TOML with sensible defaults and environment variable
// overrides, loaded from (in order of precedence):
//   - path set explicitly by the caller
//   - ~/.allma/config.toml
//   - built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/allma-studio/allma-go/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete allma client configuration.
type Config struct {
	Version string `toml:"version"`

	Backend Backend `toml:"backend"`
	Chat    Chat    `toml:"chat"`
	Log     Log     `toml:"log"`
	History History `toml:"history"`
}

// Backend configures how the client reaches the Allma backend.
type Backend struct {
	// BaseURL of the backend HTTP API.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// ProbeTimeoutSecs bounds the pre-flight reachability check.
	ProbeTimeoutSecs int `toml:"probe_timeout_secs"`
	// HealthIntervalSecs is how often the availability monitor polls.
	HealthIntervalSecs int `toml:"health_interval_secs"`
}

// Chat holds per-conversation defaults.
type Chat struct {
	// Model is the default model name; empty lets the backend choose.
	Model string `toml:"model"`
	// UseRAG retrieves document context for every message when true.
	UseRAG bool `toml:"use_rag"`
	// TopK is the default number of search hits to retrieve.
	TopK int `toml:"top_k"`
}

// Log configures structured logging output.
type Log struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`
}

// History configures the local conversation cache.
type History struct {
	// Enabled persists exchanges to a local sqlite database.
	Enabled bool `toml:"enabled"`
	// Path to the database file (empty = ~/.allma/history.db).
	Path string `toml:"path"`
	// MaxConversations prunes the oldest conversations past this count.
	MaxConversations int `toml:"max_conversations"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Backend: Backend{
			BaseURL:            "http://127.0.0.1:8000",
			TimeoutSecs:        30,
			ProbeTimeoutSecs:   3,
			HealthIntervalSecs: 30,
		},
		Chat: Chat{
			UseRAG: true,
			TopK:   5,
		},
		Log: Log{
			Level: "info",
		},
		History: History{
			Enabled:          true,
			MaxConversations: 100,
		},
	}
}

// SetDefaults fills in zero values after a partial file load.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs <= 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Backend.ProbeTimeoutSecs <= 0 {
		c.Backend.ProbeTimeoutSecs = d.Backend.ProbeTimeoutSecs
	}
	if c.Backend.HealthIntervalSecs <= 0 {
		c.Backend.HealthIntervalSecs = d.Backend.HealthIntervalSecs
	}
	if c.Chat.TopK <= 0 {
		c.Chat.TopK = d.Chat.TopK
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.History.MaxConversations <= 0 {
		c.History.MaxConversations = d.History.MaxConversations
	}
}

// =============================================================================
// PATHS
// =============================================================================

// Dir returns the allma configuration directory.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".allma"), nil
}

// Path returns the path to the TOML config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves the history database location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the default config file, applying env overrides, defaults, and
// validation. A missing file is not an error; defaults are used.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads a specific config file. A missing file yields defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides lets environment variables win over file values.
func (c *Config) ApplyEnvOverrides() {
	if base := os.Getenv("ALLMA_BASE_URL"); base != "" {
		c.Backend.BaseURL = base
	}
	if model := os.Getenv("ALLMA_MODEL"); model != "" {
		c.Chat.Model = model
	}
	if level := os.Getenv("ALLMA_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if rag := os.Getenv("ALLMA_USE_RAG"); rag != "" {
		if v, err := strconv.ParseBool(rag); err == nil {
			c.Chat.UseRAG = v
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", c.Backend.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url scheme %q must be http or https", u.Scheme)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// ProbeTimeout returns the probe timeout as a duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Backend.ProbeTimeoutSecs) * time.Second
}

// HealthInterval returns the monitor poll interval as a duration.
func (c *Config) HealthInterval() time.Duration {
	return time.Duration(c.Backend.HealthIntervalSecs) * time.Second
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML. The write is atomic and the
// file is created with 0600 permissions since it may hold private paths.
func SaveToPath(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# allma configuration file\n")
	buf.WriteString("# Generated by allma - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}
