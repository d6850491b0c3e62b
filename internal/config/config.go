// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for flashquery.
//
// Configuration is read from ~/.flashquery/config.toml when present, filled
// in with built-in defaults, and finally overridden by FLASHQUERY_*
// environment variables. Those variables may also come from .env files
// loaded with LoadDotEnv.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete flashquery configuration.
type Config struct {
	Backend  BackendConfig  `toml:"backend"`
	Storage  StorageConfig  `toml:"storage"`
	Dispatch DispatchConfig `toml:"dispatch"`
	UI       UIConfig       `toml:"ui"`
	Context  ContextConfig  `toml:"context"`
	Log      LogConfig      `toml:"log"`
}

// BackendConfig describes the remote inference service.
type BackendConfig struct {
	// BaseURL is the FlashQuery backend address (default: http://127.0.0.1:8000)
	BaseURL string `toml:"base_url"`

	// TimeoutSecs bounds a single request, including reading the body
	TimeoutSecs int `toml:"timeout_secs"`

	// RequestsPerMinute throttles outbound requests (0 = unlimited)
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// StorageConfig selects the local key-value backend.
type StorageConfig struct {
	// Backend is one of "file", "bolt", "sqlite" or "memory"
	Backend string `toml:"backend"`

	// DataDir holds history blobs and the log file (default: ~/.flashquery)
	DataDir string `toml:"data_dir"`
}

// DispatchConfig tunes the request dispatcher.
type DispatchConfig struct {
	// MinDelayMs is the minimum time before a reply is shown. Cosmetic only.
	MinDelayMs int `toml:"min_delay_ms"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	TitleMaxRunes int `toml:"title_max_runes"`
	SidebarWidth  int `toml:"sidebar_width"`
}

// ContextConfig points at an optional file whose text is attached to every
// question as document context.
type ContextConfig struct {
	File  string `toml:"file"`
	Watch bool   `toml:"watch"`
}

// LogConfig controls the diagnostic log file.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Storage backend names.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:           "http://127.0.0.1:8000",
			TimeoutSecs:       120,
			RequestsPerMinute: 0,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
		},
		Dispatch: DispatchConfig{
			MinDelayMs: 400,
		},
		UI: UIConfig{
			TitleMaxRunes: 40,
			SidebarWidth:  32,
		},
		Context: ContextConfig{
			Watch: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Timeout returns the backend request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// MinDelay returns the dispatcher's cosmetic minimum delay.
func (c *Config) MinDelay() time.Duration {
	return time.Duration(c.Dispatch.MinDelayMs) * time.Millisecond
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the flashquery configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".flashquery"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ResolveDataDir returns the data directory, defaulting to ConfigDir.
func (c *Config) ResolveDataDir() (string, error) {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir, nil
	}
	return ConfigDir()
}

// ResolveLogFile returns the log file path, defaulting to DataDir/flashquery.log.
func (c *Config) ResolveLogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "flashquery.log"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the default config file if it exists, then applies env
// overrides, defaults and validation. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode TOML file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path as TOML with 0600 permissions.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	fmt.Fprintln(file, "# flashquery configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Backend.TimeoutSecs == 0 {
		c.Backend.TimeoutSecs = d.Backend.TimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	if c.UI.TitleMaxRunes == 0 {
		c.UI.TitleMaxRunes = d.UI.TitleMaxRunes
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// DotEnvPaths returns the .env files LoadDotEnv reads by default: the one
// in the working directory, then the one in ConfigDir.
func DotEnvPaths() []string {
	paths := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ".env"))
	}
	return paths
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Variables already set are never replaced, so the first file
// to define a name wins over later ones. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies FLASHQUERY_* environment variables.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("FLASHQUERY_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("FLASHQUERY_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("FLASHQUERY_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FLASHQUERY_CONTEXT_FILE"); v != "" {
		c.Context.File = v
	}
	if v := os.Getenv("FLASHQUERY_LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns ValidateErrors when any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{"backend.base_url", "must be an http(s) URL with a host"})
	}
	if c.Backend.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{"backend.timeout_secs", "must not be negative"})
	}
	if c.Backend.RequestsPerMinute < 0 {
		errs = append(errs, ValidationError{"backend.requests_per_minute", "must not be negative"})
	}

	switch c.Storage.Backend {
	case BackendFile, BackendBolt, BackendSQLite, BackendMemory:
	default:
		errs = append(errs, ValidationError{"storage.backend", "must be one of file, bolt, sqlite, memory"})
	}

	if c.Dispatch.MinDelayMs < 0 {
		errs = append(errs, ValidationError{"dispatch.min_delay_ms", "must not be negative"})
	}
	if c.UI.TitleMaxRunes < 0 {
		errs = append(errs, ValidationError{"ui.title_max_runes", "must not be negative"})
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{"log.level", "must be one of debug, info, warn, error"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns the string form of a config value addressed by dot notation,
// e.g. "backend.base_url".
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "backend.base_url":
		return c.Backend.BaseURL, nil
	case "backend.timeout_secs":
		return strconv.Itoa(c.Backend.TimeoutSecs), nil
	case "backend.requests_per_minute":
		return strconv.Itoa(c.Backend.RequestsPerMinute), nil
	case "storage.backend":
		return c.Storage.Backend, nil
	case "storage.data_dir":
		return c.Storage.DataDir, nil
	case "dispatch.min_delay_ms":
		return strconv.Itoa(c.Dispatch.MinDelayMs), nil
	case "ui.title_max_runes":
		return strconv.Itoa(c.UI.TitleMaxRunes), nil
	case "ui.sidebar_width":
		return strconv.Itoa(c.UI.SidebarWidth), nil
	case "context.file":
		return c.Context.File, nil
	case "context.watch":
		return strconv.FormatBool(c.Context.Watch), nil
	case "log.level":
		return c.Log.Level, nil
	case "log.file":
		return c.Log.File, nil
	}
	return "", fmt.Errorf("unknown config key: %s", key)
}

// Set assigns a config value addressed by dot notation. The result is not
// validated; call Validate before saving.
func (c *Config) Set(key, value string) error {
	atoi := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("%s expects an integer: %w", key, err)
		}
		return n, nil
	}

	var err error
	switch key {
	case "backend.base_url":
		c.Backend.BaseURL = value
	case "backend.timeout_secs":
		c.Backend.TimeoutSecs, err = atoi()
	case "backend.requests_per_minute":
		c.Backend.RequestsPerMinute, err = atoi()
	case "storage.backend":
		c.Storage.Backend = strings.ToLower(value)
	case "storage.data_dir":
		c.Storage.DataDir = value
	case "dispatch.min_delay_ms":
		c.Dispatch.MinDelayMs, err = atoi()
	case "ui.title_max_runes":
		c.UI.TitleMaxRunes, err = atoi()
	case "ui.sidebar_width":
		c.UI.SidebarWidth, err = atoi()
	case "context.file":
		c.Context.File = value
	case "context.watch":
		c.Context.Watch, err = strconv.ParseBool(value)
	case "log.level":
		c.Log.Level = strings.ToLower(value)
	case "log.file":
		c.Log.File = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return err
}

// Keys lists every key accepted by Get and Set, sorted.
func Keys() []string {
	keys := []string{
		"backend.base_url", "backend.timeout_secs", "backend.requests_per_minute",
		"storage.backend", "storage.data_dir",
		"dispatch.min_delay_ms",
		"ui.title_max_runes", "ui.sidebar_width",
		"context.file", "context.watch",
		"log.level", "log.file",
	}
	sort.Strings(keys)
	return keys
}
