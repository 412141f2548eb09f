/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for querysync.

The configuration system supports multiple sources with clear precedence:
 1. Command-line flags (highest priority)
 2. Environment variables
 3. Configuration file
 4. Default values (lowest priority)

Configuration File Format:
The configuration file is TOML with top-level keys only. Unknown keys are
ignored so newer files still load.

Example configuration file:

	# querysync configuration
	listen_addr = "127.0.0.1:8642"
	log_level = "info"
	log_json = false
	cache_enabled = true
	cache_entries = 512
	cache_ttl_secs = 300
	preview_db = "/var/lib/querysync/sample.db"
	preview_row_limit = 100
	preview_timeout_secs = 5
	history_file = "$HOME/.querysync_history"

The preview database is opened read-only. Leave preview_db empty to disable
result previews entirely.

Environment Variables:
  - QUERYSYNC_LISTEN_ADDR: HTTP API listen address
  - QUERYSYNC_LOG_LEVEL: Log level (debug, info, warn, error)
  - QUERYSYNC_LOG_JSON: Enable JSON logging (true/false)
  - QUERYSYNC_CACHE_ENABLED: Enable the parse cache (true/false)
  - QUERYSYNC_CACHE_ENTRIES: Maximum number of cached parse results
  - QUERYSYNC_CACHE_TTL_SECS: Parse cache entry lifetime in seconds
  - QUERYSYNC_PREVIEW_DB: SQLite database used for result previews
  - QUERYSYNC_PREVIEW_ROW_LIMIT: Maximum rows returned by a preview
  - QUERYSYNC_PREVIEW_TIMEOUT_SECS: Preview query timeout in seconds
  - QUERYSYNC_HISTORY_FILE: Shell history file
  - QUERYSYNC_CONFIG_FILE: Path to configuration file
*/
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// Environment variable names for configuration.
const (
	EnvListenAddr         = "QUERYSYNC_LISTEN_ADDR"
	EnvLogLevel           = "QUERYSYNC_LOG_LEVEL"
	EnvLogJSON            = "QUERYSYNC_LOG_JSON"
	EnvCacheEnabled       = "QUERYSYNC_CACHE_ENABLED"
	EnvCacheEntries       = "QUERYSYNC_CACHE_ENTRIES"
	EnvCacheTTLSecs       = "QUERYSYNC_CACHE_TTL_SECS"
	EnvPreviewDB          = "QUERYSYNC_PREVIEW_DB"
	EnvPreviewRowLimit    = "QUERYSYNC_PREVIEW_ROW_LIMIT"
	EnvPreviewTimeoutSecs = "QUERYSYNC_PREVIEW_TIMEOUT_SECS"
	EnvHistoryFile        = "QUERYSYNC_HISTORY_FILE"
	EnvConfigFile         = "QUERYSYNC_CONFIG_FILE"
)

// MaxPreviewRowLimit caps preview_row_limit.
const MaxPreviewRowLimit = 10000

// Default configuration file paths (searched in order).
var DefaultConfigPaths = []string{
	"/etc/querysync/querysync.conf",
	"$HOME/.config/querysync/querysync.conf",
	"./querysync.conf",
}

// envKeys maps environment variables to configuration keys.
var envKeys = []struct {
	env string
	key string
}{
	{EnvListenAddr, "listen_addr"},
	{EnvLogLevel, "log_level"},
	{EnvLogJSON, "log_json"},
	{EnvCacheEnabled, "cache_enabled"},
	{EnvCacheEntries, "cache_entries"},
	{EnvCacheTTLSecs, "cache_ttl_secs"},
	{EnvPreviewDB, "preview_db"},
	{EnvPreviewRowLimit, "preview_row_limit"},
	{EnvPreviewTimeoutSecs, "preview_timeout_secs"},
	{EnvHistoryFile, "history_file"},
}

// Config holds all configuration values for querysync.
type Config struct {
	// HTTP API
	ListenAddr string `json:"listen_addr"`

	// Logging
	LogLevel string `json:"log_level"`
	LogJSON  bool   `json:"log_json"`

	// Parse cache
	CacheEnabled bool `json:"cache_enabled"`
	CacheEntries int  `json:"cache_entries"`
	CacheTTLSecs int  `json:"cache_ttl_secs"`

	// Result preview
	PreviewDB          string `json:"preview_db"`
	PreviewRowLimit    int    `json:"preview_row_limit"`
	PreviewTimeoutSecs int    `json:"preview_timeout_secs"`

	// Interactive shell
	HistoryFile string `json:"history_file"`

	// Path of the file this configuration was loaded from
	ConfigFile string `json:"config_file,omitempty"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:         "127.0.0.1:8642",
		LogLevel:           "info",
		LogJSON:            false,
		CacheEnabled:       true,
		CacheEntries:       512,
		CacheTTLSecs:       300,
		PreviewDB:          "",
		PreviewRowLimit:    100,
		PreviewTimeoutSecs: 5,
		HistoryFile:        defaultHistoryFile(),
	}
}

func defaultHistoryFile() string {
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".querysync_history")
	}
	return ".querysync_history"
}

// CacheTTL returns the parse cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// PreviewTimeout returns the preview timeout as a duration.
func (c *Config) PreviewTimeout() time.Duration {
	return time.Duration(c.PreviewTimeoutSecs) * time.Second
}

// PreviewEnabled reports whether a preview database is configured.
func (c *Config) PreviewEnabled() bool {
	return strings.TrimSpace(c.PreviewDB) != ""
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex

	// Values from command-line flags, re-applied on reload
	overrides map[string]string

	// Callbacks for configuration changes
	onReload []func(*Config)
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{
		config:    DefaultConfig(),
		overrides: make(map[string]string),
		onReload:  make([]func(*Config), 0),
	}
}

var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// OnReload registers a callback to be called when configuration is reloaded.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

func (m *Manager) notifyReload() {
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.onReload))
	copy(callbacks, m.onReload)
	cfg := *m.config
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(&cfg)
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if _, port, err := net.SplitHostPort(c.ListenAddr); err != nil || port == "" {
		errs = append(errs, fmt.Sprintf("invalid listen_addr: %q (must be host:port)", c.ListenAddr))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if c.CacheEnabled && c.CacheEntries < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache_entries: %d (must be at least 1)", c.CacheEntries))
	}
	if c.CacheTTLSecs < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache_ttl_secs: %d (must not be negative)", c.CacheTTLSecs))
	}

	if c.PreviewRowLimit < 1 || c.PreviewRowLimit > MaxPreviewRowLimit {
		errs = append(errs, fmt.Sprintf("invalid preview_row_limit: %d (must be 1-%d)", c.PreviewRowLimit, MaxPreviewRowLimit))
	}
	if c.PreviewTimeoutSecs < 1 {
		errs = append(errs, fmt.Sprintf("invalid preview_timeout_secs: %d (must be at least 1)", c.PreviewTimeoutSecs))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadFromFile loads configuration from a TOML file on top of the defaults.
func (m *Manager) LoadFromFile(path string) error {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := decodeTOML(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv merges environment variables into the current configuration.
// Malformed values are reported and leave the previous value in place.
func (m *Manager) LoadFromEnv() error {
	cfg := m.Get()
	var errs []string
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := applyConfigValue(cfg, e.key, v); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", e.env, err))
		}
	}
	m.Set(cfg)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ApplyValues sets configuration keys from command-line flags. Keys use the
// configuration file names (listen_addr, preview_db, ...). The values are
// remembered and applied again by Reload.
func (m *Manager) ApplyValues(values map[string]string) error {
	cfg := m.Get()
	for key, value := range values {
		if !IsKnownKey(key) {
			return fmt.Errorf("unknown configuration key: %s", key)
		}
		if err := applyConfigValue(cfg, key, value); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.config = cfg
	for key, value := range values {
		m.overrides[key] = value
	}
	m.mu.Unlock()
	return nil
}

func (m *Manager) applyOverrides() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, value := range m.overrides {
		if err := applyConfigValue(m.config, key, value); err != nil {
			return err
		}
	}
	return nil
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables.
// An explicit path wins over the default search locations.
// Command-line flags should be applied after calling this function.
func (m *Manager) Load(path string) error {
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		if err := m.LoadFromFile(path); err != nil {
			return err
		}
	}
	return m.LoadFromEnv()
}

// Reload reloads configuration from file and environment, applies the
// command-line values again and notifies registered listeners.
func (m *Manager) Reload() error {
	configPath := m.Get().ConfigFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	m.Set(DefaultConfig())
	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}
	if err := m.LoadFromEnv(); err != nil {
		return err
	}
	if err := m.applyOverrides(); err != nil {
		return err
	}

	m.notifyReload()
	return nil
}

// fileConfig mirrors the configuration file. Nil fields were not set.
type fileConfig struct {
	ListenAddr         *string `toml:"listen_addr"`
	LogLevel           *string `toml:"log_level"`
	LogJSON            *bool   `toml:"log_json"`
	CacheEnabled       *bool   `toml:"cache_enabled"`
	CacheEntries       *int    `toml:"cache_entries"`
	CacheTTLSecs       *int    `toml:"cache_ttl_secs"`
	PreviewDB          *string `toml:"preview_db"`
	PreviewRowLimit    *int    `toml:"preview_row_limit"`
	PreviewTimeoutSecs *int    `toml:"preview_timeout_secs"`
	HistoryFile        *string `toml:"history_file"`
}

// decodeTOML applies the keys present in data on top of cfg.
func decodeTOML(data []byte, cfg *Config) error {
	var fc fileConfig
	if _, err := toml.Decode(string(data), &fc); err != nil {
		return err
	}

	if fc.ListenAddr != nil {
		cfg.ListenAddr = *fc.ListenAddr
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	if fc.LogJSON != nil {
		cfg.LogJSON = *fc.LogJSON
	}
	if fc.CacheEnabled != nil {
		cfg.CacheEnabled = *fc.CacheEnabled
	}
	if fc.CacheEntries != nil {
		cfg.CacheEntries = *fc.CacheEntries
	}
	if fc.CacheTTLSecs != nil {
		cfg.CacheTTLSecs = *fc.CacheTTLSecs
	}
	if fc.PreviewDB != nil {
		cfg.PreviewDB = os.ExpandEnv(*fc.PreviewDB)
	}
	if fc.PreviewRowLimit != nil {
		cfg.PreviewRowLimit = *fc.PreviewRowLimit
	}
	if fc.PreviewTimeoutSecs != nil {
		cfg.PreviewTimeoutSecs = *fc.PreviewTimeoutSecs
	}
	if fc.HistoryFile != nil {
		cfg.HistoryFile = os.ExpandEnv(*fc.HistoryFile)
	}
	return nil
}

var knownKeys = map[string]bool{
	"listen_addr": true, "log_level": true, "log_json": true,
	"cache_enabled": true, "cache_entries": true, "cache_ttl_secs": true,
	"preview_db": true, "preview_row_limit": true, "preview_timeout_secs": true,
	"history_file": true,
}

// IsKnownKey reports whether key is a configuration key.
func IsKnownKey(key string) bool {
	return knownKeys[key]
}

func parseBool(value string) bool {
	return strings.ToLower(value) == "true" || value == "1"
}

// applyConfigValue applies a key-value pair to the configuration.
func applyConfigValue(cfg *Config, key, value string) error {
	intValue := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value: %s", key, value)
		}
		return n, nil
	}

	switch key {
	case "listen_addr":
		cfg.ListenAddr = value
	case "log_level":
		cfg.LogLevel = value
	case "log_json":
		cfg.LogJSON = parseBool(value)
	case "cache_enabled":
		cfg.CacheEnabled = parseBool(value)
	case "cache_entries":
		n, err := intValue()
		if err != nil {
			return err
		}
		cfg.CacheEntries = n
	case "cache_ttl_secs":
		n, err := intValue()
		if err != nil {
			return err
		}
		cfg.CacheTTLSecs = n
	case "preview_db":
		cfg.PreviewDB = os.ExpandEnv(value)
	case "preview_row_limit":
		n, err := intValue()
		if err != nil {
			return err
		}
		cfg.PreviewRowLimit = n
	case "preview_timeout_secs":
		n, err := intValue()
		if err != nil {
			return err
		}
		cfg.PreviewTimeoutSecs = n
	case "history_file":
		cfg.HistoryFile = os.ExpandEnv(value)
	default:
		// Ignore unknown keys for forward compatibility
	}

	return nil
}

// String returns a string representation of the configuration.
func (c *Config) String() string {
	preview := "disabled"
	if c.PreviewEnabled() {
		preview = c.PreviewDB
	}

	var sb strings.Builder
	sb.WriteString("querysync configuration:\n")
	sb.WriteString(fmt.Sprintf("  Listen Address:  %s\n", c.ListenAddr))
	sb.WriteString(fmt.Sprintf("  Log Level:       %s\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("  Log JSON:        %v\n", c.LogJSON))
	sb.WriteString(fmt.Sprintf("  Parse Cache:     %v (%d entries, %ds TTL)\n", c.CacheEnabled, c.CacheEntries, c.CacheTTLSecs))
	sb.WriteString(fmt.Sprintf("  Preview DB:      %s\n", preview))
	sb.WriteString(fmt.Sprintf("  Preview Limits:  %d rows, %ds\n", c.PreviewRowLimit, c.PreviewTimeoutSecs))
	sb.WriteString(fmt.Sprintf("  History File:    %s\n", c.HistoryFile))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:     %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToTOML returns the configuration as a TOML string.
func (c *Config) ToTOML() string {
	var sb strings.Builder
	sb.WriteString("# querysync configuration file\n\n")
	sb.WriteString("# HTTP API\n")
	sb.WriteString(fmt.Sprintf("listen_addr = %q\n\n", c.ListenAddr))
	sb.WriteString("# Logging\n")
	sb.WriteString(fmt.Sprintf("log_level = %q\n", c.LogLevel))
	sb.WriteString(fmt.Sprintf("log_json = %v\n\n", c.LogJSON))
	sb.WriteString("# Parse cache\n")
	sb.WriteString(fmt.Sprintf("cache_enabled = %v\n", c.CacheEnabled))
	sb.WriteString(fmt.Sprintf("cache_entries = %d\n", c.CacheEntries))
	sb.WriteString(fmt.Sprintf("cache_ttl_secs = %d\n\n", c.CacheTTLSecs))
	sb.WriteString("# Result preview (empty preview_db disables previews)\n")
	sb.WriteString(fmt.Sprintf("preview_db = %q\n", c.PreviewDB))
	sb.WriteString(fmt.Sprintf("preview_row_limit = %d\n", c.PreviewRowLimit))
	sb.WriteString(fmt.Sprintf("preview_timeout_secs = %d\n\n", c.PreviewTimeoutSecs))
	sb.WriteString("# Interactive shell\n")
	sb.WriteString(fmt.Sprintf("history_file = %q\n", c.HistoryFile))
	return sb.String()
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	path = os.ExpandEnv(path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(c.ToTOML()), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
