// Package config loads watchsieve settings from defaults, the user config,
// the project config and WATCHSIEVE_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WATCHSIEVE_"

// Config represents the complete watchsieve configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Watch   WatchConfig   `yaml:"watch" json:"watch"`
	Filter  FilterConfig  `yaml:"filter" json:"filter"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// WatchConfig configures what is watched and how.
type WatchConfig struct {
	// Paths are the roots to watch. Empty means the working directory.
	Paths []string `yaml:"paths" json:"paths"`
	// PollInterval is used when fsnotify is unavailable (e.g. "2s").
	PollInterval string `yaml:"poll_interval" json:"poll_interval"`
	// ForcePolling skips fsnotify entirely.
	ForcePolling bool `yaml:"force_polling" json:"force_polling"`
	// EventBuffer is the size of the accepted-event buffer.
	EventBuffer int `yaml:"event_buffer" json:"event_buffer"`
}

// FilterConfig configures which events pass.
type FilterConfig struct {
	// Filters are include patterns, relative to the working directory.
	Filters []string `yaml:"filter" json:"filter"`
	// Ignores are exclude patterns, relative to the working directory.
	Ignores []string `yaml:"ignore" json:"ignore"`
	// Extensions is an allowlist of file extensions, without dots.
	Extensions []string `yaml:"exts" json:"exts"`

	NoMeta          bool `yaml:"no_meta" json:"no_meta"`
	NoDefaultIgnore bool `yaml:"no_default_ignore" json:"no_default_ignore"`
	NoProjectIgnore bool `yaml:"no_project_ignore" json:"no_project_ignore"`
	NoGlobalIgnore  bool `yaml:"no_global_ignore" json:"no_global_ignore"`
	NoVCSIgnore     bool `yaml:"no_vcs_ignore" json:"no_vcs_ignore"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// MaxSizeMB is the log file size that triggers rotation.
	MaxSizeMB int `yaml:"max_size_mb" json:"max_size_mb"`
	// MaxFiles is the number of rotated files kept.
	MaxFiles int `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Watch: WatchConfig{
			PollInterval: "2s",
			EventBuffer:  1000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/watchsieve/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/watchsieve/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "watchsieve", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback - should rarely happen
		return filepath.Join(os.TempDir(), ".config", "watchsieve", "config.yaml")
	}
	return filepath.Join(home, ".config", "watchsieve", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// ProjectConfigPath returns the project config file in dir, preferring
// .watchsieve.yaml over .watchsieve.yml. It returns "" when neither exists.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".watchsieve.yaml", ".watchsieve.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

// LoadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration for the project in dir.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/watchsieve/config.yaml)
//  3. Project config (.watchsieve.yaml in dir)
//  4. Environment variables (WATCHSIEVE_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := LoadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if p := ProjectConfigPath(dir); p != "" {
		if err := cfg.loadYAML(p); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c. Pattern lists are
// appended so project patterns add to user patterns. Booleans can only be
// switched on: false is indistinguishable from unset.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Watch
	if len(other.Watch.Paths) > 0 {
		c.Watch.Paths = other.Watch.Paths
	}
	if other.Watch.PollInterval != "" {
		c.Watch.PollInterval = other.Watch.PollInterval
	}
	if other.Watch.ForcePolling {
		c.Watch.ForcePolling = true
	}
	if other.Watch.EventBuffer != 0 {
		c.Watch.EventBuffer = other.Watch.EventBuffer
	}

	// Filter
	c.Filter.Filters = append(c.Filter.Filters, other.Filter.Filters...)
	c.Filter.Ignores = append(c.Filter.Ignores, other.Filter.Ignores...)
	c.Filter.Extensions = append(c.Filter.Extensions, other.Filter.Extensions...)
	c.Filter.NoMeta = c.Filter.NoMeta || other.Filter.NoMeta
	c.Filter.NoDefaultIgnore = c.Filter.NoDefaultIgnore || other.Filter.NoDefaultIgnore
	c.Filter.NoProjectIgnore = c.Filter.NoProjectIgnore || other.Filter.NoProjectIgnore
	c.Filter.NoGlobalIgnore = c.Filter.NoGlobalIgnore || other.Filter.NoGlobalIgnore
	c.Filter.NoVCSIgnore = c.Filter.NoVCSIgnore || other.Filter.NoVCSIgnore

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies WATCHSIEVE_* environment variable overrides.
// List variables are comma separated and replace earlier values. Boolean
// variables accept anything strconv.ParseBool does, so they can also
// switch a setting off.
func (c *Config) applyEnvOverrides() error {
	if v, ok := lookupEnv("PATHS"); ok {
		c.Watch.Paths = splitList(v)
	}
	if v, ok := lookupEnv("FILTER"); ok {
		c.Filter.Filters = splitList(v)
	}
	if v, ok := lookupEnv("IGNORE"); ok {
		c.Filter.Ignores = splitList(v)
	}
	if v, ok := lookupEnv("EXTS"); ok {
		c.Filter.Extensions = []string{v}
	}
	if v, ok := lookupEnv("POLL_INTERVAL"); ok {
		c.Watch.PollInterval = v
	}
	if v, ok := lookupEnv("EVENT_BUFFER"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sEVENT_BUFFER: %w", EnvPrefix, err)
		}
		c.Watch.EventBuffer = n
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}

	bools := []struct {
		name string
		dst  *bool
	}{
		{"FORCE_POLLING", &c.Watch.ForcePolling},
		{"NO_META", &c.Filter.NoMeta},
		{"NO_DEFAULT_IGNORE", &c.Filter.NoDefaultIgnore},
		{"NO_PROJECT_IGNORE", &c.Filter.NoProjectIgnore},
		{"NO_GLOBAL_IGNORE", &c.Filter.NoGlobalIgnore},
		{"NO_VCS_IGNORE", &c.Filter.NoVCSIgnore},
	}
	for _, b := range bools {
		v, ok := lookupEnv(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err)
		}
		*b.dst = parsed
	}

	return nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// splitList splits a comma separated value, dropping blank items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// PollIntervalDuration parses Watch.PollInterval. Call Validate first.
func (c *Config) PollIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.PollInterval)
	if err != nil {
		return 0
	}
	return d
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 {
		return fmt.Errorf("logging.max_size_mb must be non-negative, got %d", c.Logging.MaxSizeMB)
	}
	if c.Logging.MaxFiles < 0 {
		return fmt.Errorf("logging.max_files must be non-negative, got %d", c.Logging.MaxFiles)
	}

	if c.Watch.PollInterval != "" {
		d, err := time.ParseDuration(c.Watch.PollInterval)
		if err != nil {
			return fmt.Errorf("watch.poll_interval: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("watch.poll_interval must be positive, got %s", c.Watch.PollInterval)
		}
	}
	if c.Watch.EventBuffer < 0 {
		return fmt.Errorf("watch.event_buffer must be non-negative, got %d", c.Watch.EventBuffer)
	}

	for _, p := range c.Filter.Filters {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("filter.filter contains an empty pattern")
		}
	}
	for _, p := range c.Filter.Ignores {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("filter.ignore contains an empty pattern")
		}
	}
	for _, e := range c.Filter.Extensions {
		for _, item := range strings.Split(e, ",") {
			if strings.TrimPrefix(strings.TrimSpace(item), ".") == "" {
				return fmt.Errorf("filter.exts contains an empty extension in %q", e)
			}
		}
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeNewDefaults adds new default fields while preserving existing values.
// Returns a list of field names that were added with their default values.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Version == 0 {
		c.Version = defaults.Version
		added = append(added, "version")
	}
	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = defaults.Watch.PollInterval
		added = append(added, "watch.poll_interval")
	}
	if c.Watch.EventBuffer == 0 {
		c.Watch.EventBuffer = defaults.Watch.EventBuffer
		added = append(added, "watch.event_buffer")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
		added = append(added, "logging.level")
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = defaults.Logging.MaxSizeMB
		added = append(added, "logging.max_size_mb")
	}
	if c.Logging.MaxFiles == 0 {
		c.Logging.MaxFiles = defaults.Logging.MaxFiles
		added = append(added, "logging.max_files")
	}

	return added
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
