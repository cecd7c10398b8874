package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points the user config at an empty directory and clears every
// WATCHSIEVE_* variable so the host environment cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	for _, name := range []string{
		"PATHS", "FILTER", "IGNORE", "EXTS", "POLL_INTERVAL", "EVENT_BUFFER",
		"LOG_LEVEL", "FORCE_POLLING", "NO_META", "NO_DEFAULT_IGNORE",
		"NO_PROJECT_IGNORE", "NO_GLOBAL_IGNORE", "NO_VCS_IGNORE",
	} {
		t.Setenv(EnvPrefix+name, "")
	}
	return xdg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Empty(t, cfg.Watch.Paths)
	assert.Equal(t, "2s", cfg.Watch.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.PollIntervalDuration())
	assert.False(t, cfg.Watch.ForcePolling)
	assert.Equal(t, 1000, cfg.Watch.EventBuffer)

	assert.Empty(t, cfg.Filter.Filters)
	assert.Empty(t, cfg.Filter.Ignores)
	assert.Empty(t, cfg.Filter.Extensions)
	assert.False(t, cfg.Filter.NoMeta)
	assert.False(t, cfg.Filter.NoDefaultIgnore)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logging.MaxFiles)

	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// Project config
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	// Given: a directory with no .watchsieve.yaml
	dir := t.TempDir()

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: defaults are returned without error
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	isolate(t)

	// Given: a project config
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), `
watch:
  paths: [src, tests]
  poll_interval: 500ms
  force_polling: true
filter:
  filter: ["*.go"]
  ignore: ["vendor/"]
  exts: ["go,mod"]
  no_meta: true
logging:
  level: debug
`)

	// When: loading configuration
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: file values win over defaults
	assert.Equal(t, []string{"src", "tests"}, cfg.Watch.Paths)
	assert.Equal(t, 500*time.Millisecond, cfg.PollIntervalDuration())
	assert.True(t, cfg.Watch.ForcePolling)
	assert.Equal(t, 1000, cfg.Watch.EventBuffer, "unset fields keep defaults")
	assert.Equal(t, []string{"*.go"}, cfg.Filter.Filters)
	assert.Equal(t, []string{"vendor/"}, cfg.Filter.Ignores)
	assert.Equal(t, []string{"go,mod"}, cfg.Filter.Extensions)
	assert.True(t, cfg.Filter.NoMeta)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yml"), "logging:\n  level: warn\n")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	isolate(t)

	// Given: both extensions exist
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), "logging:\n  level: error\n")
	writeFile(t, filepath.Join(dir, ".watchsieve.yml"), "logging:\n  level: warn\n")

	// Then: .yaml is used
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, ".watchsieve.yaml"), ProjectConfigPath(dir))
}

func TestLoad_InvalidYaml_ReturnsError(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), "watch: [unclosed\n")

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	isolate(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), "watch:\n  event_buffer: lots\n")

	_, err := Load(dir)
	require.Error(t, err)
}

// =============================================================================
// User config layering
// =============================================================================

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	xdg := isolate(t)

	assert.Equal(t, filepath.Join(xdg, "watchsieve", "config.yaml"), GetUserConfigPath())
	assert.Equal(t, filepath.Join(xdg, "watchsieve"), GetUserConfigDir())
}

func TestGetUserConfigPath_DefaultsToHomeConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".config", "watchsieve", "config.yaml"), GetUserConfigPath())
}

func TestUserConfigExists(t *testing.T) {
	isolate(t)
	assert.False(t, UserConfigExists())

	writeFile(t, GetUserConfigPath(), "version: 1\n")
	assert.True(t, UserConfigExists())
}

func TestLoadUserConfig_Missing_ReturnsNil(t *testing.T) {
	isolate(t)

	cfg, err := LoadUserConfig()
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_ProjectConfigLayersOverUserConfig(t *testing.T) {
	isolate(t)

	// Given: a user config and a project config
	writeFile(t, GetUserConfigPath(), `
watch:
  poll_interval: 5s
filter:
  ignore: ["*.log"]
  no_global_ignore: true
logging:
  level: warn
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), `
watch:
  poll_interval: 1s
filter:
  ignore: ["tmp/"]
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: scalars from the project win, lists accumulate and
	// switches set by the user stay set
	assert.Equal(t, "1s", cfg.Watch.PollInterval)
	assert.Equal(t, []string{"*.log", "tmp/"}, cfg.Filter.Ignores)
	assert.True(t, cfg.Filter.NoGlobalIgnore)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	isolate(t)

	writeFile(t, GetUserConfigPath(), "logging: [\n")

	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load user config")
}

// =============================================================================
// Environment overrides
// =============================================================================

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "pattern lists are comma separated",
			env: map[string]string{
				"WATCHSIEVE_FILTER": "*.go, *.mod",
				"WATCHSIEVE_IGNORE": "vendor/,,dist/",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"*.go", "*.mod"}, cfg.Filter.Filters)
				assert.Equal(t, []string{"vendor/", "dist/"}, cfg.Filter.Ignores)
			},
		},
		{
			name: "extensions are kept as one argument",
			env:  map[string]string{"WATCHSIEVE_EXTS": "rs,toml"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"rs,toml"}, cfg.Filter.Extensions)
			},
		},
		{
			name: "switches",
			env: map[string]string{
				"WATCHSIEVE_NO_META":           "true",
				"WATCHSIEVE_NO_DEFAULT_IGNORE": "1",
				"WATCHSIEVE_NO_PROJECT_IGNORE": "true",
				"WATCHSIEVE_NO_GLOBAL_IGNORE":  "TRUE",
				"WATCHSIEVE_NO_VCS_IGNORE":     "t",
				"WATCHSIEVE_FORCE_POLLING":     "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Filter.NoMeta)
				assert.True(t, cfg.Filter.NoDefaultIgnore)
				assert.True(t, cfg.Filter.NoProjectIgnore)
				assert.True(t, cfg.Filter.NoGlobalIgnore)
				assert.True(t, cfg.Filter.NoVCSIgnore)
				assert.True(t, cfg.Watch.ForcePolling)
			},
		},
		{
			name: "scalars",
			env: map[string]string{
				"WATCHSIEVE_LOG_LEVEL":     "debug",
				"WATCHSIEVE_POLL_INTERVAL": "250ms",
				"WATCHSIEVE_EVENT_BUFFER":  "64",
				"WATCHSIEVE_PATHS":         "a,b",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, 250*time.Millisecond, cfg.PollIntervalDuration())
				assert.Equal(t, 64, cfg.Watch.EventBuffer)
				assert.Equal(t, []string{"a", "b"}, cfg.Watch.Paths)
			},
		},
		{
			name: "empty values do not override",
			env:  map[string]string{"WATCHSIEVE_LOG_LEVEL": "   "},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load(t.TempDir())
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoad_EnvOverridesProjectConfig(t *testing.T) {
	isolate(t)

	// Given: a project config that switches meta events off
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".watchsieve.yaml"), "filter:\n  no_meta: true\n")

	// When: the environment switches it back on
	t.Setenv("WATCHSIEVE_NO_META", "false")

	// Then: the environment wins
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.False(t, cfg.Filter.NoMeta)
}

func TestLoad_InvalidEnvValue_ReturnsError(t *testing.T) {
	tests := []struct {
		name, key, value, want string
	}{
		{"bool", "WATCHSIEVE_NO_META", "maybe", "WATCHSIEVE_NO_META"},
		{"int", "WATCHSIEVE_EVENT_BUFFER", "big", "WATCHSIEVE_EVENT_BUFFER"},
		{"duration", "WATCHSIEVE_POLL_INTERVAL", "soon", "watch.poll_interval"},
		{"level", "WATCHSIEVE_LOG_LEVEL", "loud", "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load(t.TempDir())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"uppercase level", func(c *Config) { c.Logging.Level = "DEBUG" }, ""},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "max_size_mb"},
		{"negative files", func(c *Config) { c.Logging.MaxFiles = -1 }, "max_files"},
		{"zero interval", func(c *Config) { c.Watch.PollInterval = "0s" }, "must be positive"},
		{"negative buffer", func(c *Config) { c.Watch.EventBuffer = -1 }, "event_buffer"},
		{"empty filter", func(c *Config) { c.Filter.Filters = []string{" "} }, "filter.filter"},
		{"empty ignore", func(c *Config) { c.Filter.Ignores = []string{""} }, "filter.ignore"},
		{"empty extension", func(c *Config) { c.Filter.Extensions = []string{"go,,rs"} }, "filter.exts"},
		{"dot only extension", func(c *Config) { c.Filter.Extensions = []string{"."} }, "filter.exts"},
		{"dotted extensions", func(c *Config) { c.Filter.Extensions = []string{".go,.rs"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// Writing and upgrading
// =============================================================================

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)

	// Given: a customised config written as a project file
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Filter.Ignores = []string{"*.tmp"}
	cfg.Logging.Level = "debug"
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".watchsieve.yaml")))

	// When: loading it back
	loaded, err := Load(dir)
	require.NoError(t, err)

	// Then: the custom values survive
	assert.Equal(t, []string{"*.tmp"}, loaded.Filter.Ignores)
	assert.Equal(t, "debug", loaded.Logging.Level)
}

func TestMergeNewDefaults(t *testing.T) {
	// Given: an old config missing newer fields
	cfg := &Config{Logging: LoggingConfig{Level: "warn"}}

	// When: merging defaults
	added := cfg.MergeNewDefaults()

	// Then: missing fields are filled and existing ones are kept
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "2s", cfg.Watch.PollInterval)
	assert.ElementsMatch(t, []string{
		"version", "watch.poll_interval", "watch.event_buffer",
		"logging.max_size_mb", "logging.max_files",
	}, added)

	// And: a second merge adds nothing
	assert.Empty(t, cfg.MergeNewDefaults())
}
