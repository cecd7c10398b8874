package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	assert.Equal(t, "watchsieve.log", filepath.Base(path))
	assert.Equal(t, "logs", filepath.Base(DefaultLogDir()))
	assert.Contains(t, DefaultLogDir(), ".watchsieve")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Empty(t, cfg.FilePath, "default logging is stderr only")
	assert.Equal(t, 10, cfg.MaxSizeMB)
	assert.Equal(t, 5, cfg.MaxFiles)
	assert.True(t, cfg.WriteToStderr)
}

func TestDebugConfig(t *testing.T) {
	cfg := DebugConfig()

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, DefaultLogPath(), cfg.FilePath)
}

func TestSetup_StderrOnly(t *testing.T) {
	// Given: a non-terminal stderr
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Stderr = &buf

	// When: logging below and at the level
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	defer cleanup()
	logger.Debug("hidden")
	logger.Info("compiling filter", slog.Int("patterns", 3))

	// Then: one JSON record is written
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "compiling filter", rec["msg"])
	assert.EqualValues(t, 3, rec["patterns"])
}

func TestSetup_FileAndStderr(t *testing.T) {
	// Given: a log file plus stderr
	logPath := filepath.Join(t.TempDir(), "nested", "test.log")
	var buf bytes.Buffer
	cfg := Config{
		Level:         "debug",
		FilePath:      logPath,
		MaxSizeMB:     1,
		MaxFiles:      3,
		WriteToStderr: true,
		Stderr:        &buf,
	}

	// When: logging with attributes
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.With(slog.String("origin", "/proj")).Debug("resolved vcs types")
	cleanup()

	// Then: both outputs carry the record
	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"origin":"/proj"`)
	assert.Contains(t, buf.String(), "resolved vcs types")
}

func TestSetup_FileOnly(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "file.log")
	var buf bytes.Buffer
	cfg := Config{Level: "warn", FilePath: logPath, Stderr: &buf}

	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept")
	cleanup()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
	assert.Empty(t, buf.String())
}

func TestSetup_GroupsReachEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	tee := teeHandler{
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}

	logger := slog.New(tee).WithGroup("filter")
	logger.Info("check", slog.Bool("pass", true))
	logger.Error("evaluation failed")

	assert.Contains(t, a.String(), `"filter":{"pass":true}`)
	assert.NotContains(t, b.String(), "check")
	assert.Contains(t, b.String(), "evaluation failed")
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LevelFromString(tc.input))
		})
	}
}

func TestEnsureLogDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "x.log")

	require.NoError(t, EnsureLogDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
