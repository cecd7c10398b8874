package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// MaxBackups is the maximum number of backups kept per config file
	MaxBackups = 3

	// BackupSuffix is the file extension for backup files
	BackupSuffix = ".bak"
)

// BackupUserConfig creates a timestamped backup of the user config file.
// If no user config exists, returns empty string and nil error.
func BackupUserConfig() (string, error) {
	return BackupFile(GetUserConfigPath())
}

// ListUserConfigBackups returns all backups of the user config, newest first.
func ListUserConfigBackups() ([]string, error) {
	return ListBackups(GetUserConfigPath())
}

// BackupFile copies path to path.bak.<timestamp> and prunes older backups
// beyond MaxBackups. A missing file is not an error and yields "".
func BackupFile(path string) (string, error) {
	if !fileExists(path) {
		return "", nil
	}

	timestamp := time.Now().Format("20060102-150405")
	backupPath := fmt.Sprintf("%s%s.%s", path, BackupSuffix, timestamp)
	for i := 1; fileExists(backupPath); i++ {
		backupPath = fmt.Sprintf("%s%s.%s-%d", path, BackupSuffix, timestamp, i)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config for backup: %w", err)
	}

	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	// Best effort: the backup itself succeeded
	if err := cleanupOldBackups(path); err != nil {
		slog.Warn("failed to prune config backups", slog.String("path", path), slog.String("error", err.Error()))
	}

	return backupPath, nil
}

// ListBackups returns all backup files for path, sorted by modification
// time (newest first).
func ListBackups(path string) ([]string, error) {
	dir := filepath.Dir(path)
	prefix := filepath.Base(path) + BackupSuffix + "."

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list config directory: %w", err)
	}

	type backup struct {
		path string
		mod  time.Time
	}
	var found []backup
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, backup{filepath.Join(dir, entry.Name()), info.ModTime()})
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].mod.After(found[j].mod)
	})

	backups := make([]string, len(found))
	for i, b := range found {
		backups[i] = b.path
	}
	return backups, nil
}

// cleanupOldBackups removes backups beyond MaxBackups, keeping the newest.
func cleanupOldBackups(path string) error {
	backups, err := ListBackups(path)
	if err != nil {
		return err
	}
	if len(backups) <= MaxBackups {
		return nil
	}

	for _, b := range backups[MaxBackups:] {
		if err := os.Remove(b); err != nil {
			continue
		}
	}
	return nil
}

// RestoreUserConfig restores the user config from a backup file.
// The current config (if any) is backed up before restore.
func RestoreUserConfig(backupPath string) error {
	return RestoreFile(GetUserConfigPath(), backupPath)
}

// RestoreFile replaces path with the contents of backupPath. The backup is
// read before the current file is backed up, so pruning cannot remove it
// first.
func RestoreFile(path, backupPath string) error {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if _, err := BackupFile(path); err != nil {
		return fmt.Errorf("failed to backup current config before restore: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write restored config: %w", err)
	}

	return nil
}
