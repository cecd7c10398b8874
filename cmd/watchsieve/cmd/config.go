package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/watchsieve/configs"
	"github.com/Aman-CERP/watchsieve/internal/config"
	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
		Long: `Manage the user and project configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/watchsieve/config.yaml)
  3. Project config (.watchsieve.yaml)
  4. Environment variables (WATCHSIEVE_*)
  5. Command line flags`,
		Example: `  # Create user config from template
  watchsieve config init

  # Create .watchsieve.yaml in the current directory
  watchsieve config init --project

  # Show effective configuration (merged from all sources)
  watchsieve config show

  # Print user config file path
  watchsieve config path

  # Undo the last 'config init --force'
  watchsieve config restore`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigBackupsCmd())
	cmd.AddCommand(newConfigRestoreCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force, project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file from a template",
		Long: `Create the user configuration file, or with --project the project file
.watchsieve.yaml in the current directory.

With --force an existing file is backed up, then rewritten with any new
default options added. Existing values are kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Upgrade an existing file with new defaults")
	cmd.Flags().BoolVar(&project, "project", false, "Create .watchsieve.yaml in the current directory")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Example: `  # Show merged configuration
  watchsieve config show

  # Show only the project file, as JSON
  watchsieve config show --source project --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := configTarget(project)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Print the project config path instead")

	return cmd
}

func newConfigBackupsCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "backups",
		Short: "List backups of the config file, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigBackups(cmd, project)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "List backups of the project config instead")

	return cmd
}

func newConfigRestoreCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "restore [BACKUP]",
		Short: "Restore the config file from a backup",
		Long: `Restore the config file from a backup. BACKUP is a number from
'watchsieve config backups' or a file path; without it the newest backup is
used. The current file is backed up first, so a restore can be undone.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigRestore(cmd, project, args)
		},
	}

	cmd.Flags().BoolVar(&project, "project", false, "Restore the project config instead")

	return cmd
}

// configTarget is the user config path, or with project the project file
// in the current directory.
func configTarget(project bool) (string, error) {
	if !project {
		return config.GetUserConfigPath(), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return projectConfigTarget(cwd), nil
}

// listBackups returns the backups of the chosen config file, newest first.
func listBackups(project bool) (string, []string, error) {
	if !project {
		backups, err := config.ListUserConfigBackups()
		return config.GetUserConfigPath(), backups, err
	}
	path, err := configTarget(true)
	if err != nil {
		return "", nil, err
	}
	backups, err := config.ListBackups(path)
	return path, backups, err
}

func runConfigBackups(cmd *cobra.Command, project bool) error {
	out := output.New(cmd.OutOrStdout())

	path, backups, err := listBackups(project)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		out.Statusf("📭", "No backups of %s", path)
		return nil
	}

	out.Statusf("📁", "Backups of %s", path)
	out.Newline()
	rows := make([][]string, len(backups))
	for i, b := range backups {
		modified := ""
		if info, err := os.Stat(b); err == nil {
			modified = info.ModTime().Format("2006-01-02 15:04:05")
		}
		rows[i] = []string{strconv.Itoa(i + 1), modified, b}
	}
	out.Table([]string{"#", "MODIFIED", "PATH"}, rows)
	return nil
}

func runConfigRestore(cmd *cobra.Command, project bool, args []string) error {
	out := output.New(cmd.OutOrStdout())

	path, backups, err := listBackups(project)
	if err != nil {
		return err
	}

	var backup string
	switch {
	case len(args) == 0:
		if len(backups) == 0 {
			return serrors.ValidationError("no backups to restore", nil).
				WithDetail("path", path).
				WithSuggestion("Backups are created by 'watchsieve config init --force'")
		}
		backup = backups[0]
	default:
		backup = args[0]
		if n, err := strconv.Atoi(args[0]); err == nil {
			if n < 1 || n > len(backups) {
				return serrors.ValidationError(fmt.Sprintf("no backup number %d", n), nil).
					WithSuggestion("Run 'watchsieve config backups' to list them")
			}
			backup = backups[n-1]
		}
	}

	if !project {
		err = config.RestoreUserConfig(backup)
	} else {
		err = config.RestoreFile(path, backup)
	}
	if err != nil {
		return err
	}

	out.Success("Configuration restored")
	out.Statusf("📁", "Location: %s", path)
	out.Statusf("💾", "From: %s", backup)
	return nil
}

// projectConfigTarget is the existing project file, or where a new one goes.
func projectConfigTarget(dir string) string {
	if p := config.ProjectConfigPath(dir); p != "" {
		return p
	}
	return filepath.Join(dir, ".watchsieve.yaml")
}

func runConfigInit(cmd *cobra.Command, force, project bool) error {
	out := output.New(cmd.OutOrStdout())

	configPath, err := configTarget(project)
	if err != nil {
		return err
	}
	template := configs.UserConfigTemplate
	if project {
		template = configs.ProjectConfigTemplate
	}

	if _, err := os.Stat(configPath); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Newline()
			out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(template), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out.Success("Created configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'watchsieve config show' to verify")

	return nil
}

// runConfigUpgrade backs up configPath, then rewrites it with new defaults.
func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.BackupFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}

	existing, err := readConfigFile(configPath)
	if err != nil {
		return err
	}

	newFields := existing.MergeNewDefaults()

	if err := existing.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	out.Newline()

	if len(newFields) > 0 {
		out.Status("✨", "New options added with defaults:")
		for _, field := range newFields {
			out.Statusf("", "  - %s", field)
		}
	} else {
		out.Status("✓", "Your configuration is already up to date")
	}

	return nil
}

// readConfigFile decodes a single file without defaults or layering.
func readConfigFile(path string) (*config.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := &config.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg        *config.Config
		sourceDesc string
		err        error
	)

	switch source {
	case "merged":
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		sourceDesc = "merged (defaults + user + project + env)"

	case "user":
		configPath := config.GetUserConfigPath()
		if !config.UserConfigExists() {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", configPath)
			out.Status("💡", "Run 'watchsieve config init' to create one")
			return nil
		}
		if cfg, err = readConfigFile(configPath); err != nil {
			return err
		}
		sourceDesc = fmt.Sprintf("user (%s)", configPath)

	case "project":
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		configPath := config.ProjectConfigPath(cwd)
		if configPath == "" {
			out.Warning("No project configuration file found")
			out.Statusf("📁", "Expected at: %s", filepath.Join(cwd, ".watchsieve.yaml"))
			out.Status("💡", "Run 'watchsieve config init --project' to create one")
			return nil
		}
		if cfg, err = readConfigFile(configPath); err != nil {
			return err
		}
		sourceDesc = fmt.Sprintf("project (%s)", configPath)

	case "defaults":
		cfg = config.NewConfig()
		sourceDesc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid source: %s (use: merged, user, project, defaults)", source)
	}

	if jsonOutput {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	out.Statusf("📋", "Configuration source: %s", sourceDesc)
	out.Newline()

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}
