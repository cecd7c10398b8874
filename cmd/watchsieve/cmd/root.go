// Package cmd provides the CLI commands for watchsieve.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/watchsieve/internal/config"
	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/logging"
	"github.com/Aman-CERP/watchsieve/pkg/version"
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for watchsieve CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watchsieve",
		Short: "Decide which file-watch events matter",
		Long: `watchsieve turns ignore files, glob patterns and extension lists into a
single event filter, the way a file watcher decides whether a change
should trigger anything.

Rules come from .gitignore and the other VCS ignore files of the project,
global ignore files of the user, built-in defaults and the command line.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("watchsieve version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.watchsieve/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newIgnoresCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging installs the default logger. The level comes from the
// loaded configuration unless --debug is set.
func startLogging(cmd *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	cfg.Stderr = cmd.ErrOrStderr()
	if loaded, err := loadConfig(); err == nil {
		cfg.Level = loaded.Logging.Level
		cfg.MaxSizeMB = loaded.Logging.MaxSizeMB
		cfg.MaxFiles = loaded.Logging.MaxFiles
	}
	if debugMode {
		cfg.Level = "debug"
		cfg.FilePath = logging.DefaultLogPath()
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup

	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", cfg.FilePath),
			slog.String("version", version.Short()))
	}
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// loadConfig loads the layered configuration for the working directory.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, serrors.PathError(".", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, serrors.ConfigError("failed to load configuration", err).
			WithSuggestion("Run 'watchsieve config show --source project' to inspect the project file")
	}
	return cfg, nil
}

// Execute runs the root command and prints a failing command's error.
func Execute() error {
	root := NewRootCmd()
	cmd, err := root.ExecuteC()
	if err != nil {
		printError(root.ErrOrStderr(), cmd, err)
	}
	return err
}

// printError writes err for a terminal, or as one JSON object when the
// failing command was run with --json.
func printError(w io.Writer, cmd *cobra.Command, err error) {
	if cmd != nil {
		if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
			if data, jerr := serrors.FormatJSON(err); jerr == nil {
				_, _ = fmt.Fprintln(w, string(data))
				return
			}
		}
	}

	if se, ok := serrors.As(err); ok {
		_, _ = fmt.Fprint(w, serrors.FormatForCLI(se))
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode maps err to a process exit status: 2 for configuration and
// input problems, 1 for anything else.
func ExitCode(err error) int {
	switch serrors.GetCategory(err) {
	case serrors.CategoryConfig, serrors.CategoryValidation:
		return 2
	default:
		return 1
	}
}
