package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/watchsieve/internal/engine"
	"github.com/Aman-CERP/watchsieve/internal/output"
)

func newIgnoresCmd() *cobra.Command {
	var (
		flags      filterFlags
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "ignores [flags]",
		Short: "List the ignore files the filter is built from",
		Long: `Resolve the project origin and print every ignore file that feeds the
filter, in the order its rules are applied.

Files that could not be discovered are reported as warnings; they do not
stop the filter from being built.`,
		Example: `  # Ignore files for the current project
  watchsieve ignores

  # What remains when global ignores are skipped
  watchsieve ignores --no-global-ignore --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIgnores(cmd.Context(), cmd, &flags, jsonOutput)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

type ignoresReport struct {
	Origin      string       `json:"origin"`
	Workdir     string       `json:"workdir"`
	Files       []ignoreFile `json:"files"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

type ignoreFile struct {
	Path      string `json:"path"`
	AppliesTo string `json:"applies_to"`
	AppliesIn string `json:"applies_in,omitempty"`
}

func runIgnores(ctx context.Context, cmd *cobra.Command, flags *filterFlags, jsonOutput bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := engine.New(ctx, flags.options(cfg))
	if err != nil {
		return err
	}
	defer eng.Close()

	state := eng.State()
	report := ignoresReport{
		Origin:  state.Origin,
		Workdir: state.Workdir,
		Files:   make([]ignoreFile, 0, len(state.IgnoreFiles)),
	}
	for _, f := range state.IgnoreFiles {
		report.Files = append(report.Files, ignoreFile{
			Path:      f.Path,
			AppliesTo: f.AppliesTo.String(),
			AppliesIn: f.AppliesIn,
		})
	}
	for _, d := range state.Diagnostics {
		report.Diagnostics = append(report.Diagnostics, d.Error())
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	out := output.New(cmd.OutOrStdout())
	out.Statusf("📁", "Origin:  %s", report.Origin)
	out.Statusf("📂", "Workdir: %s", report.Workdir)
	out.Newline()

	if len(report.Files) == 0 {
		out.Status("", "No ignore files found")
	} else {
		rows := make([][]string, 0, len(report.Files))
		for _, f := range report.Files {
			scope := f.AppliesIn
			if scope == "" {
				scope = "global"
			}
			rows = append(rows, []string{f.Path, f.AppliesTo, scope})
		}
		out.Table([]string{"PATH", "APPLIES TO", "SCOPE"}, rows)
	}

	if len(report.Diagnostics) > 0 {
		out.Newline()
		for _, d := range report.Diagnostics {
			out.Warning(d)
		}
	}

	return nil
}
