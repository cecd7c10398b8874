package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/watchsieve/internal/output"
	"github.com/Aman-CERP/watchsieve/pkg/version"
)

// versionReport is the --json form of the version command.
type versionReport struct {
	version.BuildInfo
	Modules []version.Module `json:"modules,omitempty"`
}

func newVersionCmd() *cobra.Command {
	var jsonOutput, short, modules bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the watchsieve build",
		Long: `Print the version, commit and build date of this binary.

With --modules the dependency versions it was compiled against are listed
too. The fsnotify and go-git versions decide how events are delivered and
how git config files are read, so include them when reporting a filtering
difference between two machines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, jsonOutput, short, modules)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output build info as JSON")
	cmd.Flags().BoolVar(&short, "short", false, "Output only the version number")
	cmd.Flags().BoolVar(&modules, "modules", false, "Also list the dependency versions")

	return cmd
}

func runVersion(cmd *cobra.Command, jsonOutput, short, modules bool) error {
	w := cmd.OutOrStdout()

	if short {
		_, err := fmt.Fprintln(w, version.Short())
		return err
	}

	report := versionReport{BuildInfo: version.GetInfo()}
	if modules {
		report.Modules = version.Modules()
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if _, err := fmt.Fprintln(w, version.String()); err != nil {
		return err
	}
	if !modules {
		return nil
	}

	out := output.New(w)
	out.Newline()
	if len(report.Modules) == 0 {
		out.Status("", "No module information in this build")
		return nil
	}
	rows := make([][]string, len(report.Modules))
	for i, m := range report.Modules {
		rows[i] = []string{m.Path, m.Version}
	}
	out.Table([]string{"MODULE", "VERSION"}, rows)
	return nil
}
