package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/watchsieve/internal/config"
	"github.com/Aman-CERP/watchsieve/internal/engine"
	"github.com/Aman-CERP/watchsieve/internal/resolve"
)

// filterFlags are the filter options shared by check, ignores and watch.
type filterFlags struct {
	paths           []string
	filters         []string
	ignores         []string
	exts            []string
	noMeta          bool
	noDefaultIgnore bool
	noProjectIgnore bool
	noGlobalIgnore  bool
	noVCSIgnore     bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringArrayVarP(&f.paths, "path", "w", nil, "Path to watch (repeatable, default: current directory)")
	fs.StringArrayVarP(&f.filters, "filter", "f", nil, "Only pass paths matching this pattern (repeatable)")
	fs.StringArrayVarP(&f.ignores, "ignore", "i", nil, "Drop paths matching this pattern (repeatable)")
	fs.StringArrayVarP(&f.exts, "exts", "e", nil, "Comma-separated list of file extensions to pass")
	fs.BoolVar(&f.noMeta, "no-meta", false, "Drop metadata-only changes")
	fs.BoolVar(&f.noDefaultIgnore, "no-default-ignore", false, "Skip the built-in ignores (.git, swap files, ...)")
	fs.BoolVar(&f.noProjectIgnore, "no-project-ignore", false, "Skip ignore files found in the project")
	fs.BoolVar(&f.noGlobalIgnore, "no-global-ignore", false, "Skip global ignore files")
	fs.BoolVar(&f.noVCSIgnore, "no-vcs-ignore", false, "Skip VCS ignore files")
}

// options layers the flags over cfg. Paths given on the command line
// replace configured paths; patterns and extensions add to them; switches
// can only be turned on.
func (f *filterFlags) options(cfg *config.Config) engine.Options {
	paths := f.paths
	if len(paths) == 0 {
		paths = cfg.Watch.Paths
	}

	return engine.Options{
		Paths:           paths,
		Filters:         concat(cfg.Filter.Filters, f.filters),
		Ignores:         concat(cfg.Filter.Ignores, f.ignores),
		Extensions:      concat(cfg.Filter.Extensions, f.exts),
		NoMeta:          cfg.Filter.NoMeta || f.noMeta,
		NoDefaultIgnore: cfg.Filter.NoDefaultIgnore || f.noDefaultIgnore,
		Options: resolve.Options{
			NoProjectIgnore: cfg.Filter.NoProjectIgnore || f.noProjectIgnore,
			NoGlobalIgnore:  cfg.Filter.NoGlobalIgnore || f.noGlobalIgnore,
			NoVCSIgnore:     cfg.Filter.NoVCSIgnore || f.noVCSIgnore,
		},
	}
}

func concat(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
