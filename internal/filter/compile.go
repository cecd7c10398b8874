package filter

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/watchsieve/internal/ignorefile"
)

// DefaultIgnores are OS sidecar files, bytecode caches, editor swap files
// and VCS metadata directories. They match at any depth under the origin.
var DefaultIgnores = []string{
	"**/.DS_Store",
	"*.py[co]",
	`\#*#`,
	".#*",
	".*.kate-swp",
	".*.sw?",
	".*.sw?x",
	"**/.git/**",
	"**/.hg/**",
	"**/.svn/**",
}

// Params are the inputs of Compile.
type Params struct {
	// Origin anchors default and global patterns.
	Origin string
	// Workdir anchors Filters and Ignores.
	Workdir string
	// IgnoreFiles are loaded in order; later files take precedence.
	IgnoreFiles []ignorefile.File
	// Filters are include patterns. When present, a path must match one.
	Filters []string
	// Ignores are exclude patterns applied after every ignore file.
	Ignores []string
	// Extensions restrict files to these extensions, without dots.
	Extensions []string
	// NoDefaultIgnore skips DefaultIgnores.
	NoDefaultIgnore bool
	// NoMeta rejects metadata-only changes.
	NoMeta bool
	// Loader reads ignore files. A nil Loader uses a fresh one.
	Loader *ignorefile.Loader
}

// Compile builds the Sieve described by p. It fails if an ignore file cannot
// be read or any pattern does not parse.
func Compile(ctx context.Context, p Params) (*Sieve, error) {
	loader := p.Loader
	if loader == nil {
		loader = ignorefile.NewLoader(0)
	}

	var ignores []ignorefile.Pattern
	if !p.NoDefaultIgnore {
		for _, d := range DefaultIgnores {
			ignores = append(ignores, ignorefile.Pattern{Pattern: d})
		}
	}

	loaded, err := loader.LoadAll(ctx, p.IgnoreFiles)
	if err != nil {
		return nil, err
	}
	for _, patterns := range loaded {
		ignores = append(ignores, patterns...)
	}

	filters := make([]ignorefile.Pattern, 0, len(p.Filters))
	for _, f := range p.Filters {
		filters = append(filters, ignorefile.Pattern{Pattern: f, Anchor: p.Workdir})
	}
	for _, i := range p.Ignores {
		ignores = append(ignores, ignorefile.Pattern{Pattern: i, Anchor: p.Workdir})
	}

	exts := ParseExtensions(p.Extensions...)

	slog.Debug("compiling filter",
		slog.String("origin", p.Origin),
		slog.Int("ignore_files", len(p.IgnoreFiles)),
		slog.Int("filters", len(filters)),
		slog.Int("ignores", len(ignores)),
		slog.Int("extensions", len(exts)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matcher, err := NewGlobsetFilter(p.Origin, filters, ignores, exts)
	if err != nil {
		return nil, err
	}
	slog.Debug("filter compiled", slog.Int("patterns", matcher.Patterns()))

	return NewSieve(matcher, p.NoMeta), nil
}
