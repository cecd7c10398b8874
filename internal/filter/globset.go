package filter

import (
	"path/filepath"
	"strings"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/event"
	"github.com/Aman-CERP/watchsieve/internal/gitignore"
	"github.com/Aman-CERP/watchsieve/internal/ignorefile"
)

// GlobsetFilter matches event paths against compiled ignore patterns,
// include patterns and an extension allowlist.
type GlobsetFilter struct {
	origin  string
	ignores *gitignore.Matcher
	filters *gitignore.Matcher
	exts    map[string]struct{}
}

// NewGlobsetFilter compiles the patterns into a filter rooted at origin.
// Patterns without an anchor apply relative to origin. Order matters: the
// last matching pattern wins and "!" patterns re-include.
func NewGlobsetFilter(origin string, filters, ignores []ignorefile.Pattern, exts []string) (*GlobsetFilter, error) {
	f := &GlobsetFilter{
		origin:  filepath.Clean(origin),
		ignores: gitignore.New(),
	}

	if err := f.add(f.ignores, ignores); err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		f.filters = gitignore.New()
		if err := f.add(f.filters, filters); err != nil {
			return nil, err
		}
	}
	if len(exts) > 0 {
		f.exts = make(map[string]struct{}, len(exts))
		for _, e := range exts {
			f.exts[e] = struct{}{}
		}
	}

	return f, nil
}

func (f *GlobsetFilter) add(m *gitignore.Matcher, patterns []ignorefile.Pattern) error {
	for _, p := range patterns {
		base := p.Anchor
		if base == "" {
			base = f.origin
		}
		if err := m.AddPatternWithBase(p.Pattern, base); err != nil {
			return serrors.PatternError(p.Pattern, err).WithDetail("anchor", base)
		}
	}
	return nil
}

// Patterns returns the number of compiled patterns.
func (f *GlobsetFilter) Patterns() int {
	n := f.ignores.Len()
	if f.filters != nil {
		n += f.filters.Len()
	}
	return n
}

// PruneDir reports whether dir and everything below it is ignored. Include
// patterns and extensions are not consulted: a directory that matches no
// filter can still hold files that do.
func (f *GlobsetFilter) PruneDir(dir string) bool {
	if !filepath.IsAbs(dir) {
		return false
	}
	return f.ignores.MatchedPathOrParents(filepath.Clean(dir), true) == gitignore.Ignore
}

// Check implements Filterer. Every path of the event must pass; events
// without paths always pass.
func (f *GlobsetFilter) Check(ev event.Event) (bool, error) {
	for _, p := range ev.Paths() {
		ok, err := f.checkPath(p)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (f *GlobsetFilter) checkPath(p event.Path) (bool, error) {
	if !filepath.IsAbs(p.Path) {
		return false, serrors.New(serrors.ErrCodeEvaluationFailed, "event path is not absolute", nil).
			WithDetail("path", p.Path)
	}
	path := filepath.Clean(p.Path)
	isDir := p.IsDir()

	if f.ignores.MatchedPathOrParents(path, isDir) == gitignore.Ignore {
		return false, nil
	}

	if f.filters != nil && f.filters.MatchedPathOrParents(path, isDir) != gitignore.Ignore {
		return false, nil
	}

	if f.exts != nil && !isDir {
		ext := strings.TrimPrefix(filepath.Ext(path), ".")
		if _, ok := f.exts[ext]; !ok || ext == "" {
			return false, nil
		}
	}

	return true, nil
}
