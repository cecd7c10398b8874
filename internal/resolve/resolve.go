// Package resolve works out where a watch is rooted and which ignore files
// apply to it.
package resolve

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/ignorefile"
	"github.com/Aman-CERP/watchsieve/internal/project"
)

// Detector finds project roots and the project types of a directory.
type Detector interface {
	Origins(ctx context.Context, path string) ([]string, error)
	Types(ctx context.Context, dir string) []project.Type
}

// Discoverer finds ignore files in a project and in the user's environment.
type Discoverer interface {
	FromOrigin(ctx context.Context, dir string) ([]ignorefile.File, []error)
	FromEnvironment(ctx context.Context) ([]ignorefile.File, []error)
}

// Options turns off classes of ignore files.
type Options struct {
	// NoProjectIgnore drops files scoped to the origin or below it.
	NoProjectIgnore bool
	// NoGlobalIgnore drops files with no directory scope.
	NoGlobalIgnore bool
	// NoVCSIgnore drops files tied to a project type.
	NoVCSIgnore bool
}

// Resolver computes the project origin, working directory and applicable
// ignore files.
type Resolver struct {
	detector   Detector
	discoverer Discoverer
	getwd      func() (string, error)
}

// New creates a Resolver backed by the local filesystem.
func New() *Resolver {
	return NewWith(project.NewDetector(), ignorefile.NewDiscoverer())
}

// NewWith creates a Resolver with the given collaborators.
func NewWith(detector Detector, discoverer Discoverer) *Resolver {
	return &Resolver{
		detector:   detector,
		discoverer: discoverer,
		getwd:      os.Getwd,
	}
}

// Dirs canonicalizes paths and returns the project origin and the working
// directory. The origin is the longest common directory of every project
// root found for every path; with no paths it is the working directory.
func (r *Resolver) Dirs(ctx context.Context, paths []string) (origin, workdir string, err error) {
	var (
		mu      sync.Mutex
		origins = make(map[string]struct{})
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range paths {
		g.Go(func() error {
			canonical, err := canonicalize(p)
			if err != nil {
				return serrors.PathError(p, err)
			}
			found, err := r.detector.Origins(gctx, canonical)
			if err != nil {
				return serrors.PathError(p, err)
			}
			mu.Lock()
			for _, o := range found {
				origins[o] = struct{}{}
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	if err := ctx.Err(); err != nil {
		return "", "", err
	}

	roots := make([]string, 0, len(origins))
	for o := range origins {
		roots = append(roots, o)
	}
	sort.Strings(roots)
	slog.Debug("resolved all project origins", slog.Any("origins", roots))

	wd, err := r.getwd()
	if err != nil {
		return "", "", serrors.PathError(".", err)
	}
	workdir, err = canonicalize(wd)
	if err != nil {
		return "", "", serrors.PathError(wd, err)
	}

	origin = CommonPrefix(roots)
	if origin == "" {
		origin = workdir
	}
	slog.Debug("resolved common/project origin", slog.String("origin", origin))
	slog.Debug("resolved working directory", slog.String("workdir", workdir))

	return origin, workdir, nil
}

// Ignores returns the ignore files that apply to a project rooted at origin,
// project-local files first. Discovery problems do not stop resolution and
// are returned alongside the result.
func (r *Resolver) Ignores(ctx context.Context, origin string, opts Options) ([]ignorefile.File, []error) {
	var vcsTypes []project.Type
	for _, t := range r.detector.Types(ctx, origin) {
		if t.IsVCS() {
			vcsTypes = append(vcsTypes, t)
		}
	}
	slog.Debug("resolved vcs types", slog.Any("vcs_types", typeNames(vcsTypes)))

	ignores, errs := r.discoverer.FromOrigin(ctx, origin)
	logDiscoveryErrors(errs)
	slog.Debug("discovered ignore files from project origin", slog.Int("count", len(ignores)))

	skipGitGlobalExcludes := false
	if len(vcsTypes) > 0 {
		ignores = filterFiles(ignores, func(f ignorefile.File) bool {
			if !appliesToVCS(f, vcsTypes) {
				return false
			}
			if f.IsGitGlobalExcludes() {
				slog.Warn("project git config overrides the global excludes", slog.String("path", f.Path))
				skipGitGlobalExcludes = true
			}
			return true
		})
		slog.Debug("filtered ignores to only those for project vcs", slog.Int("count", len(ignores)))
	}

	globals, envErrs := r.discoverer.FromEnvironment(ctx)
	logDiscoveryErrors(envErrs)
	errs = append(errs, envErrs...)
	slog.Debug("discovered ignore files from environment", slog.Int("count", len(globals)))

	if skipGitGlobalExcludes {
		globals = filterFiles(globals, func(f ignorefile.File) bool {
			return !f.IsGitGlobalExcludes()
		})
		slog.Debug("filtered global ignores to exclude global git ignores", slog.Int("count", len(globals)))
	}

	if len(vcsTypes) > 0 {
		ignores = append(ignores, filterFiles(globals, func(f ignorefile.File) bool {
			return appliesToVCS(f, vcsTypes)
		})...)
		slog.Debug("combined and applied final filter over ignores", slog.Int("count", len(ignores)))
	}

	if opts.NoProjectIgnore {
		ignores = filterFiles(ignores, func(f ignorefile.File) bool {
			return f.AppliesIn == "" || !isWithin(f.AppliesIn, origin)
		})
		slog.Debug("filtered ignores to exclude project-local ignores", slog.Int("count", len(ignores)))
	}
	if opts.NoGlobalIgnore {
		ignores = filterFiles(ignores, func(f ignorefile.File) bool {
			return !f.IsGlobal()
		})
		slog.Debug("filtered ignores to exclude global ignores", slog.Int("count", len(ignores)))
	}
	if opts.NoVCSIgnore {
		ignores = filterFiles(ignores, func(f ignorefile.File) bool {
			return f.AppliesTo == project.None
		})
		slog.Debug("filtered ignores to exclude VCS-specific ignores", slog.Int("count", len(ignores)))
	}

	return ignores, errs
}

// CommonPrefix returns the longest directory that contains every path,
// comparing whole path components. It returns "" for no paths.
func CommonPrefix(paths []string) string {
	if len(paths) == 0 {
		return ""
	}

	prefix := splitPath(paths[0])
	for _, p := range paths[1:] {
		parts := splitPath(p)
		n := 0
		for n < len(prefix) && n < len(parts) && prefix[n] == parts[n] {
			n++
		}
		prefix = prefix[:n]
	}

	if len(prefix) == 0 {
		return ""
	}
	return filepath.Join(prefix...)
}

// splitPath splits a clean path into components, keeping the root as the
// first component of an absolute path.
func splitPath(p string) []string {
	p = filepath.Clean(p)
	var parts []string
	vol := filepath.VolumeName(p)
	rest := p[len(vol):]
	if strings.HasPrefix(rest, string(filepath.Separator)) {
		parts = append(parts, vol+string(filepath.Separator))
		rest = rest[1:]
	} else if vol != "" {
		parts = append(parts, vol)
	}
	for _, c := range strings.Split(rest, string(filepath.Separator)) {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return parts
}

// isWithin reports whether path is dir or lies below it.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// CanonicalPath makes p absolute and resolves symlinks the same way the
// origin and workdir are resolved, so event paths line up with pattern
// anchors. A path that is or links to a directory is resolved fully. For
// anything else only the parent is resolved and the last element is kept,
// so a symlinked file stays an event about the link. Elements that do not
// exist yet are kept as given below their nearest existing ancestor.
func CanonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return filepath.EvalSymlinks(abs)
	}

	dir, rest := filepath.Dir(abs), filepath.Base(abs)
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(resolved, rest), nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(dir), rest)
		dir = parent
	}
}

func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func appliesToVCS(f ignorefile.File, vcsTypes []project.Type) bool {
	if !f.AppliesTo.IsVCS() {
		return true
	}
	for _, t := range vcsTypes {
		if f.AppliesTo == t {
			return true
		}
	}
	return false
}

func filterFiles(files []ignorefile.File, keep func(ignorefile.File) bool) []ignorefile.File {
	out := make([]ignorefile.File, 0, len(files))
	for _, f := range files {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

func logDiscoveryErrors(errs []error) {
	for _, err := range errs {
		slog.Warn("ignore file discovery failed", serrors.LogAttrs(err)...)
	}
}

func typeNames(types []project.Type) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}
