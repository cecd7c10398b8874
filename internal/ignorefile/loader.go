package ignorefile

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/gitignore"
	"github.com/Aman-CERP/watchsieve/internal/project"
)

// DefaultCacheSize is the number of parsed ignore files a Loader keeps.
const DefaultCacheSize = 256

// maxConcurrentLoads bounds the number of files read at once by LoadAll.
const maxConcurrentLoads = 8

type cachedFile struct {
	size     int64
	modTime  time.Time
	patterns []string
}

// Loader reads ignore files into anchored patterns. Parsed contents are
// cached by path and reused while the file's size and mtime are unchanged.
type Loader struct {
	cache *lru.Cache[string, cachedFile]
}

// NewLoader creates a Loader caching up to size files. A non-positive size
// uses DefaultCacheSize.
func NewLoader(size int) *Loader {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedFile](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &Loader{cache: cache}
}

// Load reads one ignore file. A file that no longer exists yields no
// patterns and no error. Patterns are anchored at f.AppliesIn, or at
// nothing for global files.
func (l *Loader) Load(ctx context.Context, f File) ([]Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("ignore file vanished", slog.String("path", f.Path))
			l.cache.Remove(f.Path)
			return nil, nil
		}
		return nil, serrors.New(serrors.ErrCodeIgnoreRead, "cannot stat ignore file", err).
			WithDetail("path", f.Path)
	}

	cached, ok := l.cache.Get(f.Path)
	if ok && cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return anchor(cached.patterns, f.AppliesIn), nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, serrors.New(serrors.ErrCodeIgnoreRead, "cannot read ignore file", err).
			WithDetail("path", f.Path)
	}

	patterns := gitignore.ParsePatterns(string(data))
	if f.AppliesTo == project.Mercurial {
		patterns = dropSyntaxLines(patterns)
	}

	if ok {
		added, removed := gitignore.DiffPatterns(cached.patterns, patterns)
		if len(added) > 0 || len(removed) > 0 {
			slog.Debug("ignore file changed",
				slog.String("path", f.Path),
				slog.Int("added", len(added)),
				slog.Int("removed", len(removed)))
		}
	}

	l.cache.Add(f.Path, cachedFile{size: info.Size(), modTime: info.ModTime(), patterns: patterns})

	return anchor(patterns, f.AppliesIn), nil
}

// LoadAll reads files concurrently. The result holds one entry per input
// file, in input order. The first read error cancels the remaining loads.
func (l *Loader) LoadAll(ctx context.Context, files []File) ([][]Pattern, error) {
	out := make([][]Pattern, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLoads)
	for i, f := range files {
		g.Go(func() error {
			patterns, err := l.Load(gctx, f)
			if err != nil {
				return err
			}
			out[i] = patterns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Forget drops a cached file so the next Load re-reads it.
func (l *Loader) Forget(path string) {
	l.cache.Remove(path)
}

func anchor(patterns []string, base string) []Pattern {
	out := make([]Pattern, len(patterns))
	for i, p := range patterns {
		out[i] = Pattern{Pattern: p, Anchor: base}
	}
	return out
}

// dropSyntaxLines removes Mercurial "syntax:" switches; all remaining lines
// are treated as globs.
func dropSyntaxLines(patterns []string) []string {
	out := patterns[:0:0]
	for _, p := range patterns {
		if strings.HasPrefix(p, "syntax:") {
			continue
		}
		out = append(out, p)
	}
	return out
}
