// Package engine owns the active filter. It resolves and compiles filters
// and publishes them into a swap.Cell that event readers borrow from.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/event"
	"github.com/Aman-CERP/watchsieve/internal/filter"
	"github.com/Aman-CERP/watchsieve/internal/ignorefile"
	"github.com/Aman-CERP/watchsieve/internal/resolve"
	"github.com/Aman-CERP/watchsieve/internal/swap"
)

// Options configure which events pass the filter.
type Options struct {
	Paths           []string
	Filters         []string
	Ignores         []string
	Extensions      []string
	NoMeta          bool
	NoDefaultIgnore bool
	resolve.Options
}

// Resolver finds the origin and ignore files for a set of paths.
type Resolver interface {
	Dirs(ctx context.Context, paths []string) (origin, workdir string, err error)
	Ignores(ctx context.Context, origin string, opts resolve.Options) ([]ignorefile.File, []error)
}

// State describes the inputs of the published filter.
type State struct {
	Origin      string
	Workdir     string
	IgnoreFiles []ignorefile.File
	// Diagnostics are the non-fatal discovery errors of the last resolve.
	Diagnostics []error
}

// Engine builds filters and publishes them into a cell.
type Engine struct {
	resolver Resolver
	loader   *ignorefile.Loader
	cell     *swap.Cell[filter.Filterer]

	// mu serializes Reload and SetNoMeta, and guards opts and state.
	mu    sync.Mutex
	opts  Options
	state State
}

// New resolves and compiles the first filter. It fails if any path cannot
// be resolved or any pattern does not parse.
func New(ctx context.Context, opts Options) (*Engine, error) {
	return NewWithResolver(ctx, opts, resolve.New())
}

// NewWithResolver is New with a custom Resolver.
func NewWithResolver(ctx context.Context, opts Options, resolver Resolver) (*Engine, error) {
	e := &Engine{
		resolver: resolver,
		loader:   ignorefile.NewLoader(0),
		opts:     opts,
	}

	sieve, state, err := e.build(ctx, opts)
	if err != nil {
		return nil, err
	}
	e.state = state
	e.cell = swap.New[filter.Filterer](sieve)
	return e, nil
}

// build resolves and compiles without touching the cell.
func (e *Engine) build(ctx context.Context, opts Options) (*filter.Sieve, State, error) {
	origin, workdir, err := e.resolver.Dirs(ctx, opts.Paths)
	if err != nil {
		return nil, State{}, err
	}

	files, diags := e.resolver.Ignores(ctx, origin, opts.Options)
	if err := ctx.Err(); err != nil {
		return nil, State{}, err
	}

	sieve, err := filter.Compile(ctx, filter.Params{
		Origin:          origin,
		Workdir:         workdir,
		IgnoreFiles:     files,
		Filters:         opts.Filters,
		Ignores:         opts.Ignores,
		Extensions:      opts.Extensions,
		NoDefaultIgnore: opts.NoDefaultIgnore,
		NoMeta:          opts.NoMeta,
		Loader:          e.loader,
	})
	if err != nil {
		return nil, State{}, err
	}

	return sieve, State{
		Origin:      origin,
		Workdir:     workdir,
		IgnoreFiles: files,
		Diagnostics: diags,
	}, nil
}

// Reload re-resolves ignore files and recompiles the filter. On failure the
// previous filter stays active and the error is returned.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	sieve, state, err := e.build(ctx, e.opts)
	if err != nil {
		level := slog.LevelWarn
		if serrors.IsFatal(err) {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "reload failed, keeping previous filter", serrors.LogAttrs(err)...)
		return err
	}

	e.state = state
	e.publish(func() error { return e.cell.Replace(sieve) })
	slog.Debug("filter reloaded",
		slog.String("origin", state.Origin),
		slog.Int("ignore_files", len(state.IgnoreFiles)),
		slog.Uint64("version", e.cell.Version()))
	return nil
}

// SetNoMeta toggles the metadata gate of the active filter without
// recompiling it.
func (e *Engine) SetNoMeta(noMeta bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.opts.NoMeta = noMeta
	e.publish(func() error {
		return e.cell.Change(func(f *filter.Filterer) {
			if s, ok := (*f).(*filter.Sieve); ok {
				*f = s.WithNoMeta(noMeta)
			}
		})
	})
}

// publish runs a cell write. A closed cell is logged, not returned.
func (e *Engine) publish(write func() error) {
	if err := write(); err != nil {
		if errors.Is(err, swap.ErrNoObservers) {
			err = serrors.New(serrors.ErrCodePublishFailed, "filter cell is closed", err)
		}
		slog.Warn("filter not published", serrors.LogAttrs(err)...)
	}
}

// Cell returns the cell holding the active filter.
func (e *Engine) Cell() *swap.Cell[filter.Filterer] {
	return e.cell
}

// Check evaluates ev against the active filter.
func (e *Engine) Check(ev event.Event) (bool, error) {
	return e.cell.Borrow().Check(ev)
}

// PruneDir reports whether the active filter ignores dir and everything
// below it.
func (e *Engine) PruneDir(dir string) bool {
	p, ok := e.cell.Borrow().(filter.DirPruner)
	return ok && p.PruneDir(dir)
}

// Subscribe registers for a notification after each filter swap. The
// channel is closed by the returned cancel function or by Close.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	return e.cell.Subscribe()
}

// State returns the inputs of the active filter.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// IsIgnoreFile reports whether path is one of the loaded ignore files.
func (e *Engine) IsIgnoreFile(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, f := range e.state.IgnoreFiles {
		if f.Path == path {
			return true
		}
	}
	return false
}

// Close tears down the cell. Readers keep the last filter.
func (e *Engine) Close() {
	e.cell.Close()
}
