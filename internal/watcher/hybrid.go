package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	serrors "github.com/Aman-CERP/watchsieve/internal/errors"
	"github.com/Aman-CERP/watchsieve/internal/event"
	"github.com/Aman-CERP/watchsieve/internal/ignorefile"
	"github.com/Aman-CERP/watchsieve/internal/resolve"
)

// Watcher watches paths with fsnotify, falling back to polling, and emits
// the events the engine accepts.
type Watcher struct {
	engine      Engine
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool
	events      chan event.Event
	errors      chan error
	stopCh      chan struct{}
	opts        Options
	mu          sync.RWMutex
	stopped     bool

	accepted atomic.Uint64
	rejected atomic.Uint64
	failed   atomic.Uint64
	dropped  atomic.Uint64
	reloads  atomic.Uint64
}

// New creates a watcher that filters through engine.
// Attempts to use fsnotify first, falls back to polling if it fails.
func New(engine Engine, opts Options) (*Watcher, error) {
	opts = opts.WithDefaults()

	w := &Watcher{
		engine: engine,
		events: make(chan event.Event, opts.EventBufferSize),
		errors: make(chan error, 10),
		stopCh: make(chan struct{}),
		opts:   opts,
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			w.fsWatcher = fsw
			w.useFsnotify = true
			return w, nil
		}
		slog.Warn("fsnotify unavailable, falling back to polling", slog.String("error", err.Error()))
	}

	w.pollWatcher = NewPollingWatcher(opts.PollInterval)
	w.pollWatcher.prune = engine.PruneDir
	return w, nil
}

// Start watches roots until ctx is done or Stop is called. Roots are
// resolved through symlinks so event paths share the filter's anchors.
func (w *Watcher) Start(ctx context.Context, roots []string) error {
	canonical := make([]string, 0, len(roots))
	for _, r := range roots {
		if _, err := os.Stat(r); err != nil {
			return serrors.PathError(r, err)
		}
		p, err := resolve.CanonicalPath(r)
		if err != nil {
			return serrors.PathError(r, err)
		}
		canonical = append(canonical, p)
	}

	if w.useFsnotify {
		return w.startFsnotify(ctx, canonical)
	}
	return w.startPolling(ctx, canonical)
}

// startFsnotify starts the fsnotify-based watcher.
func (w *Watcher) startFsnotify(ctx context.Context, roots []string) error {
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			return fmt.Errorf("add directories to watcher: %w", err)
		}
	}
	slog.Debug("watching", slog.Any("roots", roots), slog.String("mode", w.Mode()))

	swapped, unsubscribe := w.engine.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case raw, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleFsnotifyEvent(ctx, raw)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		case _, ok := <-swapped:
			if !ok {
				swapped = nil
				continue
			}
			w.rescan(roots)
		}
	}
}

// rescan adds directories a new filter no longer prunes.
func (w *Watcher) rescan(roots []string) {
	for _, root := range roots {
		if err := w.addRecursive(root); err != nil {
			w.emitError(err)
		}
	}
}

// startPolling starts the polling-based watcher.
func (w *Watcher) startPolling(ctx context.Context, roots []string) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case ev, ok := <-w.pollWatcher.Events():
				if !ok {
					return
				}
				w.process(ctx, ev)
			case err, ok := <-w.pollWatcher.Errors():
				if !ok {
					return
				}
				w.emitError(err)
			}
		}
	}()

	slog.Debug("watching", slog.Any("roots", roots), slog.String("mode", w.Mode()))
	return w.pollWatcher.Start(ctx, roots)
}

// handleFsnotifyEvent converts an fsnotify event and processes it.
func (w *Watcher) handleFsnotifyEvent(ctx context.Context, raw fsnotify.Event) {
	ft := event.FileTypeUnknown
	if info, err := os.Lstat(raw.Name); err == nil {
		ft = event.FileTypeOf(info.Mode())
	}

	kind, ok := kindFromOp(raw.Op)
	if !ok {
		return
	}

	if kind == event.Create && ft == event.FileTypeDir && !w.engine.PruneDir(raw.Name) {
		if err := w.addRecursive(raw.Name); err != nil {
			w.emitError(err)
		}
	}

	w.process(ctx, event.FileEvent(raw.Name, ft, kind))
}

// process reloads the filter when an ignore file changed, then checks the
// event and emits it if accepted. Evaluation errors are logged and counted;
// the event is dropped and the loop continues.
func (w *Watcher) process(ctx context.Context, ev event.Event) {
	for _, p := range ev.Paths() {
		if w.engine.IsIgnoreFile(p.Path) || ignorefile.IsIgnoreFilePath(p.Path) {
			w.reload(ctx, p.Path)
			break
		}
	}

	ok, err := w.engine.Check(ev)
	if err != nil {
		w.failed.Add(1)
		err = serrors.New(serrors.ErrCodeEvaluationFailed, "filter failed on event", err).
			WithDetail("event", ev.String())
		slog.Warn("event evaluation failed", serrors.LogAttrs(err)...)
		w.emitError(err)
		return
	}
	if !ok {
		w.rejected.Add(1)
		return
	}

	w.accepted.Add(1)
	w.emitEvent(ev)
}

func (w *Watcher) reload(ctx context.Context, path string) {
	slog.Info("ignore file changed, reloading filter", slog.String("path", path))
	if err := w.engine.Reload(ctx); err != nil {
		w.emitError(err)
		return
	}
	w.reloads.Add(1)
}

// addRecursive adds root and every directory below it that the active
// filter does not prune. A file root is watched directly.
func (w *Watcher) addRecursive(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsWatcher.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't access
		}
		if !d.IsDir() {
			return nil
		}

		if path != root && w.engine.PruneDir(path) {
			return filepath.SkipDir
		}

		return w.fsWatcher.Add(path)
	})
}

// emitEvent sends an accepted event to the output channel.
func (w *Watcher) emitEvent(ev event.Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.events <- ev:
	default:
		count := w.dropped.Add(1)
		slog.Warn("event buffer full, dropping event",
			slog.String("event", ev.String()),
			slog.Uint64("total_dropped", count),
		)
	}
}

// emitError sends an error to the error channel.
func (w *Watcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		return
	}

	select {
	case w.errors <- err:
	default:
	}
}

// Stop stops the watcher and releases resources. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}

	w.stopped = true
	close(w.stopCh)

	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	if w.pollWatcher != nil {
		_ = w.pollWatcher.Stop()
	}

	close(w.events)
	close(w.errors)
	return nil
}

// Events returns the channel of accepted events.
func (w *Watcher) Events() <-chan event.Event {
	return w.events
}

// Errors returns the channel of non-fatal errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Stats returns the event counters.
func (w *Watcher) Stats() Stats {
	return Stats{
		Accepted: w.accepted.Load(),
		Rejected: w.rejected.Load(),
		Failed:   w.failed.Load(),
		Dropped:  w.dropped.Load(),
		Reloads:  w.reloads.Load(),
	}
}

// Mode returns the type of watcher being used ("fsnotify" or "polling").
func (w *Watcher) Mode() string {
	if w.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// kindFromOp maps an fsnotify operation to an event kind.
func kindFromOp(op fsnotify.Op) (event.FileEventKind, bool) {
	switch {
	case op.Has(fsnotify.Create):
		return event.Create, true
	case op.Has(fsnotify.Write):
		return event.ModifyData, true
	case op.Has(fsnotify.Remove):
		return event.Remove, true
	case op.Has(fsnotify.Rename):
		return event.ModifyName, true
	case op.Has(fsnotify.Chmod):
		return event.ModifyMetadata, true
	default:
		return event.Any, false
	}
}
