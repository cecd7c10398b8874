package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Aman-CERP/watchsieve/internal/event"
)

// PollingWatcher watches for file changes by periodically scanning the roots.
// Used as a fallback when fsnotify is not available or fails.
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan event.Event
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	stopped   bool
	roots     []string

	// prune skips directories whose whole subtree is ignored. Nil walks
	// everything.
	prune func(dir string) bool
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
	mode    fs.FileMode
}

// NewPollingWatcher creates a new polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan event.Event, 100),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
}

// Start polls roots until ctx is done or Stop is called.
func (p *PollingWatcher) Start(ctx context.Context, roots []string) error {
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return fmt.Errorf("resolve absolute path: %w", err)
		}
		p.roots = append(p.roots, abs)
	}

	// Initial scan to establish baseline
	state, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.mu.Lock()
	p.fileState = state
	p.mu.Unlock()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				// Non-fatal error, send to error channel
				p.mu.RLock()
				if !p.stopped {
					select {
					case p.errors <- err:
					default:
					}
				}
				p.mu.RUnlock()
			}
		}
	}
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return nil
	}

	p.stopped = true
	close(p.stopCh)
	close(p.events)
	close(p.errors)
	return nil
}

// Events returns the channel of raw events.
func (p *PollingWatcher) Events() <-chan event.Event {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks every root and records file state by absolute path.
func (p *PollingWatcher) snapshot() (map[string]fileSnapshot, error) {
	state := make(map[string]fileSnapshot)
	for _, root := range p.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				return nil // Skip files we can't access
			}
			if d.IsDir() && path != root && p.prune != nil && p.prune(path) {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			state[path] = fileSnapshot{
				modTime: info.ModTime(),
				size:    info.Size(),
				mode:    info.Mode(),
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// detectChanges compares current state with previous state and emits events.
func (p *PollingWatcher) detectChanges() error {
	current, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for path, snap := range current {
		prev, exists := p.fileState[path]
		switch {
		case !exists:
			p.emitEvent(event.FileEvent(path, event.FileTypeOf(snap.mode), event.Create))
		case prev.modTime != snap.modTime || prev.size != snap.size:
			if !snap.mode.IsDir() {
				p.emitEvent(event.FileEvent(path, event.FileTypeOf(snap.mode), event.ModifyData))
			}
		case prev.mode != snap.mode:
			p.emitEvent(event.FileEvent(path, event.FileTypeOf(snap.mode), event.ModifyMetadata))
		}
	}

	for path, snap := range p.fileState {
		if _, exists := current[path]; !exists {
			p.emitEvent(event.FileEvent(path, event.FileTypeOf(snap.mode), event.Remove))
		}
	}

	p.fileState = current
	return nil
}

// emitEvent sends an event to the events channel.
// Must be called with lock held.
func (p *PollingWatcher) emitEvent(ev event.Event) {
	if p.stopped {
		return
	}

	select {
	case p.events <- ev:
	default:
		slog.Warn("polling watcher buffer full, dropping event", slog.String("event", ev.String()))
	}
}
