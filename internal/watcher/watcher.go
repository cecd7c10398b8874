package watcher

import (
	"context"
	"time"

	"github.com/Aman-CERP/watchsieve/internal/event"
)

// Engine is the filter owner the watcher consults.
type Engine interface {
	// Check evaluates an event against the active filter.
	Check(ev event.Event) (bool, error)
	// PruneDir reports whether nothing below dir can pass, so it is not watched.
	PruneDir(dir string) bool
	// Subscribe notifies after each filter swap until cancelled.
	Subscribe() (<-chan struct{}, func())
	// Reload recompiles the active filter.
	Reload(ctx context.Context) error
	// IsIgnoreFile reports whether path is a loaded ignore file.
	IsIgnoreFile(path string) bool
}

// Options configures the watcher behavior.
type Options struct {
	// PollInterval is the interval for polling mode (fallback).
	// Default: 2s
	PollInterval time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 1000
	EventBufferSize int

	// ForcePolling skips fsnotify.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		PollInterval:    2 * time.Second,
		EventBufferSize: 1000,
	}
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize <= 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}

// Stats counts what the watcher has seen.
type Stats struct {
	Accepted uint64
	Rejected uint64
	Failed   uint64
	Dropped  uint64
	Reloads  uint64
}
