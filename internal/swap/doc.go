// Package swap provides Cell, a container publishing successive snapshots of
// a value to any number of concurrent readers.
//
// Readers call Borrow and get the most recently published value without
// taking a lock. Writers publish with Replace or Change; writes are
// serialized so every published value has a place in a single total order,
// and a Change never overwrites a value published after it read the current
// one.
//
// Subscribe registers an observer that is signalled after each publish; the
// watcher uses it to rescan directories when a new filter prunes fewer of
// them. Close ends every subscription, after which a publish fails with
// ErrNoObservers.
//
// Usage:
//
//	cell := swap.New[filter.Filterer](initial)
//
//	// event loop, any number of goroutines
//	ok, err := cell.Borrow().Check(ev)
//
//	// reconfiguration
//	if err := cell.Replace(next); err != nil {
//	    slog.Warn("filter not published", "error", err)
//	}
package swap
