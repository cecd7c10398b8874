// Package filter compiles ignore files, CLI patterns and an extension
// allowlist into the decision function applied to every watch event.
//
// Compile builds a Sieve: a fixed pipeline of stages where a cheap metadata
// gate runs ahead of the pattern matcher. The result is immutable and safe
// for concurrent use, so it can be published through a swap.Cell and shared
// by every event reader.
package filter

import "github.com/Aman-CERP/watchsieve/internal/event"

// Filterer decides whether an event is significant.
type Filterer interface {
	Check(ev event.Event) (bool, error)
}

// DirPruner is implemented by filters that can tell when no event below a
// directory can pass, so the directory need not be watched at all.
type DirPruner interface {
	PruneDir(dir string) bool
}
