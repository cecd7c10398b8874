package filter

import (
	"github.com/Aman-CERP/watchsieve/internal/event"
)

// Verdict is the outcome of one stage.
type Verdict int

const (
	// Defer passes the event on to the next stage.
	Defer Verdict = iota
	Accept
	Reject
)

// String implements fmt.Stringer.
func (v Verdict) String() string {
	switch v {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "defer"
	}
}

// Stage is one step of a Sieve.
type Stage interface {
	Evaluate(ev event.Event) (Verdict, error)
}

// MetaGate rejects metadata-only changes when enabled.
type MetaGate struct {
	Enabled bool
}

// Evaluate implements Stage.
func (g MetaGate) Evaluate(ev event.Event) (Verdict, error) {
	if g.Enabled && ev.HasMetadataChange() {
		return Reject, nil
	}
	return Defer, nil
}

// MatcherStage asks a Filterer for a definitive answer.
type MatcherStage struct {
	Matcher Filterer
}

// Evaluate implements Stage.
func (s MatcherStage) Evaluate(ev event.Event) (Verdict, error) {
	ok, err := s.Matcher.Check(ev)
	if err != nil {
		return Defer, err
	}
	if ok {
		return Accept, nil
	}
	return Reject, nil
}

// Sieve runs the metadata gate, then the matcher. The first stage with a
// definitive verdict decides; if every stage defers the event is accepted.
type Sieve struct {
	meta    MetaGate
	matcher MatcherStage
}

// NewSieve wraps matcher with a metadata gate.
func NewSieve(matcher Filterer, noMeta bool) *Sieve {
	return &Sieve{
		meta:    MetaGate{Enabled: noMeta},
		matcher: MatcherStage{Matcher: matcher},
	}
}

// NoMeta reports whether metadata-only changes are rejected.
func (s *Sieve) NoMeta() bool {
	return s.meta.Enabled
}

// WithNoMeta returns a copy of the sieve with the metadata gate set.
// The matcher is shared.
func (s *Sieve) WithNoMeta(noMeta bool) *Sieve {
	c := *s
	c.meta.Enabled = noMeta
	return &c
}

// Matcher returns the wrapped matcher.
func (s *Sieve) Matcher() Filterer {
	return s.matcher.Matcher
}

// PruneDir implements DirPruner by asking the matcher. The metadata gate
// never prunes.
func (s *Sieve) PruneDir(dir string) bool {
	p, ok := s.matcher.Matcher.(DirPruner)
	return ok && p.PruneDir(dir)
}

// Check implements Filterer. Stage errors are returned unchanged.
func (s *Sieve) Check(ev event.Event) (bool, error) {
	for _, stage := range [...]Stage{s.meta, s.matcher} {
		v, err := stage.Evaluate(ev)
		if err != nil {
			return false, err
		}
		switch v {
		case Accept:
			return true, nil
		case Reject:
			return false, nil
		}
	}
	return true, nil
}
