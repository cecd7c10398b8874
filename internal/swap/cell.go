package swap

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoObservers is returned when publishing into a cell that has been closed.
// Callers should treat it as advisory: the subsystem reading the cell is gone.
var ErrNoObservers = errors.New("swap: no observers left to receive the value")

// PublishError reports a value that could not be published.
type PublishError[T any] struct {
	// Value is the value that was not published.
	Value T
}

// Error implements the error interface.
func (e *PublishError[T]) Error() string {
	return ErrNoObservers.Error()
}

// Unwrap lets errors.Is match ErrNoObservers.
func (e *PublishError[T]) Unwrap() error {
	return ErrNoObservers
}

// Cell holds one value of type T.
type Cell[T any] struct {
	// snapshot holds the current value; replaced wholesale on publish.
	snapshot atomic.Pointer[T]
	version  atomic.Uint64
	clone    func(T) T

	// mu serializes writers and guards closed and observers.
	mu        sync.Mutex
	closed    bool
	nextID    uint64
	observers map[uint64]chan struct{}
}

// New creates a cell holding v. Change copies the current value with a plain
// assignment, so T should be a value type or be treated as immutable.
func New[T any](v T) *Cell[T] {
	return NewWithClone(v, nil)
}

// NewWithClone creates a cell holding v that uses clone to copy the current
// value before Change mutates it.
func NewWithClone[T any](v T, clone func(T) T) *Cell[T] {
	c := &Cell[T]{
		clone:     clone,
		observers: make(map[uint64]chan struct{}),
	}
	c.snapshot.Store(&v)
	return c
}

// Borrow returns the latest published value. It never blocks and never fails.
// The returned value is a snapshot; it is not updated by later publishes.
func (c *Cell[T]) Borrow() T {
	return *c.snapshot.Load()
}

// Version returns the number of values published since the cell was created.
func (c *Cell[T]) Version() uint64 {
	return c.version.Load()
}

// Replace publishes v as the latest value.
func (c *Cell[T]) Replace(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return &PublishError[T]{Value: v}
	}
	c.publishLocked(v)
	return nil
}

// Change copies the current value, applies f to the copy and publishes it.
// Change calls are atomic against each other and against Replace: f always
// sees the value published last, so no update is lost.
func (c *Cell[T]) Change(f func(*T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := *c.snapshot.Load()
	if c.clone != nil {
		next = c.clone(next)
	}
	f(&next)

	if c.closed {
		return &PublishError[T]{Value: next}
	}
	c.publishLocked(next)
	return nil
}

// publishLocked stores v and wakes observers. Caller must hold c.mu.
func (c *Cell[T]) publishLocked(v T) {
	c.snapshot.Store(&v)
	c.version.Add(1)

	for _, ch := range c.observers {
		// Notifications coalesce; an observer that has not drained the
		// previous one will still see the latest value on Borrow.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe registers an observer. The returned channel receives a
// notification after each publish and is closed when the cell is closed or
// the returned cancel function is called.
func (c *Cell[T]) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextID
	c.nextID++
	c.observers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if obs, ok := c.observers[id]; ok {
				delete(c.observers, id)
				close(obs)
			}
		})
	}
	return ch, cancel
}

// Close tears the cell down. Borrow keeps returning the last value; further
// publishes fail with ErrNoObservers. Safe to call multiple times.
func (c *Cell[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.observers {
		delete(c.observers, id)
		close(ch)
	}
}
