package ai

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// State is the construction state of a Lazy handle.
type State int

const (
	// StateEmpty means no build has been attempted yet.
	StateEmpty State = iota
	// StateReady means a handle is memoized and every Shared call returns it.
	StateReady
	// StateFailed means the last build failed. Nothing is memoized and the
	// next Shared call builds again.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "empty"
	}
}

// BuildFunc constructs a new handle.
type BuildFunc[T any] func(ctx context.Context) (T, error)

// BuildObserver is told about every build attempt, shared or fresh.
type BuildObserver func(name string, err error)

// Lazy memoizes one handle built on first use.
//
// Lazy is process-scoped state owned by whoever creates it; there are no
// package-level instances. The zero value is not usable, use NewLazy.
type Lazy[T any] struct {
	name    string
	build   BuildFunc[T]
	observe BuildObserver

	group singleflight.Group

	mu      sync.Mutex
	state   State
	value   T
	lastErr error
}

// NewLazy creates an empty Lazy. observe may be nil.
func NewLazy[T any](name string, build BuildFunc[T], observe BuildObserver) *Lazy[T] {
	return &Lazy[T]{name: name, build: build, observe: observe}
}

// Name returns the name given to NewLazy.
func (l *Lazy[T]) Name() string {
	return l.name
}

// Shared returns the memoized handle, building it if none is memoized.
//
// Concurrent first callers share a single build. A failed build is
// returned to the callers waiting on it and recorded as StateFailed, but
// is never memoized. ctx only bounds how long this caller waits; the
// build itself runs to completion so other waiters still get a result.
func (l *Lazy[T]) Shared(ctx context.Context) (T, error) {
	if v, ok := l.ready(); ok {
		return v, nil
	}

	ch := l.group.DoChan("shared", func() (any, error) {
		if v, ok := l.ready(); ok {
			return v, nil
		}

		v, err := l.build(context.WithoutCancel(ctx))
		l.notify(err)

		l.mu.Lock()
		defer l.mu.Unlock()
		if err != nil {
			l.state = StateFailed
			l.lastErr = err
			return nil, err
		}
		l.value = v
		l.state = StateReady
		l.lastErr = nil
		return v, nil
	})

	var zero T
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		// A builder returning a nil interface leaves Val untyped.
		v, _ := res.Val.(T)
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Fresh always builds a new handle. It never reads or writes the shared
// slot, so it does not change State.
func (l *Lazy[T]) Fresh(ctx context.Context) (T, error) {
	v, err := l.build(ctx)
	l.notify(err)
	return v, err
}

// State reports the construction state of the shared slot.
func (l *Lazy[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// LastError returns the error of the last failed shared build, or nil
// once a build has succeeded.
func (l *Lazy[T]) LastError() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

func (l *Lazy[T]) ready() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.state == StateReady
}

func (l *Lazy[T]) notify(err error) {
	if l.observe != nil {
		l.observe(l.name, err)
	}
}
