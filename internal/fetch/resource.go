// Package fetch wraps an asynchronous producer and exposes its result as
// observable state: data, loading flag and last error message.  A screen
// builds a Resource around a producer, activates it once, and calls Refetch
// whenever the producer's inputs change.
package fetch

import (
	"context"
	"sync"
)

// DefaultErrorMessage is stored when a producer fails with an empty message.
const DefaultErrorMessage = "Something went wrong"

// Producer yields a value for the resource.  A zero value with a nil error is
// a legitimate result.
type Producer[T any] func(ctx context.Context) (T, error)

// State is a point-in-time view of a Resource.
type State[T any] struct {
	Data    T
	Loading bool
	Err     string
}

// Resource runs a Producer on demand and records its outcome.  Every
// invocation is tagged with a monotonically increasing token; an invocation
// that settles after a newer one has started is discarded.
type Resource[T any] struct {
	producer Producer[T]
	onChange func(State[T])

	mu     sync.Mutex
	state  State[T]
	latest uint64
	once   sync.Once
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// OnChange registers an observer called after every state transition.  It is
// invoked without the resource lock held.
func OnChange[T any](fn func(State[T])) Option[T] {
	return func(r *Resource[T]) { r.onChange = fn }
}

// New builds a Resource around producer.  Nothing runs until Activate or
// Refetch is called.
func New[T any](producer Producer[T], opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{producer: producer}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Activate performs the initial fetch.  Only the first call does any work.
func (r *Resource[T]) Activate(ctx context.Context) State[T] {
	ran := false
	var st State[T]
	r.once.Do(func() {
		ran = true
		st = r.Refetch(ctx)
	})
	if !ran {
		return r.Snapshot()
	}
	return st
}

// Refetch invokes the producer and blocks until it settles.  It returns the
// resource state after settlement, which reflects a newer invocation when
// this one was superseded.
func (r *Resource[T]) Refetch(ctx context.Context) State[T] {
	r.mu.Lock()
	r.latest++
	token := r.latest
	r.state.Loading = true
	r.state.Err = ""
	started := r.state
	r.mu.Unlock()
	r.notify(started)

	data, err := r.producer(ctx)

	r.mu.Lock()
	if token != r.latest {
		// superseded: a newer invocation owns the state now
		st := r.state
		r.mu.Unlock()
		return st
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = DefaultErrorMessage
		}
		r.state.Err = msg
	} else {
		r.state.Data = data
	}
	r.state.Loading = false
	settled := r.state
	r.mu.Unlock()
	r.notify(settled)
	return settled
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Resource[T]) notify(st State[T]) {
	if r.onChange != nil {
		r.onChange(st)
	}
}
