// Package debounce buffers rapidly changing text input and forwards a single
// change event once the input has been quiet for a fixed period.
package debounce

import (
	"errors"
	"sync"
	"time"
)

// DefaultDelay is the quiet period used when no WithDelay option is given.
const DefaultDelay = 1000 * time.Millisecond

// ErrReadOnly is returned by Set on a relay configured with WithPress.
var ErrReadOnly = errors.New("relay is not editable")

// Relay holds an editable value and emits it downstream after a quiet period.
type Relay struct {
	delay    time.Duration
	onChange func(string)
	onPress  func()

	mu     sync.Mutex
	value  string
	timer  *time.Timer
	gen    uint64
	closed bool
}

// Option configures a Relay.
type Option func(*Relay)

// WithDelay overrides the quiet period.
func WithDelay(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.delay = d
		}
	}
}

// WithPress makes the relay a tap target: it no longer accepts edits and
// Press invokes fn immediately.
func WithPress(fn func()) Option {
	return func(r *Relay) { r.onPress = fn }
}

// NewRelay returns a relay whose local value starts at value.  onChange is
// called with the latest local value after every quiet period.
func NewRelay(value string, onChange func(string), opts ...Option) *Relay {
	r := &Relay{delay: DefaultDelay, onChange: onChange, value: value}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Set records a local edit and restarts the quiet period.
func (r *Relay) Set(v string) error {
	if r.onPress != nil {
		return ErrReadOnly
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.value = v
	r.scheduleLocked()
	return nil
}

// Sync mirrors an externally changed value into the local state.  A value
// equal to the current one is ignored.
func (r *Relay) Sync(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.value == v {
		return
	}
	r.value = v
	if r.onPress == nil {
		r.scheduleLocked()
	}
}

// Value returns the local value.
func (r *Relay) Value() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Press emits the activation signal of a relay built with WithPress.  It is a
// no-op on an editable relay.
func (r *Relay) Press() {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed || r.onPress == nil {
		return
	}
	r.onPress()
}

// Close cancels any pending emission.  No emission happens after Close
// returns.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Relay) scheduleLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() { r.fire(gen) })
}

func (r *Relay) fire(gen uint64) {
	r.mu.Lock()
	// a stopped timer may still have started its callback
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	v := r.value
	r.timer = nil
	r.mu.Unlock()
	if r.onChange != nil {
		r.onChange(v)
	}
}
