package chain

import (
	"errors"
	"fmt"
	"sync"
)

// State describes the lifecycle state of a processing Context.
type State int

const (
	// StateRunning means the context is processing audio.
	StateRunning State = iota
	// StateSuspended means the context is alive but paused by the
	// platform (e.g. output device sleep); Resume reactivates it.
	StateSuspended
	// StateClosed means the context has been torn down. A closed context
	// can never be resumed; its nodes are gone.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrContextClosed is returned when an operation requires a live context.
var ErrContextClosed = errors.New("chain: context closed")

// Context is a processing session. It owns every node built against it;
// closing the context releases them all. Exactly one live context exists
// per playing media element at a time.
type Context struct {
	mu         sync.Mutex
	sampleRate float64
	state      State
}

// NewContext creates a running context at the given sample rate.
func NewContext(sampleRate float64) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("chain: sample rate must be positive: %f", sampleRate)
	}

	return &Context{sampleRate: sampleRate}, nil
}

// SampleRate returns the context sample rate in Hz.
func (c *Context) SampleRate() float64 {
	return c.sampleRate
}

// State returns the current lifecycle state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Closed reports whether the context has been closed.
func (c *Context) Closed() bool {
	return c.State() == StateClosed
}

// Suspend pauses the context. Suspending a closed context is an error;
// suspending a suspended one is a no-op.
func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrContextClosed
	}

	c.state = StateSuspended

	return nil
}

// Resume reactivates a suspended context. Resuming a running context is a
// no-op; resuming a closed context is an error.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrContextClosed
	}

	c.state = StateRunning

	return nil
}

// Close tears the context down. Idempotent.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateClosed

	return nil
}
