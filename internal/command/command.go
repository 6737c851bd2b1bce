// Package command defines the command abstraction every asynchronous
// request is expressed through (spec.md §4.3): a two-phase life cycle of
// Start then zero-or-more Observe calls, and a bounded queue the runtime
// drains on its single goroutine.
package command

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nodecore/noderuntime/errs"
	"github.com/nodecore/noderuntime/internal/env"
	"github.com/nodecore/noderuntime/internal/result"
)

// Event is an owned swarm (or reqresp/DHT) event value threaded through
// the active-command observer chain. Passing it by value lets a command
// move fields out of it (a request payload, a response handle) without
// requiring it to be cheaply cloneable.
type Event any

// Cmd is the type-erased command object the runtime stores in its
// active-command list. Start is called exactly once, with the command
// given first turn on the runtime goroutine; Observe is called once per
// remaining swarm event for as long as the command stays active.
type Cmd interface {
	// Start may finish the command synchronously (trivial queries,
	// address-book mutations) or kick off a network operation whose
	// outcome arrives later through Observe.
	Start(e *env.Env)

	// Observe is given ownership of ev and returns whether to keep the
	// command active and the event to hand to the next observer (nil if
	// this command consumed it). The default, provided by embedding Base,
	// is (false, ev): a command that does nothing special finishes after
	// Start and never consumes events.
	Observe(ev Event) (keepActive bool, remaining Event)
}

// Base supplies the default Observe behavior described in spec.md §4.3.
// Commands that need to watch further events embed Base and shadow
// Observe with their own matching logic.
type Base struct{}

func (Base) Observe(ev Event) (bool, Event) { return false, ev }

// Queue is the bounded command channel bridging application goroutines
// (producers) and the runtime goroutine (sole consumer). Its closing is
// the shutdown signal (spec.md §4.1), but channel close in Go is
// inherently single-writer-safe only, and Client is meant to be cloned
// freely; Queue therefore exposes an idempotent Close backed by a stop
// channel rather than closing the command channel itself, so concurrent
// Submit calls from cloned Clients never race a send against a close.
type Queue struct {
	ch     chan Cmd
	stopCh chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewQueue creates a Queue with the given channel capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch:     make(chan Cmd, capacity),
		stopCh: make(chan struct{}),
	}
}

// Chan is the receive side the runtime selects on.
func (q *Queue) Chan() <-chan Cmd { return q.ch }

// StopChan is closed by Close; the runtime also selects on it so it
// notices shutdown even with no command in flight.
func (q *Queue) StopChan() <-chan struct{} { return q.stopCh }

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool { return q.closed.Load() }

// Submit enqueues cmd, blocking until the runtime has room, ctx is
// canceled, or the queue is closed — whichever happens first.
func (q *Queue) Submit(ctx context.Context, cmd Cmd) error {
	if q.closed.Load() {
		return errs.Behavior("submit", errs.ErrChannelClosed)
	}
	select {
	case q.ch <- cmd:
		return nil
	case <-q.stopCh:
		return errs.Behavior("submit", errs.ErrChannelClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the queue shut down. Idempotent: safe to call from every
// clone of a Client.
func (q *Queue) Close() {
	q.once.Do(func() {
		q.closed.Store(true)
		close(q.stopCh)
	})
}

// Await is the thin future wrapper spec.md §4.3 describes: it submits cmd
// to the queue and then waits on h. If the queue is closed before cmd
// finishes, h is shut down and Await returns errs.ErrChannelClosed; a
// result that was already delivered is still returned. Go's blocking channel receive inside
// Handle.Await plays the role of the Rust implementation's
// waker-registered poll loop — there is no separate "first poll" step to
// get wrong, because a receive that starts before Finish is called still
// observes the value the instant it arrives.
func Await[T any](ctx context.Context, q *Queue, cmd Cmd, h *result.Handle[T]) (T, error) {
	if err := q.Submit(ctx, cmd); err != nil {
		var zero T
		return zero, err
	}
	done := make(chan result.Result[T], 1)
	go func() { done <- h.Await(ctx) }()
	select {
	case r := <-done:
		return r.Value, r.Err
	case <-q.StopChan():
		// Finish and Shutdown share one sync.Once: if the command already
		// finished, its result is kept; otherwise Await sees ErrChannelClosed.
		h.Shutdown()
		r := <-done
		return r.Value, r.Err
	}
}
