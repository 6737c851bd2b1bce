// Package result implements the command result-handle: the bridge between
// a command object living on the runtime loop and the application task
// awaiting its outcome.
//
// Go has no async/await, but the idiomatic equivalent already appears in
// the teacher repo: internal/mq.Manager keys a `pending map[string]chan
// struct{}` per in-flight message and the sender blocks on `<-ch` until an
// ACK arrives or a timeout fires. ResultHandle generalizes that one-shot
// channel into a typed, single-value future: finishing a command sends on
// a buffered channel of capacity one, and awaiting it receives from that
// channel. This satisfies spec.md's invariants (finish at most once;
// awaiter observes the result on its next receive) using Go's native
// synchronization primitive instead of a hand-rolled mutex+waker pair.
package result

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nodecore/noderuntime/errs"
)

// Result is the value delivered through a ResultHandle: either a value of
// T or an error.
type Result[T any] struct {
	Value T
	Err   error
}

// Handle holds at most one Result[T] and is safe to share between the
// runtime goroutine (which calls Finish) and the awaiting goroutine (which
// calls Await). The waker-registration problem spec.md calls out for the
// Rust implementation doesn't arise in Go: a blocking channel receive
// started before Finish is called will still observe the value, because
// the channel itself is the wake mechanism.
type Handle[T any] struct {
	ch     chan Result[T]
	once   sync.Once
	filled atomic.Bool
}

// NewHandle creates a Handle ready to receive at most one Finish call.
func NewHandle[T any]() *Handle[T] {
	return &Handle[T]{ch: make(chan Result[T], 1)}
}

// Finish stores r and wakes the awaiter. Calling Finish more than once on
// the same Handle is a programmer error in the command implementation;
// subsequent calls are silently dropped rather than panicking, since the
// runtime must never panic on a recoverable condition.
func (h *Handle[T]) Finish(r Result[T]) {
	h.once.Do(func() {
		h.filled.Store(true)
		h.ch <- r
	})
}

// FinishOK is a convenience wrapper around Finish for the success path.
func (h *Handle[T]) FinishOK(v T) { h.Finish(Result[T]{Value: v}) }

// FinishErr is a convenience wrapper around Finish for the error path.
func (h *Handle[T]) FinishErr(err error) { h.Finish(Result[T]{Err: err}) }

// Done reports whether Finish has already been called, without consuming
// the result. Used by command Observe implementations to report whether
// the command should stay on the active-command list.
func (h *Handle[T]) Done() bool { return h.filled.Load() }

// Await blocks until Finish is called, ctx is canceled, or the channel is
// closed by Shutdown, whichever comes first. Shutdown closes the channel
// rather than sending, so a zero Result with ErrChannelClosed is
// synthesized on that path.
func (h *Handle[T]) Await(ctx context.Context) Result[T] {
	select {
	case r, ok := <-h.ch:
		if !ok {
			return Result[T]{Err: errs.ErrChannelClosed}
		}
		return r
	case <-ctx.Done():
		return Result[T]{Err: ctx.Err()}
	}
}

// Shutdown closes the handle's channel, causing any in-flight Await to
// return ErrChannelClosed. Safe to call even if Finish already fired:
// Finish and Shutdown share one sync.Once, so whichever runs first wins
// and the later call does nothing (the buffered result stays readable).
func (h *Handle[T]) Shutdown() {
	h.once.Do(func() {
		close(h.ch)
	})
}
