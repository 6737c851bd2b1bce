package command

import (
	"context"
	"testing"
	"time"

	"github.com/nodecore/noderuntime/internal/env"
	"github.com/nodecore/noderuntime/internal/result"
)

// echoCmd does nothing in Start and consumes any int event matching want,
// finishing the handle when it does.
type echoCmd struct {
	want   int
	handle *result.Handle[int]
}

func (c *echoCmd) Start(e *env.Env) {}

func (c *echoCmd) Observe(ev Event) (bool, Event) {
	if v, ok := ev.(int); ok && v == c.want {
		c.handle.FinishOK(v)
		return false, nil
	}
	return !c.handle.Done(), ev
}

func TestQueueSubmitAndDrain(t *testing.T) {
	q := NewQueue(1)
	h := result.NewHandle[int]()
	cmd := &echoCmd{want: 7, handle: h}

	if err := q.Submit(context.Background(), cmd); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case got := <-q.Chan():
		got.Start(nil)
	default:
		t.Fatal("expected command on channel")
	}
}

func TestQueueCloseRejectsSubmit(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close() // idempotent

	err := q.Submit(context.Background(), &echoCmd{handle: result.NewHandle[int]()})
	if err == nil {
		t.Fatal("expected error submitting to closed queue")
	}
	if !q.Closed() {
		t.Fatal("expected Closed() true")
	}
}

func TestAwaitSubmitsThenWaits(t *testing.T) {
	q := NewQueue(1)

	go func() {
		cmd := <-q.Chan()
		cmd.Start(nil)
	}()

	h := result.NewHandle[int]()
	cmd := &echoCmd{want: 3, handle: h}

	done := make(chan struct{})
	var val int
	var err error
	go func() {
		val, err = Await(context.Background(), q, cmd, h)
		close(done)
	}()

	// give the queue goroutine a chance to call Start, then feed the event
	// the only way Observe ever sees one in this harness: directly.
	time.Sleep(10 * time.Millisecond)
	cmd.Observe(3)

	<-done
	if err != nil || val != 3 {
		t.Fatalf("unexpected result: val=%d err=%v", val, err)
	}
}

func TestBaseObserveDefaultsToFinishedPassThrough(t *testing.T) {
	var b Base
	keep, ev := b.Observe(42)
	if keep {
		t.Fatal("expected Base.Observe to report keepActive=false")
	}
	if ev != 42 {
		t.Fatalf("expected event passed through unchanged, got %v", ev)
	}
}
