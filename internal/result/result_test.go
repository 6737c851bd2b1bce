package result

import (
	"context"
	"testing"
	"time"
)

func TestFinishThenAwait(t *testing.T) {
	h := NewHandle[int]()
	h.FinishOK(7)

	r := h.Await(context.Background())
	if r.Err != nil || r.Value != 7 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestAwaitThenFinish(t *testing.T) {
	h := NewHandle[int]()
	done := make(chan Result[int], 1)
	go func() { done <- h.Await(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	h.FinishOK(9)

	r := <-done
	if r.Err != nil || r.Value != 9 {
		t.Fatalf("unexpected result: %+v", r)
	}
}

func TestFinishOnlyOnce(t *testing.T) {
	h := NewHandle[int]()
	h.FinishOK(1)
	h.FinishOK(2) // must not block or panic

	r := h.Await(context.Background())
	if r.Value != 1 {
		t.Fatalf("expected first Finish to win, got %+v", r)
	}
}

func TestShutdownUnblocksAwait(t *testing.T) {
	h := NewHandle[int]()
	done := make(chan Result[int], 1)
	go func() { done <- h.Await(context.Background()) }()

	time.Sleep(10 * time.Millisecond)
	h.Shutdown()

	r := <-done
	if r.Err == nil {
		t.Fatal("expected ErrChannelClosed after shutdown")
	}
}

func TestAwaitContextCanceled(t *testing.T) {
	h := NewHandle[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := h.Await(ctx)
	if r.Err == nil {
		t.Fatal("expected context error")
	}
}

func TestDoneReflectsFinish(t *testing.T) {
	h := NewHandle[int]()
	if h.Done() {
		t.Fatal("expected Done() false before Finish")
	}
	h.FinishOK(1)
	if !h.Done() {
		t.Fatal("expected Done() true after Finish")
	}
}
