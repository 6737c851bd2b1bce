package runtime

import (
	"testing"

	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/env"
)

// fakeCmd lets a test control exactly how many events it stays active for
// and whether it consumes the event it's given.
type fakeCmd struct {
	started  bool
	wantKeep []bool // one entry consumed per Observe call; last entry repeats
	calls    int
	consume  bool
}

func (c *fakeCmd) Start(e *env.Env) { c.started = true }

func (c *fakeCmd) Observe(ev command.Event) (bool, command.Event) {
	i := c.calls
	if i >= len(c.wantKeep) {
		i = len(c.wantKeep) - 1
	}
	c.calls++
	keep := c.wantKeep[i]
	if c.consume {
		return keep, nil
	}
	return keep, ev
}

// newBareRuntime builds a Runtime with no host/DHT/log wiring — enough to
// exercise dispatch's active-list bookkeeping, which never touches those
// fields directly (only translate, reached only when an event survives
// the observer chain unconsumed, does — and none of these tests let one
// through to a case that logs).
func newBareRuntime() *Runtime {
	return &Runtime{}
}

func TestIngestAppendsToActiveList(t *testing.T) {
	r := newBareRuntime()
	c := &fakeCmd{wantKeep: []bool{true}}
	r.ingest(c)

	if !c.started {
		t.Fatal("expected Start to be called during ingest")
	}
	if len(r.active) != 1 {
		t.Fatalf("active list length = %d, want 1", len(r.active))
	}
}

func TestDispatchRemovesFinishedCommandsSwapWithLast(t *testing.T) {
	r := newBareRuntime()
	a := &fakeCmd{wantKeep: []bool{false}, consume: true} // finishes and consumes
	b := &fakeCmd{wantKeep: []bool{true}}                  // stays active
	c := &fakeCmd{wantKeep: []bool{false}, consume: true}  // finishes and consumes

	r.active = []command.Cmd{a, b, c}

	// a consumes the event so it never reaches b/c's Observe or translate.
	r.dispatch(nil, "ev-for-a", nil)

	if len(r.active) != 2 {
		t.Fatalf("active list length = %d, want 2", len(r.active))
	}
	// swap-with-last removal of index 0 puts c where a was; b is untouched.
	foundB, foundC := false, false
	for _, cmd := range r.active {
		if cmd == b {
			foundB = true
		}
		if cmd == c {
			foundC = true
		}
	}
	if !foundB || !foundC {
		t.Fatal("expected b and c to remain active after a was removed")
	}
}

func TestDispatchPassesThroughToRemainingCommands(t *testing.T) {
	r := newBareRuntime()
	seen := 0
	a := &fakeCmd{wantKeep: []bool{true}} // stays active, passes event through
	b := &fakeCmd{wantKeep: []bool{true}}
	r.active = []command.Cmd{a, b}

	_ = seen
	r.dispatch(nil, 42, nil)

	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("expected both commands to observe the event once, got a=%d b=%d", a.calls, b.calls)
	}
	if len(r.active) != 2 {
		t.Fatalf("active list length = %d, want 2 (both stayed active)", len(r.active))
	}
}
