package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/libp2p/go-libp2p/core/test"

	"github.com/nodecore/noderuntime/internal/swarmevent"
)

func TestDialObserveMatchesTargetPeer(t *testing.T) {
	target, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("rand peer id: %v", err)
	}
	other, err := test.RandPeerID()
	if err != nil {
		t.Fatalf("rand peer id: %v", err)
	}

	cmd, h := NewDial(target)

	// An event for a different peer must be ignored and passed through.
	keep, ev := cmd.Observe(swarmevent.ConnEstablished{Peer: other})
	if !keep || ev == nil {
		t.Fatal("expected command to stay active and pass through unrelated event")
	}
	if h.Done() {
		t.Fatal("handle must not finish for unrelated peer")
	}

	keep, _ = cmd.Observe(swarmevent.ConnEstablished{Peer: target})
	if keep {
		t.Fatal("expected command to finish on target peer connection")
	}
	if !h.Done() {
		t.Fatal("expected handle finished")
	}
}

func TestDialObserveOutgoingConnError(t *testing.T) {
	target, _ := test.RandPeerID()
	cmd, h := NewDial(target)

	keep, _ := cmd.Observe(swarmevent.OutgoingConnError{Peer: target, Err: errors.New("boom")})
	if keep {
		t.Fatal("expected command to finish on dial error")
	}
	if h.Await(context.Background()).Err == nil {
		t.Fatal("expected error result")
	}
}

func TestDisconnectObserveWaitsForZeroRemaining(t *testing.T) {
	target, _ := test.RandPeerID()
	cmd, h := NewDisconnect(target)

	cmd.Observe(swarmevent.ConnClosed{Peer: target, Remaining: 1})
	if h.Done() {
		t.Fatal("must not finish while connections remain")
	}
	cmd.Observe(swarmevent.ConnClosed{Peer: target, Remaining: 0})
	if !h.Done() {
		t.Fatal("expected finish once remaining reaches zero")
	}
}
