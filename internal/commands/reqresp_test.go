package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/libp2p/go-libp2p/core/test"

	reqrespsvc "github.com/nodecore/noderuntime/internal/reqresp"
)

func TestSendRequestObserveIgnoresMismatchedID(t *testing.T) {
	p, _ := test.RandPeerID()
	cmd, h := NewSendRequest(p, "hello")
	cmd.id = 5
	cmd.started = true

	keep, ev := cmd.Observe(reqrespsvc.Event{Kind: reqrespsvc.EventResponse, RequestID: 99})
	if !keep || ev == nil {
		t.Fatal("expected pass-through for an unrelated request id")
	}
	if h.Done() {
		t.Fatal("handle must not finish for unrelated request id")
	}
}

func TestSendRequestObserveConsumesMatchingResponse(t *testing.T) {
	p, _ := test.RandPeerID()
	cmd, h := NewSendRequest(p, "hello")
	cmd.id = 5
	cmd.started = true

	keep, ev := cmd.Observe(reqrespsvc.Event{Kind: reqrespsvc.EventResponse, RequestID: 5, ResponseData: []byte("world")})
	if keep || ev != nil {
		t.Fatal("expected the matching response to be consumed")
	}
	r := h.Await(context.Background())
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if string(r.Value.Response) != "world" {
		t.Fatalf("Response = %q, want %q", r.Value.Response, "world")
	}
}

func TestSendRequestObserveConsumesOutboundFailure(t *testing.T) {
	p, _ := test.RandPeerID()
	cmd, h := NewSendRequest(p, "hello")
	cmd.id = 5
	cmd.started = true

	wantErr := errors.New("stream reset")
	keep, ev := cmd.Observe(reqrespsvc.Event{Kind: reqrespsvc.EventOutboundFailure, RequestID: 5, Err: wantErr})
	if keep || ev != nil {
		t.Fatal("expected the matching failure to be consumed")
	}
	r := h.Await(context.Background())
	if !errors.Is(r.Err, wantErr) {
		t.Fatalf("Err = %v, want %v", r.Err, wantErr)
	}
}

func TestSendRequestObserveBeforeStartPassesThrough(t *testing.T) {
	p, _ := test.RandPeerID()
	cmd, _ := NewSendRequest(p, "hello")

	keep, ev := cmd.Observe(reqrespsvc.Event{Kind: reqrespsvc.EventResponse, RequestID: 0})
	if !keep || ev == nil {
		t.Fatal("expected pass-through before Start has run")
	}
}
