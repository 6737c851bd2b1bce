package commands

import (
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/routing"
)

func TestStatsMergeStep(t *testing.T) {
	var s Stats
	s.mergeStep(true, 10*time.Millisecond)
	s.mergeStep(false, 5*time.Millisecond)
	s.mergeStep(true, 20*time.Millisecond)

	if s.NumRequests != 3 {
		t.Fatalf("NumRequests = %d, want 3", s.NumRequests)
	}
	if s.NumSuccesses != 2 {
		t.Fatalf("NumSuccesses = %d, want 2", s.NumSuccesses)
	}
	if s.NumFailures != 1 {
		t.Fatalf("NumFailures = %d, want 1", s.NumFailures)
	}
	if s.Duration != 20*time.Millisecond {
		t.Fatalf("Duration = %v, want the max elapsed of 20ms", s.Duration)
	}
}

func TestCollectQueryEventsMergesAllAndClassifiesErrors(t *testing.T) {
	events := make(chan *routing.QueryEvent, 3)
	events <- &routing.QueryEvent{Type: routing.SendingQuery}
	events <- &routing.QueryEvent{Type: routing.QueryError}
	events <- &routing.QueryEvent{Type: routing.PeerResponse}
	close(events)

	var stats Stats
	var seenTypes []routing.QueryEventType
	collectQueryEvents(events, &stats, func(qe *routing.QueryEvent) {
		seenTypes = append(seenTypes, qe.Type)
	})

	if stats.NumRequests != 3 {
		t.Fatalf("NumRequests = %d, want 3", stats.NumRequests)
	}
	if stats.NumFailures != 1 {
		t.Fatalf("NumFailures = %d, want 1 (only QueryError)", stats.NumFailures)
	}
	if stats.NumSuccesses != 2 {
		t.Fatalf("NumSuccesses = %d, want 2", stats.NumSuccesses)
	}
	if len(seenTypes) != 3 {
		t.Fatalf("expected onEvent called once per event, got %d", len(seenTypes))
	}
}

func TestCollectQueryEventsEmptyChannel(t *testing.T) {
	events := make(chan *routing.QueryEvent)
	close(events)

	var stats Stats
	collectQueryEvents(events, &stats, nil)

	if stats.NumRequests != 0 {
		t.Fatalf("expected zero merged steps for an empty channel, got %d", stats.NumRequests)
	}
}
