package dhtlocal

import "testing"

func TestTrackerStopProviding(t *testing.T) {
	tr := New()
	if tr.IsProviding("k") {
		t.Fatal("expected key not providing before MarkProviding")
	}
	tr.MarkProviding("k")
	if !tr.IsProviding("k") {
		t.Fatal("expected key providing after MarkProviding")
	}
	if tr.IsSuppressed("k") {
		t.Fatal("expected key not suppressed while providing")
	}

	tr.StopProviding("k")
	if tr.IsProviding("k") {
		t.Fatal("expected key not providing after StopProviding")
	}
	if !tr.IsSuppressed("k") {
		t.Fatal("expected key suppressed after StopProviding")
	}
	if !tr.IsSuppressed("other") {
		t.Fatal("unrelated key must default to suppressed, not providing")
	}
}

func TestTrackerForgetAndRecordCache(t *testing.T) {
	tr := New()
	if _, ok := tr.CachedRecord("k"); ok {
		t.Fatal("expected no cached record before StoreRecord")
	}

	tr.StoreRecord("k", []byte("v1"))
	v, ok := tr.CachedRecord("k")
	if !ok || string(v) != "v1" {
		t.Fatalf("expected cached record %q, got %q (ok=%v)", "v1", v, ok)
	}

	tr.Forget("k")
	if !tr.IsForgotten("k") {
		t.Fatal("expected key forgotten after Forget")
	}
	if _, ok := tr.CachedRecord("k"); ok {
		t.Fatal("expected no cached record for a forgotten key")
	}

	tr.StoreRecord("k", []byte("v2"))
	if tr.IsForgotten("k") {
		t.Fatal("expected StoreRecord to clear the forgotten flag")
	}
	v, ok = tr.CachedRecord("k")
	if !ok || string(v) != "v2" {
		t.Fatalf("expected cached record %q after re-store, got %q (ok=%v)", "v2", v, ok)
	}
}
