package noderuntime

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.ProtocolVersion == "" {
		t.Fatal("expected a non-empty protocol version")
	}
	if !cfg.EnableMDNS || !cfg.EnableRelayClient || !cfg.EnableDCUtR || !cfg.EnableAutoNAT {
		t.Fatalf("expected all discovery/traversal features on by default, got %+v", cfg)
	}
	if cfg.KadServerMode {
		t.Fatal("expected DHT client mode by default")
	}
	if cfg.IdleConnTimeout <= 0 {
		t.Fatal("expected a positive idle connection timeout")
	}
	if cfg.PingInterval <= 0 || cfg.PingTimeout <= 0 {
		t.Fatal("expected positive ping interval/timeout")
	}
	if cfg.KadQueryTimeout <= 0 {
		t.Fatal("expected a positive DHT query timeout")
	}
	if cfg.ReqRespProtocol == "" {
		t.Fatal("expected a non-empty request/response protocol id")
	}
	if cfg.ReqRespTimeout <= 0 {
		t.Fatal("expected a positive request/response timeout")
	}
	if cfg.Codec != nil {
		t.Fatal("expected nil Codec by default, resolved to JSONCodec{} downstream")
	}
}

func TestDefaultConfigReturnsIndependentCopies(t *testing.T) {
	a := Default()
	b := Default()

	a.ListenAddrs = append(a.ListenAddrs, nil)
	if len(b.ListenAddrs) != 0 {
		t.Fatal("expected Default() to return independent slices per call")
	}
}
