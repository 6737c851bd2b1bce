package noderuntime

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/nodecore/noderuntime/internal/reqresp"
)

// BootstrapPeer is a (peer, address) pair the runtime dials at start and,
// on first connection, uses to synthesize a relay-circuit listen address.
type BootstrapPeer struct {
	Peer  peer.ID
	Addrs []ma.Multiaddr
}

// Config is the immutable configuration an embedding application assembles
// before calling Start. It is a plain struct, not a file format; the
// bootstrap binary (cmd/bootstrap) fills it from Default() and its
// command-line flags, and no config file is read anywhere.
type Config struct {
	ProtocolVersion string
	AgentVersion    string

	ListenAddrs    []ma.Multiaddr
	BootstrapPeers []BootstrapPeer

	// ExternalAddrs are advertised to peers in addition to the host's own
	// listener addresses, without binding a listener on them — for a
	// node behind a port forward or static NAT mapping whose externally
	// reachable address isn't owned by any local interface.
	ExternalAddrs []ma.Multiaddr

	EnableMDNS        bool
	EnableRelayClient bool
	EnableDCUtR       bool
	EnableAutoNAT     bool
	KadServerMode     bool

	IdleConnTimeout time.Duration
	PingInterval    time.Duration
	PingTimeout     time.Duration

	KadQueryTimeout time.Duration

	ReqRespProtocol protocol.ID
	ReqRespTimeout  time.Duration

	// Codec overrides the default newline-delimited-JSON request/response
	// wire encoding. Nil means JSONCodec{}.
	Codec reqresp.Codec

	// KeyFile is out of the core's scope per spec.md §1, but the bootstrap
	// binary and most embedders want it, so it lives here as a convenience
	// the core itself never reads. cmd/bootstrap sets it, but its key
	// loading reads the --key-file flag directly.
	KeyFile string
}

// Default returns a Config with the teacher-style conservative defaults:
// mDNS and relay client on, DHT in client mode, thirty-second DHT query
// timeout, thirty-second request/response timeout.
func Default() Config {
	return Config{
		ProtocolVersion:   "/noderuntime/1.0.0",
		AgentVersion:      "noderuntime",
		EnableMDNS:        true,
		EnableRelayClient: true,
		EnableDCUtR:       true,
		EnableAutoNAT:     true,
		KadServerMode:     false,
		IdleConnTimeout:   120 * time.Second,
		PingInterval:      15 * time.Second,
		PingTimeout:       10 * time.Second,
		KadQueryTimeout:   30 * time.Second,
		ReqRespProtocol:   "/noderuntime/reqresp/1.0.0",
		ReqRespTimeout:    30 * time.Second,
	}
}
