// Package swarmevent defines the concrete event types produced by the
// runtime's various swarm-event sources (connection notifications, the
// libp2p event bus, mDNS, the DHT, the request/response sub-behavior) and
// consumed both by the active-command observer chain (internal/command)
// and by event translation (internal/runtime). Keeping them in their own
// package lets commands match on concrete event shapes without an import
// cycle back into runtime.
package swarmevent

import (
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// ConnEstablished fires on every new connection; First is true only for
// the connection that took the peer from zero to one established
// connections.
type ConnEstablished struct {
	Peer  peer.ID
	First bool
}

// ConnClosed fires on every closed connection; Remaining is the number of
// still-established connections to Peer after this one closed.
type ConnClosed struct {
	Peer      peer.ID
	Remaining int
}

// OutgoingConnError describes a failed dial attempt to Peer. Dial.Observe
// and event translation handle it, but no event source in this module
// emits it.
type OutgoingConnError struct {
	Peer peer.ID
	Err  error
}

// ListenAddr fires when the host starts listening on a new address.
type ListenAddr struct {
	Addr ma.Multiaddr
}

// MDNSPeersFound fires once per mDNS discovery broadcast.
type MDNSPeersFound struct {
	Peers []peer.AddrInfo
}

// IdentifyCompleted mirrors libp2p's identify-completed eventbus event.
type IdentifyCompleted struct {
	Peer            peer.ID
	ListenAddrs     []ma.Multiaddr
	ProtocolVersion string
	AgentVersion    string
}

// PingResult fires once per completed ping round-trip; failures are
// suppressed at the source (spec.md §4.2.7) and never constructed here.
type PingResult struct {
	Peer peer.ID
	RTT  time.Duration
}

// Reachability mirrors AutoNAT's public/private/unknown verdicts.
type Reachability int

const (
	ReachabilityUnknown Reachability = iota
	ReachabilityPublic
	ReachabilityPrivate
)

// NATStatus fires on every libp2p local-reachability change, including
// private and unknown verdicts; event translation surfaces only the
// public ones.
type NATStatus struct {
	Status     Reachability
	PublicAddr ma.Multiaddr // set only when Status == ReachabilityPublic
}

// RelayReservation fires when a circuit-relay v2 reservation is accepted
// or renewed.
type RelayReservation struct {
	RelayPeer peer.ID
	Renewal   bool
}

// RelayCircuit describes an established inbound/outbound relayed circuit;
// event translation logs it and never surfaces it publicly. No event
// source in this module emits it.
type RelayCircuit struct {
	Peer     peer.ID
	Inbound  bool
	RelayPeer peer.ID
}

// HolePunchResult fires on a DCUtR attempt's outcome.
type HolePunchResult struct {
	Peer peer.ID
	Err  error // nil on success
}

// DHTRoutingUpdated describes the DHT's routing table learning of a peer;
// event translation takes no action on it and never surfaces it publicly.
// No event source in this module emits it.
type DHTRoutingUpdated struct {
	Peer  peer.ID
	Addrs []ma.Multiaddr
}

// Stream is a convenience alias used by reqresp-adjacent glue code that
// needs the raw libp2p stream type without importing network directly.
type Stream = network.Stream
