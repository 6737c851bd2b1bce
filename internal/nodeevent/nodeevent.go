// Package nodeevent holds the concrete NodeEvent variant structs so that
// both internal/runtime (which constructs them) and the root package
// (which re-exports them as the public API via type aliases) can import
// them without forming a cycle.
package nodeevent

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

type Reachability int

const (
	ReachabilityUnknown Reachability = iota
	ReachabilityPublic
	ReachabilityPrivate
)

func (r Reachability) String() string {
	switch r {
	case ReachabilityPublic:
		return "public"
	case ReachabilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

type NodeEvent interface{ isNodeEvent() }

type Listening struct{ Addr ma.Multiaddr }

type DiscoveredPeer struct {
	Peer  peer.ID
	Addrs []ma.Multiaddr
}

type PeersDiscovered struct{ Peers []DiscoveredPeer }

type PeerConnected struct{ Peer peer.ID }

type PeerDisconnected struct{ Peer peer.ID }

type IdentifyReceived struct {
	Peer            peer.ID
	AgentVersion    string
	ProtocolVersion string
}

type PingSuccess struct {
	Peer  peer.ID
	RTTMs int64
}

type NatStatusChanged struct {
	Status     Reachability
	PublicAddr ma.Multiaddr
}

type HolePunchSucceeded struct{ Peer peer.ID }

type HolePunchFailed struct {
	Peer  peer.ID
	Error error
}

type InboundRequest struct {
	Peer      peer.ID
	PendingID uint64
	Request   []byte
}

type RelayReservationAccepted struct {
	RelayPeer peer.ID
	Renewal   bool
}

func (Listening) isNodeEvent()               {}
func (PeersDiscovered) isNodeEvent()          {}
func (PeerConnected) isNodeEvent()            {}
func (PeerDisconnected) isNodeEvent()         {}
func (IdentifyReceived) isNodeEvent()         {}
func (PingSuccess) isNodeEvent()              {}
func (NatStatusChanged) isNodeEvent()         {}
func (HolePunchSucceeded) isNodeEvent()       {}
func (HolePunchFailed) isNodeEvent()          {}
func (InboundRequest) isNodeEvent()           {}
func (RelayReservationAccepted) isNodeEvent() {}
