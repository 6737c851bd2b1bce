package noderuntime

import "github.com/nodecore/noderuntime/internal/nodeevent"

// NodeEvent is the closed set of public variants the application consumes,
// delivered in the order the runtime loop produced them (spec.md §3/§5).
// Each concrete type below is one variant; a type switch on the value
// received from EventReceiver.Recv discriminates them. The concrete
// structs live in internal/nodeevent so that internal/runtime (which
// constructs them) doesn't need to import this root package.
type NodeEvent = nodeevent.NodeEvent

type Reachability = nodeevent.Reachability

const (
	ReachabilityUnknown = nodeevent.ReachabilityUnknown
	ReachabilityPublic  = nodeevent.ReachabilityPublic
	ReachabilityPrivate = nodeevent.ReachabilityPrivate
)

type Listening = nodeevent.Listening
type DiscoveredPeer = nodeevent.DiscoveredPeer
type PeersDiscovered = nodeevent.PeersDiscovered
type PeerConnected = nodeevent.PeerConnected
type PeerDisconnected = nodeevent.PeerDisconnected
type IdentifyReceived = nodeevent.IdentifyReceived
type PingSuccess = nodeevent.PingSuccess
type NatStatusChanged = nodeevent.NatStatusChanged
type HolePunchSucceeded = nodeevent.HolePunchSucceeded
type HolePunchFailed = nodeevent.HolePunchFailed
type InboundRequest = nodeevent.InboundRequest
type RelayReservationAccepted = nodeevent.RelayReservationAccepted
