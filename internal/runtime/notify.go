package runtime

import (
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/nodecore/noderuntime/internal/swarmevent"
)

// netNotifiee bridges libp2p's network.Notifiee connection callbacks (the
// teacher has no equivalent — it reads Host.Network().Peers() on demand
// instead — but a notifiee is the idiomatic way for a single-owner event
// loop to learn about connection changes without polling) into the
// runtime's internal swarm-event channel.
type netNotifiee struct {
	r *Runtime
}

func (n *netNotifiee) Listen(net network.Network, a network.Multiaddr) {
	n.r.pushSwarmEvent(swarmevent.ListenAddr{Addr: a})
}

func (n *netNotifiee) ListenClose(network.Network, network.Multiaddr) {}

func (n *netNotifiee) Connected(net network.Network, c network.Conn) {
	p := c.RemotePeer()
	first := len(net.ConnsToPeer(p)) == 1
	n.r.pushSwarmEvent(swarmevent.ConnEstablished{Peer: p, First: first})
}

func (n *netNotifiee) Disconnected(net network.Network, c network.Conn) {
	p := c.RemotePeer()
	n.r.pushSwarmEvent(swarmevent.ConnClosed{Peer: p, Remaining: len(net.ConnsToPeer(p))})
}

// mdnsNotifee mirrors the teacher's p2p.mdnsNotifee, generalized to report
// the discovery to the runtime loop (PeersDiscovered + address-book
// registration, per spec.md §4.2.5) instead of dialing directly inline —
// the dial itself still happens, but from event translation so it goes
// through the same code path as any other discovery source.
type mdnsNotifee struct {
	r *Runtime
}

func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	n.r.pushSwarmEvent(swarmevent.MDNSPeersFound{Peers: []peer.AddrInfo{pi}})
}
