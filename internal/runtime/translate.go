package runtime

import (
	"context"
	"strings"
	"time"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/nodecore/noderuntime/internal/nodeevent"
	"github.com/nodecore/noderuntime/internal/reqresp"
	"github.com/nodecore/noderuntime/internal/swarmevent"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
)

// translate is the pure-projection-plus-side-effects step of spec.md §4.2:
// for every swarm event that survives the active-command observer chain,
// emit zero or one public NodeEvent and perform whatever side effect on
// the owned swarm that event calls for.
func (r *Runtime) translate(ctx context.Context, ev any, pingSvc *ping.PingService) {
	switch v := ev.(type) {

	case swarmevent.ListenAddr:
		r.emit(nodeevent.Listening{Addr: v.Addr})

	case swarmevent.ConnEstablished:
		r.onConnEstablished(ctx, v)

	case swarmevent.ConnClosed:
		r.onConnClosed(v, pingSvc)

	case swarmevent.OutgoingConnError:
		// Transient dial failures to a non-target peer are suppressed at
		// the public boundary (spec.md §7); commands that care about a
		// specific peer already observed this before it reached here.

	case swarmevent.MDNSPeersFound:
		r.onMDNSPeersFound(ctx, v)

	case swarmevent.IdentifyCompleted:
		r.onIdentifyCompleted(v)

	case swarmevent.PingResult:
		r.emit(nodeevent.PingSuccess{Peer: v.Peer, RTTMs: v.RTT.Milliseconds()})

	case swarmevent.NATStatus:
		if v.Status == swarmevent.ReachabilityPublic {
			r.emit(nodeevent.NatStatusChanged{Status: nodeevent.ReachabilityPublic, PublicAddr: v.PublicAddr})
		}
		// A single negative probe doesn't prove private NAT (spec.md §4.2.8);
		// only confirmed-public transitions are surfaced here. A caller that
		// wants the private/unknown transitions observed too can watch
		// RelayReservationAccepted as an indirect corroborating signal.

	case swarmevent.RelayReservation:
		r.emit(nodeevent.RelayReservationAccepted{RelayPeer: v.RelayPeer, Renewal: v.Renewal})

	case swarmevent.RelayCircuit:
		r.log.Infof("runtime: relay circuit established (inbound=%v) via %s", v.Inbound, v.RelayPeer)

	case swarmevent.HolePunchResult:
		if v.Err == nil {
			r.emit(nodeevent.HolePunchSucceeded{Peer: v.Peer})
		} else {
			r.emit(nodeevent.HolePunchFailed{Peer: v.Peer, Error: v.Err})
		}

	case swarmevent.DHTRoutingUpdated:
		// go-libp2p-kad-dht shares the host's own peerstore, so addresses it
		// learns are already in the swarm address book — no extra
		// bridging is needed to satisfy spec.md §4.2.9's "register with the
		// swarm address book" side effect.

	case reqresp.Event:
		r.onReqRespEvent(v)
	}
}

func (r *Runtime) onConnEstablished(ctx context.Context, v swarmevent.ConnEstablished) {
	r.connCountMu.Lock()
	r.connCount[v.Peer]++
	count := r.connCount[v.Peer]
	r.connCountMu.Unlock()

	if count == 1 {
		r.emit(nodeevent.PeerConnected{Peer: v.Peer})
		r.startPingLoop(ctx, v.Peer)

		r.bootstrapMu.Lock()
		addrs, wasBootstrap := r.pendingBootstrap[v.Peer]
		if wasBootstrap {
			delete(r.pendingBootstrap, v.Peer)
		}
		r.bootstrapMu.Unlock()

		if wasBootstrap {
			r.listenOnRelayCircuit(v.Peer, addrs)
		}
	}
}

func (r *Runtime) onConnClosed(v swarmevent.ConnClosed, pingSvc *ping.PingService) {
	if v.Remaining == 0 {
		r.emit(nodeevent.PeerDisconnected{Peer: v.Peer})
		r.stopPingLoop(v.Peer)
		r.connCountMu.Lock()
		delete(r.connCount, v.Peer)
		r.connCountMu.Unlock()
	} else {
		r.connCountMu.Lock()
		r.connCount[v.Peer] = v.Remaining
		r.connCountMu.Unlock()
	}
}

func (r *Runtime) startPingLoop(ctx context.Context, p peer.ID) {
	if r.cfg.PingInterval <= 0 {
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	r.pingCancelMu.Lock()
	r.pingCancel[p] = cancel
	r.pingCancelMu.Unlock()
	go r.pingLoop(pctx, ping.NewPingService(r.host), p, r.cfg.PingInterval, r.cfg.PingTimeout)
}

func (r *Runtime) stopPingLoop(p peer.ID) {
	r.pingCancelMu.Lock()
	cancel, ok := r.pingCancel[p]
	delete(r.pingCancel, p)
	r.pingCancelMu.Unlock()
	if ok {
		cancel()
	}
}

// onMDNSPeersFound registers advertised addresses, dials undiscovered
// peers, and emits PeersDiscovered — spec.md §4.2.5, generalized from the
// teacher's mdnsNotifee.HandlePeerFound (which dials directly inline).
func (r *Runtime) onMDNSPeersFound(ctx context.Context, v swarmevent.MDNSPeersFound) {
	discovered := make([]nodeevent.DiscoveredPeer, 0, len(v.Peers))
	for _, pi := range v.Peers {
		r.host.Peerstore().AddAddrs(pi.ID, pi.Addrs, time.Hour)
		discovered = append(discovered, nodeevent.DiscoveredPeer{Peer: pi.ID, Addrs: pi.Addrs})

		if r.host.Network().Connectedness(pi.ID) == network.Connected {
			continue
		}
		go func(pi peer.AddrInfo) {
			dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			_ = r.host.Connect(dctx, pi)
		}(pi)
	}
	r.emit(nodeevent.PeersDiscovered{Peers: discovered})
}

// onIdentifyCompleted implements spec.md §4.2.6: matching protocol
// versions get their listen addrs added to the DHT routing table (and
// swarm address book, which the DHT shares); mismatches are logged and
// skipped but still surfaced.
func (r *Runtime) onIdentifyCompleted(v swarmevent.IdentifyCompleted) {
	if v.ProtocolVersion == r.cfg.ProtocolVersion {
		r.host.Peerstore().AddAddrs(v.Peer, v.ListenAddrs, time.Hour)
		if _, err := r.dht.RoutingTable().TryAddPeer(v.Peer, true, false); err != nil {
			r.log.Debugf("runtime: dht routing table add %s: %v", v.Peer, err)
		}
	} else {
		r.log.Infof("runtime: peer %s reported protocol version %q, expected %q", v.Peer, v.ProtocolVersion, r.cfg.ProtocolVersion)
	}
	r.emit(nodeevent.IdentifyReceived{Peer: v.Peer, AgentVersion: v.AgentVersion, ProtocolVersion: v.ProtocolVersion})
}

// onReqRespEvent implements spec.md §4.2.12's inbound half; the outbound
// half (Response/OutboundFailure) is matched and consumed by the
// SendRequest command's own Observe before it ever reaches translate.
func (r *Runtime) onReqRespEvent(v reqresp.Event) {
	if v.Kind != reqresp.EventInboundRequest {
		return
	}
	id := r.env.NextPendingID()
	r.env.Pending.Insert(id, v.Responder)
	r.emit(nodeevent.InboundRequest{Peer: v.Peer, PendingID: id, Request: v.RequestData})
}

// listenOnRelayCircuit synthesizes a /p2p/<peer>/p2p-circuit listen
// address from a bootstrap peer's known addresses and starts listening on
// it, per spec.md §9's bootstrap-relay-reservation design note — deferred
// until the connection is established so we never listen on a circuit
// whose relay is unreachable.
func (r *Runtime) listenOnRelayCircuit(bootstrapPeer peer.ID, addrs []ma.Multiaddr) {
	circuitOnly, err := ma.NewMultiaddr("/p2p-circuit")
	if err != nil {
		r.log.Warnf("runtime: build circuit suffix: %v", err)
		return
	}

	for _, a := range addrs {
		base := a
		if !strings.Contains(a.String(), "/p2p/"+bootstrapPeer.String()) {
			withPeer, err := ma.NewMultiaddr(a.String() + "/p2p/" + bootstrapPeer.String())
			if err != nil {
				continue
			}
			base = withPeer
		}
		circuit := base.Encapsulate(circuitOnly)
		if err := r.host.Network().Listen(circuit); err != nil {
			r.log.Debugf("runtime: listen on relay circuit %s: %v", circuit, err)
			continue
		}
		r.log.Infof("runtime: listening on relay circuit %s", circuit)
		return
	}
}
