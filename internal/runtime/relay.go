package runtime

import (
	"context"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/net/swarm"

	"github.com/nodecore/noderuntime/internal/swarmevent"
)

// relayRefreshInterval mirrors the teacher's StartRelayRefresh call site
// (internal/app wires a fixed interval there); here it is a runtime
// constant rather than a configurable knob since spec.md doesn't name one.
const relayRefreshInterval = 5 * time.Minute

// onLocalAddressesUpdated is called for every event.EvtLocalAddressesUpdated;
// it detects circuit-address appearance/loss and, on loss, runs the same
// recovery the teacher's recoverRelay performs: clear dial backoff,
// re-add the relay's peerstore addresses, and reconnect.
func (r *Runtime) onLocalAddressesUpdated() {
	hasCircuit := r.hostHasCircuitAddr()
	if hasCircuit == r.lastHadCircuit {
		return
	}
	r.lastHadCircuit = hasCircuit

	relayPeer, ok := r.firstBootstrapAsRelay()
	if !ok {
		return
	}

	if hasCircuit {
		r.pushSwarmEvent(swarmevent.RelayReservation{RelayPeer: relayPeer, Renewal: true})
		return
	}

	r.log.Infof("runtime: relay circuit address lost, recovering")
	go r.recoverRelay(r.env.Ctx, relayPeer)
}

func (r *Runtime) hostHasCircuitAddr() bool {
	for _, a := range r.host.Addrs() {
		if isCircuitAddr(a) {
			return true
		}
	}
	return false
}

// firstBootstrapAsRelay returns one configured bootstrap peer as the relay
// peer to recover against. BootstrapPeers is a map, so with several
// bootstrap peers which one is returned is not defined and may differ
// between calls. Nodes without any bootstrap peer have no relay to watch,
// so the watchdog is a no-op for them.
func (r *Runtime) firstBootstrapAsRelay() (peer.ID, bool) {
	for p := range r.cfg.BootstrapPeers {
		return p, true
	}
	return "", false
}

// recoverRelay ports the teacher's Node.recoverRelay: give autorelay a
// moment to self-heal, then forcibly close stale connections, clear swarm
// dial backoff, re-add peerstore addresses, and reconnect.
func (r *Runtime) recoverRelay(ctx context.Context, relayPeer peer.ID) {
	select {
	case <-time.After(5 * time.Second):
	case <-ctx.Done():
		return
	}

	if r.hostHasCircuitAddr() {
		return
	}

	for _, c := range r.host.Network().ConnsToPeer(relayPeer) {
		_ = c.Close()
	}
	if sw, ok := r.host.Network().(*swarm.Swarm); ok {
		sw.Backoff().Clear(relayPeer)
	}
	addrs := r.host.Peerstore().Addrs(relayPeer)
	r.host.Peerstore().AddAddrs(relayPeer, addrs, 10*time.Minute)

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := r.host.Connect(connCtx, r.host.Peerstore().PeerInfo(relayPeer)); err != nil {
		r.log.Warnf("runtime: relay recovery connect failed: %v", err)
	}
}

// startRelayWatchdog runs the teacher's StartRelayRefresh: every
// relayRefreshInterval it checks for a circuit address and, when the host
// has none, runs recoverRelay. A reservation whose circuit address is
// still advertised is left alone, even if its data path is broken.
func (r *Runtime) startRelayWatchdog(ctx context.Context) {
	relayPeer, ok := r.firstBootstrapAsRelay()
	if !ok {
		return
	}
	go func() {
		t := time.NewTicker(relayRefreshInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if r.hostHasCircuitAddr() {
					continue
				}
				r.log.Debugf("runtime: relay watchdog forcing refresh for %s", relayPeer)
				go r.recoverRelay(ctx, relayPeer)
			}
		}
	}()
}
