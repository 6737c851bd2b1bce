package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/protocol/holepunch"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/nodecore/noderuntime/internal/swarmevent"
)

// subscribeEventBus wires the handful of libp2p eventbus events spec.md
// §4.2 cares about (identify completion, reachability/AutoNAT changes, and
// local-address updates for the relay watchdog) into the runtime's swarm
// event channel, the way the teacher's SubscribeAddressChanges wires
// event.EvtLocalAddressesUpdated — generalized to the other event types
// the teacher doesn't itself consume.
func (r *Runtime) subscribeEventBus(ctx context.Context) error {
	idSub, err := r.host.EventBus().Subscribe(new(event.EvtPeerIdentificationCompleted))
	if err != nil {
		return err
	}
	reachSub, err := r.host.EventBus().Subscribe(new(event.EvtLocalReachabilityChanged))
	if err != nil {
		return err
	}
	addrSub, err := r.host.EventBus().Subscribe(new(event.EvtLocalAddressesUpdated))
	if err != nil {
		return err
	}

	go func() {
		defer idSub.Close()
		defer reachSub.Close()
		defer addrSub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-idSub.Out():
				if !ok {
					return
				}
				ev := raw.(event.EvtPeerIdentificationCompleted)
				r.pushSwarmEvent(swarmevent.IdentifyCompleted{
					Peer:            ev.Peer,
					ListenAddrs:     ev.ListenAddrs,
					ProtocolVersion: ev.ProtocolVersion,
					AgentVersion:    ev.AgentVersion,
				})
			case raw, ok := <-reachSub.Out():
				if !ok {
					return
				}
				ev := raw.(event.EvtLocalReachabilityChanged)
				r.pushSwarmEvent(reachabilityToSwarmEvent(ev.Reachability, r.host.Addrs()))
			case raw, ok := <-addrSub.Out():
				if !ok {
					return
				}
				_ = raw.(event.EvtLocalAddressesUpdated)
				r.onLocalAddressesUpdated()
			}
		}
	}()
	return nil
}

func reachabilityToSwarmEvent(reach network.Reachability, addrs []ma.Multiaddr) swarmevent.NATStatus {
	switch reach {
	case network.ReachabilityPublic:
		var pub ma.Multiaddr
		for _, a := range addrs {
			if !isCircuitAddr(a) {
				pub = a
				break
			}
		}
		return swarmevent.NATStatus{Status: swarmevent.ReachabilityPublic, PublicAddr: pub}
	case network.ReachabilityPrivate:
		return swarmevent.NATStatus{Status: swarmevent.ReachabilityPrivate}
	default:
		return swarmevent.NATStatus{Status: swarmevent.ReachabilityUnknown}
	}
}

// holepunchTracer forwards DCUtR outcomes into the runtime's swarm-event
// channel. go-libp2p's holepunch service reports results through a Tracer
// interface (holepunch.WithTracer) rather than the event bus, so this is
// the Go-idiomatic place to bridge it — there is no teacher precedent
// since the teacher never enables hole punching, so this is grounded
// directly on the go-libp2p holepunch package's own documented interface.
type holepunchTracer struct {
	r *Runtime
}

// HolepunchTracerProxy breaks the construction-order cycle between
// netstack.Build (which must pass a holepunch.Tracer into libp2p.New
// before any Runtime exists) and Runtime itself (which the tracer needs
// to forward events into). Callers pass a fresh proxy as the tracer when
// building the host, then call Bind once the Runtime is constructed;
// events traced before Bind are silently dropped, which only happens for
// the brief window between host construction and runtime assembly when
// no peer has had time to attempt a hole punch yet.
type HolepunchTracerProxy struct {
	mu     sync.Mutex
	target *Runtime
}

func NewHolepunchTracerProxy() *HolepunchTracerProxy { return &HolepunchTracerProxy{} }

func (p *HolepunchTracerProxy) Bind(r *Runtime) {
	p.mu.Lock()
	p.target = r
	p.mu.Unlock()
}

func (p *HolepunchTracerProxy) Trace(evt *holepunch.Event) {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()
	if target == nil {
		return
	}
	(&holepunchTracer{r: target}).Trace(evt)
}

func (t *holepunchTracer) Trace(evt *holepunch.Event) {
	switch e := evt.Evt.(type) {
	case *holepunch.DirectDialSucceeded:
		t.r.pushSwarmEvent(swarmevent.HolePunchResult{Peer: evt.Remote})
	case *holepunch.DirectDialFailed:
		t.r.pushSwarmEvent(swarmevent.HolePunchResult{Peer: evt.Remote, Err: errFromDialFailed(e)})
	case *holepunch.ProtocolError:
		t.r.pushSwarmEvent(swarmevent.HolePunchResult{Peer: evt.Remote, Err: errFromProtocolError(e)})
	}
}

func errFromDialFailed(e *holepunch.DirectDialFailed) error {
	if e == nil {
		return nil
	}
	return e.Error
}

func errFromProtocolError(e *holepunch.ProtocolError) error {
	if e == nil {
		return nil
	}
	return e.Error
}

// pingLoop repeatedly pings p every interval until ctx is canceled
// (canceled on disconnect), reporting only successes onto the swarm-event
// channel per spec.md §4.2.7 ("ping failure is suppressed at the core
// boundary"); a failed ping is skipped and the loop keeps going.
func (r *Runtime) pingLoop(ctx context.Context, svc *ping.PingService, p peer.ID, interval, timeout time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, timeout)
			res := <-svc.Ping(pctx, p)
			cancel()
			if res.Error == nil {
				r.pushSwarmEvent(swarmevent.PingResult{Peer: p, RTT: res.RTT})
			}
		}
	}
}
