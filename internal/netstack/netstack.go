// Package netstack builds the libp2p host and Kademlia DHT from a Config,
// generalizing the teacher's single-purpose libp2p.New(opts...) call in
// p2p/node.go (TCP listener, optional static-relay autorelay) into the full
// transport/security/muxer stack spec.md §3's domain-stack section
// enumerates: TCP + QUIC, Noise, Yamux, connection manager, identify
// (built into libp2p.New), circuit relay v2 client + AutoRelay, DCUtR,
// AutoNAT, and go-libp2p-kad-dht. mDNS is not set up here; the runtime
// starts it.
package netstack

import (
	"context"
	"fmt"
	"time"

	dht "github.com/libp2p/go-libp2p-kad-dht"

	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"
	"github.com/libp2p/go-libp2p/p2p/host/autorelay"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/protocol/holepunch"
	ma "github.com/multiformats/go-multiaddr"

	logging "github.com/ipfs/go-log/v2"
)

// BuiltHost bundles the host and DHT together, mirroring the teacher's
// practice of returning one struct from its New constructor (internal/p2p.Node)
// instead of several loose values.
type BuiltHost struct {
	Host host.Host
	DHT  *dht.IpfsDHT
}

// Options is the subset of the public Config the host builder needs; kept
// separate from the root package's Config to avoid an import cycle between
// the root package and internal/netstack.
type Options struct {
	Identity     crypto.PrivKey
	AgentVersion string
	ListenAddrs  []ma.Multiaddr

	// ExternalAddrs are advertised to peers (identify, DHT, relay
	// reservations) in addition to whatever the host actually bound, but
	// no listener is opened on them — for a port-forwarded or otherwise
	// NAT'd bootstrap node whose externally reachable address isn't owned
	// by any local interface and can't be bound directly.
	ExternalAddrs []ma.Multiaddr

	IdleConnTimeout   time.Duration // connection manager grace period
	EnableRelayClient bool
	EnableDCUtR       bool
	EnableAutoNAT     bool
	KadServerMode     bool
	BootstrapRelay    *peer.AddrInfo // first bootstrap peer, used as a static AutoRelay candidate

	// HolePunchTracer, if non-nil, receives DCUtR outcome events. Callers
	// that need those events before a Runtime exists pass a
	// runtime.HolepunchTracerProxy and Bind it afterwards.
	HolePunchTracer holepunch.Tracer
}

// Build constructs a fully wired host.Host plus its companion DHT. The DHT
// is built via dht.New with libp2p.Routing so the host's own address
// update stream and the DHT's routing table share the same event bus,
// matching how go-libp2p-kad-dht is meant to be composed with libp2p.New.
func Build(ctx context.Context, log *logging.ZapEventLogger, opts Options) (*BuiltHost, error) {
	cmOpts := []connmgr.Option{}
	if opts.IdleConnTimeout > 0 {
		cmOpts = append(cmOpts, connmgr.WithGracePeriod(opts.IdleConnTimeout))
	}
	cm, err := connmgr.NewConnManager(64, 256, cmOpts...)
	if err != nil {
		return nil, fmt.Errorf("netstack: connection manager: %w", err)
	}

	var kadDHT *dht.IpfsDHT

	libp2pOpts := []libp2p.Option{
		libp2p.Identity(opts.Identity),
		libp2p.ListenAddrs(opts.ListenAddrs...),
		libp2p.DefaultTransports,
		libp2p.DefaultSecurity,
		libp2p.DefaultMuxers,
		libp2p.ConnectionManager(cm),
	}
	if opts.AgentVersion != "" {
		libp2pOpts = append(libp2pOpts, libp2p.UserAgent(opts.AgentVersion))
	}
	if len(opts.ExternalAddrs) > 0 {
		extra := opts.ExternalAddrs
		libp2pOpts = append(libp2pOpts, libp2p.AddrsFactory(func(addrs []ma.Multiaddr) []ma.Multiaddr {
			return append(addrs, extra...)
		}))
	}
	libp2pOpts = append(libp2pOpts,
		libp2p.Routing(func(h host.Host) (routing.PeerRouting, error) {
			mode := dht.ModeClient
			if opts.KadServerMode {
				mode = dht.ModeServer
			}
			var err error
			kadDHT, err = dht.New(ctx, h, dht.Mode(mode))
			return kadDHT, err
		}),
	)

	if opts.EnableRelayClient {
		relayOpts := []libp2p.Option{libp2p.EnableRelay()}
		if opts.BootstrapRelay != nil {
			relayOpts = append(relayOpts,
				libp2p.EnableAutoRelayWithStaticRelays([]peer.AddrInfo{*opts.BootstrapRelay},
					autorelay.WithBootDelay(0),
				),
			)
		}
		libp2pOpts = append(libp2pOpts, relayOpts...)
	}
	if opts.EnableDCUtR {
		if opts.HolePunchTracer != nil {
			libp2pOpts = append(libp2pOpts, libp2p.EnableHolePunching(holepunch.WithTracer(opts.HolePunchTracer)))
		} else {
			libp2pOpts = append(libp2pOpts, libp2p.EnableHolePunching())
		}
	}
	if opts.EnableAutoNAT {
		libp2pOpts = append(libp2pOpts, libp2p.EnableNATService())
	}

	h, err := libp2p.New(libp2pOpts...)
	if err != nil {
		return nil, fmt.Errorf("netstack: build host: %w", err)
	}
	if kadDHT == nil {
		_ = h.Close()
		return nil, fmt.Errorf("netstack: DHT was not constructed by libp2p.Routing")
	}

	log.Infof("netstack: host %s listening on %v", h.ID(), h.Addrs())
	return &BuiltHost{Host: h, DHT: kadDHT}, nil
}
