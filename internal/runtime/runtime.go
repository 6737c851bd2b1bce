// Package runtime implements spec.md §4.1: the single-owner event loop
// that multiplexes the external command queue with internal swarm events,
// generalized from the teacher's p2p.Node (which instead spawns one ad hoc
// goroutine per concern — RunPresenceLoop, SubscribeAddressChanges,
// StartRelayRefresh) into one `for { select { ... } }` loop.
package runtime

import (
	"context"
	"sync"
	"time"

	dhtpkg "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	ma "github.com/multiformats/go-multiaddr"

	logging "github.com/ipfs/go-log/v2"

	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/dhtlocal"
	"github.com/nodecore/noderuntime/internal/env"
	"github.com/nodecore/noderuntime/internal/pendingmap"
	"github.com/nodecore/noderuntime/internal/reqresp"
	"github.com/nodecore/noderuntime/internal/swarmevent"
)

// Config is the subset of the public Config the runtime needs directly;
// kept distinct from the root package's Config to avoid an import cycle
// (the root package imports runtime, not the reverse).
type Config struct {
	ProtocolVersion string
	BootstrapPeers  map[peer.ID][]ma.Multiaddr

	EnableMDNS    bool
	EnableDCUtR   bool
	EnableAutoNAT bool

	PingInterval time.Duration
	PingTimeout  time.Duration

	KadQueryTimeout time.Duration

	ReqRespProtocol protocol.ID
	ReqRespTimeout  time.Duration
	ReqRespTTL      time.Duration
	Codec           reqresp.Codec

	MDNSTag string
}

// Runtime owns the swarm handle and is the only entity that mutates it,
// per spec.md §5's single-cooperative-task scheduling model.
type Runtime struct {
	host host.Host
	dht  *dhtpkg.IpfsDHT
	cfg  Config
	log  *logging.ZapEventLogger

	cmdQueue *command.Queue
	events   chan any // NodeEvent values from the root package, boxed as any to avoid an import cycle

	active []command.Cmd

	swarmEvents chan any
	env         *env.Env

	nextPendingID uint64
	pendingMu     sync.Mutex

	pendingBootstrap map[peer.ID][]ma.Multiaddr
	bootstrapMu      sync.Mutex

	connCount   map[peer.ID]int
	connCountMu sync.Mutex

	pingCancel   map[peer.ID]context.CancelFunc
	pingCancelMu sync.Mutex

	lastHadCircuit bool

	mdnsService mdns.Service
}

// New assembles a Runtime around an already-built host and DHT. It does
// not start the loop — call Run for that.
func New(h host.Host, d *dhtpkg.IpfsDHT, cfg Config, log *logging.ZapEventLogger) *Runtime {
	localRecords := dhtlocal.New()
	codec := cfg.Codec
	rr := reqresp.New(h, cfg.ReqRespProtocol, codec, cfg.ReqRespTimeout, log)
	pending := pendingmap.New[*reqresp.Responder](cfg.ReqRespTTL)
	pending.SweepEvery(10 * time.Second)

	r := &Runtime{
		host:             h,
		dht:              d,
		cfg:              cfg,
		log:              log,
		cmdQueue:         command.NewQueue(64),
		events:           make(chan any, 128),
		swarmEvents:      make(chan any, 256),
		pendingBootstrap: make(map[peer.ID][]ma.Multiaddr),
		connCount:        make(map[peer.ID]int),
		pingCancel:       make(map[peer.ID]context.CancelFunc),
	}
	for p, addrs := range cfg.BootstrapPeers {
		r.pendingBootstrap[p] = addrs
	}

	r.env = &env.Env{
		Host:            h,
		DHT:             d,
		LocalRecords:    localRecords,
		ReqResp:         rr,
		Pending:         pending,
		KadQueryTimeout: cfg.KadQueryTimeout,
		NextPendingID: func() uint64 {
			r.pendingMu.Lock()
			defer r.pendingMu.Unlock()
			r.nextPendingID++
			return r.nextPendingID
		},
		Log: log,
	}
	return r
}

// Queue exposes the command queue to the public Client.
func (r *Runtime) Queue() *command.Queue { return r.cmdQueue }

// Events exposes the boxed NodeEvent channel to the public EventReceiver.
func (r *Runtime) Events() <-chan any { return r.events }

// Pending exposes the pending-channel map to the public Client, which
// performs its own take() before constructing a SendResponse command
// (spec.md §4.6).
func (r *Runtime) Pending() *pendingmap.Map[*reqresp.Responder] { return r.env.Pending }

func (r *Runtime) pushSwarmEvent(ev any) {
	select {
	case r.swarmEvents <- ev:
	default:
		r.log.Warnf("runtime: swarm event channel full, dropping %T", ev)
	}
}

// Run starts the host's ancillary services (mDNS, ping, holepunch tracer,
// eventbus bridges, reqresp stream handler — already registered by New),
// dials configured bootstrap peers, and then runs the multiplex loop until
// the command queue is closed. It blocks until shutdown.
func (r *Runtime) Run(ctx context.Context) {
	r.env.Ctx = ctx

	if r.cfg.EnableMDNS {
		tag := r.cfg.MDNSTag
		if tag == "" {
			tag = "noderuntime-mdns"
		}
		r.mdnsService = mdns.NewMdnsService(r.host, tag, &mdnsNotifee{r: r})
		if err := r.mdnsService.Start(); err != nil {
			r.log.Warnf("runtime: mdns start failed: %v", err)
		}
	}

	r.host.Network().Notify(&netNotifiee{r: r})

	if err := r.subscribeEventBus(ctx); err != nil {
		r.log.Warnf("runtime: eventbus subscribe failed: %v", err)
	}

	pingSvc := ping.NewPingService(r.host)

	go func() {
		for ev := range r.env.ReqResp.Events() {
			r.pushSwarmEvent(ev)
		}
	}()

	r.startRelayWatchdog(ctx)

	for p, addrs := range r.cfg.BootstrapPeers {
		r.host.Peerstore().AddAddrs(p, addrs, 10*time.Minute)
		go func(p peer.ID) {
			dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			_ = r.host.Connect(dctx, peerAddrInfo(p))
		}(p)
	}

	r.loop(ctx, pingSvc)
}

func peerAddrInfo(p peer.ID) peer.AddrInfo { return peer.AddrInfo{ID: p} }

// loop is the two-way multiplex of spec.md §4.1: one command or one swarm
// event per iteration, then back around.
func (r *Runtime) loop(ctx context.Context, pingSvc *ping.PingService) {
	defer close(r.events)
	defer r.dht.Close()

	for {
		select {
		case <-r.cmdQueue.StopChan():
			return
		case cmd, ok := <-r.cmdQueue.Chan():
			if !ok {
				return
			}
			r.ingest(cmd)
		case ev := <-r.swarmEvents:
			r.dispatch(ctx, ev, pingSvc)
		}
	}
}

// ingest gives a freshly submitted command its first turn (spec.md §4.1,
// "Command ingestion"): Start runs, then the command always joins the
// active-command list, even if Start already finished it synchronously.
// A command finished this way is harmless to keep around — its own
// Observe (or the command.Base default) drops it on the very next swarm
// event — and keeping ingest unconditional avoids a redundant Done()
// check here that every Observe implementation already has to make.
func (r *Runtime) ingest(cmd command.Cmd) {
	cmd.Start(r.env)
	r.active = append(r.active, cmd)
}

// dispatch walks the active-command list with one swarm event, per
// spec.md's consume/pass-through observer contract, then hands whatever
// remains to event translation. Removal is swap-with-last.
func (r *Runtime) dispatch(ctx context.Context, ev any, pingSvc *ping.PingService) {
	remaining := ev
	i := 0
	for i < len(r.active) {
		keep, rem := r.active[i].Observe(remaining)
		remaining = rem
		if !keep {
			last := len(r.active) - 1
			r.active[i] = r.active[last]
			r.active = r.active[:last]
			if remaining == nil {
				break
			}
			continue
		}
		i++
		if remaining == nil {
			break
		}
	}
	if remaining != nil {
		r.translate(ctx, remaining, pingSvc)
	}
}

// emit pushes a public NodeEvent onto the boxed events channel; it never
// blocks forever (the channel is large and the application is expected to
// drain it) but will drop under sustained backpressure rather than stall
// the loop, logging a warning — matching spec.md §7's "never panics, logs
// and continues" policy.
func (r *Runtime) emit(ev any) {
	select {
	case r.events <- ev:
	default:
		r.log.Warnf("runtime: event channel full, dropping %T", ev)
	}
}

func isCircuitAddr(a ma.Multiaddr) bool {
	for _, p := range a.Protocols() {
		if p.Code == ma.P_CIRCUIT {
			return true
		}
	}
	return false
}
