// Package noderuntime is a peer-to-peer networking library built on
// go-libp2p: an application calls Start to obtain a long-lived node that
// discovers peers over mDNS and a Kademlia DHT, traverses NATs via relayed
// circuits and hole punching, and exchanges typed request/response
// messages — all mediated by a single-owner asynchronous command/event
// runtime (internal/runtime).
package noderuntime

import (
	"context"
	"fmt"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	nrlog "github.com/nodecore/noderuntime/internal/logging"
	"github.com/nodecore/noderuntime/internal/netstack"
	"github.com/nodecore/noderuntime/internal/runtime"
)

// Start builds the host and DHT from identity and config, launches the
// runtime loop in the background, and returns a Client/EventReceiver pair
// per spec.md §6's library surface. The returned Client is safe to clone;
// the EventReceiver is not.
func Start(ctx context.Context, identity crypto.PrivKey, cfg Config) (Client, EventReceiver, error) {
	log := nrlog.Logger("node")

	bootstrapPeers := make(map[peer.ID][]ma.Multiaddr, len(cfg.BootstrapPeers))
	var relayCandidate *peer.AddrInfo
	for _, bp := range cfg.BootstrapPeers {
		bootstrapPeers[bp.Peer] = bp.Addrs
		if relayCandidate == nil {
			relayCandidate = &peer.AddrInfo{ID: bp.Peer, Addrs: bp.Addrs}
		}
	}

	tracerProxy := runtime.NewHolepunchTracerProxy()

	built, err := netstack.Build(ctx, log, netstack.Options{
		Identity:          identity,
		AgentVersion:      cfg.AgentVersion,
		ListenAddrs:       cfg.ListenAddrs,
		ExternalAddrs:     cfg.ExternalAddrs,
		IdleConnTimeout:   cfg.IdleConnTimeout,
		EnableRelayClient: cfg.EnableRelayClient,
		EnableDCUtR:       cfg.EnableDCUtR,
		EnableAutoNAT:     cfg.EnableAutoNAT,
		KadServerMode:     cfg.KadServerMode,
		BootstrapRelay:    relayCandidate,
		HolePunchTracer:   tracerProxy,
	})
	if err != nil {
		return Client{}, EventReceiver{}, fmt.Errorf("noderuntime: start: %w", err)
	}

	rt := runtime.New(built.Host, built.DHT, runtime.Config{
		ProtocolVersion: cfg.ProtocolVersion,
		BootstrapPeers:  bootstrapPeers,
		EnableMDNS:      cfg.EnableMDNS,
		EnableDCUtR:     cfg.EnableDCUtR,
		EnableAutoNAT:   cfg.EnableAutoNAT,
		PingInterval:    cfg.PingInterval,
		PingTimeout:     cfg.PingTimeout,
		KadQueryTimeout: cfg.KadQueryTimeout,
		ReqRespProtocol: cfg.ReqRespProtocol,
		ReqRespTimeout:  cfg.ReqRespTimeout,
		ReqRespTTL:      cfg.ReqRespTimeout,
		Codec:           cfg.Codec,
	}, log)
	tracerProxy.Bind(rt)

	go rt.Run(ctx)

	client := Client{queue: rt.Queue(), pending: rt.Pending()}
	receiver := EventReceiver{ch: rt.Events()}
	return client, receiver, nil
}
