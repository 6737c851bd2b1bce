// Package commands implements the concrete commands of spec.md §4.4–§4.6:
// connection/address-book operations, DHT queries, and request/response.
package commands

import (
	"context"
	"sort"

	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/env"
	"github.com/nodecore/noderuntime/internal/result"
	"github.com/nodecore/noderuntime/internal/swarmevent"
)

// Dial connects to Peer if not already connected. Per spec.md §4.4 it does
// not consume ConnectionEstablished/OutgoingConnectionError for Peer, so
// PeerConnected still surfaces through event translation even though this
// command is also watching for it.
type Dial struct {
	command.Base
	Peer peer.ID

	handle *result.Handle[struct{}]
}

func NewDial(p peer.ID) (*Dial, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &Dial{Peer: p, handle: h}, h
}

func (c *Dial) Start(e *env.Env) {
	if e.Host.Network().Connectedness(c.Peer) == network.Connected {
		c.handle.FinishOK(struct{}{})
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(e.Ctx, dialTimeout)
		defer cancel()
		if err := e.Host.Connect(ctx, peer.AddrInfo{ID: c.Peer}); err != nil {
			// No event source in this module emits OutgoingConnError, so
			// this direct finish is what reports a failed dial; a
			// successful one is reported by ConnEstablished in Observe.
			c.handle.FinishErr(err)
		}
	}()
}

func (c *Dial) Observe(ev command.Event) (bool, command.Event) {
	switch v := ev.(type) {
	case swarmevent.ConnEstablished:
		if v.Peer == c.Peer {
			c.handle.FinishOK(struct{}{})
		}
		return !c.handle.Done(), ev
	case swarmevent.OutgoingConnError:
		if v.Peer == c.Peer {
			c.handle.FinishErr(v.Err)
		}
		return !c.handle.Done(), ev
	}
	return !c.handle.Done(), ev
}

// Disconnect closes all connections to Peer. It does not consume
// ConnectionClosed for Peer, so PeerDisconnected still surfaces.
type Disconnect struct {
	command.Base
	Peer peer.ID

	handle *result.Handle[struct{}]
}

func NewDisconnect(p peer.ID) (*Disconnect, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &Disconnect{Peer: p, handle: h}, h
}

func (c *Disconnect) Start(e *env.Env) {
	if e.Host.Network().Connectedness(c.Peer) != network.Connected {
		c.handle.FinishErr(errNotConnected(c.Peer))
		return
	}
	_ = e.Host.Network().ClosePeer(c.Peer)
}

func (c *Disconnect) Observe(ev command.Event) (bool, command.Event) {
	if v, ok := ev.(swarmevent.ConnClosed); ok && v.Peer == c.Peer && v.Remaining == 0 {
		c.handle.FinishOK(struct{}{})
	}
	return !c.handle.Done(), ev
}

// IsConnected is answered synchronously inside Start.
type IsConnected struct {
	command.Base
	Peer peer.ID

	handle *result.Handle[bool]
}

func NewIsConnected(p peer.ID) (*IsConnected, *result.Handle[bool]) {
	h := result.NewHandle[bool]()
	return &IsConnected{Peer: p, handle: h}, h
}

func (c *IsConnected) Start(e *env.Env) {
	c.handle.FinishOK(e.Host.Network().Connectedness(c.Peer) == network.Connected)
}

// GetListenAddrs answers synchronously with the union of listener and
// external addresses, sorted and de-duplicated.
type GetListenAddrs struct {
	command.Base

	handle *result.Handle[[]ma.Multiaddr]
}

func NewGetListenAddrs() (*GetListenAddrs, *result.Handle[[]ma.Multiaddr]) {
	h := result.NewHandle[[]ma.Multiaddr]()
	return &GetListenAddrs{handle: h}, h
}

func (c *GetListenAddrs) Start(e *env.Env) {
	seen := make(map[string]ma.Multiaddr)
	for _, a := range e.Host.Network().ListenAddresses() {
		seen[a.String()] = a
	}
	for _, a := range e.Host.Addrs() {
		seen[a.String()] = a
	}

	out := make([]ma.Multiaddr, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	c.handle.FinishOK(out)
}

// AddPeerAddrs adds addresses to the swarm address book synchronously.
type AddPeerAddrs struct {
	command.Base
	Peer  peer.ID
	Addrs []ma.Multiaddr
	TTL   int64 // nanoseconds; zero means peerstoreAddrTTL

	handle *result.Handle[struct{}]
}

func NewAddPeerAddrs(p peer.ID, addrs []ma.Multiaddr, ttl int64) (*AddPeerAddrs, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &AddPeerAddrs{Peer: p, Addrs: addrs, TTL: ttl, handle: h}, h
}

func (c *AddPeerAddrs) Start(e *env.Env) {
	ttl := peerstoreAddrTTL
	if c.TTL > 0 {
		ttl = durationFromNanos(c.TTL)
	}
	e.Host.Peerstore().AddAddrs(c.Peer, c.Addrs, ttl)
	c.handle.FinishOK(struct{}{})
}
