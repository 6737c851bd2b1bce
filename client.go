package noderuntime

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/nodecore/noderuntime/errs"
	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/commands"
	"github.com/nodecore/noderuntime/internal/pendingmap"
	"github.com/nodecore/noderuntime/internal/reqresp"
)

// Client is cheap to clone per spec.md §4.7: it carries only a queue
// handle and a reference to the pending-channel map, mirroring the
// teacher's own habit of passing small struct-of-channels values around
// (e.g. mq.Manager) rather than the whole Node.
type Client struct {
	queue   *command.Queue
	pending *pendingmap.Map[*reqresp.Responder]
}

// Shutdown drops the command sender, triggering runtime shutdown — the
// next attempted Submit on this (or any cloned) Client fails with
// errs.ErrChannelClosed.
func (c Client) Shutdown() {
	c.queue.Close()
}

func (c Client) Dial(ctx context.Context, p peer.ID) error {
	cmd, h := commands.NewDial(p)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

func (c Client) IsConnected(ctx context.Context, p peer.ID) (bool, error) {
	cmd, h := commands.NewIsConnected(p)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) Disconnect(ctx context.Context, p peer.ID) error {
	cmd, h := commands.NewDisconnect(p)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

func (c Client) GetListenAddrs(ctx context.Context) ([]ma.Multiaddr, error) {
	cmd, h := commands.NewGetListenAddrs()
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) AddPeerAddrs(ctx context.Context, p peer.ID, addrs []ma.Multiaddr) error {
	cmd, h := commands.NewAddPeerAddrs(p, addrs, 0)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

func (c Client) Bootstrap(ctx context.Context) (commands.BootstrapResult, error) {
	cmd, h := commands.NewBootstrap()
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) GetRecord(ctx context.Context, key string) (commands.GetRecordResult, error) {
	cmd, h := commands.NewGetRecord(key)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) PutRecord(ctx context.Context, key string, value []byte) (commands.Stats, error) {
	cmd, h := commands.NewPutRecord(key, value)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) StartProvide(ctx context.Context, key cid.Cid) (commands.Stats, error) {
	cmd, h := commands.NewStartProvide(key)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) StopProvide(ctx context.Context, key cid.Cid) error {
	cmd, h := commands.NewStopProvide(key)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

func (c Client) RemoveRecord(ctx context.Context, key string) error {
	cmd, h := commands.NewRemoveRecord(key)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

func (c Client) GetProviders(ctx context.Context, key cid.Cid) (commands.GetProvidersResult, error) {
	cmd, h := commands.NewGetProviders(key)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) GetClosestPeers(ctx context.Context, key string) (commands.GetClosestPeersResult, error) {
	cmd, h := commands.NewGetClosestPeers(key)
	return command.Await(ctx, c.queue, cmd, h)
}

func (c Client) SendRequest(ctx context.Context, p peer.ID, req any) ([]byte, error) {
	cmd, h := commands.NewSendRequest(p, req)
	res, err := command.Await(ctx, c.queue, cmd, h)
	if err != nil {
		return nil, err
	}
	return res.Response, nil
}

// SendResponse answers a previously delivered InboundRequest. Per
// spec.md §4.6 the take happens here, in the client, before any command
// is ever constructed: if pendingID is absent the error is returned
// directly without going near the runtime loop.
func (c Client) SendResponse(ctx context.Context, pendingID uint64, resp any) error {
	responder, ok := c.pending.Take(pendingID)
	if !ok {
		return errs.ReqResp("send_response", errs.ErrNoPendingChannel)
	}
	cmd, h := commands.NewSendResponse(responder, resp)
	_, err := command.Await(ctx, c.queue, cmd, h)
	return err
}

// EventReceiver is single-owner and exposes only Recv, per spec.md §4.7.
type EventReceiver struct {
	ch <-chan any
}

// Recv returns the next NodeEvent, or ok=false once the runtime has shut
// down and the event channel has drained and closed.
func (r EventReceiver) Recv(ctx context.Context) (NodeEvent, bool) {
	select {
	case ev, ok := <-r.ch:
		if !ok {
			return nil, false
		}
		return ev.(NodeEvent), true
	case <-ctx.Done():
		return nil, false
	}
}
