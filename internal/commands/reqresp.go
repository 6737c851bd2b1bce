package commands

import (
	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/env"
	reqrespsvc "github.com/nodecore/noderuntime/internal/reqresp"
	"github.com/nodecore/noderuntime/internal/result"
)

// SendRequestResult carries the raw, still-codec-encoded response bytes;
// decoding into an application type is the caller's job, matching the
// Codec seam reqresp.Service exposes.
type SendRequestResult struct {
	Response []byte
}

// SendRequest opens a request/response stream to Peer and resolves once a
// response arrives, the stream fails, or the request times out. Per
// spec.md §4.6 it is matched by RequestID rather than by peer, since a
// node may have several outstanding requests to the same peer at once.
type SendRequest struct {
	command.Base
	Peer    peer.ID
	Request any

	id      uint64
	started bool
	handle  *result.Handle[SendRequestResult]
}

func NewSendRequest(p peer.ID, req any) (*SendRequest, *result.Handle[SendRequestResult]) {
	h := result.NewHandle[SendRequestResult]()
	return &SendRequest{Peer: p, Request: req, handle: h}, h
}

func (c *SendRequest) Start(e *env.Env) {
	id, err := e.ReqResp.SendRequest(e.Ctx, c.Peer, c.Request)
	c.id = id
	c.started = true
	if err != nil {
		c.handle.FinishErr(err)
	}
}

func (c *SendRequest) Observe(ev command.Event) (bool, command.Event) {
	if !c.started {
		return true, ev
	}
	switch v := ev.(type) {
	case reqrespsvc.Event:
		if v.RequestID != c.id {
			return !c.handle.Done(), ev
		}
		switch v.Kind {
		case reqrespsvc.EventResponse:
			c.handle.FinishOK(SendRequestResult{Response: v.ResponseData})
			return false, nil
		case reqrespsvc.EventOutboundFailure:
			c.handle.FinishErr(v.Err)
			return false, nil
		}
	}
	return !c.handle.Done(), ev
}

// SendResponse answers a previously received inbound request. Per
// spec.md §4.6, the client itself attempts to take the Responder out of
// the pending-channel map before ever constructing this command — if the
// id is absent (expired or already used) the client returns an error
// without touching the runtime at all. This command only runs once the
// Responder has already been claimed, so Start cannot fail on a missing
// id; it can only fail on the send itself.
type SendResponse struct {
	command.Base
	Responder *reqrespsvc.Responder
	Response  any

	handle *result.Handle[struct{}]
}

func NewSendResponse(responder *reqrespsvc.Responder, resp any) (*SendResponse, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &SendResponse{Responder: responder, Response: resp, handle: h}, h
}

func (c *SendResponse) Start(e *env.Env) {
	if err := c.Responder.Send(c.Response); err != nil {
		c.handle.FinishErr(err)
		return
	}
	c.handle.FinishOK(struct{}{})
}
