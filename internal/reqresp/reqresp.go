// Package reqresp implements the request/response sub-behavior: a single
// libp2p stream protocol used to exchange one request for one response.
//
// spec.md places the exact wire encoding out of scope; this package
// supplies the concrete default (newline-delimited JSON over a dedicated
// stream per request), grounded on the teacher's internal/mq package
// ("Wire format: newline-delimited JSON on a persistent libp2p stream")
// and internal/proto's stream-protocol-ID convention. Applications may
// substitute their own Codec.
package reqresp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	logging "github.com/ipfs/go-log/v2"

	"github.com/nodecore/noderuntime/errs"
)

// Codec marshals and unmarshals request/response payloads. The default is
// JSON; applications wanting a different wire format supply their own.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// JSONCodec is the default Codec.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// EventKind distinguishes the three ways a reqresp.Event can arise.
type EventKind int

const (
	// EventInboundRequest is produced when a peer opens a request stream
	// to us. It is not owned by any active command — it flows straight to
	// event translation (spec.md §4.2.12).
	EventInboundRequest EventKind = iota
	// EventResponse is produced when our previously sent request receives
	// a response. It is matched against the SendRequest command that
	// issued RequestID.
	EventResponse
	// EventOutboundFailure is produced when a previously sent request
	// fails (dial error, stream reset, timeout, decode failure).
	EventOutboundFailure
)

// Event is the synthetic swarm event this sub-behavior feeds into the
// runtime's merged event stream, alongside libp2p eventbus events, mDNS
// discoveries and DHT query progress.
type Event struct {
	Kind      EventKind
	Peer      peer.ID
	RequestID uint64 // outbound correlation id; zero for EventInboundRequest

	// RequestData holds the raw decoded inbound request, Responder the
	// single-use handle used to answer it. Both are set only on
	// EventInboundRequest.
	RequestData []byte
	Responder   *Responder

	// ResponseData holds the raw decoded response. Set only on EventResponse.
	ResponseData []byte

	Err error
}

// Responder is the pending-channel-map's stored value: a single-use
// handle for answering one inbound request. It is Send but not Sync,
// matching spec.md §3's note on the pending-channel map's value type.
type Responder struct {
	stream network.Stream
	codec  Codec
}

// Send marshals resp with the service's codec, writes it to the stream
// and closes it. A second call fails with a write error, because the
// first call already closed the stream.
func (r *Responder) Send(resp any) error {
	defer r.stream.Close()
	b, err := r.codec.Marshal(resp)
	if err != nil {
		return errs.ReqResp("marshal response", err)
	}
	b = append(b, '\n')
	if _, err := r.stream.Write(b); err != nil {
		return errs.ReqResp("write response", err)
	}
	return nil
}

// Reject resets the underlying stream without writing a response. No code
// in this module calls it; SendResponse only calls Send.
func (r *Responder) Reject() {
	_ = r.stream.Reset()
}

// Service owns the request/response stream protocol handler, outbound
// request bookkeeping, and the merged event channel the runtime reads.
type Service struct {
	host    host.Host
	proto   protocol.ID
	codec   Codec
	timeout time.Duration

	events  chan Event
	nextReq atomic.Uint64

	log *logging.ZapEventLogger
}

// New registers the stream handler for protoID and returns a Service
// ready to send and receive requests. Events arriving before the runtime
// starts draining them block the producing goroutine once the buffer
// fills, same as any other bounded channel in this module.
func New(h host.Host, protoID protocol.ID, codec Codec, timeout time.Duration, log *logging.ZapEventLogger) *Service {
	if codec == nil {
		codec = JSONCodec{}
	}
	s := &Service{
		host:    h,
		proto:   protoID,
		codec:   codec,
		timeout: timeout,
		events:  make(chan Event, 64),
		log:     log,
	}
	h.SetStreamHandler(protoID, s.handleInbound)
	return s
}

// Events is the channel the runtime selects on alongside other swarm
// event sources.
func (s *Service) Events() <-chan Event { return s.events }

// handleInbound reads exactly one newline-delimited request from a freshly
// opened stream and emits EventInboundRequest. It never writes back; that
// is SendResponse's job via the Responder stashed in the pending map by
// the runtime's event-translation step.
func (s *Service) handleInbound(stream network.Stream) {
	_ = stream.SetReadDeadline(time.Now().Add(s.timeout))
	rd := bufio.NewReader(stream)
	line, err := rd.ReadBytes('\n')
	if err != nil {
		s.log.Warnf("reqresp: failed to read inbound request from %s: %v", stream.Conn().RemotePeer(), err)
		_ = stream.Reset()
		return
	}

	s.events <- Event{
		Kind:        EventInboundRequest,
		Peer:        stream.Conn().RemotePeer(),
		RequestData: line,
		Responder:   &Responder{stream: stream, codec: s.codec},
	}
}

// SendRequest opens a new stream to peer p, waiting up to the service
// timeout for that, then spawns a goroutine that writes req, waits for the
// newline-delimited response (or failure) and reports it on the Events
// channel tagged with the returned request id. Only the stream opening
// happens on the caller's goroutine; writing and reading do not.
func (s *Service) SendRequest(ctx context.Context, p peer.ID, req any) (uint64, error) {
	id := s.nextReq.Add(1)

	payload, err := s.codec.Marshal(req)
	if err != nil {
		return id, errs.ReqResp("marshal request", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stream, err := s.host.NewStream(streamCtx, p, s.proto)
	cancel()
	if err != nil {
		return id, errs.ReqResp("open stream", err)
	}

	go s.awaitResponse(stream, p, id, payload)
	return id, nil
}

func (s *Service) awaitResponse(stream network.Stream, p peer.ID, id uint64, payload []byte) {
	defer stream.Close()

	_ = stream.SetDeadline(time.Now().Add(s.timeout))
	payload = append(payload, '\n')
	if _, err := stream.Write(payload); err != nil {
		s.events <- Event{Kind: EventOutboundFailure, Peer: p, RequestID: id, Err: errs.ReqResp("write request", err)}
		return
	}

	rd := bufio.NewReader(stream)
	line, err := rd.ReadBytes('\n')
	if err != nil {
		s.events <- Event{Kind: EventOutboundFailure, Peer: p, RequestID: id, Err: errs.ReqResp("read response", err)}
		return
	}

	s.events <- Event{Kind: EventResponse, Peer: p, RequestID: id, ResponseData: line}
}

// String returns the protocol id this service is registered under, for
// diagnostics.
func (s *Service) String() string {
	return fmt.Sprintf("reqresp(%s)", s.proto)
}
