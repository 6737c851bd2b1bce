// Package errs defines the runtime's error taxonomy. Errors are grouped by
// kind, not by concrete type, matching the categories a Client caller needs
// to branch on: transport, DHT, request/response, behavior and
// configuration failures.
package errs

import "errors"

// Sentinel errors for conditions callers commonly check with errors.Is.
var (
	// ErrChannelClosed is returned to a command's awaiter when the runtime
	// shuts down before the command finished.
	ErrChannelClosed = errors.New("noderuntime: command channel closed")

	// ErrNotConnected is returned by Disconnect when there is no
	// connection to the target peer.
	ErrNotConnected = errors.New("noderuntime: peer not connected")

	// ErrNoPendingChannel is returned by SendResponse when pending_id is
	// unknown, already used, or expired past its TTL.
	ErrNoPendingChannel = errors.New("noderuntime: no pending channel for id")

	// ErrRecordNotFound is returned by GetRecord when the DHT query
	// completed without locating a record.
	ErrRecordNotFound = errors.New("noderuntime: record not found")
)

// Kind classifies an error for logging and metrics purposes.
type Kind int

const (
	KindTransport Kind = iota
	KindDHT
	KindReqResp
	KindBehavior
	KindConfiguration
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindDHT:
		return "dht"
	case KindReqResp:
		return "reqresp"
	case KindBehavior:
		return "behavior"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind so callers can branch on the
// category of failure without depending on concrete error types.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed Error of the given kind.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Transport wraps a transport-layer error (listen, dial, authenticate).
func Transport(op string, err error) error { return New(KindTransport, op, err) }

// DHT wraps a DHT operation error.
func DHT(op string, err error) error { return New(KindDHT, op, err) }

// ReqResp wraps a request/response error (timeout, channel closed, protocol failure).
func ReqResp(op string, err error) error { return New(KindReqResp, op, err) }

// Behavior wraps a generic signaling error ("command channel closed", etc).
func Behavior(op string, err error) error { return New(KindBehavior, op, err) }

// Configuration wraps a configuration validation error.
func Configuration(op string, err error) error { return New(KindConfiguration, op, err) }
