package commands

import (
	"time"

	"github.com/libp2p/go-libp2p/core/peer"

	"github.com/nodecore/noderuntime/errs"
)

const (
	dialTimeout       = 30 * time.Second
	peerstoreAddrTTL  = 20 * time.Second
)

func durationFromNanos(n int64) time.Duration { return time.Duration(n) }

func errNotConnected(p peer.ID) error {
	return errs.Transport("disconnect", &peerError{peer: p, err: errs.ErrNotConnected})
}

type peerError struct {
	peer peer.ID
	err  error
}

func (e *peerError) Error() string { return e.peer.String() + ": " + e.err.Error() }
func (e *peerError) Unwrap() error { return e.err }
