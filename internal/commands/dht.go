package commands

import (
	"context"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/routing"

	"github.com/nodecore/noderuntime/errs"
	"github.com/nodecore/noderuntime/internal/command"
	"github.com/nodecore/noderuntime/internal/env"
	"github.com/nodecore/noderuntime/internal/result"
)

// Stats is the additive progress summary spec.md §4.5 requires: each
// go-libp2p-kad-dht routing.QueryEvent we observe contributes one request,
// classified as success or failure, and the wall-clock duration taken so
// far is tracked as a running max against the previous snapshot (there is
// only ever one "in-flight" duration per command, so max degenerates to
// "latest", but the merge rule is written the general way spec.md states
// it in case a future command fans out sub-queries).
type Stats struct {
	NumRequests  int
	NumSuccesses int
	NumFailures  int
	Duration     time.Duration
}

func (s *Stats) mergeStep(success bool, elapsed time.Duration) {
	s.NumRequests++
	if success {
		s.NumSuccesses++
	} else {
		s.NumFailures++
	}
	if elapsed > s.Duration {
		s.Duration = elapsed
	}
}

// asyncDHT runs fn in a goroutine and finishes handle with its result.
// go-libp2p-kad-dht's operations are self-contained (they drive their own
// query-event loop internally via routing.RegisterForQueryEvents rather
// than handing control back to an external loop step by step), so unlike
// Dial/Disconnect/SendRequest there is no useful per-swarm-event Observe
// logic for DHT commands: Start kicks off the goroutine and returns
// immediately, keeping the runtime loop unblocked, and the command's own
// Observe (the default from command.Base) drops the command from the
// active list on the next swarm event, whether or not the goroutine has
// finished the handle yet; the goroutine finishes it either way.
func asyncDHT[T any](e *env.Env, h *result.Handle[T], fn func(ctx context.Context) (T, error)) {
	go func() {
		ctx := e.Ctx
		if e.KadQueryTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.KadQueryTimeout)
			defer cancel()
		}
		v, err := fn(ctx)
		if err != nil {
			h.FinishErr(err)
			return
		}
		h.FinishOK(v)
	}()
}

// collectQueryEvents drains a routing.QueryEvent channel, merging stats
// per spec.md §4.5 and invoking onEvent for each event so callers can
// accumulate command-specific state (a latched record, a growing peer
// set). It returns once the channel closes, which is the Go DHT client's
// equivalent of spec.md's `step.last` terminal step.
func collectQueryEvents(events <-chan *routing.QueryEvent, stats *Stats, onEvent func(*routing.QueryEvent)) {
	start := time.Now()
	for qe := range events {
		success := qe.Type != routing.QueryError
		stats.mergeStep(success, time.Since(start))
		if onEvent != nil {
			onEvent(qe)
		}
	}
}

// Bootstrap runs the DHT's self-bootstrap procedure.
type Bootstrap struct {
	command.Base
	handle *result.Handle[BootstrapResult]
}

type BootstrapResult struct {
	NumRemaining int
	Stats        Stats
}

func NewBootstrap() (*Bootstrap, *result.Handle[BootstrapResult]) {
	h := result.NewHandle[BootstrapResult]()
	return &Bootstrap{handle: h}, h
}

func (c *Bootstrap) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (BootstrapResult, error) {
		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		remaining := 0
		done := make(chan error, 1)
		go func() { done <- e.DHT.Bootstrap(qctx) }()
		collectQueryEvents(events, &stats, func(qe *routing.QueryEvent) {
			remaining = len(qe.Responses)
		})
		if err := <-done; err != nil {
			return BootstrapResult{}, errs.DHT("bootstrap", err)
		}
		return BootstrapResult{NumRemaining: remaining, Stats: stats}, nil
	})
}

// PutRecord stores a value under key with Quorum=1.
type PutRecord struct {
	command.Base
	Key   string
	Value []byte

	handle *result.Handle[Stats]
}

func NewPutRecord(key string, value []byte) (*PutRecord, *result.Handle[Stats]) {
	h := result.NewHandle[Stats]()
	return &PutRecord{Key: key, Value: value, handle: h}, h
}

func (c *PutRecord) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (Stats, error) {
		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		done := make(chan error, 1)
		go func() { done <- e.DHT.PutValue(qctx, c.Key, c.Value, routing.Quorum(1)) }()
		collectQueryEvents(events, &stats, nil)
		if err := <-done; err != nil {
			return stats, errs.DHT("put_record", err)
		}
		e.LocalRecords.StoreRecord(c.Key, c.Value)
		return stats, nil
	})
}

// GetRecord fetches a value by key. The first FoundRecord (routing.Value
// event) is latched; later errors are ignored once a record is latched.
type GetRecord struct {
	command.Base
	Key string

	handle *result.Handle[GetRecordResult]
}

type GetRecordResult struct {
	Record []byte
	Stats  Stats
}

func NewGetRecord(key string) (*GetRecord, *result.Handle[GetRecordResult]) {
	h := result.NewHandle[GetRecordResult]()
	return &GetRecord{Key: key, handle: h}, h
}

func (c *GetRecord) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (GetRecordResult, error) {
		// A record this node itself Put and has not since forgotten is
		// already known good: go-libp2p-kad-dht gives no read-your-own-write
		// guarantee over the network, so serve the local copy first rather
		// than risk a quorum-1 lookup missing the very value just stored.
		if v, ok := e.LocalRecords.CachedRecord(c.Key); ok {
			return GetRecordResult{Record: v}, nil
		}

		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		var latched []byte
		type getResult struct {
			val []byte
			err error
		}
		done := make(chan getResult, 1)
		go func() {
			v, err := e.DHT.GetValue(qctx, c.Key)
			done <- getResult{val: v, err: err}
		}()
		collectQueryEvents(events, &stats, func(qe *routing.QueryEvent) {
			if qe.Type == routing.Value && latched == nil && qe.Extra != "" {
				latched = []byte(qe.Extra)
			}
		})
		r := <-done
		if latched == nil && r.err == nil {
			latched = r.val
		}
		if latched == nil {
			return GetRecordResult{Stats: stats}, errs.DHT("get_record", errs.ErrRecordNotFound)
		}
		e.LocalRecords.StoreRecord(c.Key, latched)
		return GetRecordResult{Record: latched, Stats: stats}, nil
	})
}

// StartProvide announces this node as a provider for key.
type StartProvide struct {
	command.Base
	Key cid.Cid

	handle *result.Handle[Stats]
}

func NewStartProvide(key cid.Cid) (*StartProvide, *result.Handle[Stats]) {
	h := result.NewHandle[Stats]()
	return &StartProvide{Key: key, handle: h}, h
}

func (c *StartProvide) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (Stats, error) {
		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		done := make(chan error, 1)
		go func() { done <- e.DHT.Provide(qctx, c.Key, true) }()
		collectQueryEvents(events, &stats, nil)
		if err := <-done; err != nil {
			return stats, errs.DHT("start_provide", err)
		}
		e.LocalRecords.MarkProviding(c.Key.KeyString())
		return stats, nil
	})
}

// StopProvide is a synchronous, local-store-only operation.
type StopProvide struct {
	command.Base
	Key cid.Cid

	handle *result.Handle[struct{}]
}

func NewStopProvide(key cid.Cid) (*StopProvide, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &StopProvide{Key: key, handle: h}, h
}

func (c *StopProvide) Start(e *env.Env) {
	e.LocalRecords.StopProviding(c.Key.KeyString())
	c.handle.FinishOK(struct{}{})
}

// RemoveRecord is a synchronous, local-store-only operation.
type RemoveRecord struct {
	command.Base
	Key string

	handle *result.Handle[struct{}]
}

func NewRemoveRecord(key string) (*RemoveRecord, *result.Handle[struct{}]) {
	h := result.NewHandle[struct{}]()
	return &RemoveRecord{Key: key, handle: h}, h
}

func (c *RemoveRecord) Start(e *env.Env) {
	e.LocalRecords.Forget(c.Key)
	c.handle.FinishOK(struct{}{})
}

// GetProviders accumulates providers discovered across steps.
type GetProviders struct {
	command.Base
	Key cid.Cid

	handle *result.Handle[GetProvidersResult]
}

type GetProvidersResult struct {
	Providers []peer.ID
	Stats     Stats
}

func NewGetProviders(key cid.Cid) (*GetProviders, *result.Handle[GetProvidersResult]) {
	h := result.NewHandle[GetProvidersResult]()
	return &GetProviders{Key: key, handle: h}, h
}

func (c *GetProviders) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (GetProvidersResult, error) {
		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		seen := make(map[peer.ID]struct{})
		var providers []peer.ID

		// This node's own StartProvide/StopProvide state is authoritative
		// for itself: go-libp2p-kad-dht's network query can only ever
		// confirm a provider record this node already announced, and
		// StopProvide has no way to retract that record from the network,
		// so the local view must override whatever the query returns.
		self := e.Host.ID()
		if e.LocalRecords.IsProviding(c.Key.KeyString()) {
			seen[self] = struct{}{}
			providers = append(providers, self)
		}

		ch := e.DHT.FindProvidersAsync(qctx, c.Key, 0)
		drain := make(chan struct{})
		go func() {
			defer close(drain)
			for pi := range ch {
				if pi.ID == self && e.LocalRecords.IsSuppressed(c.Key.KeyString()) {
					continue
				}
				if _, ok := seen[pi.ID]; ok {
					continue
				}
				seen[pi.ID] = struct{}{}
				providers = append(providers, pi.ID)
			}
		}()

		collectQueryEvents(events, &stats, nil)
		<-drain
		return GetProvidersResult{Providers: providers, Stats: stats}, nil
	})
}

// GetClosestPeers accumulates peers discovered across steps.
type GetClosestPeers struct {
	command.Base
	Key string

	handle *result.Handle[GetClosestPeersResult]
}

type GetClosestPeersResult struct {
	Peers []peer.ID
	Stats Stats
}

func NewGetClosestPeers(key string) (*GetClosestPeers, *result.Handle[GetClosestPeersResult]) {
	h := result.NewHandle[GetClosestPeersResult]()
	return &GetClosestPeers{Key: key, handle: h}, h
}

func (c *GetClosestPeers) Start(e *env.Env) {
	asyncDHT(e, c.handle, func(ctx context.Context) (GetClosestPeersResult, error) {
		qctx, events := routing.RegisterForQueryEvents(ctx)
		var stats Stats
		type getResult struct {
			peers []peer.ID
			err   error
		}
		done := make(chan getResult, 1)
		go func() {
			peers, err := e.DHT.GetClosestPeers(qctx, c.Key)
			done <- getResult{peers: peers, err: err}
		}()
		collectQueryEvents(events, &stats, nil)
		r := <-done
		if r.err != nil {
			return GetClosestPeersResult{Stats: stats}, errs.DHT("get_closest_peers", r.err)
		}
		return GetClosestPeersResult{Peers: r.peers, Stats: stats}, nil
	})
}
