// Package dhtlocal is the local store spec.md's table calls for behind
// StopProvide, RemoveRecord, and their counterparts StartProvide/PutRecord:
// go-libp2p-kad-dht exposes no network "unprovide" RPC (providers simply
// expire on their own TTL) and no read-your-own-write guarantee for values
// it just put, so this package is the node's own record of what it
// believes it is providing and what it has cached, consulted by
// GetProviders/GetRecord before either one goes to the network.
package dhtlocal

import "sync"

// Tracker holds the local-only state for a node's own provider/record
// bookkeeping. All methods are safe for concurrent use; the DHT commands
// call them from their own query goroutines as well as from the runtime
// goroutine.
type Tracker struct {
	mu sync.Mutex

	providing map[string]struct{} // keys this node currently advertises itself as a provider for
	records   map[string][]byte   // values this node has put or fetched and still considers current
	forgotten map[string]struct{} // keys explicitly forgotten since their last Put/record
}

func New() *Tracker {
	return &Tracker{
		providing: make(map[string]struct{}),
		records:   make(map[string][]byte),
		forgotten: make(map[string]struct{}),
	}
}

// MarkProviding records that this node has successfully announced itself
// as a provider for key; called after StartProvide's network Provide call
// succeeds. It clears any earlier StopProviding suppression for the key.
func (t *Tracker) MarkProviding(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providing[key] = struct{}{}
}

// StopProviding suppresses key: this node no longer considers itself a
// provider, so GetProviders omits it from a locally-augmented result even
// though go-libp2p-kad-dht has no way to retract the DHT-visible record.
func (t *Tracker) StopProviding(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.providing, key)
}

// IsProviding reports whether this node currently considers itself an
// active provider for key.
func (t *Tracker) IsProviding(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.providing[key]
	return ok
}

// IsSuppressed reports whether this node is not currently an active
// provider for key, i.e. StopProviding ran more recently than MarkProviding
// (or MarkProviding was never called).
func (t *Tracker) IsSuppressed(key string) bool {
	return !t.IsProviding(key)
}

// StoreRecord caches value under key, as if this node had just learned it
// via PutRecord; it clears any earlier RemoveRecord for the key.
func (t *Tracker) StoreRecord(key string, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[key] = value
	delete(t.forgotten, key)
}

// CachedRecord returns the locally cached value for key, if this node has
// one and it has not since been forgotten.
func (t *Tracker) CachedRecord(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, gone := t.forgotten[key]; gone {
		return nil, false
	}
	v, ok := t.records[key]
	return v, ok
}

// Forget discards any cached record for key and remembers that it was
// explicitly forgotten, so a stale value cannot resurface until the next
// successful PutRecord/StoreRecord.
func (t *Tracker) Forget(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, key)
	t.forgotten[key] = struct{}{}
}

// IsForgotten reports whether key was explicitly forgotten and has not
// been re-stored since.
func (t *Tracker) IsForgotten(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.forgotten[key]
	return ok
}
