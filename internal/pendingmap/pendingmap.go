// Package pendingmap implements the pending-channel map: a TTL-bounded
// store keyed by a monotonically assigned id, bridging inbound request
// arrival (observed on the runtime loop) with application-driven response
// delivery (observed on another goroutine).
//
// Grounded on the teacher's internal/mq.Manager, which keeps a
// `pending map[string]chan struct{}` for in-flight ACKs; here the map is
// generalized to arbitrary ids and arbitrary single-use response values,
// and gains the TTL sweep spec.md requires.
package pendingmap

import (
	"sync"
	"time"
)

// entry pairs a stored value with the instant it was inserted.
type entry[V any] struct {
	value    V
	insertAt time.Time
}

// Map is a plain mutex-protected hash map, not a concurrent map: the
// stored value (typically a single-use response channel) is Send but not
// assumed Sync, so sharing it across goroutines through a lock-free
// structure would be unsafe. Contention is expected to be trivial.
type Map[V any] struct {
	mu      sync.Mutex
	entries map[uint64]entry[V]

	ttl      time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New creates a Map whose Sweep background task (started by SweepEvery)
// removes entries older than ttl.
func New[V any](ttl time.Duration) *Map[V] {
	return &Map[V]{
		entries: make(map[uint64]entry[V]),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}
}

// Insert stores v under id, recording the current instant as its
// insertion time.
func (m *Map[V]) Insert(id uint64, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = entry[V]{value: v, insertAt: time.Now()}
}

// Take removes and returns the value stored under id. The second return
// value is false if id is absent (never inserted, already taken, or
// removed by TTL sweep).
func (m *Map[V]) Take(id uint64) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		var zero V
		return zero, false
	}
	delete(m.entries, id)
	return e.value, true
}

// Len reports the number of entries currently stored.
func (m *Map[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweep removes every entry older than the configured TTL.
func (m *Map[V]) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if now.Sub(e.insertAt) > m.ttl {
			delete(m.entries, id)
		}
	}
}

// SweepEvery starts a background goroutine that scans every `period`
// (spec.md specifies ten seconds) and removes entries whose age exceeds
// the configured TTL. Call Close to stop it.
func (m *Map[V]) SweepEvery(period time.Duration) {
	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case now := <-t.C:
				m.sweep(now)
			}
		}
	}()
}

// Close stops the background sweep goroutine, if started.
func (m *Map[V]) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
