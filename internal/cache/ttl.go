// Package cache provides a small in-process TTL store used in front of the
// telemetry queries.  Instances are constructed explicitly and injected into
// the handlers that need them; there are no package-level caches.
//
// The store is invalidation-free: writers never evict entries, staleness is
// bounded purely by the TTL.  The key space (device ids, page/limit pairs)
// is small and bounded by fleet size, so no size cap or LRU is applied.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Store maps string keys to values that expire after a fixed TTL.  A
// background janitor removes expired entries every sweep interval so the
// map does not accumulate dead keys between reads.  Concurrent use by
// request goroutines is safe; racing writers on the same key are
// last-writer-wins, which is harmless because the recomputed value is
// deterministic for the same underlying data.
type Store[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry[V]
	stop    chan struct{}
	once    sync.Once
}

// New builds a Store whose entries live for ttl and starts the janitor
// sweeping every sweep interval.  Callers own the lifecycle and must call
// Close when done.
func New[V any](ttl, sweep time.Duration) *Store[V] {
	s := &Store[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		stop:    make(chan struct{}),
	}
	go s.janitor(sweep)
	return s
}

// Get returns the cached value for key.  Expired entries are treated as
// absent even before the janitor removes them.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh TTL.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{value: value, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
}

// Len reports the number of entries currently held, including entries that
// have expired but not yet been swept.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the janitor.  Safe to call more than once.
func (s *Store[V]) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store[V]) janitor(sweep time.Duration) {
	t := time.NewTicker(sweep)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.removeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store[V]) removeExpired() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}
