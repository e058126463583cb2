// Package ttlcache provides a small in-memory key/value cache with per-entry
// expiry and an injectable clock, so tests control expiration deterministically.
package ttlcache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a TTL map. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	data  map[K]entry[V]
	ttl   time.Duration
	clock clockwork.Clock
}

// New creates a cache whose entries live for ttl. A nil clock defaults to the
// real one.
func New[K comparable, V any](ttl time.Duration, clock clockwork.Clock) *Cache[K, V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[K, V]{
		data:  make(map[K]entry[V]),
		ttl:   ttl,
		clock: clock,
	}
}

// Get returns the cached value and whether it is present and unexpired.
// Expired entries are dropped on access.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		var zero V
		return zero, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.data, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the cache's TTL.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{value: value, expiresAt: c.clock.Now().Add(c.ttl)}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
