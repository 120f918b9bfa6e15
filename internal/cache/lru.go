// Package cache provides the three caches that sit in front of embedding
// computation, search results, and concept/category name↔id lookups. The
// embedding and search-result caches are bounded LRUs (TTLCache) that evict
// least-recently-used entries on overflow and support an optional per-entry
// TTL; the name↔id map (IDNameMap) is unbounded and never evicts. All of
// them track hit/miss counters.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TTLCache is a bounded LRU cache with optional per-entry expiry. A zero TTL
// means entries never expire (used by the embedding and id-name caches,
// which are content-addressed or rebuilt wholesale at startup).
type TTLCache[K comparable, V any] struct {
	ttl   time.Duration
	inner *lru.Cache[K, entry[V]]

	mu        sync.Mutex
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLCache creates a cache holding up to capacity entries. ttl <= 0
// disables expiry.
func NewTTLCache[K comparable, V any](capacity int, ttl time.Duration) *TTLCache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	inner, _ := lru.New[K, entry[V]](capacity)
	return &TTLCache[K, V]{ttl: ttl, inner: inner}
}

// Get returns the cached value and true on a live hit; an expired or
// missing entry is reported as a miss and counted as such.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.inner.Get(key)
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		c.inner.Remove(key)
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Put inserts or refreshes a value, evicting the least-recently-used entry
// if the cache is at capacity.
func (c *TTLCache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	evicted := c.inner.Add(key, entry[V]{value: value, expiresAt: expiresAt})
	if evicted {
		c.evictions.Add(1)
	}
}

func (c *TTLCache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inner.Remove(key)
}

func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inner.Len()
}

// Stats is a point-in-time snapshot of hit/miss/eviction counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *TTLCache[K, V]) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
