// Package cache provides a small in-memory TTL cache used for calendar
// and weather results. Entries expire lazily on read; there is no
// background sweeper.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

type shard[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
}

// Cache memoizes computed values per key for a bounded time. Keys are
// spread over sharded locks so lookups for different keys do not
// contend on a single mutex.
type Cache[V any] struct {
	shards [shardCount]*shard[V]
	now    func() time.Time
}

// New creates an empty cache.
func New[V any]() *Cache[V] {
	return newWithClock[V](time.Now)
}

func newWithClock[V any](now func() time.Time) *Cache[V] {
	c := &Cache[V]{now: now}
	for i := range c.shards {
		c.shards[i] = &shard[V]{entries: make(map[string]entry[V])}
	}
	return c
}

func (c *Cache[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

// GetOrCompute returns the cached value for key if one was stored less
// than ttl ago, otherwise invokes compute and stores its result.
// Failed computations are not cached. Concurrent callers for the same
// key may each run compute; the last writer wins the cache slot.
func (c *Cache[V]) GetOrCompute(key string, ttl time.Duration, compute func() (V, error)) (V, error) {
	s := c.shardFor(key)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok && c.now().Sub(e.insertedAt) <= ttl {
		s.mu.Unlock()
		return e.value, nil
	}
	s.mu.Unlock()

	v, err := compute()
	if err != nil {
		var zero V
		return zero, err
	}

	s.mu.Lock()
	s.entries[key] = entry[V]{value: v, insertedAt: c.now()}
	s.mu.Unlock()
	return v, nil
}

// Invalidate drops the entry for key, if present.
func (c *Cache[V]) Invalidate(key string) {
	s := c.shardFor(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}
