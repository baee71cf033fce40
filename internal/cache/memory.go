// Package cache provides the two assessment cache tiers: an in-process LRU
// with TTL and a Redis tier guarded by a circuit breaker.
package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Store is a byte-oriented cache tier. A miss and a tier failure look the
// same to callers.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// Stats represents cache performance statistics
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// MemoryCache is the hot tier.
type MemoryCache struct {
	lru    *expirable.LRU[string, []byte]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewMemoryCache creates an LRU holding at most size entries, each for ttl.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("memory cache size must be positive, got %d", size)
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}, nil
}

// Get returns a copy of the cached value.
func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.lru.Get(key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return append([]byte(nil), v...), true
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) {
	m.lru.Add(key, append([]byte(nil), value...))
}

// Len returns the number of live entries.
func (m *MemoryCache) Len() int {
	return m.lru.Len()
}

// Purge drops every entry.
func (m *MemoryCache) Purge() {
	m.lru.Purge()
}

func (m *MemoryCache) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load(), Entries: m.lru.Len()}
}
