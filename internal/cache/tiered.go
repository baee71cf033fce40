package cache

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// TieredCache reads memory first, then the remote tier, and backfills memory
// on a remote hit. Writes go to both tiers.
type TieredCache struct {
	memory     *MemoryCache
	remote     Store
	logger     *logrus.Logger
	remoteHits atomic.Int64
}

// NewTieredCache combines the tiers. remote may be nil.
func NewTieredCache(memory *MemoryCache, remote Store, logger *logrus.Logger) *TieredCache {
	return &TieredCache{memory: memory, remote: remote, logger: logger}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if v, ok := c.memory.Get(ctx, key); ok {
		c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "memory"}).Debug("Cache hit")
		return v, true
	}
	if c.remote == nil {
		return nil, false
	}
	v, ok := c.remote.Get(ctx, key)
	if !ok {
		return nil, false
	}
	c.remoteHits.Add(1)
	c.logger.WithFields(logrus.Fields{"key": key, "cache_tier": "redis"}).Debug("Cache hit")
	c.memory.Set(ctx, key, v)
	return v, true
}

func (c *TieredCache) Set(ctx context.Context, key string, value []byte) {
	c.memory.Set(ctx, key, value)
	if c.remote != nil {
		c.remote.Set(ctx, key, value)
	}
}

// Stats counts a remote hit as a hit rather than a memory miss.
func (c *TieredCache) Stats() Stats {
	s := c.memory.Stats()
	remote := c.remoteHits.Load()
	s.Hits += remote
	s.Misses -= remote
	return s
}
