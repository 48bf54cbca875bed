package middleware

import (
	"context"

	"github.com/aretw0/conserje/pkg/observability"
	"github.com/aretw0/conserje/pkg/ports"
)

type metricsCache struct {
	next    ports.KVCache
	name    string
	metrics *observability.Metrics
}

// NewCacheMetrics creates a middleware that counts hits and misses of the named cache.
// Lookup errors count as misses, matching how the ranker treats them.
func NewCacheMetrics(name string, m *observability.Metrics) CacheMiddleware {
	return func(next ports.KVCache) ports.KVCache {
		if m == nil {
			return next
		}
		return &metricsCache{next: next, name: name, metrics: m}
	}
}

func (c *metricsCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok, err := c.next.Get(ctx, key)
	c.metrics.CacheLookup(c.name, ok && err == nil)
	return value, ok, err
}

func (c *metricsCache) Put(ctx context.Context, key string, value []byte) error {
	return c.next.Put(ctx, key, value)
}
