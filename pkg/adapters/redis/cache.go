// Package redis implements the session store, KV cache and distributed lock on Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultCachePrefix namespaces cache keys.
const DefaultCachePrefix = "conserje:cache:"

// Cache implements ports.KVCache on Redis strings.
// Keys are content hashes, so entries can be shared by every replica.
type Cache struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheTTL expires entries after ttl (0 keeps them forever).
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithCachePrefix sets the key prefix.
func WithCachePrefix(prefix string) CacheOption {
	return func(c *Cache) {
		c.prefix = prefix
	}
}

// NewCache creates a cache from an existing client.
func NewCache(client backend.UniversalClient, opts ...CacheOption) *Cache {
	c := &Cache{client: client, prefix: DefaultCachePrefix}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value; a missing key is a miss, not an error.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, true, nil
}

// Put stores value under key.
func (c *Cache) Put(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// Connect parses a redis:// URL and returns a client.
// The connection is verified with PING so misconfiguration fails at startup.
func Connect(ctx context.Context, url string) (*backend.Client, error) {
	opts, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := backend.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
