// Package cache provides an optional Redis cache for browse queries.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"melodex/logger"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "catalog:"
	defaultTTL = 5 * time.Minute
)

// CatalogCache caches serialized browse query results. With a nil client
// it degrades to a pass-through, so callers never branch on whether Redis
// is configured.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a browse cache. client may be nil.
func NewCatalogCache(client *redis.Client) *CatalogCache {
	return &CatalogCache{client: client, ttl: defaultTTL}
}

// Get loads a cached result into dest. Returns false on a miss, a decode
// failure, or when the cache is disabled.
func (c *CatalogCache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c.client == nil {
		return false
	}
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("Cache read failed", logger.String("key", key), logger.ErrorField(err))
		}
		return false
	}
	if err = json.Unmarshal(data, dest); err != nil {
		logger.Warn("Cache decode failed", logger.String("key", key), logger.ErrorField(err))
		return false
	}
	return true
}

// Set stores a result under key with the cache TTL. Failures are logged
// and otherwise ignored; the cache is best-effort.
func (c *CatalogCache) Set(ctx context.Context, key string, value interface{}) {
	if c.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("Cache encode failed", logger.String("key", key), logger.ErrorField(err))
		return
	}
	if err = c.client.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		logger.Warn("Cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}

// InvalidateAll drops every cached browse result. Called after any
// indexing operation mutates the catalog.
func (c *CatalogCache) InvalidateAll(ctx context.Context) {
	if c.client == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Cache invalidation scan failed", logger.ErrorField(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Cache invalidation failed", logger.ErrorField(err))
	}
}
