package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lk2023060901/market-research-backend/internal/pkg/redis"
	"github.com/lk2023060901/market-research-backend/internal/websearch/urlresolver"
)

const cacheKeyPrefix = "extract:"

// Cache stores successful extraction results
type Cache interface {
	Get(ctx context.Context, key string) (*Result, bool, error)
	Set(ctx context.Context, key string, result *Result, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CacheKey derives the cache key of a resolved URL.
func CacheKey(resolved string) string {
	return cacheKeyPrefix + urlresolver.Clean(resolved)
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

// RedisCache keeps results as JSON strings in redis
type RedisCache struct {
	store kvStore
}

// NewRedisCache creates a cache on top of client
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{store: client}
}

// Get returns the cached result of key, if any
func (c *RedisCache) Get(ctx context.Context, key string) (*Result, bool, error) {
	raw, err := c.store.Get(ctx, key)
	if redis.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result: %w", err)
	}
	return &result, true, nil
}

// Set stores result under key for ttl
func (c *RedisCache) Set(ctx context.Context, key string, result *Result, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return c.store.Set(ctx, key, data, ttl)
}

// Delete evicts key. A missing key is not an error.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	_, err := c.store.Del(ctx, key)
	return err
}
