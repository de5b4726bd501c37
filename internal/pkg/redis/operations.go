package redis

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Set stores value under key with an optional expiration
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	err := c.rdb.Set(ctx, c.Key(key), value, expiration).Err()
	if err != nil {
		c.logger.Error("redis set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Get returns the value of key; a missing key yields an error for which IsNil is true
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	val, err := c.rdb.Get(ctx, c.Key(key)).Result()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
	}
	return val, err
}

// Del removes keys and returns how many existed
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.Key(k)
	}
	n, err := c.rdb.Del(ctx, prefixed...).Result()
	if err != nil {
		c.logger.Error("redis del failed", zap.Strings("keys", keys), zap.Error(err))
	}
	return n, err
}
