// Package redis wraps go-redis for single-node and cluster deployments.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

// Client is a prefixed redis client
type Client struct {
	config *Config
	logger *logger.Logger
	rdb    redis.UniversalClient
}

// New connects to redis and pings it
func New(cfg *Config, log *logger.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := wrap(newUniversal(cfg), cfg, log)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	c.logger.Info("redis client initialized",
		zap.String("mode", string(cfg.Mode)),
		zap.String("addr", cfg.Addr),
		zap.Strings("cluster_addrs", cfg.ClusterAddrs),
	)
	return c, nil
}

func wrap(rdb redis.UniversalClient, cfg *Config, log *logger.Logger) *Client {
	return &Client{
		config: cfg,
		logger: logger.OrGlobal(log).Named("redis"),
		rdb:    rdb,
	}
}

func newUniversal(cfg *Config) redis.UniversalClient {
	if cfg.Mode == ModeCluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterAddrs,
			Username:     cfg.Username,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})
}

// Key returns key with the configured prefix
func (c *Client) Key(key string) string {
	return c.config.KeyPrefix + key
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	if c.rdb == nil {
		return ErrNotInitialized
	}
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logger.Error("redis ping failed", zap.Error(err))
		return err
	}
	return nil
}

// Close closes the underlying client
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	if err := c.rdb.Close(); err != nil {
		c.logger.Error("close redis client failed", zap.Error(err))
		return err
	}
	c.logger.Info("redis client closed")
	return nil
}

// withTimeout bounds ctx by the configured read timeout when ctx has no deadline
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.config.ReadTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.config.ReadTimeout+time.Second)
}
