package data

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/market-research-backend/internal/conf"
	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
	"github.com/lk2023060901/market-research-backend/internal/pkg/redis"
)

func TestNewDataDisabledBackends(t *testing.T) {
	d, cleanup, err := NewData(&conf.Config{}, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, d.DB)
	assert.Nil(t, d.RedisClient)
	assert.Nil(t, d.MinIOClient)
}

func TestNewDataRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &conf.Config{Redis: *redis.DefaultConfig()}
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	d, cleanup, err := NewData(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, d.RedisClient)
	assert.NoError(t, d.RedisClient.Ping(t.Context()))
}

func TestNewDataRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &conf.Config{Redis: *redis.DefaultConfig()}
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr
	cfg.Redis.MaxRetries = 0

	_, _, err := NewData(cfg, logger.NewNop())
	assert.ErrorContains(t, err, "failed to connect to redis")
}
