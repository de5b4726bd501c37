package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/market-research-backend/internal/pkg/logger"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AccessKeyID = "minioadmin"
	cfg.SecretAccessKey = "minioadmin"
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"no endpoint", func(c *Config) { c.Endpoint = "" }, true},
		{"no access key", func(c *Config) { c.AccessKeyID = "" }, true},
		{"no secret", func(c *Config) { c.SecretAccessKey = "" }, true},
		{"no bucket", func(c *Config) { c.Bucket = "" }, true},
		{"path lookup", func(c *Config) { c.BucketLookup = BucketLookupPath }, false},
		{"bad lookup", func(c *Config) { c.BucketLookup = "virtual" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, logger.NewNop())
	assert.ErrorIs(t, err, ErrInvalidArgument)

	c, err := NewClient(validConfig(), logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "market-research", c.Bucket())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	_, err = c.PutJSON(context.Background(), "collections/a.json", map[string]int{"a": 1})
	assert.ErrorIs(t, err, ErrClientClosed)
	assert.ErrorIs(t, c.GetJSON(context.Background(), "collections/a.json", &struct{}{}), ErrClientClosed)
}

func TestObjectNameValidation(t *testing.T) {
	c, err := NewClient(validConfig(), logger.NewNop())
	require.NoError(t, err)

	for _, name := range []string{"", "/abs.json", "../escape.json"} {
		_, err := c.PutJSON(context.Background(), name, 1)
		assert.ErrorIs(t, err, ErrInvalidObjectName, name)
	}
}

func TestErrorClassification(t *testing.T) {
	noKey := WrapError("GetJSON", minio.ErrorResponse{Code: "NoSuchKey"}, "b", "o")
	assert.True(t, IsNotFound(noKey))
	assert.Equal(t, "minio: GetJSON failed for bucket=b, object=o: "+noKey.(*Error).Err.Error(), noKey.Error())

	assert.True(t, IsNotFound(ErrObjectNotFound))
	assert.False(t, IsNotFound(errors.New("timeout")))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsBucketAlreadyExists(minio.ErrorResponse{Code: "BucketAlreadyOwnedByYou"}))
	assert.False(t, IsBucketAlreadyExists(errors.New("x")))
	assert.Nil(t, WrapError("op", nil, "b", "o"))
}
