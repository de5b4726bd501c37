package minio

import (
	"errors"
	"time"
)

// BucketLookupType represents the type of bucket lookup
type BucketLookupType string

const (
	BucketLookupAuto BucketLookupType = "auto"
	BucketLookupDNS  BucketLookupType = "dns"  // bucket.endpoint
	BucketLookupPath BucketLookupType = "path" // endpoint/bucket
)

// Config is the object storage configuration
type Config struct {
	Enabled         bool             `mapstructure:"enabled"`
	Endpoint        string           `mapstructure:"endpoint"` // e.g. "localhost:9000"
	AccessKeyID     string           `mapstructure:"access_key_id"`
	SecretAccessKey string           `mapstructure:"secret_access_key"`
	Region          string           `mapstructure:"region"`
	UseSSL          bool             `mapstructure:"use_ssl"`
	BucketLookup    BucketLookupType `mapstructure:"bucket_lookup"`

	// Bucket holds the research archives; created on startup when missing
	Bucket string `mapstructure:"bucket"`

	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	if c.Bucket == "" {
		return errors.New("minio: bucket is required")
	}

	switch c.BucketLookup {
	case "", BucketLookupAuto, BucketLookupDNS, BucketLookupPath:
	default:
		return errors.New("minio: invalid bucket lookup type")
	}
	return nil
}

// SetDefaults fills unspecified fields
func (c *Config) SetDefaults() {
	if c.BucketLookup == "" {
		c.BucketLookup = BucketLookupAuto
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "localhost:9000",
		BucketLookup:   BucketLookupAuto,
		Bucket:         "market-research",
		RequestTimeout: 30 * time.Second,
	}
}
