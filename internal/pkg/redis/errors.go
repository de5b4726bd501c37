package redis

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

var ErrNotInitialized = errors.New("redis: client not initialized")

// IsNil reports whether err means the key does not exist
func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

// IsClosed reports whether err comes from a closed client
func IsClosed(err error) bool {
	return errors.Is(err, redis.ErrClosed)
}
