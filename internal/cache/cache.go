// Package cache holds short-lived upstream responses, such as the current
// weather, so repeated dashboard polls do not hit third-party APIs.
package cache

import (
	"context"
	"fmt"
	"time"

	"portflow/internal/config"
)

// Cache stores opaque values with a TTL.
type Cache interface {
	// Get reports a miss with ok false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Open builds the cache selected by cfg. The redis driver pings the server
// before returning.
func Open(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
