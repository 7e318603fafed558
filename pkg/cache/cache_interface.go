package cache

import (
	"context"
	"time"
)

// Cache is the contract for the cache layer (Redis in production, a map in tests)
type Cache interface {
	// Get unmarshals the cached value into dest.
	// found = false on a miss, dest untouched.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set stores value with a TTL
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes keys
	Delete(ctx context.Context, keys ...string) error

	// Ping checks the connection
	Ping(ctx context.Context) error
}
