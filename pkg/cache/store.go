package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// Store is a look-aside key-value store with per-entry expiration.
// Values are opaque to the store; callers own serialization.
type Store interface {
	// Get returns the value stored under key.
	// Returns ErrCacheMiss if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. The entry expires after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// HealthChecker is implemented by stores that can report backend reachability.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
