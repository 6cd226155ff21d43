// Package cache provides the look-aside profile cache.
//
// A Store holds opaque byte values with a per-entry TTL. Two backends are
// provided:
//
//   - RedisStore: shared across processes, expiration handled by Redis
//   - MemoryStore: process-local, expiration handled by a janitor goroutine
//
// Neither backend evicts for size; entries leave only when their TTL elapses.
// There is no explicit invalidation.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//	store := cache.NewRedisStore(redisClient)
//
//	data, err := store.Get(ctx, cache.ProfileKey("instagram"))
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// Cache miss - fetch upstream, then Set
//	}
//
//	err = store.Set(ctx, cache.ProfileKey("instagram"), data, 10*time.Minute)
//
// # Failure Semantics
//
// Get distinguishes a miss (ErrCacheMiss) from a backend failure (any other
// error). Callers treat both as a miss; the distinction exists for logging
// and metrics.
//
// # Metrics
//
//   - igproxy_cache_hits_total{layer}
//   - igproxy_cache_misses_total{layer}
//   - igproxy_cache_writes_total{layer}
//   - igproxy_cache_errors_total{layer, operation}
package cache
