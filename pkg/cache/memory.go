package cache

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultCleanupInterval is how often expired in-memory entries are purged.
const DefaultCleanupInterval = time.Minute

// MemoryStore is an in-process Store with per-entry expiration.
// It has no size bound; entries leave only by expiring.
type MemoryStore struct {
	items *gocache.Cache
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ HealthChecker = (*MemoryStore)(nil)
)

// NewMemoryStore creates an in-memory store. A non-positive cleanupInterval
// falls back to DefaultCleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = DefaultCleanupInterval
	}
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.items.Get(key)
	if !ok {
		CacheMisses.WithLabelValues(LayerMemory).Inc()
		return nil, ErrCacheMiss
	}

	data, ok := v.([]byte)
	if !ok {
		CacheErrors.WithLabelValues(LayerMemory, "get").Inc()
		return nil, fmt.Errorf("memory get: unexpected value type %T", v)
	}

	CacheHits.WithLabelValues(LayerMemory).Inc()
	return append([]byte(nil), data...), nil
}

// Set stores a copy of value with the given TTL.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive (got %s)", ttl)
	}

	s.items.Set(key, append([]byte(nil), value...), ttl)
	CacheWrites.WithLabelValues(LayerMemory).Inc()
	return nil
}

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Len returns the number of entries, including expired ones not yet purged.
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}
