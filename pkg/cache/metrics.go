package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache layers used as metric label values.
const (
	LayerRedis  = "redis"
	LayerMemory = "memory"
)

var (
	// CacheHits tracks cache hits by layer
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igproxy_cache_hits_total",
			Help: "Total number of profile cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igproxy_cache_misses_total",
			Help: "Total number of profile cache misses",
		},
		[]string{"layer"},
	)

	// CacheWrites tracks successful cache writes by layer
	CacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igproxy_cache_writes_total",
			Help: "Total number of profile cache writes",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "igproxy_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"layer", "operation"}, // "get", "set"
	)
)
