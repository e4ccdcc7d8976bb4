package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by tier (local, distributed)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"tier"}, // "local", "distributed"
	)

	// CacheMisses tracks lookups that missed both tiers
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
	)

	// CacheErrors tracks distributed tier operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "clear", "marshal"
	)

	// CacheEvictions tracks local tier evictions due to capacity pressure
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_cache_evictions_total",
			Help: "Total number of local tier evictions",
		},
	)

	// CacheLocalEntries tracks the number of entries in the local tier
	CacheLocalEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_cache_local_entries",
			Help: "Entries currently held by the local cache tier",
		},
	)
)
