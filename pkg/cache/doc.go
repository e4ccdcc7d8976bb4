// Package cache provides two-tier caching for catalog API responses.
//
// The cache manager layers a bounded in-process LRU tier over an optional
// Redis tier:
//
// - Local tier: fastest, capacity-bounded LRU with a single fixed TTL
// - Distributed tier: Redis, JSON values, per-entry TTL, shared across processes
// - Write-through-on-read: distributed hits repopulate the local tier
// - Namespaced keys with stable content hashing (sha256)
// - Graceful degradation: every distributed tier fault is absorbed as a miss
// - Prometheus metrics for observability
//
// # Basic Usage
//
//	// Create Redis client (optional; omit for local-only caching)
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	cfg := cache.DefaultConfig()
//	cfg.Redis = redisClient
//	manager := cache.NewManager(cfg)
//
//	// Look up a value
//	data, ok := manager.Get(ctx, "keywords=laptop:index=Electronics", "search")
//	if !ok {
//		// Cache miss - fetch from the catalog API, then:
//		manager.Set(ctx, "keywords=laptop:index=Electronics", result, "search", time.Hour)
//	}
//
// # Namespaces
//
// Keys live in namespaces ("search", "products", "browse") so related
// entries can be cleared in one sweep:
//
//	removed := manager.ClearNamespace(ctx, "search")
//
// Namespace clearing covers the distributed tier only; local entries age out
// through the tier TTL. This is a documented eventual-consistency gap.
//
// # Degradation
//
// The distributed tier may be unreachable at any time. The manager never
// turns a cache-only failure into a caller-visible failure: reads degrade to
// misses, writes are dropped, and both are logged at warn level.
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - catalog_cache_hits_total{tier} - Cache hits by tier
//   - catalog_cache_misses_total - Cache misses
//   - catalog_cache_errors_total{operation} - Distributed tier errors
//   - catalog_cache_evictions_total - Local tier LRU evictions
//   - catalog_cache_local_entries - Local tier entry count
package cache
