// Package metrics provides the centralized Prometheus metrics registry for the
// catalog client. All metrics are defined in their respective packages
// (catalog, cache, ratelimit, breaker) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the catalog client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - catalog_rate_limit_tokens (Gauge): Tokens currently available in the per-second bucket
//   - catalog_rate_limit_daily_used (Gauge): Requests consumed from the daily quota
//   - catalog_rate_limit_rejections_total{reason} (Counter): Rejected acquisitions by reason (daily, burst)
//   - catalog_rate_limit_daily_resets_total (Counter): Daily quota window resets
//
// Circuit Breaker Metrics (pkg/breaker):
//   - catalog_circuit_state (Gauge): Current breaker state (0=closed, 1=open, 2=half_open)
//   - catalog_circuit_failures_total (Counter): Failures recorded against the breaker
//   - catalog_circuit_transitions_total{state} (Counter): State transitions by target state
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{tier} (Counter): Cache hits by tier (local, distributed)
//   - catalog_cache_misses_total (Counter): Cache misses across both tiers
//   - catalog_cache_errors_total{operation} (Counter): Distributed tier errors by operation
//   - catalog_cache_evictions_total (Counter): Local tier evictions due to capacity
//   - catalog_cache_local_entries (Gauge): Entries currently held by the local tier
//
// Request Metrics (pkg/catalog):
//   - catalog_api_requests_total{operation, status} (Counter): Requests by operation and outcome
//   - catalog_api_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - catalog_api_errors_total{class} (Counter): Errors by class (client, server, throttle, network)
//
// Retry Metrics (pkg/catalog):
//   - catalog_retries_total{error_class} (Counter): Retry attempts by error class
//   - catalog_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - catalog_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(catalog_cache_hits_total[5m])) /
//   (sum(rate(catalog_cache_hits_total[5m])) + sum(rate(catalog_cache_misses_total[5m])))
//
//   # Daily Quota Consumption
//   catalog_rate_limit_daily_used / 8000
//
//   # Breaker Open Alert
//   catalog_circuit_state == 1
//
//   # Request Error Rate
//   rate(catalog_api_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(catalog_api_request_duration_seconds_bucket[5m]))
