// Package metrics provides the centralized Prometheus metrics registry for
// the Qualys client. All metrics are defined in their respective packages
// (client, cache, ratelimit, paginate) to maintain modularity and avoid
// circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the Qualys client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Rate Limit Metrics (pkg/ratelimit):
//   - qualys_rate_limit_remaining (Gauge): Requests remaining in the current window
//   - qualys_rate_limit_blocks_total (Counter): Requests blocked on a near-exhausted window
//   - qualys_rate_limit_throttles_total (Counter): Requests paced below the warning fraction
//   - qualys_concurrency_limit (Gauge): Concurrency limit advertised by the service
//
// Cache Metrics (pkg/cache):
//   - qualys_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - qualys_cache_misses_total (Counter): Cache misses
//   - qualys_cache_size_bytes{layer="redis"} (Gauge): Current cache size in bytes
//   - qualys_cache_errors_total{operation} (Counter): Cache operation errors
//
// Request Metrics (pkg/client):
//   - qualys_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - qualys_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - qualys_errors_total{class} (Counter): Errors by class (client, server, rate_limit, auth, network)
//
// Retry Metrics (pkg/client):
//   - qualys_retries_total{error_class} (Counter): Retry attempts by error class
//   - qualys_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - qualys_retry_exhausted_total{error_class} (Counter): Requests that exhausted max retries
//
// Listing Metrics (pkg/paginate):
//   - qualys_pages_fetched_total{endpoint} (Counter): Pages fetched by endpoint
//   - qualys_listings_total{endpoint, outcome} (Counter): Listings by outcome (ok, partial, error)
//   - qualys_chunks_total{endpoint, outcome} (Counter): Sharded chunks by outcome
//   - qualys_shard_workers (Gauge): Worker count of the most recent sharded pull
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(qualys_cache_hits_total[5m])) /
//   (sum(rate(qualys_cache_hits_total[5m])) + sum(rate(qualys_cache_misses_total[5m])))
//
//   # Rate Limit Headroom
//   qualys_rate_limit_remaining < 20
//
//   # Request Error Rate
//   rate(qualys_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(qualys_request_duration_seconds_bucket[5m]))
//
//   # Partial Listing Rate
//   rate(qualys_listings_total{outcome="partial"}[5m])
