package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for cache operations.
var (
	Hits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualys_cache_hits_total",
		Help: "Total response cache hits",
	})

	Misses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qualys_cache_misses_total",
		Help: "Total response cache misses",
	})

	Size = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "qualys_cache_size_bytes",
		Help: "Cumulative bytes written to the response cache",
	})

	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qualys_cache_errors_total",
		Help: "Total cache operation errors by operation",
	}, []string{"operation"})
)
