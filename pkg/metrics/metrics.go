package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts requests to third-party APIs by client and outcome
	// (success|timeout|unreachable|rejected).
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunarlog_upstream_requests_total",
			Help: "Total number of upstream API requests",
		},
		[]string{"client", "outcome"},
	)

	// UpstreamRetries counts the single-shot retries taken after transient failures.
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunarlog_upstream_retries_total",
			Help: "Total number of upstream request retries",
		},
		[]string{"client"},
	)

	// CacheLookups counts cache tier lookups by tier (memory|moon_db) and result (hit|miss).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lunarlog_cache_lookups_total",
			Help: "Total number of cache lookups",
		},
		[]string{"tier", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lunarlog_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
