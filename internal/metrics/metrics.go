package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_appended_total",
			Help: "Total messages appended to room histories",
		},
		[]string{"type"}, // "text" or "system"
	)

	Joins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_joins_total",
			Help: "Total room joins",
		},
	)

	DecodeFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_decode_failures_total",
			Help: "Stored records skipped because they could not be decoded",
		},
		[]string{"record"}, // "message" or "user"
	)

	// Trim/expire calls that failed after the insert they follow succeeded.
	MaintenanceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_maintenance_failures_total",
			Help: "Failed bound/expiry steps following a successful write",
		},
		[]string{"op"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_redis_latency_seconds",
			Help:    "Redis command latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"command"},
	)
)
