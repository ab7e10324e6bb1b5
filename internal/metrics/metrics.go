// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisitsLogged counts visit log attempts by result (ok, not_found, invalid, error).
	VisitsLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terra_visits_logged_total",
		Help: "Visit log attempts by result",
	}, []string{"result"})

	// LevelRefreshRetries counts conditional terra level writes that lost a
	// race with a concurrent visit and had to re-read.
	LevelRefreshRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terra_level_refresh_retries_total",
		Help: "Terra level writes retried because the visit count moved",
	})

	// EventPublishFailures counts visit.logged events that could not be sent.
	EventPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terra_event_publish_failures_total",
		Help: "visit.logged events that failed to publish",
	})

	// DirectoryDegraded counts directory listings served empty because the
	// store failed.
	DirectoryDegraded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "terra_directory_degraded_total",
		Help: "Directory listings answered with an empty result after a store failure",
	})

	// HTTPRequests counts handled requests by method, route and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "terra_http_requests_total",
		Help: "HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration tracks request latency by method and route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "terra_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	}, []string{"method", "route"})
)
