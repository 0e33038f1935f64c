// Package metrics registers and exposes Prometheus metrics.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Domain metrics
	ConfessionsCreated prometheus.CounterVec
	CommentsCreated    prometheus.CounterVec
	LikesTotal         prometheus.CounterVec
	ReactionsTotal     prometheus.CounterVec
	ReportsTotal       prometheus.CounterVec
	ContentHidden      prometheus.CounterVec
	NotificationsSent  prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			ConfessionsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "confessions_created_total",
					Help: "Total confessions created",
				},
				[]string{"college", "anonymous"},
			),
			CommentsCreated: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "comments_created_total",
					Help: "Total comments created",
				},
				[]string{"college"},
			),
			LikesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "likes_total",
					Help: "Total likes recorded",
				},
				[]string{"college"},
			),
			ReactionsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reactions_total",
					Help: "Total emoji reactions recorded",
				},
				[]string{"emoji"},
			),
			ReportsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "reports_total",
					Help: "Total content reports filed",
				},
				[]string{"target"},
			),
			ContentHidden: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "content_hidden_total",
					Help: "Content auto-hidden after crossing the report threshold",
				},
				[]string{"target"},
			),
			NotificationsSent: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "notifications_sent_total",
					Help: "Notifications created, by type",
				},
				[]string{"type"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"endpoint", "method"},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
		}
	})
	return instance
}

// Get returns the metrics singleton, initializing on first use
func Get() *Metrics {
	return Initialize()
}
