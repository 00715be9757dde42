package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	NotesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_created_total",
			Help: "Total number of notes created per tenant",
		},
		[]string{"tenant"},
	)

	EntitlementRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entitlement_rejections_total",
			Help: "Note creations rejected by the subscription quota per tenant",
		},
		[]string{"tenant"},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_events_processed_total",
			Help: "Total number of events processed by workers",
		},
		[]string{"tenant", "outcome"},
	)

	WorkerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active worker goroutines",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ queue depth per tenant",
		},
		[]string{"tenant"},
	)
)

var initOnce sync.Once

// Init registers metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequests,
			HTTPDuration,
			LoginAttempts,
			NotesCreated,
			EntitlementRejections,
			WorkerProcessed,
			WorkerActive,
			QueueDepth,
		)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
