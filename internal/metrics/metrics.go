// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	// HTTPRequestsTotal tracks requests by method, route and status class
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration tracks request latency in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// Bot metrics
var (
	// BotRequestsTotal tracks bot actions by action and status
	BotRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_requests_total",
			Help: "Total study bot requests by action and status",
		},
		[]string{"action", "status"},
	)

	// BotRequestDuration tracks Groq round-trip latency in seconds
	BotRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_request_duration_seconds",
			Help:    "Groq chat completion duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	// BotCircuitBreakerState tracks the Groq circuit breaker (0=closed, 1=half-open, 2=open)
	BotCircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_circuit_breaker_state",
			Help: "Groq circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Study metrics
var (
	// UploadsTotal tracks file uploads by extension and status
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "study_uploads_total",
			Help: "Total study file uploads by extension and status",
		},
		[]string{"extension", "status"},
	)

	// QuizzesGenerated counts generated quizzes
	QuizzesGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "study_quizzes_generated_total",
			Help: "Total quizzes generated",
		},
	)
)

// WebSocket metrics
var (
	// WSConnectedClients tracks currently connected chat clients
	WSConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connected_clients",
			Help: "Currently connected WebSocket chat clients",
		},
	)

	// WSMessagesTotal tracks realtime chat events by type
	WSMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_messages_total",
			Help: "Total WebSocket chat events by event type",
		},
		[]string{"event"},
	)
)

// Mail metrics
var (
	// MailSentTotal tracks outbound mail by kind and status
	MailSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_sent_total",
			Help: "Total outbound mail by kind and status",
		},
		[]string{"kind", "status"},
	)
)

// RecordMailSent increments the mail counter for one send attempt.
func RecordMailSent(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	MailSentTotal.WithLabelValues(kind, status).Inc()
}
