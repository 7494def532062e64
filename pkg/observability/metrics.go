// Package observability provides Prometheus metrics and HTTP middleware
// shared by the respkit client, stub server and checkpoint store.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LatencyBuckets covers request latencies from 5ms to 60s.
var LatencyBuckets = []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 15, 60}

var (
	// RequestsTotal counts stub server HTTP requests by method, route, and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_server_requests_total",
			Help: "Server requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration records server request duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respkit_server_request_duration_seconds",
			Help:    "Server request duration",
			Buckets: LatencyBuckets,
		},
		[]string{"method", "route"},
	)

	// StreamingConnections tracks the number of active SSE streaming connections.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "respkit_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// ResponsesCreated counts responses produced by the stub creator.
	ResponsesCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_responses_created_total",
			Help: "Responses created",
		},
		[]string{"model", "status"},
	)

	// ClientRequestsTotal counts client API calls by operation and outcome.
	// Status is the HTTP status code, or "error" for transport failures.
	ClientRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_client_requests_total",
			Help: "Client requests",
		},
		[]string{"operation", "status"},
	)

	// ClientLatency records client call latency in seconds, retries included.
	ClientLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "respkit_client_latency_seconds",
			Help:    "Client latency",
			Buckets: LatencyBuckets,
		},
		[]string{"operation"},
	)

	// ClientRetriesTotal counts retry attempts issued by the client.
	ClientRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_client_retries_total",
			Help: "Client retries",
		},
		[]string{"operation"},
	)

	// StreamEventsTotal counts stream events decoded by the client by type.
	StreamEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_client_stream_events_total",
			Help: "Stream events decoded",
		},
		[]string{"known"},
	)

	// UnknownDiscriminatorsTotal counts decodes that fell back to a union's
	// base type because the discriminator was absent or unrecognized.
	UnknownDiscriminatorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_codec_unknown_discriminators_total",
			Help: "Unknown discriminators",
		},
		[]string{"union"},
	)

	// CheckpointOperationsTotal counts checkpoint store operations.
	CheckpointOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_checkpoint_operations_total",
			Help: "Checkpoint operations",
		},
		[]string{"operation", "result"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "respkit_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"tier"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		ResponsesCreated,
		ClientRequestsTotal,
		ClientLatency,
		ClientRetriesTotal,
		StreamEventsTotal,
		UnknownDiscriminatorsTotal,
		CheckpointOperationsTotal,
		RateLimitRejectedTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
