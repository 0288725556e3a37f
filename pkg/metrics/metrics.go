package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_panics_total",
			Help: "Handler panics recovered by the server",
		},
		[]string{"route"},
	)

	HTTPTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_timeouts_total",
			Help: "Requests cut off by the request timeout",
		},
		[]string{"method", "route"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"key_type"},
	)

	AuthzDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_denied_total",
			Help: "Total number of authorization denials",
		},
		[]string{"role", "method"},
	)

	// Booking lifecycle

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_transitions_total",
			Help: "Booking status transitions by action and outcome",
		},
		[]string{"action", "from", "to", "outcome"},
	)

	BookingRefundAmountTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_refund_amount_total",
			Help: "Sum of refund amounts issued",
		},
	)

	OccupancyCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "occupancy_corrections_total",
			Help: "Property occupancy counters repaired by the reconciler",
		},
	)

	OccupancyReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "occupancy_reconcile_duration_seconds",
			Help:    "Duration of an occupancy reconciliation run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// Outbound dependencies

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Kafka

	KafkaMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_total",
			Help: "Kafka messages handled by direction and outcome",
		},
		[]string{"direction", "topic", "outcome"},
	)

	KafkaMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kafka_message_duration_seconds",
			Help:    "Time spent publishing or processing a Kafka message",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction", "topic"},
	)

	KafkaConsumerLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "kafka_consumer_lag",
			Help: "Messages behind the partition head after the last commit",
		},
		[]string{"topic", "group"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
