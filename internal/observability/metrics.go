package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookswap_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ExchangeTransitions counts request lifecycle events by resulting status.
	ExchangeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_exchange_transitions_total",
		Help: "Exchange requests created, accepted or declined",
	}, []string{"status"})

	// LedgerMutations counts point and reputation writes by ledger operation.
	LedgerMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_ledger_mutations_total",
		Help: "Point ledger mutations by operation",
	}, []string{"operation"})

	// NotificationFailures counts dispatcher failures by stage (store or publish).
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_notification_failures_total",
		Help: "Notifications that could not be stored or published",
	}, []string{"stage"})

	// ValuationOutcomes counts book valuations by outcome (scored, spam, fallback).
	ValuationOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_valuation_outcomes_total",
		Help: "Book valuations by outcome",
	}, []string{"outcome"})

	// GeocodeOutcomes counts geocoding lookups by outcome.
	GeocodeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_geocode_outcomes_total",
		Help: "Geocoding lookups by outcome",
	}, []string{"outcome"})

	// WebSocketConnectionsTotal is the gauge of open notification sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookswap_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts outbound frames dropped because a client buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookswap_websocket_backpressure_drops_total",
		Help: "Outbound websocket messages dropped by reason",
	}, []string{"hub", "reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
