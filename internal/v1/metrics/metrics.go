// Package metrics is the single Prometheus registry for the service.
// Declared centrally, rather than per-package, so promauto never
// double-registers a name under two different owners.
//
// Naming convention: namespace_subsystem_name
//   - namespace: scribble (application-level grouping)
//   - subsystem: websocket, room, game, redis, circuit_breaker, rate_limit
//   - name: specific metric (connections_active, turns_completed_total, etc.)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scribble",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "scribble",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	RoomParticipants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scribble",
		Subsystem: "room",
		Name:      "participants_count",
		Help:      "Number of participants in each room",
	}, []string{"room_id"})

	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scribble",
		Subsystem: "websocket",
		Name:      "message_processing_seconds",
		Help:      "Time spent processing WebSocket messages",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"event_type"})

	TurnsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "game",
		Name:      "turns_completed_total",
		Help:      "Total turns completed, labeled by how they ended",
	}, []string{"reason"}) // "all_guessed" | "timeout" | "drawer_left"

	GuessesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "game",
		Name:      "guesses_total",
		Help:      "Total guesses evaluated, labeled by verdict",
	}, []string{"verdict"}) // "exact" | "close" | "miss"

	KickVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "game",
		Name:      "kick_votes_total",
		Help:      "Total kick ballots cast",
	}, []string{"outcome"}) // "pending" | "kicked"

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "scribble",
		Subsystem: "circuit_breaker",
		Name:      "state",
		Help:      "Current state of the circuit breaker (0: Closed, 1: Open, 2: Half-Open)",
	}, []string{"service"})

	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "circuit_breaker",
		Name:      "failures_total",
		Help:      "Total requests rejected by the circuit breaker",
	}, []string{"service"})

	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "rate_limit",
		Name:      "exceeded_total",
		Help:      "Total number of requests that exceeded the rate limit",
	}, []string{"endpoint", "reason"})

	RateLimitRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "rate_limit",
		Name:      "requests_total",
		Help:      "Total number of requests checked against the rate limiter",
	}, []string{"endpoint"})

	RedisOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scribble",
		Subsystem: "redis",
		Name:      "operations_total",
		Help:      "Total number of Redis operations",
	}, []string{"operation", "status"})

	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scribble",
		Subsystem: "redis",
		Name:      "operation_duration_seconds",
		Help:      "Duration of Redis operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
