package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the buzzer game backend
// Declared in one package so dashboards have a single place to look
// and business packages stay free of prometheus plumbing.
//
// Naming convention: namespace_subsystem_name
// - namespace: buzzer (application-level grouping)
// - subsystem: websocket, room, trivia (feature-level grouping)
// - name: specific metric (connections_active, transitions_total, etc.)
//
// Metric Types:
// - Gauge: Current state (connections, rooms, players)
// - Counter: Cumulative events (transitions, buzzes, provider calls)
// - Histogram: Latency distributions (transition time, provider time)

var (
	// ActiveWebSocketConnections tracks the current number of active WebSocket connections (Gauge - current state)
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "buzzer",
		Subsystem: "websocket",
		Name:      "connections_active",
		Help:      "Current number of active WebSocket connections",
	})

	// ActiveRooms tracks the current number of active rooms (Gauge - current state)
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "buzzer",
		Subsystem: "room",
		Name:      "rooms_active",
		Help:      "Current number of active rooms",
	})

	// RoomPlayers tracks the number of players in each room (GaugeVec with room_code label - current state per room)
	RoomPlayers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buzzer",
		Subsystem: "room",
		Name:      "players_count",
		Help:      "Number of players in each room",
	}, []string{"room_code"})

	// WebsocketEvents tracks the total number of WebSocket events processed (CounterVec - cumulative)
	WebsocketEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "websocket",
		Name:      "events_total",
		Help:      "Total WebSocket events processed",
	}, []string{"event_type", "status"})

	// RoomTransitions tracks every dispatched room operation (CounterVec - cumulative)
	RoomTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "room",
		Name:      "transitions_total",
		Help:      "Total room state transitions by operation and outcome",
	}, []string{"op", "status"})

	// TransitionDuration tracks the time spent inside room transitions (HistogramVec - latency distribution)
	TransitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "buzzer",
		Subsystem: "room",
		Name:      "transition_seconds",
		Help:      "Time spent executing room state transitions",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"op"})

	// Buzzes tracks buzz attempts by outcome (CounterVec - cumulative)
	Buzzes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "room",
		Name:      "buzzes_total",
		Help:      "Total buzz attempts by outcome (won, rejected)",
	}, []string{"outcome"})

	// TriviaRequests tracks upstream trivia provider calls (CounterVec - cumulative)
	TriviaRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "trivia",
		Name:      "requests_total",
		Help:      "Total requests to the trivia question provider",
	}, []string{"status"})

	// TriviaRequestDuration tracks upstream trivia provider latency (Histogram - latency distribution)
	TriviaRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "buzzer",
		Subsystem: "trivia",
		Name:      "request_seconds",
		Help:      "Time spent waiting on the trivia question provider",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	})

	// CircuitBreakerState tracks the breaker guarding each upstream provider
	// (GaugeVec - 0 closed, 1 half-open, 2 open)
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "buzzer",
		Subsystem: "trivia",
		Name:      "circuit_state",
		Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
	}, []string{"provider"})

	// CircuitBreakerFailures tracks calls rejected or failed through the breaker (CounterVec - cumulative)
	CircuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "trivia",
		Name:      "circuit_failures_total",
		Help:      "Total provider calls that failed or were rejected by the circuit breaker",
	}, []string{"provider"})

	// RateLimitExceeded tracks requests rejected by a rate limit (CounterVec - cumulative)
	RateLimitExceeded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buzzer",
		Subsystem: "http",
		Name:      "rate_limit_exceeded_total",
		Help:      "Total requests rejected because a rate limit was reached",
	}, []string{"scope"})
)

func IncConnection() {
	ActiveWebSocketConnections.Inc()
}

func DecConnection() {
	ActiveWebSocketConnections.Dec()
}
