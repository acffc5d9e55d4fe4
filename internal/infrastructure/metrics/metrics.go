package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Websearch metrics - using explicit registration
var (
	// HTTP requests served by the gateway
	RequestsTotal *prometheus.CounterVec

	// Facade search outcomes by error kind ("ok" on success)
	SearchesTotal *prometheus.CounterVec

	// Facade search duration
	SearchDuration *prometheus.HistogramVec

	// Provider tool invocations
	ToolCallsTotal *prometheus.CounterVec

	// Entries held by the provider's recent search cache
	CacheEntries prometheus.Gauge

	// Event broadcasts by event name and delivery result
	BroadcastsTotal *prometheus.CounterVec

	// Circuit breaker state gauge
	CircuitBreakerState *prometheus.GaugeVec

	// Upstream search API latency
	ExternalProviderLatency *prometheus.HistogramVec
)

// init creates and registers all metrics with the default registry
func init() {
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "websearch",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of gateway HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "websearch",
			Subsystem: "facade",
			Name:      "searches_total",
			Help:      "Total searches issued through the facade, by outcome",
		},
		[]string{"outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "websearch",
			Subsystem: "facade",
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds as seen by the facade",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "websearch",
			Subsystem: "provider",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations handled by the provider",
		},
		[]string{"tool_name", "status"},
	)

	CacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "websearch",
			Subsystem: "provider",
			Name:      "cache_entries",
			Help:      "Number of recent searches held in the provider cache",
		},
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "websearch",
			Subsystem: "gateway",
			Name:      "broadcasts_total",
			Help:      "Total event broadcasts by event name and delivery result",
		},
		[]string{"event", "result"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "websearch",
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 0.5=half-open, 1=open)",
		},
		[]string{"provider"},
	)

	ExternalProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "websearch",
			Subsystem: "provider",
			Name:      "external_provider_latency_seconds",
			Help:      "Upstream search API response time in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "status"},
	)

	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(ToolCallsTotal)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(BroadcastsTotal)
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(ExternalProviderLatency)
}

// RecordRequest records a gateway HTTP request
func RecordRequest(method, route, status string) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordSearch records one facade search
func RecordSearch(outcome string, durationSec float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	SearchesTotal.WithLabelValues(outcome).Inc()
	SearchDuration.WithLabelValues(outcome).Observe(durationSec)
}

// RecordToolCall records a tool invocation
func RecordToolCall(toolName, status string) {
	if status == "" {
		status = "unknown"
	}
	ToolCallsTotal.WithLabelValues(toolName, status).Inc()
}

// SetCacheEntries sets the current cache size
func SetCacheEntries(n int) {
	CacheEntries.Set(float64(n))
}

// RecordBroadcast records one broadcast attempt
func RecordBroadcast(event, result string) {
	BroadcastsTotal.WithLabelValues(event, result).Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func SetCircuitBreakerState(provider string, state string) {
	var val float64
	switch state {
	case "closed":
		val = 0.0
	case "half-open":
		val = 0.5
	case "open":
		val = 1.0
	}
	CircuitBreakerState.WithLabelValues(provider).Set(val)
}

// RecordExternalProviderLatency records upstream response time
func RecordExternalProviderLatency(provider, status string, durationSec float64) {
	ExternalProviderLatency.WithLabelValues(provider, status).Observe(durationSec)
}
