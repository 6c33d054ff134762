package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "geodir_circuit_breaker_state",
			Help: "Circuit breaker state per dependency (0 closed, 1 open, 2 half-open)",
		},
		[]string{"dependency"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodir_http_rate_limited_total",
			Help: "Requests rejected by the public API rate limiter",
		},
		[]string{"backend"},
	)
)

// SetCircuitBreakerState publishes the numeric state of a dependency's breaker.
func SetCircuitBreakerState(dependency string, state int) {
	circuitBreakerState.WithLabelValues(dependency).Set(float64(state))
}

// RecordRateLimited counts a rejected request.
func RecordRateLimited(backend string) {
	rateLimitedTotal.WithLabelValues(backend).Inc()
}
