package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Repository operation outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
)

var (
	repositoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "geodir_repository_operation_duration_seconds",
			Help:    "Duration of directory repository operations in seconds",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"entity", "operation"},
	)

	repositoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodir_repository_operations_total",
			Help: "Total directory repository operations by outcome",
		},
		[]string{"entity", "operation", "outcome"},
	)

	changeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geodir_change_events_total",
			Help: "Change events handed to the event bus by outcome",
		},
		[]string{"entity", "operation", "outcome"},
	)
)

// RecordRepositoryOperation records one repository call.
func RecordRepositoryOperation(entity, operation, outcome string, duration time.Duration) {
	repositoryOperationDuration.WithLabelValues(entity, operation).Observe(duration.Seconds())
	repositoryOperationsTotal.WithLabelValues(entity, operation, outcome).Inc()
}

// RecordChangeEvent counts a change event publish attempt.
func RecordChangeEvent(entity, operation, outcome string) {
	changeEventsTotal.WithLabelValues(entity, operation, outcome).Inc()
}
