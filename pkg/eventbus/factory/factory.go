// Package factory selects the change event publisher from configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/eventbus/kafka"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/resilience"
)

// NewPublisher returns the publisher for cfg.Type. "none" or an empty type
// yields eventbus.NoopPublisher.
func NewPublisher(cfg config.EventBusConfig, log logger.Logger) (eventbus.Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", config.EventBusTypeNone:
		return eventbus.NoopPublisher{}, nil
	case config.EventBusTypeKafka:
		producer, err := kafka.NewAdapter(kafka.Config{
			Brokers:          cfg.Brokers,
			OperationTimeout: cfg.OperationTimeout,
		}, log)
		if err != nil {
			return nil, err
		}
		publisher, err := eventbus.NewProducerPublisher(producer, cfg.Topic, config.EventBusTypeKafka, log,
			eventbus.WithCircuitBreaker(newBreaker(cfg, log)),
		)
		if err != nil {
			_ = producer.Close()
			return nil, err
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported eventbus.type %q (supported: none, kafka)", cfg.Type)
	}
}

// newBreaker guards publishes to the broker. State changes are logged and
// exported as the eventbus circuit breaker gauge.
func newBreaker(cfg config.EventBusConfig, log logger.Logger) *resilience.CircuitBreaker {
	metrics.SetCircuitBreakerState("eventbus", int(resilience.StateClosed))
	return resilience.NewCircuitBreaker(resilience.Config{
		Name:             "eventbus",
		FailureThreshold: cfg.BreakerThreshold,
		Cooldown:         cfg.BreakerCooldown,
		CallTimeout:      cfg.OperationTimeout,
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("circuit breaker state changed", "dependency", name, "from", from.String(), "to", to.String())
			metrics.SetCircuitBreakerState(name, int(to))
		},
	})
}
