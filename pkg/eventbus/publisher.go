package eventbus

import (
	"context"
	"fmt"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/observability/tracing"
	"github.com/nimburion/geodir/pkg/resilience"
)

// ProducerPublisher serializes change events and hands them to a Producer.
// Events are keyed by entity id so changes to one entity stay ordered.
type ProducerPublisher struct {
	producer   Producer
	topic      string
	system     string
	serializer Serializer
	breaker    *resilience.CircuitBreaker
	logger     logger.Logger
}

// PublisherOption configures a ProducerPublisher.
type PublisherOption func(*ProducerPublisher)

// WithCircuitBreaker guards producer calls with cb. While the circuit is
// open PublishChange fails immediately with resilience.ErrCircuitOpen.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) PublisherOption {
	return func(p *ProducerPublisher) {
		p.breaker = cb
	}
}

// NewProducerPublisher creates a publisher writing JSON events to topic.
// system names the broker in traces, e.g. "kafka".
func NewProducerPublisher(producer Producer, topic, system string, log logger.Logger, opts ...PublisherOption) (*ProducerPublisher, error) {
	if producer == nil {
		return nil, fmt.Errorf("producer is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	p := &ProducerPublisher{
		producer:   producer,
		topic:      topic,
		system:     system,
		serializer: NewJSONSerializer(),
		logger:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishChange implements Publisher.
func (p *ProducerPublisher) PublishChange(ctx context.Context, event ChangeEvent) error {
	ctx, span := tracing.StartMessagingSpan(ctx, tracing.SpanOperationMsgPublish,
		tracing.WithMessagingSystem(p.system),
		tracing.WithMessagingDestination(p.topic),
		tracing.WithMessagingMessageID(event.EventID),
	)
	defer span.End()

	msg, err := p.message(event)
	if err == nil {
		err = p.publish(ctx, msg)
	}
	if err != nil {
		tracing.RecordError(span, err)
		metrics.RecordChangeEvent(event.Entity, string(event.Operation), metrics.OutcomeError)
		return fmt.Errorf("publish %s %s event: %w", event.Entity, event.Operation, err)
	}

	tracing.RecordSuccess(span)
	metrics.RecordChangeEvent(event.Entity, string(event.Operation), metrics.OutcomeSuccess)
	p.logger.WithContext(ctx).Debug("change event published",
		"topic", p.topic,
		"entity", event.Entity,
		"operation", event.Operation,
		"id", event.EntityID,
	)
	return nil
}

func (p *ProducerPublisher) publish(ctx context.Context, msg *Message) error {
	if p.breaker == nil {
		return p.producer.Publish(ctx, p.topic, msg)
	}
	return p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.producer.Publish(ctx, p.topic, msg)
	})
}

func (p *ProducerPublisher) message(event ChangeEvent) (*Message, error) {
	value, err := p.serializer.Serialize(event)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:    event.EventID,
		Key:   event.EntityID,
		Value: value,
		Headers: map[string]string{
			"entity":    event.Entity,
			"operation": string(event.Operation),
		},
		ContentType: p.serializer.ContentType(),
		Timestamp:   event.OccurredAt,
	}, nil
}

// Close closes the underlying producer.
func (p *ProducerPublisher) Close() error {
	return p.producer.Close()
}

// HealthCheck fails while the circuit is open, otherwise it reports the
// producer's connectivity when the producer can check itself.
func (p *ProducerPublisher) HealthCheck(ctx context.Context) error {
	if p.breaker != nil && p.breaker.State() == resilience.StateOpen {
		return fmt.Errorf("%s publisher: %w", p.system, resilience.ErrCircuitOpen)
	}
	checker, ok := p.producer.(interface{ HealthCheck(context.Context) error })
	if !ok {
		return nil
	}
	return checker.HealthCheck(ctx)
}
