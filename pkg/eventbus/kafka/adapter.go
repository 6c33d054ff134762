// Package kafka publishes change events to Apache Kafka through
// segmentio/kafka-go.
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nimburion/geodir/pkg/eventbus"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Adapter implements eventbus.Producer on a single kafka.Writer.
type Adapter struct {
	writer messageWriter
	logger logger.Logger
	config Config
	mu     sync.RWMutex
	closed bool
}

// Config holds the configuration for the Kafka adapter.
type Config struct {
	Brokers          []string
	OperationTimeout time.Duration
	MaxRetries       int
}

// NewAdapter creates a producer for the given brokers. The connection is
// established lazily on the first write.
func NewAdapter(cfg Config, log logger.Logger) (*Adapter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required")
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	writer := &kafka.Writer{
		Addr: kafka.TCP(cfg.Brokers...),
		// Hash keeps every event of one entity on one partition.
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries,
		WriteTimeout: cfg.OperationTimeout,
		ReadTimeout:  cfg.OperationTimeout,
		RequiredAcks: kafka.RequireAll,
	}

	log.Info("kafka producer initialized",
		"brokers", cfg.Brokers,
		"operation_timeout", cfg.OperationTimeout,
	)

	return newAdapter(writer, cfg, log), nil
}

func newAdapter(writer messageWriter, cfg Config, log logger.Logger) *Adapter {
	return &Adapter{writer: writer, logger: log, config: cfg}
}

// Publish sends a single message to topic.
func (a *Adapter) Publish(ctx context.Context, topic string, message *eventbus.Message) error {
	if message == nil {
		return fmt.Errorf("message is required")
	}
	return a.write(ctx, topic, []*eventbus.Message{message})
}

// PublishBatch sends messages to topic in one write. An empty batch is a no-op.
func (a *Adapter) PublishBatch(ctx context.Context, topic string, messages []*eventbus.Message) error {
	if len(messages) == 0 {
		return a.ensureOpen()
	}
	return a.write(ctx, topic, messages)
}

func (a *Adapter) write(ctx context.Context, topic string, messages []*eventbus.Message) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.OperationTimeout)
	defer cancel()

	if err := a.writer.WriteMessages(ctx, toKafkaMessages(topic, messages)...); err != nil {
		a.logger.Error("failed to publish to kafka",
			"topic", topic,
			"batch_size", len(messages),
			"error", err,
		)
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	a.logger.Debug("published to kafka", "topic", topic, "batch_size", len(messages))
	return nil
}

func (a *Adapter) ensureOpen() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return fmt.Errorf("kafka adapter is closed")
	}
	return nil
}

// HealthCheck dials the first reachable broker and asks for cluster metadata.
func (a *Adapter) HealthCheck(ctx context.Context) error {
	if err := a.ensureOpen(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var lastErr error
	for _, broker := range a.config.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("kafka health check failed: %w", lastErr)
}

// Close flushes and closes the writer. Subsequent calls are no-ops.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	if err := a.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	a.logger.Info("kafka producer closed")
	return nil
}

func toKafkaMessages(topic string, messages []*eventbus.Message) []kafka.Message {
	out := make([]kafka.Message, 0, len(messages))
	for _, msg := range messages {
		headers := convertHeaders(msg.Headers)
		if msg.ContentType != "" {
			headers = append(headers, kafka.Header{Key: "content-type", Value: []byte(msg.ContentType)})
		}
		if msg.ID != "" {
			headers = append(headers, kafka.Header{Key: "message-id", Value: []byte(msg.ID)})
		}
		out = append(out, kafka.Message{
			Topic:   topic,
			Key:     []byte(msg.Key),
			Value:   msg.Value,
			Headers: headers,
			Time:    msg.Timestamp,
		})
	}
	return out
}

func convertHeaders(headers map[string]string) []kafka.Header {
	if headers == nil {
		return nil
	}
	kafkaHeaders := make([]kafka.Header, 0, len(headers))
	for key, value := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: key, Value: []byte(value)})
	}
	return kafkaHeaders
}
