// Package eventbus publishes directory change events to a message broker.
package eventbus

import (
	"context"
	"time"
)

// Producer publishes messages to topics.
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error

	// PublishBatch sends messages in one write; it fails if any message fails.
	PublishBatch(ctx context.Context, topic string, messages []*Message) error

	// Close flushes pending messages and releases the connection.
	Close() error
}

// Message is a broker-neutral message.
type Message struct {
	ID string

	// Key selects the partition; messages with the same key keep their order.
	Key string

	Value       []byte
	Headers     map[string]string
	ContentType string
	Timestamp   time.Time
}
