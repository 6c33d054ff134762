package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation is the kind of change recorded by a ChangeEvent.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// ChangeEvent describes one committed write to the directory.
type ChangeEvent struct {
	EventID    string    `json:"event_id"`
	Entity     string    `json:"entity"`
	Operation  Operation `json:"operation"`
	EntityID   string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	// Cascade counts the descendant rows removed with a deleted entity, keyed
	// by entity name.
	Cascade map[string]int64 `json:"cascade,omitempty"`
}

// NewChangeEvent stamps a new event with a fresh id and the current UTC time.
func NewChangeEvent(entity string, operation Operation, entityID string) ChangeEvent {
	return ChangeEvent{
		EventID:    uuid.NewString(),
		Entity:     entity,
		Operation:  operation,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers change events. Implementations are safe for concurrent use.
type Publisher interface {
	PublishChange(ctx context.Context, event ChangeEvent) error
	Close() error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// PublishChange implements Publisher.
func (NoopPublisher) PublishChange(context.Context, ChangeEvent) error { return nil }

// Close implements Publisher.
func (NoopPublisher) Close() error { return nil }
