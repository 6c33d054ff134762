package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOperation represents a traced operation type.
type SpanOperation string

const (
	SpanOperationDBQuery  SpanOperation = "db.query"
	SpanOperationDBInsert SpanOperation = "db.insert"
	SpanOperationDBUpdate SpanOperation = "db.update"
	SpanOperationDBDelete SpanOperation = "db.delete"

	SpanOperationMsgPublish SpanOperation = "messaging.publish"
)

// StartDatabaseSpan creates a client span for a repository operation.
// The span is named "DB <operation> <table>" when a table is given.
func StartDatabaseSpan(ctx context.Context, operation SpanOperation, opts ...DatabaseSpanOption) (context.Context, trace.Span) {
	spanOpts := &databaseSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("db.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("DB %s", operation)
	if spanOpts.table != "" {
		spanName = fmt.Sprintf("DB %s %s", operation, spanOpts.table)
	}

	ctx, span := otel.Tracer("geodir/database").Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// DatabaseSpanOption configures a database span.
type DatabaseSpanOption func(*databaseSpanOptions)

type databaseSpanOptions struct {
	table      string
	attributes []attribute.KeyValue
}

// WithDBTable sets the database table name for the span.
func WithDBTable(table string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.table = table
		opts.attributes = append(opts.attributes, attribute.String("db.table", table))
	}
}

// WithDBSystem sets the database system ("postgresql", "mysql").
func WithDBSystem(system string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("db.system", system))
	}
}

// WithEntity tags the span with the directory entity and, when known, its id.
func WithEntity(entity, id string) DatabaseSpanOption {
	return func(opts *databaseSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("geodir.entity", entity))
		if id != "" {
			opts.attributes = append(opts.attributes, attribute.String("geodir.entity_id", id))
		}
	}
}

// StartMessagingSpan creates a producer span for publishing to a topic.
func StartMessagingSpan(ctx context.Context, operation SpanOperation, opts ...MessagingSpanOption) (context.Context, trace.Span) {
	spanOpts := &messagingSpanOptions{
		attributes: []attribute.KeyValue{
			attribute.String("messaging.operation", string(operation)),
		},
	}
	for _, opt := range opts {
		opt(spanOpts)
	}

	spanName := fmt.Sprintf("MSG %s", operation)
	if spanOpts.destination != "" {
		spanName = fmt.Sprintf("MSG %s %s", operation, spanOpts.destination)
	}

	kind := trace.SpanKindClient
	if operation == SpanOperationMsgPublish {
		kind = trace.SpanKindProducer
	}

	ctx, span := otel.Tracer("geodir/messaging").Start(ctx, spanName, trace.WithSpanKind(kind))
	span.SetAttributes(spanOpts.attributes...)
	return ctx, span
}

// MessagingSpanOption configures a messaging span.
type MessagingSpanOption func(*messagingSpanOptions)

type messagingSpanOptions struct {
	destination string
	attributes  []attribute.KeyValue
}

// WithMessagingSystem sets the messaging system, e.g. "kafka".
func WithMessagingSystem(system string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("messaging.system", system))
	}
}

// WithMessagingDestination sets the topic name.
func WithMessagingDestination(destination string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.destination = destination
		opts.attributes = append(opts.attributes, attribute.String("messaging.destination", destination))
	}
}

// WithMessagingMessageID sets the message ID.
func WithMessagingMessageID(messageID string) MessagingSpanOption {
	return func(opts *messagingSpanOptions) {
		opts.attributes = append(opts.attributes, attribute.String("messaging.message_id", messageID))
	}
}

// RecordError records err on the span and marks it failed. A nil err is ignored.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// RecordSuccess sets the span status to OK.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}
