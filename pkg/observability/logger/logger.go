// Package logger provides the structured logging contract used across geodir.
package logger

import (
	"context"
)

// Logger defines the interface for structured logging.
// All log methods accept a message string followed by key-value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With creates a child logger that includes the given key-value pairs
	// in every subsequent entry.
	With(args ...any) Logger

	// WithContext creates a child logger carrying the request ID stored in ctx, if any.
	WithContext(ctx context.Context) Logger
}

type requestIDKey struct{}

// ContextWithRequestID returns a copy of ctx carrying the given request ID.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, or "" when absent.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}
