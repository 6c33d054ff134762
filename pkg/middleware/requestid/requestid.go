// Package requestid assigns every request a correlation id.
package requestid

import (
	"context"

	"github.com/google/uuid"

	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/server/router"
)

// RequestIDHeader is the HTTP header name for request ID.
const RequestIDHeader = "X-Request-ID"

// ContextKey is the router.Context key holding the request id.
const ContextKey = "request_id"

// maxLength bounds ids accepted from clients.
const maxLength = 128

// RequestID creates middleware that keeps a client supplied X-Request-ID or
// generates a UUID, echoes it in the response and stores it in the request
// context where the logger picks it up.
func RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			requestID := c.Request().Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxLength {
				requestID = uuid.NewString()
			}

			c.Set(ContextKey, requestID)
			c.Response().Header().Set(RequestIDHeader, requestID)

			ctx := logger.ContextWithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// GetRequestID extracts the request ID from a context.
// Returns empty string if no request ID is found.
func GetRequestID(ctx context.Context) string {
	return logger.RequestIDFromContext(ctx)
}
