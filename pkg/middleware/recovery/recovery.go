// Package recovery turns handler panics into 500 responses.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/server/router"
)

// Recovery creates middleware that recovers from panics in HTTP handlers,
// logs the panic with its stack and answers 500 unless a response was
// already written.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				requestID := requestid.GetRequestID(c.Request().Context())
				log.Error("panic recovered",
					"request_id", requestID,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				err = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"error":      "internal_server_error",
					"code":       "internal.error",
					"message":    "an unexpected error occurred",
					"request_id": requestID,
				})
			}()

			return next(c)
		}
	}
}
