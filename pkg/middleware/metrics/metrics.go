// Package metrics records Prometheus HTTP metrics per route.
package metrics

import (
	"time"

	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/server/router"
)

// unmatchedRoute labels requests that matched no route.
const unmatchedRoute = "unmatched"

// Metrics creates middleware that records request duration, count and
// in-flight requests, labelled by method, route template and status.
func Metrics() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			metrics.IncrementInFlight()
			defer metrics.DecrementInFlight()

			start := time.Now()
			err := next(c)

			route := c.Route()
			if route == "" {
				route = unmatchedRoute
			}
			metrics.RecordHTTPMetrics(c.Request().Method, route, c.Response().Status(), time.Since(start))

			return err
		}
	}
}
