package server

import (
	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/middleware/logging"
	"github.com/nimburion/geodir/pkg/middleware/metrics"
	"github.com/nimburion/geodir/pkg/middleware/ratelimit"
	"github.com/nimburion/geodir/pkg/middleware/recovery"
	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/middleware/requestsize"
	"github.com/nimburion/geodir/pkg/middleware/tracing"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/server/router"
)

// PublicAPIServer serves the directory API.
type PublicAPIServer struct {
	*Server
}

// NewPublicAPIServer applies the public middleware stack to r and wraps it
// in a Server. Routes must be registered on r afterwards.
//
// Middleware order:
//  1. request id
//  2. panic recovery
//  3. access logging
//  4. metrics, when enabled
//  5. tracing, when enabled
//  6. rate limit, when a limiter is given
//  7. request body limit
func NewPublicAPIServer(cfg config.HTTPConfig, obsCfg config.ObservabilityConfig, limiter ratelimit.Limiter, backend string, r router.Router, log logger.Logger) *PublicAPIServer {
	middleware := []router.MiddlewareFunc{
		requestid.RequestID(),
		recovery.Recovery(log),
		logging.Logging(log),
	}
	if obsCfg.MetricsEnabled {
		middleware = append(middleware, metrics.Metrics())
	}
	if obsCfg.TracingEnabled {
		middleware = append(middleware, tracing.Tracing(tracing.Config{}))
	}
	if limiter != nil {
		middleware = append(middleware, ratelimit.Middleware(limiter, ratelimit.Config{Backend: backend}))
	}
	middleware = append(middleware, requestsize.Middleware(cfg.MaxRequestSize))
	r.Use(middleware...)

	return &PublicAPIServer{
		Server: NewServer(Config{
			Port:            cfg.Port,
			ReadTimeout:     cfg.ReadTimeout,
			WriteTimeout:    cfg.WriteTimeout,
			IdleTimeout:     cfg.IdleTimeout,
			ShutdownTimeout: cfg.ShutdownTimeout,
		}, r, log),
	}
}
