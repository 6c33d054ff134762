package server

import (
	"net/http"
	"time"

	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/health"
	"github.com/nimburion/geodir/pkg/middleware/logging"
	"github.com/nimburion/geodir/pkg/middleware/recovery"
	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/server/router"
	"github.com/nimburion/geodir/pkg/version"
)

// ManagementServer serves health, metrics and version endpoints on a
// separate port from the public API.
type ManagementServer struct {
	*Server
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
	version         version.Info
}

// NewManagementServer registers the management endpoints on r:
//   - /health: liveness plus dependency checks, 503 when any check fails
//   - /metrics: Prometheus exposition
//   - /version: build metadata
func NewManagementServer(
	cfg config.ManagementConfig,
	r router.Router,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
	info version.Info,
) *ManagementServer {
	r.Use(
		requestid.RequestID(),
		recovery.Recovery(log),
		logging.WithConfig(log, logging.Config{
			Enabled:      true,
			PathPolicies: []logging.PathPolicy{{Prefix: "/", Mode: logging.ModeMinimal}},
		}),
	)

	s := &ManagementServer{
		Server: NewServer(Config{
			Port:         cfg.Port,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}, r, log),
		healthRegistry:  healthRegistry,
		metricsRegistry: metricsRegistry,
		version:         info,
	}

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/version", s.handleVersion)
	return s
}

func (s *ManagementServer) handleHealth(c router.Context) error {
	result := s.healthRegistry.Check(c.Request().Context())
	if result.Status == health.StatusUnhealthy {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *ManagementServer) handleVersion(c router.Context) error {
	return c.JSON(http.StatusOK, s.version)
}
