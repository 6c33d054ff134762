// Package logging writes one structured access log entry per request.
package logging

import (
	"strings"
	"time"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/observability/logger"
	"github.com/nimburion/geodir/pkg/server/router"
)

// Mode defines logging verbosity for matching request paths.
type Mode string

// Logging mode constants
const (
	// ModeOff disables request logging
	ModeOff Mode = "off"
	// ModeMinimal logs only failed and server error requests
	ModeMinimal Mode = "minimal"
	// ModeFull logs every request
	ModeFull Mode = "full"
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled bool
	// ExcludedPathPrefixes are never logged, e.g. "/metrics".
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy
}

// PathPolicy configures a logging mode for a path prefix.
type PathPolicy struct {
	Prefix string
	Mode   Mode
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{Enabled: true}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware with custom configuration.
// Entries carry request_id, method, route, path, status, duration_ms and
// remote_addr; 5xx responses and handler errors log at error level, 4xx at
// warn.
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			mode := cfg.modeForPath(req.URL.Path)
			if mode == ModeOff {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			status := c.Response().Status()

			fields := []any{
				"request_id", requestid.GetRequestID(c.Request().Context()),
				"method", req.Method,
				"route", c.Route(),
				"path", req.URL.Path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", req.RemoteAddr,
			}
			if err != nil {
				fields = append(fields, "error", err)
			}

			switch {
			case err != nil || status >= 500:
				log.Error("request failed", fields...)
			case status >= 400:
				log.Warn("request rejected", fields...)
			case mode == ModeFull:
				log.Info("request completed", fields...)
			}
			return err
		}
	}
}

func (c Config) modeForPath(path string) Mode {
	if !c.Enabled {
		return ModeOff
	}

	for _, prefix := range c.ExcludedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ModeOff
		}
	}

	bestLen := -1
	bestMode := ModeFull
	for _, policy := range c.PathPolicies {
		if strings.TrimSpace(policy.Prefix) == "" {
			continue
		}
		if strings.HasPrefix(path, policy.Prefix) && len(policy.Prefix) > bestLen {
			bestLen = len(policy.Prefix)
			bestMode = parseMode(policy.Mode)
		}
	}
	return bestMode
}

func parseMode(mode Mode) Mode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(ModeOff):
		return ModeOff
	case string(ModeMinimal):
		return ModeMinimal
	default:
		return ModeFull
	}
}
