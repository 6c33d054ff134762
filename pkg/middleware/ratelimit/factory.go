package ratelimit

import (
	"fmt"

	"github.com/nimburion/geodir/pkg/config"
	"github.com/nimburion/geodir/pkg/observability/logger"
)

// New builds the limiter selected by cfg.Backend. It returns nil when rate
// limiting is disabled.
func New(cfg config.RateLimitConfig, log logger.Logger) (Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "", config.RateLimitBackendMemory:
		return NewTokenBucketLimiter(cfg.RequestsPerSecond, cfg.Burst), nil
	case config.RateLimitBackendRedis:
		limiter, err := NewRedisLimiter(RedisConfig{
			URL:               cfg.RedisURL,
			Prefix:            cfg.RedisPrefix,
			OperationTimeout:  cfg.RedisTimeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}, log)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	default:
		return nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}
