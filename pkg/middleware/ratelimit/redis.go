package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/geodir/pkg/observability/logger"
)

type redisClient interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// RedisConfig configures a RedisLimiter.
type RedisConfig struct {
	URL               string
	Prefix            string
	OperationTimeout  time.Duration
	RequestsPerSecond int
	Burst             int
}

// RedisLimiter counts requests per key in one-second windows shared by every
// instance. A key may make RequestsPerSecond+Burst requests per window.
// Redis errors let the request through.
type RedisLimiter struct {
	client    redisClient
	limit     int64
	window    time.Duration
	opTimeout time.Duration
	prefix    string
	now       func() time.Time
	log       logger.Logger
}

// NewRedisLimiter connects to cfg.URL and verifies the connection.
func NewRedisLimiter(cfg RedisConfig, log logger.Logger) (*RedisLimiter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis URL is required for distributed rate limiting")
	}
	if cfg.RequestsPerSecond <= 0 {
		return nil, errors.New("requests per second must be greater than zero")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = time.Second
	}
	opts.ReadTimeout = cfg.OperationTimeout
	opts.WriteTimeout = cfg.OperationTimeout

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis rate limiter ping failed: %w", err)
	}

	limiter := newRedisLimiter(client, cfg, log)
	log.Info("redis rate limiter connected",
		"limit_per_window", limiter.limit,
		"prefix", limiter.prefix,
	)
	return limiter, nil
}

func newRedisLimiter(client redisClient, cfg RedisConfig, log logger.Logger) *RedisLimiter {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "geodir:ratelimit"
	}
	timeout := cfg.OperationTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	burst := cfg.Burst
	if burst < 0 {
		burst = 0
	}
	return &RedisLimiter{
		client:    client,
		limit:     int64(cfg.RequestsPerSecond + burst),
		window:    time.Second,
		opTimeout: timeout,
		prefix:    prefix,
		now:       time.Now,
		log:       log,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opTimeout)
	defer cancel()

	redisKey := r.key(key)
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		r.log.WithContext(ctx).Error("redis rate limiter increment failed", "error", err)
		return true
	}
	if count == 1 {
		// Twice the window so a slow first request cannot leave a key without TTL.
		if err := r.client.Expire(ctx, redisKey, 2*r.window).Err(); err != nil {
			r.log.WithContext(ctx).Warn("redis rate limiter failed to set TTL", "key", redisKey, "error", err)
		}
	}
	return count <= r.limit
}

// key buckets requests into the current window.
func (r *RedisLimiter) key(client string) string {
	return fmt.Sprintf("%s:%s:%d", r.prefix, client, r.now().Unix())
}

// HealthCheck pings Redis.
func (r *RedisLimiter) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis rate limiter health check failed: %w", err)
	}
	return nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
