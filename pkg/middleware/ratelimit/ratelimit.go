// Package ratelimit throttles public API clients.
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nimburion/geodir/pkg/middleware/requestid"
	"github.com/nimburion/geodir/pkg/observability/metrics"
	"github.com/nimburion/geodir/pkg/server/router"
)

// Limiter decides whether the client identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// TokenBucketLimiter keeps one token bucket per key in process memory.
// Buckets idle for longer than the idle TTL are dropped on the next sweep.
type TokenBucketLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	nextSweep time.Time
	now       func() time.Time
}

// NewTokenBucketLimiter allows requestsPerSecond on average with bursts of
// up to burst requests per key. A burst below one is raised to one.
func NewTokenBucketLimiter(requestsPerSecond, burst int) *TokenBucketLimiter {
	if burst < 1 {
		burst = 1
	}
	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
	}
}

func (l *TokenBucketLimiter) Allow(_ context.Context, key string) bool {
	now := l.now()

	l.mu.Lock()
	if now.After(l.nextSweep) {
		l.sweep(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// sweep must be called with l.mu held.
func (l *TokenBucketLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.nextSweep = now.Add(l.idleTTL)
}

// Len returns the number of tracked keys.
func (l *TokenBucketLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Config configures the middleware.
type Config struct {
	// KeyFunc identifies the client. Defaults to ClientIP.
	KeyFunc func(router.Context) string
	// Backend labels rejections in metrics.
	Backend string
	// RetryAfter is advertised on 429 responses. Defaults to one second.
	RetryAfter           time.Duration
	ExcludedPathPrefixes []string
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func Middleware(limiter Limiter, cfg Config) router.MiddlewareFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c router.Context) string { return ClientIP(c.Request()) }
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = time.Second
	}
	retryAfter := strconv.Itoa(int((cfg.RetryAfter + time.Second - 1) / time.Second))

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			req := c.Request()
			for _, prefix := range cfg.ExcludedPathPrefixes {
				if strings.HasPrefix(req.URL.Path, prefix) {
					return next(c)
				}
			}

			if limiter.Allow(req.Context(), cfg.KeyFunc(c)) {
				return next(c)
			}

			metrics.RecordRateLimited(cfg.Backend)
			c.Response().Header().Set("Retry-After", retryAfter)
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":      "too many requests",
				"code":       "request.rate_limited",
				"message":    "rate limit exceeded, retry after " + retryAfter + "s",
				"request_id": requestid.GetRequestID(req.Context()),
			})
		}
	}
}

// ClientIP returns the first X-Forwarded-For address, then X-Real-IP, then
// the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
