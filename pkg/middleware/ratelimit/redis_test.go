package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nimburion/geodir/pkg/observability/logger"
)

type fakeRedis struct {
	counts  map[string]int64
	ttls    map[string]time.Duration
	incrErr error
	pingErr error
	closed  bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if f.incrErr != nil {
		cmd.SetErr(f.incrErr)
		return cmd
	}
	f.counts[key]++
	cmd.SetVal(f.counts[key])
	return cmd
}

func (f *fakeRedis) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	f.ttls[key] = expiration
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	if f.pingErr != nil {
		cmd.SetErr(f.pingErr)
		return cmd
	}
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func newTestRedisLimiter(client redisClient, rps, burst int) (*RedisLimiter, *fixedClock) {
	clock := &fixedClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newRedisLimiter(client, RedisConfig{RequestsPerSecond: rps, Burst: burst}, logger.NewNop())
	l.now = clock.now
	return l, clock
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	client := newFakeRedis()
	l, clock := newTestRedisLimiter(client, 2, 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !l.Allow(ctx, "client") {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow(ctx, "client") {
		t.Fatal("fourth request in the window should be rejected")
	}

	key := "geodir:ratelimit:client:" + "1767225600"
	if client.ttls[key] != 2*time.Second {
		t.Fatalf("ttl for %s = %v", key, client.ttls[key])
	}

	clock.advance(time.Second)
	if !l.Allow(ctx, "client") {
		t.Fatal("new window should reset the count")
	}
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	client := newFakeRedis()
	client.incrErr = errors.New("connection refused")
	l, _ := newTestRedisLimiter(client, 1, 0)

	for i := 0; i < 3; i++ {
		if !l.Allow(context.Background(), "client") {
			t.Fatal("redis failures should not reject requests")
		}
	}
}

func TestRedisLimiter_HealthCheckAndClose(t *testing.T) {
	client := newFakeRedis()
	l, _ := newTestRedisLimiter(client, 1, 0)

	if err := l.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	client.pingErr = errors.New("down")
	if err := l.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error")
	}
	if err := l.Close(); err != nil || !client.closed {
		t.Fatalf("Close() error = %v, closed = %v", err, client.closed)
	}
}

func TestNewRedisLimiter_Validation(t *testing.T) {
	if _, err := NewRedisLimiter(RedisConfig{RequestsPerSecond: 1}, logger.NewNop()); err == nil {
		t.Fatal("expected error for missing URL")
	}
	if _, err := NewRedisLimiter(RedisConfig{URL: "redis://localhost:6379"}, logger.NewNop()); err == nil {
		t.Fatal("expected error for zero rate")
	}
	if _, err := NewRedisLimiter(RedisConfig{URL: "://bad", RequestsPerSecond: 1}, logger.NewNop()); err == nil {
		t.Fatal("expected error for malformed URL")
	}
}
