package health

import (
	"context"
	"time"
)

// Checkable is implemented by the store adapter and the event publisher.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker checks a Checkable under a timeout.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
	// failure is reported when the adapter check fails.
	failure Status
}

// NewAdapterChecker creates a checker that reports unhealthy on failure.
// A zero timeout defaults to five seconds.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{
		name:    name,
		adapter: adapter,
		timeout: timeout,
		failure: StatusUnhealthy,
	}
}

// NewDatabaseChecker checks the relational store. A failing store makes the
// service unhealthy.
func NewDatabaseChecker(db Checkable) *AdapterChecker {
	return NewAdapterChecker("database", db, 5*time.Second)
}

// NewEventBusChecker checks the change event broker. Writes still commit
// while the broker is down, so a failure only degrades the service.
func NewEventBusChecker(broker Checkable) *AdapterChecker {
	c := NewAdapterChecker("eventbus", broker, 5*time.Second)
	c.failure = StatusDegraded
	return c
}

// Check performs the health check on the adapter
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()

	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.adapter.HealthCheck(checkCtx)
	result := CheckResult{
		Name:      c.name,
		Status:    StatusHealthy,
		Message:   "OK",
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}
	if err != nil {
		result.Status = c.failure
		result.Message = ""
		result.Error = err.Error()
	}
	return result
}

// Name returns the name of the health check
func (c *AdapterChecker) Name() string {
	return c.name
}

// NewRateLimitChecker checks the shared rate limit store. The limiter lets
// requests through when its store is down, so failures only degrade.
func NewRateLimitChecker(store Checkable) *AdapterChecker {
	c := NewAdapterChecker("ratelimit", store, 2*time.Second)
	c.failure = StatusDegraded
	return c
}
