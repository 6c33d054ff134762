// Package resilience guards calls to external dependencies with a circuit
// breaker. The event publisher uses it so a dead broker costs one fast
// failure per write instead of a full operation timeout.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	// StateClosed allows all calls through
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown elapses
	StateOpen
	// StateHalfOpen lets one trial call through
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling fn while the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a CircuitBreaker.
type Config struct {
	// Name identifies the guarded dependency in errors and callbacks.
	Name string
	// FailureThreshold consecutive failures open the circuit. Defaults to 5.
	FailureThreshold int
	// Cooldown is how long the circuit stays open before a trial. Defaults
	// to 30s.
	Cooldown time.Duration
	// CallTimeout bounds each call when the caller's context has no earlier
	// deadline. Zero disables it.
	CallTimeout time.Duration
	// OnStateChange is called outside the lock after every transition.
	OnStateChange func(name string, from, to State)
}

// CircuitBreaker opens after consecutive failures and lets a single trial
// call through once the cooldown has passed.
type CircuitBreaker struct {
	cfg      Config
	now      func() time.Time
	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

func NewCircuitBreaker(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open. Context cancellation by the
// caller is not counted as a failure of the dependency.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.acquire(); err != nil {
		return err
	}

	callCtx := ctx
	if cb.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.cfg.CallTimeout)
		defer cancel()
	}

	err := fn(callCtx)
	switch {
	case err == nil:
		cb.record(true)
	case ctx.Err() != nil:
		cb.release()
	default:
		cb.record(false)
	}
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	var from State
	changed := false
	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.cfg.Cooldown {
			cb.mu.Unlock()
			return cb.openError()
		}
		from, changed = cb.state, true
		cb.state = StateHalfOpen
		cb.probing = true
	case StateHalfOpen:
		if cb.probing {
			cb.mu.Unlock()
			return cb.openError()
		}
		cb.probing = true
	}
	cb.mu.Unlock()

	if changed {
		cb.notify(from, StateHalfOpen)
	}
	return nil
}

// release gives back a trial slot without judging the dependency.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	cb.probing = false
	cb.mu.Unlock()
}

func (cb *CircuitBreaker) record(success bool) {
	cb.mu.Lock()
	from := cb.state
	cb.probing = false
	if success {
		cb.failures = 0
		cb.state = StateClosed
	} else {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	}
	to := cb.state
	cb.mu.Unlock()

	if from != to {
		cb.notify(from, to)
	}
}

func (cb *CircuitBreaker) notify(from, to State) {
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}

func (cb *CircuitBreaker) openError() error {
	if cb.cfg.Name == "" {
		return ErrCircuitOpen
	}
	return fmt.Errorf("%s: %w", cb.cfg.Name, ErrCircuitOpen)
}

// State returns the current state. An open circuit whose cooldown has
// elapsed still reports open until the next call tries it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
	cb.mu.Unlock()
	if from != StateClosed {
		cb.notify(from, StateClosed)
	}
}
