// Package resilience isolates calls to external event sources so that one slow
// or failing source cannot stall a calendar refresh.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "bist-takvim/internal/errors"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState string

const (
	CircuitClosed   CircuitState = "CLOSED"    // Normal operation
	CircuitOpen     CircuitState = "OPEN"      // Failing, calls are skipped
	CircuitHalfOpen CircuitState = "HALF_OPEN" // Probing whether the source recovered
)

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// SuccessThreshold is the number of half-open successes that closes it again
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before a probe is allowed
	Cooldown time.Duration
	// CallTimeout bounds a single call; zero means the caller's context only
	CallTimeout time.Duration
}

// DefaultCircuitBreakerConfig returns the settings used for event sources.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Cooldown:         10 * time.Minute,
		CallTimeout:      20 * time.Second,
	}
}

// ErrCircuitOpen is returned when the circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards one named dependency.
type CircuitBreaker struct {
	name   string
	config CircuitBreakerConfig
	now    func() time.Time

	mu              sync.Mutex
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time

	totalCalls    int64
	totalFailures int64
	totalSkipped  int64
	totalTimeouts int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		name:   name,
		config: config,
		now:    time.Now,
		state:  CircuitClosed,
	}
}

// WithClock replaces the time source used for cooldown accounting.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// ExecuteWithResult runs fn under the breaker. The call is abandoned when the
// per-call timeout or ctx expires; fn receives the bounded context and should
// honour it, but a call that ignores it cannot hold up the caller.
func ExecuteWithResult[T any](cb *CircuitBreaker, ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := cb.allow(); err != nil {
		return zero, err
	}

	callCtx := ctx
	if cb.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cb.config.CallTimeout)
		defer cancel()
	}

	type result struct {
		value T
		err   error
	}

	done := make(chan result, 1)
	go func() {
		v, err := fn(callCtx)
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			cb.recordFailure(false)
			return zero, r.err
		}
		cb.recordSuccess()
		return r.value, nil
	case <-callCtx.Done():
		cb.recordFailure(true)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, fmt.Errorf("%w: %s after %s", apperrors.ErrTimeout, cb.name, cb.config.CallTimeout)
		}
		return zero, callCtx.Err()
	}
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++

	if cb.state == CircuitOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.config.Cooldown {
			cb.totalSkipped++
			return fmt.Errorf("%w: %s", ErrCircuitOpen, cb.name)
		}
		cb.transitionTo(CircuitHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	case CircuitClosed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) recordFailure(timeout bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalFailures++
	if timeout {
		cb.totalTimeouts++
	}
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(state CircuitState) {
	cb.state = state
	cb.failures = 0
	cb.successes = 0
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Name returns the circuit breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// Stats returns circuit breaker statistics.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		Name:            cb.name,
		State:           cb.state,
		TotalCalls:      cb.totalCalls,
		TotalFailures:   cb.totalFailures,
		TotalSkipped:    cb.totalSkipped,
		TotalTimeouts:   cb.totalTimeouts,
		CurrentFailures: cb.failures,
		LastFailureTime: cb.lastFailureTime,
	}
}

// CircuitBreakerStats holds circuit breaker statistics.
type CircuitBreakerStats struct {
	Name            string       `json:"name"`
	State           CircuitState `json:"state"`
	TotalCalls      int64        `json:"total_calls"`
	TotalFailures   int64        `json:"total_failures"`
	TotalSkipped    int64        `json:"total_skipped"`
	TotalTimeouts   int64        `json:"total_timeouts"`
	CurrentFailures int          `json:"current_failures"`
	LastFailureTime time.Time    `json:"last_failure_time"`
}
