package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitOpenError reports circuit-open status with a concrete retry delay.
type CircuitOpenError struct {
	Name       string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	retryAfter := max(e.RetryAfter, 0)
	if e.Name == "" {
		return fmt.Sprintf("%v: retry in %s", ErrCircuitOpen, retryAfter)
	}
	return fmt.Sprintf("%v for %s: retry in %s", ErrCircuitOpen, e.Name, retryAfter)
}

func (e *CircuitOpenError) Is(target error) bool {
	return target == ErrCircuitOpen
}

type CircuitBreakerState string

const (
	CircuitClosed   CircuitBreakerState = "closed"
	CircuitOpen     CircuitBreakerState = "open"
	CircuitHalfOpen CircuitBreakerState = "half_open"
)

// CircuitBreakerConfig tunes a breaker. Zero values get defaults.
type CircuitBreakerConfig struct {
	Name string

	// FailureThreshold consecutive failures open a closed breaker.
	FailureThreshold int
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int
	OpenTimeout      time.Duration
	// HalfOpenMaxFlight bounds trial calls while half-open.
	HalfOpenMaxFlight int

	// IsFailure decides which errors count against the breaker. Other
	// errors count as successes, except context.Canceled which is ignored.
	IsFailure func(error) bool

	// OnStateChange runs under the breaker lock and must not call back into it.
	OnStateChange func(name string, from, to CircuitBreakerState)

	Now func() time.Time
}

// CircuitBreaker guards one dependency. Each state change starts a new
// generation; results from calls admitted in an older one are dropped.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu         sync.Mutex
	state      CircuitBreakerState
	generation uint64
	failures   int
	successes  int
	inFlight   int
	openUntil  time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 10 * time.Second
	}
	if cfg.HalfOpenMaxFlight <= 0 {
		cfg.HalfOpenMaxFlight = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed}
}

func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

func (cb *CircuitBreaker) Name() string {
	return cb.cfg.Name
}

func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.advanceLocked(cb.cfg.Now())
	return cb.state
}

// Execute runs fn unless the breaker rejects the call with a *CircuitOpenError.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	generation, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.record(generation, err)
	return err
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.cfg.Now()
	cb.advanceLocked(now)

	switch cb.state {
	case CircuitOpen:
		return 0, cb.openErrLocked(now)
	case CircuitHalfOpen:
		if cb.inFlight >= cb.cfg.HalfOpenMaxFlight {
			return 0, cb.openErrLocked(now)
		}
		cb.inFlight++
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) record(generation uint64, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if generation != cb.generation {
		return
	}
	if cb.state == CircuitHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}

	now := cb.cfg.Now()
	switch {
	case cb.cfg.IsFailure(err):
		cb.failures++
		cb.successes = 0
		if cb.state == CircuitHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.transitionLocked(CircuitOpen, now)
		}
	case errors.Is(err, context.Canceled):
	default:
		cb.failures = 0
		if cb.state == CircuitHalfOpen {
			cb.successes++
			if cb.successes >= cb.cfg.SuccessThreshold {
				cb.transitionLocked(CircuitClosed, now)
			}
		}
	}
}

func (cb *CircuitBreaker) advanceLocked(now time.Time) {
	if cb.state == CircuitOpen && !now.Before(cb.openUntil) {
		cb.transitionLocked(CircuitHalfOpen, now)
	}
}

func (cb *CircuitBreaker) transitionLocked(next CircuitBreakerState, now time.Time) {
	prev := cb.state
	if prev == next {
		return
	}
	cb.state = next
	cb.generation++
	cb.failures, cb.successes, cb.inFlight = 0, 0, 0
	if next == CircuitOpen {
		cb.openUntil = now.Add(cb.cfg.OpenTimeout)
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, prev, next)
	}
}

func (cb *CircuitBreaker) openErrLocked(now time.Time) error {
	return &CircuitOpenError{
		Name:       cb.cfg.Name,
		RetryAfter: max(cb.openUntil.Sub(now), 0),
	}
}
