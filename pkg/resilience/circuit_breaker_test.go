package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "telegram.sendDocument",
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
		Now:              clock.Now,
	})

	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitClosed {
		t.Fatalf("one failure should not open the circuit")
	}
	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected circuit open, got %s", cb.State())
	}

	clock.Advance(20 * time.Second)
	err := cb.Execute(context.Background(), succeed)
	var openErr *CircuitOpenError
	if !errors.As(err, &openErr) || !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected open error, got %v", err)
	}
	if openErr.RetryAfter != 40*time.Second {
		t.Fatalf("RetryAfter = %s, want 40s", openErr.RetryAfter)
	}
}

func TestCircuitBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), succeed)
	_ = cb.Execute(context.Background(), fail)
	if cb.State() != CircuitClosed {
		t.Fatalf("failures were not consecutive, got %s", cb.State())
	}
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	tests := []struct {
		name  string
		trial func(context.Context) error
		want  CircuitBreakerState
	}{
		{name: "success closes", trial: succeed, want: CircuitClosed},
		{name: "failure reopens", trial: fail, want: CircuitOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			cb := NewCircuitBreaker(CircuitBreakerConfig{
				FailureThreshold: 1,
				OpenTimeout:      10 * time.Second,
				Now:              clock.Now,
			})
			_ = cb.Execute(context.Background(), fail)
			clock.Advance(10 * time.Second)

			if cb.State() != CircuitHalfOpen {
				t.Fatalf("expected half-open after the timeout, got %s", cb.State())
			}
			_ = cb.Execute(context.Background(), tt.trial)
			if cb.State() != tt.want {
				t.Fatalf("State() = %s, want %s", cb.State(), tt.want)
			}
		})
	}
}

func TestCircuitBreakerHalfOpenLimitsTrialCalls(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      time.Second,
		Now:              clock.Now,
	})
	_ = cb.Execute(context.Background(), fail)
	clock.Advance(time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if err := cb.Execute(context.Background(), succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("second trial call should be rejected, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial call failed: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("expected closed after the trial succeeded, got %s", cb.State())
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	err := cb.Execute(context.Background(), func(context.Context) error { return context.Canceled })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the cancellation to pass through, got %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("cancellation must not open the circuit")
	}
}

func TestCircuitBreakerIsFailurePredicate(t *testing.T) {
	errRejected := errors.New("bad request")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, errRejected)
		},
	})

	for i := 0; i < 5; i++ {
		if err := cb.Execute(context.Background(), func(context.Context) error { return errRejected }); !errors.Is(err, errRejected) {
			t.Fatalf("expected the rejection to be returned, got %v", err)
		}
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("rejections must not open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreakerDropsStaleResults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// The circuit opens while the slow call is still running.
	_ = cb.Execute(context.Background(), fail)
	close(release)
	<-done

	if cb.State() != CircuitOpen {
		t.Fatalf("a result from before the trip must not change state, got %s", cb.State())
	}
}

func TestCircuitBreakerReportsTransitions(t *testing.T) {
	clock := newFakeClock()
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "telegram.getFile",
		FailureThreshold: 1,
		OpenTimeout:      time.Second,
		Now:              clock.Now,
		OnStateChange: func(name string, from, to CircuitBreakerState) {
			transitions = append(transitions, name+":"+string(from)+"->"+string(to))
		},
	})

	_ = cb.Execute(context.Background(), fail)
	clock.Advance(time.Second)
	_ = cb.Execute(context.Background(), succeed)

	want := []string{
		"telegram.getFile:closed->open",
		"telegram.getFile:open->half_open",
		"telegram.getFile:half_open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}
