package resilience

import (
	"context"
	"time"
)

// RetryConfig bounds Retry. Delay doubles after each failed attempt up to MaxDelay.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration

	// ShouldRetry decides whether err is worth another attempt. Nil retries everything.
	ShouldRetry func(err error) bool
	// DelayFor may override the wait for a specific error, e.g. a server-sent retry-after.
	DelayFor func(err error) (time.Duration, bool)
}

// Retry runs fn until it succeeds, the attempts are spent, ShouldRetry
// rejects the error, or ctx is done. It returns the last error.
func Retry(ctx context.Context, cfg RetryConfig, fn func(context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	delay := cfg.Delay

	var err error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}
		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err) {
			break
		}

		wait := delay
		if cfg.DelayFor != nil {
			if d, ok := cfg.DelayFor(err); ok {
				wait = d
			}
		}
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
		if sleepErr := SleepWithContext(ctx, wait); sleepErr != nil {
			return err
		}
		delay *= 2
	}
	return err
}

// SleepWithContext waits d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
