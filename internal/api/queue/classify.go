package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/internal/api/domain"
	"github.com/anthanhphan/go-channel-file-storage/internal/api/port"
	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
)

// Class is the retry verdict for a failed delete attempt.
type Class struct {
	Retryable bool
	Reason    string
}

// Classify splits failures into retryable (timeouts, resets, rate limits,
// 5xx, open circuits) and terminal (NotFound, other rejections).
func Classify(err error) Class {
	if err == nil {
		return Class{}
	}
	if errors.Is(err, port.ErrNotFound) {
		return Class{Retryable: false, Reason: "message not found"}
	}

	retryable := port.Retryable(err)
	var te *port.TransportError
	switch {
	case errors.Is(err, port.ErrTimeout):
		return Class{Retryable: true, Reason: "timeout"}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return Class{Retryable: true, Reason: "transport short-circuited"}
	case errors.As(err, &te) && te.StatusCode == 429:
		return Class{Retryable: true, Reason: "rate limited"}
	case errors.As(err, &te) && te.StatusCode >= 500:
		return Class{Retryable: true, Reason: "service unavailable"}
	case errors.As(err, &te) && te.StatusCode >= 400:
		return Class{Retryable: false, Reason: "rejected"}
	case retryable:
		return Class{Retryable: true, Reason: "connection failure"}
	default:
		return Class{Retryable: false, Reason: "unexpected error"}
	}
}

// Hint is the user-facing status line for a task.
func Hint(task domain.DeleteTask, maxRetries int, retryDelay time.Duration, now time.Time) string {
	switch task.Status {
	case domain.TaskProcessing:
		return "deleting"
	case domain.TaskCompleted:
		return "deleted"
	case domain.TaskFailed:
		return "failed, will not retry"
	}

	if task.Retries == 0 {
		return "queued"
	}
	wait := retryDelay
	if task.LastAttempt != nil {
		wait = task.LastAttempt.Add(retryDelay).Sub(now)
	}
	if wait < time.Second {
		return fmt.Sprintf("will retry shortly (attempt %d of %d)", task.Retries+1, maxRetries)
	}
	return fmt.Sprintf("will retry in %ds (attempt %d of %d)", int(wait.Round(time.Second).Seconds()), task.Retries+1, maxRetries)
}
