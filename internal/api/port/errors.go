package port

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/anthanhphan/go-channel-file-storage/pkg/resilience"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrExpired        = errors.New("expired")
	ErrUploadFailed   = errors.New("upload failed")
	ErrDownloadFailed = errors.New("download failed")
	ErrDeleteFailed   = errors.New("delete failed")
	ErrTimeout        = errors.New("timeout")
	ErrConfig         = errors.New("config error")
	ErrTooLarge       = errors.New("file too large")
	ErrInvalidInput   = errors.New("invalid input")
)

// TransportError wraps a messaging transport failure with a stable kind.
// errors.Is matches both Kind and the underlying cause.
type TransportError struct {
	Op         string
	Kind       error
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %v (status %d): %v", e.Op, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// NewTransportError builds a TransportError, defaulting Err to Kind.
func NewTransportError(op string, kind error, statusCode int, err error) *TransportError {
	if err == nil {
		err = kind
	}
	return &TransportError{Op: op, Kind: kind, StatusCode: statusCode, Err: err}
}

// Retryable reports whether a failed transport call may succeed if repeated:
// timeouts, dropped connections, rate limits, 5xx and open circuits.
// NotFound, Expired, config errors and other 4xx rejections are terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrExpired) || errors.Is(err, ErrConfig) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return true
	}

	var te *TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return te.StatusCode == 429 || te.StatusCode >= 500
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// A transport failure without a status never reached the service.
	return te != nil
}
