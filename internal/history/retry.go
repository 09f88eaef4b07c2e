package history

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

const (
	defaultRetryAttempts = 3
	initialBackoff       = 100 * time.Millisecond
	maxBackoff           = 2 * time.Second
)

// isRetryable returns true for 5xx, 429 and transport-level failures.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Provider answered: only overload and server faults are worth repeating
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	// Open breaker or caller gave up
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Transport-level failures
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// backoff returns delay for attempt (0-based); exponential with cap.
func backoff(attempt int) time.Duration {
	d := initialBackoff
	for i := 0; i < attempt && d < maxBackoff; i++ {
		d = d * 3
		if d > maxBackoff {
			d = maxBackoff
		}
	}
	return d
}

// doWithRetryValue runs fn up to maxAttempts times and returns its value; retries retryable errors with backoff.
func doWithRetryValue[T any](ctx context.Context, maxAttempts int, sleep func(time.Duration) <-chan time.Time, fn func() (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		val, err := fn()
		if err == nil {
			return val, nil
		}
		lastErr = err
		// Last attempt or non-retryable: return immediately
		if attempt == maxAttempts-1 || !isRetryable(err) {
			return zero, err
		}
		// Wait before next attempt, honouring cancellation
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-sleep(backoff(attempt)):
		}
	}
	return zero, lastErr
}
