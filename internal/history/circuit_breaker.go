package history

import (
	"errors"
	"sync"
	"time"

	"github.com/Kasha228/forecasting/internal/pkg/metrics"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open: history provider unavailable")

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	StateClosed   CircuitBreakerState = iota // Normal operation
	StateOpen                                // Failing fast
	StateHalfOpen                            // Probing for recovery
)

func (s CircuitBreakerState) String() string {
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

// CircuitBreaker fails fast after failureThreshold consecutive retryable
// failures and lets a single probe through once openDuration has elapsed.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	openDuration     time.Duration
	halfOpenMaxCalls int
	now              func() time.Time

	state             CircuitBreakerState
	failureCount      int
	lastFailureTime   time.Time
	halfOpenCallCount int
}

// NewCircuitBreaker creates a breaker that opens after 5 failures for 30 seconds.
func NewCircuitBreaker(name string) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: 5,
		openDuration:     30 * time.Second,
		halfOpenMaxCalls: 1,
		now:              time.Now,
		state:            StateClosed,
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return cb
}

// setState updates the state and records metrics. Caller must hold mu.
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) {
	if cb.state == newState {
		return
	}
	metrics.CircuitBreakerTransitionsTotal.WithLabelValues(cb.name, cb.state.String(), newState.String()).Inc()
	metrics.CircuitBreakerState.WithLabelValues(cb.name).Set(float64(newState))
	cb.state = newState
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.openDuration {
			return ErrCircuitOpen
		}
		cb.setState(StateHalfOpen)
		cb.halfOpenCallCount = 0
	}
	if cb.state == StateHalfOpen {
		if cb.halfOpenCallCount >= cb.halfOpenMaxCalls {
			return ErrCircuitOpen
		}
		cb.halfOpenCallCount++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		cb.failureCount = 0
		cb.halfOpenCallCount = 0
		cb.setState(StateClosed)
		return
	}
	if !isRetryable(err) {
		// The provider answered; a 4xx says nothing about its health.
		cb.failureCount = 0
		if cb.state == StateHalfOpen {
			cb.halfOpenCallCount = 0
			cb.setState(StateClosed)
		}
		return
	}

	cb.failureCount++
	cb.lastFailureTime = cb.now()
	metrics.CircuitBreakerFailuresTotal.WithLabelValues(cb.name).Inc()
	if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
		cb.halfOpenCallCount = 0
		cb.setState(StateOpen)
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// FailureCount returns the current failure count.
func (cb *CircuitBreaker) FailureCount() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failureCount
}
