package indicator

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"
)

// CircuitBreaker stops calling an indicator service that keeps failing.
type CircuitBreaker struct {
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time

	failures            int
	totalRequests       int
	consecutiveFailures int
	isOpen              bool
	lastFailureTime     time.Time

	mutex sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.totalRequests++
	cb.consecutiveFailures = 0
}

// RecordFailure records a failed request. statusCode is 0 for transport errors.
func (cb *CircuitBreaker) RecordFailure(statusCode int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failures++
	cb.consecutiveFailures++
	cb.totalRequests++
	cb.lastFailureTime = cb.now()

	// Being throttled or refused twice in a row is enough
	if cb.consecutiveFailures >= 2 && (statusCode == http.StatusTooManyRequests || statusCode == http.StatusForbidden) {
		cb.isOpen = true
		log.Printf("[UF] circuit breaker open: %d consecutive %d responses, retry after %v",
			cb.consecutiveFailures, statusCode, cb.resetTimeout)
		return
	}

	if cb.consecutiveFailures >= cb.failureThreshold {
		cb.isOpen = true
		log.Printf("[UF] circuit breaker open: %d consecutive failures, retry after %v",
			cb.consecutiveFailures, cb.resetTimeout)
	}
}

// CanProceed checks if requests are allowed
func (cb *CircuitBreaker) CanProceed() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if !cb.isOpen {
		return true
	}

	if cb.now().Sub(cb.lastFailureTime) > cb.resetTimeout {
		log.Printf("[UF] circuit breaker half-open after %v", cb.resetTimeout)
		cb.isOpen = false
		cb.failures = 0
		cb.totalRequests = 0
		cb.consecutiveFailures = 0
		return true
	}

	return false
}

// GetStatus returns current circuit breaker status
func (cb *CircuitBreaker) GetStatus() (isOpen bool, failures int, total int) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.isOpen, cb.failures, cb.totalRequests
}

// Guarded wraps a provider with a circuit breaker.
type Guarded struct {
	Provider
	Breaker *CircuitBreaker
}

func (g *Guarded) FetchUF(ctx context.Context) (float64, error) {
	if !g.Breaker.CanProceed() {
		return 0, ErrCircuitOpen
	}

	value, err := g.Provider.FetchUF(ctx)
	if err != nil {
		status := 0
		var se *StatusError
		if errors.As(err, &se) {
			status = se.Code
		}
		g.Breaker.RecordFailure(status)
		return 0, err
	}

	g.Breaker.RecordSuccess()
	return value, nil
}
