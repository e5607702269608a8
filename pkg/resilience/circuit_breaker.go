package resilience

import (
	"errors"
	"sync"
	"time"
)

// BackendError marks a failure of an external capability backend.
type BackendError struct {
	Backend string
	Message string
}

func (e BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "backend error"
}

// IsBackendError returns true when the error is a BackendError.
func IsBackendError(err error) bool {
	var be BackendError
	return errors.As(err, &be)
}

// CircuitBreaker short-circuits a capability backend after repeated
// failures so stalled backends fail fast instead of piling up requests.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openUntil time.Time
	cooldown  time.Duration
}

func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown}
}

func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !time.Now().Before(c.openUntil)
}

func (c *CircuitBreaker) OnSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.openUntil = time.Time{}
	c.mu.Unlock()
}

func (c *CircuitBreaker) OnError(err error) {
	if !IsBackendError(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openUntil = time.Now().Add(c.cooldown)
	}
}
