package llm

import (
	"sync"
	"time"
)

// Breaker states.
const (
	StateClosed   = "CLOSED"
	StateOpen     = "OPEN"
	StateHalfOpen = "HALF_OPEN"
)

// Breaker is a per-provider circuit breaker. Consecutive failures trip it
// open; after OpenTimeout a single probe is let through, and one success
// closes it again. All methods are safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	state    string
	failures int
	openedAt time.Time

	failureThreshold int
	openTimeout      time.Duration
	now              func() time.Time
}

// NewBreaker creates a closed breaker. Non-positive arguments select the
// defaults of 5 failures and a 60s open window.
func NewBreaker(failureThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	return &Breaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		openTimeout:      openTimeout,
		now:              time.Now,
	}
}

// Allow reports whether a request may proceed. When the open window has
// elapsed the breaker moves to half-open and admits one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed, StateHalfOpen:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.openTimeout {
			b.state = StateHalfOpen
			return true
		}
		return false
	}
	return true
}

// RecordSuccess resets the failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
}

// RecordFailure counts a failure, tripping the breaker open at the threshold.
// A failed half-open probe reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.openedAt = b.now()
	}
}

// State returns the current breaker state.
func (b *Breaker) State() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.openTimeout {
		return StateHalfOpen
	}
	return b.state
}
