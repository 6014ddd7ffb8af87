package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrBreakerOpen is returned when a fetch is rejected without being attempted
// because the source's breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker open")

// BreakerState is the current position of a source's circuit breaker
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerSettings tunes one source's circuit breaker
type BreakerSettings struct {
	// MaxFailures is the consecutive-failure count that opens the breaker
	MaxFailures int
	// ResetAfter is how long an open breaker waits before probing again
	ResetAfter time.Duration
}

// BreakerStats is a point-in-time view of one breaker's counters
type BreakerStats struct {
	State         string    `json:"state"`
	Requests      int64     `json:"requests"`
	Successes     int64     `json:"successes"`
	Failures      int64     `json:"failures"`
	Rejections    int64     `json:"rejections"`
	StateChanges  int64     `json:"state_changes"`
	LastFailureAt time.Time `json:"last_failure_at"`
	LastSuccessAt time.Time `json:"last_success_at"`
}

// CircuitBreaker shields one source adapter from repeated failing fetches.
// After MaxFailures consecutive failures it opens and rejects calls until
// ResetAfter has elapsed, then admits a single probe: a successful probe
// closes the breaker, a failed one reopens it.
type CircuitBreaker struct {
	name     string
	settings BreakerSettings
	logger   *logrus.Logger

	mu              sync.Mutex
	state           BreakerState
	failures        int
	probing         bool
	lastStateChange time.Time

	requests     int64
	successes    int64
	failureTotal int64
	rejections   int64
	stateChanges int64
	lastFailure  time.Time
	lastSuccess  time.Time
}

// NewCircuitBreaker creates a closed breaker for the named source
func NewCircuitBreaker(name string, settings BreakerSettings, logger *logrus.Logger) *CircuitBreaker {
	if settings.MaxFailures <= 0 {
		settings.MaxFailures = 5
	}
	if settings.ResetAfter <= 0 {
		settings.ResetAfter = 60 * time.Second
	}
	return &CircuitBreaker{
		name:            name,
		settings:        settings,
		logger:          logger,
		state:           BreakerClosed,
		lastStateChange: time.Now(),
	}
}

// Execute runs fn under breaker protection. A rejected call returns
// ErrBreakerOpen without invoking fn; otherwise fn's error is returned
// unchanged after the outcome is recorded. The lock is released while fn
// runs, so state and stats reads never wait on a slow fetch.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.beforeCall() {
		return ErrBreakerOpen
	}

	err := fn(ctx)

	cb.mu.Lock()
	cb.probing = false
	if err != nil {
		cb.onFailure(err)
	} else {
		cb.onSuccess()
	}
	cb.mu.Unlock()
	return err
}

func (cb *CircuitBreaker) beforeCall() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if !cb.admit() {
		cb.rejections++
		cb.logger.WithFields(logrus.Fields{
			"breaker":  cb.name,
			"state":    cb.state.String(),
			"failures": cb.failures,
		}).Warn("Circuit breaker rejecting fetch")
		return false
	}
	return true
}

// admit decides whether the next call may proceed, transitioning an expired
// open breaker to half-open. Caller holds cb.mu.
func (cb *CircuitBreaker) admit() bool {
	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if time.Since(cb.lastStateChange) >= cb.settings.ResetAfter {
			cb.setState(BreakerHalfOpen)
			cb.probing = true
			return true
		}
		return false
	case BreakerHalfOpen:
		// One probe in flight at a time; its outcome decides the next state
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.successes++
	cb.lastSuccess = time.Now()
	cb.failures = 0
	if cb.state != BreakerClosed {
		cb.setState(BreakerClosed)
	}
}

func (cb *CircuitBreaker) onFailure(err error) {
	cb.failureTotal++
	cb.lastFailure = time.Now()
	cb.failures++

	switch cb.state {
	case BreakerClosed:
		if cb.failures >= cb.settings.MaxFailures {
			cb.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		// Failed probe reopens immediately
		cb.setState(BreakerOpen)
	}

	cb.logger.WithFields(logrus.Fields{
		"breaker":  cb.name,
		"state":    cb.state.String(),
		"failures": cb.failures,
		"error":    err.Error(),
	}).Debug("Circuit breaker recorded failure")
}

func (cb *CircuitBreaker) setState(next BreakerState) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.lastStateChange = time.Now()
	cb.stateChanges++

	cb.logger.WithFields(logrus.Fields{
		"breaker":   cb.name,
		"old_state": prev.String(),
		"new_state": next.String(),
	}).Info("Circuit breaker state changed")
}

// State returns the breaker's current state
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker's counters
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return BreakerStats{
		State:         cb.state.String(),
		Requests:      cb.requests,
		Successes:     cb.successes,
		Failures:      cb.failureTotal,
		Rejections:    cb.rejections,
		StateChanges:  cb.stateChanges,
		LastFailureAt: cb.lastFailure,
		LastSuccessAt: cb.lastSuccess,
	}
}

// Reset forces the breaker back to closed and clears its failure streak
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(BreakerClosed)
	cb.failures = 0
	cb.probing = false
	cb.logger.WithField("breaker", cb.name).Info("Circuit breaker reset")
}
