// Package circuitbreaker implements a per-service circuit breaker with
// three states.
//
// Closed is the normal state: calls pass through and consecutive failures
// are counted. Once the count reaches the configured threshold the breaker
// opens and rejects calls without invoking the dependency. After the open
// timeout elapses, the next caller is admitted as a trial and the breaker
// moves to half-open; a successful trial closes the breaker, a failed one
// re-opens it with a fresh timeout.
//
// All transitions happen under a single mutex, so concurrent callers
// observe one consistent state. The mutex is never held while a call is
// in flight; callers report outcomes back via RecordSuccess and
// RecordFailure after the fact.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State identifies the breaker's position in its lifecycle.
type State int

const (
	// StateClosed admits every call and counts consecutive failures.
	StateClosed State = iota
	// StateOpen rejects every call until the open timeout elapses.
	StateOpen
	// StateHalfOpen admits a limited number of trial calls whose
	// outcomes decide between closing and re-opening.
	StateHalfOpen
)

// String returns the state name used in logs, metrics and events.
func (s State) String() string {
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

// ErrOpen is returned by Allow when the breaker is rejecting calls.
// Callers surface it without invoking the protected operation.
var ErrOpen = errors.New("circuit breaker is open")

// Config holds the tuning knobs for a single breaker. A Config is fixed
// at construction time; changing limits at runtime is not supported.
type Config struct {
	// FailureThreshold is the number of consecutive failures in the
	// closed state that trips the breaker open.
	FailureThreshold int

	// OpenTimeout is how long the breaker stays open before admitting
	// trial calls.
	OpenTimeout time.Duration

	// HalfOpenMaxAttempts caps the number of trial calls admitted while
	// half-open. One is the usual setting: a single probe decides.
	HalfOpenMaxAttempts int
}

// DefaultConfig returns the breaker settings used when a service has no
// explicit override.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    3,
		OpenTimeout:         60 * time.Second,
		HalfOpenMaxAttempts: 1,
	}
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	if c.FailureThreshold < 1 {
		return fmt.Errorf("failure threshold must be at least 1, got %d", c.FailureThreshold)
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open timeout must be positive, got %v", c.OpenTimeout)
	}
	if c.HalfOpenMaxAttempts < 1 {
		return fmt.Errorf("half-open max attempts must be at least 1, got %d", c.HalfOpenMaxAttempts)
	}
	return nil
}

// TransitionFunc observes state changes. It runs after the breaker's
// mutex is released, so implementations may log, record metrics or emit
// events without risking deadlock. It must not block for long; it runs
// on the caller's goroutine.
type TransitionFunc func(name string, from, to State)

// Breaker is the state machine guarding one downstream service.
type Breaker struct {
	name     string
	cfg      Config
	now      func() time.Time
	onChange TransitionFunc

	mu               sync.Mutex
	state            State
	failures         int
	openedAt         time.Time
	halfOpenAttempts int
}

// New returns a closed breaker for the named service.
func New(name string, cfg Config) *Breaker {
	return newBreaker(name, cfg, time.Now, nil)
}

func newBreaker(name string, cfg Config, now func() time.Time, onChange TransitionFunc) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		name:     name,
		cfg:      cfg,
		now:      now,
		onChange: onChange,
		state:    StateClosed,
	}
}

// Name returns the service name the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the breaker's current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. It returns nil when the call
// is admitted and ErrOpen when the breaker is shedding load.
//
// When the breaker is open and the open timeout has elapsed, the calling
// goroutine both transitions the breaker to half-open and takes the first
// trial slot in one atomic step; concurrent callers racing for the same
// expiry see the breaker already half-open with the slot taken and are
// rejected.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	var from, to State
	transitioned := false

	var err error
	switch b.state {
	case StateClosed:
		err = nil
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			from, to = b.state, StateHalfOpen
			b.setStateLocked(StateHalfOpen)
			transitioned = true
			b.halfOpenAttempts = 1
			err = nil
		} else {
			err = ErrOpen
		}
	case StateHalfOpen:
		if b.halfOpenAttempts < b.cfg.HalfOpenMaxAttempts {
			b.halfOpenAttempts++
			err = nil
		} else {
			err = ErrOpen
		}
	default:
		err = ErrOpen
	}
	b.mu.Unlock()

	if transitioned {
		b.notify(from, to)
	}
	return err
}

// RecordSuccess reports that an admitted call completed successfully.
//
// In the closed state it clears the consecutive failure count. In the
// half-open state it closes the breaker. Reports arriving while the
// breaker is open belong to calls admitted before it opened and are
// ignored; the open timeout alone decides when trials begin. Likewise,
// once the first half-open trial outcome has moved the breaker out of
// half-open, outcomes from any remaining trials land in the new state
// and are absorbed by these same rules.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var from, to State
	transitioned := false

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		from, to = b.state, StateClosed
		b.setStateLocked(StateClosed)
		transitioned = true
	case StateOpen:
		// Stale report from before the breaker opened.
	}
	b.mu.Unlock()

	if transitioned {
		b.notify(from, to)
	}
}

// RecordFailure reports that an admitted call failed after exhausting its
// own retry budget.
//
// In the closed state it increments the consecutive failure count and
// opens the breaker when the threshold is reached. In the half-open state
// it re-opens the breaker with a fresh timeout. Reports arriving while
// open are ignored, same as in RecordSuccess.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var from, to State
	transitioned := false

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			from, to = b.state, StateOpen
			b.setStateLocked(StateOpen)
			transitioned = true
		}
	case StateHalfOpen:
		from, to = b.state, StateOpen
		b.setStateLocked(StateOpen)
		transitioned = true
	case StateOpen:
		// Stale report from before the breaker opened.
	}
	b.mu.Unlock()

	if transitioned {
		b.notify(from, to)
	}
}

// Reset forces the breaker to closed with a clean failure count, from any
// state. The health monitor calls this when a probe confirms the service
// has recovered; it is also the admin path for clearing breakers by hand.
func (b *Breaker) Reset() {
	b.mu.Lock()
	var from, to State
	transitioned := false

	if b.state != StateClosed {
		from, to = b.state, StateClosed
		b.setStateLocked(StateClosed)
		transitioned = true
	}
	b.failures = 0
	b.mu.Unlock()

	if transitioned {
		b.notify(from, to)
	}
}

// setStateLocked moves the machine to the target state and applies the
// entry bookkeeping for it. The caller must hold b.mu.
func (b *Breaker) setStateLocked(to State) {
	b.state = to
	switch to {
	case StateClosed:
		b.failures = 0
	case StateOpen:
		b.openedAt = b.now()
	case StateHalfOpen:
		b.halfOpenAttempts = 0
	}
}

func (b *Breaker) notify(from, to State) {
	if b.onChange != nil {
		b.onChange(b.name, from, to)
	}
}
