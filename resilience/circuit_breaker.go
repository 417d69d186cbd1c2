package resilience

import (
	"sync"
	"time"

	"github.com/NathanNam/caltrain-commuter-app/errors"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen rejects requests until the reset timeout has elapsed.
	StateOpen
	// StateHalfOpen lets trial requests through to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Event names reported through OnEvent.
const (
	EventOpened   = "opened"
	EventHalfOpen = "half_open"
	EventClosed   = "closed"
	EventRejected = "rejected"
)

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the upstream this breaker guards.
	Name string `mapstructure:"-"`
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int `mapstructure:"failure_threshold" validate:"gte=0"`
	// ResetTimeout is how long the circuit stays open after the last failure.
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
	// MonitoringPeriod bounds how old a failure may be and still count
	// toward the threshold.
	MonitoringPeriod time.Duration `mapstructure:"monitoring_period"`
	// HalfOpenSuccesses is the number of successes that closes a half-open circuit.
	HalfOpenSuccesses int `mapstructure:"half_open_successes" validate:"gte=0"`
	// OnEvent is called with one of the Event* names on every transition
	// and rejection. It runs under the breaker lock and must not call back
	// into the breaker.
	OnEvent func(name, event string) `mapstructure:"-"`
	// Now returns the current time.
	Now func() time.Time `mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns the default configuration.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:              name,
		FailureThreshold:  5,
		ResetTimeout:      60 * time.Second,
		MonitoringPeriod:  5 * time.Minute,
		HalfOpenSuccesses: 3,
	}
}

// ApplyDefaults fills zero fields from DefaultCircuitBreakerConfig.
func (c *CircuitBreakerConfig) ApplyDefaults() {
	d := DefaultCircuitBreakerConfig(c.Name)
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = d.ResetTimeout
	}
	if c.MonitoringPeriod <= 0 {
		c.MonitoringPeriod = d.MonitoringPeriod
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = d.HalfOpenSuccesses
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Snapshot is a point-in-time view of a breaker.
type Snapshot struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	HalfOpenSuccesses   int       `json:"half_open_successes"`
	LastFailureAt       time.Time `json:"last_failure_at,omitempty"`
}

// CircuitBreaker implements the circuit breaker pattern for one upstream.
//
// States:
//   - Closed: requests pass through; consecutive failures are counted
//   - Open: requests fail with a circuit-open error without running
//   - Half-Open: trial requests run; enough successes close the circuit,
//     a single failure reopens it
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                sync.Mutex
	state             State
	failures          int
	halfOpenSuccesses int
	lastFailureAt     time.Time
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config.ApplyDefaults()
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Name returns the upstream name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Execute runs fn through the circuit breaker.
// Returns a circuit-open error without calling fn if the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// ExecuteValue runs fn through cb and returns its value.
func ExecuteValue[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

// State returns the current circuit breaker state. An open breaker whose
// reset timeout has elapsed still reports open until a call moves it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns the breaker's state and counters.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Name:                cb.config.Name,
		State:               cb.state.String(),
		ConsecutiveFailures: cb.failures,
		HalfOpenSuccesses:   cb.halfOpenSuccesses,
		LastFailureAt:       cb.lastFailureAt,
	}
}

// Reset forces the breaker back to closed with counters cleared.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.halfOpenSuccesses = 0
}

// allow decides whether a call may proceed, moving an expired open
// circuit to half-open.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}
	if cb.config.Now().Sub(cb.lastFailureAt) > cb.config.ResetTimeout {
		cb.toState(StateHalfOpen)
		return nil
	}
	cb.emit(EventRejected)
	return errors.CircuitOpen(cb.config.Name)
}

// record counts the outcome of an admitted call. Caller cancellation says
// nothing about the upstream and is not counted.
func (cb *CircuitBreaker) record(err error) {
	if errors.HasCode(err, errors.ErrCodeCanceled) {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.HalfOpenSuccesses {
			cb.toState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	now := cb.config.Now()
	switch cb.state {
	case StateClosed:
		if cb.failures > 0 && now.Sub(cb.lastFailureAt) > cb.config.MonitoringPeriod {
			cb.failures = 0
		}
		cb.failures++
		cb.lastFailureAt = now
		if cb.failures >= cb.config.FailureThreshold {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		cb.lastFailureAt = now
		cb.toState(StateOpen)
	case StateOpen:
		// A call admitted before the circuit opened finished late.
		cb.lastFailureAt = now
	}
}

// toState transitions to a new state. Caller holds cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.halfOpenSuccesses = 0
		cb.emit(EventClosed)
	case StateHalfOpen:
		cb.halfOpenSuccesses = 0
		cb.emit(EventHalfOpen)
	case StateOpen:
		cb.halfOpenSuccesses = 0
		cb.emit(EventOpened)
	}
}

func (cb *CircuitBreaker) emit(event string) {
	if cb.config.OnEvent != nil {
		cb.config.OnEvent(cb.config.Name, event)
	}
}
