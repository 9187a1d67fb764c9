package transport

import (
	"errors"
	"sync"
	"time"

	"github.com/blackbunny/paranoia/pkg/observability"
)

// CircuitState is the state of the bank circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Requests reach the bank
	StateOpen                         // Requests fail fast
	StateHalfOpen                     // Probe requests test whether the bank recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

var (
	// ErrCircuitOpen is returned without contacting the bank while the circuit is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when every half-open probe slot is taken
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	// Consecutive failures that open the circuit
	MaxFailures uint32
	// Time spent open before probing the bank again
	Timeout time.Duration
	// Concurrent probes allowed while half-open
	MaxRequestsHalfOpen uint32
	// Called with the breaker lock held; must not call back into the breaker
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for bank endpoints
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker stops calling a failing bank until it has had time to recover
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu       sync.Mutex
	state    CircuitState
	failures uint32
	probes   uint32
	openedAt time.Time
	now      func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{config: config, now: time.Now}
}

// Call runs fn when the circuit allows it and records the outcome
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) <= cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.probes >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err == nil && cb.state == StateHalfOpen:
		cb.transition(StateClosed)
	case err == nil:
		cb.failures = 0
	case cb.state == StateHalfOpen:
		cb.transition(StateOpen)
	default:
		cb.failures++
		if cb.state == StateClosed && cb.failures >= cb.config.MaxFailures {
			cb.transition(StateOpen)
		}
	}
}

// transition must be called with cb.mu held
func (cb *CircuitBreaker) transition(to CircuitState) {
	from := cb.state
	if from == to {
		return
	}

	cb.state = to
	cb.failures = 0
	cb.probes = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	observability.SetCircuitBreakerState(int(to))
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit and clears its counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probes = 0
	observability.SetCircuitBreakerState(int(StateClosed))
}
