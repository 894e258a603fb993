package resilience

import (
	"errors"
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
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

var (
	// ErrCircuitOpen is returned when circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when too many requests in half-open state
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// CircuitBreakerConfig configures circuit breaker behavior
type CircuitBreakerConfig struct {
	MaxFailures         uint32        // consecutive failures before opening
	OpenTimeout         time.Duration // time spent open before probing
	MaxRequestsHalfOpen uint32

	// OnStateChange is called with the lock held released; may be nil
	OnStateChange func(from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns defaults tuned for the bank API
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:         5,
		OpenTimeout:         30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

// CircuitBreaker stops calling a failing dependency for a while.
// Only failures the caller classifies as infrastructure failures count.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            CircuitState
	failures         uint32
	requestsHalfOpen uint32
	openedAt         time.Time
	config           CircuitBreakerConfig
	now              func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{
		state:  StateClosed,
		config: config,
		now:    time.Now,
	}
}

// Execute runs fn if the circuit allows it. countsAsFailure decides whether
// a returned error should trip the breaker; a nil func counts every error.
func (cb *CircuitBreaker) Execute(fn func() error, countsAsFailure func(error) bool) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn()

	failed := err != nil
	if failed && countsAsFailure != nil {
		failed = countsAsFailure(err)
	}
	cb.record(failed)

	return err
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.OpenTimeout {
			return ErrCircuitOpen
		}
		transition = cb.setState(StateHalfOpen)
		cb.requestsHalfOpen++
		return nil
	case StateHalfOpen:
		if cb.requestsHalfOpen >= cb.config.MaxRequestsHalfOpen {
			return ErrTooManyRequests
		}
		cb.requestsHalfOpen++
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (cb *CircuitBreaker) record(failed bool) {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if !failed {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			transition = cb.setState(StateClosed)
		}
		return
	}

	cb.failures++
	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			transition = cb.setState(StateOpen)
		}
	case StateHalfOpen:
		transition = cb.setState(StateOpen)
	}
}

// setState must be called with mu held. It returns the notification to run after unlocking.
func (cb *CircuitBreaker) setState(to CircuitState) func() {
	from := cb.state
	if from == to {
		return nil
	}

	cb.state = to
	cb.requestsHalfOpen = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	} else {
		cb.failures = 0
	}

	if cb.config.OnStateChange == nil {
		return nil
	}
	return func() { cb.config.OnStateChange(from, to) }
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit and clears counters
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.requestsHalfOpen = 0
}
