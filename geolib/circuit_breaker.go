package geolib

import (
	"errors"
	"sync"
	"time"
)

// CircuitState is a state of the circuit breaker which protects an
// upstream provider.
type CircuitState uint32

const (
	CircuitClosed CircuitState = iota
	CircuitHalfOpen
	CircuitOpen
)

func (c CircuitState) String() string {
	switch c {
	case CircuitClosed:
		return "closed"
	case CircuitHalfOpen:
		return "half_open"
	case CircuitOpen:
		return "open"
	}

	return "unknown"
}

// MarshalText is to conform encoding.TextMarshaler interface.
func (c CircuitState) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

type circuitEvent uint8

const (
	circuitEventSuccess circuitEvent = iota
	circuitEventFailure
	circuitEventTrip
	circuitEventCooldown
	circuitEventReset
)

// nextCircuitState is a transition table of the circuit breaker.
func nextCircuitState(state CircuitState, event circuitEvent) CircuitState {
	switch event {
	case circuitEventReset:
		return CircuitClosed
	case circuitEventTrip:
		return CircuitOpen
	case circuitEventSuccess:
		if state == CircuitHalfOpen {
			return CircuitClosed
		}
	case circuitEventFailure:
		if state == CircuitHalfOpen {
			return CircuitOpen
		}
	case circuitEventCooldown:
		if state == CircuitOpen {
			return CircuitHalfOpen
		}
	}

	return state
}

type circuitBreakerCallback func() error

type circuitBreaker struct {
	mutex sync.Mutex

	state       CircuitState
	failures    uint32
	lastFailure time.Time
	probing     bool

	maxFailures  uint32
	resetTimeout time.Duration
	clock        func() time.Time
	logger       Logger
}

// Do executes a callback if circuit allows it. Errors which wrap
// ErrCircuitBreakerIgnore do not change a state.
func (c *circuitBreaker) Do(callback circuitBreakerCallback) error {
	probe, err := c.acquire()
	if err != nil {
		return err
	}

	err = callback()

	c.release(probe, err)

	return err
}

func (c *circuitBreaker) State() (CircuitState, uint32) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state, c.failures
}

func (c *circuitBreaker) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.failures = 0
	c.probing = false
	c.switchState(circuitEventReset)
}

func (c *circuitBreaker) acquire() (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch c.state {
	case CircuitClosed:
		return false, nil
	case CircuitOpen:
		if c.clock().Sub(c.lastFailure) <= c.resetTimeout {
			return false, ErrCircuitBreakerOpened
		}

		c.switchState(circuitEventCooldown)
	}

	// half-open allows a single probe only
	if c.probing {
		return false, ErrCircuitBreakerOpened
	}

	c.probing = true

	return true, nil
}

func (c *circuitBreaker) release(probe bool, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if probe {
		c.probing = false
	}

	switch {
	case err == nil:
		c.failures = 0
		c.switchState(circuitEventSuccess)
	case errors.Is(err, ErrCircuitBreakerIgnore):
	default:
		c.failures++
		c.lastFailure = c.clock()

		if c.failures >= c.maxFailures {
			c.switchState(circuitEventTrip)
		} else {
			c.switchState(circuitEventFailure)
		}
	}
}

func (c *circuitBreaker) switchState(event circuitEvent) {
	newState := nextCircuitState(c.state, event)
	if newState == c.state {
		return
	}

	if c.logger != nil {
		c.logger.CircuitStateChanged(c.state, newState, c.failures)
	}

	c.state = newState
}

func newCircuitBreaker(maxFailures uint32, resetTimeout time.Duration, logger Logger) *circuitBreaker {
	return &circuitBreaker{
		state:        CircuitClosed,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		clock:        time.Now,
		logger:       logger,
	}
}
