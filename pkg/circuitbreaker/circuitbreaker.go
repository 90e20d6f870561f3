package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState int

const (
	Closed CircuitState = iota
	Open
	// HalfOpen lets calls through to probe whether the dependency recovered.
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

type CircuitBreaker interface {
	// Call runs fn unless the circuit is open, in which case it returns
	// ErrCircuitOpen without calling fn.
	Call(fn func() error) error
	State() CircuitState
	Snapshot() Snapshot
	Reset()
}

type Config struct {
	FailureThreshold int           // consecutive failures that open the circuit
	RecoveryTimeout  time.Duration // time spent open before probing
	SuccessThreshold int           // half-open successes needed to close
	// OnStateChange is called outside the breaker's lock.
	OnStateChange func(from, to CircuitState)
	// Now overrides the clock in tests.
	Now func() time.Time
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 1,
	}
}

type Snapshot struct {
	State       CircuitState
	Failures    int
	Successes   int
	LastFailure time.Time
	NextAttempt time.Time
}

type circuitBreaker struct {
	config      Config
	mu          sync.Mutex
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	nextAttempt time.Time
}

func NewCircuitBreaker(config *Config) CircuitBreaker {
	cfg := *DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold < 1 {
		cfg.SuccessThreshold = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &circuitBreaker{config: cfg, state: Closed}
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mu.Lock()
	from := cb.state
	if cb.state == Open && !cb.config.Now().Before(cb.nextAttempt) {
		cb.state = HalfOpen
		cb.successes = 0
	}
	allowed := cb.state != Open
	to := cb.state
	cb.mu.Unlock()

	cb.notify(from, to)

	if !allowed {
		return ErrCircuitOpen
	}

	// fn runs without the lock held.
	err := fn()

	cb.mu.Lock()
	from = cb.state
	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}
	to = cb.state
	cb.mu.Unlock()

	cb.notify(from, to)
	return err
}

func (cb *circuitBreaker) recordFailure() {
	now := cb.config.Now()
	cb.failures++
	cb.lastFailure = now

	if cb.state == HalfOpen || cb.failures >= cb.config.FailureThreshold {
		cb.state = Open
		cb.nextAttempt = now.Add(cb.config.RecoveryTimeout)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures = 0

	if cb.state != HalfOpen {
		return
	}
	cb.successes++
	if cb.successes >= cb.config.SuccessThreshold {
		cb.state = Closed
		cb.successes = 0
	}
}

func (cb *circuitBreaker) notify(from, to CircuitState) {
	if from != to && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return Snapshot{
		State:       cb.state,
		Failures:    cb.failures,
		Successes:   cb.successes,
		LastFailure: cb.lastFailure,
		NextAttempt: cb.nextAttempt,
	}
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	from := cb.state
	cb.state = Closed
	cb.failures = 0
	cb.successes = 0
	cb.mu.Unlock()

	cb.notify(from, Closed)
}
