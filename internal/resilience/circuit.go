package resilience

import (
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = New(ErrCodeCircuitOpen, "circuit breaker is open", nil)

// State is a circuit breaker's position in the Closed/Open/Half-Open machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// CircuitConfig configures a CircuitBreaker's thresholds.
type CircuitConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenDuration     time.Duration
}

// CircuitMetrics is a point-in-time snapshot of a breaker's counters.
type CircuitMetrics struct {
	Requests    uint64
	Successes   uint64
	Failures    uint64
	Rejections  uint64
	State       State
}

// CircuitBreaker fast-fails calls to a downstream judged unhealthy.
//
// Closed: op runs, consecutive failures counted, failure_threshold trips Open.
// Open: rejected immediately; after open_duration, the next call probes Half-Open.
// Half-Open: permits probes; success_threshold consecutive successes close it,
// any failure reopens it.
type CircuitBreaker struct {
	name   string
	config CircuitConfig

	mu              sync.Mutex
	state           State
	failures        int
	halfOpenSuccess int
	openedAt        time.Time

	requests   uint64
	successes  uint64
	rejections uint64
}

// NewCircuitBreaker creates a circuit breaker with the default profile
// (5 failures / 2 successes to close / 60s open duration).
func NewCircuitBreaker(name string, cfg CircuitConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenDuration <= 0 {
		cfg.OpenDuration = 60 * time.Second
	}
	return &CircuitBreaker{name: name, config: cfg, state: StateClosed}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// currentState resolves the Open → Half-Open transition lazily; callers
// must hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.OpenDuration {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitMetrics{
		Requests:   cb.requests,
		Successes:  cb.successes,
		Failures:   uint64(cb.failures),
		Rejections: cb.rejections,
		State:      cb.currentState(),
	}
}

// Allow reports whether a call may proceed without recording any outcome.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.successes++
	switch cb.currentState() {
	case StateHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.config.SuccessThreshold {
			cb.toClosedLocked()
		}
	default:
		cb.toClosedLocked()
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.currentState() == StateHalfOpen {
		cb.toOpenLocked()
		return
	}
	if cb.failures >= cb.config.FailureThreshold {
		cb.toOpenLocked()
	}
}

func (cb *CircuitBreaker) toClosedLocked() {
	cb.state = StateClosed
	cb.failures = 0
	cb.halfOpenSuccess = 0
}

func (cb *CircuitBreaker) toOpenLocked() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.halfOpenSuccess = 0
}

// Execute runs fn through the breaker, recording the outcome. Returns
// ErrCircuitOpen without invoking fn when the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.requests++
	state := cb.currentState()
	if state == StateOpen {
		cb.rejections++
		cb.mu.Unlock()
		return ErrCircuitOpen
	}
	if state == StateHalfOpen {
		cb.state = StateHalfOpen
	}
	cb.mu.Unlock()

	err := fn()
	if err != nil {
		cb.RecordFailure()
		return err
	}
	cb.RecordSuccess()
	return nil
}

// CircuitExecuteWithResult runs a generic value-returning function through
// the breaker.
func CircuitExecuteWithResult[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	cb.mu.Lock()
	cb.requests++
	state := cb.currentState()
	if state == StateOpen {
		cb.rejections++
		cb.mu.Unlock()
		return zero, ErrCircuitOpen
	}
	cb.mu.Unlock()

	result, err := fn()
	if err != nil {
		cb.RecordFailure()
		return zero, err
	}
	cb.RecordSuccess()
	return result, nil
}
