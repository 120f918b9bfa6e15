package resilience

import (
	"context"
	"sync"
	"time"
)

// Profile bundles the resilience settings for one class of downstream
// dependency (LLM, embedding service, database, search). Profiles are
// applied by name through an Executor so that every call site wrapping the
// same dependency shares one circuit breaker and one bulkhead.
type Profile struct {
	Timeout  time.Duration
	Retry    RetryConfig
	Circuit  *CircuitConfig // nil disables the circuit breaker for this profile
	Bulkhead struct {
		MaxConcurrent int
		MaxQueue      int
	}
}

// LLMAPIProfile: timeout=30s, retries=3, circuit(5/2/60s), bulkhead(5/10).
func LLMAPIProfile() Profile {
	p := Profile{
		Timeout: 30 * time.Second,
		Retry:   RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: true},
		Circuit: &CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, OpenDuration: 60 * time.Second},
	}
	p.Bulkhead.MaxConcurrent, p.Bulkhead.MaxQueue = 5, 10
	return p
}

// EmbeddingProfile: timeout=10s, retries=3, circuit(5/2/30s), bulkhead(10/20).
func EmbeddingProfile() Profile {
	p := Profile{
		Timeout: 10 * time.Second,
		Retry:   RetryConfig{MaxRetries: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: true},
		Circuit: &CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, OpenDuration: 30 * time.Second},
	}
	p.Bulkhead.MaxConcurrent, p.Bulkhead.MaxQueue = 10, 20
	return p
}

// DatabaseProfile: timeout=3s, retries=2, bulkhead(20/50), no circuit.
func DatabaseProfile() Profile {
	p := Profile{
		Timeout: 3 * time.Second,
		Retry:   RetryConfig{MaxRetries: 2, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: true},
	}
	p.Bulkhead.MaxConcurrent, p.Bulkhead.MaxQueue = 20, 50
	return p
}

// SearchProfile: timeout=5s, retries=2, bulkhead(15/30), no circuit.
func SearchProfile() Profile {
	p := Profile{
		Timeout: 5 * time.Second,
		Retry:   RetryConfig{MaxRetries: 2, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Jitter: true},
	}
	p.Bulkhead.MaxConcurrent, p.Bulkhead.MaxQueue = 15, 30
	return p
}

// Executor composes four resilience patterns (retry, bulkhead, circuit
// breaker, timeout) for named operations,
// keyed and memoized per operation name, so repeated calls for the same
// logical dependency share breaker/bulkhead state.
//
// Nesting order (outermost first): retry → bulkhead → circuit breaker →
// timeout → op. Timeouts bound each individual attempt; the circuit sees
// each attempt to judge health; the bulkhead caps total in-flight work
// including queued retries; retry wraps the whole stack.
type Executor struct {
	mu        sync.Mutex
	breakers  map[string]*CircuitBreaker
	bulkheads map[string]*Bulkhead
	profiles  map[string]Profile
}

func NewExecutor() *Executor {
	return &Executor{
		breakers:  make(map[string]*CircuitBreaker),
		bulkheads: make(map[string]*Bulkhead),
		profiles:  make(map[string]Profile),
	}
}

// Register binds a named operation to a profile. Call once per operation
// name at composition-root time (or lazily from Execute, which registers
// SearchProfile() as a default if the name is unknown).
func (e *Executor) Register(name string, profile Profile) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profiles[name] = profile
	if profile.Circuit != nil {
		e.breakers[name] = NewCircuitBreaker(name, *profile.Circuit)
	}
	e.bulkheads[name] = NewBulkhead(name, profile.Bulkhead.MaxConcurrent, profile.Bulkhead.MaxQueue)
}

func (e *Executor) resolve(name string) (Profile, *CircuitBreaker, *Bulkhead) {
	e.mu.Lock()
	defer e.mu.Unlock()
	profile, ok := e.profiles[name]
	if !ok {
		profile = SearchProfile()
		e.profiles[name] = profile
	}
	bh, ok := e.bulkheads[name]
	if !ok {
		bh = NewBulkhead(name, profile.Bulkhead.MaxConcurrent, profile.Bulkhead.MaxQueue)
		e.bulkheads[name] = bh
	}
	var cb *CircuitBreaker
	if profile.Circuit != nil {
		cb, ok = e.breakers[name]
		if !ok {
			cb = NewCircuitBreaker(name, *profile.Circuit)
			e.breakers[name] = cb
		}
	}
	return profile, cb, bh
}

// Execute runs fn under the named operation's composed resilience stack.
func Execute[T any](ctx context.Context, e *Executor, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	profile, cb, bh := e.resolve(name)

	attempt := func(ctx context.Context) (T, error) {
		return BulkheadExecuteWithResult(ctx, bh, func() (T, error) {
			runTimed := func() (T, error) {
				return WithTimeoutResult(ctx, profile.Timeout, name, fn)
			}
			if cb == nil {
				return runTimed()
			}
			return CircuitExecuteWithResult(cb, runTimed)
		})
	}

	return RetryWithResult(ctx, profile.Retry, func() (T, error) {
		return attempt(ctx)
	})
}

// Breaker returns the named circuit breaker if one has been resolved.
func (e *Executor) Breaker(name string) (*CircuitBreaker, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cb, ok := e.breakers[name]
	return cb, ok
}

// Health aggregates breaker/bulkhead state across every resolved operation.
type Health struct {
	Healthy       bool
	OpenCircuits  []string
	FullBulkheads []string
}

// HealthSummary reports healthy=true only when no circuit is open and no
// bulkhead is full (every slot busy and its queue at MaxQueue).
func (e *Executor) HealthSummary() Health {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := Health{Healthy: true}
	for name, cb := range e.breakers {
		if cb.State() == StateOpen {
			h.Healthy = false
			h.OpenCircuits = append(h.OpenCircuits, name)
		}
	}
	for name, bh := range e.bulkheads {
		m := bh.Metrics()
		if m.Utilization >= 1.0 && m.Queued >= bh.maxQueue {
			h.Healthy = false
			h.FullBulkheads = append(h.FullBulkheads, name)
		}
	}
	return h
}
