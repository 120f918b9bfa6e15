package resilience

import (
	"context"
	"sync"
	"sync/atomic"
)

// DegradationTracker counts how often a fallback path was taken, exposing
// a degradation rate for health reporting.
type DegradationTracker struct {
	mu         sync.Mutex
	total      uint64
	degraded   uint64
}

func (d *DegradationTracker) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.total == 0 {
		return 0
	}
	return float64(d.degraded) / float64(d.total)
}

func (d *DegradationTracker) record(degraded bool) {
	d.mu.Lock()
	d.total++
	if degraded {
		d.degraded++
	}
	d.mu.Unlock()
}

// ShouldDegrade is consulted before running the primary path; when it
// returns true the primary is skipped entirely.
type ShouldDegrade func() bool

// WithFallback runs primary, falling back to fallback on failure, or
// skipping primary entirely when shouldDegrade reports true.
func WithFallback[T any](ctx context.Context, tracker *DegradationTracker, shouldDegrade ShouldDegrade, primary func(ctx context.Context) (T, error), fallback func(ctx context.Context) (T, error)) (T, error) {
	if shouldDegrade != nil && shouldDegrade() {
		tracker.record(true)
		return fallback(ctx)
	}

	result, err := primary(ctx)
	if err == nil {
		tracker.record(false)
		return result, nil
	}
	tracker.record(true)
	return fallback(ctx)
}

// errorRateDegrade returns a ShouldDegrade that trips once a rolling
// failure counter crosses threshold consecutive failures, resetting on
// success. Used to proactively skip a primary that's clearly unhealthy
// without waiting on its own circuit breaker.
type errorRateDegrade struct {
	threshold int
	failures  atomic.Int64
}

func NewConsecutiveFailureDegrade(threshold int) (*errorRateDegrade, func(success bool)) {
	d := &errorRateDegrade{threshold: threshold}
	record := func(success bool) {
		if success {
			d.failures.Store(0)
			return
		}
		d.failures.Add(1)
	}
	return d, record
}

func (d *errorRateDegrade) ShouldDegrade() bool {
	return d.failures.Load() >= int64(d.threshold)
}
