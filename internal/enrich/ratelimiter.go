package enrich

import (
	"context"
	"sync"
	"time"
)

// DefaultMinInterval is the default floor between successive LLM calls
// made through one RateLimiter.
const DefaultMinInterval = 3000 * time.Millisecond

// RateLimiter is a single-permit, FIFO scheduler: Acquire returns only once
// at least MinInterval has elapsed since the previous Acquire returned, and
// concurrent callers queue in call order. It guards the LLM provider as the
// pipeline's one shared external rate budget, not per-worker throttling.
type RateLimiter struct {
	minInterval time.Duration

	mu       sync.Mutex
	lastCall time.Time
	queue    chan struct{}

	requests   int64
	totalWait  time.Duration
	maxWait    time.Duration
}

// NewRateLimiter constructs a limiter with the given floor between calls.
// A zero or negative interval falls back to DefaultMinInterval.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	r := &RateLimiter{
		minInterval: minInterval,
		queue:       make(chan struct{}, 1),
	}
	r.queue <- struct{}{}
	return r
}

// Acquire blocks until it is this caller's turn and the min_interval floor
// since the previous acquirer has elapsed, or ctx is canceled. Acquirers
// already queued are served in the order they called Acquire.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	start := time.Now()

	select {
	case <-r.queue:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { r.queue <- struct{}{} }()

	r.mu.Lock()
	wait := r.minInterval - time.Since(r.lastCall)
	r.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.lastCall = time.Now()
	elapsed := time.Since(start)
	r.requests++
	r.totalWait += elapsed
	if elapsed > r.maxWait {
		r.maxWait = elapsed
	}
	r.mu.Unlock()

	return nil
}

// Metrics reports the limiter's lifetime request count and wait statistics.
type Metrics struct {
	Requests   int64
	AverageWait time.Duration
	MaxWait    time.Duration
}

func (r *RateLimiter) Metrics() Metrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := Metrics{Requests: r.requests, MaxWait: r.maxWait}
	if r.requests > 0 {
		m.AverageWait = r.totalWait / time.Duration(r.requests)
	}
	return m
}
