package resilience

import (
	"context"
	"sync"
)

// ErrBulkheadFull is returned when a bulkhead's queue is saturated.
var ErrBulkheadFull = New(ErrCodeBulkheadFull, "bulkhead queue is full", nil)

// Bulkhead bounds concurrent in-flight operations, queuing excess callers
// FIFO up to MaxQueue before rejecting.
type Bulkhead struct {
	name        string
	maxConc     int
	maxQueue    int
	sem         chan struct{}

	mu      sync.Mutex
	active  int
	queued  int
	rejects uint64
}

// NewBulkhead creates a named bulkhead. maxConcurrent is the number of
// operations allowed to run simultaneously; maxQueue is the number of
// additional callers allowed to wait for a slot before being rejected.
func NewBulkhead(name string, maxConcurrent, maxQueue int) *Bulkhead {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Bulkhead{
		name:     name,
		maxConc:  maxConcurrent,
		maxQueue: maxQueue,
		sem:      make(chan struct{}, maxConcurrent),
	}
}

func (b *Bulkhead) Name() string { return b.name }

type BulkheadMetrics struct {
	Active      int
	Queued      int
	Rejections  uint64
	Utilization float64
}

func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	util := 0.0
	if b.maxConc > 0 {
		util = float64(b.active) / float64(b.maxConc)
	}
	return BulkheadMetrics{Active: b.active, Queued: b.queued, Rejections: b.rejects, Utilization: util}
}

// Execute runs fn once a slot is available, or returns ErrBulkheadFull if
// the queue is already at capacity when the caller arrives.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	b.mu.Lock()
	queued := false
	if b.active >= b.maxConc {
		if b.queued >= b.maxQueue {
			b.rejects++
			b.mu.Unlock()
			return ErrBulkheadFull
		}
		b.queued++
		queued = true
	} else {
		b.active++ // reserve the slot now so concurrent arrivals see it taken
	}
	b.mu.Unlock()

	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		b.mu.Lock()
		if queued {
			b.queued--
		} else {
			b.active--
		}
		b.mu.Unlock()
		return ctx.Err()
	}

	if queued {
		b.mu.Lock()
		b.queued--
		b.active++
		b.mu.Unlock()
	}

	defer func() {
		<-b.sem
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}()

	return fn()
}

// BulkheadExecuteWithResult is the generic, value-returning counterpart.
func BulkheadExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	var fnErr error
	err := b.Execute(ctx, func() error {
		result, fnErr = fn()
		return fnErr
	})
	if err != nil {
		return result, err
	}
	return result, fnErr
}
