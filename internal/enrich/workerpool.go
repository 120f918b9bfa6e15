package enrich

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Extractor is the concept-extraction contract the worker pool drives. A
// single call may itself chunk an oversized document and merge the
// per-chunk records; that policy lives behind this interface, not in the
// pool, so the pool only knows "document text in, concept record out".
type Extractor interface {
	Extract(ctx context.Context, doc ExtractionInput) (ConceptRecord, error)
}

// WorkerPool runs up to Concurrency extraction tasks at a time, each
// acquiring the shared RateLimiter before calling the Extractor, isolating
// per-document failures, and returning results in input order — a
// semaphore-over-errgroup fan-out generalized from fan-out-then-gather to a
// bounded queue of heterogeneous document sizes.
type WorkerPool struct {
	Extractor   Extractor
	RateLimiter *RateLimiter
	Concurrency int
}

// NewWorkerPool constructs a pool. Concurrency is clamped to at least 1.
func NewWorkerPool(extractor Extractor, limiter *RateLimiter, concurrency int) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{Extractor: extractor, RateLimiter: limiter, Concurrency: concurrency}
}

// Run extracts concepts for every input, reporting progress as tasks
// complete. The returned slice mirrors the order of inputs, not the order
// tasks finished in; one document's extraction error never cancels its
// siblings — ctx cancellation (e.g. SIGINT) is the only thing that stops
// scheduling new work early.
func (p *WorkerPool) Run(ctx context.Context, inputs []ExtractionInput, onProgress ProgressFunc) []ExtractionOutput {
	results := make([]ExtractionOutput, len(inputs))
	total := len(inputs)

	var completed int64
	var progressMu sync.Mutex

	var g errgroup.Group
	sem := make(chan struct{}, p.Concurrency)

	for i, input := range inputs {
		i, input := i, input
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = ExtractionOutput{Source: input.Source, Hash: input.ContentHash, Err: ctx.Err()}
				return nil
			}
			defer func() { <-sem }()

			results[i] = p.runOne(ctx, input)

			progressMu.Lock()
			completed++
			n := completed
			progressMu.Unlock()
			if onProgress != nil {
				onProgress(int(n), total, input.Source)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (p *WorkerPool) runOne(ctx context.Context, input ExtractionInput) ExtractionOutput {
	if p.RateLimiter != nil {
		if err := p.RateLimiter.Acquire(ctx); err != nil {
			return ExtractionOutput{Source: input.Source, Hash: input.ContentHash, Err: err}
		}
	}

	record, err := p.Extractor.Extract(ctx, input)
	if err != nil {
		return ExtractionOutput{Source: input.Source, Hash: input.ContentHash, Err: err}
	}
	return ExtractionOutput{Source: input.Source, Hash: input.ContentHash, Concepts: record}
}
