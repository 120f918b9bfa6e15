package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	failSources map[string]bool
}

func (f fakeExtractor) Extract(_ context.Context, doc ExtractionInput) (ConceptRecord, error) {
	if f.failSources[doc.Source] {
		return ConceptRecord{}, fmt.Errorf("extraction failed for %s", doc.Source)
	}
	return ConceptRecord{PrimaryConcepts: []string{doc.Source + "-concept"}}, nil
}

func TestWorkerPool_Run_PreservesInputOrderNotCompletionOrder(t *testing.T) {
	// Given: inputs processed concurrently by several workers
	pool := NewWorkerPool(fakeExtractor{}, nil, 4)
	inputs := []ExtractionInput{
		{Source: "doc-a", ContentHash: "h1"},
		{Source: "doc-b", ContentHash: "h2"},
		{Source: "doc-c", ContentHash: "h3"},
	}

	// When: running the pool
	results := pool.Run(context.Background(), inputs, nil)

	// Then: output order mirrors input order regardless of completion order
	require.Len(t, results, 3)
	assert.Equal(t, "doc-a", results[0].Source)
	assert.Equal(t, "doc-b", results[1].Source)
	assert.Equal(t, "doc-c", results[2].Source)
}

func TestWorkerPool_Run_IsolatesPerDocumentFailures(t *testing.T) {
	// Given: one document whose extraction fails
	pool := NewWorkerPool(fakeExtractor{failSources: map[string]bool{"doc-b": true}}, nil, 2)
	inputs := []ExtractionInput{
		{Source: "doc-a", ContentHash: "h1"},
		{Source: "doc-b", ContentHash: "h2"},
		{Source: "doc-c", ContentHash: "h3"},
	}

	// When: running the pool
	results := pool.Run(context.Background(), inputs, nil)

	// Then: the failure is isolated to doc-b; siblings still succeed
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, []string{"doc-a-concept"}, results[0].Concepts.PrimaryConcepts)
}

func TestWorkerPool_Run_ReportsProgressForEveryCompletion(t *testing.T) {
	pool := NewWorkerPool(fakeExtractor{}, nil, 3)
	inputs := []ExtractionInput{
		{Source: "doc-a"}, {Source: "doc-b"}, {Source: "doc-c"},
	}

	var calls atomic.Int32
	pool.Run(context.Background(), inputs, func(completed, total, _ string) {
		calls.Add(1)
		assert.Equal(t, 3, total)
	})

	assert.Equal(t, int32(3), calls.Load())
}
