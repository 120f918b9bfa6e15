package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptrag/core/internal/store"
)

func newTestChunks(t *testing.T) store.Collection[store.Chunk] {
	t.Helper()
	chunks, err := store.NewChunkCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, chunks.OpenOrCreate(context.Background()))
	return chunks
}

func TestEnrichDocumentChunks_WritesMatchedConceptsAndDensity(t *testing.T) {
	// Given: a document's raw chunks and its extracted concept candidates
	chunks := newTestChunks(t)
	ctx := context.Background()
	require.NoError(t, chunks.BatchUpsert(ctx, []store.Chunk{
		{ID: 1, CatalogID: 10, Text: "exaptive bootstrapping explains structural reuse", Embedding: []float32{0.1, 0.1, 0.1}},
		{ID: 2, CatalogID: 10, Text: "this passage is unrelated to either concept", Embedding: []float32{0.2, 0.2, 0.2}},
	}))

	// When: re-enriching against the document's concept set
	require.NoError(t, EnrichDocumentChunks(ctx, chunks, 10, []string{"exaptive bootstrapping", "structural reuse"}))

	// Then: each chunk's concepts/density reflect the match, embeddings untouched
	rows, err := chunks.FilterQuery(ctx, store.FilterSet{store.Eq("catalog_id", uint64(10))}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := make(map[uint64]store.Chunk)
	for _, r := range rows {
		byID[r.ID] = r
	}
	assert.NotEmpty(t, byID[1].Concepts)
	assert.Greater(t, byID[1].ConceptDensity, float32(0))
	assert.Equal(t, []float32{0.1, 0.1, 0.1}, byID[1].Embedding)
	assert.Zero(t, byID[2].ConceptDensity)
}

func TestEnrichDocumentChunks_NoChunksIsNoOp(t *testing.T) {
	chunks := newTestChunks(t)
	err := EnrichDocumentChunks(context.Background(), chunks, 999, []string{"anything"})
	assert.NoError(t, err)
}
