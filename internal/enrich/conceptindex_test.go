package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptrag/core/internal/store"
)

type fakeIndexEmbedder struct{}

func (fakeIndexEmbedder) Dimensions() int                                { return 3 }
func (fakeIndexEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 0, 0}, nil
}
func (f fakeIndexEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}
func (fakeIndexEmbedder) ModelName() string                { return "fake" }
func (fakeIndexEmbedder) Available(_ context.Context) bool { return true }
func (fakeIndexEmbedder) Close() error                      { return nil }
func (fakeIndexEmbedder) SetBatchIndex(_ int)               {}
func (fakeIndexEmbedder) SetFinalBatch(_ bool)              {}

func TestConceptIndexBuilder_Build_UnionsNamesAndAssignsTaxonomy(t *testing.T) {
	ctx := context.Background()
	concepts, err := store.NewConceptCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, concepts.OpenOrCreate(ctx))

	chunks, err := store.NewChunkCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, chunks.OpenOrCreate(ctx))
	require.NoError(t, chunks.BatchUpsert(ctx, []store.Chunk{
		{ID: 1, CatalogID: 1, Text: "exaptive bootstrapping drives structural reuse", Embedding: []float32{1, 0, 0}},
		{ID: 2, CatalogID: 2, Text: "exaptive bootstrapping recurs across taxa", Embedding: []float32{1, 0, 0}},
	}))

	builder := &ConceptIndexBuilder{Concepts: concepts, Chunks: chunks, Embedder: fakeIndexEmbedder{}}

	// Given: two documents sharing a thematic concept and one with a technical term
	extractions := []DocumentExtraction{
		{DocumentID: 1, Record: ConceptRecord{PrimaryConcepts: []string{"Exaptive Bootstrapping"}, TechnicalTerms: []string{"Gaia Hypothesis"}}},
		{DocumentID: 2, Record: ConceptRecord{PrimaryConcepts: []string{"exaptive bootstrapping"}}},
	}

	// When: building the concept index
	require.NoError(t, builder.Build(ctx, extractions))

	// Then: the shared concept has both sources and a higher chunk count
	rows, err := concepts.FilterQuery(ctx, nil, noLimit)
	require.NoError(t, err)
	byName := make(map[string]store.Concept)
	for _, c := range rows {
		byName[c.Name] = c
	}

	bootstrap, ok := byName["Exaptive Bootstrapping"]
	require.True(t, ok)
	assert.Len(t, bootstrap.Sources, 2)
	assert.Equal(t, store.ConceptThematic, bootstrap.ConceptType)
	assert.Equal(t, uint32(2), bootstrap.ChunkCount)

	term, ok := byName["Gaia Hypothesis"]
	require.True(t, ok)
	assert.Equal(t, store.ConceptTerminology, term.ConceptType)
}
