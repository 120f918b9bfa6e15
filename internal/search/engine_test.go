package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptrag/core/internal/store"
	"github.com/conceptrag/core/internal/wordnet"
)

const testDimensions = 4

// fakeEmbedder maps the presence of four marker words onto four fixed
// dimensions, giving vector similarity a predictable signal in fixtures
// without depending on a real embedding model.
type fakeEmbedder struct{}

func (fakeEmbedder) Dimensions() int { return testDimensions }

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

func (fakeEmbedder) ModelName() string             { return "fake-embedder" }
func (fakeEmbedder) Available(_ context.Context) bool { return true }
func (fakeEmbedder) Close() error                  { return nil }
func (fakeEmbedder) SetBatchIndex(_ int)           {}
func (fakeEmbedder) SetFinalBatch(_ bool)          {}

var markerWords = []string{"bootstrapping", "gravity", "pandemic", "syntax"}

func embedText(text string) []float32 {
	lower := strings.ToLower(text)
	vec := make([]float32, testDimensions)
	any := false
	for i, m := range markerWords {
		if strings.Contains(lower, m) {
			vec[i] = 1
			any = true
		}
	}
	if !any {
		vec[0] = 0.01 // avoid an all-zero vector, which the index cannot normalize
	}
	return vec
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()

	docs, err := store.NewDocumentCollection("", "", testDimensions)
	require.NoError(t, err)
	chunks, err := store.NewChunkCollection("", "", testDimensions)
	require.NoError(t, err)
	concepts, err := store.NewConceptCollection("", "", testDimensions)
	require.NoError(t, err)
	require.NoError(t, docs.OpenOrCreate(ctx))
	require.NoError(t, chunks.OpenOrCreate(ctx))
	require.NoError(t, concepts.OpenOrCreate(ctx))

	engine, err := NewEngine(docs, chunks, concepts, fakeEmbedder{}, wordnet.DefaultSource(), DefaultConfig())
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RejectsNilDependencies(t *testing.T) {
	_, err := NewEngine(nil, nil, nil, nil, nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_CatalogSearch_RanksByTitleAndVectorSignal(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	docs := []store.Document{
		{ID: 1, Source: "book-1", Title: "Exaptive Bootstrapping in Evolutionary Systems", Summary: "a study of bootstrapping", Embedding: embedText("bootstrapping")},
		{ID: 2, Source: "book-2", Title: "Gravity and Spacetime", Summary: "general relativity overview", Embedding: embedText("gravity")},
	}
	require.NoError(t, engine.documents.BatchUpsert(ctx, docs))

	results, err := engine.CatalogSearch(ctx, "bootstrapping", SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint64(1), results[0].ID, "the document whose title and embedding match the query should rank first")
}

func TestEngine_CatalogSearch_SuppressesComponentScoresWithoutDebug(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.documents.BatchUpsert(ctx, []store.Document{
		{ID: 1, Source: "s", Title: "Gravity", Summary: "gravity summary", Embedding: embedText("gravity")},
	}))

	results, err := engine.CatalogSearch(ctx, "gravity", SearchOptions{Limit: 5, Debug: false})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Zero(t, results[0].Scores.Vector, "component scores must be suppressed unless Debug is set")
	assert.Empty(t, results[0].Expansion.Terms, "only the original-term list survives without Debug")
}

func TestEngine_CatalogSearch_IncludesComponentScoresWithDebug(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, engine.documents.BatchUpsert(ctx, []store.Document{
		{ID: 1, Source: "s", Title: "Gravity", Summary: "gravity summary", Embedding: embedText("gravity")},
	}))

	results, err := engine.CatalogSearch(ctx, "gravity", SearchOptions{Limit: 5, Debug: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.NotEmpty(t, results[0].Expansion.Terms)
	assert.Greater(t, results[0].Scores.Title, 0.0, "debug results carry component scores")
}

func TestEngine_ChunkSearch_DerivesTitleFromParentDocument(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.documents.BatchUpsert(ctx, []store.Document{
		{ID: 10, Source: "s", Title: "Pandemic Response Handbook", Embedding: embedText("pandemic")},
	}))
	require.NoError(t, engine.chunks.BatchUpsert(ctx, []store.Chunk{
		{ID: 100, CatalogID: 10, Text: "quarantine measures during a pandemic", Embedding: embedText("pandemic")},
	}))

	results, err := engine.ChunkSearch(ctx, "pandemic", SearchOptions{Limit: 5, Debug: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, uint64(100), results[0].ID)
	assert.Greater(t, results[0].Scores.Title, 0.0, "chunk title_score should reflect the parent document's title")
}

// TS01: concept-search correctness rule — filter by containment and
// concept_density, never by concept-embedding-to-chunk-embedding distance.
func TestEngine_ConceptSearch_RanksByConceptDensityNotEmbeddingSimilarity(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.concepts.BatchUpsert(ctx, []store.Concept{
		{ID: store.ConceptID("exaptive bootstrapping"), Name: "exaptive bootstrapping", Embedding: embedText("syntax")},
	}))
	// Chunk embeddings deliberately point away from the concept's own
	// embedding (syntax marker) to prove ranking doesn't depend on it.
	require.NoError(t, engine.chunks.BatchUpsert(ctx, []store.Chunk{
		{ID: 1, CatalogID: 1, Text: "exaptive bootstrapping is discussed briefly", Concepts: []string{"exaptive bootstrapping"}, ConceptDensity: 0.2, Embedding: embedText("gravity")},
		{ID: 2, CatalogID: 1, Text: "exaptive bootstrapping is the central theme here", Concepts: []string{"exaptive bootstrapping"}, ConceptDensity: 0.9, Embedding: embedText("pandemic")},
	}))

	results, err := engine.ConceptSearch(ctx, "exaptive bootstrapping", SearchOptions{Limit: 5, Debug: true})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, uint64(2), results[0].ID, "higher concept_density must win regardless of embedding similarity")
}

func TestEngine_ConceptSearch_UnknownConceptReturnsNoResults(t *testing.T) {
	engine := newTestEngine(t)
	results, err := engine.ConceptSearch(context.Background(), "an utterly unseen concept phrase", SearchOptions{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, results)
}
