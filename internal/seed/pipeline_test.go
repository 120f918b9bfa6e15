package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/store"
)

type fakeSeedEmbedder struct{}

func (fakeSeedEmbedder) Dimensions() int { return 3 }
func (fakeSeedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 0, 0}, nil
}
func (f fakeSeedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}
func (fakeSeedEmbedder) ModelName() string                { return "fake" }
func (fakeSeedEmbedder) Available(_ context.Context) bool { return true }
func (fakeSeedEmbedder) Close() error                      { return nil }
func (fakeSeedEmbedder) SetBatchIndex(_ int)               {}
func (fakeSeedEmbedder) SetFinalBatch(_ bool)              {}

// fakeCompleter returns a fixed set of concepts regardless of input,
// mirroring the enrich package's own extractor tests rather than
// reimplementing a JSON-speaking stub.
type fakeCompleter struct {
	categories []string
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, string, error) {
	cats := `["general"]`
	if len(f.categories) > 0 {
		cats = `["` + f.categories[0] + `"]`
	}
	return `{"primary_concepts": ["load bearing wall"], "technical_terms": ["joist"], "acronyms": [], ` +
		`"categories": ` + cats + `, "related_concepts": ["beam"]}`, "fake-model-v1", nil
}

func newTestDeps(t *testing.T) Dependencies {
	t.Helper()
	ctx := context.Background()

	docs, err := store.NewDocumentCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, docs.OpenOrCreate(ctx))

	chunks, err := store.NewChunkCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, chunks.OpenOrCreate(ctx))

	concepts, err := store.NewConceptCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, concepts.OpenOrCreate(ctx))

	categories, err := store.NewCategoryCollection("", "", 3)
	require.NoError(t, err)
	require.NoError(t, categories.OpenOrCreate(ctx))

	return Dependencies{
		Documents:  docs,
		Chunks:     chunks,
		Concepts:   concepts,
		Categories: categories,
		Embedder:   fakeSeedEmbedder{},
		Completer:  &fakeCompleter{},
		Checkpoint: enrich.NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json")),
	}
}

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestPipeline_Run_ChunksExtractsAndPersistsEveryDocument(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"framing.md": "# Framing Basics\n\nA load bearing wall carries structural weight down to the foundation.\n",
		"notes.txt":  "Joists span between beams and support the floor above.\n",
	})
	deps := newTestDeps(t)

	// When: running the pipeline over a fresh corpus
	result, err := New(Options{FilesDir: dir, Parallel: 2}, deps).Run(context.Background())

	// Then: both documents are scanned, chunked, and written with no failures
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, 2, result.DocumentsProcessed)
	assert.Empty(t, result.Failed)
	assert.Greater(t, result.ChunksWritten, 0)
	assert.Greater(t, result.ConceptsIndexed, 0)
	assert.Greater(t, result.CategoriesWritten, 0)

	rows, err := deps.Documents.FilterQuery(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, doc := range rows {
		assert.NotEmpty(t, doc.Title)
		assert.NotEmpty(t, doc.CategoryIDs)
	}
}

func TestPipeline_Run_ResumeSkipsPreviouslyProcessedDocuments(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"a.md": "# A\n\nA load bearing wall holds up the roof.\n",
	})
	deps := newTestDeps(t)

	ctx := context.Background()
	first, err := New(Options{FilesDir: dir}, deps).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.DocumentsProcessed)

	// When: running again with --resume against the same checkpoint
	second, err := New(Options{FilesDir: dir, Resume: true}, deps).Run(ctx)

	// Then: the already-processed document is skipped, not reprocessed
	require.NoError(t, err)
	assert.True(t, second.Resumed)
	assert.Equal(t, 0, second.DocumentsProcessed)
}

func TestPipeline_Run_MaxDocsCapsTheProcessingQueue(t *testing.T) {
	dir := writeCorpus(t, map[string]string{
		"a.md": "# A\n\nJoists and beams form the floor frame.\n",
		"b.md": "# B\n\nA load bearing wall transfers weight to the foundation.\n",
	})
	deps := newTestDeps(t)

	result, err := New(Options{FilesDir: dir, MaxDocs: 1}, deps).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesScanned)
	assert.Equal(t, 1, result.DocumentsProcessed)
	assert.Equal(t, 1, result.DocumentsSkipped)
}

func TestDeriveTitle_PrefersFirstHeadingOverFilename(t *testing.T) {
	title := deriveTitle("framing-basics.md", []byte("# Framing Basics\n\nbody text\n"))
	assert.Equal(t, "Framing Basics", title)
}

func TestDeriveTitle_HumanizesFilenameWhenNoHeadingPresent(t *testing.T) {
	title := deriveTitle("load_bearing-walls.txt", []byte("just a paragraph, no heading\n"))
	assert.Equal(t, "Load Bearing Walls", title)
}

func TestDeriveSummary_TakesFirstNonHeadingParagraph(t *testing.T) {
	summary := deriveSummary([]byte("# Title\n\nFirst real paragraph here.\n\nSecond paragraph ignored.\n"))
	assert.Equal(t, "First real paragraph here.", summary)
}
