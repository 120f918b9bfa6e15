package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/store"
)

// fakeCompleter implements enrich.Completer with a canned concept extraction
// response, letting extract_concepts be exercised end to end without a
// network call.
type fakeCompleter struct {
	text  string
	model string
	err   error
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string) (string, string, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.text, f.model, nil
}

func newFakeExtractionResponse() string {
	payload, _ := json.Marshal(map[string]any{
		"primary_concepts": []string{"gravity"},
		"technical_terms":  []string{"general relativity"},
		"acronyms":         []string{},
		"categories":       []string{"physics"},
		"related_concepts": []string{"spacetime curvature"},
	})
	return string(payload)
}

func TestServer_HandleExtractConcepts_ReturnsStructuredRecord(t *testing.T) {
	// Given: a server with a working extractor and a matching document
	fx := newTestFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.documents.BatchUpsert(ctx, []store.Document{
		{ID: 1, Source: "book-1", Title: "Gravity and Spacetime", Summary: "general relativity overview", Embedding: embedText("gravity")},
	}))
	fx.server.extractor = enrich.NewLLMExtractor(&fakeCompleter{text: newFakeExtractionResponse(), model: "claude-test"}, nil)

	// When: calling extract_concepts
	_, output, err := fx.server.handleExtractConcepts(ctx, nil, ExtractConceptsInput{DocumentQuery: "gravity"})

	// Then: the structured fields are populated from the LLM response
	require.NoError(t, err)
	assert.Equal(t, "book-1", output.Source)
	assert.Contains(t, output.PrimaryConcepts, "gravity")
	assert.Contains(t, output.Categories, "physics")
	assert.Empty(t, output.Markdown)
}

func TestServer_HandleExtractConcepts_MarkdownFormat(t *testing.T) {
	// Given: a server with a working extractor
	fx := newTestFixture(t)
	ctx := context.Background()
	require.NoError(t, fx.documents.BatchUpsert(ctx, []store.Document{
		{ID: 1, Source: "book-1", Title: "Gravity and Spacetime", Embedding: embedText("gravity")},
	}))
	fx.server.extractor = enrich.NewLLMExtractor(&fakeCompleter{text: newFakeExtractionResponse(), model: "claude-test"}, nil)

	// When: requesting markdown format
	_, output, err := fx.server.handleExtractConcepts(ctx, nil, ExtractConceptsInput{DocumentQuery: "gravity", Format: "markdown"})

	// Then: markdown is rendered instead of (in addition to) the raw fields
	require.NoError(t, err)
	assert.NotEmpty(t, output.Markdown)
	assert.Contains(t, output.Markdown, "book-1")
}

func TestServer_HandleExtractConcepts_UnknownDocument_ReturnsNotFound(t *testing.T) {
	// Given: a server with an extractor but no matching document
	fx := newTestFixture(t)
	fx.server.extractor = enrich.NewLLMExtractor(&fakeCompleter{text: newFakeExtractionResponse()}, nil)

	// When: querying a document that doesn't exist
	_, _, err := fx.server.handleExtractConcepts(context.Background(), nil, ExtractConceptsInput{DocumentQuery: "nonexistent"})

	// Then: a not-found error is returned
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeNotFound, mcpErr.Code)
}

func TestConceptSearchOutput_JSONRoundTrip(t *testing.T) {
	// Given: a populated concept_search output
	page := uint32(12)
	output := ConceptSearchOutput{
		TotalChunksFound: 1,
		Results: []ConceptChunkResult{
			{Source: "book-1", Text: "gravity bends spacetime", ConceptsInChunk: []string{"gravity"}, ConceptDensity: 0.7, Page: &page},
		},
		ExpandedTerms: []string{"spacetime"},
	}

	// When: round-tripping through JSON
	data, err := json.Marshal(output)
	require.NoError(t, err)
	var decoded ConceptSearchOutput
	require.NoError(t, json.Unmarshal(data, &decoded))

	// Then: every field survives
	assert.Equal(t, output.TotalChunksFound, decoded.TotalChunksFound)
	require.Len(t, decoded.Results, 1)
	assert.Equal(t, "book-1", decoded.Results[0].Source)
	require.NotNil(t, decoded.Results[0].Page)
	assert.Equal(t, uint32(12), *decoded.Results[0].Page)
}

func TestCatalogResult_ScoresOmittedWhenNil(t *testing.T) {
	// Given: a catalog result with no debug scores
	result := CatalogResult{Source: "book-1", Title: "Gravity"}

	// When: marshaling to JSON
	data, err := json.Marshal(result)
	require.NoError(t, err)

	// Then: the scores key is absent, not present as null
	assert.NotContains(t, string(data), `"scores"`)
}

func TestServer_ListTools_DescribesConceptSearchAndCatalogSearch(t *testing.T) {
	// Given: a server
	srv := newTestServer(t)

	// When: listing tools
	tools := srv.ListTools()

	// Then: both tools appear with non-empty descriptions
	names := make(map[string]string)
	for _, tool := range tools {
		names[tool.Name] = tool.Description
	}
	assert.NotEmpty(t, names["concept_search"])
	assert.NotEmpty(t, names["catalog_search"])
	assert.NotEmpty(t, names["extract_concepts"])
}
