package mcp

// Input/output types for the eight MCP tools. Each pair mirrors its tool's
// request/response schema directly — JSON tags double as the tool's JSON
// Schema via the go-sdk's reflection-based AddTool.

// ConceptSearchInput is the concept_search tool's request.
type ConceptSearchInput struct {
	Concept string `json:"concept" jsonschema:"the concept name to search for"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return"`
	Debug   bool   `json:"debug,omitempty" jsonschema:"include component scores and expansion detail"`
}

// ConceptChunkResult is one row of concept_search's results.
type ConceptChunkResult struct {
	Source          string   `json:"source"`
	Text            string   `json:"text"`
	ConceptsInChunk []string `json:"concepts_in_chunk"`
	ConceptDensity  float64  `json:"concept_density"`
	Page            *uint32  `json:"page,omitempty"`
}

// ConceptSearchOutput is the concept_search tool's response.
type ConceptSearchOutput struct {
	TotalChunksFound int                  `json:"total_chunks_found"`
	Results          []ConceptChunkResult `json:"results"`
	ExpandedTerms    []string             `json:"expanded_terms,omitempty"`
}

// CatalogSearchInput is the catalog_search tool's request.
type CatalogSearchInput struct {
	Text  string `json:"text" jsonschema:"free-text query over document catalog entries"`
	Limit int    `json:"limit,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// ScoreBreakdown is the optional per-signal score detail, present only when
// the caller asked for debug output.
type ScoreBreakdown struct {
	Vector  float64 `json:"vector"`
	BM25    float64 `json:"bm25"`
	Title   float64 `json:"title"`
	Concept float64 `json:"concept"`
	WordNet float64 `json:"wordnet"`
}

// CatalogResult is one row of catalog_search's results.
type CatalogResult struct {
	Source          string          `json:"source"`
	Title           string          `json:"title"`
	Summary         string          `json:"summary"`
	PrimaryConcepts []string        `json:"primary_concepts"`
	Categories      []string        `json:"categories"`
	HybridScore     float64         `json:"hybrid_score"`
	Scores          *ScoreBreakdown `json:"scores,omitempty"`
}

// CatalogSearchOutput is the catalog_search tool's response.
type CatalogSearchOutput struct {
	Results       []CatalogResult `json:"results"`
	ExpandedTerms []string        `json:"expanded_terms,omitempty"`
}

// BroadChunksSearchInput is the broad_chunks_search tool's request.
type BroadChunksSearchInput struct {
	Text  string `json:"text" jsonschema:"free-text query over every indexed chunk"`
	Limit int    `json:"limit,omitempty"`
	Debug bool   `json:"debug,omitempty"`
}

// ChunkResult is one row of broad_chunks_search / source_chunks_search.
type ChunkResult struct {
	Source      string          `json:"source"`
	Text        string          `json:"text"`
	ChunkID     uint64          `json:"chunk_id"`
	HybridScore float64         `json:"hybrid_score"`
	Scores      *ScoreBreakdown `json:"scores,omitempty"`
}

// BroadChunksSearchOutput is the broad_chunks_search tool's response.
type BroadChunksSearchOutput struct {
	Results       []ChunkResult `json:"results"`
	ExpandedTerms []string      `json:"expanded_terms,omitempty"`
}

// SourceChunksSearchInput is the source_chunks_search tool's request: a
// hybrid search restricted to chunks belonging to one named source.
type SourceChunksSearchInput struct {
	Text   string `json:"text" jsonschema:"free-text query"`
	Source string `json:"source" jsonschema:"exact document source to restrict the search to"`
	Limit  int    `json:"limit,omitempty"`
}

// SourceChunksSearchOutput is the source_chunks_search tool's response.
type SourceChunksSearchOutput struct {
	Results []ChunkResult `json:"results"`
}

// ExtractConceptsInput is the extract_concepts tool's request: it runs the
// extraction prompt live against a document resolved by catalog query,
// rather than reading a previously stored concept record.
type ExtractConceptsInput struct {
	DocumentQuery string `json:"document_query" jsonschema:"catalog search text identifying the document to extract from"`
	Format        string `json:"format,omitempty" jsonschema:"json or markdown, defaults to json"`
}

// ExtractConceptsOutput is the extract_concepts tool's response. Markdown is
// populated instead of the structured fields when Format == "markdown".
type ExtractConceptsOutput struct {
	Source          string   `json:"source"`
	PrimaryConcepts []string `json:"primary_concepts,omitempty"`
	TechnicalTerms  []string `json:"technical_terms,omitempty"`
	Acronyms        []string `json:"acronyms,omitempty"`
	Categories      []string `json:"categories,omitempty"`
	RelatedConcepts []string `json:"related_concepts,omitempty"`
	Markdown        string   `json:"markdown,omitempty"`
}

// ListCategoriesInput is the list_categories tool's request; it takes no
// parameters but the go-sdk requires a struct type.
type ListCategoriesInput struct{}

// CategoryInfo describes one category in the taxonomy.
type CategoryInfo struct {
	Name     string  `json:"name"`
	ParentID *uint64 `json:"parent_id,omitempty"`
	Summary  string  `json:"summary,omitempty"`
}

// ListCategoriesOutput is the list_categories tool's response.
type ListCategoriesOutput struct {
	Categories []CategoryInfo `json:"categories"`
}

// CategorySearchInput is the category_search tool's request: catalog_search
// narrowed to documents tagged under one named category.
type CategorySearchInput struct {
	Category string `json:"category" jsonschema:"category name to restrict the catalog search to"`
	Text     string `json:"text" jsonschema:"free-text query"`
	Limit    int    `json:"limit,omitempty"`
}

// CategorySearchOutput is the category_search tool's response.
type CategorySearchOutput struct {
	Results []CatalogResult `json:"results"`
}

// ListConceptsInCategoryInput is the list_concepts_in_category tool's request.
type ListConceptsInCategoryInput struct {
	Category string `json:"category" jsonschema:"category name"`
	Limit    int    `json:"limit,omitempty"`
}

// ConceptInfo summarizes one concept for taxonomy browsing.
type ConceptInfo struct {
	Name        string  `json:"name"`
	ConceptType string  `json:"concept_type"`
	ChunkCount  uint32  `json:"chunk_count"`
	Weight      float64 `json:"weight"`
}

// ListConceptsInCategoryOutput is the list_concepts_in_category tool's response.
type ListConceptsInCategoryOutput struct {
	Concepts []ConceptInfo `json:"concepts"`
}
