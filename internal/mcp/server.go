package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/conceptrag/core/internal/cache"
	"github.com/conceptrag/core/internal/config"
	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/search"
	"github.com/conceptrag/core/internal/store"
	"github.com/conceptrag/core/internal/telemetry"
	"github.com/conceptrag/core/pkg/version"
)

// Server is the MCP server exposing the conceptual retrieval system's
// search and taxonomy operations to AI clients.
type Server struct {
	mcp        *mcp.Server
	engine     *search.Engine
	documents  store.Collection[store.Document]
	chunks     store.Collection[store.Chunk]
	concepts   store.Collection[store.Concept]
	categories store.Collection[store.Category]
	extractor  *enrich.LLMExtractor
	embedder   embed.Embedder
	config     *config.Config
	logger     *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	// categoryCache memoizes category id<->name lookups so repeated
	// search results referencing the same handful of categories don't
	// each re-query the catalog.
	categoryCache *cache.IDNameMap

	mu sync.RWMutex
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

// NewServer wires the search engine and the four collections into an MCP
// server. extractor may be nil, in which case extract_concepts reports a
// NotFound-kind error instead of calling the LLM.
func NewServer(
	engine *search.Engine,
	documents store.Collection[store.Document],
	chunks store.Collection[store.Chunk],
	concepts store.Collection[store.Concept],
	categories store.Collection[store.Category],
	extractor *enrich.LLMExtractor,
	embedder embed.Embedder,
	cfg *config.Config,
) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if documents == nil || chunks == nil || concepts == nil || categories == nil {
		return nil, errors.New("all four collections are required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:        engine,
		documents:     documents,
		chunks:        chunks,
		concepts:      concepts,
		categories:    categories,
		extractor:     extractor,
		embedder:      embedder,
		config:        cfg,
		logger:        slog.Default(),
		categoryCache: cache.NewIDNameMap(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "conceptrag",
			Version: version.Version,
		},
		nil,
	)

	s.registerTools()

	return s, nil
}

// SetMetrics sets the query telemetry collector and registers the
// query_metrics resource.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying go-sdk server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the descriptions surfaced to clients that introspect
// the server outside the go-sdk's own tools/list handling.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{
		{Name: "concept_search", Description: "Find chunks by concept name, ranked by how densely the concept appears rather than by a weighted hybrid score. Use when you already know the concept you want, not a free-text question."},
		{Name: "catalog_search", Description: "Hybrid search over document catalog entries (title, summary, concepts). Use to find which documents are relevant to a topic before reading their chunks."},
		{Name: "broad_chunks_search", Description: "Hybrid search over every indexed chunk corpus-wide. Use for open-ended questions where the relevant document isn't known in advance."},
		{Name: "source_chunks_search", Description: "Hybrid search restricted to chunks belonging to one named document. Use once catalog_search has identified the document to read deeper into."},
		{Name: "extract_concepts", Description: "Run live concept extraction against a document identified by catalog query. Use to inspect what the enrichment pipeline would produce without re-seeding."},
		{Name: "list_categories", Description: "List the category taxonomy. Use to discover what domains the corpus covers."},
		{Name: "category_search", Description: "Hybrid catalog search narrowed to one named category."},
		{Name: "list_concepts_in_category", Description: "List concepts tagged under one named category, ranked by weight."},
	}
}

// registerTools registers all eight tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "concept_search",
		Description: "Find chunks by concept name, ranked by concept density then vector similarity.",
	}, s.handleConceptSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "catalog_search",
		Description: "Hybrid search over document catalog entries.",
	}, s.handleCatalogSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "broad_chunks_search",
		Description: "Hybrid search over every indexed chunk.",
	}, s.handleBroadChunksSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "source_chunks_search",
		Description: "Hybrid search restricted to one named document's chunks.",
	}, s.handleSourceChunksSearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "extract_concepts",
		Description: "Run live concept extraction against a document found by catalog query.",
	}, s.handleExtractConcepts)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_categories",
		Description: "List the category taxonomy.",
	}, s.handleListCategories)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "category_search",
		Description: "Hybrid catalog search narrowed to one category.",
	}, s.handleCategorySearch)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_concepts_in_category",
		Description: "List concepts tagged under one category.",
	}, s.handleListConceptsInCategory)

	s.logger.Info("MCP tools registered", slog.Int("count", 8))
}

func scoreBreakdown(debug bool, scores search.ComponentScores) *ScoreBreakdown {
	if !debug {
		return nil
	}
	return &ScoreBreakdown{
		Vector:  scores.Vector,
		BM25:    scores.BM25,
		Title:   scores.Title,
		Concept: scores.Concept,
		WordNet: scores.WordNet,
	}
}

func expandedTermStrings(exp search.Expansion) []string {
	if len(exp.Terms) == 0 {
		return nil
	}
	terms := make([]string, 0, len(exp.Terms))
	for _, t := range exp.Terms {
		terms = append(terms, t.Term)
	}
	return terms
}

// handleConceptSearch is the concept_search tool handler.
func (s *Server) handleConceptSearch(ctx context.Context, _ *mcp.CallToolRequest, input ConceptSearchInput) (
	*mcp.CallToolResult, ConceptSearchOutput, error,
) {
	requestID := generateRequestID()
	if strings.TrimSpace(input.Concept) == "" {
		return nil, ConceptSearchOutput{}, NewInvalidParamsError("concept parameter is required")
	}

	start := time.Now()
	results, err := s.engine.ConceptSearch(ctx, input.Concept, search.SearchOptions{Limit: input.Limit, Debug: input.Debug})
	duration := time.Since(start)
	if err != nil {
		s.logger.Error("concept_search failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, ConceptSearchOutput{}, MapError(err)
	}
	s.logger.Info("concept_search completed", slog.String("request_id", requestID), slog.Duration("duration", duration), slog.Int("count", len(results)))

	output := ConceptSearchOutput{TotalChunksFound: len(results), Results: make([]ConceptChunkResult, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, ConceptChunkResult{
			Source:          sourceForChunk(ctx, s.documents, r.Item),
			Text:            r.Item.Text,
			ConceptsInChunk: r.Item.Concepts,
			ConceptDensity:  float64(r.Item.ConceptDensity),
			Page:            r.Item.Page,
		})
	}
	if len(results) > 0 && input.Debug {
		output.ExpandedTerms = expandedTermStrings(results[0].Expansion)
	}
	return nil, output, nil
}

// handleCatalogSearch is the catalog_search tool handler.
func (s *Server) handleCatalogSearch(ctx context.Context, _ *mcp.CallToolRequest, input CatalogSearchInput) (
	*mcp.CallToolResult, CatalogSearchOutput, error,
) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, CatalogSearchOutput{}, NewInvalidParamsError("text parameter is required")
	}

	results, err := s.engine.CatalogSearch(ctx, input.Text, search.SearchOptions{Limit: input.Limit, Debug: input.Debug})
	if err != nil {
		return nil, CatalogSearchOutput{}, MapError(err)
	}

	output := CatalogSearchOutput{Results: make([]CatalogResult, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, CatalogResult{
			Source:          r.Item.Source,
			Title:           r.Item.Title,
			Summary:         r.Item.Summary,
			PrimaryConcepts: r.Item.PrimaryConcepts,
			Categories:      s.categoryNames(ctx, r.Item.CategoryIDs),
			HybridScore:     r.Hybrid,
			Scores:          scoreBreakdown(input.Debug, r.Scores),
		})
	}
	if len(results) > 0 && input.Debug {
		output.ExpandedTerms = expandedTermStrings(results[0].Expansion)
	}
	return nil, output, nil
}

// handleBroadChunksSearch is the broad_chunks_search tool handler.
func (s *Server) handleBroadChunksSearch(ctx context.Context, _ *mcp.CallToolRequest, input BroadChunksSearchInput) (
	*mcp.CallToolResult, BroadChunksSearchOutput, error,
) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, BroadChunksSearchOutput{}, NewInvalidParamsError("text parameter is required")
	}

	results, err := s.engine.ChunkSearch(ctx, input.Text, search.SearchOptions{Limit: input.Limit, Debug: input.Debug})
	if err != nil {
		return nil, BroadChunksSearchOutput{}, MapError(err)
	}

	output := BroadChunksSearchOutput{Results: make([]ChunkResult, 0, len(results))}
	for _, r := range results {
		output.Results = append(output.Results, ChunkResult{
			Source:      sourceForChunk(ctx, s.documents, r.Item),
			Text:        r.Item.Text,
			ChunkID:     r.Item.ID,
			HybridScore: r.Hybrid,
			Scores:      scoreBreakdown(input.Debug, r.Scores),
		})
	}
	if len(results) > 0 && input.Debug {
		output.ExpandedTerms = expandedTermStrings(results[0].Expansion)
	}
	return nil, output, nil
}

// handleSourceChunksSearch is the source_chunks_search tool handler: it runs
// the normal chunk hybrid search and filters to the named source, since the
// ranking engine has no catalog-id-scoped search mode of its own.
func (s *Server) handleSourceChunksSearch(ctx context.Context, _ *mcp.CallToolRequest, input SourceChunksSearchInput) (
	*mcp.CallToolResult, SourceChunksSearchOutput, error,
) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, SourceChunksSearchOutput{}, NewInvalidParamsError("text parameter is required")
	}
	if strings.TrimSpace(input.Source) == "" {
		return nil, SourceChunksSearchOutput{}, NewInvalidParamsError("source parameter is required")
	}

	doc, err := s.findDocumentBySource(ctx, input.Source)
	if err != nil {
		return nil, SourceChunksSearchOutput{}, MapError(err)
	}
	if doc == nil {
		return nil, SourceChunksSearchOutput{}, NewNotFoundError("document", input.Source)
	}

	limit := clampLimit(input.Limit, s.config.Search.DefaultLimit, 1, s.config.Search.MaxLimit)
	// Over-fetch before filtering to the one source, since the fusion
	// engine ranks the whole corpus rather than a pre-scoped subset.
	results, err := s.engine.ChunkSearch(ctx, input.Text, search.SearchOptions{Limit: limit * 5})
	if err != nil {
		return nil, SourceChunksSearchOutput{}, MapError(err)
	}

	output := SourceChunksSearchOutput{Results: make([]ChunkResult, 0, limit)}
	for _, r := range results {
		if r.Item.CatalogID != doc.ID {
			continue
		}
		output.Results = append(output.Results, ChunkResult{
			Source:      doc.Source,
			Text:        r.Item.Text,
			ChunkID:     r.Item.ID,
			HybridScore: r.Hybrid,
		})
		if len(output.Results) >= limit {
			break
		}
	}
	return nil, output, nil
}

// handleExtractConcepts runs the extraction pipeline live against a document
// resolved by catalog query, rendering markdown when requested.
func (s *Server) handleExtractConcepts(ctx context.Context, _ *mcp.CallToolRequest, input ExtractConceptsInput) (
	*mcp.CallToolResult, ExtractConceptsOutput, error,
) {
	if strings.TrimSpace(input.DocumentQuery) == "" {
		return nil, ExtractConceptsOutput{}, NewInvalidParamsError("document_query parameter is required")
	}
	if s.extractor == nil {
		return nil, ExtractConceptsOutput{}, NewNotFoundError("extractor", "not configured; set an Anthropic API key to enable extract_concepts")
	}

	matches, err := s.engine.CatalogSearch(ctx, input.DocumentQuery, search.SearchOptions{Limit: 1})
	if err != nil {
		return nil, ExtractConceptsOutput{}, MapError(err)
	}
	if len(matches) == 0 {
		return nil, ExtractConceptsOutput{}, NewNotFoundError("document", input.DocumentQuery)
	}
	doc := matches[0].Item

	record, err := s.extractor.Extract(ctx, enrich.ExtractionInput{
		Source: doc.Source,
		Text:   doc.Summary + "\n\n" + strings.Join(doc.PrimaryConcepts, ", "),
	})
	if err != nil {
		return nil, ExtractConceptsOutput{}, MapError(err)
	}

	output := ExtractConceptsOutput{
		Source:          doc.Source,
		PrimaryConcepts: record.PrimaryConcepts,
		TechnicalTerms:  record.TechnicalTerms,
		Acronyms:        record.Acronyms,
		Categories:      record.Categories,
		RelatedConcepts: record.RelatedConcepts,
	}
	if input.Format == "markdown" {
		output.Markdown = RenderConceptRecordMarkdown(doc.Source, record)
	}
	return nil, output, nil
}

// handleListCategories is the list_categories tool handler.
func (s *Server) handleListCategories(ctx context.Context, _ *mcp.CallToolRequest, _ ListCategoriesInput) (
	*mcp.CallToolResult, ListCategoriesOutput, error,
) {
	cats, err := s.categories.FilterQuery(ctx, nil, noLimit)
	if err != nil {
		return nil, ListCategoriesOutput{}, MapError(err)
	}
	output := ListCategoriesOutput{Categories: make([]CategoryInfo, 0, len(cats))}
	for _, c := range cats {
		output.Categories = append(output.Categories, CategoryInfo{Name: c.Name, ParentID: c.ParentID, Summary: c.Summary})
	}
	return nil, output, nil
}

// handleCategorySearch is the category_search tool handler: catalog_search
// filtered to documents tagged under the named category.
func (s *Server) handleCategorySearch(ctx context.Context, _ *mcp.CallToolRequest, input CategorySearchInput) (
	*mcp.CallToolResult, CategorySearchOutput, error,
) {
	if strings.TrimSpace(input.Category) == "" {
		return nil, CategorySearchOutput{}, NewInvalidParamsError("category parameter is required")
	}

	cat, err := s.findCategoryByName(ctx, input.Category)
	if err != nil {
		return nil, CategorySearchOutput{}, MapError(err)
	}
	if cat == nil {
		return nil, CategorySearchOutput{}, NewNotFoundError("category", input.Category)
	}

	limit := clampLimit(input.Limit, s.config.Search.DefaultLimit, 1, s.config.Search.MaxLimit)
	results, err := s.engine.CatalogSearch(ctx, input.Text, search.SearchOptions{Limit: limit * 5, CategoryIDs: []uint64{cat.ID}})
	if err != nil {
		return nil, CategorySearchOutput{}, MapError(err)
	}

	output := CategorySearchOutput{Results: make([]CatalogResult, 0, limit)}
	for _, r := range results {
		if !containsID(r.Item.CategoryIDs, cat.ID) {
			continue
		}
		output.Results = append(output.Results, CatalogResult{
			Source:          r.Item.Source,
			Title:           r.Item.Title,
			Summary:         r.Item.Summary,
			PrimaryConcepts: r.Item.PrimaryConcepts,
			Categories:      s.categoryNames(ctx, r.Item.CategoryIDs),
			HybridScore:     r.Hybrid,
		})
		if len(output.Results) >= limit {
			break
		}
	}
	return nil, output, nil
}

// handleListConceptsInCategory is the list_concepts_in_category tool handler.
func (s *Server) handleListConceptsInCategory(ctx context.Context, _ *mcp.CallToolRequest, input ListConceptsInCategoryInput) (
	*mcp.CallToolResult, ListConceptsInCategoryOutput, error,
) {
	if strings.TrimSpace(input.Category) == "" {
		return nil, ListConceptsInCategoryOutput{}, NewInvalidParamsError("category parameter is required")
	}

	cat, err := s.findCategoryByName(ctx, input.Category)
	if err != nil {
		return nil, ListConceptsInCategoryOutput{}, MapError(err)
	}
	if cat == nil {
		return nil, ListConceptsInCategoryOutput{}, NewNotFoundError("category", input.Category)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = noLimit
	}
	concepts, err := s.concepts.FilterQuery(ctx, nil, limit)
	if err != nil {
		return nil, ListConceptsInCategoryOutput{}, MapError(err)
	}

	output := ListConceptsInCategoryOutput{Concepts: make([]ConceptInfo, 0, len(concepts))}
	for _, c := range concepts {
		if !containsID(c.CategoryIDs, cat.ID) {
			continue
		}
		output.Concepts = append(output.Concepts, ConceptInfo{
			Name:        c.Name,
			ConceptType: string(c.ConceptType),
			ChunkCount:  c.ChunkCount,
			Weight:      float64(c.Weight),
		})
	}
	sort.SliceStable(output.Concepts, func(i, j int) bool {
		return output.Concepts[i].Weight > output.Concepts[j].Weight
	})
	return nil, output, nil
}

// noLimit mirrors the store package's workaround for FilterQuery treating a
// literal 0 as "zero rows" rather than "unlimited".
const noLimit = 1 << 30

func containsID(ids []uint64, id uint64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Server) findDocumentBySource(ctx context.Context, source string) (*store.Document, error) {
	docs, err := s.documents.FilterQuery(ctx, store.FilterSet{store.Eq("source", source)}, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return &docs[0], nil
}

func (s *Server) findCategoryByName(ctx context.Context, name string) (*store.Category, error) {
	cats, err := s.categories.FilterQuery(ctx, store.FilterSet{store.Eq("name", name)}, 1)
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, nil
	}
	s.categoryCache.Put(cats[0].Name, cats[0].ID)
	return &cats[0], nil
}

// categoryNames resolves category ids to names through the server's
// id-name cache, falling back to a row lookup (and populating the cache)
// on a miss — most documents repeat a small set of categories, so this
// turns an O(n) FilterQuery per search result into a handful of lookups
// per server lifetime.
func (s *Server) categoryNames(ctx context.Context, ids []uint64) []string {
	if len(ids) == 0 {
		return nil
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := s.categoryCache.NameByID(id); ok {
			names = append(names, name)
			continue
		}
		cats, err := s.categories.FilterQuery(ctx, store.FilterSet{store.Eq("id", id)}, 1)
		if err != nil || len(cats) == 0 {
			continue
		}
		s.categoryCache.Put(cats[0].Name, cats[0].ID)
		names = append(names, cats[0].Name)
	}
	return names
}

// sourceForChunk resolves a chunk's parent document source for display;
// falls back to the numeric catalog id if the lookup fails.
func sourceForChunk(ctx context.Context, documents store.Collection[store.Document], chunk store.Chunk) string {
	docs, err := documents.FilterQuery(ctx, store.FilterSet{store.Eq("id", chunk.CatalogID)}, 1)
	if err != nil || len(docs) == 0 {
		return strconv.FormatUint(chunk.CatalogID, 10)
	}
	return docs[0].Source
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio", "":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// Close releases server resources.
func (s *Server) Close() error {
	return nil
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
