package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conceptrag/core/internal/cache"
	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/store"
	"github.com/conceptrag/core/internal/telemetry"
	"github.com/conceptrag/core/internal/wordnet"
)

// ErrNilDependency is returned when a required Engine dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// defaultConceptChunkScanLimit bounds how many chunks the concept-search
// filter lookup returns before ranking; a concept legitimately tagged on
// more chunks than this only has its top slice considered.
const defaultConceptChunkScanLimit = 5000

// Engine implements the hybrid ranking engine, using a
// constructor-with-functional-options shape; signals are computed one
// candidate after another. Its Search methods compute five fixed signals and fuse with
// a static weight vector instead of an adaptive Reciprocal Rank Fusion.
type Engine struct {
	documents store.Collection[store.Document]
	chunks    store.Collection[store.Chunk]
	concepts  store.Collection[store.Concept]
	embedder  embed.Embedder
	expander  *QueryExpander
	fusion    *Fusion
	config    EngineConfig
	metrics   *telemetry.QueryMetrics
	results   cache.ResultCache
	mu        sync.RWMutex
}

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithMetrics sets an optional query metrics collector.
func WithMetrics(m *telemetry.QueryMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithResultCache sets the search-result cache that fronts catalog-search
// and chunk-search: a repeated (query, limit, category filter) tuple is
// served from cache instead of re-running vector search and BM25 scoring.
// Concept-search and debug-mode queries never go through the cache (a
// debug payload carries per-component scores a non-debug hit must not see).
func WithResultCache(rc cache.ResultCache) EngineOption {
	return func(e *Engine) { e.results = rc }
}

// WithExpander overrides the default query expander, mainly for tests that
// need a deterministic WordNet/corpus source.
func WithExpander(exp *QueryExpander) EngineOption {
	return func(e *Engine) { e.expander = exp }
}

// NewEngine creates a hybrid search engine. Returns an error if any required
// dependency is nil, validating eagerly in the constructor rather than
// failing later on first use.
func NewEngine(
	documents store.Collection[store.Document],
	chunks store.Collection[store.Chunk],
	concepts store.Collection[store.Concept],
	embedder embed.Embedder,
	wordnetSrc wordnet.Source,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if documents == nil {
		return nil, fmt.Errorf("%w: document collection is required", ErrNilDependency)
	}
	if chunks == nil {
		return nil, fmt.Errorf("%w: chunk collection is required", ErrNilDependency)
	}
	if concepts == nil {
		return nil, fmt.Errorf("%w: concept collection is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if wordnetSrc == nil {
		wordnetSrc = wordnet.DefaultSource()
	}
	e := &Engine{
		documents: documents,
		chunks:    chunks,
		concepts:  concepts,
		embedder:  embedder,
		config:    config,
		fusion:    NewFusion(config.Weights),
		expander:  NewQueryExpander(wordnetSrc, config),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) applyDefaults(opts SearchOptions) SearchOptions {
	if opts.Limit <= 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit > e.config.MaxLimit {
		opts.Limit = e.config.MaxLimit
	}
	return opts
}

// RelatedConceptNames implements ConceptLookup: step 2's "look it up in the
// concept collection" corpus expansion, via a name-containment filter
// rather than a vector lookup (concept names are short phrases; a
// containment filter finds a term's corpus concept family directly).
func (e *Engine) RelatedConceptNames(ctx context.Context, term string, limit int) []string {
	matches, err := e.concepts.FilterQuery(ctx, store.FilterSet{store.Contains("name", term)}, limit)
	if err != nil {
		slog.Warn("concept_lookup_failed", slog.String("term", term), slog.String("error", err.Error()))
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, c := range matches {
		names = append(names, c.Name)
	}
	return names
}

// CatalogSearch runs the five-signal ranking pipeline against the document
// collection, emphasizing title_score since documents are title-rich text.
func (e *Engine) CatalogSearch(ctx context.Context, query string, opts SearchOptions) ([]Result[store.Document], error) {
	return runSearch(ctx, e, e.documents, string(OpCatalogSearch), query, opts,
		func(d store.Document) string {
			return d.Summary + " " + strings.Join(d.PrimaryConcepts, " ") + " " + strings.Join(d.TechnicalTerms, " ")
		},
		func(d store.Document) []string {
			return append(append([]string{}, d.PrimaryConcepts...), d.TechnicalTerms...)
		},
		func(_ context.Context, _ []store.VectorRow[store.Document]) func(store.Document) string {
			return func(d store.Document) string { return d.Title + " " + d.Source }
		},
	)
}

// ChunkSearch runs the same pipeline against the chunk collection. A
// chunk's title signal is derived from its parent document's title,
// resolved via one batched lookup over the candidate pool's distinct
// catalog ids rather than per-row queries.
func (e *Engine) ChunkSearch(ctx context.Context, query string, opts SearchOptions) ([]Result[store.Chunk], error) {
	return runSearch(ctx, e, e.chunks, string(OpChunkSearch), query, opts,
		func(c store.Chunk) string { return c.Text },
		func(c store.Chunk) []string { return c.Concepts },
		e.chunkTitleResolver,
	)
}

func (e *Engine) chunkTitleResolver(ctx context.Context, hits []store.VectorRow[store.Chunk]) func(store.Chunk) string {
	seen := make(map[uint64]bool, len(hits))
	ids := make([]uint64, 0, len(hits))
	for _, h := range hits {
		if id := h.Item.CatalogID; !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	titles := make(map[uint64]string, len(ids))
	if len(ids) > 0 {
		docs, err := e.documents.FilterQuery(ctx, store.FilterSet{store.In("id", ids)}, len(ids))
		if err != nil {
			slog.Warn("chunk_title_resolve_failed", slog.String("error", err.Error()))
		}
		for _, d := range docs {
			titles[d.ID] = d.Title
		}
	}
	return func(c store.Chunk) string { return titles[c.CatalogID] }
}

// runSearch is the shared five-signal pipeline for catalog-search and
// chunk-search: the two variants differ only in their
// text/concept/title field sources, which their callers supply.
func runSearch[T store.Identifiable](
	ctx context.Context,
	e *Engine,
	col store.Collection[T],
	op string,
	query string,
	opts SearchOptions,
	textOf func(T) string,
	conceptsOf func(T) []string,
	prepareTitle func(context.Context, []store.VectorRow[T]) func(T) string,
) ([]Result[T], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	opts = e.applyDefaults(opts)
	start := time.Now()

	cacheable := e.results != nil && !opts.Debug
	filtersHash := op + "\x00" + categoryFilterHash(opts.CategoryIDs)
	if cacheable {
		if payload, hit := e.results.Get(ctx, query, opts.Limit, filtersHash); hit {
			var cached []Result[T]
			if err := cache.DecodeResults(payload, &cached); err == nil {
				e.recordMetrics(query, len(cached), time.Since(start))
				return cached, nil
			}
		}
	}

	queryEmbedding, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	expansion := e.expander.Expand(ctx, query, e)

	candidateLimit := opts.Limit * e.config.CandidateMultiple
	if count, err := col.Count(ctx); err == nil && count > 0 && count <= e.config.FullScanThreshold {
		candidateLimit = count
	}

	hits, err := col.VectorSearch(ctx, queryEmbedding, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	titleOf := prepareTitle(ctx, hits)

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = textOf(h.Item)
	}
	scorer := NewBM25Scorer(texts)

	results := make([]Result[T], len(hits))
	for i, h := range hits {
		item := h.Item
		scores := ComponentScores{
			Vector:  vectorScoreFromDistance(h.Distance),
			BM25:    NormalizedScore(scorer.RawScore(i, expansion.Terms), e.config.BM25NormConstant),
			Title:   titleScore(titleOf(item), expansion.OriginalTerms),
			Concept: conceptScore(expansion.Terms, conceptsOf(item), len(expansion.OriginalTerms)),
			WordNet: wordnetScore(expansion.Terms, texts[i]),
		}
		results[i] = Result[T]{Item: item, ID: item.RowID(), Scores: scores, Expansion: expansion}
	}

	ranked := Rank(e.fusion, results)
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	suppressDebugFields(ranked, opts.Debug)

	if cacheable {
		if payload, err := cache.EncodeResults(ranked); err == nil {
			e.results.Put(ctx, query, opts.Limit, filtersHash, payload)
		}
	}

	e.recordMetrics(query, len(ranked), time.Since(start))
	return ranked, nil
}

// categoryFilterHash folds a category-id filter into the result cache's key
// space so a filtered and unfiltered query for the same text never collide.
func categoryFilterHash(ids []uint64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// ConceptSearch implements the mandatory concept-search correctness rule:
// resolve the concept by name (exact, then fuzzy, then vector as a
// last resort), filter chunks by string containment of the concept's
// canonical name, and rank by concept_density desc then vector similarity
// to the query — never by concept-embedding-to-chunk-embedding similarity.
func (e *Engine) ConceptSearch(ctx context.Context, query string, opts SearchOptions) ([]Result[store.Chunk], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	opts = e.applyDefaults(opts)

	normalized := store.NormalizeConceptName(query)
	concept, err := e.resolveConcept(ctx, query, normalized)
	if err != nil {
		return nil, fmt.Errorf("resolve concept: %w", err)
	}
	if concept == nil {
		return nil, nil
	}

	matches, err := e.chunks.FilterQuery(ctx, store.FilterSet{store.Contains("concepts", concept.Name)}, defaultConceptChunkScanLimit)
	if err != nil {
		return nil, fmt.Errorf("filter chunks by concept: %w", err)
	}

	// Vector re-rank is secondary and optional: chunks fetched via
	// FilterQuery don't carry their embedding on the local backend (it
	// lives only in the vector index there), so this only activates when
	// Embedding is populated — e.g. the Postgres backend, where embeddings
	// live in the same row. Absent that, ranking still satisfies the
	// mandatory rule: filter first, then concept_density desc.
	queryEmbedding, _ := e.embedder.Embed(ctx, query)

	results := make([]Result[store.Chunk], len(matches))
	for i, c := range matches {
		vecScore := 0.0
		if len(queryEmbedding) > 0 && len(c.Embedding) > 0 {
			vecScore = Clamp01(cosineSimilarity(queryEmbedding, c.Embedding))
		}
		results[i] = Result[store.Chunk]{
			Item: c,
			ID:   c.ID,
			Scores: ComponentScores{
				Concept: float64(c.ConceptDensity),
				Vector:  vecScore,
			},
		}
	}

	sortByConceptDensityThenVector(results)
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	suppressDebugFields(results, opts.Debug)
	return results, nil
}

func sortByConceptDensityThenVector(results []Result[store.Chunk]) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && less(results[j], results[j-1]); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

func less(a, b Result[store.Chunk]) bool {
	if a.Scores.Concept != b.Scores.Concept {
		return a.Scores.Concept > b.Scores.Concept
	}
	if a.Scores.Vector != b.Scores.Vector {
		return a.Scores.Vector > b.Scores.Vector
	}
	return a.ID < b.ID
}

// resolveConcept finds a concept by exact normalized name, then by
// name-containment, and only falls back to vector search over concept
// embeddings when neither text match succeeds.
func (e *Engine) resolveConcept(ctx context.Context, rawQuery, normalizedName string) (*store.Concept, error) {
	exact, err := e.concepts.FilterQuery(ctx, store.FilterSet{store.Eq("name", normalizedName)}, 1)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return &exact[0], nil
	}

	fuzzy, err := e.concepts.FilterQuery(ctx, store.FilterSet{store.Contains("name", normalizedName)}, 1)
	if err != nil {
		return nil, err
	}
	if len(fuzzy) > 0 {
		return &fuzzy[0], nil
	}

	emb, err := e.embedder.Embed(ctx, rawQuery)
	if err != nil {
		return nil, nil //nolint:nilerr // embedding failure here just means no vector fallback, not a search failure
	}
	hits, err := e.concepts.VectorSearch(ctx, emb, 1)
	if err != nil || len(hits) == 0 {
		return nil, nil
	}
	return &hits[0].Item, nil
}

// suppressDebugFields clears per-component scores and full expansion detail
// unless the caller asked for debug output: the hybrid score and
// original-term list are always present.
func suppressDebugFields[T any](results []Result[T], debug bool) {
	if debug {
		return
	}
	for i := range results {
		results[i].Scores = ComponentScores{}
		results[i].Expansion = Expansion{OriginalTerms: results[i].Expansion.OriginalTerms}
	}
}

func (e *Engine) recordMetrics(query string, resultCount int, latency time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(telemetry.QueryEvent{
		Query:       query,
		QueryType:   telemetry.QueryTypeMixed,
		ResultCount: resultCount,
		Latency:     latency,
		Timestamp:   time.Now(),
	})
}

// Close releases the engine's underlying collections.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, c := range []interface{ Close() error }{e.documents, e.chunks, e.concepts} {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
