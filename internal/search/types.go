// Package search implements the hybrid ranking engine: query normalization,
// corpus/WordNet expansion, five-signal scoring, and fixed-weight fusion
// across the three operation variants (catalog, chunk, concept search).
package search

import (
	"time"
)

// OperationKind selects which collection a search runs against and how its
// title/concept signals are sourced.
type OperationKind string

const (
	OpCatalogSearch OperationKind = "catalog-search"
	OpChunkSearch   OperationKind = "chunk-search"
	OpConceptSearch OperationKind = "concept-search"
)

// SearchOptions configures a single ranking query.
type SearchOptions struct {
	// Limit is the maximum number of results to return.
	Limit int

	// Debug, when true, includes component scores and the full expansion
	// record in every result instead of only the hybrid score.
	Debug bool

	// CategoryIDs keys the result cache by category filter. The engine does
	// not filter results by it; callers narrow results by category themselves.
	CategoryIDs []uint64
}

// Weights is the five-signal fusion weight vector. Sums need not equal 1;
// scores are already normalized to [0,1] before weighting.
type Weights struct {
	Vector  float64
	BM25    float64
	Title   float64
	Concept float64
	WordNet float64
}

// DefaultWeights returns the fixed fusion weights.
func DefaultWeights() Weights {
	return Weights{Vector: 0.25, BM25: 0.25, Title: 0.20, Concept: 0.20, WordNet: 0.10}
}

// EngineConfig configures the search engine's defaults and tunables.
type EngineConfig struct {
	DefaultLimit int
	MaxLimit     int
	Weights      Weights

	// CandidateMultiple is the M = CandidateMultiple * k rule for the
	// top-M vector-search candidate pool.
	CandidateMultiple int
	// FullScanThreshold is the row-count ceiling below which the engine
	// scans the whole collection instead of using vector-search candidates.
	FullScanThreshold int

	// BM25NormConstant is the `b` in tanh(bm25_raw / b) normalization.
	BM25NormConstant float64

	// CorpusExpansionTerms is N_corpus, the max corpus-concept terms added
	// per original query term at weight 0.8.
	CorpusExpansionTerms int
	// SynonymExpansionTerms is N_wn, the max WordNet synonyms added per
	// term at weight 0.6.
	SynonymExpansionTerms int
	// HypernymExpansionTerms is the max hypernyms added per term at
	// weight 0.4.
	HypernymExpansionTerms int
	// MaxExpandedTerms caps the total expanded term set (default 20).
	MaxExpandedTerms int

	SearchTimeout time.Duration
}

// DefaultConfig returns the engine's default configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:           10,
		MaxLimit:               100,
		Weights:                DefaultWeights(),
		CandidateMultiple:      3,
		FullScanThreshold:      10_000,
		BM25NormConstant:       10.0,
		CorpusExpansionTerms:   5,
		SynonymExpansionTerms:  3,
		HypernymExpansionTerms: 2,
		MaxExpandedTerms:       20,
		SearchTimeout:          5 * time.Second,
	}
}

// ExpandedTerm is a single term in the weighted expansion set (step 2).
type ExpandedTerm struct {
	Term   string
	Weight float64
	// Source records why the term was added, for the debug expansion record.
	Source string // "original", "corpus", "synonym", "hypernym"
}

// Expansion is the full record of how a query was expanded, always present
// on results but only detailed (debug) when the caller asks for it.
type Expansion struct {
	OriginalTerms []string
	Terms         []ExpandedTerm
}

// ComponentScores holds the five per-result signals (step 3). Suppressed
// from API responses unless SearchOptions.Debug is set.
type ComponentScores struct {
	Vector  float64
	BM25    float64
	Title   float64
	Concept float64
	WordNet float64
}

// Result is a single scored row, generic over the underlying collection
// item (Document, Chunk, or Concept) so the same fusion/sort code serves
// all three operation variants.
type Result[T any] struct {
	Item      T
	ID        uint64
	Hybrid    float64
	Scores    ComponentScores // only meaningful when Debug was requested
	Expansion Expansion
}
