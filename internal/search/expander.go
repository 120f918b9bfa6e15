package search

import (
	"context"
	"strings"

	"github.com/conceptrag/core/internal/cache"
	"github.com/conceptrag/core/internal/store"
	"github.com/conceptrag/core/internal/wordnet"
)

const (
	wordnetRelationSynonym  = "synonym"
	wordnetRelationHypernym = "hypernym"
)

// ConceptLookup resolves corpus-concept names related to a query term, used
// by step 2's "look it up in the concept collection" expansion. The engine
// satisfies this by wrapping its concept collection; kept as a narrow
// interface here so expander.go has no direct store.Collection dependency.
type ConceptLookup interface {
	RelatedConceptNames(ctx context.Context, term string, limit int) []string
}

// QueryExpander builds the weighted expansion term set for a query: the
// same tokenize/dedupe/option shape as a code-synonym expander, generalized
// from code-casing variants to corpus-concept and WordNet-sourced terms.
type QueryExpander struct {
	wordnetSrc   wordnet.Source
	wordnetCache *cache.WordNetCache
	stopWords    map[string]struct{}
	config       EngineConfig
}

// NewQueryExpander creates an expander using the given WordNet-equivalent
// source and engine configuration (expansion counts, term cap). Synonym
// and hypernym lookups are memoized in a WordNetCache: a WordNet source
// backed by a flat file or a network lookup should not be re-read for
// every query that repeats a term.
func NewQueryExpander(src wordnet.Source, cfg EngineConfig) *QueryExpander {
	return &QueryExpander{
		wordnetSrc:   src,
		wordnetCache: cache.NewWordNetCache(cache.DefaultEmbeddingCacheSize),
		stopWords:    store.BuildStopWordMap(store.DefaultStopWords),
		config:       cfg,
	}
}

// Expand produces the weighted expansion record for a query. concepts may
// be nil, in which case step 2's corpus-concept addition is skipped.
func (e *QueryExpander) Expand(ctx context.Context, query string, concepts ConceptLookup) Expansion {
	original := store.FilterStopWords(store.TokenizeProse(query), e.stopWords)

	seen := make(map[string]bool, len(original)*4)
	terms := make([]ExpandedTerm, 0, len(original)*4)

	add := func(term string, weight float64, source string) bool {
		lower := strings.ToLower(term)
		if seen[lower] || lower == "" {
			return false
		}
		seen[lower] = true
		terms = append(terms, ExpandedTerm{Term: term, Weight: weight, Source: source})
		return true
	}

	// Original terms, weight 1.0.
	for _, t := range original {
		add(t, 1.0, "original")
	}

	// Corpus-concept terms, weight 0.8, up to N_corpus per original term.
	if concepts != nil {
		for _, t := range original {
			related := concepts.RelatedConceptNames(ctx, t, e.config.CorpusExpansionTerms)
			for _, r := range related {
				add(r, 0.8, "corpus")
			}
		}
	}

	// WordNet synonyms (0.6), up to SynonymExpansionTerms per term, and
	// hypernyms (0.4), up to HypernymExpansionTerms per term.
	for _, t := range original {
		synonyms, hypernyms, ok := e.lookupWordNet(t)
		if !ok {
			continue
		}
		added := 0
		for _, syn := range synonyms {
			if added >= e.config.SynonymExpansionTerms {
				break
			}
			if add(syn, 0.6, wordnetRelationSynonym) {
				added++
			}
		}
		added = 0
		for _, hyp := range hypernyms {
			if added >= e.config.HypernymExpansionTerms {
				break
			}
			if add(hyp, 0.4, wordnetRelationHypernym) {
				added++
			}
		}
	}

	limit := e.config.MaxExpandedTerms
	if limit <= 0 {
		limit = DefaultConfig().MaxExpandedTerms
	}
	if len(terms) > limit {
		terms = topWeighted(terms, limit)
	}

	return Expansion{OriginalTerms: original, Terms: terms}
}

// lookupWordNet resolves a term's synonyms and hypernyms, consulting the
// expander's cache before falling back to the underlying source.
func (e *QueryExpander) lookupWordNet(term string) (synonyms, hypernyms []string, ok bool) {
	syn, synCached := e.wordnetCache.Get(term, wordnetRelationSynonym)
	hyp, hypCached := e.wordnetCache.Get(term, wordnetRelationHypernym)
	if synCached && hypCached {
		return syn, hyp, len(syn) > 0 || len(hyp) > 0
	}

	entry, found := e.wordnetSrc.Lookup(term)
	if !found {
		e.wordnetCache.Put(term, wordnetRelationSynonym, nil)
		e.wordnetCache.Put(term, wordnetRelationHypernym, nil)
		return nil, nil, false
	}
	e.wordnetCache.Put(term, wordnetRelationSynonym, entry.Synonyms)
	e.wordnetCache.Put(term, wordnetRelationHypernym, entry.Hypernyms)
	return entry.Synonyms, entry.Hypernyms, true
}

// topWeighted keeps the limit highest-weight terms, original order among
// ties, on cap.
func topWeighted(terms []ExpandedTerm, limit int) []ExpandedTerm {
	sorted := make([]ExpandedTerm, len(terms))
	copy(sorted, terms)
	// Stable insertion keeps original relative order among equal weights
	// without pulling in sort.SliceStable for a cap this small.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Weight > sorted[j-1].Weight; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted[:limit]
}
