package search

import (
	"math"

	"github.com/conceptrag/core/internal/store"
)

// BM25Scorer is a hand-rolled Okapi BM25 implementation over an in-memory
// candidate set, tokenized with store/tokenizer.go. It is
// hand-rolled rather than delegated to a library scorer (e.g. bleve's)
// because ranking requires per-expansion-term weighted contributions —
// `score += weight_i * bm25_term_i` — that a black-box scorer cannot expose
// per term.
//
// Corpus statistics (document frequency, average length) are computed over
// the candidate pool handed to it, not the whole collection: the storage
// layer is explicitly rank-agnostic ("does not rank"), so maintaining a
// separate full-corpus inverted index here would duplicate what
// vector_search/filter_query already narrow down to a top-M pool before
// BM25 ever runs.
type BM25Scorer struct {
	k1, b     float64
	docTokens [][]string
	docFreq   map[string]int
	avgLen    float64
}

const (
	defaultK1 = 1.2
	defaultB  = 0.75
)

// NewBM25Scorer tokenizes each candidate text and builds the document
// frequency table and average length needed for IDF/length-normalization.
func NewBM25Scorer(texts []string) *BM25Scorer {
	s := &BM25Scorer{k1: defaultK1, b: defaultB, docFreq: make(map[string]int)}
	s.docTokens = make([][]string, len(texts))
	total := 0
	for i, text := range texts {
		tokens := store.TokenizeProse(text)
		s.docTokens[i] = tokens
		total += len(tokens)
		seen := make(map[string]bool, len(tokens))
		for _, tok := range tokens {
			if !seen[tok] {
				s.docFreq[tok]++
				seen[tok] = true
			}
		}
	}
	if len(texts) > 0 {
		s.avgLen = float64(total) / float64(len(texts))
	}
	return s
}

// idf computes the standard BM25+ε inverse document frequency for a term.
func (s *BM25Scorer) idf(term string) float64 {
	n := float64(len(s.docTokens))
	df := float64(s.docFreq[term])
	v := math.Log((n-df+0.5)/(df+0.5) + 1)
	if v < 0 {
		return 0
	}
	return v
}

func (s *BM25Scorer) termFreq(docIndex int, term string) int {
	count := 0
	for _, tok := range s.docTokens[docIndex] {
		if tok == term {
			count++
		}
	}
	return count
}

// RawScore computes the expansion-weighted BM25 sum for one candidate:
// raw = Σ weight_term · IDF(term) · TF-saturation(term, doc).
func (s *BM25Scorer) RawScore(docIndex int, terms []ExpandedTerm) float64 {
	if docIndex < 0 || docIndex >= len(s.docTokens) {
		return 0
	}
	docLen := float64(len(s.docTokens[docIndex]))
	avg := s.avgLen
	if avg == 0 {
		avg = 1
	}
	var raw float64
	for _, t := range terms {
		tf := float64(s.termFreq(docIndex, t.Term))
		if tf == 0 {
			continue
		}
		numerator := tf * (s.k1 + 1)
		denominator := tf + s.k1*(1-s.b+s.b*docLen/avg)
		raw += t.Weight * s.idf(t.Term) * (numerator / denominator)
	}
	return raw
}

// NormalizedScore applies tanh(bm25_raw / b) normalization to bring the raw
// BM25 sum into [0,1).
func NormalizedScore(raw, normConstant float64) float64 {
	if normConstant <= 0 {
		normConstant = DefaultConfig().BM25NormConstant
	}
	return math.Tanh(raw / normConstant)
}
