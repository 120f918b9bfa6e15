package search

import (
	"math"
	"regexp"
	"strings"
)

// vectorScoreFromDistance converts a vector-index distance into vector_score.
// The index normalizes every vector for cosine distance (store.VectorIndex),
// whose range is [0,2] with 0 meaning identical; halving and inverting maps
// it onto [0,1], equivalent to `1 - cos_distance(...)`.
func vectorScoreFromDistance(distance float32) float64 {
	return Clamp01(1 - float64(distance)/2)
}

// cosineSimilarity is used where a raw distance isn't available (the
// concept-search secondary vector re-rank, which compares two already-
// materialized embeddings directly rather than consulting the index).
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// titleScore is title_score: the fraction of original query terms appearing
// word-boundary-aware in the title/source field, with a +0.25 bonus when
// every term is present.
func titleScore(title string, originalTerms []string) float64 {
	if len(originalTerms) == 0 {
		return 0
	}
	lowerTitle := strings.ToLower(title)
	matched := 0
	for _, t := range originalTerms {
		if wordBoundaryContains(lowerTitle, strings.ToLower(t)) {
			matched++
		}
	}
	score := float64(matched) / float64(len(originalTerms))
	if matched == len(originalTerms) {
		score += 0.25
	}
	return Clamp01(score)
}

func wordBoundaryContains(haystack, term string) bool {
	if term == "" {
		return false
	}
	pattern := `\b` + regexp.QuoteMeta(term) + `\b`
	re, err := regexp.Compile(pattern)
	if err != nil {
		return strings.Contains(haystack, term)
	}
	return re.MatchString(haystack)
}

// conceptScore is the Jaccard-like concept_score:
// |expanded_terms ∩ row.concepts| / max(1, |original_terms|).
func conceptScore(expanded []ExpandedTerm, rowConcepts []string, originalCount int) float64 {
	if originalCount == 0 {
		originalCount = 1
	}
	rowSet := make(map[string]bool, len(rowConcepts))
	for _, c := range rowConcepts {
		rowSet[strings.ToLower(c)] = true
	}
	intersection := 0
	seen := make(map[string]bool, len(expanded))
	for _, t := range expanded {
		lower := strings.ToLower(t.Term)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		if rowSet[lower] {
			intersection++
		}
	}
	return Clamp01(float64(intersection) / float64(originalCount))
}

// wordnetScore is wordnet_score: the fraction of WordNet-added terms
// (synonym or hypernym source) that appear in the row's text.
func wordnetScore(expanded []ExpandedTerm, text string) float64 {
	lowerText := strings.ToLower(text)
	var wnTerms []ExpandedTerm
	for _, t := range expanded {
		if t.Source == "synonym" || t.Source == "hypernym" {
			wnTerms = append(wnTerms, t)
		}
	}
	if len(wnTerms) == 0 {
		return 0
	}
	present := 0
	for _, t := range wnTerms {
		if strings.Contains(lowerText, strings.ToLower(t.Term)) {
			present++
		}
	}
	return Clamp01(float64(present) / float64(len(wnTerms)))
}
