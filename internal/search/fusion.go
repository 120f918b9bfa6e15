package search

import "sort"

// Fusion combines the five per-result signals into one hybrid score using a
// fixed weighted linear sum in place of Reciprocal Rank Fusion — there is
// no rank-based smoothing constant here, just a weight vector applied
// directly to normalized [0,1] signals.
type Fusion struct {
	Weights Weights
}

// NewFusion creates a Fusion with the given weight vector. A zero Weights
// falls back to DefaultWeights.
func NewFusion(w Weights) *Fusion {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Fusion{Weights: w}
}

// Score computes the hybrid score for one set of component signals.
func (f *Fusion) Score(s ComponentScores) float64 {
	return f.Weights.Vector*s.Vector +
		f.Weights.BM25*s.BM25 +
		f.Weights.Title*s.Title +
		f.Weights.Concept*s.Concept +
		f.Weights.WordNet*s.WordNet
}

// Rank scores every candidate, sorts by the step-5 tie-break cascade
// (hybrid desc → concept_score desc → vector_score desc → id asc), and
// returns the full sorted slice — callers truncate to k themselves.
func Rank[T any](f *Fusion, candidates []Result[T]) []Result[T] {
	for i := range candidates {
		candidates[i].Hybrid = f.Score(candidates[i].Scores)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return compare(candidates[i], candidates[j])
	})
	return candidates
}

// compare implements the deterministic tie-break chain.
func compare[T any](a, b Result[T]) bool {
	if a.Hybrid != b.Hybrid {
		return a.Hybrid > b.Hybrid
	}
	if a.Scores.Concept != b.Scores.Concept {
		return a.Scores.Concept > b.Scores.Concept
	}
	if a.Scores.Vector != b.Scores.Vector {
		return a.Scores.Vector > b.Scores.Vector
	}
	return a.ID < b.ID
}

// Clamp01 restricts x to the [0,1] range, used by the signal computations
// before their values are handed to Fusion.Score.
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
