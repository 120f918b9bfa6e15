package enrich

import (
	"strings"
	"unicode"
)

// minFuzzyLength is the floor below which fuzzy matching is disabled —
// short candidate strings produce too many false positives under an
// edit-distance ratio.
const minFuzzyLength = 4

// fuzzyRatioThreshold is the minimum Levenshtein-ratio (1 - distance/maxLen)
// for a fuzzy match to count.
const fuzzyRatioThreshold = 0.7

// MatchChunkConcepts matches each candidate concept name from the parent
// document's concept set against one chunk's text, in a fixed rule order:
// exact substring, then all-words-present, then word-boundary, then fuzzy.
// The first rule that matches wins for a given candidate; concept_density
// is matched / len(candidates).
func MatchChunkConcepts(chunkText string, candidates []string) (matched []string, density float32) {
	lowerText := strings.ToLower(chunkText)
	words := tokenizeWords(lowerText)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	for _, candidate := range candidates {
		if matchesCandidate(candidate, lowerText, wordSet) {
			matched = append(matched, candidate)
		}
	}

	if len(candidates) == 0 {
		return matched, 0
	}
	return matched, float32(len(matched)) / float32(len(candidates))
}

func matchesCandidate(candidate, lowerText string, wordSet map[string]bool) bool {
	lowerCandidate := strings.ToLower(strings.TrimSpace(candidate))
	if lowerCandidate == "" {
		return false
	}

	// 1. Exact case-insensitive substring.
	if strings.Contains(lowerText, lowerCandidate) {
		return true
	}

	// 2. All-words-present (order-free) for multi-word concepts.
	candidateWords := tokenizeWords(lowerCandidate)
	if len(candidateWords) > 1 {
		allPresent := true
		for _, cw := range candidateWords {
			if !wordSet[cw] {
				allPresent = false
				break
			}
		}
		if allPresent {
			return true
		}
	}

	// 3. Word-boundary match (no mid-word partials) — redundant with (1)
	// for substrings already found, catches single-token candidates that
	// failed the pure-substring test only because of surrounding
	// punctuation normalization.
	if len(candidateWords) == 1 && wordSet[candidateWords[0]] {
		return true
	}

	// 4. Fuzzy match when long enough and close enough.
	if len(lowerCandidate) >= minFuzzyLength {
		for word := range wordSet {
			if len(word) < minFuzzyLength {
				continue
			}
			if fuzzyRatio(lowerCandidate, word) >= fuzzyRatioThreshold {
				return true
			}
		}
	}

	return false
}

func tokenizeWords(text string) []string {
	var words []string
	var current strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

// fuzzyRatio computes 1 - levenshteinDistance/max(len(a),len(b)), the
// standard similarity-ratio normalization of edit distance. Hand-rolled:
// no Levenshtein library appears in any example go.mod, so this is a
// justified standard-library implementation rather than an ecosystem pick.
func fuzzyRatio(a, b string) float64 {
	dist := levenshteinDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(dist)/float64(maxLen)
}

func levenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
