package store

import (
	"regexp"
	"strings"
)

// tokenRegex matches alphanumeric runs, the first split applied before any
// further tokenization processing.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

// TokenizeProse normalizes query and document text: lowercase, split on
// non-alphanumeric, and drop tokens of length ≤ 2.
// Stop-word filtering is a separate step (FilterStopWords) so callers that
// need the raw token list (e.g. logging original order) can skip it.
func TokenizeProse(text string) []string {
	words := tokenRegex.FindAllString(text, -1)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		if len(lower) > 2 {
			tokens = append(tokens, lower)
		}
	}
	return tokens
}

// DefaultStopWords is the standard English stop-list query normalization
// drops, per §4.4 step 1.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "if", "then", "else", "for", "of",
	"to", "in", "on", "at", "by", "with", "from", "as", "is", "are", "was",
	"were", "be", "been", "being", "this", "that", "these", "those", "it",
	"its", "into", "about", "than", "over", "under", "out", "not", "can",
	"will", "would", "should", "could", "may", "might", "must", "do", "does",
	"did", "has", "have", "had", "you", "your", "our", "their", "his", "her",
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if _, isStop := stopWords[lower]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
