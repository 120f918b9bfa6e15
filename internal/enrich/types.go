// Package enrich implements the seeding-time concept extraction pipeline:
// a shared rate limiter in front of the LLM, a bounded worker pool running
// extraction tasks concurrently, chunk-to-concept matching, concept index
// construction, incremental category summarization, and a resumable
// checkpoint — using the same background-worker and progress-tracking
// shapes as internal/async, generalized from single-pass code indexing to
// multi-stage document enrichment.
package enrich

import "time"

// ConceptRecord is the structured output of one extraction call, per the
// taxonomy rule: primary_concepts are ideas the document is about,
// technical_terms are named references, acronyms are abbreviated
// terminology, categories are coarse domain labels, related_concepts are
// adjacent ideas worth indexing but not central.
type ConceptRecord struct {
	PrimaryConcepts []string `json:"primary_concepts"`
	TechnicalTerms  []string `json:"technical_terms"`
	Acronyms        []string `json:"acronyms"`
	Categories      []string `json:"categories"`
	RelatedConcepts []string `json:"related_concepts"`

	// Prompt and Model record exactly what produced this record, since LLM
	// output is the one non-deterministic input to an otherwise
	// reproducible pipeline.
	Prompt string
	Model  string
}

// Merge unions two records' string lists by case-insensitive name,
// preserving the first-seen casing — used when an oversized document is
// chunked and each chunk's extraction is folded back into one record.
func (r ConceptRecord) Merge(other ConceptRecord) ConceptRecord {
	return ConceptRecord{
		PrimaryConcepts: unionFold(r.PrimaryConcepts, other.PrimaryConcepts),
		TechnicalTerms:  unionFold(r.TechnicalTerms, other.TechnicalTerms),
		Acronyms:        unionFold(r.Acronyms, other.Acronyms),
		Categories:      unionFold(r.Categories, other.Categories),
		RelatedConcepts: unionFold(r.RelatedConcepts, other.RelatedConcepts),
		Prompt:          r.Prompt,
		Model:           r.Model,
	}
}

func unionFold(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			key := foldKey(s)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// ExtractionInput is one document queued for concept extraction.
type ExtractionInput struct {
	Source      string
	ContentHash string
	Text        string
}

// ExtractionOutput is one task's result: exactly one of Concepts/Err is set.
type ExtractionOutput struct {
	Source  string
	Hash    string
	Concepts ConceptRecord
	Err     error
}

// ProgressFunc reports worker pool progress as tasks complete.
type ProgressFunc func(completed, total int, currentSource string)

// Checkpoint is the pipeline's resumable state, flushed after each batch
// of worker completions rather than per document.
type Checkpoint struct {
	ProcessedHashes map[string]bool        `json:"processed_hashes"`
	FailedHashes    []FailedHash           `json:"failed_hashes"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

type FailedHash struct {
	Hash       string `json:"hash"`
	Source     string `json:"source"`
	Error      string `json:"error"`
	RetryCount int    `json:"retry_count"`
}
