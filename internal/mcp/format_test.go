package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conceptrag/core/internal/enrich"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name       string
		limit      int
		defaultVal int
		min        int
		max        int
		want       int
	}{
		{"zero uses default", 0, 10, 1, 50, 10},
		{"negative uses default", -5, 10, 1, 50, 10},
		{"below min clamps to min", 2, 10, 5, 50, 5},
		{"above max clamps to max", 100, 10, 1, 50, 50},
		{"valid value unchanged", 25, 10, 1, 50, 25},
		{"at min boundary", 1, 10, 1, 50, 1},
		{"at max boundary", 50, 10, 1, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampLimit(tt.limit, tt.defaultVal, tt.min, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRenderConceptRecordMarkdown_IncludesAllSections(t *testing.T) {
	// Given: a fully populated concept record
	record := enrich.ConceptRecord{
		PrimaryConcepts: []string{"exaptation"},
		TechnicalTerms:  []string{"bootstrapping"},
		Acronyms:        []string{"DNA"},
		Categories:      []string{"evolutionary-biology"},
		RelatedConcepts: []string{"natural selection"},
		Model:           "claude-test",
	}

	// When: rendering as markdown
	markdown := RenderConceptRecordMarkdown("book-1", record)

	// Then: every section and the source/model footer appear
	assert.Contains(t, markdown, "book-1")
	assert.Contains(t, markdown, "### Primary concepts")
	assert.Contains(t, markdown, "- exaptation")
	assert.Contains(t, markdown, "### Technical terms")
	assert.Contains(t, markdown, "- bootstrapping")
	assert.Contains(t, markdown, "### Acronyms")
	assert.Contains(t, markdown, "- DNA")
	assert.Contains(t, markdown, "### Categories")
	assert.Contains(t, markdown, "- evolutionary-biology")
	assert.Contains(t, markdown, "### Related concepts")
	assert.Contains(t, markdown, "- natural selection")
	assert.Contains(t, markdown, "_extracted by claude-test_")
}

func TestRenderConceptRecordMarkdown_OmitsEmptySections(t *testing.T) {
	// Given: a record with only primary concepts populated
	record := enrich.ConceptRecord{PrimaryConcepts: []string{"gravity"}}

	// When: rendering as markdown
	markdown := RenderConceptRecordMarkdown("book-2", record)

	// Then: empty sections are not rendered
	assert.Contains(t, markdown, "### Primary concepts")
	assert.NotContains(t, markdown, "### Technical terms")
	assert.NotContains(t, markdown, "### Acronyms")
	assert.NotContains(t, markdown, "### Categories")
	assert.NotContains(t, markdown, "### Related concepts")
}

func TestRenderConceptRecordMarkdown_OmitsModelFooterWhenAbsent(t *testing.T) {
	// Given: a record with no model recorded
	record := enrich.ConceptRecord{PrimaryConcepts: []string{"gravity"}}

	// When: rendering as markdown
	markdown := RenderConceptRecordMarkdown("book-2", record)

	// Then: no "extracted by" footer appears
	assert.NotContains(t, markdown, "_extracted by")
}
