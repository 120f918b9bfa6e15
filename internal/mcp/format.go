package mcp

import (
	"fmt"
	"strings"

	"github.com/conceptrag/core/internal/enrich"
)

// clampLimit ensures limit falls within [min, max], substituting defaultVal
// for a non-positive limit.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}

// RenderConceptRecordMarkdown renders one extraction result as markdown, the
// "format": "markdown" alternative to extract_concepts' structured JSON.
func RenderConceptRecordMarkdown(source string, record enrich.ConceptRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Extracted concepts: %s\n\n", source)

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&sb, "### %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&sb, "- %s\n", item)
		}
		sb.WriteString("\n")
	}

	writeList("Primary concepts", record.PrimaryConcepts)
	writeList("Technical terms", record.TechnicalTerms)
	writeList("Acronyms", record.Acronyms)
	writeList("Categories", record.Categories)
	writeList("Related concepts", record.RelatedConcepts)

	if record.Model != "" {
		fmt.Fprintf(&sb, "_extracted by %s_\n", record.Model)
	}

	return sb.String()
}
