package enrich

import "strings"

// foldKey is the case-insensitive, whitespace-trimmed identity used
// everywhere concept names are deduplicated or merged across chunks,
// documents, and re-enrichment passes.
func foldKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
