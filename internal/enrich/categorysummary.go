package enrich

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/resilience"
	"github.com/conceptrag/core/internal/store"
)

const categorySummarySystemPrompt = `Write a two-sentence summary of the academic/conceptual domain named below, suitable as a search-result description. Return only the summary text.`

// CategorySummarizer fills in summaries for newly seen categories only,
// reusing cached summaries for categories already present from a prior
// seeding run — this avoids the vast majority of LLM calls on incremental
// runs, where most categories already exist.
type CategorySummarizer struct {
	Completer Completer
	Executor  *resilience.Executor
}

func NewCategorySummarizer(completer Completer, executor *resilience.Executor) *CategorySummarizer {
	if executor != nil {
		executor.Register("llm.summarize_category", resilience.LLMAPIProfile())
	}
	return &CategorySummarizer{Completer: completer, Executor: executor}
}

// Summarize takes the existing name→summary cache and the full set of
// category names observed in the current pass, and returns the merged
// map with summaries filled in only for names missing from the cache.
func (s *CategorySummarizer) Summarize(ctx context.Context, cached map[string]string, observed []string) (map[string]string, error) {
	merged := make(map[string]string, len(cached)+len(observed))
	for name, summary := range cached {
		merged[name] = summary
	}

	for _, name := range observed {
		key := foldKey(name)
		if _, ok := merged[key]; ok {
			continue
		}

		summary, err := s.summarizeOne(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("summarize category %q: %w", name, err)
		}
		merged[key] = summary
	}

	return merged, nil
}

func (s *CategorySummarizer) summarizeOne(ctx context.Context, name string) (string, error) {
	call := func(ctx context.Context) (string, error) {
		text, _, err := s.Completer.Complete(ctx, categorySummarySystemPrompt, name)
		return text, err
	}
	if s.Executor == nil {
		return call(ctx)
	}
	return resilience.Execute(ctx, s.Executor, "llm.summarize_category", call)
}

// LoadCachedSummaries reads existing category rows into a name→summary map
// before the fresh extraction pass runs, per the incremental rule.
func LoadCachedSummaries(ctx context.Context, categories store.Collection[store.Category]) (map[string]string, error) {
	rows, err := categories.FilterQuery(ctx, nil, noLimit)
	if err != nil {
		return nil, err
	}
	cached := make(map[string]string, len(rows))
	for _, c := range rows {
		cached[foldKey(c.Name)] = c.Summary
	}
	return cached, nil
}
