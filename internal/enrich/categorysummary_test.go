package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorySummarizer_Summarize_OnlyCallsLLMForNewCategories(t *testing.T) {
	// Given: one category already cached, one newly observed
	completer := &fakeCompleter{responses: []string{"a two sentence summary."}}
	summarizer := NewCategorySummarizer(completer, nil)
	cached := map[string]string{"evolutionary biology": "existing summary."}

	// When: summarizing the observed set
	merged, err := summarizer.Summarize(context.Background(), cached, []string{"Evolutionary Biology", "Network Theory"})

	// Then: the cached category is untouched and only the new one calls the LLM
	require.NoError(t, err)
	assert.Equal(t, "existing summary.", merged["evolutionary biology"])
	assert.Equal(t, "a two sentence summary.", merged["network theory"])
	assert.Equal(t, 1, completer.calls)
}
