package enrich

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/store"
)

// EnrichDocumentChunks rematches every chunk of one document against that
// document's concept set (primary_concepts + related_concepts, the
// candidates a chunk can plausibly contain) and writes the updated
// Concepts/ConceptDensity back. Re-enrichment may run without re-embedding
// — this never touches a chunk's Embedding field.
func EnrichDocumentChunks(ctx context.Context, chunks store.Collection[store.Chunk], catalogID uint64, candidates []string) error {
	rows, err := chunks.FilterQuery(ctx, store.FilterSet{store.Eq("catalog_id", catalogID)}, noLimit)
	if err != nil {
		return fmt.Errorf("load chunks for document %d: %w", catalogID, err)
	}
	if len(rows) == 0 {
		return nil
	}

	updated := make([]store.Chunk, len(rows))
	for i, chunk := range rows {
		matched, density := MatchChunkConcepts(chunk.Text, candidates)
		chunk.Concepts = matched
		chunk.ConceptDensity = density
		updated[i] = chunk
	}

	return chunks.BatchUpsert(ctx, updated)
}
