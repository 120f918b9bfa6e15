package enrich

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/store"
)

// noLimit stands in for "all matching rows" against FilterQuery, whose
// limit parameter is a literal SQL LIMIT — zero would mean zero rows.
const noLimit = 1 << 30

// DocumentExtraction pairs one document's id with its extraction record,
// the unit concept index construction folds over.
type DocumentExtraction struct {
	DocumentID uint64
	Record     ConceptRecord
}

// ConceptIndexBuilder builds the concept collection after all document
// extractions have settled: union concept names case-folded, record which
// documents each appears in, compute chunk_count via the same matcher
// chunk enrichment uses, and assign weight proportional to corpus
// frequency. Concepts embed from their name by default, or from an
// aggregation of example sentences when ExampleSentenceContext is set.
//
// Category names are handled separately by CategorySummarizer — they are
// coarse domain labels, not indexed concepts.
type ConceptIndexBuilder struct {
	Concepts store.Collection[store.Concept]
	Chunks   store.Collection[store.Chunk]
	Embedder embed.Embedder

	// ExampleSentenceContext, when true, embeds a concept from up to five
	// example sentences drawn from chunks containing it instead of from
	// the bare name — the open question's optional richer path.
	ExampleSentenceContext bool
}

type conceptAccumulator struct {
	name        string
	conceptType store.ConceptType
	docIDs      map[uint64]bool
}

// Build folds every document's extraction into the concept collection. The
// taxonomy rule classifies each name by the field it came from: primary and
// related concepts are thematic (fuzzy/semantic expansion candidates),
// technical terms are terminology, acronyms are acronyms (both get exact
// matching with minimal expansion).
func (b *ConceptIndexBuilder) Build(ctx context.Context, extractions []DocumentExtraction) error {
	acc := make(map[string]*conceptAccumulator)

	add := func(names []string, docID uint64, kind store.ConceptType) {
		for _, name := range names {
			key := foldKey(name)
			if key == "" {
				continue
			}
			entry, ok := acc[key]
			if !ok {
				entry = &conceptAccumulator{name: name, conceptType: kind, docIDs: make(map[uint64]bool)}
				acc[key] = entry
			}
			entry.docIDs[docID] = true
		}
	}

	for _, ex := range extractions {
		add(ex.Record.PrimaryConcepts, ex.DocumentID, store.ConceptThematic)
		add(ex.Record.RelatedConcepts, ex.DocumentID, store.ConceptThematic)
		add(ex.Record.TechnicalTerms, ex.DocumentID, store.ConceptTerminology)
		add(ex.Record.Acronyms, ex.DocumentID, store.ConceptAcronym)
	}

	totalOccurrences := 0
	for _, entry := range acc {
		totalOccurrences += len(entry.docIDs)
	}

	rows := make([]store.Concept, 0, len(acc))
	for _, entry := range acc {
		chunkCount, err := b.countMatchingChunks(ctx, entry.name, entry.docIDs)
		if err != nil {
			return fmt.Errorf("count chunks for concept %q: %w", entry.name, err)
		}

		weight := float32(0)
		if totalOccurrences > 0 {
			weight = float32(len(entry.docIDs)) / float32(totalOccurrences)
		}

		sources := make([]uint64, 0, len(entry.docIDs))
		for id := range entry.docIDs {
			sources = append(sources, id)
		}

		embedding, err := b.embed(ctx, entry.name, entry.docIDs)
		if err != nil {
			return fmt.Errorf("embed concept %q: %w", entry.name, err)
		}

		rows = append(rows, store.Concept{
			ID:          store.ConceptID(entry.name),
			Name:        entry.name,
			ConceptType: entry.conceptType,
			Sources:     sources,
			ChunkCount:  chunkCount,
			Weight:      weight,
			Embedding:   embedding,
		})
	}

	return b.Concepts.BatchUpsert(ctx, rows)
}

func (b *ConceptIndexBuilder) countMatchingChunks(ctx context.Context, name string, docIDs map[uint64]bool) (uint32, error) {
	ids := make([]uint64, 0, len(docIDs))
	for id := range docIDs {
		ids = append(ids, id)
	}
	chunks, err := b.Chunks.FilterQuery(ctx, store.FilterSet{store.In("catalog_id", ids)}, noLimit)
	if err != nil {
		return 0, err
	}

	var count uint32
	for _, chunk := range chunks {
		matched, _ := MatchChunkConcepts(chunk.Text, []string{name})
		if len(matched) > 0 {
			count++
		}
	}
	return count, nil
}

func (b *ConceptIndexBuilder) embed(ctx context.Context, name string, docIDs map[uint64]bool) ([]float32, error) {
	if !b.ExampleSentenceContext {
		return b.Embedder.Embed(ctx, name)
	}

	sentences, err := b.exampleSentences(ctx, name, docIDs, 5)
	if err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return b.Embedder.Embed(ctx, name)
	}

	text := name
	for _, s := range sentences {
		text += ". " + s
	}
	return b.Embedder.Embed(ctx, text)
}

func (b *ConceptIndexBuilder) exampleSentences(ctx context.Context, name string, docIDs map[uint64]bool, limit int) ([]string, error) {
	ids := make([]uint64, 0, len(docIDs))
	for id := range docIDs {
		ids = append(ids, id)
	}
	chunks, err := b.Chunks.FilterQuery(ctx, store.FilterSet{store.In("catalog_id", ids)}, limit*4)
	if err != nil {
		return nil, err
	}

	var sentences []string
	for _, chunk := range chunks {
		matched, _ := MatchChunkConcepts(chunk.Text, []string{name})
		if len(matched) == 0 {
			continue
		}
		sentences = append(sentences, firstSentence(chunk.Text))
		if len(sentences) >= limit {
			break
		}
	}
	return sentences, nil
}

func firstSentence(text string) string {
	for i, r := range text {
		if r == '.' || r == '\n' {
			if i > 200 {
				return text[:200]
			}
			return text[:i+1]
		}
	}
	if len(text) > 200 {
		return text[:200]
	}
	return text
}
