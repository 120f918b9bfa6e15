package seed

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/chunk"
	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/store"
)

// processedDoc pairs a successfully extracted source file with its concept
// record and derived catalog id, the unit the rest of persist works over.
type processedDoc struct {
	file   sourceFile
	record enrich.ConceptRecord
	docID  uint64
}

// persist turns one batch of extraction outputs into catalog rows: it
// writes each successful document's chunks, rematches chunk concepts
// against that document's concept set, rebuilds the concept index across
// every successful document in the batch, resolves categories
// incrementally, and backfills each document's category_ids and embedding.
func (p *Pipeline) persist(
	ctx context.Context,
	queue []sourceFile,
	docChunks map[string][]*chunk.Chunk,
	outputs []enrich.ExtractionOutput,
	result *Result,
) error {
	bySource := make(map[string]sourceFile, len(queue))
	for _, f := range queue {
		bySource[f.path] = f
	}

	var ok []processedDoc
	for _, out := range outputs {
		if out.Err != nil {
			result.DocumentsFailed++
			result.Failed = append(result.Failed, FailedDocument{Source: out.Source, Error: out.Err.Error()})
			continue
		}
		f := bySource[out.Source]
		ok = append(ok, processedDoc{file: f, record: out.Concepts, docID: store.DocumentID(f.path, f.contentHash)})
	}

	// Write chunk rows and enrich them against their parent document's
	// concept set before the concept index needs chunk_count numbers.
	for _, item := range ok {
		chunks := docChunks[item.file.path]
		rows := make([]store.Chunk, len(chunks))
		for i, c := range chunks {
			embedding, err := p.deps.Embedder.Embed(ctx, c.Content)
			if err != nil {
				return fmt.Errorf("embed chunk %d of %s: %w", i, item.file.path, err)
			}
			rows[i] = store.Chunk{
				ID:        store.ChunkID(item.docID, i),
				CatalogID: item.docID,
				Text:      c.Content,
				Embedding: embedding,
			}
		}
		if err := p.deps.Chunks.BatchUpsert(ctx, rows); err != nil {
			return fmt.Errorf("upsert chunks for %s: %w", item.file.path, err)
		}
		result.ChunksWritten += len(rows)

		candidates := append(append([]string{}, item.record.PrimaryConcepts...), item.record.RelatedConcepts...)
		if err := enrich.EnrichDocumentChunks(ctx, p.deps.Chunks, item.docID, candidates); err != nil {
			return fmt.Errorf("enrich chunks for %s: %w", item.file.path, err)
		}
	}

	// Concept index construction MUST wait for every extraction in the
	// batch to settle, so it only runs once, over the whole batch.
	extractions := make([]enrich.DocumentExtraction, len(ok))
	for i, item := range ok {
		extractions[i] = enrich.DocumentExtraction{DocumentID: item.docID, Record: item.record}
	}
	if len(extractions) > 0 || p.opts.RebuildConcepts {
		builder := &enrich.ConceptIndexBuilder{
			Concepts:               p.deps.Concepts,
			Chunks:                 p.deps.Chunks,
			Embedder:               p.deps.Embedder,
			ExampleSentenceContext: p.opts.EmbedConceptsFromContext,
		}
		if err := builder.Build(ctx, extractions); err != nil {
			return fmt.Errorf("build concept index: %w", err)
		}
		n, err := p.deps.Concepts.Count(ctx)
		if err != nil {
			return fmt.Errorf("count concepts: %w", err)
		}
		result.ConceptsIndexed = n
	}

	categoryIDs, err := p.resolveCategories(ctx, ok)
	if err != nil {
		return err
	}
	result.CategoriesWritten = len(categoryIDs)

	// Document rows are written last since they carry the resolved
	// category_ids this pass produced.
	for _, item := range ok {
		summaryText := deriveSummary(item.file.content)
		titleText := deriveTitle(item.file.path, item.file.content)

		var catIDs []uint64
		for _, name := range item.record.Categories {
			if id, ok := categoryIDs[store.NormalizeConceptName(name)]; ok {
				catIDs = append(catIDs, id)
			}
		}

		embedding, err := p.deps.Embedder.Embed(ctx, titleText+". "+summaryText)
		if err != nil {
			return fmt.Errorf("embed document %s: %w", item.file.path, err)
		}

		doc := store.Document{
			ID:              item.docID,
			Source:          item.file.path,
			Title:           titleText,
			Summary:         summaryText,
			PrimaryConcepts: item.record.PrimaryConcepts,
			TechnicalTerms:  item.record.TechnicalTerms,
			CategoryIDs:     catIDs,
			Embedding:       embedding,
		}
		if err := p.deps.Documents.BatchUpsert(ctx, []store.Document{doc}); err != nil {
			return fmt.Errorf("upsert document %s: %w", item.file.path, err)
		}
		result.DocumentsProcessed++
	}

	return nil
}

// resolveCategories loads the existing name→summary cache, summarizes only
// categories not already present, writes the merged set back, and returns
// a normalized-name→id map for backfilling document.category_ids.
func (p *Pipeline) resolveCategories(ctx context.Context, ok []processedDoc) (map[string]uint64, error) {
	cached, err := enrich.LoadCachedSummaries(ctx, p.deps.Categories)
	if err != nil {
		return nil, fmt.Errorf("load cached category summaries: %w", err)
	}

	seen := make(map[string]string) // normalized name -> original casing
	for _, item := range ok {
		for _, name := range item.record.Categories {
			key := store.NormalizeConceptName(name)
			if key == "" {
				continue
			}
			if _, exists := seen[key]; !exists {
				seen[key] = name
			}
		}
	}
	if len(seen) == 0 {
		ids := make(map[string]uint64, len(cached))
		existing, err := p.deps.Categories.FilterQuery(ctx, nil, 1<<30)
		if err != nil {
			return nil, fmt.Errorf("load existing categories: %w", err)
		}
		for _, c := range existing {
			ids[store.NormalizeConceptName(c.Name)] = c.ID
		}
		return ids, nil
	}

	observed := make([]string, 0, len(seen))
	for _, name := range seen {
		observed = append(observed, name)
	}

	summarizer := enrich.NewCategorySummarizer(p.deps.Completer, p.deps.Executor)
	merged, err := summarizer.Summarize(ctx, cached, observed)
	if err != nil {
		return nil, fmt.Errorf("summarize categories: %w", err)
	}

	ids := make(map[string]uint64, len(merged))
	rows := make([]store.Category, 0, len(merged))
	for key, summary := range merged {
		name, ok := seen[key]
		if !ok {
			name = key // category only present from a prior run; name unknown, keep the fold key
		}
		id := store.CategoryID(name)
		ids[key] = id
		rows = append(rows, store.Category{ID: id, Name: name, Summary: summary})
	}

	if err := p.deps.Categories.BatchUpsert(ctx, rows); err != nil {
		return nil, fmt.Errorf("upsert categories: %w", err)
	}
	return ids, nil
}
