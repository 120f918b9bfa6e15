package cmd

import (
	"context"
	"fmt"

	"github.com/conceptrag/core/internal/config"
	"github.com/conceptrag/core/internal/store"
)

// openedCollections holds the four collections every command that touches
// the catalog needs, opened against one shared SQLite file with distinct
// per-collection vector index paths.
type openedCollections struct {
	Documents  store.Collection[store.Document]
	Chunks     store.Collection[store.Chunk]
	Concepts   store.Collection[store.Concept]
	Categories store.Collection[store.Category]
}

func (c openedCollections) Close() {
	_ = c.Documents.Close()
	_ = c.Chunks.Close()
	_ = c.Concepts.Close()
	_ = c.Categories.Close()
}

// vectorPathFor derives a per-collection vector index path by suffixing the
// config's shared vector_path: documents/chunks/concepts/categories each
// need their own HNSW graph (they key on different row-id spaces) even
// though all four collections share one SQLite file.
func vectorPathFor(base, suffix string) string {
	if base == "" {
		return ""
	}
	return base + "." + suffix
}

func embeddingDimensions(cfg *config.Config) int {
	if cfg.Embeddings.Dimensions > 0 {
		return cfg.Embeddings.Dimensions
	}
	return 768
}

// openCollections opens (and creates, if absent) the four catalog
// collections, wiring each collection's metadata store and vector store
// side by side.
func openCollections(ctx context.Context, cfg *config.Config) (openedCollections, error) {
	dims := embeddingDimensions(cfg)

	documents, err := store.NewDocumentCollection(cfg.Database.Path, vectorPathFor(cfg.Database.VectorPath, "documents"), dims)
	if err != nil {
		return openedCollections{}, fmt.Errorf("open document collection: %w", err)
	}
	chunks, err := store.NewChunkCollection(cfg.Database.Path, vectorPathFor(cfg.Database.VectorPath, "chunks"), dims)
	if err != nil {
		return openedCollections{}, fmt.Errorf("open chunk collection: %w", err)
	}
	concepts, err := store.NewConceptCollection(cfg.Database.Path, vectorPathFor(cfg.Database.VectorPath, "concepts"), dims)
	if err != nil {
		return openedCollections{}, fmt.Errorf("open concept collection: %w", err)
	}
	categories, err := store.NewCategoryCollection(cfg.Database.Path, vectorPathFor(cfg.Database.VectorPath, "categories"), dims)
	if err != nil {
		return openedCollections{}, fmt.Errorf("open category collection: %w", err)
	}

	cols := openedCollections{Documents: documents, Chunks: chunks, Concepts: concepts, Categories: categories}
	for _, c := range []interface {
		OpenOrCreate(context.Context) error
	}{documents, chunks, concepts, categories} {
		if err := c.OpenOrCreate(ctx); err != nil {
			return openedCollections{}, fmt.Errorf("open or create collection: %w", err)
		}
	}
	return cols, nil
}
