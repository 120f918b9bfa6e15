package store

import (
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// pgDocumentMapper, pgChunkMapper, pgConceptMapper, and pgCategoryMapper are
// the Postgres-backend counterparts of the local mappers in
// mapper_document.go etc. — same columns, but the embedding lives in the
// same row via pgvector's `vector` type instead of a side-by-side HNSW file.

type pgDocumentMapper struct{}

func (pgDocumentMapper) Table() string { return "documents" }
func (pgDocumentMapper) Schema(dimensions int) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS documents (
		id               BIGINT PRIMARY KEY,
		source           TEXT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		summary          TEXT NOT NULL DEFAULT '',
		primary_concepts JSONB NOT NULL DEFAULT '[]',
		technical_terms  JSONB NOT NULL DEFAULT '[]',
		category_ids     JSONB NOT NULL DEFAULT '[]',
		ocr_processed    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at       BIGINT NOT NULL DEFAULT 0,
		updated_at       BIGINT NOT NULL DEFAULT 0,
		embedding        vector(%d)
	);`, dimensions)
}
func (pgDocumentMapper) Columns() []string {
	return []string{"id", "source", "title", "summary", "primary_concepts", "technical_terms", "category_ids", "ocr_processed", "created_at", "updated_at"}
}
func (pgDocumentMapper) Values(d Document) []any {
	primary, _ := json.Marshal(d.PrimaryConcepts)
	terms, _ := json.Marshal(d.TechnicalTerms)
	cats, _ := json.Marshal(d.CategoryIDs)
	return []any{d.ID, d.Source, d.Title, d.Summary, primary, terms, cats, d.OCRProcessed, unixOf(d.CreatedAt), unixOf(d.UpdatedAt)}
}
func (pgDocumentMapper) Embedding(d Document) []float32 { return d.Embedding }
func (pgDocumentMapper) Scan(rows pgx.Rows) (Document, error) {
	var d Document
	var primary, terms, cats []byte
	var createdAt, updatedAt int64
	if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Summary, &primary, &terms, &cats, &d.OCRProcessed, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	_ = json.Unmarshal(primary, &d.PrimaryConcepts)
	_ = json.Unmarshal(terms, &d.TechnicalTerms)
	_ = json.Unmarshal(cats, &d.CategoryIDs)
	d.CreatedAt, d.UpdatedAt = timeOf(createdAt), timeOf(updatedAt)
	return d, nil
}

type pgChunkMapper struct{}

func (pgChunkMapper) Table() string { return "chunks" }
func (pgChunkMapper) Schema(dimensions int) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS chunks (
		id              BIGINT PRIMARY KEY,
		catalog_id      BIGINT NOT NULL,
		text            TEXT NOT NULL DEFAULT '',
		concepts        JSONB NOT NULL DEFAULT '[]',
		concept_density REAL NOT NULL DEFAULT 0,
		page            INTEGER,
		created_at      BIGINT NOT NULL DEFAULT 0,
		updated_at      BIGINT NOT NULL DEFAULT 0,
		embedding       vector(%d)
	);`, dimensions)
}
func (pgChunkMapper) Columns() []string {
	return []string{"id", "catalog_id", "text", "concepts", "concept_density", "page", "created_at", "updated_at"}
}
func (pgChunkMapper) Values(c Chunk) []any {
	concepts, _ := json.Marshal(c.Concepts)
	var page any
	if c.Page != nil {
		page = *c.Page
	}
	return []any{c.ID, c.CatalogID, c.Text, concepts, c.ConceptDensity, page, unixOf(c.CreatedAt), unixOf(c.UpdatedAt)}
}
func (pgChunkMapper) Embedding(c Chunk) []float32 { return c.Embedding }
func (pgChunkMapper) Scan(rows pgx.Rows) (Chunk, error) {
	var c Chunk
	var concepts []byte
	var page *int64
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.CatalogID, &c.Text, &concepts, &c.ConceptDensity, &page, &createdAt, &updatedAt); err != nil {
		return Chunk{}, err
	}
	_ = json.Unmarshal(concepts, &c.Concepts)
	if page != nil {
		v := uint32(*page)
		c.Page = &v
	}
	c.CreatedAt, c.UpdatedAt = timeOf(createdAt), timeOf(updatedAt)
	return c, nil
}

type pgConceptMapper struct{}

func (pgConceptMapper) Table() string { return "concepts" }
func (pgConceptMapper) Schema(dimensions int) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS concepts (
		id               BIGINT PRIMARY KEY,
		name             TEXT NOT NULL UNIQUE,
		concept_type     TEXT NOT NULL DEFAULT 'thematic',
		category_ids     JSONB NOT NULL DEFAULT '[]',
		sources          JSONB NOT NULL DEFAULT '[]',
		related_concepts JSONB NOT NULL DEFAULT '[]',
		synonyms         JSONB NOT NULL DEFAULT '[]',
		hypernyms        JSONB NOT NULL DEFAULT '[]',
		hyponyms         JSONB NOT NULL DEFAULT '[]',
		chunk_count      INTEGER NOT NULL DEFAULT 0,
		weight           REAL NOT NULL DEFAULT 0,
		created_at       BIGINT NOT NULL DEFAULT 0,
		updated_at       BIGINT NOT NULL DEFAULT 0,
		embedding        vector(%d)
	);`, dimensions)
}
func (pgConceptMapper) Columns() []string {
	return []string{"id", "name", "concept_type", "category_ids", "sources", "related_concepts", "synonyms", "hypernyms", "hyponyms", "chunk_count", "weight", "created_at", "updated_at"}
}
func (pgConceptMapper) Values(c Concept) []any {
	cats, _ := json.Marshal(c.CategoryIDs)
	sources, _ := json.Marshal(c.Sources)
	related, _ := json.Marshal(c.RelatedConcepts)
	syn, _ := json.Marshal(c.Synonyms)
	hyper, _ := json.Marshal(c.Hypernyms)
	hypo, _ := json.Marshal(c.Hyponyms)
	return []any{
		c.ID, NormalizeConceptName(c.Name), string(c.ConceptType), cats, sources, related, syn, hyper, hypo,
		c.ChunkCount, c.Weight, unixOf(c.CreatedAt), unixOf(c.UpdatedAt),
	}
}
func (pgConceptMapper) Embedding(c Concept) []float32 { return c.Embedding }
func (pgConceptMapper) Scan(rows pgx.Rows) (Concept, error) {
	var c Concept
	var conceptType string
	var cats, sources, related, syn, hyper, hypo []byte
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.Name, &conceptType, &cats, &sources, &related, &syn, &hyper, &hypo, &c.ChunkCount, &c.Weight, &createdAt, &updatedAt); err != nil {
		return Concept{}, err
	}
	c.ConceptType = ConceptType(conceptType)
	_ = json.Unmarshal(cats, &c.CategoryIDs)
	_ = json.Unmarshal(sources, &c.Sources)
	_ = json.Unmarshal(related, &c.RelatedConcepts)
	_ = json.Unmarshal(syn, &c.Synonyms)
	_ = json.Unmarshal(hyper, &c.Hypernyms)
	_ = json.Unmarshal(hypo, &c.Hyponyms)
	c.CreatedAt, c.UpdatedAt = timeOf(createdAt), timeOf(updatedAt)
	return c, nil
}

type pgCategoryMapper struct{}

func (pgCategoryMapper) Table() string { return "categories" }
func (pgCategoryMapper) Schema(dimensions int) string {
	return fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS categories (
		id         BIGINT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		aliases    JSONB NOT NULL DEFAULT '[]',
		parent_id  BIGINT,
		summary    TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL DEFAULT 0,
		updated_at BIGINT NOT NULL DEFAULT 0,
		embedding  vector(%d)
	);`, dimensions)
}
func (pgCategoryMapper) Columns() []string {
	return []string{"id", "name", "aliases", "parent_id", "summary", "created_at", "updated_at"}
}
func (pgCategoryMapper) Values(c Category) []any {
	aliases, _ := json.Marshal(c.Aliases)
	var parentID any
	if c.ParentID != nil {
		parentID = *c.ParentID
	}
	return []any{c.ID, NormalizeConceptName(c.Name), aliases, parentID, c.Summary, unixOf(c.CreatedAt), unixOf(c.UpdatedAt)}
}
func (pgCategoryMapper) Embedding(c Category) []float32 { return c.Embedding }
func (pgCategoryMapper) Scan(rows pgx.Rows) (Category, error) {
	var c Category
	var aliases []byte
	var parentID *int64
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.Name, &aliases, &parentID, &c.Summary, &createdAt, &updatedAt); err != nil {
		return Category{}, err
	}
	_ = json.Unmarshal(aliases, &c.Aliases)
	if parentID != nil {
		v := uint64(*parentID)
		c.ParentID = &v
	}
	c.CreatedAt, c.UpdatedAt = timeOf(createdAt), timeOf(updatedAt)
	return c, nil
}
