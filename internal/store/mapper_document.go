package store

import (
	"database/sql"
	"encoding/json"
)

// documentMapper maps Document to the "documents" table. The embedding
// column itself is never persisted here — it lives in the collection's
// VectorIndex — so only filterable/display metadata crosses into SQL.
type documentMapper struct{ dimensions int }

func (documentMapper) Table() string { return "documents" }

func (documentMapper) Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS documents (
		id               INTEGER PRIMARY KEY,
		source           TEXT NOT NULL,
		title            TEXT NOT NULL DEFAULT '',
		summary          TEXT NOT NULL DEFAULT '',
		primary_concepts TEXT NOT NULL DEFAULT '[]',
		technical_terms  TEXT NOT NULL DEFAULT '[]',
		category_ids     TEXT NOT NULL DEFAULT '[]',
		ocr_processed    INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL DEFAULT 0,
		updated_at       INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source);
	`
}

func (documentMapper) Columns() []string {
	return []string{"id", "source", "title", "summary", "primary_concepts", "technical_terms", "category_ids", "ocr_processed", "created_at", "updated_at"}
}

func (documentMapper) Values(d Document) []any {
	primary, _ := json.Marshal(d.PrimaryConcepts)
	terms, _ := json.Marshal(d.TechnicalTerms)
	cats, _ := json.Marshal(d.CategoryIDs)
	return []any{d.ID, d.Source, d.Title, d.Summary, string(primary), string(terms), string(cats), boolToInt(d.OCRProcessed), unixOf(d.CreatedAt), unixOf(d.UpdatedAt)}
}

func (documentMapper) Scan(rows *sql.Rows) (Document, error) {
	var d Document
	var primary, terms, cats string
	var ocr int
	var createdAt, updatedAt int64
	if err := rows.Scan(&d.ID, &d.Source, &d.Title, &d.Summary, &primary, &terms, &cats, &ocr, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	_ = json.Unmarshal([]byte(primary), &d.PrimaryConcepts)
	_ = json.Unmarshal([]byte(terms), &d.TechnicalTerms)
	_ = json.Unmarshal([]byte(cats), &d.CategoryIDs)
	d.OCRProcessed = ocr != 0
	d.CreatedAt = timeOf(createdAt)
	d.UpdatedAt = timeOf(updatedAt)
	return d, nil
}

func (documentMapper) EmbeddingOf(d Document) []float32 { return d.Embedding }

// NewDocumentCollection opens the local catalog collection at path,
// backed by SQLite metadata and an HNSW vector index of the given
// embedding dimension D.
func NewDocumentCollection(dbPath, vectorPath string, dimensions int) (*SQLCollection[Document], error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	vec := NewVectorIndex(DefaultVectorIndexConfig(dimensions))
	if vectorPath != "" {
		_ = vec.Load(vectorPath) // best-effort; fresh index on first run
	}
	return NewSQLCollection[Document](db, vec, documentMapper{dimensions: dimensions}), nil
}
