package store

import (
	"database/sql"
	"encoding/json"
)

type chunkMapper struct{ dimensions int }

func (chunkMapper) Table() string { return "chunks" }

func (chunkMapper) Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS chunks (
		id              INTEGER PRIMARY KEY,
		catalog_id      INTEGER NOT NULL,
		text            TEXT NOT NULL DEFAULT '',
		concepts        TEXT NOT NULL DEFAULT '[]',
		concept_density REAL NOT NULL DEFAULT 0,
		page            INTEGER,
		created_at      INTEGER NOT NULL DEFAULT 0,
		updated_at      INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_catalog_id ON chunks(catalog_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_concept_density ON chunks(concept_density DESC);
	`
}

func (chunkMapper) Columns() []string {
	return []string{"id", "catalog_id", "text", "concepts", "concept_density", "page", "created_at", "updated_at"}
}

func (chunkMapper) Values(c Chunk) []any {
	concepts, _ := json.Marshal(c.Concepts)
	var page any
	if c.Page != nil {
		page = *c.Page
	}
	return []any{c.ID, c.CatalogID, c.Text, string(concepts), c.ConceptDensity, page, unixOf(c.CreatedAt), unixOf(c.UpdatedAt)}
}

func (chunkMapper) Scan(rows *sql.Rows) (Chunk, error) {
	var c Chunk
	var concepts string
	var page sql.NullInt64
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.CatalogID, &c.Text, &concepts, &c.ConceptDensity, &page, &createdAt, &updatedAt); err != nil {
		return Chunk{}, err
	}
	_ = json.Unmarshal([]byte(concepts), &c.Concepts)
	if page.Valid {
		v := uint32(page.Int64)
		c.Page = &v
	}
	c.CreatedAt = timeOf(createdAt)
	c.UpdatedAt = timeOf(updatedAt)
	return c, nil
}

func (chunkMapper) EmbeddingOf(c Chunk) []float32 { return c.Embedding }

// NewChunkCollection opens the local passage collection.
func NewChunkCollection(dbPath, vectorPath string, dimensions int) (*SQLCollection[Chunk], error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	vec := NewVectorIndex(DefaultVectorIndexConfig(dimensions))
	if vectorPath != "" {
		_ = vec.Load(vectorPath)
	}
	return NewSQLCollection[Chunk](db, vec, chunkMapper{dimensions: dimensions}), nil
}
