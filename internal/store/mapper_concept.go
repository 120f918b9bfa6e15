package store

import (
	"database/sql"
	"encoding/json"
)

type conceptMapper struct{ dimensions int }

func (conceptMapper) Table() string { return "concepts" }

func (conceptMapper) Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS concepts (
		id               INTEGER PRIMARY KEY,
		name             TEXT NOT NULL,
		concept_type     TEXT NOT NULL DEFAULT 'thematic',
		category_ids     TEXT NOT NULL DEFAULT '[]',
		sources          TEXT NOT NULL DEFAULT '[]',
		related_concepts TEXT NOT NULL DEFAULT '[]',
		synonyms         TEXT NOT NULL DEFAULT '[]',
		hypernyms        TEXT NOT NULL DEFAULT '[]',
		hyponyms         TEXT NOT NULL DEFAULT '[]',
		chunk_count      INTEGER NOT NULL DEFAULT 0,
		weight           REAL NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL DEFAULT 0,
		updated_at       INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_concepts_name ON concepts(name);
	`
}

func (conceptMapper) Columns() []string {
	return []string{"id", "name", "concept_type", "category_ids", "sources", "related_concepts", "synonyms", "hypernyms", "hyponyms", "chunk_count", "weight", "created_at", "updated_at"}
}

func (conceptMapper) Values(c Concept) []any {
	cats, _ := json.Marshal(c.CategoryIDs)
	sources, _ := json.Marshal(c.Sources)
	related, _ := json.Marshal(c.RelatedConcepts)
	syn, _ := json.Marshal(c.Synonyms)
	hyper, _ := json.Marshal(c.Hypernyms)
	hypo, _ := json.Marshal(c.Hyponyms)
	return []any{
		c.ID, NormalizeConceptName(c.Name), string(c.ConceptType), string(cats), string(sources),
		string(related), string(syn), string(hyper), string(hypo), c.ChunkCount, c.Weight,
		unixOf(c.CreatedAt), unixOf(c.UpdatedAt),
	}
}

func (conceptMapper) Scan(rows *sql.Rows) (Concept, error) {
	var c Concept
	var conceptType, cats, sources, related, syn, hyper, hypo string
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.Name, &conceptType, &cats, &sources, &related, &syn, &hyper, &hypo, &c.ChunkCount, &c.Weight, &createdAt, &updatedAt); err != nil {
		return Concept{}, err
	}
	c.ConceptType = ConceptType(conceptType)
	_ = json.Unmarshal([]byte(cats), &c.CategoryIDs)
	_ = json.Unmarshal([]byte(sources), &c.Sources)
	_ = json.Unmarshal([]byte(related), &c.RelatedConcepts)
	_ = json.Unmarshal([]byte(syn), &c.Synonyms)
	_ = json.Unmarshal([]byte(hyper), &c.Hypernyms)
	_ = json.Unmarshal([]byte(hypo), &c.Hyponyms)
	c.CreatedAt = timeOf(createdAt)
	c.UpdatedAt = timeOf(updatedAt)
	return c, nil
}

func (conceptMapper) EmbeddingOf(c Concept) []float32 { return c.Embedding }

// NewConceptCollection opens the local concept collection.
func NewConceptCollection(dbPath, vectorPath string, dimensions int) (*SQLCollection[Concept], error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	vec := NewVectorIndex(DefaultVectorIndexConfig(dimensions))
	if vectorPath != "" {
		_ = vec.Load(vectorPath)
	}
	return NewSQLCollection[Concept](db, vec, conceptMapper{dimensions: dimensions}), nil
}
