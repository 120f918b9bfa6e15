package store

import (
	"database/sql"
	"encoding/json"
)

type categoryMapper struct{ dimensions int }

func (categoryMapper) Table() string { return "categories" }

func (categoryMapper) Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS categories (
		id         INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		aliases    TEXT NOT NULL DEFAULT '[]',
		parent_id  INTEGER,
		summary    TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_name ON categories(name);
	`
}

func (categoryMapper) Columns() []string {
	return []string{"id", "name", "aliases", "parent_id", "summary", "created_at", "updated_at"}
}

func (categoryMapper) Values(c Category) []any {
	aliases, _ := json.Marshal(c.Aliases)
	var parentID any
	if c.ParentID != nil {
		parentID = *c.ParentID
	}
	return []any{c.ID, NormalizeConceptName(c.Name), string(aliases), parentID, c.Summary, unixOf(c.CreatedAt), unixOf(c.UpdatedAt)}
}

func (categoryMapper) Scan(rows *sql.Rows) (Category, error) {
	var c Category
	var aliases string
	var parentID sql.NullInt64
	var createdAt, updatedAt int64
	if err := rows.Scan(&c.ID, &c.Name, &aliases, &parentID, &c.Summary, &createdAt, &updatedAt); err != nil {
		return Category{}, err
	}
	_ = json.Unmarshal([]byte(aliases), &c.Aliases)
	if parentID.Valid {
		v := uint64(parentID.Int64)
		c.ParentID = &v
	}
	c.CreatedAt = timeOf(createdAt)
	c.UpdatedAt = timeOf(updatedAt)
	return c, nil
}

func (categoryMapper) EmbeddingOf(c Category) []float32 { return c.Embedding }

// NewCategoryCollection opens the local category collection.
func NewCategoryCollection(dbPath, vectorPath string, dimensions int) (*SQLCollection[Category], error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	vec := NewVectorIndex(DefaultVectorIndexConfig(dimensions))
	if vectorPath != "" {
		_ = vec.Load(vectorPath)
	}
	return NewSQLCollection[Category](db, vec, categoryMapper{dimensions: dimensions}), nil
}
