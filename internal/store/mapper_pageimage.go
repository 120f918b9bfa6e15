package store

import "database/sql"

type pageImageMapper struct{ dimensions int }

func (pageImageMapper) Table() string { return "page_images" }

func (pageImageMapper) Schema() string {
	return `
	CREATE TABLE IF NOT EXISTS page_images (
		id            INTEGER PRIMARY KEY,
		catalog_id    INTEGER NOT NULL,
		page          INTEGER NOT NULL,
		variant_index INTEGER NOT NULL DEFAULT 0,
		image_path    TEXT NOT NULL DEFAULT '',
		description   TEXT NOT NULL DEFAULT '',
		created_at    INTEGER NOT NULL DEFAULT 0,
		updated_at    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_page_images_catalog_id ON page_images(catalog_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_page_images_catalog_page_variant
		ON page_images(catalog_id, page, variant_index);
	`
}

func (pageImageMapper) Columns() []string {
	return []string{"id", "catalog_id", "page", "variant_index", "image_path", "description", "created_at", "updated_at"}
}

func (pageImageMapper) Values(p PageImage) []any {
	return []any{p.ID, p.CatalogID, p.Page, p.VariantIndex, p.ImagePath, p.Description, unixOf(p.CreatedAt), unixOf(p.UpdatedAt)}
}

func (pageImageMapper) Scan(rows *sql.Rows) (PageImage, error) {
	var p PageImage
	var createdAt, updatedAt int64
	if err := rows.Scan(&p.ID, &p.CatalogID, &p.Page, &p.VariantIndex, &p.ImagePath, &p.Description, &createdAt, &updatedAt); err != nil {
		return PageImage{}, err
	}
	p.CreatedAt = timeOf(createdAt)
	p.UpdatedAt = timeOf(updatedAt)
	return p, nil
}

func (pageImageMapper) EmbeddingOf(p PageImage) []float32 { return p.Embedding }

// NewPageImageCollection opens the local page-image collection backing the
// optional visual-extraction extension. Unused by the default seeding
// pipeline; exercised only when a caller opts into page-image description.
func NewPageImageCollection(dbPath, vectorPath string, dimensions int) (*SQLCollection[PageImage], error) {
	db, err := openSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	vec := NewVectorIndex(DefaultVectorIndexConfig(dimensions))
	if vectorPath != "" {
		_ = vec.Load(vectorPath)
	}
	return NewSQLCollection[PageImage](db, vec, pageImageMapper{dimensions: dimensions}), nil
}
