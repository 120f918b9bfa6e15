package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/conceptrag/core/internal/resilience"
)

// RowMapper is the per-entity glue a SQLCollection needs: table schema,
// column order, and the marshal/scan pair between a domain struct and SQL
// rows. Four small mappers (one per entity) let a single generic collection
// implementation serve all four collection shapes — composition over
// inheritance, per the design note in §9.
type RowMapper[T Identifiable] interface {
	Table() string
	Schema() string
	Columns() []string
	Values(item T) []any
	Scan(rows *sql.Rows) (T, error)
	EmbeddingOf(item T) []float32
}

// SQLCollection is the local-backend implementation of Collection[T]: SQLite
// holds filterable metadata, a VectorIndex holds embeddings. vector_search
// resolves ids from the vector index, then fetches full rows by id so
// callers never see a partially hydrated row.
type SQLCollection[T Identifiable] struct {
	mu     sync.Mutex
	db     *sql.DB
	vec    *VectorIndex
	mapper RowMapper[T]
}

func NewSQLCollection[T Identifiable](db *sql.DB, vec *VectorIndex, mapper RowMapper[T]) *SQLCollection[T] {
	return &SQLCollection[T]{db: db, vec: vec, mapper: mapper}
}

func (c *SQLCollection[T]) OpenOrCreate(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, c.mapper.Schema())
	if err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "open_or_create "+c.mapper.Table())
	}
	return nil
}

func (c *SQLCollection[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.mapper.Table()).Scan(&n)
	if err != nil {
		return 0, resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "count "+c.mapper.Table())
	}
	return n, nil
}

func (c *SQLCollection[T]) BatchUpsert(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cols := c.mapper.Columns()
	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",") + ")"
	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON CONFLICT(%s) DO UPDATE SET %s",
		c.mapper.Table(), strings.Join(cols, ", "), placeholders, cols[0], strings.Join(updates, ", "),
	)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "begin batch_upsert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "prepare batch_upsert")
	}
	defer stmt.Close()

	ids := make([]uint64, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	for _, item := range items {
		if _, err := stmt.ExecContext(ctx, c.mapper.Values(item)...); err != nil {
			return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "exec batch_upsert")
		}
		if emb := c.mapper.EmbeddingOf(item); emb != nil {
			ids = append(ids, item.RowID())
			vectors = append(vectors, emb)
		}
	}
	if err := tx.Commit(); err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "commit batch_upsert")
	}
	if len(ids) > 0 {
		if err := c.vec.Upsert(ids, vectors); err != nil {
			return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "vector upsert")
		}
	}
	return nil
}

func (c *SQLCollection[T]) BatchDelete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders, args := inClause(ids)
	query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", c.mapper.Table(), c.mapper.Columns()[0], placeholders)
	if _, err := c.db.ExecContext(ctx, query, args...); err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "batch_delete "+c.mapper.Table())
	}
	c.vec.Delete(ids)
	return nil
}

func (c *SQLCollection[T]) FilterQuery(ctx context.Context, filters FilterSet, limit int) ([]T, error) {
	where, args := filterSQL(filters)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT ?", strings.Join(c.mapper.Columns(), ", "), c.mapper.Table(), where)
	rows, err := c.db.QueryContext(ctx, query, append(args, limit)...)
	if err != nil {
		return nil, resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "filter_query "+c.mapper.Table())
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := c.mapper.Scan(rows)
		if err != nil {
			return nil, resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "scan "+c.mapper.Table())
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// VectorSearch resolves nearest-neighbor ids from the vector index, then
// fetches the full rows by id, preserving the index's distance order.
func (c *SQLCollection[T]) VectorSearch(ctx context.Context, queryVec []float32, limit int) ([]VectorRow[T], error) {
	hits, err := c.vec.Search(queryVec, limit)
	if err != nil {
		return nil, resilience.Wrap(resilience.ErrCodeInternal, err).WithDetail("op", "vector_search "+c.mapper.Table())
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(hits))
	distanceByID := make(map[uint64]float32, len(hits))
	for i, h := range hits {
		ids[i] = h.Item
		distanceByID[h.Item] = h.Distance
	}

	rows, err := c.FilterQuery(ctx, FilterSet{In(c.mapper.Columns()[0], ids)}, len(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[uint64]T, len(rows))
	for _, r := range rows {
		byID[r.RowID()] = r
	}

	out := make([]VectorRow[T], 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			continue // row deleted from SQL but not yet tombstoned in the index
		}
		out = append(out, VectorRow[T]{Item: item, Distance: distanceByID[id]})
	}
	return out, nil
}

func (c *SQLCollection[T]) Close() error {
	if err := c.vec.Close(); err != nil {
		return err
	}
	return c.db.Close()
}

var (
	_ Collection[Document] = (*SQLCollection[Document])(nil)
	_ Collection[Chunk]    = (*SQLCollection[Chunk])(nil)
	_ Collection[Concept]  = (*SQLCollection[Concept])(nil)
	_ Collection[Category] = (*SQLCollection[Category])(nil)
)
