package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/conceptrag/core/internal/resilience"
)

// PGMapper is the Postgres analogue of RowMapper: unlike the local backend,
// Postgres keeps the embedding in the same row as its metadata (pgvector's
// `vector` column type), so vector_search is a native SQL ORDER BY rather
// than a separate index lookup.
type PGMapper[T Identifiable] interface {
	Table() string
	Schema(dimensions int) string
	Columns() []string // metadata columns only, "id" first; embedding handled separately
	Values(item T) []any
	Embedding(item T) []float32
	Scan(row pgx.Rows) (T, error)
}

// PGCollection implements Collection[T] against a Postgres database using
// pgx for SQL and pgvector-go for the embedding column and distance
// operator, giving the storage abstraction a second real backend exercising
// the pack's Postgres/pgvector stack (§9's "avoid inheritance; use
// composition/parametric types").
type PGCollection[T Identifiable] struct {
	pool       *pgxpool.Pool
	mapper     PGMapper[T]
	policy     IndexPolicy
	dimensions int
}

func NewPGCollection[T Identifiable](pool *pgxpool.Pool, mapper PGMapper[T], dimensions int) *PGCollection[T] {
	return &PGCollection[T]{pool: pool, mapper: mapper, policy: DefaultIndexPolicy(), dimensions: dimensions}
}

// NewPostgresPool dials Postgres and registers the pgvector type codec on
// every new connection, the way TicoDavid-RAGbox-backend's pool setup does.
func NewPostgresPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, resilience.Wrap(resilience.ErrCodeConfigInvalid, err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, resilience.Wrap(resilience.ErrCodeStoreConnection, err)
	}
	return pool, nil
}

func (c *PGCollection[T]) OpenOrCreate(ctx context.Context) error {
	_, err := c.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "create vector extension")
	}
	if _, err := c.pool.Exec(ctx, c.mapper.Schema(c.dimensions)); err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "open_or_create "+c.mapper.Table())
	}
	return c.maybeCreateIVFFlatIndex(ctx)
}

// maybeCreateIVFFlatIndex applies the storage abstraction's index-creation
// policy: build an ivfflat index sized by IndexPolicy.Partitions once the
// collection crosses the linear-scan threshold.
func (c *PGCollection[T]) maybeCreateIVFFlatIndex(ctx context.Context) error {
	count, err := c.Count(ctx)
	if err != nil {
		return err
	}
	lists := c.policy.Partitions(count)
	if lists == 0 {
		return nil
	}
	ddl := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS idx_%s_embedding ON %s USING ivfflat (embedding vector_cosine_ops) WITH (lists = %d)",
		c.mapper.Table(), c.mapper.Table(), lists,
	)
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "create ivfflat index")
	}
	return nil
}

func (c *PGCollection[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+c.mapper.Table()).Scan(&n)
	if err != nil {
		return 0, resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "count "+c.mapper.Table())
	}
	return n, nil
}

func (c *PGCollection[T]) BatchUpsert(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	cols := append(append([]string{}, c.mapper.Columns()...), "embedding")
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	updates := make([]string, 0, len(cols)-1)
	for _, col := range cols[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		c.mapper.Table(), strings.Join(cols, ", "), strings.Join(placeholders, ", "), cols[0], strings.Join(updates, ", "),
	)

	batch := &pgx.Batch{}
	for _, item := range items {
		args := append(c.mapper.Values(item), pgvector.NewVector(c.mapper.Embedding(item)))
		batch.Queue(query, args...)
	}
	br := c.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range items {
		if _, err := br.Exec(); err != nil {
			return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "batch_upsert "+c.mapper.Table())
		}
	}
	return nil
}

func (c *PGCollection[T]) BatchDelete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		args[i] = id
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", c.mapper.Table(), strings.Join(placeholders, ", "))
	if _, err := c.pool.Exec(ctx, query, args...); err != nil {
		return resilience.Wrap(resilience.ErrCodeStoreConnection, err).WithDetail("op", "batch_delete "+c.mapper.Table())
	}
	return nil
}

func (c *PGCollection[T]) FilterQuery(ctx context.Context, filters FilterSet, limit int) ([]T, error) {
	where, args := pgFilterSQL(filters)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT $%d",
		strings.Join(c.mapper.Columns(), ", "), c.mapper.Table(), where, len(args)+1)
	rows, err := c.pool.Query(ctx, query, append(args, limit)...)
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

// VectorSearch issues a native pgvector ORDER BY embedding <=> $1 query to
// rank ids by distance, then fetches the full metadata rows — the same
// two-step "resolve ids, then hydrate rows" shape the local backend uses,
// so both backends hand ranking code an identically-ordered []VectorRow[T].
func (c *PGCollection[T]) VectorSearch(ctx context.Context, queryVec []float32, limit int) ([]VectorRow[T], error) {
	idCol := c.mapper.Columns()[0]
	query := fmt.Sprintf(
		"SELECT %s, embedding <=> $1 AS distance FROM %s ORDER BY embedding <=> $1 LIMIT $2",
		idCol, c.mapper.Table(),
	)
	rows, err := c.pool.Query(ctx, query, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, resilience.Wrap(resilience.ErrCodeInternal, err).WithDetail("op", "vector_search "+c.mapper.Table())
	}

	var ids []uint64
	distanceByID := make(map[uint64]float32)
	for rows.Next() {
		var id uint64
		var distance float64
		if err := rows.Scan(&id, &distance); err != nil {
			rows.Close()
			return nil, resilience.Wrap(resilience.ErrCodeStoreSchema, err).WithDetail("op", "scan distance "+c.mapper.Table())
		}
		ids = append(ids, id)
		distanceByID[id] = float32(distance)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	items, err := c.FilterQuery(ctx, FilterSet{In(idCol, ids)}, len(ids))
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]T, len(items))
	for _, item := range items {
		byID[item.RowID()] = item
	}

	out := make([]VectorRow[T], 0, len(ids))
	for _, id := range ids {
		item, ok := byID[id]
		if !ok {
			continue
		}
		out = append(out, VectorRow[T]{Item: item, Distance: distanceByID[id]})
	}
	return out, nil
}

func (c *PGCollection[T]) Close() error {
	c.pool.Close()
	return nil
}

// pgFilterSQL is filterSQL's $N-placeholder counterpart for pgx, which
// (unlike database/sql over modernc.org/sqlite) does not accept "?".
func pgFilterSQL(filters FilterSet) (string, []any) {
	if len(filters) == 0 {
		return "TRUE", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	n := 0
	next := func() int { n++; return n }
	for _, f := range filters {
		switch f.Op {
		case FilterEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", f.Column, next()))
			args = append(args, f.Value)
		case FilterNotEq:
			clauses = append(clauses, fmt.Sprintf("%s != $%d", f.Column, next()))
			args = append(args, f.Value)
		case FilterContains:
			clauses = append(clauses, fmt.Sprintf("%s LIKE $%d", f.Column, next()))
			args = append(args, "%"+fmt.Sprint(f.Value)+"%")
		case FilterGte:
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", f.Column, next()))
			args = append(args, f.Value)
		case FilterLte:
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", f.Column, next()))
			args = append(args, f.Value)
		case FilterIn:
			clauses = append(clauses, fmt.Sprintf("%s = ANY($%d)", f.Column, next()))
			args = append(args, f.Value)
		}
	}
	return strings.Join(clauses, " AND "), args
}

// NewPostgresDocumentCollection, NewPostgresChunkCollection,
// NewPostgresConceptCollection, and NewPostgresCategoryCollection open the
// four collections against an already-dialed pool (see NewPostgresPool).
// No command constructs them and no setting selects them; seed and serve
// always open the local backend.
func NewPostgresDocumentCollection(pool *pgxpool.Pool, dimensions int) *PGCollection[Document] {
	return NewPGCollection[Document](pool, pgDocumentMapper{}, dimensions)
}

func NewPostgresChunkCollection(pool *pgxpool.Pool, dimensions int) *PGCollection[Chunk] {
	return NewPGCollection[Chunk](pool, pgChunkMapper{}, dimensions)
}

func NewPostgresConceptCollection(pool *pgxpool.Pool, dimensions int) *PGCollection[Concept] {
	return NewPGCollection[Concept](pool, pgConceptMapper{}, dimensions)
}

func NewPostgresCategoryCollection(pool *pgxpool.Pool, dimensions int) *PGCollection[Category] {
	return NewPGCollection[Category](pool, pgCategoryMapper{}, dimensions)
}

var (
	_ Collection[Document] = (*PGCollection[Document])(nil)
	_ Collection[Chunk]    = (*PGCollection[Chunk])(nil)
	_ Collection[Concept]  = (*PGCollection[Concept])(nil)
	_ Collection[Category] = (*PGCollection[Category])(nil)
)
