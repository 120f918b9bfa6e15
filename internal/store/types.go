// Package store provides the storage abstraction: four typed collections
// (catalog, chunk, concept, category) each exposing vector search, filtered
// query, batch upsert/delete, and count, over a local (HNSW + SQLite) or
// Postgres (pgx + pgvector) backend. The abstraction does not rank; it
// returns raw distances and raw rows, keeping storage separate from the
// scoring that search.Engine layers on top.
package store

import (
	"context"
	"time"
)

// ConceptType classifies a Concept per the three-type extraction taxonomy:
// abstract ideas and methodologies are thematic, proper nouns and notation
// are terminology, abbreviations are acronyms.
type ConceptType string

const (
	ConceptThematic    ConceptType = "thematic"
	ConceptTerminology ConceptType = "terminology"
	ConceptAcronym     ConceptType = "acronym"
)

// Document is a catalog entry: one row per source document.
type Document struct {
	ID              uint64
	Source          string
	Title           string
	Summary         string
	PrimaryConcepts []string
	TechnicalTerms  []string
	CategoryIDs     []uint64
	Embedding       []float32
	OCRProcessed    bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (d Document) RowID() uint64 { return d.ID }

// Chunk is a passage extracted from a Document.
type Chunk struct {
	ID             uint64
	CatalogID      uint64
	Text           string
	Concepts       []string
	ConceptDensity float32
	Embedding      []float32
	Page           *uint32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (c Chunk) RowID() uint64 { return c.ID }

// Concept is a normalized named idea with sources, related concepts, and an
// embedding.
type Concept struct {
	ID              uint64
	Name            string
	ConceptType     ConceptType
	CategoryIDs     []uint64
	Sources         []uint64
	RelatedConcepts []string
	Synonyms        []string
	Hypernyms       []string
	Hyponyms        []string
	ChunkCount      uint32
	Embedding       []float32
	Weight          float32
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (c Concept) RowID() uint64 { return c.ID }

// Category is a coarse domain label, organized hierarchically.
type Category struct {
	ID        uint64
	Name      string
	Aliases   []string
	ParentID  *uint64
	Summary   string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Category) RowID() uint64 { return c.ID }

// PageImage is a described page render from the optional visual-extraction
// extension: one row per (catalog, page, variant), storing a vision-model
// description of the rendered page rather than the image bytes themselves.
// Not populated by the default seeding pipeline.
type PageImage struct {
	ID           uint64
	CatalogID    uint64
	Page         uint32
	VariantIndex uint32
	ImagePath    string
	Description  string
	Embedding    []float32
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p PageImage) RowID() uint64 { return p.ID }

// Identifiable lets generic collection code extract a row's primary key
// without a reflection pass over every entity.
type Identifiable interface {
	RowID() uint64
}

// VectorRow pairs a row with the distance vector_search found it at; lower
// distance is more similar.
type VectorRow[T any] struct {
	Item     T
	Distance float32
}

// FilterOp enumerates the exact/range filter operators filter_query allows:
// equality and containment on integer ids and strings.
type FilterOp int

const (
	FilterEq FilterOp = iota
	FilterNotEq
	FilterIn
	FilterContains // substring containment, used for concept-name lookups
	FilterGte
	FilterLte
)

// Filter is one AND-combined predicate term. FilterSet is the conjunction of
// its members — exact/range filters on integer ids and string equality,
// directly translatable to SQL by both the local and Postgres backends
// without a closure the query planner can't see inside.
type Filter struct {
	Column string
	Op     FilterOp
	Value  any
}

type FilterSet []Filter

func Eq(column string, value any) Filter      { return Filter{Column: column, Op: FilterEq, Value: value} }
func Contains(column string, value any) Filter {
	return Filter{Column: column, Op: FilterContains, Value: value}
}
func In(column string, values any) Filter { return Filter{Column: column, Op: FilterIn, Value: values} }

// Collection is the capability set every storage backend exposes for one
// entity type — a composition of narrow operations, not an inheritance
// hierarchy, per the design note that polymorphism here is a capability set.
type Collection[T Identifiable] interface {
	VectorSearch(ctx context.Context, queryVec []float32, limit int) ([]VectorRow[T], error)
	FilterQuery(ctx context.Context, filters FilterSet, limit int) ([]T, error)
	BatchUpsert(ctx context.Context, items []T) error
	BatchDelete(ctx context.Context, ids []uint64) error
	Count(ctx context.Context) (int, error)
	OpenOrCreate(ctx context.Context) error
	Close() error
}
