// Package seed implements the seeding pipeline: walk a directory of source
// documents, chunk them, extract concepts via the enrichment pipeline,
// build the concept and category collections, embed everything, and
// persist the result — a resumable, checkpointed pass over an arbitrary
// document corpus, generalized from a single code-repository scan.
package seed

import (
	"time"

	"github.com/conceptrag/core/internal/async"
	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/resilience"
	"github.com/conceptrag/core/internal/store"
)

// Options configures one seeding run, mirroring the seed CLI's flag table.
type Options struct {
	FilesDir string // required: directory of source documents

	Overwrite       bool // ensure all tables exist and discard the checkpoint; existing tables and rows are not dropped
	RebuildConcepts bool // rebuild the concept index even if no new docs
	AutoReseed      bool // re-process docs with incomplete metadata
	Resume          bool // skip documents whose hash is in the checkpoint
	CleanCheckpoint bool // discard the checkpoint and start fresh
	RetryFailed     bool // re-attempt documents in the checkpoint's failed_hashes
	WithWordNet     bool // enable WordNet enrichment (consumed by the search layer, carried here for config symmetry)

	MaxDocs  int // 0 means unbounded
	Parallel int // worker concurrency, clamped to [1,20]

	EmbedConceptsFromContext bool // embed concepts from example sentences instead of bare name
}

// Dependencies are the collaborators a Pipeline needs — everything here is
// interface-typed so a Pipeline can run against fakes in tests.
type Dependencies struct {
	Documents  store.Collection[store.Document]
	Chunks     store.Collection[store.Chunk]
	Concepts   store.Collection[store.Concept]
	Categories store.Collection[store.Category]

	Embedder  embed.Embedder
	Completer enrich.Completer
	Executor  *resilience.Executor

	Checkpoint *enrich.CheckpointStore

	// Progress receives stage/count updates; nil disables reporting.
	Progress *async.IndexProgress
}

// FailedDocument is one document the pipeline could not extract concepts
// for, surfaced so the CLI can print the exit-code-3 summary table.
type FailedDocument struct {
	Source string
	Error  string
}

// Result is the outcome of one Pipeline.Run call.
type Result struct {
	FilesScanned       int
	DocumentsProcessed int
	DocumentsSkipped   int // skipped via --resume, an unretried failed_hashes entry, or the MaxDocs cap
	DocumentsFailed    int
	ChunksWritten      int
	ConceptsIndexed    int
	CategoriesWritten  int
	Duration           time.Duration
	Resumed            bool
	Failed             []FailedDocument
}
