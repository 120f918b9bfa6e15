package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/conceptrag/core/internal/async"
	"github.com/conceptrag/core/internal/chunk"
	"github.com/conceptrag/core/internal/enrich"
)

// Pipeline runs one seeding pass: scan, chunk, extract, enrich, index,
// embed — a staged-runner shape generalized from a code repository to a
// document corpus, with concept/category stages a code-indexing pipeline
// never needed.
type Pipeline struct {
	opts Options
	deps Dependencies

	chunkers []chunk.Chunker
}

// New constructs a Pipeline, clamping Parallel into the allowed [1,20]
// range and defaulting it to 4 when unset.
func New(opts Options, deps Dependencies) *Pipeline {
	switch {
	case opts.Parallel <= 0:
		opts.Parallel = 4
	case opts.Parallel > 20:
		opts.Parallel = 20
	}

	return &Pipeline{
		opts: opts,
		deps: deps,
		chunkers: []chunk.Chunker{
			chunk.NewMarkdownChunker(),
			chunk.NewTextChunker(),
		},
	}
}

// Run executes the pipeline end to end. A non-nil error is fatal (exit
// code 4 at the CLI); a nil error with a non-empty Result.Failed is the
// partial-failure case (exit code 3).
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	if p.opts.Overwrite {
		if err := p.recreateCollections(ctx); err != nil {
			return nil, fmt.Errorf("overwrite collections: %w", err)
		}
	}

	checkpoint, resumed, err := p.loadCheckpoint()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	result.Resumed = resumed

	p.reportStage(async.StageScanning, 0)
	files, err := scanFiles(p.opts.FilesDir, p.chunkers)
	if err != nil {
		return nil, err
	}
	result.FilesScanned = len(files)
	p.reportStage(async.StageScanning, len(files))
	p.reportFiles(len(files))

	incomplete, err := p.incompleteMetadataDocuments(ctx)
	if err != nil {
		return nil, err
	}

	queue := p.selectDocuments(files, checkpoint, incomplete)
	result.DocumentsSkipped += len(files) - len(queue)
	if p.opts.MaxDocs > 0 && len(queue) > p.opts.MaxDocs {
		result.DocumentsSkipped += len(queue) - p.opts.MaxDocs
		queue = queue[:p.opts.MaxDocs]
	}

	p.reportStage(async.StageChunking, len(queue))
	docChunks, chunksTotal, err := p.chunkQueue(ctx, queue)
	if err != nil {
		return nil, err
	}
	p.reportChunksTotal(chunksTotal)

	p.reportStage(async.StageEmbedding, len(queue))
	extractionInputs := make([]enrich.ExtractionInput, len(queue))
	for i, f := range queue {
		extractionInputs[i] = enrich.ExtractionInput{Source: f.path, ContentHash: f.contentHash, Text: string(f.content)}
	}

	extractor := enrich.NewLLMExtractor(p.deps.Completer, p.deps.Executor)
	limiter := enrich.NewRateLimiter(enrich.DefaultMinInterval)
	pool := enrich.NewWorkerPool(extractor, limiter, p.opts.Parallel)

	outputs := pool.Run(ctx, extractionInputs, func(completed, total int, source string) {
		p.reportFiles(completed)
		slog.Info("seed_extract_progress", slog.Int("completed", completed), slog.Int("total", total), slog.String("source", source))
	})

	checkpoint = enrich.RecordBatch(checkpoint, outputs)
	if err := p.deps.Checkpoint.Save(checkpoint); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}

	p.reportStage(async.StageIndexing, len(queue))
	if err := p.persist(ctx, queue, docChunks, outputs, result); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	if len(result.Failed) > 0 {
		p.reportError(fmt.Sprintf("%d document(s) failed extraction", len(result.Failed)))
	} else {
		p.reportReady()
	}
	return result, nil
}

func (p *Pipeline) recreateCollections(ctx context.Context) error {
	for _, c := range []interface{ OpenOrCreate(context.Context) error }{
		p.deps.Documents, p.deps.Chunks, p.deps.Concepts, p.deps.Categories,
	} {
		if err := c.OpenOrCreate(ctx); err != nil {
			return err
		}
	}
	return p.deps.Checkpoint.Discard()
}

func (p *Pipeline) loadCheckpoint() (enrich.Checkpoint, bool, error) {
	if p.opts.CleanCheckpoint {
		if err := p.deps.Checkpoint.Discard(); err != nil {
			return enrich.Checkpoint{}, false, err
		}
	}
	cp, err := p.deps.Checkpoint.Load()
	if err != nil {
		return enrich.Checkpoint{}, false, err
	}
	resumed := p.opts.Resume && len(cp.ProcessedHashes) > 0
	return cp, resumed, nil
}

// selectDocuments drops files already processed (when --resume) and files
// with an unretried failure (unless --retry-failed), per the open-question
// decision recorded in DESIGN.md. A file that --resume would otherwise skip
// is kept anyway when --auto-reseed is set and incomplete reports it as
// missing concept or category metadata from a prior run.
func (p *Pipeline) selectDocuments(files []sourceFile, cp enrich.Checkpoint, incomplete map[string]bool) []sourceFile {
	failed := make(map[string]bool, len(cp.FailedHashes))
	for _, f := range cp.FailedHashes {
		failed[f.Hash] = true
	}

	var queue []sourceFile
	for _, f := range files {
		if p.opts.Resume && cp.ProcessedHashes[f.contentHash] && !incomplete[f.path] {
			continue
		}
		if !p.opts.RetryFailed && failed[f.contentHash] {
			continue
		}
		queue = append(queue, f)
	}
	return queue
}

// incompleteMetadataDocuments scans the existing catalog for documents with
// no primary concepts or no resolved category — the state a document is
// left in when concept extraction failed partway through a prior run, or
// when it was seeded before category resolution existed. Returns nil when
// --auto-reseed wasn't requested, since the scan is an extra pass over the
// whole document collection.
func (p *Pipeline) incompleteMetadataDocuments(ctx context.Context) (map[string]bool, error) {
	if !p.opts.AutoReseed {
		return nil, nil
	}
	docs, err := p.deps.Documents.FilterQuery(ctx, nil, 1<<30)
	if err != nil {
		return nil, fmt.Errorf("scan documents for auto-reseed: %w", err)
	}
	incomplete := make(map[string]bool)
	for _, d := range docs {
		if len(d.PrimaryConcepts) == 0 || len(d.CategoryIDs) == 0 {
			incomplete[d.Source] = true
		}
	}
	return incomplete, nil
}

func (p *Pipeline) chunkQueue(ctx context.Context, queue []sourceFile) (map[string][]*chunk.Chunk, int, error) {
	byPath := make(map[string][]*chunk.Chunk, len(queue))
	total := 0
	for _, f := range queue {
		chunks, err := chunkFile(ctx, f, p.chunkers)
		if err != nil {
			return nil, 0, fmt.Errorf("chunk %s: %w", f.path, err)
		}
		byPath[f.path] = chunks
		total += len(chunks)
	}
	return byPath, total, nil
}

func (p *Pipeline) reportStage(stage async.IndexingStage, total int) {
	if p.deps.Progress != nil {
		p.deps.Progress.SetStage(stage, total)
	}
}

func (p *Pipeline) reportFiles(n int) {
	if p.deps.Progress != nil {
		p.deps.Progress.UpdateFiles(n)
	}
}

func (p *Pipeline) reportChunksTotal(n int) {
	if p.deps.Progress != nil {
		p.deps.Progress.SetChunksTotal(n)
	}
}

func (p *Pipeline) reportReady() {
	if p.deps.Progress != nil {
		p.deps.Progress.SetReady()
	}
}

func (p *Pipeline) reportError(msg string) {
	if p.deps.Progress != nil {
		p.deps.Progress.SetError(msg)
	}
}
