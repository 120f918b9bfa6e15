package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conceptrag/core/internal/config"
	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/llm"
	"github.com/conceptrag/core/internal/output"
	"github.com/conceptrag/core/internal/resilience"
	"github.com/conceptrag/core/internal/seed"
)

func newSeedCmd() *cobra.Command {
	var opts seed.Options
	var dbPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Scan, chunk, extract concepts from, and index a document corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.FilesDir == "" {
				return exitWithCode(2, fmt.Errorf("--filesdir is required"))
			}
			embedConceptsFlagSet := cmd.Flags().Changed("embed-concepts-from-context")
			return runSeed(cmd.Context(), opts, dbPath, embedConceptsFlagSet)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.FilesDir, "filesdir", "", "directory of source documents (required)")
	flags.BoolVar(&opts.Overwrite, "overwrite", false, "create missing tables and discard the checkpoint (existing rows are not dropped)")
	flags.BoolVar(&opts.RebuildConcepts, "rebuild-concepts", false, "rebuild concept index even if no new docs")
	flags.BoolVar(&opts.AutoReseed, "auto-reseed", false, "re-process docs with incomplete metadata")
	flags.BoolVar(&opts.Resume, "resume", false, "continue from checkpoint")
	flags.BoolVar(&opts.CleanCheckpoint, "clean-checkpoint", false, "discard checkpoint and start fresh")
	flags.BoolVar(&opts.RetryFailed, "retry-failed", false, "retry documents recorded in failed_hashes")
	flags.BoolVar(&opts.WithWordNet, "with-wordnet", false, "enable WordNet enrichment")
	flags.IntVar(&opts.MaxDocs, "max-docs", 0, "cap new docs processed (0 = unbounded)")
	flags.IntVar(&opts.Parallel, "parallel", 4, "worker concurrency (1-20)")
	flags.BoolVar(&opts.EmbedConceptsFromContext, "embed-concepts-from-context", false,
		"embed concepts from up to 5 example sentences instead of the bare name")
	flags.StringVar(&dbPath, "dbpath", "", "database location (overrides the config file's database.path)")

	return cmd
}

func runSeed(ctx context.Context, opts seed.Options, dbPath string, embedConceptsFlagSet bool) error {
	out := output.New(os.Stdout)

	cfg, err := config.Load(".")
	if err != nil {
		return exitWithCode(2, fmt.Errorf("load config: %w", err))
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	cfg.Search.WithWordNet = cfg.Search.WithWordNet || opts.WithWordNet
	if opts.Parallel > 0 {
		cfg.Enrichment.Parallel = opts.Parallel
	}
	// The config file's embed_concepts_from_context is the default; the
	// flag only overrides it when the caller actually passed it.
	if !embedConceptsFlagSet {
		opts.EmbedConceptsFromContext = cfg.Enrichment.EmbedConceptsFromText
	}

	deps, closeDeps, err := buildSeedDependencies(ctx, cfg)
	if err != nil {
		return exitWithCode(4, err)
	}
	defer closeDeps()

	out.Status("→", fmt.Sprintf("seeding %s", opts.FilesDir))
	result, err := seed.New(opts, deps).Run(ctx)
	if err != nil {
		out.Error(err.Error())
		return exitWithCode(4, err)
	}

	out.Successf("processed %d document(s), wrote %d chunk(s), indexed %d concept(s)",
		result.DocumentsProcessed, result.ChunksWritten, result.ConceptsIndexed)

	if len(result.Failed) > 0 {
		out.Newline()
		out.Warningf("%d document(s) failed extraction:", len(result.Failed))
		for _, f := range result.Failed {
			out.Status("✗", fmt.Sprintf("%s: %s", f.Source, f.Error))
		}
		return exitWithCode(3, fmt.Errorf("%d document(s) failed", len(result.Failed)))
	}

	return nil
}

// buildSeedDependencies wires the four collections, embedder, LLM
// extractor, and resilience executor a Pipeline run needs.
func buildSeedDependencies(ctx context.Context, cfg *config.Config) (seed.Dependencies, func(), error) {
	cols, err := openCollections(ctx, cfg)
	if err != nil {
		return seed.Dependencies{}, nil, err
	}

	embedder, err := embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err != nil {
		return seed.Dependencies{}, nil, fmt.Errorf("init embedder: %w", err)
	}

	llmClient := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.ConceptModel,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})

	executor := resilience.NewExecutor()
	executor.Register("llm.extract_concepts", resilience.LLMAPIProfile())
	executor.Register("llm.summarize_category", resilience.LLMAPIProfile())

	checkpoint := enrich.NewCheckpointStore(cfg.Database.CheckpointPath)

	deps := seed.Dependencies{
		Documents:  cols.Documents,
		Chunks:     cols.Chunks,
		Concepts:   cols.Concepts,
		Categories: cols.Categories,
		Embedder:   embedder,
		Completer:  llmClient,
		Executor:   executor,
		Checkpoint: checkpoint,
	}

	closeFn := func() {
		cols.Close()
		_ = embedder.Close()
	}
	return deps, closeFn, nil
}
