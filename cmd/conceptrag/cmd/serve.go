package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	"github.com/conceptrag/core/internal/cache"
	"github.com/conceptrag/core/internal/config"
	"github.com/conceptrag/core/internal/embed"
	"github.com/conceptrag/core/internal/enrich"
	"github.com/conceptrag/core/internal/httpapi"
	"github.com/conceptrag/core/internal/llm"
	"github.com/conceptrag/core/internal/logging"
	"github.com/conceptrag/core/internal/mcp"
	"github.com/conceptrag/core/internal/resilience"
	"github.com/conceptrag/core/internal/search"
	"github.com/conceptrag/core/internal/telemetry"
	"github.com/conceptrag/core/internal/wordnet"
)

func newServeCmd() *cobra.Command {
	var transport string
	var httpAddr string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the indexed corpus over MCP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), transport, httpAddr, logLevel)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "bind address for the /healthz and /metrics ops surface (overrides config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "debug", "log level for MCP-mode file logging (debug, info, warn, error)")

	return cmd
}

// runServe wires the search engine, the MCP server, and the ambient ops
// HTTP surface on top of the already-built internal/mcp.Server.Serve,
// following NewServer's own validation contract for composition order.
func runServe(ctx context.Context, transport, httpAddr, logLevel string) error {
	cleanup, err := logging.SetupMCPModeWithLevel(logLevel)
	if err != nil {
		return fmt.Errorf("setup MCP-mode logging: %w", err)
	}
	defer cleanup()

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if transport != "" {
		cfg.Server.Transport = transport
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddr = httpAddr
	}

	cols, err := openCollections(ctx, cfg)
	if err != nil {
		return err
	}
	defer cols.Close()

	embedder, err := embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	defer embedder.Close()

	executor := resilience.NewExecutor()
	executor.Register("llm.extract_concepts", resilience.LLMAPIProfile())
	executor.Register("llm.summarize_category", resilience.LLMAPIProfile())
	executor.Register("search.catalog_search", resilience.SearchProfile())

	engineConfig := search.DefaultConfig()
	engineConfig.DefaultLimit = cfg.Search.DefaultLimit
	engineConfig.MaxLimit = cfg.Search.MaxLimit
	engineConfig.Weights = search.Weights{
		Vector:  cfg.Search.VectorWeight,
		BM25:    cfg.Search.BM25Weight,
		Title:   cfg.Search.TitleWeight,
		Concept: cfg.Search.ConceptWeight,
		WordNet: cfg.Search.WordNetWeight,
	}

	var wordnetSrc wordnet.Source
	if cfg.Search.WithWordNet {
		wordnetSrc = wordnet.DefaultSource()
	}

	results := cache.NewInProcessResultCache(cache.DefaultSearchResultCacheSize, cache.DefaultSearchResultTTL)

	metrics, closeMetrics, err := openQueryMetrics(cfg.Database.Path)
	if err != nil {
		slog.Warn("query metrics disabled", slog.String("error", err.Error()))
	} else {
		defer closeMetrics()
	}

	engine, err := search.NewEngine(cols.Documents, cols.Chunks, cols.Concepts, embedder, wordnetSrc, engineConfig,
		search.WithResultCache(results), search.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("init search engine: %w", err)
	}
	defer engine.Close()

	llmClient := llm.New(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.ConceptModel,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	extractor := enrich.NewLLMExtractor(llmClient, executor)

	server, err := mcp.NewServer(engine, cols.Documents, cols.Chunks, cols.Concepts, cols.Categories, extractor, embedder, cfg)
	if err != nil {
		return fmt.Errorf("init MCP server: %w", err)
	}
	defer server.Close()
	if metrics != nil {
		server.SetMetrics(metrics)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	httpServer := httpapi.New(cfg.Server.HTTPAddr, executor)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return httpServer.Run(gctx) })
	group.Go(func() error {
		err := server.Serve(gctx, cfg.Server.Transport)
		cancel() // MCP exit (e.g. client disconnect) should also stop the HTTP surface
		return err
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped with error", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// openQueryMetrics opens a second connection to the shared catalog database
// for query telemetry (query type counts, top terms, zero-result queries,
// latency histogram), separate from the four collections' own connections
// since SQLiteMetricsStore owns its own table set and flush cadence. An
// empty dbPath (in-memory catalog) disables persistence; metrics are then
// kept in-process only.
func openQueryMetrics(dbPath string) (*telemetry.QueryMetrics, func(), error) {
	if dbPath == "" {
		return telemetry.NewQueryMetrics(nil), func() {}, nil
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry database: %w", err)
	}
	if err := telemetry.InitTelemetrySchema(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init telemetry schema: %w", err)
	}
	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("init telemetry store: %w", err)
	}
	metrics := telemetry.NewQueryMetrics(metricsStore)
	return metrics, func() {
		_ = metrics.Close()
		_ = db.Close()
	}, nil
}
