// Package codeatlas provides a library for indexing Git repositories and
// answering natural-language queries about their code.
//
// CodeAtlas mirrors configured repositories, extracts a structured model of
// their source (files, symbols, relationships, chunks, embeddings), and
// serves a single unified query entry point backed by hybrid retrieval
// (lexical full-text + dense vector + graph re-ranking).
//
// Basic usage:
//
//	cfg, err := config.LoadConfig(".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client, err := codeatlas.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.Query(ctx, service.QueryRequest{
//	    Repository: "demo",
//	    Text:       "Where is the UserService class?",
//	})
package codeatlas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/infrastructure/chunking"
	"github.com/codeatlas-ai/codeatlas/infrastructure/embedding"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language/semantic"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language/textual"
	"github.com/codeatlas-ai/codeatlas/infrastructure/persistence"
	"github.com/codeatlas-ai/codeatlas/internal/config"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

// Client is the main entry point for the codeatlas library.
type Client struct {
	cfg      config.AppConfig
	db       database.Database
	tracker  *git.Tracker
	indexer  *service.Indexer
	queries  *service.QueryService
	sweep    *service.StalenessSweep
	stores   service.Stores
	embedder *embedding.Client
	logger   *slog.Logger
	closed   atomic.Bool
}

// New builds a Client from validated configuration, applying any functional
// options first. The database is opened and migrated; mirrors are cloned
// lazily by Initialize.
func New(cfg config.AppConfig, opts ...Option) (*Client, error) {
	options := newClientOptions()
	for _, opt := range opts {
		opt(options)
	}

	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.WorkingDirectory(), 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	ctx := context.Background()

	dbURL := options.databaseURL
	if dbURL == "" {
		dbURL = cfg.Database().URL(cfg.WorkingDirectory())
	}
	db, err := database.NewDatabase(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.ConfigurePool(cfg.Database().MinPool(), cfg.Database().MaxPool(), 0); err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	var embedder *embedding.Client
	vectorDims := 0
	if cfg.Embedding().IsConfigured() {
		embedder = embedding.NewClient(embedding.Config{
			ServiceURL: cfg.Embedding().ServiceURL(),
			APIKey:     cfg.Embedding().APIKey(),
			Model:      cfg.Embedding().Model(),
			BatchSize:  cfg.Embedding().BatchSize(),
			Timeout:    cfg.Embedding().Timeout(),
			MaxRetries: 2,
		}, logger)

		// Probe the dimensionality so the vector column and index can be
		// typed. An offline embedder leaves the column untyped; retrieval
		// degrades to the sparse path until a later restart.
		if probe := embedder.TryGenerateQuery(ctx, "dimension probe"); probe.Success {
			vectorDims = probe.Dims
		} else {
			logger.Warn("embedder unavailable at startup, continuing sparse-only",
				slog.String("error", probe.ErrorMessage),
			)
		}
	}

	if err := persistence.PostMigrate(db, vectorDims); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("post migrate: %w", err), errClose)
	}

	stores := service.Stores{
		Branches:     persistence.NewBranchStore(db),
		Commits:      persistence.NewCommitStore(db),
		Files:        persistence.NewFileStore(db),
		Symbols:      persistence.NewSymbolStore(db),
		Edges:        persistence.NewEdgeStore(db),
		SearchRows:   persistence.NewSearchEntryStore(db),
		Fingerprints: persistence.NewFingerprintStore(db),
		Chunks:       persistence.NewChunkStore(db),
		Embeddings:   persistence.NewEmbeddingStore(db),
	}

	tracker, err := git.NewTracker(cfg, persistence.NewRepositoryStore(db), stores.Branches, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	parsers := language.NewRegistry(append(textual.All(), semantic.NewCSharpParser())...)
	detector := language.NewDetector(cfg.IncludeExtensions())
	chunker := chunking.NewChunker(chunking.Params{
		ContextLinesBefore: cfg.ContextLinesBefore(),
		ContextLinesAfter:  cfg.ContextLinesAfter(),
		MaxChunkChars:      cfg.MaxChunkChars(),
	})

	indexer := service.NewIndexer(tracker, detector, parsers, chunker, embedder, stores, cfg.FileReadConcurrency(), logger)

	budgets := search.NewBudgets(cfg.MaxResponseResults(), cfg.MaxResponseSnippetChars(), cfg.MaxResponseBytes())
	queries := service.NewQueryService(tracker, indexer, stores, embedder, budgets, cfg.MaxResults(), logger)

	sweep := service.NewStalenessSweep(tracker, cfg.SweepInterval(), cfg.StaleBranchAfter(), logger)

	return &Client{
		cfg:      cfg,
		db:       db,
		tracker:  tracker,
		indexer:  indexer,
		queries:  queries,
		sweep:    sweep,
		stores:   stores,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Initialize ensures every configured repository has a local mirror and
// starts the background staleness sweep.
func (c *Client) Initialize(ctx context.Context) error {
	if c.closed.Load() {
		return service.ErrClientClosed
	}
	if err := c.tracker.Initialize(ctx); err != nil {
		return err
	}
	c.sweep.Start(ctx)
	return nil
}

// Query answers a natural-language query against one repository branch.
func (c *Client) Query(ctx context.Context, req service.QueryRequest) (search.Response, error) {
	if c.closed.Load() {
		return search.Response{}, service.ErrClientClosed
	}
	return c.queries.Query(ctx, req)
}

// IndexBranch brings one branch up to date eagerly (the query path indexes
// lazily on demand).
func (c *Client) IndexBranch(ctx context.Context, repoName, branchName string) error {
	if c.closed.Load() {
		return service.ErrClientClosed
	}
	repo, err := c.tracker.Repository(ctx, repoName)
	if err != nil {
		return err
	}
	branch, err := c.tracker.EnsureBranchTracked(ctx, repo, branchName)
	if err != nil {
		return err
	}
	_, _, err = c.indexer.IndexBranch(ctx, repo, branch)
	return err
}

// Tracker exposes the git tracker for transport facades.
func (c *Client) Tracker() *git.Tracker { return c.tracker }

// QueryService exposes the orchestrator for transport facades.
func (c *Client) QueryService() *service.QueryService { return c.queries }

// Indexer exposes the indexing pipeline for the benchmark harness.
func (c *Client) Indexer() *service.Indexer { return c.indexer }

// Stores exposes the persistence stores for the benchmark harness.
func (c *Client) Stores() service.Stores { return c.stores }

// Config returns the resolved configuration.
func (c *Client) Config() config.AppConfig { return c.cfg }

// Close stops background work and closes the database.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.sweep.Stop()
	return c.db.Close()
}
