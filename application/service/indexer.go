package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/chunking"
	"github.com/codeatlas-ai/codeatlas/infrastructure/embedding"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
	"github.com/codeatlas-ai/codeatlas/infrastructure/language"
)

// Stores bundles every persistence dependency of the indexer.
type Stores struct {
	Branches     repository.BranchStore
	Commits      repository.CommitStore
	Files        repository.FileStore
	Symbols      symbol.SymbolStore
	Edges        symbol.EdgeStore
	SearchRows   symbol.SearchEntryStore
	Fingerprints symbol.FingerprintStore
	Chunks       chunk.ChunkStore
	Embeddings   chunk.EmbeddingStore
}

// IndexStats summarizes one indexing run.
type IndexStats struct {
	FilesProcessed int
	FilesDeleted   int
	SymbolCount    int
	EdgeCount      int
	ChunkCount     int
	EmbeddingCount int
	EdgesResolved  int64
	EmbedderDown   bool
}

// Indexer runs the ingest pipeline for one branch at a time per
// (repository, branch): enumerate changes, parse, chunk, embed, persist.
type Indexer struct {
	tracker  *git.Tracker
	detector language.Detector
	parsers  *language.Registry
	chunker  chunking.Chunker
	embedder *embedding.Client // nil in sparse-only deployments
	stores   Stores

	fileConcurrency int
	logger          *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightRun
}

// inflightRun lets concurrent requests for the same branch await the single
// in-flight indexing operation.
type inflightRun struct {
	done   chan struct{}
	branch repository.Branch
	stats  IndexStats
	err    error
}

// NewIndexer creates an Indexer. embedder may be nil; chunks then persist
// without embeddings and retrieval runs sparse-only.
func NewIndexer(
	tracker *git.Tracker,
	detector language.Detector,
	parsers *language.Registry,
	chunker chunking.Chunker,
	embedder *embedding.Client,
	stores Stores,
	fileConcurrency int,
	logger *slog.Logger,
) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if fileConcurrency <= 0 {
		fileConcurrency = 4
	}
	return &Indexer{
		tracker:         tracker,
		detector:        detector,
		parsers:         parsers,
		chunker:         chunker,
		embedder:        embedder,
		stores:          stores,
		fileConcurrency: fileConcurrency,
		logger:          logger,
		inflight:        make(map[string]*inflightRun),
	}
}

// IndexBranch brings a branch's index up to its current head. At most one
// indexing operation per (repository, branch) runs at a time; concurrent
// callers await the in-flight run and share its outcome.
func (ix *Indexer) IndexBranch(ctx context.Context, repo repository.Repository, branch repository.Branch) (repository.Branch, IndexStats, error) {
	key := fmt.Sprintf("%d/%s", repo.ID(), branch.Name())

	ix.mu.Lock()
	if run, ok := ix.inflight[key]; ok {
		ix.mu.Unlock()
		select {
		case <-run.done:
			return run.branch, run.stats, run.err
		case <-ctx.Done():
			return branch, IndexStats{}, ctx.Err()
		}
	}
	run := &inflightRun{done: make(chan struct{})}
	ix.inflight[key] = run
	ix.mu.Unlock()

	defer func() {
		ix.mu.Lock()
		delete(ix.inflight, key)
		ix.mu.Unlock()
		close(run.done)
	}()

	run.branch, run.stats, run.err = ix.indexBranch(ctx, repo, branch)
	return run.branch, run.stats, run.err
}

func (ix *Indexer) indexBranch(ctx context.Context, repo repository.Repository, branch repository.Branch) (repository.Branch, IndexStats, error) {
	var stats IndexStats

	branch, err := ix.tracker.RefreshHead(ctx, repo, branch)
	if err != nil {
		return branch, stats, err
	}
	if branch.IsUpToDate() && branch.State() == repository.IndexStateCompleted {
		return branch, stats, nil
	}

	head := branch.HeadSHA()
	branch, err = ix.stores.Branches.Save(ctx, branch.StartIndexing())
	if err != nil {
		return branch, stats, err
	}

	branch, stats, err = ix.runPipeline(ctx, repo, branch, head)
	if err != nil {
		// Cancellation and transient git errors leave the cursor untouched;
		// the next request retries. Everything else marks the branch Failed.
		if ctx.Err() == nil && !git.IsTransient(err) {
			if failed, saveErr := ix.stores.Branches.Save(ctx, branch.MarkFailed()); saveErr == nil {
				branch = failed
			}
		}
		return branch, stats, err
	}

	branch, err = ix.tracker.MarkIndexed(ctx, branch, head)
	if err != nil {
		return branch, stats, err
	}

	ix.logger.Info("branch indexed",
		slog.String("repository", repo.Name()),
		slog.String("branch", branch.Name()),
		slog.String("head", head),
		slog.Int("files", stats.FilesProcessed),
		slog.Int("symbols", stats.SymbolCount),
		slog.Int("chunks", stats.ChunkCount),
	)
	return branch, stats, nil
}

// parsedFile pairs a file change with its parse output.
type parsedFile struct {
	change   repository.FileChange
	language string
	result   language.ParseResult
}

func (ix *Indexer) runPipeline(ctx context.Context, repo repository.Repository, branch repository.Branch, head string) (repository.Branch, IndexStats, error) {
	var stats IndexStats

	changes, err := ix.tracker.FileChanges(ctx, repo, branch)
	if err != nil {
		return branch, stats, err
	}
	if len(changes) == 0 {
		return branch, stats, nil
	}

	if info, err := ix.tracker.CommitInfo(repo.Name(), head); err == nil {
		commit := repository.NewCommit(
			repo.ID(), info.SHA, branch.Name(),
			repository.NewAuthor(info.AuthorName, info.AuthorEmail),
			info.Message, info.CommittedAt,
		)
		if _, err := ix.stores.Commits.Save(ctx, commit); err != nil {
			return branch, stats, fmt.Errorf("save commit: %w", err)
		}
	}

	// Reclaim derived rows for every touched path before writing new ones.
	for _, change := range changes {
		if err := ix.deleteDerived(ctx, repo.ID(), branch.Name(), change.Path()); err != nil {
			return branch, stats, err
		}
		if change.Kind() == repository.ChangeDeleted {
			stats.FilesDeleted++
		}
	}

	// Parse phase: pure CPU, parallel across files on a bounded pool.
	var toParse []repository.FileChange
	for _, change := range changes {
		if change.Kind() != repository.ChangeDeleted && change.Content() != nil {
			toParse = append(toParse, change)
		}
	}

	parsed := make([]parsedFile, len(toParse))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(ix.fileConcurrency)
	for i, change := range toParse {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			lang := ix.detector.Detect(change.Path(), change.Content())
			result := ix.parsers.Parse(gctx, language.ParseInput{
				RepoID:    repo.ID(),
				Branch:    branch.Name(),
				CommitSHA: head,
				Path:      change.Path(),
				Content:   change.Content(),
				Language:  lang,
			})
			if !result.Success {
				// Parser errors stay isolated to their file.
				ix.logger.Warn("parse failed",
					slog.String("path", change.Path()),
					slog.String("error", result.ErrorMessage),
				)
			}
			parsed[i] = parsedFile{change: change, language: lang, result: result}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return branch, stats, err
	}

	// Persistence phase: within one file writes are ordered
	// File -> Symbols -> Edges -> Chunks -> Embeddings.
	embedderDown := false
	for _, pf := range parsed {
		if err := ctx.Err(); err != nil {
			return branch, stats, err
		}
		fileStats, down, err := ix.persistFile(ctx, repo, branch, head, pf, embedderDown)
		if err != nil {
			return branch, stats, err
		}
		embedderDown = embedderDown || down
		stats.FilesProcessed++
		stats.SymbolCount += fileStats.SymbolCount
		stats.EdgeCount += fileStats.EdgeCount
		stats.ChunkCount += fileStats.ChunkCount
		stats.EmbeddingCount += fileStats.EmbeddingCount
	}
	stats.EmbedderDown = embedderDown

	// Cross-file edge resolution reads the fully committed symbol table,
	// once per branch index.
	resolved, err := ix.stores.Edges.ResolveTargets(ctx, repo.ID(), branch.Name())
	if err != nil {
		return branch, stats, fmt.Errorf("resolve edges: %w", err)
	}
	stats.EdgesResolved = resolved

	return branch, stats, nil
}

// persistFile writes one file's rows in pipeline order. Returns per-file
// stats and whether the embedder reported a transient failure.
func (ix *Indexer) persistFile(ctx context.Context, repo repository.Repository, branch repository.Branch, head string, pf parsedFile, skipEmbeddings bool) (IndexStats, bool, error) {
	var stats IndexStats

	file := repository.NewFile(repo.ID(), branch.Name(), head, pf.change.Path(), pf.language, pf.change.Content())
	if err := ix.stores.Files.SaveBatch(ctx, []repository.File{file}); err != nil {
		return stats, false, fmt.Errorf("save file %s: %w", pf.change.Path(), err)
	}

	if !pf.result.Success {
		return stats, false, nil
	}

	saved, err := ix.stores.Symbols.SaveBatch(ctx, pf.result.Symbols)
	if err != nil {
		return stats, false, fmt.Errorf("save symbols %s: %w", pf.change.Path(), err)
	}
	stats.SymbolCount = len(saved)

	// Parent references become ids now that the batch is saved. Parents
	// precede children, so every referenced index is already assigned.
	var withParents []symbol.Symbol
	for i, parentIdx := range pf.result.ParentIndex {
		if parentIdx >= 0 && parentIdx < len(saved) {
			saved[i] = saved[i].WithParentID(saved[parentIdx].ID())
			withParents = append(withParents, saved[i])
		}
	}
	if len(withParents) > 0 {
		if _, err := ix.stores.Symbols.SaveBatch(ctx, withParents); err != nil {
			return stats, false, fmt.Errorf("save symbol parents %s: %w", pf.change.Path(), err)
		}
	}

	edges := make([]symbol.Edge, 0, len(pf.result.Edges))
	for _, spec := range pf.result.Edges {
		if spec.SourceIndex < 0 || spec.SourceIndex >= len(saved) {
			continue
		}
		edge := symbol.NewEdge(
			saved[spec.SourceIndex].ID(), spec.TargetName, spec.Kind,
			repo.ID(), branch.Name(), head, pf.change.Path(), spec.Line,
		)
		if spec.TargetIndex >= 0 && spec.TargetIndex < len(saved) {
			edge = edge.WithTargetID(saved[spec.TargetIndex].ID())
		}
		edges = append(edges, edge)
	}
	if err := ix.stores.Edges.SaveBatch(ctx, edges); err != nil {
		return stats, false, fmt.Errorf("save edges %s: %w", pf.change.Path(), err)
	}
	stats.EdgeCount = len(edges)

	if err := ix.persistSparseRows(ctx, saved, pf.change.Content()); err != nil {
		return stats, false, err
	}

	parentNames := make(map[int64]string)
	for i, parentIdx := range pf.result.ParentIndex {
		if parentIdx >= 0 && parentIdx < len(saved) {
			parentNames[saved[i].ID()] = saved[parentIdx].Name()
		}
	}

	chunks := ix.chunker.ChunkFile(
		repo.ID(), branch.Name(), head, pf.change.Path(), pf.language,
		pf.change.Content(), saved, parentNames,
	)
	savedChunks, err := ix.stores.Chunks.SaveBatch(ctx, chunks)
	if err != nil {
		return stats, false, fmt.Errorf("save chunks %s: %w", pf.change.Path(), err)
	}
	stats.ChunkCount = len(savedChunks)

	if ix.embedder == nil || skipEmbeddings || len(savedChunks) == 0 {
		return stats, skipEmbeddings, nil
	}

	texts := make([]string, len(savedChunks))
	for i, c := range savedChunks {
		texts[i] = c.Content()
	}
	res := ix.embedder.TryGenerateChunks(ctx, texts)
	if !res.Success {
		// Graceful degradation: chunks stay searchable through the lexical
		// path; a later re-index fills the missing vectors.
		ix.logger.Warn("embedding generation failed",
			slog.String("path", pf.change.Path()),
			slog.Bool("transient", res.Transient),
			slog.String("error", res.ErrorMessage),
		)
		return stats, res.Transient, nil
	}

	embeddings := make([]chunk.Embedding, 0, len(savedChunks))
	for i, c := range savedChunks {
		if i < len(res.Vectors) {
			embeddings = append(embeddings, chunk.NewEmbedding(c, res.Vectors[i], ix.embedder.Model(), ""))
		}
	}
	if err := ix.stores.Embeddings.SaveBatch(ctx, embeddings); err != nil {
		return stats, false, fmt.Errorf("save embeddings %s: %w", pf.change.Path(), err)
	}
	stats.EmbeddingCount = len(embeddings)

	return stats, false, nil
}

// persistSparseRows writes the sparse search entries and fingerprints
// produced alongside the symbols.
func (ix *Indexer) persistSparseRows(ctx context.Context, symbols []symbol.Symbol, content []byte) error {
	if len(symbols) == 0 {
		return nil
	}
	lines := strings.Split(string(content), "\n")

	entries := make([]symbol.SearchEntry, 0, len(symbols))
	fingerprints := make([]symbol.Fingerprint, 0, len(symbols))
	for _, sym := range symbols {
		snippet := symbolSnippet(lines, sym)
		literals := extractLiterals(snippet)
		entries = append(entries, symbol.NewSearchEntry(sym, literals, snippet))

		bits := symbol.Simhash(sym.Name(), sym.Signature(), snippet)
		fingerprints = append(fingerprints, symbol.NewFingerprint(sym, symbol.FingerprintSimhash, bits))
	}

	if err := ix.stores.SearchRows.SaveBatch(ctx, entries); err != nil {
		return fmt.Errorf("save search entries: %w", err)
	}
	if err := ix.stores.Fingerprints.SaveBatch(ctx, fingerprints); err != nil {
		return fmt.Errorf("save fingerprints: %w", err)
	}
	return nil
}

// deleteDerived reclaims every row derived from one file path.
func (ix *Indexer) deleteDerived(ctx context.Context, repoID int64, branchName, path string) error {
	base := []repository.Option{
		repository.WithCondition("repo_id", repoID),
		repository.WithBranch(branchName),
	}
	filePath := append(append([]repository.Option(nil), base...), repository.WithFilePath(path))

	symbols, err := ix.stores.Symbols.Find(ctx, filePath...)
	if err != nil {
		return fmt.Errorf("find symbols for %s: %w", path, err)
	}
	if len(symbols) > 0 {
		ids := make([]int64, len(symbols))
		for i, sym := range symbols {
			ids[i] = sym.ID()
		}
		if err := ix.stores.SearchRows.DeleteBy(ctx, repository.WithConditionIn("symbol_id", ids)); err != nil {
			return err
		}
		if err := ix.stores.Fingerprints.DeleteBy(ctx, repository.WithConditionIn("symbol_id", ids)); err != nil {
			return err
		}
	}

	chunks, err := ix.stores.Chunks.Find(ctx, filePath...)
	if err != nil {
		return fmt.Errorf("find chunks for %s: %w", path, err)
	}
	if len(chunks) > 0 {
		ids := make([]int64, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID()
		}
		if err := ix.stores.Embeddings.DeleteBy(ctx, repository.WithConditionIn("chunk_id", ids)); err != nil {
			return err
		}
	}

	if err := ix.stores.Edges.DeleteBy(ctx, filePath...); err != nil {
		return err
	}
	if err := ix.stores.Chunks.DeleteBy(ctx, filePath...); err != nil {
		return err
	}
	if err := ix.stores.Symbols.DeleteBy(ctx, filePath...); err != nil {
		return err
	}
	return ix.stores.Files.DeleteBy(ctx, append(append([]repository.Option(nil), base...), repository.WithPath(path))...)
}

// symbolSnippet returns the first lines of a symbol's span for display and
// sparse indexing.
func symbolSnippet(lines []string, sym symbol.Symbol) string {
	start := sym.StartLine() - 1
	if start < 0 || start >= len(lines) {
		return ""
	}
	end := min(start+3, len(lines))
	if symEnd := sym.EndLine(); symEnd < end {
		end = symEnd
	}
	if end <= start {
		end = start + 1
	}
	return strings.Join(lines[start:end], "\n")
}

var stringLiteralPattern = regexp.MustCompile(`"([^"\\]|\\.)*"`)

// extractLiterals collects up to ten distinct string literals for the
// weighted literal field of the sparse index.
func extractLiterals(snippet string) string {
	matches := stringLiteralPattern.FindAllString(snippet, 10)
	seen := make(map[string]struct{}, len(matches))
	var literals []string
	for _, m := range matches {
		trimmed := strings.Trim(m, `"`)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		literals = append(literals, trimmed)
	}
	return strings.Join(literals, " ")
}
