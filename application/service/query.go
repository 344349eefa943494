package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/infrastructure/embedding"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
)

// parseCacheSize bounds the LRU cache of parsed queries.
const parseCacheSize = 4096

// relationCandidates caps how many matched symbols a Relations query
// expands into neighbor lookups.
const relationCandidates = 3

// QueryRequest is the inbound unified query contract.
type QueryRequest struct {
	Repository string
	Text       string
	Branch     string
	MaxResults int
	Profile    string
}

// QueryService turns a raw natural-language query into a ranked, compact
// list of code results.
type QueryService struct {
	tracker      *git.Tracker
	indexer      *Indexer
	symbols      symbol.SymbolStore
	edges        symbol.EdgeStore
	chunks       chunk.ChunkStore
	branches     repository.BranchStore
	fingerprints symbol.FingerprintStore
	embedder     *embedding.Client // nil in sparse-only deployments
	budgets      search.Budgets
	maxResults   int
	parseCache   *lru.Cache[string, search.ParsedQuery]
	logger       *slog.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(
	tracker *git.Tracker,
	indexer *Indexer,
	stores Stores,
	embedder *embedding.Client,
	budgets search.Budgets,
	maxResults int,
	logger *slog.Logger,
) *QueryService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResults <= 0 {
		maxResults = 20
	}
	cache, _ := lru.New[string, search.ParsedQuery](parseCacheSize)
	return &QueryService{
		tracker:      tracker,
		indexer:      indexer,
		symbols:      stores.Symbols,
		edges:        stores.Edges,
		chunks:       stores.Chunks,
		branches:     stores.Branches,
		fingerprints: stores.Fingerprints,
		embedder:     embedder,
		budgets:      budgets,
		maxResults:   maxResults,
		parseCache:   cache,
		logger:       logger,
	}
}

// Query is the unified entry point: resolve the repository and branch,
// lazily index on demand, run intent-directed retrieval, re-rank, and
// compact the response under the outbound budgets.
func (q *QueryService) Query(ctx context.Context, req QueryRequest) (search.Response, error) {
	started := time.Now()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return search.Response{}, ErrEmptyQuery
	}

	profile, err := search.ParseProfile(req.Profile)
	if err != nil {
		return search.Response{}, err
	}

	repo, err := q.tracker.Repository(ctx, req.Repository)
	if err != nil {
		return search.Response{}, err
	}

	branchName := req.Branch
	if branchName == "" {
		branchName = repo.DefaultBranch()
	}
	if branchName == "" {
		branchName = "main"
	}

	branch, err := q.tracker.EnsureBranchTracked(ctx, repo, branchName)
	if err != nil {
		return search.Response{}, err
	}

	parsed := q.parse(text)

	// Lazy, best-effort indexing: bring the branch up to date before
	// retrieval. Transient failures fall through to querying whatever is
	// already indexed.
	branch, _, err = q.indexer.IndexBranch(ctx, repo, branch)
	if err != nil {
		if ctx.Err() != nil {
			return search.EmptyResponse(text, parsed.Intent(), repo.Name(), branchName, parsed.Keywords()), nil
		}
		q.logger.Warn("on-demand indexing failed",
			slog.String("repository", repo.Name()),
			slog.String("branch", branchName),
			slog.String("error", err.Error()),
		)
	}

	if touched, saveErr := q.branches.Save(ctx, branch.Touched()); saveErr == nil {
		branch = touched
	}

	var results []search.Result
	switch parsed.Intent() {
	case search.IntentNavigation:
		results, err = q.retrieveNavigation(ctx, repo, branch, parsed)
	case search.IntentRelations:
		results, err = q.retrieveRelations(ctx, repo, branch, parsed)
	default:
		results, err = q.retrieveHybrid(ctx, repo, branch, parsed, profile)
	}
	if err != nil {
		if ctx.Err() != nil {
			// Cancellation never surfaces as a failure.
			return search.EmptyResponse(text, parsed.Intent(), repo.Name(), branchName, parsed.Keywords()), nil
		}
		return search.Response{}, err
	}

	resp := search.EmptyResponse(text, parsed.Intent(), repo.Name(), branchName, parsed.Keywords())
	resp.Results = results
	resp.SuggestedQueries = search.SuggestQueries(parsed.Intent(), results)

	budgets := q.budgets
	if req.MaxResults > 0 {
		budgets = search.NewBudgets(req.MaxResults, budgets.MaxSnippetChars(), budgets.MaxBytes())
	}
	resp = budgets.Compact(resp)
	resp.ExecutionTimeMs = time.Since(started).Milliseconds()
	return resp, nil
}

// parse runs query understanding through the LRU cache.
func (q *QueryService) parse(text string) search.ParsedQuery {
	key := strings.ToLower(text)
	if cached, ok := q.parseCache.Get(key); ok {
		return cached
	}
	parsed := search.Parse(text)
	q.parseCache.Add(key, parsed)
	return parsed
}

// retrieveNavigation finds symbol definitions: exact match first, trigram
// fuzzy as fallback, each hit carrying its primary chunk.
func (q *QueryService) retrieveNavigation(ctx context.Context, repo repository.Repository, branch repository.Branch, parsed search.ParsedQuery) ([]search.Result, error) {
	identifier := parsed.PrimaryIdentifier()
	if identifier == "" {
		return q.retrieveHybrid(ctx, repo, branch, parsed, search.ProfileHybrid)
	}

	hits, err := q.symbols.Search(ctx, identifier, repo.ID(), branch.Name(), "", false, q.maxResults)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		hits, err = q.symbols.Search(ctx, identifier, repo.ID(), branch.Name(), "", true, q.maxResults)
		if err != nil {
			return nil, err
		}
	}

	results := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, q.symbolResult(ctx, repo, branch, hit.Symbol(), hit.Score(), nil))
	}
	return results, nil
}

// retrieveRelations finds a referenced identifier's neighbors in both
// directions and re-ranks by graph centrality.
func (q *QueryService) retrieveRelations(ctx context.Context, repo repository.Repository, branch repository.Branch, parsed search.ParsedQuery) ([]search.Result, error) {
	identifier := parsed.PrimaryIdentifier()
	if identifier == "" {
		return q.retrieveHybrid(ctx, repo, branch, parsed, search.ProfileHybrid)
	}

	candidates, err := q.symbols.Search(ctx, identifier, repo.ID(), branch.Name(), "", false, relationCandidates)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		candidates, err = q.symbols.Search(ctx, identifier, repo.ID(), branch.Name(), "", true, relationCandidates)
		if err != nil {
			return nil, err
		}
	}

	var results []search.Result
	for _, candidate := range candidates {
		target := candidate.Symbol()

		incoming, err := q.edges.FindReferences(ctx, target.ID(), "", q.maxResults)
		if err != nil {
			return nil, err
		}
		outgoing, err := q.edges.FindDependencies(ctx, target.ID(), "", q.maxResults)
		if err != nil {
			return nil, err
		}

		// One result per referencing symbol, tagged with its relation to
		// the matched identifier.
		callers, err := q.sourceSymbols(ctx, incoming)
		if err != nil {
			return nil, err
		}
		for _, edge := range incoming {
			source, ok := callers[edge.SourceID()]
			if !ok {
				continue
			}
			related := []search.RelatedSymbol{{
				Name:         target.Name(),
				Kind:         target.Kind().String(),
				RelationType: relationLabel(edge.Kind()),
				Direction:    "outgoing",
				FilePath:     target.FilePath(),
			}}
			results = append(results, q.symbolResult(ctx, repo, branch, source, candidate.Score(), related))
		}

		// The matched symbol itself, carrying its outgoing dependencies.
		if len(outgoing) > 0 || len(incoming) == 0 {
			related := make([]search.RelatedSymbol, 0, len(outgoing))
			for _, edge := range outgoing {
				related = append(related, search.RelatedSymbol{
					Name:         edge.TargetName(),
					RelationType: relationLabel(edge.Kind()),
					Direction:    "outgoing",
				})
			}
			results = append(results, q.symbolResult(ctx, repo, branch, target, candidate.Score(), related))
		}
	}

	if err := q.attachGraphScores(ctx, results); err != nil {
		return nil, err
	}
	search.Rerank(results)
	return results, nil
}

// retrieveHybrid runs the lexical and dense arms per the retrieval profile.
func (q *QueryService) retrieveHybrid(ctx context.Context, repo repository.Repository, branch repository.Branch, parsed search.ParsedQuery, profile search.Profile) ([]search.Result, error) {
	text := parsed.KeywordText()

	var vector []float64
	denseRan := false
	if profile != search.ProfileFast && q.embedder != nil {
		res := q.embedder.TryGenerateQuery(ctx, parsed.Raw())
		if res.Success {
			vector = res.Vector()
			denseRan = true
		} else {
			// Embedder offline: degrade to sparse-only retrieval.
			q.logger.Warn("query embedding unavailable",
				slog.Bool("transient", res.Transient),
				slog.String("error", res.ErrorMessage),
			)
		}
	}

	var hits []chunk.Hit
	var err error
	if profile == search.ProfileSemantic && denseRan {
		hits, err = q.chunks.SearchEmbeddings(ctx, vector, repo.ID(), branch.Name(), q.maxResults)
	} else {
		hits, err = q.chunks.HybridSearch(ctx, text, vector, repo.ID(), branch.Name(), "",
			search.DefaultBM25Weight, search.DefaultVectorWeight, q.maxResults)
	}
	if err != nil {
		return nil, err
	}

	lexicalRan := profile != search.ProfileSemantic || !denseRan
	results := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		results = append(results, q.chunkResult(repo, branch, hit, lexicalRan, denseRan))
	}
	return results, nil
}

// symbolResult builds a Result for a symbol, attaching its primary chunk
// content when one exists.
func (q *QueryService) symbolResult(ctx context.Context, repo repository.Repository, branch repository.Branch, sym symbol.Symbol, score float64, related []search.RelatedSymbol) search.Result {
	content := sym.Signature()
	chunks, err := q.chunks.Find(ctx,
		repository.WithCondition("symbol_id", sym.ID()),
		repository.WithLimit(1),
	)
	if err == nil && len(chunks) > 0 {
		content = chunks[0].Content()
	}

	return search.Result{
		ID:            sym.ID(),
		Type:          search.ResultTypeSymbol,
		Repository:    repo.Name(),
		Branch:        branch.Name(),
		FilePath:      sym.FilePath(),
		Language:      sym.Language(),
		SymbolName:    sym.Name(),
		SymbolKind:    sym.Kind().String(),
		Content:       content,
		StartLine:     sym.StartLine(),
		EndLine:       sym.EndLine(),
		Score:         score,
		Signature:     sym.Signature(),
		Documentation: sym.Documentation(),
		Related:       related,
	}
}

// chunkResult builds a Result from a retrieval hit. Per-arm scores are only
// attached for arms that actually ran, so a degraded query reports a null
// vector score rather than a fabricated zero.
func (q *QueryService) chunkResult(repo repository.Repository, branch repository.Branch, hit chunk.Hit, lexicalRan, denseRan bool) search.Result {
	c := hit.Chunk()
	result := search.Result{
		ID:            c.ID(),
		Type:          search.ResultTypeChunk,
		Repository:    repo.Name(),
		Branch:        branch.Name(),
		FilePath:      c.FilePath(),
		Language:      c.Language(),
		SymbolName:    c.SymbolName(),
		SymbolKind:    c.SymbolKind().String(),
		Content:       c.Content(),
		StartLine:     c.StartLine(),
		EndLine:       c.EndLine(),
		Score:         hit.Combined(),
		Signature:     c.Signature(),
		Documentation: c.Documentation(),
	}
	if c.SymbolKind() == symbol.KindUnknown {
		result.SymbolKind = ""
	}
	if lexicalRan {
		result.BM25Score = search.Float64Ptr(hit.BM25Score())
	}
	if denseRan {
		result.VectorScore = search.Float64Ptr(hit.VectorScore())
	}
	return result
}

// attachGraphScores computes the centrality boost for symbol results.
func (q *QueryService) attachGraphScores(ctx context.Context, results []search.Result) error {
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if r.Type == search.ResultTypeSymbol {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	degrees, err := q.edges.DegreeCounts(ctx, ids)
	if err != nil {
		return err
	}
	for i := range results {
		if results[i].Type != search.ResultTypeSymbol {
			continue
		}
		if degree, ok := degrees[results[i].ID]; ok {
			results[i].GraphScore = search.Float64Ptr(search.GraphScore(degree.In, degree.Out))
		}
	}
	return nil
}

// sourceSymbols loads the source symbols of a set of edges.
func (q *QueryService) sourceSymbols(ctx context.Context, edges []symbol.Edge) (map[int64]symbol.Symbol, error) {
	if len(edges) == 0 {
		return map[int64]symbol.Symbol{}, nil
	}
	ids := make([]int64, 0, len(edges))
	seen := make(map[int64]struct{}, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.SourceID()]; dup {
			continue
		}
		seen[e.SourceID()] = struct{}{}
		ids = append(ids, e.SourceID())
	}

	symbols, err := q.symbols.Find(ctx, repository.WithIDIn(ids))
	if err != nil {
		return nil, err
	}
	result := make(map[int64]symbol.Symbol, len(symbols))
	for _, sym := range symbols {
		result[sym.ID()] = sym
	}
	return result, nil
}

// relationLabel renders an edge kind for the outbound payload.
func relationLabel(kind symbol.EdgeKind) string {
	switch kind {
	case symbol.EdgeCalls:
		return "Calls"
	case symbol.EdgeReferences:
		return "References"
	case symbol.EdgeInherits:
		return "Inherits"
	case symbol.EdgeImplements:
		return "Implements"
	case symbol.EdgeOverrides:
		return "Overrides"
	case symbol.EdgeTypeOf:
		return "TypeOf"
	case symbol.EdgeReturns:
		return "Returns"
	case symbol.EdgeImport:
		return "Import"
	case symbol.EdgeDefines:
		return "Defines"
	case symbol.EdgeContains:
		return "Contains"
	default:
		return "Unknown"
	}
}
