package service

import (
	"context"
	"sort"

	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/search"
)

// SimilarSymbols finds near-duplicate candidates of a named symbol through
// the fingerprint LSH bands, ranked by ascending Hamming distance.
func (q *QueryService) SimilarSymbols(ctx context.Context, repoName, branchName, symbolName string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = 10
	}

	repo, err := q.tracker.Repository(ctx, repoName)
	if err != nil {
		return nil, err
	}
	if branchName == "" {
		branchName = repo.DefaultBranch()
	}
	branch, err := q.tracker.EnsureBranchTracked(ctx, repo, branchName)
	if err != nil {
		return nil, err
	}

	hits, err := q.symbols.Search(ctx, symbolName, repo.ID(), branch.Name(), "", false, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []search.Result{}, nil
	}
	origin := hits[0].Symbol()

	fp, err := q.fingerprints.Get(ctx, origin.ID())
	if err != nil {
		return []search.Result{}, nil
	}

	candidates, err := q.fingerprints.FindCandidates(
		ctx, repo.ID(), branch.Name(), origin.Language(), origin.Kind(),
		fp.FingerprintKind(), fp.Bands(), limit*4,
	)
	if err != nil {
		return nil, err
	}

	type scored struct {
		symbolID int64
		distance int
	}
	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.SymbolID() == origin.ID() {
			continue
		}
		ranked = append(ranked, scored{
			symbolID: candidate.SymbolID(),
			distance: fp.HammingDistance(candidate),
		})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].distance < ranked[j].distance })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		return []search.Result{}, nil
	}

	ids := make([]int64, len(ranked))
	distByID := make(map[int64]int, len(ranked))
	for i, r := range ranked {
		ids[i] = r.symbolID
		distByID[r.symbolID] = r.distance
	}

	symbols, err := q.symbols.Find(ctx, repository.WithIDIn(ids))
	if err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(symbols))
	for _, sym := range symbols {
		// Closer fingerprints score higher; 64 bits is the maximum distance.
		score := 1 - float64(distByID[sym.ID()])/64
		results = append(results, q.symbolResult(ctx, repo, branch, sym, score, nil))
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

// CallChain walks Calls edges breadth-first from a named symbol and returns
// each reached symbol tagged with its depth.
func (q *QueryService) CallChain(ctx context.Context, repoName, branchName, symbolName string, maxDepth int) ([]search.Result, error) {
	repo, err := q.tracker.Repository(ctx, repoName)
	if err != nil {
		return nil, err
	}
	if branchName == "" {
		branchName = repo.DefaultBranch()
	}
	branch, err := q.tracker.EnsureBranchTracked(ctx, repo, branchName)
	if err != nil {
		return nil, err
	}

	hits, err := q.symbols.Search(ctx, symbolName, repo.ID(), branch.Name(), "", false, 1)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []search.Result{}, nil
	}
	start := hits[0].Symbol()

	entries, err := q.edges.FindCallChain(ctx, start.ID(), maxDepth)
	if err != nil {
		return nil, err
	}

	results := make([]search.Result, 0, len(entries))
	for _, entry := range entries {
		result := q.symbolResult(ctx, repo, branch, entry.Symbol(), 1/float64(entry.Depth()), []search.RelatedSymbol{{
			Name:         start.Name(),
			Kind:         start.Kind().String(),
			RelationType: "Calls",
			Direction:    "incoming",
		}})
		results = append(results, result)
	}
	return results, nil
}
