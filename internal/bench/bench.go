// Package bench provides the indexing and query benchmark harness used for
// regression tracking.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/domain/repository"
)

// Case is one benchmark query with the symbols expected in its results.
type Case struct {
	Query           string   `json:"query"`
	ExpectedSymbols []string `json:"expectedSymbols"`
}

// QuerySet is a named benchmark suite.
type QuerySet struct {
	Name  string `json:"name"`
	TopK  int    `json:"topK"`
	Cases []Case `json:"cases"`
}

// QueryStat records one benchmark query execution.
type QueryStat struct {
	Query           string   `json:"query"`
	ElapsedMs       int64    `json:"elapsedMs"`
	JSONBytes       int      `json:"jsonBytes"`
	SnippetChars    int      `json:"snippetChars"`
	ReturnedSymbols []string `json:"returnedSymbols"`
	Hit             bool     `json:"hit"`
}

// Report aggregates indexing and query statistics for one run.
type Report struct {
	Suite           string      `json:"suite"`
	Repository      string      `json:"repository"`
	Branch          string      `json:"branch"`
	IndexElapsedMs  int64       `json:"indexElapsedMs"`
	PeakMemoryBytes uint64      `json:"peakMemoryBytes"`
	DBSizeDeltaByte int64       `json:"dbSizeDeltaBytes"`
	FileCount       int64       `json:"fileCount"`
	SymbolCount     int64       `json:"symbolCount"`
	ChunkCount      int64       `json:"chunkCount"`
	Queries         []QueryStat `json:"queries"`
	HitRate         float64     `json:"hitRate"`
	P50Ms           int64       `json:"p50Ms"`
	P95Ms           int64       `json:"p95Ms"`
}

// Runner executes benchmark suites through the same pipeline and
// orchestrator the service uses.
type Runner struct {
	tracker  Tracker
	indexer  *service.Indexer
	queries  *service.QueryService
	stores   service.Stores
	dbSizeFn func() int64 // optional; 0 when size is not measurable
}

// Tracker is the subset of the git tracker the harness needs.
type Tracker interface {
	Repository(ctx context.Context, name string) (repository.Repository, error)
	EnsureBranchTracked(ctx context.Context, repo repository.Repository, branch string) (repository.Branch, error)
}

// NewRunner creates a Runner. dbSizeFn may be nil.
func NewRunner(tracker Tracker, indexer *service.Indexer, queries *service.QueryService, stores service.Stores, dbSizeFn func() int64) *Runner {
	return &Runner{
		tracker:  tracker,
		indexer:  indexer,
		queries:  queries,
		stores:   stores,
		dbSizeFn: dbSizeFn,
	}
}

// Run indexes the branch, executes every query in the set, and reports
// top-K hit rate plus nearest-rank latency percentiles.
func (r *Runner) Run(ctx context.Context, repoName, branchName string, set QuerySet) (Report, error) {
	report := Report{
		Suite:      set.Name,
		Repository: repoName,
		Branch:     branchName,
	}

	repo, err := r.tracker.Repository(ctx, repoName)
	if err != nil {
		return report, err
	}
	branch, err := r.tracker.EnsureBranchTracked(ctx, repo, branchName)
	if err != nil {
		return report, err
	}

	dbBefore := r.dbSize()
	indexStart := time.Now()
	if _, _, err := r.indexer.IndexBranch(ctx, repo, branch); err != nil {
		return report, fmt.Errorf("index %s/%s: %w", repoName, branchName, err)
	}
	report.IndexElapsedMs = time.Since(indexStart).Milliseconds()
	report.DBSizeDeltaByte = r.dbSize() - dbBefore

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	report.PeakMemoryBytes = mem.Sys

	scope := []repository.Option{
		repository.WithCondition("repo_id", repo.ID()),
		repository.WithBranch(branchName),
	}
	report.FileCount, _ = r.stores.Files.Count(ctx, scope...)
	report.SymbolCount, _ = r.stores.Symbols.Count(ctx, scope...)
	report.ChunkCount, _ = r.stores.Chunks.Count(ctx, scope...)

	topK := set.TopK
	if topK <= 0 {
		topK = 10
	}

	var latencies []int64
	hits := 0
	for _, c := range set.Cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		queryStart := time.Now()
		resp, err := r.queries.Query(ctx, service.QueryRequest{
			Repository: repoName,
			Text:       c.Query,
			Branch:     branchName,
			MaxResults: topK,
		})
		elapsed := time.Since(queryStart).Milliseconds()
		if err != nil {
			report.Queries = append(report.Queries, QueryStat{Query: c.Query, ElapsedMs: elapsed})
			latencies = append(latencies, elapsed)
			continue
		}

		encoded, _ := json.Marshal(resp)
		snippetChars := 0
		var returned []string
		for _, result := range resp.Results {
			snippetChars += len(result.Content)
			if result.SymbolName != "" {
				returned = append(returned, result.SymbolName)
			}
		}

		hit := anyExpected(returned, c.ExpectedSymbols)
		if hit {
			hits++
		}

		report.Queries = append(report.Queries, QueryStat{
			Query:           c.Query,
			ElapsedMs:       elapsed,
			JSONBytes:       len(encoded),
			SnippetChars:    snippetChars,
			ReturnedSymbols: returned,
			Hit:             hit,
		})
		latencies = append(latencies, elapsed)
	}

	if len(set.Cases) > 0 {
		report.HitRate = float64(hits) / float64(len(set.Cases))
	}
	report.P50Ms = Percentile(latencies, 50)
	report.P95Ms = Percentile(latencies, 95)
	return report, nil
}

func (r *Runner) dbSize() int64 {
	if r.dbSizeFn == nil {
		return 0
	}
	return r.dbSizeFn()
}

// anyExpected reports whether any expected symbol appears in the returned
// list; a query "hits" iff so.
func anyExpected(returned, expected []string) bool {
	if len(expected) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(returned))
	for _, name := range returned {
		seen[name] = struct{}{}
	}
	for _, name := range expected {
		if _, ok := seen[name]; ok {
			return true
		}
	}
	return false
}

// Percentile computes the nearest-rank percentile of latencies. By
// construction p50 never exceeds p95.
func Percentile(latencies []int64, pct int) int64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]int64, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := (pct*len(sorted) + 99) / 100
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}
