package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/domain/chunk"
	"github.com/codeatlas-ai/codeatlas/domain/repository"
	"github.com/codeatlas-ai/codeatlas/domain/symbol"
	"github.com/codeatlas-ai/codeatlas/internal/database"
)

func newTestDB(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.NewDatabase(ctx, "sqlite:///"+dbPath)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedRepoBranch(t *testing.T, db database.Database) (repository.Repository, repository.Branch) {
	t.Helper()
	ctx := context.Background()

	repos := NewRepositoryStore(db)
	repo, err := repos.Save(ctx, repository.NewRepository("demo", "https://example.com/demo.git", "main"))
	require.NoError(t, err)
	require.NotZero(t, repo.ID())

	branches := NewBranchStore(db)
	branch, err := branches.Save(ctx, repository.NewBranch(repo.ID(), "main", "headsha"))
	require.NoError(t, err)
	require.NotZero(t, branch.ID())

	return repo, branch
}

func TestRepositoryStore_UpsertConvergesOnName(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repos := NewRepositoryStore(db)

	first, err := repos.Save(ctx, repository.NewRepository("demo", "https://a.git", "main"))
	require.NoError(t, err)

	_, err = repos.Save(ctx, repository.NewRepository("demo", "https://b.git", "main"))
	require.NoError(t, err)

	all, err := repos.Find(ctx, repository.WithName("demo"))
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, first.ID(), all[0].ID())
}

func TestSymbolStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)

	sym := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "user/UserService.cs",
		"UserService", "Acme.Auth.UserService", symbol.KindClass, "csharp").
		WithSpan(5, 60, 0, 1).WithSignature("public class UserService")

	saved, err := symbols.SaveBatch(ctx, []symbol.Symbol{sym})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.NotZero(t, saved[0].ID())

	// Persist-then-read: an exact search returns the same row.
	hits, err := symbols.Search(ctx, "userservice", repo.ID(), branch.Name(), "", false, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, saved[0].ID(), hits[0].Symbol().ID())
	assert.Equal(t, 5, hits[0].Symbol().StartLine())
	assert.Equal(t, 60, hits[0].Symbol().EndLine())
	assert.Equal(t, symbol.KindClass, hits[0].Symbol().Kind())
}

func TestSymbolStore_EmptyQueryReturnsNoRows(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)

	hits, err := symbols.Search(ctx, "", repo.ID(), branch.Name(), "", false, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSymbolStore_SaveBatchIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)

	sym := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "a.cs", "Login", "A.Login", symbol.KindMethod, "csharp").
		WithSpan(12, 25, 0, 0)

	_, err := symbols.SaveBatch(ctx, []symbol.Symbol{sym})
	require.NoError(t, err)
	_, err = symbols.SaveBatch(ctx, []symbol.Symbol{sym})
	require.NoError(t, err)

	count, err := symbols.Count(ctx, repository.WithCondition("repo_id", repo.ID()))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEdgeStore_ResolveAndTraverse(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)
	edges := NewEdgeStore(db)

	login := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "a.cs", "Login", "UserService.Login", symbol.KindMethod, "csharp").WithSpan(12, 25, 0, 0)
	hash := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "a.cs", "HashPassword", "UserService.HashPassword", symbol.KindMethod, "csharp").WithSpan(30, 35, 0, 0)
	digest := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "b.cs", "Digest", "Crypto.Digest", symbol.KindMethod, "csharp").WithSpan(3, 9, 0, 0)

	saved, err := symbols.SaveBatch(ctx, []symbol.Symbol{login, hash, digest})
	require.NoError(t, err)

	// Login -> HashPassword -> Digest, both unresolved at write time.
	err = edges.SaveBatch(ctx, []symbol.Edge{
		symbol.NewEdge(saved[0].ID(), "UserService.HashPassword", symbol.EdgeCalls, repo.ID(), branch.Name(), "headsha", "a.cs", 14),
		symbol.NewEdge(saved[1].ID(), "crypto.digest", symbol.EdgeCalls, repo.ID(), branch.Name(), "headsha", "a.cs", 31),
	})
	require.NoError(t, err)

	resolved, err := edges.ResolveTargets(ctx, repo.ID(), branch.Name())
	require.NoError(t, err)
	assert.Equal(t, int64(2), resolved)

	// Incoming references for HashPassword point back at Login.
	refs, err := edges.FindReferences(ctx, saved[1].ID(), symbol.EdgeCalls, 10)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, saved[0].ID(), refs[0].SourceID())

	deps, err := edges.FindDependencies(ctx, saved[0].ID(), "", 10)
	require.NoError(t, err)
	require.Len(t, deps, 1)

	// Breadth-first call chain from Login reaches Digest at depth 2.
	chain, err := edges.FindCallChain(ctx, saved[0].ID(), 3)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	depths := map[string]int{}
	for _, entry := range chain {
		depths[entry.Symbol().Name()] = entry.Depth()
	}
	assert.Equal(t, 1, depths["HashPassword"])
	assert.Equal(t, 2, depths["Digest"])

	degrees, err := edges.DegreeCounts(ctx, []int64{saved[0].ID(), saved[1].ID()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), degrees[saved[0].ID()].In)
	assert.Equal(t, int64(1), degrees[saved[0].ID()].Out)
	assert.Equal(t, int64(1), degrees[saved[1].ID()].In)
	assert.Equal(t, int64(1), degrees[saved[1].ID()].Out)
}

func TestChunkStore_FullTextAndHybrid(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	chunks := NewChunkStore(db)

	a := chunk.NewCodeChunk(repo.ID(), branch.Name(), "headsha", "a.cs",
		"public Session Login(string username, string password) { var hashed = HashPassword(password); }").
		WithSpan(10, 25).WithLanguage("csharp")
	b := chunk.NewCodeChunk(repo.ID(), branch.Name(), "headsha", "b.cs",
		"public void ParseConfig(Reader reader) { }").
		WithSpan(1, 5).WithLanguage("csharp")

	savedChunks, err := chunks.SaveBatch(ctx, []chunk.CodeChunk{a, b})
	require.NoError(t, err)
	require.Len(t, savedChunks, 2)
	require.NotZero(t, savedChunks[0].ID())

	hits, err := chunks.SearchFullText(ctx, "password hashing", repo.ID(), branch.Name(), "", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "a.cs", hits[0].Chunk().FilePath())
	assert.Greater(t, hits[0].BM25Score(), 0.0)

	// Hybrid with a nil vector degrades to pure lexical.
	hybrid, err := chunks.HybridSearch(ctx, "password", nil, repo.ID(), branch.Name(), "", 0.3, 0.7, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hybrid)
	assert.Greater(t, hybrid[0].BM25Score(), 0.0)
	assert.Zero(t, hybrid[0].VectorScore())

	// Both arms empty: a well-formed empty result, not an error.
	empty, err := chunks.HybridSearch(ctx, "zzzquux", nil, repo.ID(), branch.Name(), "", 0.3, 0.7, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestChunkStore_VectorSearchPortable(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	chunks := NewChunkStore(db)
	embeddings := NewEmbeddingStore(db)

	a := chunk.NewCodeChunk(repo.ID(), branch.Name(), "headsha", "a.cs", "alpha content").WithSpan(1, 3)
	b := chunk.NewCodeChunk(repo.ID(), branch.Name(), "headsha", "b.cs", "beta content").WithSpan(1, 3)
	saved, err := chunks.SaveBatch(ctx, []chunk.CodeChunk{a, b})
	require.NoError(t, err)

	err = embeddings.SaveBatch(ctx, []chunk.Embedding{
		chunk.NewEmbedding(saved[0], []float64{1, 0, 0}, "test-model", ""),
		chunk.NewEmbedding(saved[1], []float64{0, 1, 0}, "test-model", ""),
	})
	require.NoError(t, err)

	hits, err := chunks.SearchEmbeddings(ctx, []float64{0.9, 0.1, 0}, repo.ID(), branch.Name(), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a.cs", hits[0].Chunk().FilePath())
	assert.Greater(t, hits[0].VectorScore(), hits[1].VectorScore())

	// Hybrid fuses both arms.
	hybrid, err := chunks.HybridSearch(ctx, "beta", []float64{1, 0, 0}, repo.ID(), branch.Name(), "", 0.5, 0.5, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hybrid)
}

func TestEmbeddingStore_OneToOneWithChunk(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	chunks := NewChunkStore(db)
	embeddings := NewEmbeddingStore(db)

	saved, err := chunks.SaveBatch(ctx, []chunk.CodeChunk{
		chunk.NewCodeChunk(repo.ID(), branch.Name(), "headsha", "a.cs", "content").WithSpan(1, 2),
	})
	require.NoError(t, err)

	vec := []float64{0.1, 0.2, 0.3}
	require.NoError(t, embeddings.SaveBatch(ctx, []chunk.Embedding{
		chunk.NewEmbedding(saved[0], vec, "test-model", "v1"),
	}))
	// Re-saving converges on the chunk id.
	require.NoError(t, embeddings.SaveBatch(ctx, []chunk.Embedding{
		chunk.NewEmbedding(saved[0], vec, "test-model", "v2"),
	}))

	rows, err := embeddings.Find(ctx, repository.WithCondition("chunk_id", saved[0].ID()))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Dims())
	assert.Equal(t, vec, rows[0].Vector())
	assert.Equal(t, "v2", rows[0].ModelVersion())
}

func TestFingerprintStore_BandCandidates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)
	fingerprints := NewFingerprintStore(db)

	sym := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "a.cs", "Login", "A.Login", symbol.KindMethod, "csharp").WithSpan(1, 5, 0, 0)
	saved, err := symbols.SaveBatch(ctx, []symbol.Symbol{sym})
	require.NoError(t, err)

	fp := symbol.NewFingerprint(saved[0], symbol.FingerprintSimhash, 0x1111222233334444)
	require.NoError(t, fingerprints.SaveBatch(ctx, []symbol.Fingerprint{fp}))

	// A probe sharing only band 2 still collides.
	probeBands := [symbol.BandCount]uint16{0xAAAA, 0xBBBB, 0x2222, 0xCCCC}
	candidates, err := fingerprints.FindCandidates(ctx, repo.ID(), branch.Name(), "csharp", symbol.KindMethod, symbol.FingerprintSimhash, probeBands, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, uint64(0x1111222233334444), candidates[0].Bits())

	// No shared band, no candidates.
	miss := [symbol.BandCount]uint16{0xAAAA, 0xBBBB, 0xDDDD, 0xCCCC}
	candidates, err = fingerprints.FindCandidates(ctx, repo.ID(), branch.Name(), "csharp", symbol.KindMethod, symbol.FingerprintSimhash, miss, 10)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSearchEntryStore_SaveBatch(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo, branch := seedRepoBranch(t, db)
	symbols := NewSymbolStore(db)
	entries := NewSearchEntryStore(db)

	sym := symbol.NewSymbol(repo.ID(), branch.Name(), "headsha", "a.cs", "Login", "A.Login", symbol.KindMethod, "csharp").WithSpan(1, 5, 0, 0)
	saved, err := symbols.SaveBatch(ctx, []symbol.Symbol{sym})
	require.NoError(t, err)

	entry := symbol.NewSearchEntry(saved[0], "secret", "public Session Login()")
	require.NoError(t, entries.SaveBatch(ctx, []symbol.SearchEntry{entry}))
	// Upsert converges on symbol id.
	require.NoError(t, entries.SaveBatch(ctx, []symbol.SearchEntry{entry}))

	var count int64
	require.NoError(t, db.Session(ctx).Model(&SymbolSearchModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
