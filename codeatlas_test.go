package codeatlas

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
	"github.com/codeatlas-ai/codeatlas/internal/config"
)

const userServiceFixture = `using System;

namespace Acme.Auth
{
    public class UserService
    {
        public Session Login(string username, string password)
        {
            var hashed = HashPassword(password);
            return CreateSession(username, hashed);
        }

        private string HashPassword(string input)
        {
            return input;
        }

        private Session CreateSession(string username, string hash)
        {
            return new Session();
        }
    }
}
`

// initOrigin creates a local git repository that serves as the remote.
func initOrigin(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "origin")

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "user"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user", "UserService.cs"), []byte(userServiceFixture), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("demo fixture\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("initial import", &gogit.CommitOptions{
		Author: &object.Signature{Name: "Tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	origin := initOrigin(t)
	work := filepath.Join(t.TempDir(), "work")

	cfg := config.NewAppConfigWithOptions(
		config.WithWorkingDirectory(work),
		config.WithRepositories(config.RepositoryConfig{
			Name:          "demo",
			RemoteURL:     origin,
			DefaultBranch: "master",
		}),
		config.WithFileReadConcurrency(2),
		config.WithResponseBudgets(10, 20000, 65536),
	)

	dbPath := filepath.Join(t.TempDir(), "atlas.db")
	client, err := New(cfg, WithDatabaseURL("sqlite:///"+dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Initialize(context.Background()))
	return client
}

func TestQuery_Navigation(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, service.QueryRequest{
		Repository: "demo",
		Text:       "Where is the UserService class?",
	})
	require.NoError(t, err)

	assert.Equal(t, "navigation", resp.Intent)
	require.NotEmpty(t, resp.Results)

	first := resp.Results[0]
	assert.Equal(t, "UserService", first.SymbolName)
	assert.Equal(t, "class", first.SymbolKind)
	assert.Equal(t, "user/UserService.cs", first.FilePath)
	assert.Equal(t, 5, first.StartLine)
	assert.Greater(t, first.EndLine, first.StartLine)
}

func TestQuery_Relations(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, service.QueryRequest{
		Repository: "demo",
		Text:       "what calls HashPassword?",
	})
	require.NoError(t, err)

	assert.Equal(t, "relations", resp.Intent)
	require.NotEmpty(t, resp.Results)

	found := false
	for _, result := range resp.Results {
		if result.SymbolName != "Login" {
			continue
		}
		for _, related := range result.Related {
			if related.Name == "HashPassword" && related.RelationType == "Calls" {
				found = true
			}
		}
	}
	assert.True(t, found, "expected a Login result related to HashPassword via Calls")
}

func TestQuery_HybridWithEmbedderDown(t *testing.T) {
	// No embedding endpoint is configured, so the dense arm is offline and
	// the same query must degrade to pure lexical retrieval.
	client := newTestClient(t)
	ctx := context.Background()

	resp, err := client.Query(ctx, service.QueryRequest{
		Repository: "demo",
		Text:       "password hashing",
		Profile:    "Hybrid",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	sawBM25 := false
	for _, result := range resp.Results {
		assert.Nil(t, result.VectorScore)
		if result.BM25Score != nil && *result.BM25Score > 0 {
			sawBM25 = true
		}
	}
	assert.True(t, sawBM25, "at least one result should carry a positive bm25 score")
}

func TestQuery_BranchNotFound(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Query(ctx, service.QueryRequest{
		Repository: "demo",
		Text:       "anything",
		Branch:     "nope",
	})
	require.Error(t, err)

	var notFound *git.BranchNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Available, "master")
}

func TestQuery_RepositoryNotFound(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Query(context.Background(), service.QueryRequest{
		Repository: "ghost",
		Text:       "anything",
	})
	require.Error(t, err)

	var notFound *git.RepositoryNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Available, "demo")
}

func TestQuery_UnknownProfile(t *testing.T) {
	client := newTestClient(t)

	_, err := client.Query(context.Background(), service.QueryRequest{
		Repository: "demo",
		Text:       "anything",
		Profile:    "Turbo",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, search.ErrUnknownProfile))
}

func TestQuery_ReindexIsIdempotent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "UserService"})
	require.NoError(t, err)

	repo, err := client.Tracker().Repository(ctx, "demo")
	require.NoError(t, err)

	countSymbols := func() int64 {
		count, err := client.Stores().Symbols.Count(ctx)
		require.NoError(t, err)
		return count
	}
	before := countSymbols()
	require.NotZero(t, before)

	// A second IndexBranch call for the same head finds the branch up to
	// date and leaves the rows unchanged.
	require.NoError(t, client.IndexBranch(ctx, repo.Name(), "master"))
	assert.Equal(t, before, countSymbols())
}

func TestCallChain(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	// Index through the query path first.
	_, err := client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "UserService"})
	require.NoError(t, err)

	results, err := client.QueryService().CallChain(ctx, "demo", "master", "Login", 3)
	require.NoError(t, err)

	names := make(map[string]struct{}, len(results))
	for _, r := range results {
		names[r.SymbolName] = struct{}{}
	}
	assert.Contains(t, names, "HashPassword")
	assert.Contains(t, names, "CreateSession")
}

func TestSimilarSymbols_NoError(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "UserService"})
	require.NoError(t, err)

	// Candidate sets depend on band collisions; the lookup itself must be
	// well-formed either way.
	results, err := client.QueryService().SimilarSymbols(ctx, "demo", "master", "Login", 5)
	require.NoError(t, err)
	assert.NotNil(t, results)
}

func TestQuery_MaxResultsBudget(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.Query(context.Background(), service.QueryRequest{
		Repository: "demo",
		Text:       "password hashing session",
		MaxResults: 1,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(resp.Results), 1)
	assert.Equal(t, len(resp.Results), resp.TotalResults)
}
