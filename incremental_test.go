package codeatlas

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/internal/config"
)

// commitChange rewrites a file in the origin repository and commits.
func commitChange(t *testing.T, originDir, path, content string) {
	t.Helper()
	repo, err := gogit.PlainOpen(originDir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	full := filepath.Join(originDir, path)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))

	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit("update "+path, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Tester", Email: "tester@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestIncrementalReindex_HeadAdvance(t *testing.T) {
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
	)

	dbPath := filepath.Join(t.TempDir(), "atlas.db")
	client, err := New(cfg, WithDatabaseURL("sqlite:///"+dbPath))
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	require.NoError(t, client.Initialize(ctx))

	// First query indexes the initial commit.
	resp, err := client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "HashPassword"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	// A new commit renames the method; the next query must see the new
	// symbol and the incremental re-index must drop the old one.
	renamed := `using System;

namespace Acme.Auth
{
    public class UserService
    {
        private string HashSecret(string input)
        {
            return input;
        }
    }
}
`
	commitChange(t, origin, "user/UserService.cs", renamed)

	resp, err = client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "HashSecret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "HashSecret", resp.Results[0].SymbolName)

	resp, err = client.Query(ctx, service.QueryRequest{Repository: "demo", Text: "HashPassword"})
	require.NoError(t, err)
	for _, result := range resp.Results {
		assert.NotEqual(t, "HashPassword", result.SymbolName, "stale symbol survived re-index")
	}
}
