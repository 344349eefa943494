package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAppConfig_Validate(t *testing.T) {
	valid := NewAppConfigWithOptions(
		WithWorkingDirectory("/tmp/atlas"),
		WithRepositories(RepositoryConfig{Name: "demo", RemoteURL: "https://example.com/demo.git", DefaultBranch: "main"}),
	)
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	missingDir := NewAppConfigWithOptions(
		WithRepositories(RepositoryConfig{Name: "demo", RemoteURL: "https://x.git"}),
	)
	if err := missingDir.Validate(); err == nil {
		t.Error("missing workingDirectory accepted")
	}

	noRepos := NewAppConfigWithOptions(WithWorkingDirectory("/tmp/atlas"))
	if err := noRepos.Validate(); err == nil {
		t.Error("empty repositories accepted")
	}

	duplicate := NewAppConfigWithOptions(
		WithWorkingDirectory("/tmp/atlas"),
		WithRepositories(
			RepositoryConfig{Name: "demo", RemoteURL: "https://a.git"},
			RepositoryConfig{Name: "demo", RemoteURL: "https://b.git"},
		),
	)
	if err := duplicate.Validate(); err == nil {
		t.Error("duplicate repository names accepted")
	}

	missingURL := NewAppConfigWithOptions(
		WithWorkingDirectory("/tmp/atlas"),
		WithRepositories(RepositoryConfig{Name: "demo"}),
	)
	if err := missingURL.Validate(); err == nil {
		t.Error("repository without remoteUrl accepted")
	}
}

func TestEnvConfig_ToAppConfig(t *testing.T) {
	env := EnvConfig{
		Host:                    "127.0.0.1",
		Port:                    9999,
		LogLevel:                "DEBUG",
		LogFormat:               "json",
		WorkingDirectory:        "/data/mirrors",
		MaxFileBytes:            1024,
		ExcludeExtensions:       []string{"png", ".jpg"},
		ChunkContextLinesBefore: 3,
		ChunkContextLinesAfter:  7,
		MaxChunkChars:           5000,
		Embedding: EmbeddingEnv{
			ServiceURL:     "http://embedder:8000/v1",
			Model:          "test-model",
			BatchSize:      16,
			TimeoutSeconds: 2.5,
		},
		Database: DatabaseEnv{
			Host:                  "db",
			Port:                  5433,
			Name:                  "atlas",
			User:                  "atlas",
			Password:              "secret",
			MinPool:               1,
			MaxPool:               4,
			CommandTimeoutSeconds: 10,
		},
		MaxResults:          50,
		FileReadConcurrency: 8,
		StaleBranchDays:     7,
	}

	cfg := env.ToAppConfig()

	if cfg.Host() != "127.0.0.1" || cfg.Port() != 9999 {
		t.Errorf("host/port = %s/%d", cfg.Host(), cfg.Port())
	}
	if cfg.LogFormat() != LogFormatJSON {
		t.Errorf("log format = %v", cfg.LogFormat())
	}
	if cfg.WorkingDirectory() != "/data/mirrors" {
		t.Errorf("workingDirectory = %s", cfg.WorkingDirectory())
	}
	if cfg.MaxFileBytes() != 1024 {
		t.Errorf("maxFileBytes = %d", cfg.MaxFileBytes())
	}

	exts := cfg.ExcludeExtensions()
	if len(exts) != 2 || exts[0] != ".png" || exts[1] != ".jpg" {
		t.Errorf("excludeExtensions = %v (want normalized leading dots)", exts)
	}

	if cfg.ContextLinesBefore() != 3 || cfg.ContextLinesAfter() != 7 {
		t.Errorf("context lines = %d/%d", cfg.ContextLinesBefore(), cfg.ContextLinesAfter())
	}

	emb := cfg.Embedding()
	if !emb.IsConfigured() {
		t.Fatal("embedding endpoint should be configured")
	}
	if emb.Timeout() != 2500*time.Millisecond {
		t.Errorf("embedding timeout = %v", emb.Timeout())
	}

	dbURL := cfg.Database().URL("/data")
	want := "postgresql://atlas:secret@db:5433/atlas"
	if dbURL != want {
		t.Errorf("database URL = %s, want %s", dbURL, want)
	}

	if cfg.StaleBranchAfter() != 7*24*time.Hour {
		t.Errorf("staleBranchAfter = %v", cfg.StaleBranchAfter())
	}
}

func TestDatabaseConfig_SQLiteFallback(t *testing.T) {
	cfg := NewAppConfig()
	url := cfg.Database().URL("/data/atlas")
	if url != "sqlite:///"+"/data/atlas/codeatlas.db" {
		t.Errorf("fallback URL = %s", url)
	}
}

func TestLoadRepositoriesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "repositories.yaml")
	content := `repositories:
  - name: demo
    remoteUrl: https://example.com/demo.git
    defaultBranch: main
  - name: other
    remoteUrl: https://example.com/other.git
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	repos, err := LoadRepositoriesFile(path)
	if err != nil {
		t.Fatalf("LoadRepositoriesFile: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("got %d repositories", len(repos))
	}
	if repos[0].Name != "demo" || repos[0].DefaultBranch != "main" {
		t.Errorf("unexpected first repo: %+v", repos[0])
	}

	// A missing file is not an error; it yields no repositories.
	missing, err := LoadRepositoriesFile(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Errorf("missing file: %v", err)
	}
	if missing != nil {
		t.Errorf("missing file returned %v", missing)
	}
}
