// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"time"
)

// Default configuration values.
const (
	DefaultHost                = "0.0.0.0"
	DefaultPort                = 8080
	DefaultLogLevel            = "INFO"
	DefaultMaxFileBytes        = 1_572_864 // 1.5 MB
	DefaultContextLinesBefore  = 5
	DefaultContextLinesAfter   = 5
	DefaultMaxChunkChars       = 30_000
	DefaultEmbeddingBatchSize  = 32
	DefaultEmbeddingTimeout    = 30 * time.Second
	DefaultEmbeddingModel      = "text-embedding-3-small"
	DefaultMaxResults          = 20
	DefaultMaxResponseResults  = 10
	DefaultMaxSnippetChars     = 20_000
	DefaultMaxResponseBytes    = 65_536
	DefaultStaleBranchDays     = 14
	DefaultSweepInterval       = time.Hour
	DefaultWriteBatchSize      = 500
	DefaultDBMinPool           = 2
	DefaultDBMaxPool           = 10
	DefaultDBCommandTimeout    = 30 * time.Second
	DefaultDBPort              = 5432
)

// DefaultExcludeFolders are directory names skipped during indexing.
var DefaultExcludeFolders = []string{
	".git", ".svn", ".hg", "node_modules", "bin", "obj", "dist", "build",
	"target", "vendor", "__pycache__", ".idea", ".vs", ".vscode",
}

// DefaultExcludeExtensions are file extensions skipped during indexing.
var DefaultExcludeExtensions = []string{
	".exe", ".dll", ".so", ".dylib", ".bin", ".o", ".a", ".zip", ".tar",
	".gz", ".7z", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".pdf", ".lock",
}

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// RepositoryConfig describes one repository to mirror and index.
type RepositoryConfig struct {
	Name          string `yaml:"name"`
	RemoteURL     string `yaml:"remoteUrl"`
	DefaultBranch string `yaml:"defaultBranch"`
}

// Validate checks the repository entry for required fields.
func (r RepositoryConfig) Validate() error {
	if r.Name == "" {
		return errors.New("repository name is required")
	}
	if r.RemoteURL == "" {
		return fmt.Errorf("repository %q: remoteUrl is required", r.Name)
	}
	return nil
}

// DatabaseConfig holds the backing-store connection settings.
type DatabaseConfig struct {
	host           string
	port           int
	name           string
	user           string
	password       string
	minPool        int
	maxPool        int
	commandTimeout time.Duration
}

// Host returns the database host. Empty means SQLite fallback.
func (d DatabaseConfig) Host() string { return d.host }

// Port returns the database port.
func (d DatabaseConfig) Port() int { return d.port }

// Name returns the database name.
func (d DatabaseConfig) Name() string { return d.name }

// User returns the database user.
func (d DatabaseConfig) User() string { return d.user }

// Password returns the database password.
func (d DatabaseConfig) Password() string { return d.password }

// MinPool returns the minimum connection pool size.
func (d DatabaseConfig) MinPool() int { return d.minPool }

// MaxPool returns the maximum connection pool size.
func (d DatabaseConfig) MaxPool() int { return d.maxPool }

// CommandTimeout returns the per-statement timeout.
func (d DatabaseConfig) CommandTimeout() time.Duration { return d.commandTimeout }

// URL builds a connection URL understood by internal/database.
// With no host configured it falls back to a SQLite file under dataDir.
func (d DatabaseConfig) URL(dataDir string) string {
	if d.host == "" {
		return "sqlite:///" + dataDir + "/codeatlas.db"
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s", d.user, d.password, d.host, d.port, d.name)
}

// EmbeddingConfig holds the external embedder settings.
type EmbeddingConfig struct {
	serviceURL string
	apiKey     string
	model      string
	batchSize  int
	timeout    time.Duration
}

// ServiceURL returns the embedding endpoint base URL.
func (e EmbeddingConfig) ServiceURL() string { return e.serviceURL }

// APIKey returns the embedding endpoint API key.
func (e EmbeddingConfig) APIKey() string { return e.apiKey }

// Model returns the embedding model identifier.
func (e EmbeddingConfig) Model() string { return e.model }

// BatchSize returns the maximum texts per embedding request.
func (e EmbeddingConfig) BatchSize() int { return e.batchSize }

// Timeout returns the per-batch request timeout.
func (e EmbeddingConfig) Timeout() time.Duration { return e.timeout }

// IsConfigured reports whether an embedding endpoint is set.
// Without one, indexing and queries run in sparse-only mode.
func (e EmbeddingConfig) IsConfigured() bool { return e.serviceURL != "" }

// AppConfig is the resolved application configuration.
type AppConfig struct {
	host      string
	port      int
	logLevel  string
	logFormat LogFormat

	workingDirectory string
	repositories     []RepositoryConfig

	maxFileBytes      int64
	excludeFolders    []string
	excludeFileNames  []string
	excludeExtensions []string
	includeExtensions []string

	contextLinesBefore int
	contextLinesAfter  int
	maxChunkChars      int

	embedding EmbeddingConfig
	database  DatabaseConfig

	maxResults       int
	responseResults  int
	snippetChars     int
	responseBytes    int
	fileReadWorkers  int
	writeBatchSize   int
	staleBranchAfter time.Duration
	sweepInterval    time.Duration
}

// NewAppConfig returns an AppConfig populated with defaults.
func NewAppConfig() AppConfig {
	return AppConfig{
		host:               DefaultHost,
		port:               DefaultPort,
		logLevel:           DefaultLogLevel,
		logFormat:          LogFormatPretty,
		maxFileBytes:       DefaultMaxFileBytes,
		excludeFolders:     DefaultExcludeFolders,
		excludeExtensions:  DefaultExcludeExtensions,
		contextLinesBefore: DefaultContextLinesBefore,
		contextLinesAfter:  DefaultContextLinesAfter,
		maxChunkChars:      DefaultMaxChunkChars,
		embedding: EmbeddingConfig{
			model:     DefaultEmbeddingModel,
			batchSize: DefaultEmbeddingBatchSize,
			timeout:   DefaultEmbeddingTimeout,
		},
		database: DatabaseConfig{
			port:           DefaultDBPort,
			minPool:        DefaultDBMinPool,
			maxPool:        DefaultDBMaxPool,
			commandTimeout: DefaultDBCommandTimeout,
		},
		maxResults:       DefaultMaxResults,
		responseResults:  DefaultMaxResponseResults,
		snippetChars:     DefaultMaxSnippetChars,
		responseBytes:    DefaultMaxResponseBytes,
		fileReadWorkers:  runtime.NumCPU(),
		writeBatchSize:   DefaultWriteBatchSize,
		staleBranchAfter: DefaultStaleBranchDays * 24 * time.Hour,
		sweepInterval:    DefaultSweepInterval,
	}
}

// Host returns the server bind host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// LogLevel returns the log verbosity.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// WorkingDirectory returns the filesystem root for bare mirrors.
func (c AppConfig) WorkingDirectory() string { return c.workingDirectory }

// Repositories returns the configured repositories.
func (c AppConfig) Repositories() []RepositoryConfig {
	result := make([]RepositoryConfig, len(c.repositories))
	copy(result, c.repositories)
	return result
}

// MaxFileBytes returns the per-file size cap; larger files are skipped.
func (c AppConfig) MaxFileBytes() int64 { return c.maxFileBytes }

// ExcludeFolders returns folder names excluded from indexing.
func (c AppConfig) ExcludeFolders() []string { return c.excludeFolders }

// ExcludeFileNames returns file names excluded from indexing.
func (c AppConfig) ExcludeFileNames() []string { return c.excludeFileNames }

// ExcludeExtensions returns extensions excluded from indexing.
func (c AppConfig) ExcludeExtensions() []string { return c.excludeExtensions }

// IncludeExtensions returns extensions force-included even when filtered.
func (c AppConfig) IncludeExtensions() []string { return c.includeExtensions }

// ContextLinesBefore returns chunk context lines above a symbol.
func (c AppConfig) ContextLinesBefore() int { return c.contextLinesBefore }

// ContextLinesAfter returns chunk context lines below a symbol.
func (c AppConfig) ContextLinesAfter() int { return c.contextLinesAfter }

// MaxChunkChars returns the hard character cap per chunk.
func (c AppConfig) MaxChunkChars() int { return c.maxChunkChars }

// Embedding returns the embedder settings.
func (c AppConfig) Embedding() EmbeddingConfig { return c.embedding }

// Database returns the backing-store settings.
func (c AppConfig) Database() DatabaseConfig { return c.database }

// MaxResults returns the retrieval candidate limit.
func (c AppConfig) MaxResults() int { return c.maxResults }

// MaxResponseResults returns the outbound result-count budget.
func (c AppConfig) MaxResponseResults() int { return c.responseResults }

// MaxResponseSnippetChars returns the total snippet character budget.
func (c AppConfig) MaxResponseSnippetChars() int { return c.snippetChars }

// MaxResponseBytes returns the serialized response byte budget.
func (c AppConfig) MaxResponseBytes() int { return c.responseBytes }

// FileReadConcurrency returns the parallel file read/parse degree.
func (c AppConfig) FileReadConcurrency() int { return c.fileReadWorkers }

// WriteBatchSize returns the configured write batch size. The persistence
// stores do not read it; they insert in fixed batches of 500 rows.
func (c AppConfig) WriteBatchSize() int { return c.writeBatchSize }

// StaleBranchAfter returns the idle duration after which a branch goes stale.
func (c AppConfig) StaleBranchAfter() time.Duration { return c.staleBranchAfter }

// SweepInterval returns the background staleness sweep period.
func (c AppConfig) SweepInterval() time.Duration { return c.sweepInterval }

// Validate checks for fatal configuration errors.
func (c AppConfig) Validate() error {
	if c.workingDirectory == "" {
		return errors.New("workingDirectory is required")
	}
	if len(c.repositories) == 0 {
		return errors.New("at least one repository must be configured")
	}
	seen := make(map[string]struct{}, len(c.repositories))
	for _, repo := range c.repositories {
		if err := repo.Validate(); err != nil {
			return err
		}
		if _, dup := seen[repo.Name]; dup {
			return fmt.Errorf("duplicate repository name %q", repo.Name)
		}
		seen[repo.Name] = struct{}{}
	}
	if c.maxChunkChars <= 0 {
		return errors.New("maxChunkChars must be positive")
	}
	if c.fileReadWorkers <= 0 {
		return errors.New("fileReadConcurrency must be positive")
	}
	return nil
}
