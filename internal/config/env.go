package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvConfig holds all environment-based configuration.
// Variables carry the CODEATLAS_ prefix, e.g. CODEATLAS_WORKING_DIRECTORY.
type EnvConfig struct {
	// Host is the server host to bind to.
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	Port int `envconfig:"PORT" default:"8080"`

	// LogLevel is the log verbosity level.
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// WorkingDirectory is the filesystem root for local bare mirrors.
	WorkingDirectory string `envconfig:"WORKING_DIRECTORY"`

	// RepositoriesFile is the path to the YAML repositories list.
	RepositoriesFile string `envconfig:"REPOSITORIES_FILE" default:"repositories.yaml"`

	// MaxFileBytes skips files larger than this during indexing.
	MaxFileBytes int64 `envconfig:"MAX_FILE_BYTES" default:"1572864"`

	// ExcludeFolders is a comma-separated list of folder names to skip.
	ExcludeFolders []string `envconfig:"EXCLUDE_FOLDERS"`

	// ExcludeFileNames is a comma-separated list of file names to skip.
	ExcludeFileNames []string `envconfig:"EXCLUDE_FILE_NAMES"`

	// ExcludeExtensions is a comma-separated list of extensions to skip.
	ExcludeExtensions []string `envconfig:"EXCLUDE_EXTENSIONS"`

	// IncludeExtensions force-includes extensions even if otherwise filtered.
	IncludeExtensions []string `envconfig:"INCLUDE_EXTENSIONS"`

	// ChunkContextLinesBefore is the context overlap above a symbol.
	ChunkContextLinesBefore int `envconfig:"CHUNK_CONTEXT_LINES_BEFORE" default:"5"`

	// ChunkContextLinesAfter is the context overlap below a symbol.
	ChunkContextLinesAfter int `envconfig:"CHUNK_CONTEXT_LINES_AFTER" default:"5"`

	// MaxChunkChars is the hard character cap per chunk.
	MaxChunkChars int `envconfig:"MAX_CHUNK_CHARS" default:"30000"`

	// Embedding configures the external embedding service.
	Embedding EmbeddingEnv `envconfig:"EMBEDDING"`

	// Database configures the backing store.
	Database DatabaseEnv `envconfig:"DB"`

	// MaxResults is the retrieval candidate limit.
	MaxResults int `envconfig:"MAX_RESULTS" default:"20"`

	// MaxResponseResults is the outbound result-count budget.
	MaxResponseResults int `envconfig:"MAX_RESPONSE_RESULTS" default:"10"`

	// MaxResponseSnippetChars is the total snippet character budget.
	MaxResponseSnippetChars int `envconfig:"MAX_RESPONSE_SNIPPET_CHARS" default:"20000"`

	// MaxResponseBytes is the serialized response byte budget.
	MaxResponseBytes int `envconfig:"MAX_RESPONSE_BYTES" default:"65536"`

	// FileReadConcurrency is the parallel file read/parse degree.
	// Zero means the number of CPU cores.
	FileReadConcurrency int `envconfig:"FILE_READ_CONCURRENCY" default:"0"`

	// WriteBatchSize sets AppConfig.WriteBatchSize; the persistence stores
	// insert in fixed batches of 500 rows and do not read it.
	WriteBatchSize int `envconfig:"WRITE_BATCH_SIZE" default:"500"`

	// StaleBranchDays marks branches idle longer than this as stale.
	StaleBranchDays int `envconfig:"STALE_BRANCH_DAYS" default:"14"`

	// SweepIntervalSeconds is the background staleness sweep period.
	SweepIntervalSeconds int `envconfig:"SWEEP_INTERVAL_SECONDS" default:"3600"`
}

// EmbeddingEnv holds environment configuration for the embedder.
type EmbeddingEnv struct {
	// ServiceURL is the base URL of the OpenAI-compatible endpoint.
	ServiceURL string `envconfig:"SERVICE_URL"`

	// APIKey authenticates against the endpoint.
	APIKey string `envconfig:"API_KEY"`

	// Model is the embedding model identifier.
	Model string `envconfig:"MODEL" default:"text-embedding-3-small"`

	// BatchSize is the maximum texts per request.
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`

	// TimeoutSeconds is the per-batch request timeout.
	TimeoutSeconds float64 `envconfig:"TIMEOUT_SECONDS" default:"30"`
}

// DatabaseEnv holds environment configuration for the backing store.
type DatabaseEnv struct {
	Host                  string  `envconfig:"HOST"`
	Port                  int     `envconfig:"PORT" default:"5432"`
	Name                  string  `envconfig:"NAME" default:"codeatlas"`
	User                  string  `envconfig:"USER" default:"codeatlas"`
	Password              string  `envconfig:"PASSWORD"`
	MinPool               int     `envconfig:"MIN_POOL" default:"2"`
	MaxPool               int     `envconfig:"MAX_POOL" default:"10"`
	CommandTimeoutSeconds float64 `envconfig:"COMMAND_TIMEOUT_SECONDS" default:"30"`
}

// LoadFromEnv loads configuration from CODEATLAS_-prefixed environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("CODEATLAS", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadConfig loads configuration from a .env file (optional), environment
// variables, and the YAML repositories file. The resulting AppConfig is
// validated; configuration errors are fatal at startup.
func LoadConfig(envPath string) (AppConfig, error) {
	if err := LoadDotEnv(envPath); err != nil {
		return AppConfig{}, err
	}

	envCfg, err := LoadFromEnv()
	if err != nil {
		return AppConfig{}, err
	}

	repos, err := LoadRepositoriesFile(envCfg.RepositoriesFile)
	if err != nil {
		return AppConfig{}, err
	}

	cfg := envCfg.ToAppConfig()
	cfg.repositories = repos

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadRepositoriesFile parses the YAML repositories list.
// The file has the form:
//
//	repositories:
//	  - name: demo
//	    remoteUrl: https://example.com/demo.git
//	    defaultBranch: main
func LoadRepositoriesFile(path string) ([]RepositoryConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read repositories file: %w", err)
	}

	var doc struct {
		Repositories []RepositoryConfig `yaml:"repositories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse repositories file: %w", err)
	}
	return doc.Repositories, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	cfg.host = e.Host
	cfg.port = e.Port
	cfg.logLevel = e.LogLevel
	cfg.logFormat = parseLogFormat(e.LogFormat)
	cfg.workingDirectory = e.WorkingDirectory

	if e.MaxFileBytes > 0 {
		cfg.maxFileBytes = e.MaxFileBytes
	}
	if len(e.ExcludeFolders) > 0 {
		cfg.excludeFolders = e.ExcludeFolders
	}
	cfg.excludeFileNames = e.ExcludeFileNames
	if len(e.ExcludeExtensions) > 0 {
		cfg.excludeExtensions = normalizeExtensions(e.ExcludeExtensions)
	}
	cfg.includeExtensions = normalizeExtensions(e.IncludeExtensions)

	if e.ChunkContextLinesBefore >= 0 {
		cfg.contextLinesBefore = e.ChunkContextLinesBefore
	}
	if e.ChunkContextLinesAfter >= 0 {
		cfg.contextLinesAfter = e.ChunkContextLinesAfter
	}
	if e.MaxChunkChars > 0 {
		cfg.maxChunkChars = e.MaxChunkChars
	}

	cfg.embedding = EmbeddingConfig{
		serviceURL: e.Embedding.ServiceURL,
		apiKey:     e.Embedding.APIKey,
		model:      e.Embedding.Model,
		batchSize:  e.Embedding.BatchSize,
		timeout:    time.Duration(e.Embedding.TimeoutSeconds * float64(time.Second)),
	}

	cfg.database = DatabaseConfig{
		host:           e.Database.Host,
		port:           e.Database.Port,
		name:           e.Database.Name,
		user:           e.Database.User,
		password:       e.Database.Password,
		minPool:        e.Database.MinPool,
		maxPool:        e.Database.MaxPool,
		commandTimeout: time.Duration(e.Database.CommandTimeoutSeconds * float64(time.Second)),
	}

	if e.MaxResults > 0 {
		cfg.maxResults = e.MaxResults
	}
	if e.MaxResponseResults > 0 {
		cfg.responseResults = e.MaxResponseResults
	}
	if e.MaxResponseSnippetChars > 0 {
		cfg.snippetChars = e.MaxResponseSnippetChars
	}
	if e.MaxResponseBytes > 0 {
		cfg.responseBytes = e.MaxResponseBytes
	}
	if e.FileReadConcurrency > 0 {
		cfg.fileReadWorkers = e.FileReadConcurrency
	}
	if e.WriteBatchSize > 0 {
		cfg.writeBatchSize = e.WriteBatchSize
	}
	if e.StaleBranchDays > 0 {
		cfg.staleBranchAfter = time.Duration(e.StaleBranchDays) * 24 * time.Hour
	}
	if e.SweepIntervalSeconds > 0 {
		cfg.sweepInterval = time.Duration(e.SweepIntervalSeconds) * time.Second
	}

	return cfg
}

// normalizeExtensions lower-cases extensions and ensures a leading dot.
func normalizeExtensions(exts []string) []string {
	result := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		result = append(result, ext)
	}
	return result
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}
