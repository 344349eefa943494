package config

// AppConfigOption mutates an AppConfig during construction.
type AppConfigOption func(*AppConfig)

// NewAppConfigWithOptions builds an AppConfig from defaults plus options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithLogLevel sets the log verbosity.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log output format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithWorkingDirectory sets the mirror root.
func WithWorkingDirectory(dir string) AppConfigOption {
	return func(c *AppConfig) { c.workingDirectory = dir }
}

// WithRepositories sets the configured repositories.
func WithRepositories(repos ...RepositoryConfig) AppConfigOption {
	return func(c *AppConfig) {
		c.repositories = append([]RepositoryConfig(nil), repos...)
	}
}

// WithMaxChunkChars sets the per-chunk character cap.
func WithMaxChunkChars(n int) AppConfigOption {
	return func(c *AppConfig) { c.maxChunkChars = n }
}

// WithResponseBudgets sets the three outbound budgets.
func WithResponseBudgets(maxResults, snippetChars, responseBytes int) AppConfigOption {
	return func(c *AppConfig) {
		c.responseResults = maxResults
		c.snippetChars = snippetChars
		c.responseBytes = responseBytes
	}
}

// WithFileReadConcurrency sets the parallel read/parse degree.
func WithFileReadConcurrency(n int) AppConfigOption {
	return func(c *AppConfig) { c.fileReadWorkers = n }
}
