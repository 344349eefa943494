package codeatlas

import "log/slog"

// clientOptions holds construction-time overrides.
type clientOptions struct {
	logger      *slog.Logger
	databaseURL string
}

func newClientOptions() *clientOptions {
	return &clientOptions{}
}

// Option configures the Client.
type Option func(*clientOptions)

// WithLogger sets the logger used by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithDatabaseURL overrides the connection URL derived from configuration.
// Useful for tests running against sqlite:///:memory:.
func WithDatabaseURL(url string) Option {
	return func(o *clientOptions) {
		o.databaseURL = url
	}
}
