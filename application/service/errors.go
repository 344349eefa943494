// Package service provides application layer services that orchestrate the
// indexing pipeline and query handling.
package service

import "errors"

// Sentinel errors shared across services.
var (
	// ErrClientClosed indicates the service was used after shutdown.
	ErrClientClosed = errors.New("client is closed")

	// ErrEmptyQuery indicates a query request without text.
	ErrEmptyQuery = errors.New("query text is required")
)
