// Package api provides the thin transport facades over the query
// orchestrator: an HTTP server and an MCP tool server.
package api

import (
	"errors"
	"net/http"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
)

// errorPayload maps an orchestrator error to an HTTP status and a JSON
// object with an "error" field plus a small context directory. Raw stack
// traces never reach the response path.
func errorPayload(err error) (int, map[string]any) {
	var repoNotFound *git.RepositoryNotFoundError
	if errors.As(err, &repoNotFound) {
		return http.StatusNotFound, map[string]any{
			"error":                 repoNotFound.Error(),
			"availableRepositories": repoNotFound.Available,
		}
	}

	var branchNotFound *git.BranchNotFoundError
	if errors.As(err, &branchNotFound) {
		return http.StatusNotFound, map[string]any{
			"error":             branchNotFound.Error(),
			"availableBranches": branchNotFound.Available,
		}
	}

	if errors.Is(err, search.ErrUnknownProfile) {
		return http.StatusBadRequest, map[string]any{
			"error":           err.Error(),
			"allowedProfiles": search.AllowedProfiles(),
		}
	}

	if errors.Is(err, service.ErrEmptyQuery) {
		return http.StatusBadRequest, map[string]any{
			"error": err.Error(),
		}
	}

	var transient *git.TransientError
	if errors.As(err, &transient) {
		return http.StatusServiceUnavailable, map[string]any{
			"error":     transient.Message,
			"transient": true,
			"code":      transient.Code,
		}
	}

	return http.StatusInternalServerError, map[string]any{
		"error": "internal error",
	}
}
