package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeatlas-ai/codeatlas/application/service"
	"github.com/codeatlas-ai/codeatlas/domain/search"
	"github.com/codeatlas-ai/codeatlas/infrastructure/git"
)

func TestErrorPayload_RepositoryNotFound(t *testing.T) {
	err := &git.RepositoryNotFoundError{Name: "ghost", Available: []string{"demo", "other"}}

	status, payload := errorPayload(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.NotEmpty(t, payload["error"])
	assert.Equal(t, []string{"demo", "other"}, payload["availableRepositories"])
}

func TestErrorPayload_BranchNotFound(t *testing.T) {
	err := fmt.Errorf("query: %w", &git.BranchNotFoundError{
		Repository: "demo",
		Branch:     "nope",
		Available:  []string{"main", "dev"},
	})

	status, payload := errorPayload(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, []string{"main", "dev"}, payload["availableBranches"])
}

func TestErrorPayload_UnknownProfile(t *testing.T) {
	_, err := search.ParseProfile("Turbo")

	status, payload := errorPayload(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, search.AllowedProfiles(), payload["allowedProfiles"])
}

func TestErrorPayload_EmptyQuery(t *testing.T) {
	status, payload := errorPayload(service.ErrEmptyQuery)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, payload["error"])
}

func TestErrorPayload_Transient(t *testing.T) {
	err := &git.TransientError{Code: "network", Message: "connection reset"}

	status, payload := errorPayload(err)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, true, payload["transient"])
	assert.Equal(t, "network", payload["code"])
}

func TestErrorPayload_InternalHidesDetails(t *testing.T) {
	status, payload := errorPayload(fmt.Errorf("pq: cannot connect at host secret-db:5432"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", payload["error"])
}
