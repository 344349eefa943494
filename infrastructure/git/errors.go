package git

import (
	"context"
	"errors"
	"net"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Sentinel errors for permanent failure modes.
var (
	// ErrBranchNotFound indicates the requested branch does not exist on
	// the remote or in the mirror.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrRepositoryNotFound indicates no mirror exists for the repository.
	ErrRepositoryNotFound = errors.New("repository not found")
)

// TransientError wraps a failure the caller may retry: network trouble,
// authentication hiccups, remote timeouts. Transient errors never advance
// the indexed-commit cursor.
type TransientError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return "transient git error (" + e.Code + "): " + e.Message
}

// Unwrap returns the underlying error.
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// classify wraps network and authentication errors as transient; reference
// errors stay permanent.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, gogit.ErrBranchNotFound),
		errors.Is(err, ErrBranchNotFound):
		return err
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return &TransientError{Code: "auth", Message: err.Error(), Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &TransientError{Code: "timeout", Message: op + " timed out", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &TransientError{Code: "network", Message: err.Error(), Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransientError{Code: "network", Message: err.Error(), Err: err}
	}

	return err
}
