package forge

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is returned when credentials are missing or the token exchange fails.
	ErrAuthentication = errors.New("forge authentication failed")
	// ErrNoAppID is returned when no GitHub App ID is provided.
	ErrNoAppID = errors.New("no GitHub App ID provided")
	// ErrInvalidAppID is returned when the GitHub App ID is not numeric.
	ErrInvalidAppID = errors.New("invalid GitHub App ID")
	// ErrNoPrivateKey is returned when no GitHub App private key is provided.
	ErrNoPrivateKey = errors.New("no GitHub App private key provided")

	// ErrFetchPRs is returned when open pull requests cannot be listed.
	ErrFetchPRs = errors.New("cannot fetch pull requests")
	// ErrFetchBranches is returned when remote branches cannot be listed.
	ErrFetchBranches = errors.New("cannot fetch branches")
	// ErrCreatePR is returned when a pull request cannot be created.
	ErrCreatePR = errors.New("cannot create pull request")
)

// APIError provides context for a failed forge API call, allowing callers to
// log and handle failures with the operation and repository attached.
type APIError struct {
	Operation  string // The operation being performed (e.g. "list_issues", "delete_branch")
	Slug       string // The namespace/repo the operation targeted
	StatusCode int    // HTTP status code if available
	Underlying error  // The underlying error that occurred
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forge %s operation failed for %s (status %d): %v", e.Operation, e.Slug, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("forge %s operation failed for %s: %v", e.Operation, e.Slug, e.Underlying)
}

func (e *APIError) Unwrap() error {
	return e.Underlying
}
