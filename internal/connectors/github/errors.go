package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// GitHub-specific errors.
var (
	// ErrConfigInvalidContentType indicates an invalid content type was specified.
	ErrConfigInvalidContentType = errors.New("github: invalid content type")

	// ErrInvalidRepo indicates a malformed owner/name repository reference.
	ErrInvalidRepo = errors.New("github: invalid repository")

	// ErrRepoNotFound indicates the repository was not found or is not accessible.
	ErrRepoNotFound = errors.New("github: repository not found")
)

// RateLimitError represents a rate limit exceeded error with reset time.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exceeded, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps a 404 onto ErrRepoNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrRepoNotFound
	}
	return nil
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRepoNotFound)
}

// IsUnauthorized checks if the error indicates a bad or missing token.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}
