package qdrant

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/quarry/internal/core/domain"
)

// StatusError is a non-2xx response from Qdrant.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("qdrant %s %s: status %d: %s", e.Method, e.Path, e.Code, strings.TrimSpace(e.Body))
}

// corruptionMarkers appear in Qdrant error bodies for failures that a fresh
// collection can repair.
var corruptionMarkers = []string{
	"corrupt",
	"panicked",
	"service internal error",
}

// IsCorruption reports whether a response carries the store-corruption signature:
// a missing collection on a points endpoint, or a 5xx with a known marker.
func IsCorruption(e *StatusError) bool {
	body := strings.ToLower(e.Body)
	if e.Code == http.StatusNotFound && strings.Contains(e.Path, "/points") && strings.Contains(body, "not found") {
		return true
	}
	if e.Code >= http.StatusInternalServerError {
		for _, m := range corruptionMarkers {
			if strings.Contains(body, m) {
				return true
			}
		}
	}
	return false
}

func classify(e *StatusError) error {
	if IsCorruption(e) {
		return fmt.Errorf("%w: %w", domain.ErrStoreCorrupted, e)
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, e)
}
