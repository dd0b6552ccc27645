// Package mcp exposes Quarry's query and retrieval operations as a Model
// Context Protocol server for AI assistants.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
