package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input, such as an empty query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates a configuration error. These are fatal at startup.
	ErrConfig = errors.New("configuration error")

	// ErrDimensionMismatch indicates a vector whose length differs from the store's.
	// Stores share one dimensionality for their lifetime, so this is a
	// configuration problem rather than a per-call condition.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrUnsupportedFormat indicates an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// Capability errors.

	// ErrEmbeddingUnavailable indicates the remote embedding service failed.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrGenerationUnavailable indicates the generation service failed or is not configured.
	ErrGenerationUnavailable = errors.New("generation service unavailable")

	// ErrStoreUnavailable indicates the remote vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrStoreCorrupted indicates the remote vector store reported a structural
	// failure that may be repaired by re-provisioning the collection.
	ErrStoreCorrupted = errors.New("vector store corrupted")

	// Tool process errors.

	// ErrProcessLifecycle indicates a tool worker failed to spawn, exited, or
	// did not become ready in time.
	ErrProcessLifecycle = errors.New("tool process lifecycle error")

	// ErrCallTimeout indicates a tool call received no response in time.
	ErrCallTimeout = errors.New("tool call timed out")

	// ErrToolError indicates the worker answered a call with an error object.
	ErrToolError = errors.New("tool returned error")

	// ErrUnknownProvider indicates no tool provider is registered under a name.
	ErrUnknownProvider = errors.New("unknown tool provider")
)
