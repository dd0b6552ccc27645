// Package domain defines the core business entities for Quarry.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A unit of ingested text with provenance
//   - Chunk: A retrievable span of a document
//   - VectorRecord: The unit stored in and returned by the vector store
//   - QueryRecord: One answered question, kept in history
//   - SyncState: Per-source aggregation progress
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
package domain
