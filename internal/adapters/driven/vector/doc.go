// Package vector groups the VectorStore adapters.
//
//   - memory: in-process linear scan, always available
//   - qdrant: remote ANN service over its REST API
//   - failover: remote store with one recovery attempt, then a permanent
//     downgrade to the in-process store
package vector
