// Package domain defines the core entities of the chatrag retrieval engine.
//
// This package is the innermost layer of the hexagonal architecture.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document and Chunk: uploaded text and its retrievable slices
//   - RetrievalMode, RetrievalRequest, RetrievalResult: the query contract
//   - ScoredChunkCandidate and RagTrace: the diagnostic flight record
//   - EmbeddingModelDescriptor: the static local model catalog
//   - DownloadState: the per-model artifact lifecycle
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
