// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document and chunk persistence
//   - Chunker: Splits document text into chunks
//   - NormaliserRegistry: Turns uploaded files into document text
//   - ConfigStore: Application configuration
//   - ModelStore: On-disk layout of local model artifacts
//   - ArtifactFetcher: Downloads local model artifacts
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingProvider: Generates vector embeddings. Without it, only
//     keyword retrieval is available.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
