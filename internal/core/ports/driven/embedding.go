// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// EmbeddingProvider generates vector embeddings from text.
// This is an optional dependency - when nil or unavailable, vector and
// hybrid retrieval are disabled and only keyword retrieval works.
//
// Implementations:
//   - Local: on-device ONNX model (multilingual E5 family)
//   - Remote: OpenAI, Ollama or Gemini embeddings API
type EmbeddingProvider interface {
	// Dimensions returns the embedding vector size, 0 if uninitialised.
	Dimensions() int

	// IsAvailable returns true if Embed can be called.
	IsAvailable() bool

	// Initialize loads or configures the model. Local providers fail with
	// domain.ErrUnknownModel or domain.ErrMissingArtifact; they never download.
	Initialize(ctx context.Context, modelID string) error

	// Embed generates a vector for text. isQuery selects query-side or
	// passage-side preparation for models that distinguish the two.
	Embed(ctx context.Context, text string, isQuery bool) ([]float32, error)

	// ModelName returns the name of the embedding model in use.
	ModelName() string

	// ProviderName returns the provider variant name (e.g., "local", "openai").
	ProviderName() string

	// Stats returns call counters. Safe to call from any goroutine.
	Stats() domain.EmbeddingStats

	// Close releases model resources and resets Dimensions to 0.
	Close() error
}
