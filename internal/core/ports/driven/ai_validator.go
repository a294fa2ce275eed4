package driven

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// EmbeddingValidator checks an embedding configuration before it is used.
// Remote providers are pinged; local providers have their model loaded.
type EmbeddingValidator interface {
	// ValidateEmbedding returns nil if the configuration can produce embeddings.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
}
