package driven

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// Chunker splits a document into retrievable chunks.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Process splits doc.Content into chunks owned by doc.
	// Chunks carry IDs, the document ID and their position; no embeddings.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
