package driving

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// DocumentService ingests and manages documents.
type DocumentService interface {
	// Ingest chunks, stores and embeds a document from text.
	Ingest(ctx context.Context, filename, content string) (*domain.IngestReport, error)

	// IngestFile normalises, chunks, stores and embeds a file from disk.
	IngestFile(ctx context.Context, path string) (*domain.IngestReport, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// Chunks returns the chunks of a document in position order.
	Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error

	// ReembedMissing embeds every stored chunk that has no embedding.
	// Returns the number of chunks embedded.
	ReembedMissing(ctx context.Context) (int, error)
}
