package driven

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for durable storage, or memory for tests.
type DocumentStore interface {
	// SaveDocument stores a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks replaces the chunks of a document.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents, oldest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// LoadChunks retrieves the chunks of a document with their embeddings,
	// ordered by position.
	LoadChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// LoadAllChunks returns a snapshot of every chunk, ordered by document
	// creation time then position. Retrieval scans this snapshot.
	LoadAllChunks(ctx context.Context) ([]domain.Chunk, error)

	// ChunksMissingEmbedding returns chunks that have no embedding yet.
	ChunksMissingEmbedding(ctx context.Context) ([]domain.Chunk, error)

	// UpdateEmbeddings attaches embeddings to chunks, keyed by chunk ID.
	UpdateEmbeddings(ctx context.Context, embeddings map[string][]float32) error

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error
}
