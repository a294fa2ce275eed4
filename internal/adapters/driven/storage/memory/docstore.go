package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Reads return copies, so callers get a stable snapshot.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	order     []string
	chunks    map[string][]domain.Chunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; !exists {
		s.order = append(s.order, doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

// SaveChunks replaces the chunks of a document.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return fmt.Errorf("save chunks for %s: %w", documentID, domain.ErrNotFound)
	}
	stored := copyChunks(chunks)
	sort.SliceStable(stored, func(i, j int) bool { return stored[i].Position < stored[j].Position })
	s.chunks[documentID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns all documents in insertion order.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.documents[id])
	}
	return result, nil
}

// LoadChunks retrieves the chunks of a document ordered by position.
func (s *DocumentStore) LoadChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyChunks(s.chunks[documentID]), nil
}

// LoadAllChunks returns every chunk in document order, then position.
func (s *DocumentStore) LoadAllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Chunk
	for _, id := range s.order {
		result = append(result, copyChunks(s.chunks[id])...)
	}
	return result, nil
}

// ChunksMissingEmbedding returns chunks that have no embedding.
func (s *DocumentStore) ChunksMissingEmbedding(ctx context.Context) ([]domain.Chunk, error) {
	all, err := s.LoadAllChunks(ctx)
	if err != nil {
		return nil, err
	}
	var missing []domain.Chunk
	for _, c := range all {
		if !c.HasEmbedding() {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

// UpdateEmbeddings attaches embeddings to chunks by ID. Unknown IDs are ignored.
func (s *DocumentStore) UpdateEmbeddings(_ context.Context, embeddings map[string][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chunks := range s.chunks {
		for i := range chunks {
			if vec, ok := embeddings[chunks[i].ID]; ok {
				chunks[i].Embedding = append([]float32(nil), vec...)
			}
		}
	}
	return nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.chunks, id)
	for i, docID := range s.order {
		if docID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func copyChunks(chunks []domain.Chunk) []domain.Chunk {
	if chunks == nil {
		return nil
	}
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		if c.Embedding != nil {
			c.Embedding = append([]float32(nil), c.Embedding...)
		}
		out[i] = c
	}
	return out
}
