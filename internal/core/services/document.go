package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultEmbedConcurrency bounds concurrent chunk embedding calls at ingest.
const DefaultEmbedConcurrency = 4

// DocumentService ingests documents: normalise, chunk, store, embed.
type DocumentService struct {
	docStore    driven.DocumentStore
	chunker     driven.Chunker
	registry    driven.NormaliserRegistry
	embedder    driven.EmbeddingProvider
	concurrency int
	clock       func() time.Time
}

// NewDocumentService creates a new document service.
// The registry and embedder are optional (can be nil). Without an embedder
// chunks are stored unembedded and can be embedded later with ReembedMissing.
func NewDocumentService(
	docStore driven.DocumentStore,
	chunker driven.Chunker,
	registry driven.NormaliserRegistry,
	embedder driven.EmbeddingProvider,
) *DocumentService {
	return &DocumentService{
		docStore:    docStore,
		chunker:     chunker,
		registry:    registry,
		embedder:    embedder,
		concurrency: DefaultEmbedConcurrency,
		clock:       time.Now,
	}
}

// SetConcurrency sets the bound on concurrent embedding calls.
func (s *DocumentService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Ingest chunks, stores and embeds a document.
func (s *DocumentService) Ingest(ctx context.Context, filename, content string) (*domain.IngestReport, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, fmt.Errorf("%w: empty filename", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s has no text content", domain.ErrInvalidInput, filename)
	}

	start := s.clock()
	logger.Section("Ingest")
	logger.Debug("Document: %s (%d bytes)", filename, len(content))

	doc := &domain.Document{
		ID:        uuid.New().String(),
		Filename:  filename,
		Content:   content,
		CreatedAt: start.UTC(),
	}

	chunks, err := s.chunker.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	if err := s.docStore.SaveChunks(ctx, doc.ID, chunks); err != nil {
		return nil, fmt.Errorf("save chunks: %w", err)
	}

	report := &domain.IngestReport{Document: *doc, Chunks: len(chunks)}
	embedded, failed, err := s.embedChunks(ctx, chunks)
	report.Embedded = embedded
	report.Failed = failed
	report.Duration = s.clock().Sub(start)
	if err != nil {
		return report, err
	}

	logger.Info("Ingested %s: %d chunks, %d embedded, %d failed in %s",
		filename, report.Chunks, report.Embedded, report.Failed, report.Duration)
	return report, nil
}

// IngestFile normalises a file from disk and ingests it.
func (s *DocumentService) IngestFile(ctx context.Context, path string) (*domain.IngestReport, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("%w: no normalisers configured", domain.ErrUnsupportedType)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	raw := &domain.RawDocument{
		Filename: filepath.Base(path),
		MIMEType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Content:  data,
	}
	doc, err := s.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.Filename, err)
	}
	return s.Ingest(ctx, doc.Filename, doc.Content)
}

// List returns all documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docStore.GetDocument(ctx, documentID)
}

// Chunks returns the chunks of a document in position order.
func (s *DocumentService) Chunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.docStore.LoadChunks(ctx, documentID)
}

// Delete removes a document and its chunks.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}
	logger.Debug("Deleting document %s", documentID)
	return s.docStore.DeleteDocument(ctx, documentID)
}

// ReembedMissing embeds every stored chunk that has no embedding.
func (s *DocumentService) ReembedMissing(ctx context.Context) (int, error) {
	if s.embedder == nil || !s.embedder.IsAvailable() {
		return 0, domain.ErrEmbeddingUnavailable
	}
	chunks, err := s.docStore.ChunksMissingEmbedding(ctx)
	if err != nil {
		return 0, fmt.Errorf("load chunks: %w", err)
	}
	logger.Debug("Re-embedding %d chunks", len(chunks))
	embedded, failed, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return embedded, err
	}
	if failed > 0 {
		logger.Warn("Re-embed: %d chunks failed and remain unembedded", failed)
	}
	return embedded, nil
}

// embedChunks embeds chunks as passages with bounded concurrency and stores
// the results. A failed chunk is counted and skipped; cancellation aborts.
func (s *DocumentService) embedChunks(ctx context.Context, chunks []domain.Chunk) (embedded, failed int, err error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}
	if s.embedder == nil || !s.embedder.IsAvailable() {
		logger.Debug("Embedding provider unavailable, storing %d chunks without embeddings", len(chunks))
		return 0, 0, nil
	}

	var (
		mu       sync.Mutex
		vectors  = make(map[string][]float32, len(chunks))
		failures atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := s.embedder.Embed(gctx, chunk.Content, false)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failures.Add(1)
				logger.Warn("Embedding chunk %s (position %d) failed: %v", chunk.ID, chunk.Position, err)
				return nil
			}
			mu.Lock()
			vectors[chunk.ID] = vec
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()

	if len(vectors) > 0 {
		// Store what was embedded even when cancelled.
		if err := s.docStore.UpdateEmbeddings(context.WithoutCancel(ctx), vectors); err != nil {
			return 0, int(failures.Load()), fmt.Errorf("store embeddings: %w", err)
		}
	}
	if waitErr != nil {
		return len(vectors), int(failures.Load()), fmt.Errorf("%w: %w", domain.ErrCancelled, waitErr)
	}
	return len(vectors), int(failures.Load()), nil
}
