package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result  *domain.RetrievalResult
	err     error
	lastReq domain.RetrievalRequest
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	req domain.RetrievalRequest,
) (*domain.RetrievalResult, *domain.RagTrace, error) {
	m.lastReq = req
	trace := domain.NewRagTrace("trace-1", req.Query, time.Now())
	trace.SetPipeline(domain.PipelineInfo{Mode: req.Mode, TopK: req.TopK})
	trace.RecordStage(domain.StageFusion, 2*time.Millisecond)
	if m.err != nil {
		trace.Fail(m.err)
		trace.Finalize(time.Millisecond)
		return nil, trace, m.err
	}
	result := m.result
	if result == nil {
		result = &domain.RetrievalResult{}
	}
	candidates := make([]domain.ScoredChunkCandidate, len(result.Chunks))
	for i, c := range result.Chunks {
		candidates[i] = domain.ScoredChunkCandidate{
			Chunk:            c.Chunk,
			DocumentFilename: c.DocumentFilename,
			FusedScore:       c.FusedScore,
			Included:         true,
			Rank:             c.Rank,
		}
	}
	trace.SetCandidates(candidates)
	trace.Finalize(3 * time.Millisecond)
	return result, trace, nil
}

func (m *mockRetrievalService) BuildContext(ctx context.Context, req domain.RetrievalRequest) *driving.ContextBundle {
	result, trace, _ := m.Retrieve(ctx, req) //nolint:errcheck // trace carries the failure
	bundle := &driving.ContextBundle{Trace: trace, Result: result}
	if result != nil {
		bundle.Context = result.CombinedContext
	}
	return bundle
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	report    *domain.IngestReport
	err       error
}

func (m *mockDocumentService) Ingest(_ context.Context, filename, _ string) (*domain.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &domain.IngestReport{Document: domain.Document{ID: "doc-new", Filename: filename}}, nil
}

func (m *mockDocumentService) IngestFile(ctx context.Context, path string) (*domain.IngestReport, error) {
	return m.Ingest(ctx, path, "")
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return nil, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

func (m *mockDocumentService) ReembedMissing(_ context.Context) (int, error) {
	return 0, m.err
}

// mockModelService is a mock implementation of driving.ModelService.
type mockModelService struct {
	states map[string]domain.DownloadState
}

func (m *mockModelService) IsDownloaded(id string) bool {
	return m.GetStatus(id).Phase == domain.DownloadDownloaded
}

func (m *mockModelService) GetStatus(id string) domain.DownloadState {
	if s, ok := m.states[id]; ok {
		return s
	}
	return domain.NotDownloaded()
}

func (m *mockModelService) GetDownloadedSize(_ string) int64 { return 0 }

func (m *mockModelService) Download(_ context.Context, _ string) error { return nil }

func (m *mockModelService) CancelDownload(_ string) error { return nil }

func (m *mockModelService) DeleteModel(_ string) error { return nil }

func (m *mockModelService) Subscribe() (<-chan domain.DownloadEvent, func()) {
	ch := make(chan domain.DownloadEvent)
	close(ch)
	return ch, func() {}
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.AppSettings
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	return nil
}

func (m *mockSettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	m.settings.Retrieval.Mode = mode
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.EmbeddingProviderKind, model, key string) error {
	m.settings.Embedding.Provider = p
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = key
	return nil
}

func (m *mockSettingsService) Validate() error { return nil }

func (m *mockSettingsService) RequiresEmbedding() bool {
	return m.settings.Retrieval.Mode.UsesVector()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}
