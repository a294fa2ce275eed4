package cli

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
)

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	mu         sync.Mutex
	documents  []domain.Document
	chunks     []domain.Chunk
	failPaths  map[string]error
	err        error
	ingested   []string
	deleted    string
	reembedded int
}

func (m *mockDocumentService) Ingest(_ context.Context, filename, content string) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.ingested = append(m.ingested, filename)
	return &domain.IngestReport{
		Document: domain.Document{ID: "doc-" + filename, Filename: filename, Content: content},
		Chunks:   2,
		Embedded: 2,
		Duration: 15 * time.Millisecond,
	}, nil
}

func (m *mockDocumentService) IngestFile(ctx context.Context, path string) (*domain.IngestReport, error) {
	if err := m.failPaths[filepath.Base(path)]; err != nil {
		return nil, err
	}
	report, err := m.Ingest(ctx, path, "")
	if err != nil {
		return nil, err
	}
	report.Document.ID = "doc-" + filepath.Base(path)
	return report, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Chunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = id
	return nil
}

func (m *mockDocumentService) ReembedMissing(_ context.Context) (int, error) {
	return m.reembedded, m.err
}

func (m *mockDocumentService) ingestedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ingested...)
}

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
	tr := domain.NewRagTrace("trace-1", req.Query, time.Now())
	tr.SetPipeline(domain.PipelineInfo{Mode: req.Mode, TopK: req.TopK, MinSimilarity: req.MinSimilarity})
	if m.err != nil {
		tr.Fail(m.err)
		tr.Finalize(time.Millisecond)
		return nil, tr, m.err
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
			VectorRank:       -1,
			KeywordScore:     c.KeywordScore,
			KeywordRank:      i,
			FusedScore:       c.FusedScore,
			MatchedTerms:     c.MatchedTerms,
			Included:         true,
			Rank:             c.Rank,
		}
	}
	tr.SetCandidates(candidates)
	tr.Finalize(2 * time.Millisecond)
	return result, tr, nil
}

func (m *mockRetrievalService) BuildContext(ctx context.Context, req domain.RetrievalRequest) *driving.ContextBundle {
	result, tr, _ := m.Retrieve(ctx, req) //nolint:errcheck // trace carries the failure
	bundle := &driving.ContextBundle{Trace: tr, Result: result}
	if result != nil {
		bundle.Context = result.CombinedContext
	}
	return bundle
}

// mockModelService is a mock implementation of driving.ModelService.
type mockModelService struct {
	mu          sync.Mutex
	states      map[string]domain.DownloadState
	downloadErr error
	downloads   []string
	deleted     string
	subs        []chan domain.DownloadEvent
}

func (m *mockModelService) IsDownloaded(id string) bool {
	return m.GetStatus(id).Phase == domain.DownloadDownloaded
}

func (m *mockModelService) GetStatus(id string) domain.DownloadState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[id]; ok {
		return s
	}
	return domain.NotDownloaded()
}

func (m *mockModelService) GetDownloadedSize(id string) int64 {
	if m.IsDownloaded(id) {
		return 470 * 1024 * 1024
	}
	return 0
}

// Download publishes progress in steps of 25% to every subscriber.
func (m *mockModelService) Download(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, id)
	for p := 25.0; p <= 100; p += 25 {
		m.publish(domain.DownloadEvent{ModelID: id, State: domain.Downloading(p)})
	}
	if m.downloadErr != nil {
		m.publish(domain.DownloadEvent{ModelID: id, State: domain.DownloadFailed(m.downloadErr.Error())})
		return m.downloadErr
	}
	if m.states == nil {
		m.states = make(map[string]domain.DownloadState)
	}
	m.states[id] = domain.Downloaded()
	m.publish(domain.DownloadEvent{ModelID: id, State: domain.Downloaded()})
	return nil
}

func (m *mockModelService) publish(ev domain.DownloadEvent) {
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (m *mockModelService) CancelDownload(_ string) error { return nil }

func (m *mockModelService) DeleteModel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = id
	delete(m.states, id)
	return nil
}

func (m *mockModelService) Subscribe() (<-chan domain.DownloadEvent, func()) {
	ch := make(chan domain.DownloadEvent, 32)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, s := range m.subs {
				if s == ch {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
	saved       bool
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(s *domain.AppSettings) error {
	m.settings = *s
	m.saved = true
	return nil
}

func (m *mockSettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	m.settings.Retrieval.Mode = mode
	m.saved = true
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(p domain.EmbeddingProviderKind, model, key string) error {
	m.settings.Embedding.Provider = p
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = key
	m.saved = true
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) RequiresEmbedding() bool {
	return m.settings.Retrieval.Mode.UsesVector()
}

func (m *mockSettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockValidator is a mock implementation of driven.EmbeddingValidator.
type mockValidator struct {
	err   error
	calls int
}

func (m *mockValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	m.calls++
	return m.err
}

// mockEmbedder is a mock implementation of driven.EmbeddingProvider.
type mockEmbedder struct{}

func (m *mockEmbedder) Dimensions() int { return 384 }
func (m *mockEmbedder) IsAvailable() bool { return true }
func (m *mockEmbedder) Initialize(_ context.Context, _ string) error { return nil }
func (m *mockEmbedder) ModelName() string { return domain.DefaultLocalModelID }
func (m *mockEmbedder) ProviderName() string { return "local" }
func (m *mockEmbedder) Stats() domain.EmbeddingStats { return domain.EmbeddingStats{Calls: 7, Failures: 1} }
func (m *mockEmbedder) Close() error { return nil }
func (m *mockEmbedder) Embed(_ context.Context, _ string, _ bool) ([]float32, error) {
	return make([]float32, 384), nil
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	docs      *mockDocumentService
	retrieval *mockRetrievalService
	models    *mockModelService
	settings  *mockSettingsService
	validator *mockValidator
}

// setupTestServices installs fresh mocks and returns them with a cleanup
// function that restores the previous services and resets flags.
func setupTestServices() (*testServices, func()) {
	prev := Services{
		Document:   documentService,
		Retrieval:  retrievalService,
		Models:     modelService,
		Settings:   settingsService,
		Validator:  embeddingValidator,
		Embedder:   embedder,
		Extensions: supportedExts,
	}

	ts := &testServices{
		docs: &mockDocumentService{
			documents: []domain.Document{
				{ID: "doc-1", Filename: "guide.md", Content: "Install the tool.", CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
				{ID: "doc-2", Filename: "faq.txt", Content: "Questions.", CreatedAt: time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC)},
			},
		},
		retrieval: &mockRetrievalService{},
		models:    &mockModelService{},
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
		validator: &mockValidator{},
	}

	resetFlags(rootCmd)
	SetServices(Services{
		Document:   ts.docs,
		Retrieval:  ts.retrieval,
		Models:     ts.models,
		Settings:   ts.settings,
		Validator:  ts.validator,
		Embedder:   &mockEmbedder{},
		Extensions: []string{".md", ".txt"},
	})

	return ts, func() {
		SetServices(prev)
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

// resetFlags restores every flag below cmd to its default. Cobra keeps
// parsed values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
