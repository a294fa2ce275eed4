package services

import (
	"fmt"
	"os"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvEmbeddingAPIKey overrides embedding.api_key when set.
//
//nolint:gosec // G101: environment variable name, not a credential.
const EnvEmbeddingAPIKey = "CHATRAG_EMBEDDING_API_KEY"

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyRetrievalMode      = "retrieval.mode"
	keyRetrievalTopK      = "retrieval.top_k"
	keyRetrievalMinSim    = "retrieval.min_similarity"
	keyRetrievalMaxTokens = "retrieval.max_context_tokens"
	keyEmbedProvider      = "embedding.provider"
	keyEmbedModel         = "embedding.model"
	keyEmbedBaseURL       = "embedding.base_url"
	keyEmbedAPIKey        = "embedding.api_key"
	keyEmbedDimensions    = "embedding.dimensions"
	keyEmbedRPS           = "embedding.requests_per_second"
	keyIngestConcurrency  = "ingest.embed_concurrency"
	keyModelsDir          = "models.dir"
	keyModelsBaseURL      = "models.base_url"
	keyDataDir            = "data.dir"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or invalid values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Retrieval: domain.RetrievalSettings{
			Mode:             s.getRetrievalMode(defaults.Retrieval.Mode),
			TopK:             s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			MinSimilarity:    s.getFloat(keyRetrievalMinSim, defaults.Retrieval.MinSimilarity),
			MaxContextTokens: s.getInt(keyRetrievalMaxTokens, defaults.Retrieval.MaxContextTokens),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(defaults.Embedding.Provider),
			Model:             s.configStore.GetString(keyEmbedModel),
			BaseURL:           s.configStore.GetString(keyEmbedBaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDimensions),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, defaults.Embedding.RequestsPerSecond),
		},
		Ingest: domain.IngestSettings{
			EmbedConcurrency: s.getInt(keyIngestConcurrency, defaults.Ingest.EmbedConcurrency),
		},
		Storage: domain.StorageSettings{
			DataDir:       s.configStore.GetString(keyDataDir),
			ModelsDir:     s.configStore.GetString(keyModelsDir),
			ModelsBaseURL: s.configStore.GetString(keyModelsBaseURL),
		},
	}

	if settings.Embedding.Model == "" {
		settings.Embedding.Model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}
	if key := os.Getenv(EnvEmbeddingAPIKey); key != "" {
		settings.Embedding.APIKey = key
	}

	return settings, nil
}

// Save persists application settings.
// An empty API key leaves the stored key untouched.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []struct {
		key   string
		value any
	}{
		{keyRetrievalMode, settings.Retrieval.Mode.String()},
		{keyRetrievalTopK, settings.Retrieval.TopK},
		{keyRetrievalMinSim, settings.Retrieval.MinSimilarity},
		{keyRetrievalMaxTokens, settings.Retrieval.MaxContextTokens},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedRPS, settings.Embedding.RequestsPerSecond},
		{keyIngestConcurrency, settings.Ingest.EmbedConcurrency},
		{keyDataDir, settings.Storage.DataDir},
		{keyModelsDir, settings.Storage.ModelsDir},
		{keyModelsBaseURL, settings.Storage.ModelsBaseURL},
	}
	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != os.Getenv(EnvEmbeddingAPIKey) {
		values = append(values, struct {
			key   string
			value any
		}{keyEmbedAPIKey, settings.Embedding.APIKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetRetrievalMode updates the default retrieval mode.
func (s *SettingsService) SetRetrievalMode(mode domain.RetrievalMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: retrieval mode %s", domain.ErrInvalidInput, mode)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval.Mode = mode
	return s.Save(settings)
}

// SetEmbeddingProvider configures the embedding provider.
// An empty model selects the provider's default.
func (s *SettingsService) SetEmbeddingProvider(provider domain.EmbeddingProviderKind, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && os.Getenv(EnvEmbeddingAPIKey) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}
	if provider == domain.ProviderLocal && model != "" && !domain.IsKnownModel(model) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownModel, model)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	settings.Embedding.Model = model
	settings.Embedding.Dimensions = 0

	switch provider {
	case domain.ProviderOllama:
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	case domain.ProviderLocal, domain.ProviderOpenAI, domain.ProviderGemini:
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey
	return s.Save(settings)
}

// Validate checks if current settings are consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Retrieval.Mode.IsValid() {
		return fmt.Errorf("%w: retrieval mode %s", domain.ErrInvalidInput, settings.Retrieval.Mode)
	}
	req := domain.RetrievalRequest{
		Query:            "validate",
		Mode:             settings.Retrieval.Mode,
		TopK:             settings.Retrieval.TopK,
		MinSimilarity:    settings.Retrieval.MinSimilarity,
		MaxContextTokens: settings.Retrieval.MaxContextTokens,
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if settings.Ingest.EmbedConcurrency < 1 {
		return fmt.Errorf("%w: embed concurrency %d", domain.ErrInvalidInput, settings.Ingest.EmbedConcurrency)
	}

	if settings.Retrieval.Mode.UsesVector() && !settings.Embedding.IsConfigured() {
		return fmt.Errorf(
			"retrieval mode %q requires embedding provider to be configured",
			settings.Retrieval.Mode.Description(),
		)
	}
	if settings.Embedding.Provider == domain.ProviderLocal && !domain.IsKnownModel(settings.Embedding.Model) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownModel, settings.Embedding.Model)
	}

	return nil
}

// RequiresEmbedding returns true if the default mode needs embeddings.
func (s *SettingsService) RequiresEmbedding() bool {
	settings, err := s.Get()
	if err != nil {
		return false
	}
	return settings.Retrieval.Mode.UsesVector()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getRetrievalMode(defaultVal domain.RetrievalMode) domain.RetrievalMode {
	val := s.configStore.GetString(keyRetrievalMode)
	if val == "" {
		return defaultVal
	}
	mode, err := domain.ParseRetrievalMode(val)
	if err != nil {
		return defaultVal
	}
	return mode
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProviderKind) domain.EmbeddingProviderKind {
	provider := domain.EmbeddingProviderKind(s.configStore.GetString(keyEmbedProvider))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
