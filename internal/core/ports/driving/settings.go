package driving

import "github.com/custodia-labs/chatrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetRetrievalMode updates the default retrieval mode.
	SetRetrievalMode(mode domain.RetrievalMode) error

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.EmbeddingProviderKind, model, apiKey string) error

	// Validate checks if current settings are consistent.
	Validate() error

	// RequiresEmbedding returns true if the default mode needs embeddings.
	RequiresEmbedding() bool

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
