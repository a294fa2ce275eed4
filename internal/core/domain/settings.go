package domain

const unknownDescription = "Unknown"

// EmbeddingProviderKind identifies the embedding provider variant and backend.
type EmbeddingProviderKind string

// Available embedding providers.
const (
	// ProviderLocal is the on-device ONNX model.
	ProviderLocal EmbeddingProviderKind = "local"

	// ProviderOpenAI is the OpenAI-compatible embeddings API.
	ProviderOpenAI EmbeddingProviderKind = "openai"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProviderKind = "ollama"

	// ProviderGemini is the Google Gemini embeddings API.
	ProviderGemini EmbeddingProviderKind = "gemini"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProviderKind) IsValid() bool {
	switch p {
	case ProviderLocal, ProviderOpenAI, ProviderOllama, ProviderGemini:
		return true
	default:
		return false
	}
}

// IsRemote returns true if embeddings are produced by an API call.
func (p EmbeddingProviderKind) IsRemote() bool {
	return p == ProviderOpenAI || p == ProviderOllama || p == ProviderGemini
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProviderKind) RequiresAPIKey() bool {
	return p == ProviderOpenAI || p == ProviderGemini
}

// String returns the string representation.
func (p EmbeddingProviderKind) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProviderKind) Description() string {
	switch p {
	case ProviderLocal:
		return "Local (on-device ONNX model)"
	case ProviderOpenAI:
		return "OpenAI (cloud)"
	case ProviderOllama:
		return "Ollama (local server)"
	case ProviderGemini:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// AllEmbeddingProviders returns all available embedding providers.
func AllEmbeddingProviders() []EmbeddingProviderKind {
	return []EmbeddingProviderKind{ProviderLocal, ProviderOpenAI, ProviderOllama, ProviderGemini}
}

// DefaultEmbeddingModels returns the default model for each provider.
func DefaultEmbeddingModels() map[EmbeddingProviderKind]string {
	return map[EmbeddingProviderKind]string{
		ProviderLocal:  DefaultLocalModelID,
		ProviderOpenAI: "text-embedding-3-small",
		ProviderOllama: "nomic-embed-text",
		ProviderGemini: "gemini-embedding-001",
	}
}

// RetrievalSettings holds query defaults.
type RetrievalSettings struct {
	Mode             RetrievalMode
	TopK             int
	MinSimilarity    float64
	MaxContextTokens int
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding provider variant.
	Provider EmbeddingProviderKind

	// Model is the model id (catalog id for local, API model name otherwise).
	Model string

	// BaseURL overrides the API endpoint of remote providers.
	BaseURL string

	// APIKey is the API key (for OpenAI and Gemini).
	APIKey string

	// Dimensions overrides the output dimensions of remote models.
	Dimensions int

	// RequestsPerSecond throttles remote calls. Zero disables throttling.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// IngestSettings holds ingest pipeline configuration.
type IngestSettings struct {
	// EmbedConcurrency bounds concurrent chunk embedding calls.
	EmbedConcurrency int
}

// StorageSettings holds on-disk locations.
type StorageSettings struct {
	// DataDir holds the document database. Empty means the default.
	DataDir string

	// ModelsDir holds one subdirectory per local model. Empty means the default.
	ModelsDir string

	// ModelsBaseURL is the artifact host. Empty means Hugging Face.
	ModelsBaseURL string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Retrieval RetrievalSettings
	Embedding EmbeddingSettings
	Ingest    IngestSettings
	Storage   StorageSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// The local provider with the smallest catalog model is the default,
// so nothing leaves the machine unless configured.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Retrieval: RetrievalSettings{
			Mode:          RetrievalModeHybrid,
			TopK:          DefaultTopK,
			MinSimilarity: DefaultMinSimilarity,
		},
		Embedding: EmbeddingSettings{
			Provider: ProviderLocal,
			Model:    DefaultLocalModelID,
		},
		Ingest: IngestSettings{
			EmbedConcurrency: 4,
		},
	}
}
