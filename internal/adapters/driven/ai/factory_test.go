package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/remote"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/storage/modelfs"
	"github.com/custodia-labs/chatrag/internal/core/domain"
)

func newModelStore(t *testing.T) *modelfs.Store {
	t.Helper()
	s, err := modelfs.NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name         string
		settings     *domain.EmbeddingSettings
		wantErr      error
		wantProvider string
		wantModel    string
	}{
		{
			name:     "nil settings",
			settings: nil,
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
		{
			name:     "openai without key",
			settings: &domain.EmbeddingSettings{Provider: domain.ProviderOpenAI},
			wantErr:  domain.ErrEmbeddingUnavailable,
		},
		{
			name:         "local",
			settings:     &domain.EmbeddingSettings{Provider: domain.ProviderLocal},
			wantProvider: "local",
		},
		{
			name:         "openai",
			settings:     &domain.EmbeddingSettings{Provider: domain.ProviderOpenAI, APIKey: "k"},
			wantProvider: "openai",
			wantModel:    "text-embedding-3-small",
		},
		{
			name:         "ollama",
			settings:     &domain.EmbeddingSettings{Provider: domain.ProviderOllama, Model: "mxbai-embed-large"},
			wantProvider: "ollama",
			wantModel:    "mxbai-embed-large",
		},
		{
			name:         "gemini",
			settings:     &domain.EmbeddingSettings{Provider: domain.ProviderGemini, APIKey: "k"},
			wantProvider: "gemini",
			wantModel:    "gemini-embedding-001",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CreateEmbeddingProvider(context.Background(), tt.settings, newModelStore(t))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, p.ProviderName())
			assert.Equal(t, tt.wantModel, p.ModelName())
			assert.False(t, p.IsAvailable())
		})
	}
}

func TestCreateEmbeddingProvider_Types(t *testing.T) {
	p, err := CreateEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderLocal}, newModelStore(t))
	require.NoError(t, err)
	assert.IsType(t, &local.Provider{}, p)

	p, err = CreateEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderOllama}, nil)
	require.NoError(t, err)
	assert.IsType(t, &remote.Provider{}, p)
}

func TestCreateEmbeddingProvider_LocalNeedsStore(t *testing.T) {
	_, err := CreateEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderLocal}, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestCreateEmbeddingProvider_UnknownProvider(t *testing.T) {
	// IsConfigured rejects unknown providers before dispatch.
	_, err := CreateEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: "anthropic"}, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestInitEmbeddingProvider_LocalMissingModel(t *testing.T) {
	_, err := InitEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderLocal, Model: domain.DefaultLocalModelID},
		newModelStore(t))
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrMissingArtifact)
}

func TestInitEmbeddingProvider_Remote(t *testing.T) {
	p, err := InitEmbeddingProvider(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderOllama, Model: "nomic-embed-text"}, nil)
	require.NoError(t, err)
	assert.True(t, p.IsAvailable())
	assert.Equal(t, 768, p.Dimensions())
}

func TestValidateEmbeddingConfig_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := ValidateEmbeddingConfig(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderOllama, BaseURL: srv.URL}, nil)
	assert.NoError(t, err)
}

func TestValidateEmbeddingConfig_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := ValidateEmbeddingConfig(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderOllama, BaseURL: url}, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
