package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.EmbeddingValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_ValidateEmbedding_NilConfig(t *testing.T) {
	validator := NewConfigValidator(nil)
	require.NotNil(t, validator)

	err := validator.ValidateEmbedding(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestConfigValidator_ValidateEmbedding_LocalWithoutModel(t *testing.T) {
	validator := NewConfigValidator(newModelStore(t))

	err := validator.ValidateEmbedding(context.Background(),
		&domain.EmbeddingSettings{Provider: domain.ProviderLocal})
	assert.ErrorIs(t, err, domain.ErrMissingArtifact)
}

func TestConfigValidator_ValidateEmbedding_OpenAIBadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	validator := NewConfigValidator(nil)
	err := validator.ValidateEmbedding(context.Background(), &domain.EmbeddingSettings{
		Provider: domain.ProviderOpenAI,
		APIKey:   "sk-bad",
		BaseURL:  srv.URL,
	})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorContains(t, err, "Incorrect API key")
}
