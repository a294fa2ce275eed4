// Package ai provides factory functions for creating embedding providers.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/local"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/remote"
	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// pinger is implemented by providers that can check connectivity.
type pinger interface {
	Ping(ctx context.Context) error
}

// CreateEmbeddingProvider creates the provider selected by settings without
// initialising it. models is used by the local provider only.
func CreateEmbeddingProvider(
	ctx context.Context, settings *domain.EmbeddingSettings, models driven.ModelStore,
) (driven.EmbeddingProvider, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider not configured", domain.ErrEmbeddingUnavailable)
	}

	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Provider]
	}
	cfg := remote.Config{Model: model, RequestsPerSecond: settings.RequestsPerSecond}

	switch settings.Provider {
	case domain.ProviderLocal:
		if models == nil {
			return nil, fmt.Errorf("%w: no model store", domain.ErrEmbeddingUnavailable)
		}
		return local.NewProvider(models), nil

	case domain.ProviderOpenAI:
		backend, err := openai.NewBackend(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return remote.NewProvider(backend, cfg), nil

	case domain.ProviderOllama:
		backend := ollama.NewBackend(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})
		return remote.NewProvider(backend, cfg), nil

	case domain.ProviderGemini:
		backend, err := gemini.NewBackend(ctx, gemini.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return remote.NewProvider(backend, cfg), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// InitEmbeddingProvider creates and initialises the provider selected by
// settings. Failures wrap domain.ErrEmbeddingUnavailable together with the
// underlying cause, so callers can fall back to keyword retrieval.
func InitEmbeddingProvider(
	ctx context.Context, settings *domain.EmbeddingSettings, models driven.ModelStore,
) (driven.EmbeddingProvider, error) {
	provider, err := CreateEmbeddingProvider(ctx, settings, models)
	if err != nil {
		return nil, err
	}
	if err := provider.Initialize(ctx, settings.Model); err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return provider, nil
}

// ValidateEmbeddingConfig initialises the provider and pings remote ones.
// This is intended for the settings command to check credentials.
func ValidateEmbeddingConfig(
	ctx context.Context, settings *domain.EmbeddingSettings, models driven.ModelStore,
) error {
	provider, err := InitEmbeddingProvider(ctx, settings, models)
	if err != nil {
		return err
	}
	defer provider.Close()

	p, ok := provider.(pinger)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return nil
}
