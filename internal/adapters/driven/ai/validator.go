package ai

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.EmbeddingValidator = (*ConfigValidator)(nil)

// ConfigValidator validates embedding provider configurations.
type ConfigValidator struct {
	models driven.ModelStore
}

// NewConfigValidator creates a new validator. models is used to resolve
// local model artifacts.
func NewConfigValidator(models driven.ModelStore) *ConfigValidator {
	return &ConfigValidator{models: models}
}

// ValidateEmbedding loads or pings the configured provider.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	return ValidateEmbeddingConfig(ctx, settings, v.models)
}
