// Package gemini provides an embeddings backend for the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/remote"
)

// Ensure Backend implements the interface.
var _ remote.Backend = (*Backend)(nil)

// DefaultModel is the default Gemini embedding model.
const DefaultModel = "gemini-embedding-001"

// Task types of the Gemini embedding API.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

// Known default output sizes.
var modelDimensions = map[string]int{
	"gemini-embedding-001": 3072,
	"text-embedding-004":   768,
}

// Config holds configuration for the Gemini backend.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// BaseURL overrides the API endpoint.
	BaseURL string

	// Model is used to look up default dimensions.
	Model string

	// Dimensions requests a reduced output size. Zero keeps the model default.
	Dimensions int
}

// Backend calls EmbedContent with retrieval task types.
type Backend struct {
	client     *genai.Client
	model      string
	dimensions int
	override   bool
}

// NewBackend creates a new Gemini backend. No request is made.
func NewBackend(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	dimensions := cfg.Dimensions
	if dimensions == 0 {
		dimensions = modelDimensions[cfg.Model]
	}
	return &Backend{
		client:     client,
		model:      cfg.Model,
		dimensions: dimensions,
		override:   cfg.Dimensions > 0,
	}, nil
}

// Name returns "gemini".
func (b *Backend) Name() string {
	return "gemini"
}

// Dimensions returns the configured or known embedding size.
func (b *Backend) Dimensions() int {
	return b.dimensions
}

// Embed generates an embedding with the retrieval task type matching isQuery.
func (b *Backend) Embed(ctx context.Context, model, text string, isQuery bool) ([]float32, error) {
	cfg := &genai.EmbedContentConfig{TaskType: TaskType(isQuery)}
	if b.override {
		dim := int32(b.dimensions)
		cfg.OutputDimensionality = &dim
	}

	result, err := b.client.Models.EmbedContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}, cfg)
	if err != nil {
		return nil, mapError(err)
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("gemini: no embedding returned")
	}
	return result.Embeddings[0].Values, nil
}

// Ping embeds a short string; the Gemini API has no cheaper authenticated call.
func (b *Backend) Ping(ctx context.Context) error {
	_, err := b.Embed(ctx, b.model, "ping", true)
	return err
}

// TaskType returns the Gemini task type for query or passage embeddings.
func TaskType(isQuery bool) string {
	if isQuery {
		return TaskRetrievalQuery
	}
	return TaskRetrievalDocument
}

// mapError turns API errors into remote.StatusError so rate limits are retried.
func mapError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	code := apiErr.Code
	if code == 0 {
		code = http.StatusBadGateway
	}
	return &remote.StatusError{Provider: "gemini", StatusCode: code, Body: apiErr.Message}
}
