// Package ollama provides an embeddings backend for a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/chatrag/internal/adapters/driven/embedding/remote"
)

// Ensure Backend implements the interface.
var _ remote.Backend = (*Backend)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 30 * time.Second
)

// Known output sizes of common Ollama embedding models.
var modelDimensions = map[string]int{
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
	"snowflake-arctic-embed": 1024,
	"bge-m3":                 1024,
}

// Config holds configuration for the Ollama backend.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration

	// Model is used to look up known dimensions.
	Model string

	// Dimensions is the embedding vector size. Zero means known or learned.
	Dimensions int
}

// Backend calls the Ollama /api/embeddings endpoint.
type Backend struct {
	client     *http.Client
	baseURL    string
	dimensions int
}

// embedRequest is the Ollama API request format.
type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// embedResponse is the Ollama API response format.
type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewBackend creates a new Ollama backend.
func NewBackend(cfg Config) *Backend {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = modelDimensions[strings.SplitN(cfg.Model, ":", 2)[0]]
	}

	return &Backend{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dimensions: cfg.Dimensions,
	}
}

// Name returns "ollama".
func (b *Backend) Name() string {
	return "ollama"
}

// Dimensions returns the known embedding size, 0 if unknown.
func (b *Backend) Dimensions() int {
	return b.dimensions
}

// Embed generates an embedding for text.
func (b *Backend) Embed(ctx context.Context, model, text string, _ bool) ([]float32, error) {
	jsonBody, err := json.Marshal(embedRequest{Model: model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if err := remote.CheckResponse(b.Name(), resp); err != nil {
		return nil, err
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	embedding := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}

// Ping checks the server is reachable via /api/tags.
func (b *Backend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()
	return remote.CheckResponse(b.Name(), resp)
}
