// Package remote adapts embeddings APIs to driven.EmbeddingProvider.
// Each API is a Backend; the Provider adds throttling, 429 retries and
// call statistics on top of it.
package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// Default retry configuration.
const (
	DefaultMaxRetries   = 2
	DefaultMaxRetryWait = 30 * time.Second

	// baseBackoff is the first wait after a 429 without Retry-After.
	baseBackoff = time.Second
)

// Backend is a single remote embeddings API.
type Backend interface {
	// Name returns the provider variant name (e.g., "openai").
	Name() string

	// Dimensions returns the configured output size, 0 if unknown until
	// the first response.
	Dimensions() int

	// Embed returns the embedding of text produced by model.
	Embed(ctx context.Context, model, text string, isQuery bool) ([]float32, error)

	// Ping checks the API is reachable without running inference where possible.
	Ping(ctx context.Context) error
}

// Config holds configuration for a remote provider.
type Config struct {
	// Model is the API model name used when Initialize is given none.
	Model string

	// RequestsPerSecond throttles calls. Zero disables throttling.
	RequestsPerSecond float64

	// MaxRetries is the number of retries after a 429 (default: 2).
	MaxRetries int

	// MaxRetryWait caps a single backoff (default: 30s).
	MaxRetryWait time.Duration
}

// Provider generates embeddings through a Backend.
type Provider struct {
	backend      Backend
	limiter      *rate.Limiter
	maxRetries   int
	maxRetryWait time.Duration
	defaultModel string
	sleep        func(ctx context.Context, d time.Duration) error

	mu          sync.RWMutex
	model       string
	dimensions  int
	initialized bool

	calls    atomic.Int64
	failures atomic.Int64
}

// NewProvider creates a remote provider over backend.
func NewProvider(backend Backend, cfg Config) *Provider {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetryWait == 0 {
		cfg.MaxRetryWait = DefaultMaxRetryWait
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Provider{
		backend:      backend,
		limiter:      limiter,
		maxRetries:   cfg.MaxRetries,
		maxRetryWait: cfg.MaxRetryWait,
		defaultModel: cfg.Model,
		sleep:        sleepContext,
	}
}

// Initialize records the model to use. It makes no network call.
func (p *Provider) Initialize(_ context.Context, modelID string) error {
	if modelID == "" {
		modelID = p.defaultModel
	}
	if modelID == "" {
		return fmt.Errorf("%w: %s: no model configured", domain.ErrInvalidInput, p.backend.Name())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.model = modelID
	p.dimensions = p.backend.Dimensions()
	p.initialized = true
	logger.Debug("Embedding provider %s initialised with model %s", p.backend.Name(), modelID)
	return nil
}

// Dimensions returns the embedding size, 0 before Initialize or before the
// first response when the backend does not know it up front.
func (p *Provider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dimensions
}

// IsAvailable returns true once Initialize has succeeded.
func (p *Provider) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.initialized
}

// ModelName returns the API model name.
func (p *Provider) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.model == "" {
		return p.defaultModel
	}
	return p.model
}

// ProviderName returns the backend name.
func (p *Provider) ProviderName() string {
	return p.backend.Name()
}

// Stats returns call counters.
func (p *Provider) Stats() domain.EmbeddingStats {
	return domain.EmbeddingStats{Calls: p.calls.Load(), Failures: p.failures.Load()}
}

// Ping checks the backend is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	return p.backend.Ping(ctx)
}

// Embed generates an embedding, waiting for the rate limiter and retrying
// rate-limited calls.
func (p *Provider) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	p.mu.RLock()
	model, ready := p.model, p.initialized
	p.mu.RUnlock()
	if !ready {
		return nil, domain.ErrModelNotLoaded
	}

	p.calls.Add(1)
	vec, err := p.embedWithRetry(ctx, model, text, isQuery)
	if err != nil {
		p.failures.Add(1)
		return nil, err
	}

	p.mu.Lock()
	if p.dimensions == 0 {
		p.dimensions = len(vec)
	}
	p.mu.Unlock()
	return vec, nil
}

func (p *Provider) embedWithRetry(ctx context.Context, model, text string, isQuery bool) ([]float32, error) {
	for attempt := 0; ; attempt++ {
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vec, err := p.backend.Embed(ctx, model, text, isQuery)
		if err == nil {
			if len(vec) == 0 {
				return nil, fmt.Errorf("%w: %s: empty embedding", domain.ErrTransport, p.backend.Name())
			}
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, domain.ErrRateLimited) {
			if errors.Is(err, domain.ErrTransport) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrTransport, p.backend.Name(), err)
		}
		if attempt >= p.maxRetries {
			return nil, err
		}

		wait := p.backoff(err, attempt)
		logger.Warn("Embedding provider %s rate limited, retrying in %s", p.backend.Name(), wait)
		if err := p.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

// backoff returns the server's Retry-After when present, otherwise an
// exponential backoff, capped at maxRetryWait.
func (p *Provider) backoff(err error, attempt int) time.Duration {
	wait := baseBackoff << attempt
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		wait = se.RetryAfter
	}
	return min(wait, p.maxRetryWait)
}

// Close marks the provider uninitialised.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.initialized = false
	p.dimensions = 0
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
