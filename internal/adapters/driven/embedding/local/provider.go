// Package local runs E5-family embedding models on-device with ONNX Runtime.
// Model artifacts are read from the model store; this package never downloads.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.EmbeddingProvider = (*Provider)(nil)

// ProviderName is the name reported by local providers.
const ProviderName = "local"

type loadState uint8

const (
	stateUnloaded loadState = iota
	stateReady
	stateFailed
)

// Provider is the on-device embedding provider.
type Provider struct {
	store         driven.ModelStore
	runtime       Runtime
	loadTokenizer TokenizerLoader

	mu      sync.RWMutex
	state   loadState
	desc    domain.EmbeddingModelDescriptor
	encoder Encoder
	session Session
	loadErr error

	calls    atomic.Int64
	failures atomic.Int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithRuntime replaces the inference runtime.
func WithRuntime(r Runtime) Option {
	return func(p *Provider) { p.runtime = r }
}

// WithTokenizerLoader replaces the tokenizer loader.
func WithTokenizerLoader(fn TokenizerLoader) Option {
	return func(p *Provider) { p.loadTokenizer = fn }
}

// NewProvider creates an uninitialised local provider reading from store.
func NewProvider(store driven.ModelStore, opts ...Option) *Provider {
	p := &Provider{
		store:         store,
		runtime:       DefaultRuntime(),
		loadTokenizer: LoadTokenizer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize loads modelID from the model store. It fails with
// domain.ErrUnknownModel for ids outside the catalog and with
// domain.ErrMissingArtifact when a required file is not on disk.
func (p *Provider) Initialize(_ context.Context, modelID string) error {
	if modelID == "" {
		modelID = domain.DefaultLocalModelID
	}
	desc, err := domain.LookupModel(modelID)
	if err != nil {
		return p.fail(err)
	}

	for _, a := range desc.Artifacts {
		_, exists, err := p.store.Stat(modelID, a.FileName)
		if err != nil {
			return p.fail(fmt.Errorf("stat %s: %w", a.FileName, err))
		}
		if !exists {
			return p.fail(fmt.Errorf("%w: %s", domain.ErrMissingArtifact, p.store.ArtifactPath(modelID, a.FileName)))
		}
	}

	encoder, err := p.loadTokenizer(p.store.ArtifactPath(modelID, domain.ModelTokenizerFile), desc.MaxTokens)
	if err != nil {
		return p.fail(fmt.Errorf("%w: load tokenizer: %w", domain.ErrModelLoadFailed, err))
	}
	session, err := p.runtime.Open(p.store.ArtifactPath(modelID, domain.ModelWeightsFile), desc.Dimensions)
	if err != nil {
		return p.fail(fmt.Errorf("%w: load model: %w", domain.ErrModelLoadFailed, err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.state = stateReady
	p.desc = desc
	p.encoder = encoder
	p.session = session
	p.loadErr = nil
	logger.Debug("Local model %s loaded (%d dimensions)", modelID, desc.Dimensions)
	return nil
}

// fail records a failed load and returns err.
func (p *Provider) fail(err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.state = stateFailed
	p.loadErr = err
	logger.Warn("Local model failed to load: %v", err)
	return err
}

// release closes the current session. Callers hold p.mu.
func (p *Provider) release() {
	if p.session != nil {
		if err := p.session.Close(); err != nil {
			logger.Warn("Closing model session: %v", err)
		}
	}
	p.session = nil
	p.encoder = nil
	p.desc = domain.EmbeddingModelDescriptor{}
}

// Dimensions returns the loaded model's dimensions, 0 if none is loaded.
func (p *Provider) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != stateReady {
		return 0
	}
	return p.desc.Dimensions
}

// IsAvailable returns true if a model is loaded.
func (p *Provider) IsAvailable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state == stateReady
}

// ModelName returns the loaded model id, empty if none.
func (p *Provider) ModelName() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.desc.ID
}

// ProviderName returns "local".
func (p *Provider) ProviderName() string {
	return ProviderName
}

// Stats returns call counters.
func (p *Provider) Stats() domain.EmbeddingStats {
	return domain.EmbeddingStats{Calls: p.calls.Load(), Failures: p.failures.Load()}
}

// Embed prepares text for the model, runs inference, mean pools over the
// attention mask and L2 normalises the result.
func (p *Provider) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch p.state {
	case stateUnloaded:
		return nil, domain.ErrModelNotLoaded
	case stateFailed:
		return nil, fmt.Errorf("%w: %w", domain.ErrModelLoadFailed, p.loadErr)
	case stateReady:
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.calls.Add(1)
	vec, err := p.embed(text, isQuery)
	if err != nil {
		p.failures.Add(1)
		return nil, err
	}
	return vec, nil
}

func (p *Provider) embed(text string, isQuery bool) ([]float32, error) {
	ids, mask, err := p.encoder.Encode(PrepareE5Text(p.desc, text, isQuery))
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if len(ids) == 0 {
		return nil, errors.New("tokenize: empty encoding")
	}

	hidden, err := p.session.Run(ids, mask)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	dims := p.desc.Dimensions
	if len(hidden) != len(ids)*dims {
		return nil, fmt.Errorf("inference: got %d values, want %d x %d", len(hidden), len(ids), dims)
	}
	return L2Normalize(MeanPool(hidden, mask, dims)), nil
}

// Close releases the model and resets Dimensions to 0.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
	p.state = stateUnloaded
	p.loadErr = nil
	return nil
}
