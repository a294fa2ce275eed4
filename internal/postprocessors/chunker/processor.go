// Package chunker splits document text into paragraph-aligned chunks with
// overlap between neighbours.
package chunker

import (
	"context"

	"github.com/google/uuid"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor turns documents into chunks using a Policy.
type Processor struct {
	policy Policy
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithMinChars sets the minimum chunk length in characters.
func WithMinChars(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.policy.MinChars = n
		}
	}
}

// WithMaxChars sets the maximum chunk length in characters.
func WithMaxChars(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.policy.MaxChars = n
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.policy.OverlapChars = n
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(p)
	}
	p.policy = p.policy.normalised()
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Policy returns the effective chunking policy.
func (p *Processor) Policy() Policy {
	return p.policy
}

// Chunk splits text into chunk texts.
func (p *Processor) Chunk(text string) []string {
	return Split(text, p.policy)
}

// Process splits the document content into chunks.
func (p *Processor) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	texts := Split(doc.Content, p.policy)
	if len(texts) == 0 {
		logger.Debug("chunker: %s produced no chunks (%d chars)", doc.Filename, runeLen(doc.Content))
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Position:   i,
			Content:    text,
		}
	}
	logger.Debug("chunker: %s -> %d chunks", doc.Filename, len(chunks))
	return chunks, nil
}

// FromConfig builds a processor from generic config values.
// Supported keys: min_chars, max_chars, overlap. Integer values may arrive
// as int, int64 or float64 depending on the config decoder.
func FromConfig(cfg map[string]any) *Processor {
	var opts []Option
	if n, ok := intFromConfig(cfg, "min_chars"); ok {
		opts = append(opts, WithMinChars(n))
	}
	if n, ok := intFromConfig(cfg, "max_chars"); ok {
		opts = append(opts, WithMaxChars(n))
	}
	if n, ok := intFromConfig(cfg, "overlap"); ok {
		opts = append(opts, WithOverlap(n))
	}
	return New(opts...)
}

func intFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
