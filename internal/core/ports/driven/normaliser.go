package driven

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// Normaliser transforms uploaded files into plain document text.
// Each normaliser handles specific file types (e.g., Markdown).
type Normaliser interface {
	// Name returns the normaliser name for logging.
	Name() string

	// SupportedExtensions returns lower-case file extensions with the dot.
	SupportedExtensions() []string

	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise transforms a raw document into a Document with Filename
	// and Content populated. Chunking happens afterwards.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)
}

// NormaliserRegistry selects the appropriate normaliser for a file.
type NormaliserRegistry interface {
	// Normalise transforms a raw document using the matching normaliser.
	// Returns domain.ErrUnsupportedType when none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
