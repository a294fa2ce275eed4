package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry maps file extensions and MIME types to normalisers.
// Extension matches win over MIME matches; later registrations replace
// earlier ones for the same key.
type Registry struct {
	mu     sync.RWMutex
	byExt  map[string]driven.Normaliser
	byMIME map[string]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byExt:  make(map[string]driven.Normaliser),
		byMIME: make(map[string]driven.Normaliser),
	}
}

// Register adds a normaliser to the registry.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range n.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
	for _, mt := range n.SupportedMIMETypes() {
		r.byMIME[strings.ToLower(mt)] = n
	}
}

// Lookup returns the normaliser for a filename or MIME type.
func (r *Registry) Lookup(filename, mimeType string) (driven.Normaliser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if n, ok := r.byExt[ext]; ok {
			return n, true
		}
	}
	if mimeType != "" {
		if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
			if n, ok := r.byMIME[strings.ToLower(mt)]; ok {
				return n, true
			}
		}
	}
	return nil, false
}

// Normalise transforms a raw document using the matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	n, ok := r.Lookup(raw.Filename, raw.MIMEType)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, raw.Filename, raw.MIMEType)
	}
	logger.Debug("Normalising %s with %s", raw.Filename, n.Name())
	return n.Normalise(ctx, raw)
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
