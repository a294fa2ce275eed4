package normalisers

import (
	"github.com/custodia-labs/chatrag/internal/normalisers/docx"
	"github.com/custodia-labs/chatrag/internal/normalisers/html"
	"github.com/custodia-labs/chatrag/internal/normalisers/markdown"
	"github.com/custodia-labs/chatrag/internal/normalisers/plaintext"
)

// DefaultRegistry returns a registry with every built-in normaliser.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	return r
}
