package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "html"
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Normalise converts an HTML document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Document{
		Filename: raw.Filename,
		Content:  StripHTML(plaintext.DecodeText(raw.Content)),
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	invisibleTags = regexp.MustCompile(`(?is)<(script|style|noscript|head|svg|template)[^>]*>.*?</(script|style|noscript|head|svg|template)>`)
	htmlComments  = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|ul|ol|table|section|article|blockquote|pre|header|footer|main|nav)[^>]*>`)
	lineBoundary  = regexp.MustCompile(`(?i)<(br|hr)\s*/?>|</(li|tr|dt|dd)>`)
	allTags       = regexp.MustCompile(`<[^>]+>`)
	multiSpaces   = regexp.MustCompile(`[ \t\f\v]+`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripHTML removes markup and returns the readable text.
func StripHTML(content string) string {
	content = invisibleTags.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")
	content = blockBoundary.ReplaceAllString(content, "\n\n")
	content = lineBoundary.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = strings.ReplaceAll(content, "\u00a0", " ")
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = strings.Join(lines, "\n")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
