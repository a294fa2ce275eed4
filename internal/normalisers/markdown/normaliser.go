package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "markdown"
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdown", ".mkd"}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Normalise converts Markdown to plain text. Formatting markers are removed
// while the text of headings, links and code blocks is kept, and blank-line
// paragraph boundaries are preserved for the chunker.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Document{
		Filename: raw.Filename,
		Content:  StripMarkdown(plaintext.DecodeText(raw.Content)),
	}, nil
}

// Pre-compiled regular expressions for Markdown stripping.
var (
	frontMatter   = regexp.MustCompile("(?s)\\A---\n.*?\n---\n")
	codeFence     = regexp.MustCompile("(?m)^\\s*(```|~~~)[^\n]*$")
	inlineCode    = regexp.MustCompile("`([^`]+)`")
	images        = regexp.MustCompile(`!\[([^\]]*)\]\([^)]+\)`)
	links         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis      = regexp.MustCompile(`(\*\*|__|\*|_)([^\s*_][^*_]*?)(\*\*|__|\*|_)`)
	blockquote    = regexp.MustCompile(`(?m)^>\s?`)
	horizontal    = regexp.MustCompile(`(?m)^\s*([-*_]\s*){3,}$`)
	listMarkers   = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	numberedList  = regexp.MustCompile(`(?m)^(\s*)\d+[.)]\s+`)
	tableRule     = regexp.MustCompile(`(?m)^\s*\|?(\s*:?-+:?\s*\|)+\s*:?-*:?\s*$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripMarkdown removes common Markdown formatting.
func StripMarkdown(content string) string {
	content = frontMatter.ReplaceAllString(content, "")
	content = codeFence.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "$1")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = horizontal.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "$1")
	content = numberedList.ReplaceAllString(content, "$1")
	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
