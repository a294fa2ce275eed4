package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text and source files.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string {
	return "plaintext"
}

// SupportedExtensions returns the file extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{
		".txt", ".text", ".log", ".csv", ".tsv",
		".json", ".yaml", ".yml", ".toml", ".xml", ".ini",
		".go", ".py", ".rs", ".java", ".c", ".h", ".cpp", ".rb",
		".js", ".ts", ".sh", ".sql", ".css",
	}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/yaml",
		"text/toml",
		"text/xml",
		"text/x-go",
		"text/x-python",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
	}
}

// Normalise decodes the upload as UTF-8 text.
// Invalid byte sequences become U+FFFD and a leading BOM is dropped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	return &domain.Document{
		Filename: raw.Filename,
		Content:  DecodeText(raw.Content),
	}, nil
}

// DecodeText converts bytes to clean UTF-8 text with Unix line endings.
func DecodeText(b []byte) string {
	text := strings.ToValidUTF8(string(b), "\uFFFD")
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
