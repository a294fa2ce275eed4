package local

import (
	"strings"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// E5 input prefixes.
const (
	QueryPrefix    = "query: "
	PassagePrefix  = "passage: "
	InstructPrefix = "Instruct:"
)

// PrepareE5Text applies the input convention of E5-family models.
// Non-instruct models take "query: " or "passage: "; instruct models take
// an "Instruct: {task}\nQuery: " block on queries only. Text that already
// carries its prefix is returned unchanged.
func PrepareE5Text(desc domain.EmbeddingModelDescriptor, text string, isQuery bool) string {
	if desc.IsInstruct {
		if !isQuery || strings.HasPrefix(text, InstructPrefix) {
			return text
		}
		task := desc.DefaultTaskInstruction
		return InstructPrefix + " " + task + "\nQuery: " + text
	}

	prefix := PassagePrefix
	if isQuery {
		prefix = QueryPrefix
	}
	if strings.HasPrefix(text, prefix) {
		return text
	}
	return prefix + text
}
