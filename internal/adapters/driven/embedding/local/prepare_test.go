package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

func TestPrepareE5Text(t *testing.T) {
	plain, err := domain.LookupModel("multilingual-e5-small")
	require.NoError(t, err)
	instruct, err := domain.LookupModel("multilingual-e5-large-instruct")
	require.NoError(t, err)
	task := instruct.DefaultTaskInstruction

	tests := []struct {
		name    string
		desc    domain.EmbeddingModelDescriptor
		text    string
		isQuery bool
		want    string
	}{
		{"query", plain, "how to retry", true, "query: how to retry"},
		{"passage", plain, "Retries back off.", false, "passage: Retries back off."},
		{"query already prefixed", plain, "query: how to retry", true, "query: how to retry"},
		{"passage already prefixed", plain, "passage: text", false, "passage: text"},
		{"query with passage prefix", plain, "passage: text", true, "query: passage: text"},
		{"instruct query", instruct, "how to retry", true, "Instruct: " + task + "\nQuery: how to retry"},
		{"instruct query already prefixed", instruct, "Instruct: custom\nQuery: q", true, "Instruct: custom\nQuery: q"},
		{"instruct passage", instruct, "Retries back off.", false, "Retries back off."},
		{"empty query", plain, "", true, "query: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrepareE5Text(tt.desc, tt.text, tt.isQuery))
		})
	}
}

func TestPrepareE5Text_Idempotent(t *testing.T) {
	for _, desc := range domain.AllModels() {
		for _, isQuery := range []bool{true, false} {
			once := PrepareE5Text(desc, "what is rank fusion", isQuery)
			assert.Equal(t, once, PrepareE5Text(desc, once, isQuery), "%s query=%v", desc.ID, isQuery)
		}
	}
}
