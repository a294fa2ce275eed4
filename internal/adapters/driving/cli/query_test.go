package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

func sampleQueryResult() *domain.RetrievalResult {
	return &domain.RetrievalResult{
		Chunks: []domain.RetrievedChunk{
			{
				Chunk:            domain.Chunk{ID: "c1", DocumentID: "doc-1", Position: 3, Content: "Install the tool with the package manager."},
				DocumentFilename: "guide.md",
				Rank:             1,
				KeywordScore:     0.75,
				FusedScore:       0.0164,
				MatchedTerms:     []string{"install", "tool"},
			},
		},
		CombinedContext: "Install the tool with the package manager.",
		Metrics: domain.RetrievalMetrics{
			ScannedChunks:      12,
			Selected:           1,
			InContext:          1,
			SkippedNoEmbedding: 2,
			Duration:           4 * time.Millisecond,
		},
	}
}

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [text]", queryCmd.Use)
}

func TestQueryCmd_RequiresArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "query")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestQueryCmd_PrintsResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.result = sampleQueryResult()

	out, _, err := execute(t, "query", "how", "to", "install")

	require.NoError(t, err)
	assert.Equal(t, "how to install", ts.retrieval.lastReq.Query)
	assert.Contains(t, out, "[1] guide.md #3 (fused 0.0164)")
	assert.Contains(t, out, "Terms: install, tool")
	assert.Contains(t, out, "Selected 1 of 12 chunks in 4ms")
	assert.Contains(t, out, "2 chunks have no embedding")
	assert.NotContains(t, out, "context budget")
}

func TestQueryCmd_ReportsBudgetCut(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	result := sampleQueryResult()
	result.Metrics.Selected = 4
	ts.retrieval.result = result

	out, _, err := execute(t, "query", "install")

	require.NoError(t, err)
	assert.Contains(t, out, "Selected 4 of 12 chunks")
	assert.Contains(t, out, "3 chunks did not fit the context budget")
}

func TestQueryCmd_NoResults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute(t, "query", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No relevant chunks found.")
}

func TestQueryCmd_SettingsDefaults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Retrieval.Mode = domain.RetrievalModeKeyword
	ts.settings.settings.Retrieval.TopK = 9
	ts.settings.settings.Retrieval.MaxContextTokens = 200

	_, _, err := execute(t, "query", "q")

	require.NoError(t, err)
	req := ts.retrieval.lastReq
	assert.Equal(t, domain.RetrievalModeKeyword, req.Mode)
	assert.Equal(t, 9, req.TopK)
	assert.Equal(t, 200, req.MaxContextTokens)
}

func TestQueryCmd_FlagsOverrideSettings(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Retrieval.TopK = 9

	_, _, err := execute(t, "query", "q", "--mode", "vector", "-k", "2", "--min-similarity", "0.3", "--max-tokens", "64")

	require.NoError(t, err)
	req := ts.retrieval.lastReq
	assert.Equal(t, domain.RetrievalModeVector, req.Mode)
	assert.Equal(t, 2, req.TopK)
	assert.InDelta(t, 0.3, req.MinSimilarity, 1e-9)
	assert.Equal(t, 64, req.MaxContextTokens)
}

func TestQueryCmd_InvalidMode(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute(t, "query", "q", "--mode", "fuzzy")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQueryCmd_RetrievalError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrEmbeddingUnavailable

	_, _, err := execute(t, "query", "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "retrieval failed")
}

func TestQueryCmd_Trace(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.result = sampleQueryResult()

	out, _, err := execute(t, "query", "install", "--trace")

	require.NoError(t, err)
	assert.Contains(t, out, "Trace trace-1")
	assert.Contains(t, out, "Candidates (1)")
	assert.Contains(t, out, "Results:")
}

func TestQueryCmd_TraceOnError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrEmbeddingUnavailable

	out, _, err := execute(t, "query", "install", "--trace")

	require.Error(t, err)
	assert.Contains(t, out, "Trace trace-1")
	assert.Contains(t, out, domain.ErrEmbeddingUnavailable.Error())
}

func TestQueryCmd_ContextOnly(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.result = sampleQueryResult()

	out, _, err := execute(t, "query", "install", "--context")

	require.NoError(t, err)
	assert.Equal(t, "Install the tool with the package manager.\n", out)
}

func TestQueryCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.result = sampleQueryResult()

	out, _, err := execute(t, "query", "install", "--json")

	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded, "result")
	assert.Contains(t, decoded, "trace")
	assert.NotContains(t, decoded, "error")
}

func TestQueryCmd_JSONIncludesError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.err = domain.ErrEmbeddingUnavailable

	out, _, err := execute(t, "query", "install", "--json")

	require.Error(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, domain.ErrEmbeddingUnavailable.Error(), decoded["error"])
	assert.Nil(t, decoded["result"])
}

func TestQueryCmd_NoService(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, _, err := execute(t, "query", "q")

	require.Error(t, err)
	assert.Equal(t, "retrieval service not configured", err.Error())
}
