package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query         string   `json:"query" jsonschema:"the question or text to find relevant passages for"`
	Mode          string   `json:"mode,omitempty" jsonschema:"retrieval mode: vector, keyword or hybrid (default from settings)"`
	TopK          int      `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default from settings)"`
	MinSimilarity *float64 `json:"min_similarity,omitempty" jsonschema:"minimum cosine similarity for vector candidates"`
	MaxTokens     int      `json:"max_tokens,omitempty" jsonschema:"token budget for the combined context (0 = unlimited)"`
	IncludeTrace  bool     `json:"include_trace,omitempty" jsonschema:"include per-candidate scores and stage timings"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Context string        `json:"context"`
	Chunks  []ChunkOutput `json:"chunks"`
	Count   int           `json:"count"`
	TraceID string        `json:"trace_id"`
	Trace   *TraceOutput  `json:"trace,omitempty"`
}

// ChunkOutput represents a single selected chunk.
type ChunkOutput struct {
	Rank         int      `json:"rank"`
	DocumentID   string   `json:"document_id"`
	Filename     string   `json:"filename"`
	Position     int      `json:"position"`
	Content      string   `json:"content"`
	VectorScore  float64  `json:"vector_score"`
	KeywordScore float64  `json:"keyword_score"`
	FusedScore   float64  `json:"fused_score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// TraceOutput is a flattened retrieval trace.
type TraceOutput struct {
	Mode          string             `json:"mode"`
	Provider      string             `json:"provider,omitempty"`
	Model         string             `json:"model,omitempty"`
	FusionFormula string             `json:"fusion_formula"`
	StagesMs      map[string]float64 `json:"stages_ms"`
	TotalMs       float64            `json:"total_ms"`
	QueryTokens   int                `json:"query_tokens"`
	ContextTokens int                `json:"context_tokens"`
	Truncated     bool               `json:"truncated"`
	Candidates    []CandidateOutput  `json:"candidates"`
}

// CandidateOutput is one scored candidate in a trace.
type CandidateOutput struct {
	ChunkID      string   `json:"chunk_id"`
	Filename     string   `json:"filename"`
	VectorScore  float64  `json:"vector_score"`
	HasVector    bool     `json:"has_vector"`
	KeywordScore float64  `json:"keyword_score"`
	FusedScore   float64  `json:"fused_score"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	Included     bool     `json:"included"`
	OverBudget   bool     `json:"over_budget"`
	Rank         int      `json:"rank"`
}

// IngestInput is the input schema for the ingest_text tool.
type IngestInput struct {
	Filename string `json:"filename" jsonschema:"name to record for the document, e.g. notes.md"`
	Content  string `json:"content" jsonschema:"the document text"`
}

// IngestOutput is the output schema for the ingest_text tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Embedded   int    `json:"embedded"`
	Failed     int    `json:"failed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the passages from ingested documents most relevant to a query",
	}, s.handleRetrieve)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_text",
			Description: "Chunk, store and embed a text document so it can be retrieved",
		}, s.handleIngest)
	}
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	req, err := s.retrievalRequest(input)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	result, trace, err := s.ports.Retrieval.Retrieve(ctx, req)
	if err != nil {
		return nil, RetrieveOutput{}, fmt.Errorf("retrieval failed: %w", err)
	}

	output := RetrieveOutput{
		Context: result.CombinedContext,
		Chunks:  make([]ChunkOutput, len(result.Chunks)),
		Count:   len(result.Chunks),
	}
	for i := range result.Chunks {
		c := &result.Chunks[i]
		output.Chunks[i] = ChunkOutput{
			Rank:         c.Rank,
			DocumentID:   c.Chunk.DocumentID,
			Filename:     c.DocumentFilename,
			Position:     c.Chunk.Position,
			Content:      c.Chunk.Content,
			VectorScore:  c.VectorScore,
			KeywordScore: c.KeywordScore,
			FusedScore:   c.FusedScore,
			MatchedTerms: c.MatchedTerms,
		}
	}

	if trace != nil {
		output.TraceID = trace.ID()
		if input.IncludeTrace {
			output.Trace = flattenTrace(trace.Snapshot())
		}
	}

	return nil, output, nil
}

// retrievalRequest merges tool input over the saved retrieval defaults.
func (s *Server) retrievalRequest(input RetrieveInput) (domain.RetrievalRequest, error) {
	defaults := domain.DefaultAppSettings().Retrieval
	if s.ports.Settings != nil {
		if settings, err := s.ports.Settings.Get(); err == nil && settings != nil {
			defaults = settings.Retrieval
		}
	}

	req := domain.RetrievalRequest{
		Query:            input.Query,
		Mode:             defaults.Mode,
		TopK:             defaults.TopK,
		MinSimilarity:    defaults.MinSimilarity,
		MaxContextTokens: defaults.MaxContextTokens,
	}
	if input.Mode != "" {
		mode, err := domain.ParseRetrievalMode(input.Mode)
		if err != nil {
			return req, err
		}
		req.Mode = mode
	}
	if input.TopK > 0 {
		req.TopK = input.TopK
	}
	if input.MinSimilarity != nil {
		req.MinSimilarity = *input.MinSimilarity
	}
	if input.MaxTokens > 0 {
		req.MaxContextTokens = input.MaxTokens
	}
	return req, nil
}

func flattenTrace(snap domain.TraceSnapshot) *TraceOutput {
	out := &TraceOutput{
		Mode:          snap.Pipeline.Mode.String(),
		Provider:      snap.Pipeline.Provider,
		Model:         snap.Pipeline.Model,
		FusionFormula: snap.Pipeline.FusionFormula,
		StagesMs:      make(map[string]float64, len(snap.Stages)),
		TotalMs:       float64(snap.Total.Microseconds()) / 1000,
		QueryTokens:   snap.Tokens.Query,
		ContextTokens: snap.Tokens.Context,
		Truncated:     snap.Tokens.Truncated,
		Candidates:    make([]CandidateOutput, len(snap.Candidates)),
	}
	for _, st := range snap.Stages {
		out.StagesMs[string(st.Stage)] = float64(st.Duration.Microseconds()) / 1000
	}
	for i := range snap.Candidates {
		c := &snap.Candidates[i]
		out.Candidates[i] = CandidateOutput{
			ChunkID:      c.Chunk.ID,
			Filename:     c.DocumentFilename,
			VectorScore:  c.VectorScore,
			HasVector:    c.HasVector,
			KeywordScore: c.KeywordScore,
			FusedScore:   c.FusedScore,
			MatchedTerms: c.MatchedTerms,
			Included:     c.Included,
			OverBudget:   c.OverBudget,
			Rank:         c.Rank,
		}
	}
	return out
}

// handleIngest handles the ingest_text tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	report, err := s.ports.Document.Ingest(ctx, input.Filename, input.Content)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingest failed: %w", err)
	}

	return nil, IngestOutput{
		DocumentID: report.Document.ID,
		Chunks:     report.Chunks,
		Embedded:   report.Embedded,
		Failed:     report.Failed,
	}, nil
}
