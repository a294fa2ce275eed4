package domain

import (
	"fmt"
	"strings"
	"time"
)

// RetrievalMode selects which ranking signals a query uses.
// The set is closed: Vector, Keyword and Hybrid are the only values, and
// code branching on a mode switches over all three explicitly.
type RetrievalMode uint8

// Available retrieval modes.
const (
	// RetrievalModeVector ranks chunks by cosine similarity only.
	RetrievalModeVector RetrievalMode = iota + 1

	// RetrievalModeKeyword ranks chunks by lexical overlap only.
	RetrievalModeKeyword

	// RetrievalModeHybrid fuses the vector and keyword rankings.
	RetrievalModeHybrid
)

// Default retrieval parameters.
const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.0
)

// ParseRetrievalMode converts a textual mode into a RetrievalMode.
func ParseRetrievalMode(s string) (RetrievalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vector", "semantic":
		return RetrievalModeVector, nil
	case "keyword", "text":
		return RetrievalModeKeyword, nil
	case "hybrid", "":
		return RetrievalModeHybrid, nil
	}
	return 0, fmt.Errorf("%w: retrieval mode %q", ErrInvalidInput, s)
}

// IsValid returns true if the mode is one of the three known modes.
func (m RetrievalMode) IsValid() bool {
	return m == RetrievalModeVector || m == RetrievalModeKeyword || m == RetrievalModeHybrid
}

// UsesVector returns true if the mode computes a vector ranking.
func (m RetrievalMode) UsesVector() bool {
	return m == RetrievalModeVector || m == RetrievalModeHybrid
}

// UsesKeyword returns true if the mode computes a keyword ranking.
func (m RetrievalMode) UsesKeyword() bool {
	return m == RetrievalModeKeyword || m == RetrievalModeHybrid
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	switch m {
	case RetrievalModeVector:
		return "vector"
	case RetrievalModeKeyword:
		return "keyword"
	case RetrievalModeHybrid:
		return "hybrid"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m RetrievalMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case RetrievalModeVector:
		return "Vector (semantic similarity)"
	case RetrievalModeKeyword:
		return "Keyword (lexical overlap)"
	case RetrievalModeHybrid:
		return "Hybrid (vector + keyword, RRF)"
	}
	return "Unknown"
}

// AllRetrievalModes returns all available retrieval modes.
func AllRetrievalModes() []RetrievalMode {
	return []RetrievalMode{RetrievalModeVector, RetrievalModeKeyword, RetrievalModeHybrid}
}

// RetrievalRequest configures a single retrieval query.
type RetrievalRequest struct {
	// Query is the user query text.
	Query string

	// Mode selects the ranking signals.
	Mode RetrievalMode

	// TopK is the maximum number of chunks selected into the context.
	TopK int

	// MinSimilarity is the vector similarity gate. It is ignored in keyword mode.
	MinSimilarity float64

	// MaxContextTokens bounds the combined context. Zero means unbounded.
	MaxContextTokens int
}

// Validate checks the request for malformed values.
func (r RetrievalRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if !r.Mode.IsValid() {
		return fmt.Errorf("%w: retrieval mode %d", ErrInvalidInput, r.Mode)
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top-k %d", ErrInvalidInput, r.TopK)
	}
	if r.MinSimilarity < -1 || r.MinSimilarity > 1 {
		return fmt.Errorf("%w: min similarity %.3f outside [-1, 1]", ErrInvalidInput, r.MinSimilarity)
	}
	if r.MaxContextTokens < 0 {
		return fmt.Errorf("%w: max context tokens %d", ErrInvalidInput, r.MaxContextTokens)
	}
	return nil
}

// ScoredChunkCandidate is one scanned chunk with every score the pipeline
// computed for it. Candidates that are not selected stay in the trace.
type ScoredChunkCandidate struct {
	// Chunk is the scanned chunk.
	Chunk Chunk `json:"chunk"`

	// DocumentFilename is the filename of the owning document, for display.
	DocumentFilename string `json:"document_filename"`

	// VectorScore is the cosine similarity with the query, 0 if not computed.
	VectorScore float64 `json:"vector_score"`

	// HasVector is true when the chunk took part in the vector ranking.
	HasVector bool `json:"has_vector"`

	// VectorRank is the 0-based position in the vector ranking, -1 if absent.
	VectorRank int `json:"vector_rank"`

	// KeywordScore is the lexical relevance score, 0 if not computed.
	KeywordScore float64 `json:"keyword_score"`

	// KeywordRank is the 0-based position in the keyword ranking, -1 if absent.
	KeywordRank int `json:"keyword_rank"`

	// FusedScore is the sum of RRF contributions across active rankings.
	FusedScore float64 `json:"fused_score"`

	// MatchedTerms are the query terms found in the chunk, for highlighting.
	MatchedTerms []string `json:"matched_terms,omitempty"`

	// Included is true for the selected top-K candidates.
	Included bool `json:"included"`

	// OverBudget is true for included candidates left out of the combined
	// context because they did not fit the token budget.
	OverBudget bool `json:"over_budget"`

	// Rank is the 1-based selection rank, 0 if not included.
	Rank int `json:"rank"`
}

// RetrievedChunk is a selected chunk with its scores.
type RetrievedChunk struct {
	Chunk            Chunk    `json:"chunk"`
	DocumentFilename string   `json:"document_filename"`
	Rank             int      `json:"rank"`
	VectorScore      float64  `json:"vector_score"`
	KeywordScore     float64  `json:"keyword_score"`
	FusedScore       float64  `json:"fused_score"`
	MatchedTerms     []string `json:"matched_terms,omitempty"`
}

// RetrievalMetrics aggregates counts and timings for a query.
type RetrievalMetrics struct {
	// ScannedChunks is the number of chunks in the scan snapshot.
	ScannedChunks int `json:"scanned_chunks"`

	// VectorRanked is the number of chunks in the vector ranking.
	VectorRanked int `json:"vector_ranked"`

	// KeywordRanked is the number of chunks in the keyword ranking.
	KeywordRanked int `json:"keyword_ranked"`

	// SkippedNoEmbedding is the number of chunks left out of the vector ranking.
	SkippedNoEmbedding int `json:"skipped_no_embedding"`

	// Selected is the number of included chunks before the token budget
	// is applied; it counts over-budget candidates too.
	Selected int `json:"selected"`

	// InContext is the number of chunks in the combined context.
	InContext int `json:"in_context"`

	// Duration is the total retrieval time.
	Duration time.Duration `json:"duration_ns"`
}

// RetrievalResult is the ordered selection handed to the prompt builder.
type RetrievalResult struct {
	// Chunks are the selected chunks in rank order.
	Chunks []RetrievedChunk `json:"chunks"`

	// CombinedContext is the ordered concatenation of the selected chunk
	// contents that fit the token budget.
	CombinedContext string `json:"combined_context"`

	// Metrics holds aggregate counts and timings.
	Metrics RetrievalMetrics `json:"metrics"`
}

// IsEmpty returns true if nothing was selected.
func (r *RetrievalResult) IsEmpty() bool {
	return r == nil || len(r.Chunks) == 0
}
