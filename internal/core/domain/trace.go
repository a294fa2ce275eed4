package domain

import (
	"encoding/json"
	"sync"
	"time"
)

// FusionFormula is the display string of the rank fusion in use.
const FusionFormula = "RRF(k=60)"

// StageName identifies a retrieval pipeline stage.
type StageName string

// Pipeline stages recorded in a trace, in execution order.
const (
	StageEmbedding   StageName = "embedding"
	StageVectorScan  StageName = "vector_scan"
	StageKeywordScan StageName = "keyword_scan"
	StageFusion      StageName = "fusion"
	StageSelection   StageName = "selection"
)

// StageTiming is the duration of one pipeline stage.
type StageTiming struct {
	Stage    StageName     `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// TokenBreakdown is the approximate token accounting of a query.
type TokenBreakdown struct {
	// Query is the estimated token count of the query text.
	Query int `json:"query"`

	// Context is the estimated token count of the combined context.
	Context int `json:"context"`

	// Total is Query + Context.
	Total int `json:"total"`

	// Budget is the context token budget, 0 when unbounded.
	Budget int `json:"budget"`

	// Truncated is true when selected chunks were left out to fit the budget.
	Truncated bool `json:"truncated"`
}

// PipelineInfo describes how a query was executed.
type PipelineInfo struct {
	Model         string        `json:"model"`
	Provider      string        `json:"provider"`
	Mode          RetrievalMode `json:"mode"`
	FusionFormula string        `json:"fusion_formula"`
	TopK          int           `json:"top_k"`
	MinSimilarity float64       `json:"min_similarity"`
}

// RagTrace is the flight record of a single query. It is created at query
// start, written by each pipeline stage and finalised once the result is
// produced. Writes after Finalize are ignored. All methods are safe for
// concurrent use.
type RagTrace struct {
	mu         sync.RWMutex
	id         string
	query      string
	startedAt  time.Time
	pipeline   PipelineInfo
	candidates []ScoredChunkCandidate
	stages     []StageTiming
	tokens     TokenBreakdown
	total      time.Duration
	err        string
	finalized  bool
}

// NewRagTrace creates an open trace for a query.
func NewRagTrace(id, query string, startedAt time.Time) *RagTrace {
	return &RagTrace{
		id:        id,
		query:     query,
		startedAt: startedAt,
		pipeline:  PipelineInfo{FusionFormula: FusionFormula},
	}
}

// SetPipeline records pipeline metadata.
func (t *RagTrace) SetPipeline(p PipelineInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	if p.FusionFormula == "" {
		p.FusionFormula = FusionFormula
	}
	t.pipeline = p
}

// RecordStage appends a stage timing.
func (t *RagTrace) RecordStage(stage StageName, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.stages = append(t.stages, StageTiming{Stage: stage, Duration: d})
}

// SetCandidates replaces the candidate list.
func (t *RagTrace) SetCandidates(candidates []ScoredChunkCandidate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.candidates = candidates
}

// SetTokens records the token breakdown.
func (t *RagTrace) SetTokens(tokens TokenBreakdown) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.tokens = tokens
}

// Fail records the failure reason of the query.
func (t *RagTrace) Fail(err error) {
	if err == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.err = err.Error()
}

// Finalize records the total duration and makes the trace read-only.
func (t *RagTrace) Finalize(total time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return
	}
	t.total = total
	t.finalized = true
}

// IsFinalized reports whether the trace is read-only.
func (t *RagTrace) IsFinalized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.finalized
}

// ID returns the trace identifier.
func (t *RagTrace) ID() string {
	return t.id
}

// Query returns the query text.
func (t *RagTrace) Query() string {
	return t.query
}

// Pipeline returns the pipeline metadata.
func (t *RagTrace) Pipeline() PipelineInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pipeline
}

// Candidates returns a copy of every scanned candidate.
func (t *RagTrace) Candidates() []ScoredChunkCandidate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]ScoredChunkCandidate, len(t.candidates))
	copy(out, t.candidates)
	return out
}

// Stages returns a copy of the recorded stage timings in order.
func (t *RagTrace) Stages() []StageTiming {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]StageTiming, len(t.stages))
	copy(out, t.stages)
	return out
}

// StageDuration returns the duration of a stage and whether it was recorded.
func (t *RagTrace) StageDuration(stage StageName) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, s := range t.stages {
		if s.Stage == stage {
			return s.Duration, true
		}
	}
	return 0, false
}

// Tokens returns the token breakdown.
func (t *RagTrace) Tokens() TokenBreakdown {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tokens
}

// TotalDuration returns the total duration recorded at Finalize.
func (t *RagTrace) TotalDuration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Error returns the recorded failure reason, empty on success.
func (t *RagTrace) Error() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// TraceSnapshot is a plain copy of a trace for display and serialisation.
type TraceSnapshot struct {
	ID         string                 `json:"id"`
	Query      string                 `json:"query"`
	StartedAt  time.Time              `json:"started_at"`
	Pipeline   PipelineInfo           `json:"pipeline"`
	Candidates []ScoredChunkCandidate `json:"candidates"`
	Stages     []StageTiming          `json:"stages"`
	Tokens     TokenBreakdown         `json:"tokens"`
	Total      time.Duration          `json:"total_ns"`
	Error      string                 `json:"error,omitempty"`
	Finalized  bool                   `json:"finalized"`
}

// Snapshot returns a copy of the full trace.
func (t *RagTrace) Snapshot() TraceSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	candidates := make([]ScoredChunkCandidate, len(t.candidates))
	copy(candidates, t.candidates)
	stages := make([]StageTiming, len(t.stages))
	copy(stages, t.stages)
	return TraceSnapshot{
		ID:         t.id,
		Query:      t.query,
		StartedAt:  t.startedAt,
		Pipeline:   t.pipeline,
		Candidates: candidates,
		Stages:     stages,
		Tokens:     t.tokens,
		Total:      t.total,
		Error:      t.err,
		Finalized:  t.finalized,
	}
}

// MarshalJSON implements json.Marshaler.
func (t *RagTrace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Snapshot())
}
