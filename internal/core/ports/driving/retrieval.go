package driving

import (
	"context"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// RetrievalService answers queries with ranked chunks and a diagnostic trace.
type RetrievalService interface {
	// Retrieve runs the retrieval pipeline. The trace is always returned,
	// even on error, with the failure recorded in it.
	Retrieve(ctx context.Context, req domain.RetrievalRequest) (*domain.RetrievalResult, *domain.RagTrace, error)

	// BuildContext runs Retrieve for a prompt builder. It never fails:
	// on error the context is empty and the trace carries the reason.
	BuildContext(ctx context.Context, req domain.RetrievalRequest) *ContextBundle
}

// ContextBundle is what a prompt builder consumes.
type ContextBundle struct {
	// Context is the combined context text, empty on failure.
	Context string

	// Result is the retrieval result, empty on failure.
	Result *domain.RetrievalResult

	// Trace is the finalised query trace.
	Trace *domain.RagTrace
}
