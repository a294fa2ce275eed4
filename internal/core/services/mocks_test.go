package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
)

// mockEmbedder implements driven.EmbeddingProvider for testing.
// Texts are embedded by looking up the first matching keyword in vectors;
// texts with no match get fallback.
type mockEmbedder struct {
	mu        sync.Mutex
	vectors   map[string][]float32
	fallback  []float32
	failOn    string
	err       error
	available bool
	queries   []string
	passages  []string
	calls     atomic.Int64
	failures  atomic.Int64
}

var _ driven.EmbeddingProvider = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:   make(map[string][]float32),
		fallback:  []float32{0, 0, 1},
		available: true,
	}
}

func (m *mockEmbedder) Dimensions() int { return len(m.fallback) }
func (m *mockEmbedder) IsAvailable() bool { return m.available }
func (m *mockEmbedder) ModelName() string { return "mock-model" }
func (m *mockEmbedder) ProviderName() string { return "mock" }
func (m *mockEmbedder) Close() error { return nil }

func (m *mockEmbedder) Initialize(context.Context, string) error { return nil }

func (m *mockEmbedder) Stats() domain.EmbeddingStats {
	return domain.EmbeddingStats{Calls: m.calls.Load(), Failures: m.failures.Load()}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	if isQuery {
		m.queries = append(m.queries, text)
	} else {
		m.passages = append(m.passages, text)
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		m.failures.Add(1)
		return nil, err
	}
	if m.err != nil {
		m.failures.Add(1)
		return nil, m.err
	}
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		m.failures.Add(1)
		return nil, errors.Join(domain.ErrTransport, errors.New("mock failure"))
	}
	for keyword, vec := range m.vectors {
		if strings.Contains(text, keyword) {
			return append([]float32(nil), vec...), nil
		}
	}
	return append([]float32(nil), m.fallback...), nil
}

func (m *mockEmbedder) passageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.passages)
}
