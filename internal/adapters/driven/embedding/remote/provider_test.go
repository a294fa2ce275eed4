package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// mockBackend is a scripted Backend.
type mockBackend struct {
	mu      sync.Mutex
	dims    int
	errs    []error
	vec     []float32
	calls   int
	models  []string
	queries []bool
}

func (m *mockBackend) Name() string    { return "mock" }
func (m *mockBackend) Dimensions() int { return m.dims }

func (m *mockBackend) Embed(_ context.Context, model, _ string, isQuery bool) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.models = append(m.models, model)
	m.queries = append(m.queries, isQuery)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.vec, nil
}

func (m *mockBackend) Ping(context.Context) error { return nil }

func newTestProvider(b *mockBackend, cfg Config) (*Provider, *[]time.Duration) {
	p := NewProvider(b, cfg)
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func TestProvider_EmbedBeforeInitialize(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{vec: []float32{1}}, Config{Model: "m"})

	assert.False(t, p.IsAvailable())
	assert.Equal(t, 0, p.Dimensions())
	_, err := p.Embed(context.Background(), "hello", true)
	assert.ErrorIs(t, err, domain.ErrModelNotLoaded)
	assert.Equal(t, int64(0), p.Stats().Calls)
}

func TestProvider_InitializeRequiresModel(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{}, Config{})

	err := p.Initialize(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.False(t, p.IsAvailable())
}

func TestProvider_Embed(t *testing.T) {
	b := &mockBackend{dims: 3, vec: []float32{0.1, 0.2, 0.3}}
	p, _ := newTestProvider(b, Config{Model: "default-model"})
	require.NoError(t, p.Initialize(context.Background(), "custom-model"))

	vec, err := p.Embed(context.Background(), "hello", true)
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, p.Dimensions())
	assert.Equal(t, "custom-model", p.ModelName())
	assert.Equal(t, "mock", p.ProviderName())
	assert.Equal(t, []string{"custom-model"}, b.models)
	assert.Equal(t, []bool{true}, b.queries)
	assert.Equal(t, domain.EmbeddingStats{Calls: 1}, p.Stats())
}

func TestProvider_LearnsDimensions(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{vec: make([]float32, 5)}, Config{Model: "m"})
	require.NoError(t, p.Initialize(context.Background(), ""))
	assert.Equal(t, 0, p.Dimensions())

	_, err := p.Embed(context.Background(), "x", false)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Dimensions())
}

func TestProvider_RetriesRateLimited(t *testing.T) {
	b := &mockBackend{
		vec: []float32{1},
		errs: []error{
			&StatusError{Provider: "mock", StatusCode: http.StatusTooManyRequests, RetryAfter: 3 * time.Second},
			&StatusError{Provider: "mock", StatusCode: http.StatusTooManyRequests},
		},
	}
	p, waits := newTestProvider(b, Config{Model: "m"})
	require.NoError(t, p.Initialize(context.Background(), ""))

	_, err := p.Embed(context.Background(), "x", false)
	require.NoError(t, err)

	assert.Equal(t, 3, b.calls)
	assert.Equal(t, []time.Duration{3 * time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, domain.EmbeddingStats{Calls: 1}, p.Stats())
}

func TestProvider_RetryWaitIsCapped(t *testing.T) {
	b := &mockBackend{
		vec:  []float32{1},
		errs: []error{&StatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Hour}},
	}
	p, waits := newTestProvider(b, Config{Model: "m", MaxRetryWait: 5 * time.Second})
	require.NoError(t, p.Initialize(context.Background(), ""))

	_, err := p.Embed(context.Background(), "x", false)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{5 * time.Second}, *waits)
}

func TestProvider_GivesUpAfterMaxRetries(t *testing.T) {
	limited := &StatusError{Provider: "mock", StatusCode: http.StatusTooManyRequests}
	b := &mockBackend{errs: []error{limited, limited, limited, limited}}
	p, _ := newTestProvider(b, Config{Model: "m", MaxRetries: 1})
	require.NoError(t, p.Initialize(context.Background(), ""))

	_, err := p.Embed(context.Background(), "x", false)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.True(t, domain.IsTransient(err))
	assert.Equal(t, 2, b.calls)
	assert.Equal(t, domain.EmbeddingStats{Calls: 1, Failures: 1}, p.Stats())
}

func TestProvider_TransportErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("connection refused")},
		{"server error", &StatusError{Provider: "mock", StatusCode: http.StatusInternalServerError}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &mockBackend{errs: []error{tt.err}}
			p, waits := newTestProvider(b, Config{Model: "m"})
			require.NoError(t, p.Initialize(context.Background(), ""))

			_, err := p.Embed(context.Background(), "x", false)
			assert.ErrorIs(t, err, domain.ErrTransport)
			assert.Equal(t, 1, b.calls)
			assert.Empty(t, *waits)
			assert.Equal(t, int64(1), p.Stats().Failures)
		})
	}
}

func TestProvider_EmptyEmbedding(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{}, Config{Model: "m"})
	require.NoError(t, p.Initialize(context.Background(), ""))

	_, err := p.Embed(context.Background(), "x", false)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestProvider_Close(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{dims: 4}, Config{Model: "m"})
	require.NoError(t, p.Initialize(context.Background(), ""))
	require.Equal(t, 4, p.Dimensions())

	require.NoError(t, p.Close())
	assert.False(t, p.IsAvailable())
	assert.Equal(t, 0, p.Dimensions())
}

func TestProvider_ConcurrentStats(t *testing.T) {
	p, _ := newTestProvider(&mockBackend{vec: []float32{1}}, Config{Model: "m"})
	require.NoError(t, p.Initialize(context.Background(), ""))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Embed(context.Background(), "x", false)
			_ = p.Stats()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(20), p.Stats().Calls)
}

func TestCheckResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/limited":
			w.Header().Set("Retry-After", "7")
			http.Error(w, "slow down", http.StatusTooManyRequests)
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	get := func(path string) error {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		return CheckResponse("test", resp)
	}

	assert.NoError(t, get("/ok"))

	err := get("/limited")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 7*time.Second, se.RetryAfter)
	assert.Equal(t, "slow down", se.Body)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	err = get("/fail")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "status 502")
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"empty", "", 0},
		{"seconds", "12", 12 * time.Second},
		{"negative", "-1", 0},
		{"http date", now.Add(90 * time.Second).Format(http.TimeFormat), 90 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRetryAfter(tt.value, now))
		})
	}
}
