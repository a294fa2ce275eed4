package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/chatrag/internal/core/domain"
	"github.com/custodia-labs/chatrag/internal/core/ports/driven"
	"github.com/custodia-labs/chatrag/internal/core/ports/driving"
	"github.com/custodia-labs/chatrag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// contextSeparator joins chunk contents in the combined context.
const contextSeparator = "\n\n"

// RetrievalService runs hybrid retrieval over a snapshot of stored chunks:
// vector and keyword scans, RRF fusion, then threshold and top-K selection.
// Every query produces a RagTrace.
type RetrievalService struct {
	docStore driven.DocumentStore
	embedder driven.EmbeddingProvider
	scorer   *KeywordScorer
	clock    func() time.Time
}

// NewRetrievalService creates a new retrieval service.
// The embedder is optional (can be nil); without it only keyword mode works.
func NewRetrievalService(docStore driven.DocumentStore, embedder driven.EmbeddingProvider) *RetrievalService {
	return &RetrievalService{
		docStore: docStore,
		embedder: embedder,
		scorer:   NewKeywordScorer(),
		clock:    time.Now,
	}
}

// scan holds per-chunk scores produced by the scans.
type scan struct {
	chunks        []domain.Chunk
	vectorScores  []float64
	hasVector     []bool
	keywordScores []float64
	matched       [][]string
	skipped       int
	mismatched    int
}

// Retrieve runs the retrieval pipeline for a request.
func (s *RetrievalService) Retrieve(
	ctx context.Context, req domain.RetrievalRequest,
) (*domain.RetrievalResult, *domain.RagTrace, error) {
	start := s.clock()
	trace := domain.NewRagTrace(uuid.New().String(), req.Query, start)

	logger.Section("Retrieval")
	logger.Debug("Query: %q, mode=%s, top_k=%d, min_similarity=%.3f", req.Query, req.Mode, req.TopK, req.MinSimilarity)

	result, err := s.retrieve(ctx, req, trace)
	total := s.clock().Sub(start)
	if err != nil {
		logger.Warn("Retrieval failed: %v", err)
		trace.Fail(err)
		trace.Finalize(total)
		return &domain.RetrievalResult{Metrics: domain.RetrievalMetrics{Duration: total}}, trace, err
	}

	result.Metrics.Duration = total
	trace.Finalize(total)
	logger.Info("Retrieval: %d of %d chunks selected, %d in context, in %s",
		result.Metrics.Selected, result.Metrics.ScannedChunks, result.Metrics.InContext, total)
	return result, trace, nil
}

// BuildContext runs Retrieve and degrades failures to an empty context.
func (s *RetrievalService) BuildContext(ctx context.Context, req domain.RetrievalRequest) *driving.ContextBundle {
	result, trace, err := s.Retrieve(ctx, req)
	if err != nil {
		logger.Warn("Continuing without retrieved context: %v", err)
		return &driving.ContextBundle{Result: &domain.RetrievalResult{Metrics: result.Metrics}, Trace: trace}
	}
	return &driving.ContextBundle{Context: result.CombinedContext, Result: result, Trace: trace}
}

func (s *RetrievalService) retrieve(
	ctx context.Context, req domain.RetrievalRequest, trace *domain.RagTrace,
) (*domain.RetrievalResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	topK := req.TopK
	if topK == 0 {
		topK = domain.DefaultTopK
	}

	trace.SetPipeline(s.pipelineInfo(req, topK))

	var queryVec []float32
	if req.Mode.UsesVector() {
		vec, err := s.embedQuery(ctx, req.Query, trace)
		if err != nil {
			return nil, err
		}
		queryVec = vec
	}

	chunks, err := s.docStore.LoadAllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	filenames, err := s.documentFilenames(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Snapshot: %d chunks", len(chunks))

	sc, err := s.runScans(ctx, req, queryVec, chunks, trace)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.ScoredChunkCandidate, len(chunks))
	for i, c := range chunks {
		c.Embedding = nil
		candidates[i] = domain.ScoredChunkCandidate{
			Chunk:            c,
			DocumentFilename: filenames[c.DocumentID],
			VectorScore:      sc.vectorScores[i],
			HasVector:        sc.hasVector[i],
			KeywordScore:     sc.keywordScores[i],
			MatchedTerms:     sc.matched[i],
		}
	}

	// Fusion
	fusionStart := s.clock()
	var vectorRanking, keywordRanking []int
	if req.Mode.UsesVector() {
		vectorRanking = RankByScore(len(candidates),
			func(i int) float64 { return sc.vectorScores[i] },
			func(i int) bool { return sc.hasVector[i] },
		)
	}
	if req.Mode.UsesKeyword() {
		keywordRanking = RankByScore(len(candidates),
			func(i int) float64 { return sc.keywordScores[i] },
			func(i int) bool { return sc.keywordScores[i] > 0 },
		)
	}
	FuseCandidates(req.Mode, candidates, vectorRanking, keywordRanking)
	trace.RecordStage(domain.StageFusion, s.clock().Sub(fusionStart))
	logger.Debug("Fusion: %s over %d vector + %d keyword ranks", domain.FusionFormula, len(vectorRanking), len(keywordRanking))

	// Selection
	selectionStart := s.clock()
	order, selected := SelectTopK(req.Mode, candidates, topK, req.MinSimilarity)
	ordered := make([]domain.ScoredChunkCandidate, len(order))
	for i, idx := range order {
		ordered[i] = candidates[idx]
	}
	result, tokens := assembleContext(req, ordered)
	trace.RecordStage(domain.StageSelection, s.clock().Sub(selectionStart))
	trace.SetCandidates(ordered)
	trace.SetTokens(tokens)

	result.Metrics = domain.RetrievalMetrics{
		ScannedChunks:      len(chunks),
		VectorRanked:       len(vectorRanking),
		KeywordRanked:      len(keywordRanking),
		SkippedNoEmbedding: sc.skipped,
		Selected:           selected,
		InContext:          len(result.Chunks),
	}
	logger.Debug("Selection: %d included, %d in context, %d tokens", selected, len(result.Chunks), tokens.Context)
	return result, nil
}

func (s *RetrievalService) pipelineInfo(req domain.RetrievalRequest, topK int) domain.PipelineInfo {
	info := domain.PipelineInfo{
		Mode:          req.Mode,
		FusionFormula: domain.FusionFormula,
		TopK:          topK,
		MinSimilarity: req.MinSimilarity,
		Provider:      "none",
	}
	if s.embedder != nil {
		info.Model = s.embedder.ModelName()
		info.Provider = s.embedder.ProviderName()
	}
	return info
}

func (s *RetrievalService) embedQuery(ctx context.Context, query string, trace *domain.RagTrace) ([]float32, error) {
	if s.embedder == nil || !s.embedder.IsAvailable() {
		return nil, domain.ErrEmbeddingUnavailable
	}
	start := s.clock()
	vec, err := s.embedder.Embed(ctx, query, true)
	trace.RecordStage(domain.StageEmbedding, s.clock().Sub(start))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vec))
	return vec, nil
}

func (s *RetrievalService) documentFilenames(ctx context.Context) (map[string]string, error) {
	docs, err := s.docStore.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	names := make(map[string]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Filename
	}
	return names, nil
}

// runScans computes vector and keyword scores over the snapshot. In hybrid
// mode the two scans run concurrently; each writes only its own slices.
func (s *RetrievalService) runScans(
	ctx context.Context, req domain.RetrievalRequest, queryVec []float32, chunks []domain.Chunk, trace *domain.RagTrace,
) (*scan, error) {
	sc := &scan{
		chunks:        chunks,
		vectorScores:  make([]float64, len(chunks)),
		hasVector:     make([]bool, len(chunks)),
		keywordScores: make([]float64, len(chunks)),
		matched:       make([][]string, len(chunks)),
	}

	var vectorTook, keywordTook time.Duration
	g, gctx := errgroup.WithContext(ctx)
	if req.Mode.UsesVector() {
		g.Go(func() error {
			start := s.clock()
			err := s.vectorScan(gctx, queryVec, sc)
			vectorTook = s.clock().Sub(start)
			return err
		})
	}
	if req.Mode.UsesKeyword() {
		g.Go(func() error {
			start := s.clock()
			err := s.keywordScan(gctx, req.Query, sc)
			keywordTook = s.clock().Sub(start)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if req.Mode.UsesVector() {
		trace.RecordStage(domain.StageVectorScan, vectorTook)
	}
	if req.Mode.UsesKeyword() {
		trace.RecordStage(domain.StageKeywordScan, keywordTook)
	}
	if sc.skipped > 0 {
		logger.Warn("Vector scan: %d chunks have no embedding and were skipped", sc.skipped)
	}
	if sc.mismatched > 0 {
		logger.Warn("Vector scan: %d chunks have embeddings of a different length than the query (%d)", sc.mismatched, len(queryVec))
	}
	return sc, nil
}

func (s *RetrievalService) vectorScan(ctx context.Context, queryVec []float32, sc *scan) error {
	for i, c := range sc.chunks {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !c.HasEmbedding() {
			sc.skipped++
			continue
		}
		if len(c.Embedding) != len(queryVec) {
			sc.mismatched++
		}
		sc.hasVector[i] = true
		sc.vectorScores[i] = CosineSimilarity(queryVec, c.Embedding)
	}
	return nil
}

func (s *RetrievalService) keywordScan(ctx context.Context, query string, sc *scan) error {
	terms := s.scorer.QueryTerms(query)
	logger.Debug("Keyword scan: terms=%v", terms)
	for i, c := range sc.chunks {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		sc.keywordScores[i], sc.matched[i] = s.scorer.ScoreTerms(terms, c.Content)
	}
	return nil
}

// assembleContext builds the result from included candidates in rank order,
// marking candidates that do not fit the token budget. The first included
// candidate is always kept.
func assembleContext(
	req domain.RetrievalRequest, ordered []domain.ScoredChunkCandidate,
) (*domain.RetrievalResult, domain.TokenBreakdown) {
	result := &domain.RetrievalResult{}
	tokens := domain.TokenBreakdown{
		Query:  EstimateTokens(req.Query),
		Budget: req.MaxContextTokens,
	}

	var (
		parts []string
		used  int
		full  bool
	)
	for i := range ordered {
		c := &ordered[i]
		if !c.Included {
			continue
		}
		cost := EstimateTokens(c.Chunk.Content)
		if len(parts) > 0 && req.MaxContextTokens > 0 && (full || used+cost > req.MaxContextTokens) {
			c.OverBudget = true
			full = true
			tokens.Truncated = true
			continue
		}
		used += cost
		parts = append(parts, c.Chunk.Content)
		result.Chunks = append(result.Chunks, domain.RetrievedChunk{
			Chunk:            c.Chunk,
			DocumentFilename: c.DocumentFilename,
			Rank:             c.Rank,
			VectorScore:      c.VectorScore,
			KeywordScore:     c.KeywordScore,
			FusedScore:       c.FusedScore,
			MatchedTerms:     c.MatchedTerms,
		})
	}

	result.CombinedContext = strings.Join(parts, contextSeparator)
	tokens.Context = EstimateTokens(result.CombinedContext)
	tokens.Total = tokens.Query + tokens.Context
	return result, tokens
}

// IsRetrievalUnavailable reports whether err means the requested mode cannot
// run with the current embedding setup.
func IsRetrievalUnavailable(err error) bool {
	return errors.Is(err, domain.ErrEmbeddingUnavailable) ||
		errors.Is(err, domain.ErrModelNotLoaded) ||
		errors.Is(err, domain.ErrModelLoadFailed)
}
