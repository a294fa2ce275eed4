package services

import (
	"math"
	"sort"

	"github.com/custodia-labs/chatrag/internal/core/domain"
)

// RRFK is the Reciprocal Rank Fusion constant.
const RRFK = 60

// CosineSimilarity returns dot(a,b) / (|a|*|b|).
// It returns 0 when either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// RRFContribution returns 1/(k+rank+1) for a 0-based rank, or 0 when the
// item is absent from the ranking (rank < 0).
func RRFContribution(rank int) float64 {
	if rank < 0 {
		return 0
	}
	return 1.0 / float64(RRFK+rank+1)
}

// FusedScore sums the RRF contributions of the rankings the mode computes.
// Ranks are 0-based; -1 marks absence from a ranking.
func FusedScore(mode domain.RetrievalMode, vectorRank, keywordRank int) float64 {
	switch mode {
	case domain.RetrievalModeVector:
		return RRFContribution(vectorRank)
	case domain.RetrievalModeKeyword:
		return RRFContribution(keywordRank)
	case domain.RetrievalModeHybrid:
		return RRFContribution(vectorRank) + RRFContribution(keywordRank)
	}
	// Unreachable for validated requests.
	return 0
}

// RankByScore returns the indices of the items for which include is true,
// ordered by score descending. Equal scores keep index order.
func RankByScore(n int, score func(i int) float64, include func(i int) bool) []int {
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if include(i) {
			order = append(order, i)
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		return score(order[a]) > score(order[b])
	})
	return order
}

// FuseCandidates assigns VectorRank, KeywordRank and FusedScore to every
// candidate from the given rankings (candidate indices in rank order).
// A nil ranking leaves the corresponding rank at -1.
func FuseCandidates(mode domain.RetrievalMode, candidates []domain.ScoredChunkCandidate, vectorRanking, keywordRanking []int) {
	for i := range candidates {
		candidates[i].VectorRank = -1
		candidates[i].KeywordRank = -1
	}
	for rank, idx := range vectorRanking {
		candidates[idx].VectorRank = rank
	}
	for rank, idx := range keywordRanking {
		candidates[idx].KeywordRank = rank
	}
	for i := range candidates {
		candidates[i].FusedScore = FusedScore(mode, candidates[i].VectorRank, candidates[i].KeywordRank)
	}
}

// SelectTopK orders candidates by fused score (ties by snapshot order) and
// marks the first topK eligible ones as included with a 1-based rank.
// A candidate is eligible when it appears in at least one ranking and,
// outside keyword mode, its vector similarity (when computed) meets
// minSimilarity. It returns the candidate indices in final order and the
// number of included candidates.
func SelectTopK(mode domain.RetrievalMode, candidates []domain.ScoredChunkCandidate, topK int, minSimilarity float64) ([]int, int) {
	order := RankByScore(len(candidates),
		func(i int) float64 { return candidates[i].FusedScore },
		func(int) bool { return true },
	)

	selected := 0
	for _, idx := range order {
		c := &candidates[idx]
		c.Included = false
		c.Rank = 0
		if selected >= topK || c.FusedScore <= 0 || !passesGate(mode, c, minSimilarity) {
			continue
		}
		selected++
		c.Included = true
		c.Rank = selected
	}
	return order, selected
}

func passesGate(mode domain.RetrievalMode, c *domain.ScoredChunkCandidate, minSimilarity float64) bool {
	switch mode {
	case domain.RetrievalModeKeyword:
		return true
	case domain.RetrievalModeVector, domain.RetrievalModeHybrid:
		return !c.HasVector || c.VectorScore >= minSimilarity
	}
	return false
}
