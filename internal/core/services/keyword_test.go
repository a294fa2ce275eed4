package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywordScorer_Terms(t *testing.T) {
	k := NewKeywordScorer()

	assert.Equal(t, []string{"hello", "world", "42"}, k.Terms("Hello, WORLD! 42"))
	assert.Equal(t, []string{"école", "abc"}, k.Terms("ÉCOLE ＡＢＣ"))
	assert.Empty(t, k.Terms("  ...  "))
}

func TestKeywordScorer_QueryTerms(t *testing.T) {
	k := NewKeywordScorer()

	terms := k.QueryTerms("What is the retry policy of the retry queue? a b")

	assert.Equal(t, []string{"retry", "policy", "queue"}, terms)
}

func TestKeywordScorer_Score(t *testing.T) {
	k := NewKeywordScorer()

	tests := []struct {
		name        string
		query       string
		content     string
		wantScore   float64
		wantMatched []string
	}{
		{
			name:        "single match",
			query:       "database migration",
			content:     "Run the migration before deploying.",
			wantScore:   1,
			wantMatched: []string{"migration"},
		},
		{
			name:        "term frequency",
			query:       "cache",
			content:     "cache the cache in a cache",
			wantScore:   1 + math.Log(3),
			wantMatched: []string{"cache"},
		},
		{
			name:        "case and width insensitive",
			query:       "ＲＥＳＴ API",
			content:     "The rest api returns JSON.",
			wantScore:   2,
			wantMatched: []string{"rest", "api"},
		},
		{
			name:      "no overlap",
			query:     "kubernetes",
			content:   "A recipe for bread.",
			wantScore: 0,
		},
		{
			name:      "stop words only",
			query:     "what is the",
			content:   "what is the answer",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, matched := k.Score(tt.query, tt.content)
			assert.InDelta(t, tt.wantScore, score, 1e-9)
			assert.Equal(t, tt.wantMatched, matched)
		})
	}
}

func TestKeywordScorer_MoreMatchesScoreHigher(t *testing.T) {
	k := NewKeywordScorer()
	query := "vector index rebuild"

	one, _ := k.Score(query, "The index is fine.")
	two, _ := k.Score(query, "Rebuild the index.")
	three, _ := k.Score(query, "Rebuild the vector index.")

	assert.Less(t, one, two)
	assert.Less(t, two, three)
}
