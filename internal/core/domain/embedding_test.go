package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmbeddingStats_FailureRate(t *testing.T) {
	assert.Zero(t, EmbeddingStats{}.FailureRate())
	assert.InDelta(t, 0.25, EmbeddingStats{Calls: 4, Failures: 1}.FailureRate(), 1e-9)
	assert.InDelta(t, 1.0, EmbeddingStats{Calls: 2, Failures: 2}.FailureRate(), 1e-9)
}
