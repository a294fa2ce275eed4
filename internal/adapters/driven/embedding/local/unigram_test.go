package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugarme/tokenizer"
)

func testUnigram(t *testing.T) *unigram {
	t.Helper()
	u, err := newUnigram(map[string]any{
		"type":   "Unigram",
		"unk_id": float64(0),
		"vocab": []any{
			[]any{"<unk>", 0.0},
			[]any{"hello", -1.0},
			[]any{"hel", -2.0},
			[]any{"lo", -2.0},
			[]any{"world", -1.5},
			[]any{"h", -5.0},
			[]any{"e", -5.0},
			[]any{"l", -5.0},
			[]any{"o", -5.0},
		},
	})
	require.NoError(t, err)
	return u
}

func TestUnigram_Tokenize(t *testing.T) {
	u := testUnigram(t)

	tests := []struct {
		name  string
		input string
		want  []tokenizer.Token
	}{
		{
			name:  "single best piece",
			input: "hello",
			want:  []tokenizer.Token{{Id: 1, Value: "hello", Offsets: []int{0, 5}}},
		},
		{
			name:  "two pieces",
			input: "helloworld",
			want: []tokenizer.Token{
				{Id: 1, Value: "hello", Offsets: []int{0, 5}},
				{Id: 4, Value: "world", Offsets: []int{5, 10}},
			},
		},
		{
			name:  "cheaper split wins",
			input: "hell",
			want: []tokenizer.Token{
				{Id: 2, Value: "hel", Offsets: []int{0, 3}},
				{Id: 7, Value: "l", Offsets: []int{3, 4}},
			},
		},
		{
			name:  "unknown run fuses",
			input: "hexx",
			want: []tokenizer.Token{
				{Id: 5, Value: "h", Offsets: []int{0, 1}},
				{Id: 6, Value: "e", Offsets: []int{1, 2}},
				{Id: 0, Value: "xx", Offsets: []int{2, 4}},
			},
		},
		{
			name:  "multibyte unknown uses byte offsets",
			input: "héllo",
			want: []tokenizer.Token{
				{Id: 5, Value: "h", Offsets: []int{0, 1}},
				{Id: 0, Value: "é", Offsets: []int{1, 3}},
				{Id: 7, Value: "l", Offsets: []int{3, 4}},
				{Id: 3, Value: "lo", Offsets: []int{4, 6}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := u.Tokenize(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnigram_TokenizeEmpty(t *testing.T) {
	got, err := testUnigram(t).Tokenize("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnigram_Vocab(t *testing.T) {
	u := testUnigram(t)

	id, ok := u.TokenToId("world")
	assert.True(t, ok)
	assert.Equal(t, 4, id)
	_, ok = u.TokenToId("absent")
	assert.False(t, ok)

	tok, ok := u.IdToToken(2)
	assert.True(t, ok)
	assert.Equal(t, "hel", tok)
	_, ok = u.IdToToken(99)
	assert.False(t, ok)

	assert.Equal(t, 9, u.GetVocabSize())
	assert.Len(t, u.GetVocab(), 9)
	assert.Error(t, u.Save(t.TempDir()))
}

func TestNewUnigram_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"no vocab", map[string]any{"unk_id": float64(0)}},
		{"bad entry", map[string]any{"unk_id": float64(0), "vocab": []any{"x"}}},
		{"bad score", map[string]any{"unk_id": float64(0), "vocab": []any{[]any{"x", "y"}}}},
		{"no unk", map[string]any{"vocab": []any{[]any{"x", 0.0}}}},
		{"unk out of range", map[string]any{"unk_id": float64(4), "vocab": []any{[]any{"x", 0.0}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newUnigram(tt.cfg)
			assert.Error(t, err)
		})
	}
}
