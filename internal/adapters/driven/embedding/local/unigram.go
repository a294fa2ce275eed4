package local

import (
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/sugarme/tokenizer"
)

var _ tokenizer.Model = (*unigram)(nil)

// unkPenalty is subtracted from the lowest piece score to score unknown
// characters, matching SentencePiece.
const unkPenalty = 10.0

// unigram is a SentencePiece unigram model: each pre-token is segmented
// into the vocabulary pieces with the highest total log probability.
type unigram struct {
	vocab    map[string]int
	pieces   []string
	scores   []float64
	unkID    int
	unkScore float64
	maxLen   int
}

// newUnigram builds the model from the "model" section of tokenizer.json:
// {"type": "Unigram", "unk_id": 3, "vocab": [["<s>", 0.0], ...]}.
func newUnigram(cfg map[string]any) (*unigram, error) {
	raw, ok := cfg["vocab"].([]any)
	if !ok || len(raw) == 0 {
		return nil, errors.New("unigram: missing vocab")
	}
	u := &unigram{
		vocab:  make(map[string]int, len(raw)),
		pieces: make([]string, len(raw)),
		scores: make([]float64, len(raw)),
		unkID:  -1,
	}
	minScore := math.Inf(1)
	for i, entry := range raw {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("unigram: vocab entry %d malformed", i)
		}
		piece, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("unigram: vocab entry %d has no piece", i)
		}
		score, ok := pair[1].(float64)
		if !ok {
			return nil, fmt.Errorf("unigram: vocab entry %d has no score", i)
		}
		u.vocab[piece] = i
		u.pieces[i] = piece
		u.scores[i] = score
		minScore = min(minScore, score)
		u.maxLen = max(u.maxLen, len(piece))
	}
	if id, ok := cfg["unk_id"].(float64); ok {
		u.unkID = int(id)
	}
	if u.unkID < 0 || u.unkID >= len(u.pieces) {
		return nil, errors.New("unigram: unk_id missing or out of range")
	}
	u.unkScore = minScore - unkPenalty
	return u, nil
}

// Tokenize segments sequence with Viterbi search over byte offsets.
// Characters no piece covers become the unknown token; runs of them fuse.
func (u *unigram) Tokenize(sequence string) ([]tokenizer.Token, error) {
	n := len(sequence)
	if n == 0 {
		return nil, nil
	}

	best := make([]float64, n+1)
	from := make([]int, n+1)
	ids := make([]int, n+1)
	for i := 1; i <= n; i++ {
		best[i] = math.Inf(-1)
	}

	for i := 0; i < n; {
		_, size := utf8.DecodeRuneInString(sequence[i:])
		if !math.IsInf(best[i], -1) {
			covered := false
			for j := i + size; j <= n && j-i <= u.maxLen; {
				if id, ok := u.vocab[sequence[i:j]]; ok {
					if j == i+size {
						covered = true
					}
					if s := best[i] + u.scores[id]; s > best[j] {
						best[j], from[j], ids[j] = s, i, id
					}
				}
				if j == n {
					break
				}
				_, next := utf8.DecodeRuneInString(sequence[j:])
				j += next
			}
			if !covered {
				if s := best[i] + u.unkScore; s > best[i+size] {
					best[i+size], from[i+size], ids[i+size] = s, i, u.unkID
				}
			}
		}
		i += size
	}

	var rev []tokenizer.Token
	for end := n; end > 0; end = from[end] {
		start := from[end]
		if ids[end] == u.unkID && len(rev) > 0 && rev[len(rev)-1].Id == u.unkID {
			last := &rev[len(rev)-1]
			last.Offsets[0] = start
			last.Value = sequence[start:last.Offsets[1]]
			continue
		}
		value := u.pieces[ids[end]]
		if ids[end] == u.unkID {
			value = sequence[start:end]
		}
		rev = append(rev, tokenizer.NewToken(ids[end], value, []int{start, end}))
	}

	tokens := make([]tokenizer.Token, len(rev))
	for i := range rev {
		tokens[i] = rev[len(rev)-1-i]
	}
	return tokens, nil
}

func (u *unigram) TokenToId(token string) (int, bool) {
	id, ok := u.vocab[token]
	return id, ok
}

func (u *unigram) IdToToken(id int) (string, bool) {
	if id < 0 || id >= len(u.pieces) {
		return "", false
	}
	return u.pieces[id], true
}

func (u *unigram) GetVocab() map[string]int {
	out := make(map[string]int, len(u.vocab))
	for k, v := range u.vocab {
		out[k] = v
	}
	return out
}

func (u *unigram) GetVocabSize() int {
	return len(u.pieces)
}

// Save is not supported; models are only read.
func (u *unigram) Save(string, ...string) error {
	return errors.New("unigram: save not supported")
}
