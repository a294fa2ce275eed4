package services

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// KeywordScorer computes lexical relevance of a text against a query.
// Terms are NFKC-normalised and case-folded, so matching is
// case-insensitive across scripts. The score of a chunk is the sum over
// distinct query terms of 1 + ln(tf), which grows with term frequency.
type KeywordScorer struct {
	stopWords map[string]bool
}

// NewKeywordScorer creates a scorer with the default stop words.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{stopWords: defaultStopWords}
}

// Terms returns the normalised tokens of text in order, with duplicates.
func (k *KeywordScorer) Terms(text string) []string {
	folded := cases.Fold().String(norm.NFKC.String(text))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// QueryTerms returns the distinct query terms used for matching.
// Stop words and single-character terms are dropped.
func (k *KeywordScorer) QueryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, t := range k.Terms(query) {
		if utf8.RuneCountInString(t) < 2 || k.stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		terms = append(terms, t)
	}
	return terms
}

// Score returns the relevance of content for query and the matched terms.
func (k *KeywordScorer) Score(query, content string) (float64, []string) {
	return k.ScoreTerms(k.QueryTerms(query), content)
}

// ScoreTerms scores content against pre-computed query terms.
// Matched terms are returned in query order.
func (k *KeywordScorer) ScoreTerms(queryTerms []string, content string) (float64, []string) {
	if len(queryTerms) == 0 {
		return 0, nil
	}
	tf := make(map[string]int)
	for _, t := range k.Terms(content) {
		tf[t]++
	}

	var (
		score   float64
		matched []string
	)
	for _, term := range queryTerms {
		n := tf[term]
		if n == 0 {
			continue
		}
		score += 1 + math.Log(float64(n))
		matched = append(matched, term)
	}
	return score, matched
}

var defaultStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "its": true, "let": true, "may": true, "who": true,
	"how": true, "what": true, "when": true, "where": true, "which": true,
	"why": true, "this": true, "that": true, "with": true, "from": true,
	"is": true, "it": true, "of": true, "to": true, "in": true,
	"on": true, "an": true, "as": true, "at": true, "be": true,
	"by": true, "do": true, "or": true, "if": true, "me": true,
	"my": true, "we": true, "so": true, "no": true, "does": true,
}
