package services

import "unicode/utf8"

// charsPerToken is the rough characters-per-token ratio of common
// subword tokenizers on mixed prose.
const charsPerToken = 4

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}
