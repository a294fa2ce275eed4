package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Policy bounds chunk sizes. All lengths are in Unicode code points.
type Policy struct {
	// MinChars is the smallest chunk emitted. Shorter residue is dropped.
	MinChars int

	// MaxChars is the largest chunk emitted.
	MaxChars int

	// OverlapChars is the length of the tail of a closed chunk that seeds
	// the next one.
	OverlapChars int
}

// Default policy constants.
const (
	DefaultMinChars     = 100
	DefaultMaxChars     = 1500
	DefaultOverlapChars = 150
)

// DefaultPolicy returns the default chunking policy.
func DefaultPolicy() Policy {
	return Policy{
		MinChars:     DefaultMinChars,
		MaxChars:     DefaultMaxChars,
		OverlapChars: DefaultOverlapChars,
	}
}

// normalised returns a policy with invalid values replaced by defaults.
func (p Policy) normalised() Policy {
	if p.MaxChars <= 0 {
		p.MaxChars = DefaultMaxChars
	}
	if p.MinChars < 0 {
		p.MinChars = 0
	}
	if p.MinChars > p.MaxChars {
		p.MinChars = p.MaxChars
	}
	if p.OverlapChars < 0 {
		p.OverlapChars = 0
	}
	if p.OverlapChars >= p.MaxChars {
		p.OverlapChars = p.MaxChars / 4
	}
	return p
}

var blankLine = regexp.MustCompile(`\n[ \t\f\v]*\n`)

// piece is a unit of accumulation with the separator that joins it to
// the preceding text.
type piece struct {
	sep  string
	text string
}

// Split divides text into chunks following policy. It is deterministic and
// pure: paragraphs are accumulated up to MaxChars, oversized paragraphs are
// split at sentence boundaries, oversized sentences at the character budget.
// Each closed chunk seeds the next with its word-aligned tail, and a final
// buffer shorter than MinChars is dropped.
func Split(text string, policy Policy) []string {
	policy = policy.normalised()
	pieces := splitPieces(text, policy.MaxChars)
	if len(pieces) == 0 {
		return nil
	}

	var (
		chunks []string
		buf    string
	)
	for _, pc := range pieces {
		if buf == "" {
			buf = pc.text
			continue
		}
		candidate := buf + pc.sep + pc.text
		if runeLen(candidate) <= policy.MaxChars {
			buf = candidate
			continue
		}

		if runeLen(buf) >= policy.MinChars {
			chunks = append(chunks, buf)
			seed := overlapTail(buf, policy.OverlapChars)
			if seed != "" && runeLen(seed)+1+runeLen(pc.text) <= policy.MaxChars {
				buf = seed + " " + pc.text
			} else {
				buf = pc.text
			}
			continue
		}

		// The buffer is too short to stand alone; cut the combined text.
		head, rest := cutAt(candidate, policy.MinChars, policy.MaxChars)
		chunks = append(chunks, head)
		buf = rest
	}

	if buf != "" && runeLen(buf) >= policy.MinChars {
		chunks = append(chunks, buf)
	}
	return chunks
}

// splitPieces normalises line endings and blank-line runs, then breaks the
// text into pieces no longer than maxChars.
func splitPieces(text string, maxChars int) []piece {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var pieces []piece
	for _, para := range blankLine.Split(text, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		sep := "\n\n"
		if runeLen(para) <= maxChars {
			pieces = append(pieces, piece{sep: sep, text: para})
			continue
		}
		for _, sentence := range SplitSentences(para) {
			for _, part := range hardSplit(sentence, maxChars) {
				pieces = append(pieces, piece{sep: sep, text: part})
				sep = " "
			}
		}
	}
	return pieces
}

// SplitSentences breaks text after '.', '!' or '?' followed by whitespace,
// and at newlines. Pieces are trimmed; empty pieces are dropped.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// hardSplit cuts s into parts of at most maxChars code points.
func hardSplit(s string, maxChars int) []string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return []string{s}
	}
	parts := make([]string, 0, len(runes)/maxChars+1)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		if part := strings.TrimSpace(string(runes[start:end])); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// cutAt splits s at the last whitespace between minChars and maxChars code
// points, or at maxChars when there is none.
func cutAt(s string, minChars, maxChars int) (head, rest string) {
	runes := []rune(s)
	cut := min(maxChars, len(runes))
	for i := cut; i > minChars && i < len(runes); i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	return strings.TrimSpace(string(runes[:cut])), strings.TrimSpace(string(runes[cut:]))
}

// overlapTail returns the trailing n code points of s, advanced to the next
// word boundary when the cut falls inside a word. Chunks no longer than n
// yield no tail so a chunk is never repeated whole, and a cut inside a word
// with no later boundary yields no tail rather than a word fragment.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if n <= 0 || len(runes) <= n {
		return ""
	}
	start := len(runes) - n
	if !unicode.IsSpace(runes[start-1]) {
		i := start
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		if i == len(runes) {
			return ""
		}
		start = i
	}
	return strings.TrimSpace(string(runes[start:]))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
