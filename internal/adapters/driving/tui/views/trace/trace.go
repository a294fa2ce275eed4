// Package trace renders a retrieval trace for the terminal.
package trace

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/chatrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/chatrag/internal/core/domain"
)

const (
	previewRunes = 60
	unranked     = "-"
)

// Render formats a trace snapshot: pipeline, stage timings, token
// accounting and every scored candidate. A nil styles uses styles.Plain.
func Render(snap domain.TraceSnapshot, s *styles.Styles) string {
	if s == nil {
		s = styles.Plain()
	}

	var b strings.Builder

	b.WriteString(s.Title.Render("Trace "+snap.ID) + "\n")
	writeField(&b, s, "Query", snap.Query)
	writeField(&b, s, "Total", formatDuration(snap.Total))
	if snap.Error != "" {
		writeField(&b, s, "Error", s.Error.Render(snap.Error))
	}
	b.WriteString("\n")

	p := snap.Pipeline
	b.WriteString(s.Section.Render("Pipeline") + "\n")
	writeField(&b, s, "Mode", p.Mode.String())
	if p.Provider != "" {
		writeField(&b, s, "Embedding", fmt.Sprintf("%s (%s)", p.Model, p.Provider))
	}
	writeField(&b, s, "Fusion", p.FusionFormula)
	writeField(&b, s, "Top-K", fmt.Sprintf("%d", p.TopK))
	writeField(&b, s, "Min similarity", fmt.Sprintf("%.3f", p.MinSimilarity))
	b.WriteString("\n")

	if len(snap.Stages) > 0 {
		b.WriteString(s.Section.Render("Stages") + "\n")
		for _, st := range snap.Stages {
			writeField(&b, s, string(st.Stage), formatDuration(st.Duration))
		}
		b.WriteString("\n")
	}

	tk := snap.Tokens
	b.WriteString(s.Section.Render("Tokens") + "\n")
	budget := "none"
	if tk.Budget > 0 {
		budget = fmt.Sprintf("%d", tk.Budget)
	}
	writeField(&b, s, "Query", fmt.Sprintf("%d", tk.Query))
	writeField(&b, s, "Context", fmt.Sprintf("%d", tk.Context))
	writeField(&b, s, "Total", fmt.Sprintf("%d", tk.Total))
	writeField(&b, s, "Budget", budget)
	if tk.Truncated {
		writeField(&b, s, "Truncated", s.Budget.Render("yes"))
	}
	b.WriteString("\n")

	b.WriteString(s.Section.Render(fmt.Sprintf("Candidates (%d)", len(snap.Candidates))) + "\n")
	for i := range snap.Candidates {
		b.WriteString(renderCandidate(&snap.Candidates[i], s))
	}

	return b.String()
}

func renderCandidate(c *domain.ScoredChunkCandidate, s *styles.Styles) string {
	var b strings.Builder

	status := s.Excluded.Render("   ")
	switch {
	case c.Included && c.OverBudget:
		status = s.Budget.Render(fmt.Sprintf("#%d", c.Rank)) + s.Budget.Render(" over budget")
	case c.Included:
		status = s.Included.Render(fmt.Sprintf("#%d", c.Rank))
	}

	b.WriteString(fmt.Sprintf("  %s %s [%d]\n", status, s.Value.Render(c.DocumentFilename), c.Chunk.Position))

	vector := unranked
	if c.HasVector {
		vector = fmt.Sprintf("%.4f (rank %s)", c.VectorScore, rankLabel(c.VectorRank))
	}
	keyword := fmt.Sprintf("%.4f (rank %s)", c.KeywordScore, rankLabel(c.KeywordRank))

	b.WriteString(fmt.Sprintf("      %s %s  %s %s  %s %.5f\n",
		s.Label.Render("vector"), vector,
		s.Label.Render("keyword"), keyword,
		s.Label.Render("fused"), c.FusedScore))

	if len(c.MatchedTerms) > 0 {
		terms := make([]string, len(c.MatchedTerms))
		for i, t := range c.MatchedTerms {
			terms[i] = s.Term.Render(t)
		}
		b.WriteString(fmt.Sprintf("      %s %s\n", s.Label.Render("terms"), strings.Join(terms, ", ")))
	}

	b.WriteString("      " + s.Dim.Render(Preview(c.Chunk.Content, previewRunes)) + "\n")
	return b.String()
}

func writeField(b *strings.Builder, s *styles.Styles, label, value string) {
	b.WriteString("  " + s.Label.Render(lipgloss.NewStyle().Width(16).Render(label)) + value + "\n")
}

// rankLabel prints a zero-based rank as 1-based; negative means unranked.
func rankLabel(rank int) string {
	if rank < 0 {
		return unranked
	}
	return fmt.Sprintf("%d", rank+1)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(10 * time.Microsecond).String()
}

// Preview returns the first n runes of text on a single line.
func Preview(text string, n int) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= n {
		return flat
	}
	return string(runes[:n]) + "..."
}
