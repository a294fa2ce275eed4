// Package styles provides the colour palette and lipgloss styles used when
// chatrag renders to a terminal.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette.
type Theme struct {
	// Accent is used for headings and the progress bar start.
	Accent lipgloss.Color

	// AccentAlt is the progress bar end colour and secondary headings.
	AccentAlt lipgloss.Color

	// Text is the default text colour.
	Text lipgloss.Color

	// Dim is for labels and timings.
	Dim lipgloss.Color

	// Good marks included candidates and completed downloads.
	Good lipgloss.Color

	// Caution marks over-budget candidates.
	Caution lipgloss.Color

	// Bad marks errors.
	Bad lipgloss.Color

	// Highlight marks matched keyword terms.
	Highlight lipgloss.Color
}

// DefaultTheme returns the default palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.Color("#7C3AED"),
		AccentAlt: lipgloss.Color("#06B6D4"),
		Text:      lipgloss.Color("#CDD6F4"),
		Dim:       lipgloss.Color("#6C7086"),
		Good:      lipgloss.Color("#A6E3A1"),
		Caution:   lipgloss.Color("#F9E2AF"),
		Bad:       lipgloss.Color("#F38BA8"),
		Highlight: lipgloss.Color("#FAB387"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Dim      lipgloss.Style
	Included lipgloss.Style
	Budget   lipgloss.Style
	Excluded lipgloss.Style
	Term     lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Box      lipgloss.Style
}

// NewStyles creates styles from a theme. A nil theme uses DefaultTheme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		theme: theme,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Accent),

		Section: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.AccentAlt),

		Label: lipgloss.NewStyle().
			Foreground(theme.Dim),

		Value: lipgloss.NewStyle().
			Foreground(theme.Text),

		Dim: lipgloss.NewStyle().
			Foreground(theme.Dim),

		Included: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Good),

		Budget: lipgloss.NewStyle().
			Foreground(theme.Caution),

		Excluded: lipgloss.NewStyle().
			Foreground(theme.Dim),

		Term: lipgloss.NewStyle().
			Foreground(theme.Highlight),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Bad),

		Success: lipgloss.NewStyle().
			Foreground(theme.Good),

		Box: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Dim).
			Padding(0, 1),
	}
}

// DefaultStyles returns styles with the default theme.
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Plain returns styles that render text unchanged, for pipes and files.
func Plain() *Styles {
	plain := lipgloss.NewStyle()
	return &Styles{
		theme:    DefaultTheme(),
		Title:    plain,
		Section:  plain,
		Label:    plain,
		Value:    plain,
		Dim:      plain,
		Included: plain,
		Budget:   plain,
		Excluded: plain,
		Term:     plain,
		Error:    plain,
		Success:  plain,
		Box:      plain,
	}
}

// Theme returns the theme used by these styles.
func (s *Styles) Theme() *Theme {
	return s.theme
}
