package styles

import "github.com/charmbracelet/lipgloss"

// --- Typography ---

var (
	// Title is used for step headings.
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(White)

	// Subtitle is used for secondary headings.
	Subtitle = lipgloss.NewStyle().
			Foreground(Gray)

	// MutedText is for hints and less important info.
	MutedText = lipgloss.NewStyle().
			Foreground(Muted)

	// AccentText is for highlighted names.
	AccentText = lipgloss.NewStyle().
			Foreground(Blue)

	ErrorText = lipgloss.NewStyle().
			Foreground(Red).
			Bold(true)

	SuccessText = lipgloss.NewStyle().
			Foreground(Green).
			Bold(true)

	WarningText = lipgloss.NewStyle().
			Foreground(Yellow).
			Bold(true)
)

// --- Outcome badges ---

// OutcomeStyle returns the style for an action or run outcome.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "applied", "completed":
		return lipgloss.NewStyle().Foreground(Green).Bold(true)
	case "skipped":
		return lipgloss.NewStyle().Foreground(Gray)
	case "aborted":
		return lipgloss.NewStyle().Foreground(Yellow).Bold(true)
	case "failed":
		return lipgloss.NewStyle().Foreground(Red).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(Gray)
	}
}

// OutcomeIndicator returns a small glyph + outcome text in the outcome's
// colour.
func OutcomeIndicator(outcome string) string {
	style := OutcomeStyle(outcome)
	glyph := "●"
	switch outcome {
	case "skipped":
		glyph = "○"
	case "failed", "aborted":
		glyph = "✗"
	}
	return style.Render(glyph) + " " + style.Render(outcome)
}

// --- Table styles ---

var (
	// TableHeader is the style for table header cells.
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Gray).
			Padding(0, 1)

	// TableCell is the style for table data cells.
	TableCell = lipgloss.NewStyle().
			Foreground(White).
			Padding(0, 1)
)
