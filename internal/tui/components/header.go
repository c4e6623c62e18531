// Package components provides render-only building blocks for operator
// output.
package components

import (
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the run banner.
//
//	nodeprov > controller                     run 2c5e...
//	──────────────────────────────────────────────────────
func Header(width int, role string, runID string) string {
	if width < 10 {
		return ""
	}

	left := styles.Title.Foreground(styles.Blue).Render("nodeprov")
	if role != "" {
		left += styles.MutedText.Render(" > ") + styles.Title.Render(role)
	}

	right := ""
	if runID != "" {
		right = styles.Subtitle.Render("run " + runID)
	}

	leftLen := lipgloss.Width(left)
	rightLen := lipgloss.Width(right)
	innerWidth := width - 4 // padding
	gap := max(innerWidth-leftLen-rightLen, 1)

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 2).
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderBottom(true).
		BorderForeground(styles.DimGray).
		Render(left + strings.Repeat(" ", gap) + right)
}
