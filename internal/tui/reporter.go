package tui

import (
	"errors"
	"fmt"
	"io"
	"time"

	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/tui/components"
	"nathanbeddoewebdev/nodeprov/internal/tui/styles"
)

// Reporter prints workflow progress for the operator.
type Reporter struct {
	Out   io.Writer
	Width int
}

// Start prints the run banner.
func (r *Reporter) Start(role domain.Role, runID string) {
	fmt.Fprintln(r.Out, components.Header(r.width(), role.String(), runID))
}

// StateEntered prints a step heading.
func (r *Reporter) StateEntered(state string, index, total int) {
	fmt.Fprintf(r.Out, "%s %s\n",
		styles.MutedText.Render(fmt.Sprintf("[%d/%d]", index, total)),
		styles.Title.Render(state))
}

// ActionDone prints one action outcome.
func (r *Reporter) ActionDone(res domain.Result) {
	line := fmt.Sprintf("  %s %s", styles.OutcomeIndicator(string(res.Outcome)), res.Action)
	if res.Outcome == domain.OutcomeApplied && res.Duration >= time.Second {
		line += styles.MutedText.Render(fmt.Sprintf(" (%s)", res.Duration.Round(time.Second)))
	}
	fmt.Fprintln(r.Out, line)
	if res.Failed() && res.Reason != "" {
		fmt.Fprintln(r.Out, "    "+styles.ErrorText.Render(res.Reason))
	}
}

// Finished prints the closing status line.
func (r *Reporter) Finished(err error, logPath string) {
	switch {
	case err == nil:
		fmt.Fprintln(r.Out, styles.SuccessText.Render("Provisioning complete."))
	case errors.Is(err, domain.ErrAborted):
		fmt.Fprintln(r.Out, styles.WarningText.Render("Provisioning interrupted.")+" Completed actions were kept; run again to resume.")
	default:
		fmt.Fprintln(r.Out, styles.ErrorText.Render("Provisioning stopped: ")+err.Error())
	}
	if logPath != "" {
		fmt.Fprintln(r.Out, styles.MutedText.Render("Log: "+logPath))
	}
}

func (r *Reporter) width() int {
	if r.Width <= 0 {
		return 72
	}
	return r.Width
}
