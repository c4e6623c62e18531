package tui

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/huh"

	"nathanbeddoewebdev/nodeprov/internal/collector"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/tui/styles"
)

// FormPrompter asks each question with a single-field huh form.
type FormPrompter struct {
	Accessible bool
}

// NewFormPrompter returns a prompter honouring the ACCESSIBLE environment
// variable.
func NewFormPrompter() *FormPrompter {
	return &FormPrompter{Accessible: os.Getenv("ACCESSIBLE") != ""}
}

// Ask implements collector.Prompter.
func (f *FormPrompter) Ask(ctx context.Context, p collector.Prompt) (string, error) {
	return f.run(ctx, p, huh.EchoModeNormal)
}

// AskSecret implements collector.Prompter.
func (f *FormPrompter) AskSecret(ctx context.Context, p collector.Prompt) (string, error) {
	p.Default = ""
	return f.run(ctx, p, huh.EchoModePassword)
}

func (f *FormPrompter) run(ctx context.Context, p collector.Prompt, mode huh.EchoMode) (string, error) {
	var value string
	input := huh.NewInput().
		Title(p.Title).
		Description(describe(p)).
		Placeholder(p.Default).
		EchoMode(mode).
		Value(&value)

	form := huh.NewForm(huh.NewGroup(input)).
		WithAccessible(f.Accessible).
		WithOutput(os.Stderr)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return "", domain.ErrAborted
		}
		return "", err
	}
	return value, nil
}

func describe(p collector.Prompt) string {
	switch {
	case p.Error != "":
		return styles.ErrorText.Render(p.Error)
	case p.Default != "":
		return styles.MutedText.Render("Press enter for " + p.Default)
	}
	return ""
}
