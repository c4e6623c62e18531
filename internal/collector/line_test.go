package collector

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

func TestLinePrompter_Ask(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("10.0.0.1\r\n\nlast"), &out)
	ctx := context.Background()

	got, err := p.Ask(ctx, Prompt{Title: "Controller address", Default: "10.0.0.2"})
	if err != nil || got != "10.0.0.1" {
		t.Fatalf("Ask = (%q, %v)", got, err)
	}
	got, err = p.Ask(ctx, Prompt{Title: "Broker address", Error: "bad input"})
	if err != nil || got != "" {
		t.Fatalf("Ask = (%q, %v)", got, err)
	}
	got, err = p.AskSecret(ctx, Prompt{Title: "Password", Default: "ignored"})
	if err != nil || got != "last" {
		t.Fatalf("AskSecret = (%q, %v)", got, err)
	}
	if _, err := p.Ask(ctx, Prompt{Title: "More"}); !errors.Is(err, domain.ErrAborted) {
		t.Fatalf("expected ErrAborted at EOF, got %v", err)
	}

	text := out.String()
	for _, want := range []string{"Controller address [10.0.0.2]: ", "  bad input\nBroker address: ", "Password: "} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "ignored") {
		t.Error("secret prompts must not show a default")
	}
}

func TestLinePrompter_CancelWhileBlocked(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()
	p := NewLinePrompter(r, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := p.Ask(ctx, Prompt{Title: "Address"})
		done <- err
	}()
	cancel()

	if err := <-done; !errors.Is(err, domain.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}
