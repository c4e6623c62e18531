package tui

import (
	"context"
	"os"
	"sync"

	"github.com/charmbracelet/huh/spinner"
)

// Spinner shows progress while long actions run. It never interrupts the
// action: an operator keypress only stops the animation.
type Spinner struct {
	Accessible bool
}

// Around runs apply on the calling goroutine's behalf with a spinner
// titled after the action. It always waits for apply to finish.
func (s *Spinner) Around(action string, apply func() error) error {
	var (
		once     sync.Once
		applyErr error
	)
	run := func() { once.Do(func() { applyErr = apply() }) }

	_ = spinner.New().
		Title(action + "...").
		Accessible(s.Accessible).
		Output(os.Stderr).
		ActionWithErr(func(context.Context) error {
			run()
			return nil
		}).
		Run()

	// Blocks until an in-flight apply completes, or runs it if the
	// spinner returned before starting it.
	run()
	return applyErr
}
