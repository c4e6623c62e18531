package domain

import "time"

// Outcome classifies the result of a single idempotent action.
type Outcome string

const (
	// OutcomeSkipped means the target was already in the desired state.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeApplied means the mutation ran and succeeded.
	OutcomeApplied Outcome = "applied"
	// OutcomeFailed means the check or the mutation failed.
	OutcomeFailed Outcome = "failed"
)

// Result is what the action runner reports for one invocation.
type Result struct {
	Action   string
	Outcome  Outcome
	Reason   string
	Output   string
	Duration time.Duration
}

// Failed reports whether the action failed.
func (r Result) Failed() bool { return r.Outcome == OutcomeFailed }
