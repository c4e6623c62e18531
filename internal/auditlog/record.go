package auditlog

import "time"

const (
	OutcomeSkipped   = "skipped"
	OutcomeApplied   = "applied"
	OutcomeFailed    = "failed"
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

// ActionFinalize is the action name of the terminal entry written once
// per run.
const ActionFinalize = "finalize"

// AuditEntry represents one privileged action or terminal outcome.
type AuditEntry struct {
	ID         int64     `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	Role       string    `json:"role,omitempty"`
	State      string    `json:"state,omitempty"`
	Action     string    `json:"action"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// IsFinalization reports whether e is a run's terminal entry.
func (e AuditEntry) IsFinalization() bool { return e.Action == ActionFinalize }
