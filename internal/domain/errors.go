package domain

import (
	"errors"
	"fmt"
)

// ErrAborted is returned when the operator interrupts an interactive
// prompt. It is terminal and treated like an unrecoverable failure.
var ErrAborted = errors.New("provisioning aborted by operator")

// UsageError reports a bad command-line invocation, or an answers file
// that cannot complete the plan in non-interactive mode.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

// Usagef builds a UsageError from a format string.
func Usagef(format string, args ...any) *UsageError {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// PreconditionKind distinguishes host precondition failures.
type PreconditionKind int

const (
	// PermissionDenied means the process lacks elevated privilege.
	PermissionDenied PreconditionKind = iota + 1
	// MissingResource means the host platform or a required OS resource
	// (release file, tool, log location) is unavailable.
	MissingResource
)

// PreconditionError reports a host that cannot be provisioned at all.
type PreconditionError struct {
	Kind PreconditionKind
	Msg  string
	Err  error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// ActionFailure reports an external tool failure that aborted the run.
type ActionFailure struct {
	State  string
	Action string
	Reason string
	Output string
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("%s: %s failed: %s", e.State, e.Action, e.Reason)
}
