package cmd

import (
	"errors"

	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// Process exit codes, following sysexits(3) where one applies.
const (
	ExitOK          = 0
	ExitUsage       = 64
	ExitSoftware    = 70
	ExitOSFile      = 72
	ExitNoPerm      = 77
	ExitInterrupted = 130
)

// reportedError marks an error the install command already showed the
// operator, so Execute does not print it twice.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

// exitCode maps a command error onto the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage *domain.UsageError
	if errors.As(err, &usage) {
		return ExitUsage
	}

	var pre *domain.PreconditionError
	if errors.As(err, &pre) {
		if pre.Kind == domain.PermissionDenied {
			return ExitNoPerm
		}
		return ExitOSFile
	}

	if errors.Is(err, domain.ErrAborted) {
		return ExitInterrupted
	}
	return ExitSoftware
}
