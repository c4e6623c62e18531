// Package system wraps the host tools the provisioning workflow drives:
// the package manager, service supervisor, database engine, cloud
// management commands, firewall, network bridge and local host state.
//
// Every backend is reached through an Executor so tests can substitute
// a scripted fake. Commands are run synchronously and are never
// cancelled once started.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
)

// Command describes one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the process environment.
	Env []string
	// Stdin, when non-empty, is fed to the process.
	Stdin string
}

// String renders the command line as it would be typed.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// redacted renders the command line with sensitive flag values masked,
// for errors that end up in the audit log.
func (c Command) redacted() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(auditlog.SanitizeArgs(c.Args), " ")
}

// Executor runs external commands and returns their combined output.
type Executor interface {
	Run(ctx context.Context, c Command) ([]byte, error)
}

// CommandError is returned when a command exits non-zero or cannot start.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Diagnostic returns the raw tool output captured for the audit log.
func (e *CommandError) Diagnostic() string { return e.Output }

// ExitCode returns the exit status carried by err, or -1 when err is not
// a CommandError for a process that ran to completion.
func ExitCode(err error) int {
	var cerr *CommandError
	if errors.As(err, &cerr) && cerr.ExitCode > 0 {
		return cerr.ExitCode
	}
	return -1
}

// OSExecutor runs commands on the local host.
type OSExecutor struct {
	// Env is appended to every command's environment.
	Env []string
}

// NewOSExecutor returns an executor that runs package tooling
// non-interactively.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{Env: []string{"DEBIAN_FRONTEND=noninteractive"}}
}

// Run executes c and blocks until it exits. The context is not attached
// to the process; a started mutation runs to completion.
func (x *OSExecutor) Run(_ context.Context, c Command) ([]byte, error) {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Env = append(append(os.Environ(), x.Env...), c.Env...)
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	detach(cmd)

	err := cmd.Run()
	if err == nil {
		return out.Bytes(), nil
	}

	cerr := &CommandError{Command: c.redacted(), Output: out.String(), Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return out.Bytes(), cerr
}
