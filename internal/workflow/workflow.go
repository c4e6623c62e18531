// Package workflow sequences a provisioning run: preflight, input
// collection, package installation, configuration, the controller-only
// database and cloud setup, networking and service restarts. Every step
// is made of idempotent actions and the run stops at the first failure.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/runner"
	"nathanbeddoewebdev/nodeprov/internal/system"
)

// PlanCollector gathers the validated operator input.
type PlanCollector interface {
	Collect(ctx context.Context, role domain.Role) (*domain.Plan, error)
}

// AuditLog is the run's append-only audit trail.
type AuditLog interface {
	runner.Recorder
	AddSecret(secret string)
	Finalize(outcome, detail string) error
}

// Observer is told about progress as the run advances.
type Observer interface {
	StateEntered(state string, index, total int)
	ActionDone(res domain.Result)
}

// Paths locates the artifacts a run writes.
type Paths struct {
	ServiceConfig  string
	InterfacesFile string
	CredentialsDir string
}

// Options configures an Orchestrator.
type Options struct {
	Role     domain.Role
	RunID    string
	Backends system.Backends
	Collect  PlanCollector
	// Preflight verifies the host before anything is logged or changed.
	Preflight func(role domain.Role) error
	// OpenAudit opens the audit log once preflight passed.
	OpenAudit     func() (AuditLog, error)
	PackageSource string
	Paths         Paths
	Logger        *zap.Logger
	Observer      Observer
	// Wrap surrounds each mutation, see runner.Runner.
	Wrap func(action string, apply func() error) error
}

// Orchestrator drives one provisioning run. It is not reusable.
type Orchestrator struct {
	opts   Options
	state  State
	plan   *domain.Plan
	audit  AuditLog
	runner *runner.Runner
	logger *zap.Logger
}

// New returns an orchestrator in state Init.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{opts: opts, state: Init, logger: logger}
}

// State returns the current state.
func (o *Orchestrator) State() State { return o.state }

// Plan returns the collected plan, or nil before InputCollected.
func (o *Orchestrator) Plan() *domain.Plan { return o.plan }

// Run executes the workflow to completion or to its first failure. The
// audit log, once opened, is finalized on every return path. Previously
// applied actions are never rolled back.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.state != Init {
		return fmt.Errorf("workflow: run already started")
	}
	seq := Sequence(o.opts.Role)

	o.enter(SafetyChecked, seq)
	if o.opts.Preflight != nil {
		if err := o.opts.Preflight(o.opts.Role); err != nil {
			o.state = Closed
			return err
		}
	}
	audit, err := o.opts.OpenAudit()
	if err != nil {
		o.state = Closed
		return &domain.PreconditionError{Kind: domain.MissingResource, Msg: "cannot open audit log", Err: err}
	}
	o.audit = audit
	o.runner = &runner.Runner{Log: audit, Logger: o.logger, Wrap: o.opts.Wrap}
	if o.opts.Observer != nil {
		o.runner.Observe = o.opts.Observer.ActionDone
	}

	for _, st := range seq[1:] {
		if st == Closed {
			break
		}
		o.enter(st, seq)
		if err := o.step(o.stateContext(ctx), st); err != nil {
			return o.close(err)
		}
	}
	return o.close(nil)
}

func (o *Orchestrator) enter(st State, seq []State) {
	o.state = st
	o.logger.Info("entering state", zap.String("state", st.String()))
	if o.opts.Observer == nil {
		return
	}
	for i, s := range seq {
		if s == st {
			// Closed is not a step of its own.
			o.opts.Observer.StateEntered(st.String(), i+1, len(seq)-1)
			return
		}
	}
}

func (o *Orchestrator) stateContext(ctx context.Context) context.Context {
	return auditlog.WithMetadata(ctx, auditlog.Metadata{
		RunID: o.opts.RunID,
		Role:  o.opts.Role.String(),
		State: o.state.String(),
	})
}

// close moves to Closed and writes the single terminal entry.
func (o *Orchestrator) close(runErr error) error {
	failedIn := o.state
	o.state = Closed

	outcome, detail := auditlog.OutcomeCompleted, "provisioning completed"
	if runErr != nil {
		outcome, detail = auditlog.OutcomeAborted, fmt.Sprintf("%s: %v", failedIn, runErr)
		if errors.Is(runErr, domain.ErrAborted) {
			o.logger.Warn("run aborted by operator", zap.String("state", failedIn.String()))
		} else {
			o.logger.Error("run failed", zap.String("state", failedIn.String()), zap.Error(runErr))
		}
	}

	if err := o.audit.Finalize(outcome, detail); err != nil {
		if runErr != nil {
			return errors.Join(runErr, err)
		}
		return fmt.Errorf("workflow: finalize audit log: %w", err)
	}
	return runErr
}

// perform runs one action and converts a failed result to an error.
func (o *Orchestrator) perform(ctx context.Context, a runner.Action) (domain.Result, error) {
	res := o.runner.Perform(ctx, a)
	if res.Failed() {
		return res, &domain.ActionFailure{
			State:  o.state.String(),
			Action: res.Action,
			Reason: res.Reason,
			Output: res.Output,
		}
	}
	return res, nil
}

func (o *Orchestrator) performAll(ctx context.Context, actions ...runner.Action) error {
	for _, a := range actions {
		if _, err := o.perform(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
