// Package runner executes idempotent host actions: each action is checked
// against current host state and only applied when not yet satisfied.
package runner

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/domain"
)

// Action is one check-then-act unit of provisioning work.
type Action interface {
	Name() string
	// Satisfied reports whether the host is already in the desired state.
	Satisfied(ctx context.Context) (bool, error)
	// Apply performs the mutation.
	Apply(ctx context.Context) error
}

// Func builds an Action from closures. A nil Check is never satisfied.
type Func struct {
	Label string
	Check func(ctx context.Context) (bool, error)
	Do    func(ctx context.Context) error
}

func (f Func) Name() string { return f.Label }

func (f Func) Satisfied(ctx context.Context) (bool, error) {
	if f.Check == nil {
		return false, nil
	}
	return f.Check(ctx)
}

func (f Func) Apply(ctx context.Context) error { return f.Do(ctx) }

// Recorder receives one audit entry per action.
type Recorder interface {
	Record(entry auditlog.AuditEntry)
}

// Runner performs actions and records their outcome.
type Runner struct {
	Log    Recorder
	Logger *zap.Logger
	// Wrap, when set, surrounds every mutation (e.g. with a spinner). It
	// must call apply exactly once and return its error.
	Wrap func(action string, apply func() error) error
	// Observe, when set, is told every result.
	Observe func(domain.Result)

	now func() time.Time
}

// diagnostic is implemented by errors that carry raw tool output.
type diagnostic interface {
	Diagnostic() string
}

// Perform checks a and applies it when needed. A failing check counts as
// a failure and no mutation is attempted. Exactly one audit entry is
// recorded per call. The workflow state is read from the context's audit
// metadata.
func (r *Runner) Perform(ctx context.Context, a Action) domain.Result {
	start := r.clock()
	res := domain.Result{Action: a.Name()}

	ok, err := a.Satisfied(ctx)
	switch {
	case err != nil:
		res.Outcome = domain.OutcomeFailed
		res.Reason, res.Output = describe(err)
	case ok:
		res.Outcome = domain.OutcomeSkipped
	default:
		if err := r.apply(ctx, a); err != nil {
			res.Outcome = domain.OutcomeFailed
			res.Reason, res.Output = describe(err)
		} else {
			res.Outcome = domain.OutcomeApplied
		}
	}
	res.Duration = r.clock().Sub(start)

	r.record(ctx, res)
	return res
}

// Fail records name as failed with err without running anything, for
// work that could not be turned into an action.
func (r *Runner) Fail(ctx context.Context, name string, err error) domain.Result {
	res := domain.Result{Action: name, Outcome: domain.OutcomeFailed}
	res.Reason, res.Output = describe(err)
	r.record(ctx, res)
	return res
}

func (r *Runner) apply(ctx context.Context, a Action) error {
	if r.Wrap == nil {
		return a.Apply(ctx)
	}
	return r.Wrap(a.Name(), func() error { return a.Apply(ctx) })
}

func (r *Runner) record(ctx context.Context, res domain.Result) {
	meta := auditlog.MetadataFromContext(ctx)

	if r.Logger != nil {
		fields := []zap.Field{
			zap.String("state", meta.State),
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("took", res.Duration),
		}
		if res.Failed() {
			r.Logger.Error(res.Action, append(fields, zap.String("reason", res.Reason))...)
		} else {
			r.Logger.Debug(res.Action, fields...)
		}
	}

	if r.Log != nil {
		detail := res.Output
		if res.Failed() && detail == "" {
			detail = res.Reason
		}
		r.Log.Record(auditlog.AuditEntry{
			RunID:      meta.RunID,
			Role:       meta.Role,
			State:      meta.State,
			Action:     res.Action,
			Outcome:    string(res.Outcome),
			Detail:     detail,
			DurationMs: res.Duration.Milliseconds(),
		})
	}

	if r.Observe != nil {
		r.Observe(res)
	}
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func describe(err error) (reason, output string) {
	var d diagnostic
	if errors.As(err, &d) {
		output = d.Diagnostic()
	}
	return err.Error(), output
}
