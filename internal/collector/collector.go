// Package collector gathers and validates the operator input that makes
// up a provisioning plan.
package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"nathanbeddoewebdev/nodeprov/internal/answers"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/hostnet"
)

// Messages shown when the credential entries are rejected.
const (
	MsgPasswordEmpty    = "password cannot be empty"
	MsgPasswordMismatch = "passwords do not match"
)

// Prompt is one request for operator input.
type Prompt struct {
	Key     string
	Title   string
	Default string
	// Error is the corrective message for the previous attempt, if any.
	Error string
}

// Prompter reads operator input. Both methods return domain.ErrAborted
// when the operator cancels.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (string, error)
	AskSecret(ctx context.Context, p Prompt) (string, error)
}

// Collector builds a domain.Plan field by field.
type Collector struct {
	Prompter Prompter
	// Answers preseeds fields. Invalid answers fall back to prompting.
	Answers *answers.Answers
	// Host supplies detected defaults for the network fields.
	Host hostnet.Defaults
	// NonInteractive forbids prompting: every field must be answered or
	// have a default.
	NonInteractive bool
	Logger         *zap.Logger
}

// Collect prompts for every field role needs and returns the completed
// plan. It only returns early when the operator cancels.
func (c *Collector) Collect(ctx context.Context, role domain.Role) (*domain.Plan, error) {
	plan := &domain.Plan{}
	for _, f := range Fields(role) {
		if err := c.collect(ctx, f, plan); err != nil {
			return nil, err
		}
	}
	if err := c.collectSecret(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// Check reports whether, without prompting, the answers and defaults
// complete a plan for role. It only applies in non-interactive mode and
// returns the same usage error Collect would.
func (c *Collector) Check(role domain.Role) error {
	if !c.NonInteractive {
		return nil
	}
	_, err := c.Collect(context.Background(), role)
	return err
}

func (c *Collector) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Collector) collect(ctx context.Context, f Field, plan *domain.Plan) error {
	def := f.defaultValue(c.Host, plan)

	if v, ok := c.Answers.Lookup(f.Key); ok {
		err := f.accept(plan, strings.TrimSpace(v))
		if err == nil {
			return nil
		}
		if c.NonInteractive {
			return domain.Usagef("answers: %s: %v", f.Key, err)
		}
		c.logger().Warn("ignoring preseeded answer", zap.String("field", f.Key), zap.String("reason", err.Error()))
	}

	if c.NonInteractive {
		if def == "" {
			return domain.Usagef("answers: %s is required in non-interactive mode", f.Key)
		}
		if err := f.accept(plan, def); err != nil {
			return domain.Usagef("answers: %s: default %v", f.Key, err)
		}
		return nil
	}

	p := Prompt{Key: f.Key, Title: f.Title, Default: def}
	for {
		in, err := c.Prompter.Ask(ctx, p)
		if err != nil {
			return abortErr(f.Key, err)
		}
		in = strings.TrimSpace(in)
		if in == "" {
			in = def
		}
		if err := f.accept(plan, in); err != nil {
			c.logger().Debug("rejected input", zap.String("field", f.Key), zap.String("reason", err.Error()))
			p.Error = err.Error()
			continue
		}
		return nil
	}
}

func (c *Collector) collectSecret(ctx context.Context, plan *domain.Plan) error {
	if v, ok := c.Answers.Lookup(SecretKey); ok {
		if v != "" {
			plan.DBPassword = domain.NewSecret(v)
			return nil
		}
		if c.NonInteractive {
			return domain.Usagef("answers: %s: %s", SecretKey, MsgPasswordEmpty)
		}
		c.logger().Warn("ignoring preseeded answer", zap.String("field", SecretKey), zap.String("reason", MsgPasswordEmpty))
	}
	if c.NonInteractive {
		return domain.Usagef("answers: %s is required in non-interactive mode", SecretKey)
	}

	var msg string
	for {
		first, err := c.Prompter.AskSecret(ctx, Prompt{Key: SecretKey, Title: "Database root password", Error: msg})
		if err != nil {
			return abortErr(SecretKey, err)
		}
		if first == "" {
			msg = MsgPasswordEmpty
			continue
		}
		second, err := c.Prompter.AskSecret(ctx, Prompt{Key: SecretKey + "_confirm", Title: "Confirm database root password"})
		if err != nil {
			return abortErr(SecretKey, err)
		}
		if first != second {
			msg = MsgPasswordMismatch
			continue
		}
		plan.DBPassword = domain.NewSecret(first)
		return nil
	}
}

// abortErr maps prompt cancellation (interrupt, closed input, cancelled
// context) to domain.ErrAborted.
func abortErr(key string, err error) error {
	switch {
	case errors.Is(err, domain.ErrAborted),
		errors.Is(err, io.EOF),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return domain.ErrAborted
	}
	return fmt.Errorf("collector: read %s: %w", key, err)
}
