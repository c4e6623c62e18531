package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"nathanbeddoewebdev/nodeprov/internal/answers"
	"nathanbeddoewebdev/nodeprov/internal/auditlog"
	"nathanbeddoewebdev/nodeprov/internal/collector"
	"nathanbeddoewebdev/nodeprov/internal/config"
	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/hostnet"
	"nathanbeddoewebdev/nodeprov/internal/preflight"
	"nathanbeddoewebdev/nodeprov/internal/system"
	"nathanbeddoewebdev/nodeprov/internal/tui"
	"nathanbeddoewebdev/nodeprov/internal/util"
	"nathanbeddoewebdev/nodeprov/internal/workflow"
)

type installOptions struct {
	role           string
	answersFile    string
	nonInteractive bool
	verbosity      int
}

// parse validates the invocation before anything touches the host. In
// non-interactive mode the answers must already complete the plan, with
// host supplying the detected defaults.
func (o *installOptions) parse(host hostnet.Defaults) (domain.Role, *answers.Answers, error) {
	name := util.NormalizeKey(o.role)
	if !util.IsSupportedRole(name) {
		return "", nil, domain.Usagef("unsupported role %q (valid: %s, %s)", o.role, domain.RoleController, domain.RoleWorker)
	}
	role, err := domain.ParseRole(name)
	if err != nil {
		return "", nil, &domain.UsageError{Msg: err.Error()}
	}

	var ans *answers.Answers
	if o.answersFile != "" {
		ans, err = answers.Load(o.answersFile)
		if err != nil {
			return "", nil, domain.Usagef("answers file: %v", err)
		}
	}

	check := &collector.Collector{Answers: ans, Host: host, NonInteractive: o.nonInteractive}
	if err := check.Check(role); err != nil {
		return "", nil, err
	}
	return role, ans, nil
}

func runInstall(cmd *cobra.Command, opts *installOptions) error {
	host := hostnet.Detect()
	role, ans, err := opts.parse(host)
	if err != nil {
		return err
	}

	stored, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := stored.Resolved()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(opts.verbosity)
	defer func() { _ = logger.Sync() }()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	fancy := interactive && term.IsTerminal(int(os.Stderr.Fd())) && os.Getenv("ACCESSIBLE") == ""
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID), zap.String("role", role.String()))

	var prompter collector.Prompter
	if fancy {
		prompter = tui.NewFormPrompter()
	} else {
		prompter = collector.NewLinePrompter(os.Stdin, os.Stderr)
	}

	reporter := &tui.Reporter{Out: cmd.ErrOrStderr(), Width: terminalWidth()}
	var logPath string

	exec := system.NewOSExecutor()
	orch := workflow.New(workflow.Options{
		Role:     role,
		RunID:    runID,
		Backends: newBackends(exec, cfg),
		Collect: &collector.Collector{
			Prompter:       prompter,
			Answers:        ans,
			Host:           host,
			NonInteractive: opts.nonInteractive,
			Logger:         logger,
		},
		Preflight: (&preflight.Checker{}).Run,
		OpenAudit: func() (workflow.AuditLog, error) {
			l, err := openAudit(cfg, runID, role, logger)
			if err != nil {
				return nil, err
			}
			logPath = l.Path()
			return l, nil
		},
		PackageSource: cfg.PackageSource,
		Paths: workflow.Paths{
			ServiceConfig:  cfg.ServiceConfig,
			InterfacesFile: cfg.InterfacesFile,
			CredentialsDir: cfg.CredentialsDir,
		},
		Logger:   logger,
		Observer: reporter,
		Wrap:     spinnerWrap(fancy),
	})

	reporter.Start(role, runID)
	err = orch.Run(ctx)
	reporter.Finished(err, logPath)
	if err != nil {
		return &reportedError{err: err}
	}
	return nil
}

func newBackends(exec system.Executor, cfg config.Config) system.Backends {
	return system.Backends{
		Packages: system.NewApt(exec, ""),
		Services: system.NewSysV(exec),
		Database: system.NewMySQL(exec, ""),
		Cloud:    system.NewNovaManage(exec, cfg.CredentialsDir),
		Firewall: system.NewIptables(exec),
		Network:  system.NewNetworking(exec),
		Host:     system.NewLocalHost(exec),
	}
}

// openAudit opens the log file and, best effort, the history database.
func openAudit(cfg config.Config, runID string, role domain.Role, logger *zap.Logger) (*auditlog.Log, error) {
	var repo auditlog.Repository
	if r, err := auditlog.OpenAt(cfg.HistoryDB); err != nil {
		logger.Warn("audit history unavailable", zap.String("path", cfg.HistoryDB), zap.Error(err))
	} else {
		repo = r
	}

	l, err := auditlog.OpenLog(cfg.LogFile, auditlog.Options{RunID: runID, Role: role.String(), Repo: repo})
	if err != nil {
		if repo != nil {
			_ = repo.Close()
		}
		return nil, err
	}
	return l, nil
}

func spinnerWrap(enabled bool) func(string, func() error) error {
	if !enabled {
		return nil
	}
	s := &tui.Spinner{}
	return s.Around
}

// newLogger returns the operational logger. Progress is shown by the
// reporter, so only warnings reach stderr unless verbosity is raised.
func newLogger(verbosity int) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbosity == 1:
		level = zapcore.InfoLevel
	case verbosity >= 2:
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || w <= 0 {
		return 72
	}
	return min(w, 100)
}
