package auditlog

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is where the append-only provisioning log lives.
const DefaultLogFile = "/var/log/nodeprov/install.log"

// Options configures a Log.
type Options struct {
	RunID string
	Role  string
	// Repo, when non-nil, receives a copy of every entry. Failures to
	// save are ignored; the log file is authoritative.
	Repo Repository
}

// Log is the process-wide audit trail of one provisioning run. Entries
// are appended to the log file and flushed as they are recorded. The
// run's segment is sanitized when the log is finalized.
type Log struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	start   int64
	logger  *zap.Logger
	opts    Options
	secrets []string
	entries []AuditEntry
	closed  bool
	err     error

	once sync.Once
}

// OpenLog opens (creating if absent) the log file at path for appending.
func OpenLog(path string, opts Options) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("auditlog: create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("auditlog: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("auditlog: stat %s: %w", path, err)
	}

	return &Log{
		path:   path,
		file:   f,
		start:  info.Size(),
		logger: zap.New(newFileCore(f)),
		opts:   opts,
	}, nil
}

func newFileCore(w io.Writer) zapcore.Core {
	cfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.MillisDurationEncoder,
		ConsoleSeparator: " ",
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(w), zap.InfoLevel)
}

// Path returns the log file location.
func (l *Log) Path() string { return l.path }

// RunID returns the identifier stamped on every entry.
func (l *Log) RunID() string { return l.opts.RunID }

// AddSecret registers a value that must never survive into the log.
func (l *Log) AddSecret(secret string) {
	if secret == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.secrets = append(l.secrets, secret)
}

// Record appends one entry. Entries recorded after Finalize are dropped.
func (l *Log) Record(entry AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(entry)
}

func (l *Log) record(entry AuditEntry) {
	if l.closed {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.RunID == "" {
		entry.RunID = l.opts.RunID
	}
	if entry.Role == "" {
		entry.Role = l.opts.Role
	}
	// Redact before anything leaves the process; the file is sanitized
	// again on finalization.
	entry.Detail = Redact(entry.Detail, l.secrets)
	entry.Action = Redact(entry.Action, l.secrets)

	fields := []zap.Field{
		zap.String("run", entry.RunID),
		zap.String("state", entry.State),
		zap.String("outcome", entry.Outcome),
		zap.Int64("duration_ms", entry.DurationMs),
	}
	switch entry.Outcome {
	case OutcomeFailed, OutcomeAborted:
		l.logger.Error(entry.Action, fields...)
	default:
		l.logger.Info(entry.Action, fields...)
	}
	if entry.Detail != "" {
		l.writeRaw(indent(entry.Detail))
	}
	if err := l.logger.Sync(); err != nil && l.err == nil {
		l.err = fmt.Errorf("auditlog: sync %s: %w", l.path, err)
	}

	if l.opts.Repo != nil {
		saved := entry
		_ = l.opts.Repo.Save(&saved)
		entry.ID = saved.ID
	}
	l.entries = append(l.entries, entry)
}

func (l *Log) writeRaw(s string) {
	if _, err := io.WriteString(l.file, s); err != nil && l.err == nil {
		l.err = fmt.Errorf("auditlog: write %s: %w", l.path, err)
	}
}

// Entries returns a copy of everything recorded in this run.
func (l *Log) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

// Finalize writes the terminal entry, closes the file and sanitizes the
// segment written by this run. Only the first call has any effect; later
// calls return the first call's result.
func (l *Log) Finalize(outcome, detail string) error {
	l.once.Do(func() {
		l.mu.Lock()
		defer l.mu.Unlock()

		l.record(AuditEntry{Action: ActionFinalize, Outcome: outcome, Detail: detail})
		l.closed = true

		if err := l.file.Close(); err != nil && l.err == nil {
			l.err = fmt.Errorf("auditlog: close %s: %w", l.path, err)
		}
		if err := sanitizeSegment(l.path, l.start, l.secrets); err != nil && l.err == nil {
			l.err = err
		}
		if l.opts.Repo != nil {
			_ = l.opts.Repo.Close()
		}
	})

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func sanitizeSegment(path string, start int64, secrets []string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("auditlog: reopen %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return fmt.Errorf("auditlog: seek %s: %w", path, err)
	}
	raw, err := io.ReadAll(f)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("auditlog: read %s: %w", path, err)
	}

	clean := SanitizeText(string(raw), secrets)
	if err := f.Truncate(start); err != nil {
		return fmt.Errorf("auditlog: truncate %s: %w", path, err)
	}
	if _, err := f.WriteAt([]byte(clean), start); err != nil {
		return fmt.Errorf("auditlog: rewrite %s: %w", path, err)
	}
	return f.Sync()
}

func indent(detail string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
