package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/nodeprov/internal/domain"
	"nathanbeddoewebdev/nodeprov/internal/hostnet"
)

var testHost = hostnet.Defaults{
	Address:    "192.168.1.20",
	Broadcast:  "192.168.1.255",
	Netmask:    "255.255.255.0",
	Gateway:    "192.168.1.1",
	Nameserver: "192.168.1.2",
}

func writeAnswers(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRoot_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "unsupported role", args: []string{"--role", "storage"}},
		{name: "unknown flag", args: []string{"--colour"}},
		{name: "positional argument", args: []string{"controller"}},
		{name: "missing answers file", args: []string{"--answers", filepath.Join(os.TempDir(), "nodeprov-does-not-exist.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execRoot(t, tt.args...)
			if code := exitCode(err); code != ExitUsage {
				t.Fatalf("exit code = %d (err %v), want %d", code, err, ExitUsage)
			}
		})
	}
}

func TestRoot_Version(t *testing.T) {
	out, err := execRoot(t, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output %q missing %q", out, Version)
	}
}

func TestRoot_HelpListsSubcommands(t *testing.T) {
	out, err := execRoot(t, "--help")
	if err != nil {
		t.Fatalf("--help failed: %v", err)
	}
	for _, want := range []string{"--role", "--answers", "--non-interactive", "audit", "config"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestInstallOptions_Parse(t *testing.T) {
	path := writeAnswers(t, "controller_addr: 10.0.0.1\n")

	opts := &installOptions{role: " Worker ", answersFile: path}
	role, ans, err := opts.parse(testHost)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if role != domain.RoleWorker {
		t.Errorf("role = %q, want worker", role)
	}
	if v, ok := ans.Lookup("controller_addr"); !ok || v != "10.0.0.1" {
		t.Errorf("answer = %q, %v", v, ok)
	}
}

func TestInstallOptions_ParseInvalidAnswers(t *testing.T) {
	path := writeAnswers(t, "- not\n- a mapping\n")

	_, _, err := (&installOptions{role: "controller", answersFile: path}).parse(testHost)
	var usage *domain.UsageError
	if !errors.As(err, &usage) {
		t.Fatalf("expected UsageError, got %v", err)
	}
}

func TestInstallOptions_ParseNonInteractive(t *testing.T) {
	tests := []struct {
		name    string
		answers string
		wantErr string
	}{
		{name: "complete", answers: "controller_addr: 10.0.0.1\ndb_password: s3cret\n"},
		{name: "missing controller", answers: "db_password: s3cret\n", wantErr: "controller_addr is required"},
		{name: "invalid address", answers: "controller_addr: 10.0.0\ndb_password: s3cret\n", wantErr: "controller_addr"},
		{name: "missing password", answers: "controller_addr: 10.0.0.1\n", wantErr: "db_password is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &installOptions{role: "worker", answersFile: writeAnswers(t, tt.answers), nonInteractive: true}
			_, _, err := opts.parse(testHost)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("parse: %v", err)
				}
				return
			}
			var usage *domain.UsageError
			if !errors.As(err, &usage) || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected usage error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestInstallOptions_InteractiveSkipsAnswerCheck(t *testing.T) {
	opts := &installOptions{role: "worker", answersFile: writeAnswers(t, "controller_addr: bogus\n")}
	if _, _, err := opts.parse(testHost); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: ExitOK},
		{name: "usage", err: domain.Usagef("bad flag"), want: ExitUsage},
		{name: "not root", err: &domain.PreconditionError{Kind: domain.PermissionDenied, Msg: "must be run as root"}, want: ExitNoPerm},
		{name: "missing tool", err: &domain.PreconditionError{Kind: domain.MissingResource, Msg: "missing apt-get"}, want: ExitOSFile},
		{name: "interrupted", err: domain.ErrAborted, want: ExitInterrupted},
		{name: "action failure", err: &domain.ActionFailure{State: "PackagesInstalled", Action: "install package nova-compute", Reason: "exit status 100"}, want: ExitSoftware},
		{name: "other", err: errors.New("boom"), want: ExitSoftware},
		{name: "reported wraps", err: &reportedError{err: fmt.Errorf("run: %w", domain.ErrAborted)}, want: ExitInterrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
