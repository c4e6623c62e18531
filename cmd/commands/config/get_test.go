package config

import (
	"strings"
	"testing"

	"nathanbeddoewebdev/nodeprov/internal/config"
)

func TestGet_LogFile_NotSet(t *testing.T) {
	setupTestConfig(t)

	stdout, stderr := execConfig(t, "get", "log-file")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	want := config.DefaultLogFile + " (default)"
	if strings.TrimSpace(stdout) != want {
		t.Errorf("expected %q, got: %s", want, stdout)
	}
}

func TestGet_LogFile_Set(t *testing.T) {
	path := setupTestConfig(t)

	cfg := &config.Config{LogFile: "/srv/logs/install.log"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	stdout, stderr := execConfig(t, "get", "Log-File")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if strings.TrimSpace(stdout) != "/srv/logs/install.log" {
		t.Errorf("expected stored value, got: %s", stdout)
	}
}

func TestGet_All(t *testing.T) {
	path := setupTestConfig(t)

	cfg := &config.Config{PackageSource: "ppa:nova-core/release"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	stdout, _ := execConfig(t, "get")

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != len(config.Keys) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(config.Keys), len(lines), stdout)
	}
	if !strings.Contains(stdout, "package-source: ppa:nova-core/release\n") {
		t.Errorf("missing stored value:\n%s", stdout)
	}
	if !strings.Contains(stdout, "history-db: "+config.DefaultHistoryDB+" (default)") {
		t.Errorf("missing default value:\n%s", stdout)
	}
}

func TestGet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "get", "bogus-key")

	if !strings.Contains(stderr, "unknown configuration key") {
		t.Errorf("expected 'unknown configuration key' error, got: %s", stderr)
	}
}
