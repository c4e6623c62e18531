package config

import (
	"strings"
	"testing"

	"nathanbeddoewebdev/nodeprov/internal/config"
)

func TestSet_CredentialsDir(t *testing.T) {
	setupTestConfig(t)

	stdout, stderr := execConfig(t, "set", "credentials-dir", "/srv/creds")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, `"/srv/creds"`) {
		t.Errorf("expected confirmation with the value, got: %s", stdout)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.CredentialsDir != "/srv/creds" {
		t.Errorf("expected CredentialsDir %q, got %q", "/srv/creds", cfg.CredentialsDir)
	}
}

func TestSet_KeepsValueCase(t *testing.T) {
	setupTestConfig(t)

	execConfig(t, "set", "package-source", "ppa:Nova-Core/Trunk")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.PackageSource != "ppa:Nova-Core/Trunk" {
		t.Errorf("expected value stored verbatim, got %q", cfg.PackageSource)
	}
}

func TestSet_RelativePathRejected(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "log-file", "logs/install.log")

	if !strings.Contains(stderr, "not an absolute path") {
		t.Errorf("expected absolute path error, got: %s", stderr)
	}
	cfg, _ := config.Load()
	if cfg.LogFile != "" {
		t.Errorf("rejected value was saved: %q", cfg.LogFile)
	}
}

func TestSet_SourceWithWhitespaceRejected(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "package-source", "deb http://example.invalid trunk main")

	if !strings.Contains(stderr, "contains whitespace") {
		t.Errorf("expected whitespace error, got: %s", stderr)
	}
}

func TestSet_EmptyRestoresDefault(t *testing.T) {
	path := setupTestConfig(t)

	cfg := &config.Config{ServiceConfig: "/srv/nova.conf"}
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	stdout, stderr := execConfig(t, "set", "service-config", "")

	if stderr != "" {
		t.Errorf("unexpected stderr: %s", stderr)
	}
	if !strings.Contains(stdout, "reset to default") {
		t.Errorf("expected reset confirmation, got: %s", stdout)
	}
	loaded, _ := config.Load()
	if got := loaded.Resolved().ServiceConfig; got != config.DefaultServiceConfig {
		t.Errorf("expected default after reset, got %q", got)
	}
}

func TestSet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, stderr := execConfig(t, "set", "bogus-key", "value")

	if !strings.Contains(stderr, "unknown configuration key") {
		t.Errorf("expected 'unknown configuration key' error, got: %s", stderr)
	}
}
