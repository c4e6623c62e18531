package answers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	a, err := Parse(strings.NewReader(`
controller_addr: 192.168.1.10
Network-Count: 8
fixed_range: "10.0.0.0/12"
network_size: 064
`))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"controller_addr", "192.168.1.10"},
		{"network_count", "8"},
		{"fixed_range", "10.0.0.0/12"},
		{"network_size", "064"},
	}
	for _, tt := range tests {
		got, ok := a.Lookup(tt.key)
		if !ok || got != tt.want {
			t.Errorf("Lookup(%q) = (%q, %v), want (%q, true)", tt.key, got, ok, tt.want)
		}
	}
	if _, ok := a.Lookup("admin_name"); ok {
		t.Error("expected admin_name to be absent")
	}
	if a.Len() != 4 {
		t.Errorf("Len = %d, want 4", a.Len())
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"sequence root", "- a\n- b\n"},
		{"nested value", "bridge:\n  address: 1.2.3.4\n"},
		{"duplicate key", "a: 1\nA: 2\n"},
		{"malformed", "a: [1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	a, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if a.Len() != 0 {
		t.Errorf("expected no answers, got %d", a.Len())
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.yaml")
	if err := os.WriteFile(path, []byte("admin_name: novaadmin\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	a, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if v, _ := a.Lookup("admin_name"); v != "novaadmin" {
		t.Errorf("admin_name = %q", v)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNilAnswers(t *testing.T) {
	var a *Answers
	if _, ok := a.Lookup("x"); ok {
		t.Error("nil answers must have no values")
	}
}
