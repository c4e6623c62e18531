package auditlog

import (
	"path/filepath"
	"testing"
	"time"
)

func tempRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nodeprov.db")
	r, err := OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt failed: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestSave_AssignsIDAndTimestamp(t *testing.T) {
	r := tempRepo(t)

	entry := &AuditEntry{
		RunID:      "run-1",
		Action:     "install package nova-compute",
		Outcome:    OutcomeApplied,
		DurationMs: 12,
	}

	if err := r.Save(entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if entry.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if entry.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestList(t *testing.T) {
	r := tempRepo(t)

	for i := range 3 {
		entry := &AuditEntry{
			RunID:     "run-1",
			Action:    "restart service nova-compute",
			Outcome:   OutcomeApplied,
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := r.Save(entry); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	entries, err := r.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("expected entries sorted by timestamp descending")
	}
}

func TestListByRun(t *testing.T) {
	r := tempRepo(t)

	entries := []*AuditEntry{
		{RunID: "run-1", Action: "a", Outcome: OutcomeApplied},
		{RunID: "run-2", Action: "b", Outcome: OutcomeSkipped},
		{RunID: "run-1", Action: ActionFinalize, Outcome: OutcomeCompleted},
	}
	for _, entry := range entries {
		if err := r.Save(entry); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := r.ListByRun("run-1", 10)
	if err != nil {
		t.Fatalf("ListByRun failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Action != "a" || !got[1].IsFinalization() {
		t.Errorf("expected entries in recorded order, got %q then %q", got[0].Action, got[1].Action)
	}
}

func TestPrune(t *testing.T) {
	r := tempRepo(t)

	oldEntry := &AuditEntry{
		RunID:     "run-old",
		Action:    "a",
		Outcome:   OutcomeApplied,
		Timestamp: time.Now().UTC().Add(-48 * time.Hour),
	}
	recentEntry := &AuditEntry{
		RunID:     "run-new",
		Action:    "a",
		Outcome:   OutcomeApplied,
		Timestamp: time.Now().UTC().Add(-1 * time.Hour),
	}

	if err := r.Save(oldEntry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := r.Save(recentEntry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	count, err := r.CountOlderThan(24 * time.Hour)
	if err != nil {
		t.Fatalf("CountOlderThan failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 prunable entry, got %d", count)
	}

	removed, err := r.Prune(24 * time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}

	remaining, err := r.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 remaining entry, got %d", len(remaining))
	}
}

func TestTimestampsSortAsText(t *testing.T) {
	r := tempRepo(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Whole second first: a variable-width layout would sort it after
	// the fractional one.
	for i, ts := range []time.Time{base, base.Add(500 * time.Millisecond)} {
		e := &AuditEntry{RunID: "run", Action: string(rune('a' + i)), Outcome: OutcomeApplied, Timestamp: ts}
		if err := r.Save(e); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	got, err := r.List(10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if got[0].Action != "b" || !got[0].Timestamp.Equal(base.Add(500*time.Millisecond)) {
		t.Errorf("newest entry = %q at %v", got[0].Action, got[0].Timestamp)
	}
}
