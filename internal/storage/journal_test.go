package storage

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"wedding-checkin/internal/models"
)

func TestJournal_RecordAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "checkins.json")
	j, err := NewJournal(path)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}

	at := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)
	ids := []string{"A1", "A2"}
	if err := j.Record(models.CheckInReceipt{
		ID:        "r-1",
		At:        at,
		Criteria:  models.ByEmail,
		Term:      "alice@example.com",
		UniqueIDs: ids,
		Outcome:   models.OutcomeSuccess,
		Message:   "2 attendee(s) checked in.",
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	ids[0] = "mutated"

	if err := j.Record(models.CheckInReceipt{
		UniqueIDs: []string{"C1"},
		Outcome:   models.OutcomeTransportError,
		Message:   "Error submitting check-in.",
	}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reloaded, err := NewJournal(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	all := reloaded.GetAll()
	if len(all) != 2 {
		t.Fatalf("receipts = %d, want 2", len(all))
	}
	if all[0].ID != "r-1" || !all[0].At.Equal(at) || all[0].UniqueIDs[0] != "A1" {
		t.Errorf("first receipt = %+v", all[0])
	}
	if all[1].ID == "" || all[1].At.IsZero() {
		t.Errorf("second receipt missing generated fields: %+v", all[1])
	}

	if got := reloaded.GetByOutcome(models.OutcomeTransportError); len(got) != 1 || got[0].UniqueIDs[0] != "C1" {
		t.Errorf("GetByOutcome = %+v", got)
	}
	if got := reloaded.CheckedInIDs(); !slices.Equal(got, []string{"A1", "A2"}) {
		t.Errorf("CheckedInIDs = %v", got)
	}
}

func TestJournal_EmptyAndCorruptFiles(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.json")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	j, err := NewJournal(empty)
	if err != nil {
		t.Fatalf("NewJournal(empty): %v", err)
	}
	if len(j.GetAll()) != 0 {
		t.Error("expected no receipts")
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewJournal(corrupt); err == nil {
		t.Error("expected error for corrupt journal")
	}
}

func TestJournal_FailedSaveKeepsMemoryInSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkins.json")
	j, err := NewJournal(path)
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	if err := j.Record(models.CheckInReceipt{UniqueIDs: []string{"A1"}, Outcome: models.OutcomeSuccess}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// a non-empty directory at the journal path makes the final rename fail
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0755); err != nil {
		t.Fatal(err)
	}

	err = j.Record(models.CheckInReceipt{UniqueIDs: []string{"A2"}, Outcome: models.OutcomeSuccess})
	if err == nil || !strings.Contains(err.Error(), "failed to replace journal") {
		t.Fatalf("Record err = %v, want replace failure", err)
	}
	if got := j.GetAll(); len(got) != 1 || got[0].UniqueIDs[0] != "A1" {
		t.Errorf("receipts = %+v, want only the saved one", got)
	}
	if got := j.CheckedInIDs(); !slices.Equal(got, []string{"A1"}) {
		t.Errorf("CheckedInIDs = %v", got)
	}
}
