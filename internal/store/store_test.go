package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/teemow/inboxplan/internal/task"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "fingerprints.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKnownEmpty(t *testing.T) {
	s := openTestStore(t)

	known, err := s.Known(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	if len(known) != 0 {
		t.Errorf("got %d fingerprints, want 0", len(known))
	}
}

func TestUpsertAndKnown(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	fp := Fingerprint{
		TaskID:  task.ID("m1", "Renew passport"),
		Status:  task.StatusSynced,
		EventID: "evt-1",
		EmailID: "m1",
		Title:   "Renew passport",
	}
	if err := s.Upsert(ctx, "alice", fp); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	known, err := s.Known(ctx, "alice")
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	got, ok := known[fp.TaskID]
	if !ok {
		t.Fatal("fingerprint not found after upsert")
	}
	if got.Status != task.StatusSynced || got.EventID != "evt-1" {
		t.Errorf("got %+v, want synced evt-1", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not populated")
	}
}

func TestUpsertIsIdempotentPerTask(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := task.ID("m1", "Renew passport")

	// First run records a retryable failure, the next records success.
	if err := s.Upsert(ctx, "alice", Fingerprint{TaskID: id, Status: task.StatusSyncFailed, EmailID: "m1"}); err != nil {
		t.Fatalf("first Upsert failed: %v", err)
	}
	if err := s.Upsert(ctx, "alice", Fingerprint{TaskID: id, Status: task.StatusSynced, EventID: "evt-1", EmailID: "m1"}); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}

	known, err := s.Known(ctx, "alice")
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	if len(known) != 1 {
		t.Fatalf("got %d rows, want 1: retry must update, not insert", len(known))
	}
	if known[id].Status != task.StatusSynced || known[id].EventID != "evt-1" {
		t.Errorf("got %+v, want updated to synced evt-1", known[id])
	}
}

func TestKnownIsScopedPerUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "alice", Fingerprint{TaskID: "t1", Status: task.StatusSynced, EventID: "evt-1"}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	known, err := s.Known(ctx, "bob")
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	if len(known) != 0 {
		t.Errorf("bob sees %d of alice's fingerprints", len(known))
	}
}

func TestUpsertRejectsEmptyTaskID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Upsert(context.Background(), "alice", Fingerprint{Status: task.StatusSynced}); err == nil {
		t.Error("expected error for empty task id")
	}
}

func TestUpsertKeepsProvidedTimestamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, 2, 6, 12, 0, 0, 0, time.UTC)
	if err := s.Upsert(ctx, "alice", Fingerprint{TaskID: "t1", Status: task.StatusSynced, UpdatedAt: at}); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	known, err := s.Known(ctx, "alice")
	if err != nil {
		t.Fatalf("Known failed: %v", err)
	}
	if !known["t1"].UpdatedAt.Equal(at) {
		t.Errorf("UpdatedAt = %v, want %v", known["t1"].UpdatedAt, at)
	}
}
