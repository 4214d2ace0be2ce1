package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/teemow/inboxplan/internal/calendar"
	"github.com/teemow/inboxplan/internal/store"
	"github.com/teemow/inboxplan/internal/task"
)

// fakeBackend is a calendar backend with scriptable scope and failures.
type fakeBackend struct {
	hasScope  bool
	scopeErr  error
	createErr error
	created   []calendar.EventInput
	nextID    int
}

func (f *fakeBackend) HasWriteScope(ctx context.Context) (bool, error) {
	return f.hasScope, f.scopeErr
}

func (f *fakeBackend) CreateEvent(ctx context.Context, calendarID string, input calendar.EventInput) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, input)
	f.nextID++
	return fmt.Sprintf("evt-%d", f.nextID), nil
}

// memWriter records fingerprints in memory.
type memWriter struct {
	upserts []store.Fingerprint
}

func (m *memWriter) Upsert(ctx context.Context, userID string, fp store.Fingerprint) error {
	m.upserts = append(m.upserts, fp)
	return nil
}

func dueTask(emailID, title string) task.Task {
	due := time.Date(2026, 2, 6, 0, 0, 0, 0, time.UTC)
	t := task.Task{
		ID:     task.ID(emailID, title),
		Title:  title,
		Due:    &due,
		Status: task.StatusUnsynced,
		Source: task.SourceRef{EmailID: emailID, Sender: "jane@example.com"},
	}
	return t
}

func noDueTask(emailID, title string) task.Task {
	t := dueTask(emailID, title)
	t.Due = nil
	return t
}

func newTestEngine(b calendar.Backend, w FingerprintWriter) *Engine {
	return NewEngine(b, w, "primary", 0, slog.New(slog.DiscardHandler))
}

func TestSyncCreatesEventsForDueTasks(t *testing.T) {
	backend := &fakeBackend{hasScope: true}
	writer := &memWriter{}
	engine := newTestEngine(backend, writer)

	got := engine.Sync(context.Background(), "alice", []task.Task{dueTask("m1", "Renew passport")})

	if got[0].Status != task.StatusSynced {
		t.Errorf("Status = %q, want synced", got[0].Status)
	}
	if got[0].EventID != "evt-1" {
		t.Errorf("EventID = %q, want evt-1", got[0].EventID)
	}
	if len(backend.created) != 1 {
		t.Fatalf("created %d events, want 1", len(backend.created))
	}
	if len(writer.upserts) != 1 || writer.upserts[0].Status != task.StatusSynced {
		t.Errorf("fingerprint upserts = %+v, want one synced record", writer.upserts)
	}
}

func TestSyncSkipsTasksWithoutDueDate(t *testing.T) {
	backend := &fakeBackend{hasScope: true}
	writer := &memWriter{}
	engine := newTestEngine(backend, writer)

	got := engine.Sync(context.Background(), "alice", []task.Task{noDueTask("m1", "Reply to Jane")})

	if got[0].Status != task.StatusUnsynced {
		t.Errorf("Status = %q, want unsynced: no due date means no sync attempt", got[0].Status)
	}
	if len(backend.created) != 0 {
		t.Error("event created for task without due date")
	}
	if len(writer.upserts) != 0 {
		t.Error("fingerprint recorded for task that was never attempted")
	}
}

func TestSyncInsufficientScope(t *testing.T) {
	backend := &fakeBackend{hasScope: false}
	writer := &memWriter{}
	engine := newTestEngine(backend, writer)

	tasks := []task.Task{
		dueTask("m1", "Renew passport"),
		dueTask("m2", "Pay rent"),
		noDueTask("m3", "Reply to Jane"),
	}
	got := engine.Sync(context.Background(), "alice", tasks)

	if len(backend.created) != 0 {
		t.Fatal("CreateEvent called despite missing scope")
	}
	for _, i := range []int{0, 1} {
		if got[i].Status != task.StatusSyncFailed {
			t.Errorf("task %d status = %q, want sync-failed", i, got[i].Status)
		}
		if got[i].StatusReason != task.ReasonInsufficientScope {
			t.Errorf("task %d reason = %q, want %q", i, got[i].StatusReason, task.ReasonInsufficientScope)
		}
	}
	if got[2].Status != task.StatusUnsynced {
		t.Errorf("no-due task status = %q, want unsynced", got[2].Status)
	}
}

func TestSyncNoDueTasksSkipsScopeCheck(t *testing.T) {
	backend := &fakeBackend{hasScope: false, scopeErr: fmt.Errorf("should not be called")}
	engine := newTestEngine(backend, &memWriter{})

	got := engine.Sync(context.Background(), "alice", []task.Task{noDueTask("m1", "Reply")})
	if got[0].Status != task.StatusUnsynced {
		t.Errorf("Status = %q, want unsynced", got[0].Status)
	}
}

func TestSyncTransientFailureIsRetryable(t *testing.T) {
	backend := &fakeBackend{
		hasScope:  true,
		createErr: fmt.Errorf("failed to create event: %w", calendar.ErrUnavailable),
	}
	writer := &memWriter{}
	engine := newTestEngine(backend, writer)

	got := engine.Sync(context.Background(), "alice", []task.Task{dueTask("m1", "Renew passport")})

	if got[0].Status != task.StatusSyncFailed {
		t.Errorf("Status = %q, want sync-failed", got[0].Status)
	}
	if !got[0].Retryable {
		t.Error("transient failure must be marked retryable")
	}
	if len(writer.upserts) != 1 || writer.upserts[0].Status != task.StatusSyncFailed {
		t.Errorf("fingerprint upserts = %+v, want one sync-failed record", writer.upserts)
	}
}

func TestSyncUnauthorizedFailureNotRetryable(t *testing.T) {
	backend := &fakeBackend{
		hasScope:  true,
		createErr: fmt.Errorf("failed to create event: %w", calendar.ErrUnauthorized),
	}
	engine := newTestEngine(backend, &memWriter{})

	got := engine.Sync(context.Background(), "alice", []task.Task{dueTask("m1", "Renew passport")})
	if got[0].Retryable {
		t.Error("unauthorized failure must not be retryable")
	}
}

func TestSyncNeverRecreatesSyncedTask(t *testing.T) {
	backend := &fakeBackend{hasScope: true}
	engine := newTestEngine(backend, &memWriter{})

	synced := dueTask("m1", "Renew passport")
	synced.Status = task.StatusSynced
	synced.EventID = "evt-1"

	got := engine.Sync(context.Background(), "alice", []task.Task{synced})

	if len(backend.created) != 0 {
		t.Fatal("CreateEvent called for an already-synced task")
	}
	if got[0].EventID != "evt-1" {
		t.Errorf("EventID = %q, want evt-1 preserved", got[0].EventID)
	}
}

func TestSyncCancelledContextAbandonsRemainder(t *testing.T) {
	backend := &fakeBackend{hasScope: true}
	writer := &memWriter{}
	engine := newTestEngine(backend, writer)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := engine.Sync(ctx, "alice", []task.Task{dueTask("m1", "Renew passport")})

	if got[0].Status != task.StatusUnsynced {
		t.Errorf("Status = %q, want unsynced: cancelled work is abandoned, not failed", got[0].Status)
	}
	if len(writer.upserts) != 0 {
		t.Error("fingerprint recorded without a definite outcome")
	}
}

func TestSyncScopeCheckErrorFailsRetryably(t *testing.T) {
	backend := &fakeBackend{scopeErr: fmt.Errorf("token introspection timed out")}
	engine := newTestEngine(backend, &memWriter{})

	got := engine.Sync(context.Background(), "alice", []task.Task{dueTask("m1", "Renew passport")})

	if got[0].Status != task.StatusSyncFailed {
		t.Errorf("Status = %q, want sync-failed", got[0].Status)
	}
	if !got[0].Retryable {
		t.Error("scope check error should be retryable next run")
	}
	if len(backend.created) != 0 {
		t.Error("CreateEvent called despite failed scope check")
	}
}
