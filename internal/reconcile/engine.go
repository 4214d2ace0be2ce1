package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/inboxplan/internal/calendar"
	"github.com/teemow/inboxplan/internal/logging"
	"github.com/teemow/inboxplan/internal/store"
	"github.com/teemow/inboxplan/internal/task"
)

// FingerprintWriter records the definite outcome of reconciling one task.
type FingerprintWriter interface {
	Upsert(ctx context.Context, userID string, fp store.Fingerprint) error
}

// Engine reconciles tasks into calendar events.
type Engine struct {
	backend       calendar.Backend
	fingerprints  FingerprintWriter
	calendarID    string
	eventDuration time.Duration
	logger        *slog.Logger

	// mu serializes event writes to the calendar, so two tasks that
	// collapse to the same identifier cannot race into two events.
	mu sync.Mutex
}

// NewEngine creates a reconciliation engine writing to one calendar.
func NewEngine(backend calendar.Backend, fingerprints FingerprintWriter, calendarID string, eventDuration time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		backend:       backend,
		fingerprints:  fingerprints,
		calendarID:    calendarID,
		eventDuration: eventDuration,
		logger:        logger,
	}
}

// Sync reconciles the given tasks and returns them with updated sync
// state. Status transitions are forward only: unsynced tasks move to
// synced or sync-failed; tasks without a due date are left untouched, and
// tasks already synced are never re-created.
func (e *Engine) Sync(ctx context.Context, userID string, tasks []task.Task) []task.Task {
	out := make([]task.Task, len(tasks))
	copy(out, tasks)

	due := dueIndexes(out)
	if len(due) == 0 {
		return out
	}

	ok, err := e.backend.HasWriteScope(ctx)
	if err != nil {
		e.logger.Error("calendar scope check failed",
			logging.Operation("sync"),
			logging.UserHash(userID),
			logging.Err(err))
		e.failAll(ctx, userID, out, due, "scope-check-failed", true)
		return out
	}
	if !ok {
		e.logger.Warn("credential lacks calendar-write scope, skipping all writes",
			logging.Operation("sync"),
			logging.UserHash(userID),
			logging.Count(len(due)))
		e.failAll(ctx, userID, out, due, task.ReasonInsufficientScope, false)
		return out
	}

	for _, i := range due {
		if ctx.Err() != nil {
			// Cancelled mid-run: tasks without a definite outcome are
			// abandoned unrecorded, not marked failed.
			break
		}
		out[i] = e.syncOne(ctx, userID, out[i])
	}
	return out
}

// syncOne creates the event for a single task and records the outcome.
func (e *Engine) syncOne(ctx context.Context, userID string, t task.Task) task.Task {
	if t.Status == task.StatusSynced {
		return t
	}

	e.mu.Lock()
	eventID, err := e.backend.CreateEvent(ctx, e.calendarID, calendar.EventInput{
		Title:       t.Title,
		Due:         *t.Due,
		Duration:    e.eventDuration,
		Description: fmt.Sprintf("From email %s (%s)", t.Source.EmailID, t.Source.Sender),
	})
	e.mu.Unlock()

	if err != nil {
		t.Status = task.StatusSyncFailed
		t.StatusReason = "calendar-unavailable"
		t.Retryable = calendar.Retryable(err)
		if !t.Retryable {
			t.StatusReason = "calendar-unauthorized"
		}
		e.logger.Warn("failed to sync task",
			logging.Operation("sync"),
			logging.TaskID(t.ID),
			logging.Status(string(t.Status)),
			logging.Err(err))
		e.record(ctx, userID, t)
		return t
	}

	t.Status = task.StatusSynced
	t.EventID = eventID
	t.StatusReason = ""
	t.Retryable = false
	e.logger.Info("task synced",
		logging.Operation("sync"),
		logging.TaskID(t.ID),
		slog.String("event_id", eventID))
	e.record(ctx, userID, t)
	return t
}

// failAll marks every due-dated task sync-failed with the given reason,
// without attempting a single write.
func (e *Engine) failAll(ctx context.Context, userID string, tasks []task.Task, due []int, reason string, retryable bool) {
	for _, i := range due {
		if tasks[i].Status == task.StatusSynced {
			continue
		}
		tasks[i].Status = task.StatusSyncFailed
		tasks[i].StatusReason = reason
		tasks[i].Retryable = retryable
		e.record(ctx, userID, tasks[i])
	}
}

// record upserts the durable fingerprint for a task with a definite
// outcome.
func (e *Engine) record(ctx context.Context, userID string, t task.Task) {
	err := e.fingerprints.Upsert(ctx, userID, store.Fingerprint{
		TaskID:  t.ID,
		Status:  t.Status,
		EventID: t.EventID,
		EmailID: t.Source.EmailID,
		Title:   t.Title,
	})
	if err != nil {
		e.logger.Error("failed to record fingerprint",
			logging.Operation("sync"),
			logging.TaskID(t.ID),
			logging.Err(err))
	}
}

// dueIndexes returns the indexes of tasks eligible for calendar sync.
func dueIndexes(tasks []task.Task) []int {
	var due []int
	for i, t := range tasks {
		if t.Due != nil && t.Status != task.StatusSynced {
			due = append(due, i)
		}
	}
	return due
}
