package calendar

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for calendar backend failures.
var (
	// ErrUnauthorized covers authentication failures. Not retryable
	// within the pipeline; the credential must be fixed first.
	ErrUnauthorized = errors.New("calendar: unauthorized")
	// ErrUnavailable covers transient transport failures. A task failing
	// with it is marked retryable and re-attempted on the next run.
	ErrUnavailable = errors.New("calendar: unavailable")
)

// EventInput is the event the reconciliation engine creates for a task.
type EventInput struct {
	Title string
	// Due is the event start.
	Due time.Time
	// Duration is the event length; when zero the event is created as
	// all-day on the due date.
	Duration time.Duration
	// Description links the event back to its source.
	Description string
}

// Backend is the calendar collaborator consumed by the reconciliation
// engine.
type Backend interface {
	// HasWriteScope reports whether the active credential carries
	// calendar-write capability. Evaluated fresh per run.
	HasWriteScope(ctx context.Context) (bool, error)
	// CreateEvent creates one event and returns its identifier. Errors
	// wrap ErrUnauthorized or ErrUnavailable.
	CreateEvent(ctx context.Context, calendarID string, input EventInput) (string, error)
}

// Retryable reports whether a backend error is transient.
func Retryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
