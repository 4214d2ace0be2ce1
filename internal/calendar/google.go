package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/teemow/inboxplan/internal/google"
)

// GoogleBackend implements Backend on the Google Calendar API.
type GoogleBackend struct {
	svc     *calendar.Service
	cred    *google.Credential
	timeout time.Duration
}

// NewGoogleBackend creates a Calendar backend for the credential.
func NewGoogleBackend(ctx context.Context, cred *google.Credential, timeout time.Duration) (*GoogleBackend, error) {
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(cred.HTTPClient(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return &GoogleBackend{svc: svc, cred: cred, timeout: timeout}, nil
}

// HasWriteScope checks the granted scopes of the live credential. The
// result is computed fresh on every call and never cached.
func (b *GoogleBackend) HasWriteScope(ctx context.Context) (bool, error) {
	if b.cred == nil {
		return false, fmt.Errorf("%w: no credential", ErrUnauthorized)
	}
	return google.HasCalendarWriteScope(b.cred.GrantedScopes), nil
}

// CreateEvent creates a calendar event for a due-dated task. Tasks due at
// midnight become all-day events when no duration is configured.
func (b *GoogleBackend) CreateEvent(ctx context.Context, calendarID string, input EventInput) (string, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	event := &calendar.Event{
		Summary:     input.Title,
		Description: input.Description,
	}

	if input.Duration <= 0 {
		event.Start = &calendar.EventDateTime{Date: input.Due.Format("2006-01-02")}
		event.End = &calendar.EventDateTime{Date: input.Due.Format("2006-01-02")}
	} else {
		event.Start = &calendar.EventDateTime{
			DateTime: input.Due.Format(time.RFC3339),
			TimeZone: "UTC",
		}
		event.End = &calendar.EventDateTime{
			DateTime: input.Due.Add(input.Duration).Format(time.RFC3339),
			TimeZone: "UTC",
		}
	}

	created, err := b.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", classifyErr("failed to create event", err)
	}
	return created.Id, nil
}

// classifyErr wraps a Calendar API error with the matching sentinel.
func classifyErr(msg string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return fmt.Errorf("%s: %w: %w", msg, ErrUnauthorized, err)
	}
	return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
}
