package mail

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors for message source failures. A fetch failure is run-fatal:
// callers must be able to distinguish "no tasks found" from "could not read
// the inbox at all".
var (
	ErrUnauthorized = errors.New("message source: unauthorized")
	ErrUnavailable  = errors.New("message source: unavailable")
)

// Message is an email message as fetched from the source. It is immutable
// for the duration of a run.
type Message struct {
	// ID is the stable provider-assigned message identifier.
	ID string
	// Sender is the display string from the From header.
	Sender string
	// Subject is the Subject header value.
	Subject string
	// Body is the decoded plain-text body, or the snippet when no
	// text part could be decoded.
	Body string
	// Received is the time the message was received.
	Received time.Time
}

// Valid reports whether the message carries the identifier every task must
// be traceable to. Invalid messages are skipped and logged, never extracted.
func (m Message) Valid() bool {
	return m.ID != ""
}

// SenderName extracts the display name from a sender string such as
// `"Jane Doe" <jane@example.com>`. It falls back to the local part of a
// bare address, then to the raw string.
func SenderName(sender string) string {
	if i := strings.Index(sender, "<"); i >= 0 {
		name := strings.Trim(strings.TrimSpace(sender[:i]), `"`)
		if name != "" {
			return name
		}
		sender = strings.Trim(sender[i:], "<>")
	}
	if i := strings.Index(sender, "@"); i >= 0 {
		return sender[:i]
	}
	return sender
}

// Source fetches the recent messages for a run.
type Source interface {
	// FetchRecent returns the batch of messages to process. Errors wrap
	// ErrUnauthorized or ErrUnavailable.
	FetchRecent(ctx context.Context) ([]Message, error)
}
