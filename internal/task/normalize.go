package task

import (
	"errors"
	"time"

	"github.com/teemow/inboxplan/internal/extract"
	"github.com/teemow/inboxplan/internal/mail"
)

// ErrEmptyTitle marks a raw item whose title is empty after normalization.
// Such items are dropped and logged, never turned into tasks.
var ErrEmptyTitle = errors.New("extracted item has empty title")

// ErrNoSource marks an item that cannot be traced back to a source email.
var ErrNoSource = errors.New("extracted item has no source message")

// dueFormats is the fixed set of accepted due date formats, tried in
// order. Anything else is discarded, not an error: a task without a due
// date is valid.
var dueFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"01/02/2006",
}

// Normalize converts a raw extracted item plus its source message into a
// canonical task, deep-linked to the message it came from.
func Normalize(item extract.Item, msg mail.Message) (Task, error) {
	if !msg.Valid() {
		return Task{}, ErrNoSource
	}

	title := CollapseWhitespace(item.Title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}

	return Task{
		ID:       ID(msg.ID, title),
		Title:    title,
		Due:      parseDue(item.Due),
		Priority: ClampPriority(item.Priority),
		Source: SourceRef{
			EmailID:  msg.ID,
			Sender:   msg.Sender,
			Received: msg.Received,
		},
		Method: item.Provider,
		Status: StatusUnsynced,
	}, nil
}

// parseDue parses a due date string against the accepted formats,
// returning nil for anything unparseable.
func parseDue(due string) *time.Time {
	due = CollapseWhitespace(due)
	if due == "" {
		return nil
	}
	for _, layout := range dueFormats {
		if t, err := time.Parse(layout, due); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
