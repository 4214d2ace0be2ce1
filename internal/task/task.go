package task

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Priority of a task. Unknown or missing provider labels clamp to normal.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// SyncStatus is the calendar sync state of a task. Transitions are forward
// only: unsynced -> synced | sync-failed.
type SyncStatus string

const (
	StatusUnsynced   SyncStatus = "unsynced"
	StatusSynced     SyncStatus = "synced"
	StatusSyncFailed SyncStatus = "sync-failed"
)

// ReasonInsufficientScope marks tasks that failed sync because the active
// credential lacks calendar-write capability.
const ReasonInsufficientScope = "insufficient-scope"

// SourceRef is the deep link from a task back to its originating email
// message. It resolves by identifier alone; no re-fetch or re-parsing.
type SourceRef struct {
	EmailID  string
	Sender   string
	Received time.Time
}

// Task is the canonical unit flowing through the pipeline.
type Task struct {
	// ID is derived deterministically from the source email id and the
	// normalized title; reruns on the same inbox reproduce it.
	ID    string
	Title string
	// Due is nil for tasks without a deadline; such tasks are never
	// submitted to calendar sync.
	Due      *time.Time
	Priority Priority
	Source   SourceRef
	// Method names the provider that extracted the task, or
	// "fallback-heuristic".
	Method string
	Status SyncStatus
	// EventID is the linked calendar event, present only when synced.
	EventID string
	// StatusReason explains a sync-failed status, e.g. "insufficient-scope".
	StatusReason string
	// Retryable marks a sync failure that the next run may re-attempt.
	Retryable bool
}

// ID computes the deterministic task identifier for a source email id and
// a title. The title is normalized (whitespace collapsed, lowercased)
// before hashing so that casing and spacing variants collapse to the same
// identifier.
func ID(emailID, title string) string {
	h := sha256.New()
	h.Write([]byte(emailID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeKey(title)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CollapseWhitespace trims a string and collapses internal whitespace runs
// to single spaces.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// normalizeKey is the canonical comparison form of a title: whitespace
// collapsed and lowercased.
func normalizeKey(title string) string {
	return strings.ToLower(CollapseWhitespace(title))
}

// ClampPriority maps a provider priority label onto the enum, defaulting
// unknown and missing values to normal. The original urgency labels
// Critical/High/Low are accepted as aliases.
func ClampPriority(label string) Priority {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "low":
		return PriorityLow
	case "high", "critical", "urgent":
		return PriorityHigh
	default:
		return PriorityNormal
	}
}
