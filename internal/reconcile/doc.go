// Package reconcile maps due-dated tasks to calendar events without
// creating duplicates across repeated runs.
//
// The engine verifies calendar-write capability before any write, creates
// at most one event per task identifier, and records every definite
// outcome in the durable fingerprint store so a later run can retry
// failures idempotently. Event writes are serialized per calendar.
package reconcile
