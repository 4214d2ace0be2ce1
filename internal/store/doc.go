// Package store persists the durable task fingerprints that make calendar
// sync idempotent across runs.
//
// The fingerprint is the minimal record retained after a run: task
// identifier, sync status and linked event id, keyed per user. Writes are
// append/update-only and keyed by task identifier, so a retry on a later
// run updates the existing record instead of creating a second event.
package store
