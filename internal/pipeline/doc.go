// Package pipeline orchestrates one end-to-end run: fetch recent email,
// extract actionable items through the provider fallback chain, normalize
// them into canonical tasks, deduplicate against prior runs, and reconcile
// the remainder with the calendar.
//
// A run is idempotent: repeating it over an unchanged inbox produces no
// new tasks and no new calendar events. Extraction is fanned out over a
// bounded worker pool; results are merged back in message order so task
// output is deterministic for a given inbox state.
package pipeline
