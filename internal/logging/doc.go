// Package logging provides structured logging helpers built on log/slog.
//
// It defines the attribute keys used consistently across the pipeline so
// that log lines from extraction, deduplication and calendar sync can be
// correlated, and small helpers for anonymizing user identifiers before
// they reach log output.
package logging
