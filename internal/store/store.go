package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/teemow/inboxplan/internal/task"
)

var createTableSQL = []string{
	// task_fingerprints holds the durable record of every task the
	// pipeline has reconciled, one row per (user, task id).
	//
	// Field: task_id
	//
	//   Deterministic task identifier, a pure function of the source
	//   email id and the normalized title. Reruns on an unchanged inbox
	//   reproduce it, which is what makes this table a dedup index.
	//
	// Field: sync_status
	//
	//   One of "unsynced", "synced", "sync-failed". A "synced" row is
	//   never downgraded.
	//
	// Field: event_id
	//
	//   The linked calendar event identifier; empty unless synced.
	`
CREATE TABLE IF NOT EXISTS task_fingerprints (
user_id TEXT NOT NULL,
task_id TEXT NOT NULL,
sync_status TEXT NOT NULL,
event_id TEXT NOT NULL DEFAULT '',
source_email_id TEXT NOT NULL DEFAULT '',
title TEXT NOT NULL DEFAULT '',
updated_at TIMESTAMP NOT NULL,
PRIMARY KEY (user_id, task_id)
);`,
}

// Fingerprint is the durable record of one reconciled task.
type Fingerprint struct {
	TaskID    string
	Status    task.SyncStatus
	EventID   string
	EmailID   string
	Title     string
	UpdatedAt time.Time
}

// Store is the SQLite-backed fingerprint store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the fingerprint database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open fingerprint database: %w", err)
	}

	for _, stmt := range createTableSQL {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize fingerprint schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Known returns all fingerprints recorded for a user, keyed by task id.
func (s *Store) Known(ctx context.Context, userID string) (map[string]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT task_id, sync_status, event_id, source_email_id, title, updated_at
FROM task_fingerprints WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	known := make(map[string]Fingerprint)
	for rows.Next() {
		var fp Fingerprint
		var status string
		if err := rows.Scan(&fp.TaskID, &status, &fp.EventID, &fp.EmailID, &fp.Title, &fp.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint: %w", err)
		}
		fp.Status = task.SyncStatus(status)
		known[fp.TaskID] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fingerprints: %w", err)
	}
	return known, nil
}

// Upsert records the outcome of reconciling one task. The write is keyed
// by (user, task id): retrying a previously failed sync updates the
// existing row rather than inserting a second one.
func (s *Store) Upsert(ctx context.Context, userID string, fp Fingerprint) error {
	if fp.TaskID == "" {
		return fmt.Errorf("fingerprint task id must not be empty")
	}
	updatedAt := fp.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO task_fingerprints (user_id, task_id, sync_status, event_id, source_email_id, title, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, task_id) DO UPDATE SET
sync_status = excluded.sync_status,
event_id = excluded.event_id,
updated_at = excluded.updated_at`,
		userID, fp.TaskID, string(fp.Status), fp.EventID, fp.EmailID, fp.Title, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert fingerprint: %w", err)
	}
	return nil
}
