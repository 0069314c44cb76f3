// Package history keeps finished overlay sessions in a local DuckDB file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pointer-app/pointer/internal/db"
	"github.com/pointer-app/pointer/pkg/models"
)

const schema = `CREATE TABLE IF NOT EXISTS overlay_history (
	id           VARCHAR PRIMARY KEY,
	query        VARCHAR NOT NULL,
	phase        VARCHAR NOT NULL,
	message      VARCHAR,
	has_context  BOOLEAN NOT NULL,
	submitted_at TIMESTAMP NOT NULL,
	finished_at  TIMESTAMP NOT NULL
)`

// Store reads and writes overlay history.
type Store struct {
	path string
	db   *sql.DB
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Store, error) {
	conn, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}
	return &Store{path: path, db: conn}, nil
}

// Append opens the file at path, stores e and closes it again. DuckDB locks
// the file per process, so writers that live long must not keep it open.
func Append(ctx context.Context, path string, e models.HistoryEntry) (string, error) {
	s, err := Open(path)
	if err != nil {
		return "", err
	}
	id, err := s.Insert(ctx, e)
	if cerr := s.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("failed to close history: %w", cerr)
	}
	return id, err
}

// Close releases the database.
func (s *Store) Close() error {
	if s.path == "" {
		return s.db.Close()
	}
	return db.Close(s.path)
}

// Insert stores e, assigning an ID when it has none.
func (s *Store) Insert(ctx context.Context, e models.HistoryEntry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = time.Now()
	}
	if e.SubmittedAt.IsZero() {
		e.SubmittedAt = e.FinishedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overlay_history (id, query, phase, message, has_context, submitted_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Query, e.Phase, e.Message, e.HasContext, e.SubmittedAt.UTC(), e.FinishedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert history entry: %w", err)
	}
	return e.ID, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	queryCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx,
		`SELECT id, query, phase, message, has_context, submitted_at, finished_at
		 FROM overlay_history
		 ORDER BY finished_at DESC, id
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var message sql.NullString
		if err := rows.Scan(&e.ID, &e.Query, &e.Phase, &message, &e.HasContext, &e.SubmittedAt, &e.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.Message = message.String
		e.SubmittedAt = e.SubmittedAt.Local()
		e.FinishedAt = e.FinishedAt.Local()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM overlay_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
