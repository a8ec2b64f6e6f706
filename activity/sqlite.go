// ABOUTME: SQLite-backed activity log queried by the dashboard home page.
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Log stores entries in a SQLite database.
type Log struct {
	db *sql.DB
}

// Open opens or creates the activity database at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS activity (
			id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			action TEXT NOT NULL,
			subject TEXT NOT NULL,
			outcome TEXT NOT NULL,
			detail TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS activity_at ON activity(at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	return l.db.Close()
}

// Record inserts one entry.
func (l *Log) Record(ctx context.Context, e Entry) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO activity (id, at, action, subject, outcome, detail) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.At.Format(time.RFC3339Nano), e.Action, e.Subject, e.Outcome, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, at, action, subject, outcome, detail FROM activity ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &at, &e.Action, &e.Subject, &e.Outcome, &e.Detail); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse activity time %q: %w", at, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
