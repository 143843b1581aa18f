// Package history records opened dumps and ripped files in SQLite.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes incompatibly.
const schemaVersion = 1

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrSchemaMismatch indicates the database was written by another schema version.
var ErrSchemaMismatch = errors.New("history schema version mismatch")

// Kind says which operation produced an event.
type Kind string

const (
	KindResolve Kind = "resolve"
	KindRip     Kind = "rip"
)

// Event is one history row. Subject is the resolved game for KindResolve
// and the ripped format for KindRip.
type Event struct {
	ID        int64
	SessionID string
	Kind      Kind
	Path      string
	Outcome   string
	Subject   string
	Artifact  string
	Detail    string
	CreatedAt time.Time
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: path, now: time.Now}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record appends ev and returns it with ID and CreatedAt filled in.
func (s *Store) Record(ctx context.Context, ev Event) (Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ev.Kind == "" || ev.Path == "" {
		return ev, errors.New("history event needs a kind and a path")
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (session_id, kind, path, outcome, subject, artifact, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, string(ev.Kind), ev.Path, ev.Outcome, ev.Subject, ev.Artifact, ev.Detail,
		ev.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return ev, fmt.Errorf("insert history event: %w", err)
	}
	if ev.ID, err = res.LastInsertId(); err != nil {
		return ev, fmt.Errorf("history event id: %w", err)
	}
	return ev, nil
}

// Recent returns up to n events, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Event, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, kind, path, outcome, subject, artifact, detail, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev      Event
			kind    string
			created string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &kind, &ev.Path, &ev.Outcome, &ev.Subject, &ev.Artifact, &ev.Detail, &created); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		ev.Kind = Kind(kind)
		if ev.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("history row %d timestamp: %w", ev.ID, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
