package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/detectiq/workbench/internal/domain"
)

const (
	runsTable          = "runs"
	notificationsTable = "notifications"
)

// Store records runs and their notifications in a workspace-local SQLite
// database. It implements domain.HistoryStore.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database %s: %w", path, err)
	}
	store := &Store{db: db}
	if err := store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initTables() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
    CREATE TABLE IF NOT EXISTS runs (
        id TEXT PRIMARY KEY,
        command TEXT NOT NULL,
        status TEXT NOT NULL CHECK(status IN ('running', 'ok', 'drift', 'failed')),
        detail TEXT,
        started_at TIMESTAMP NOT NULL,
        finished_at TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

    CREATE TABLE IF NOT EXISTS notifications (
        id TEXT PRIMARY KEY,
        run_id TEXT REFERENCES runs(id),
        severity TEXT NOT NULL,
        title TEXT NOT NULL,
        message TEXT,
        source TEXT,
        created_at TIMESTAMP NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_notifications_run ON notifications(run_id);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return tx.Commit()
}

// RecordRun inserts a run row; the caller stamps id, command and start time.
func (s *Store) RecordRun(ctx context.Context, run domain.Run) error {
	status := run.Status
	if status == "" {
		status = domain.RunRunning
	}
	query := squirrel.Insert(runsTable).
		Columns("id", "command", "status", "detail", "started_at", "finished_at").
		Values(run.ID, run.Command, string(status), run.Detail, run.StartedAt.UTC(), nullableTime(run.FinishedAt)).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun closes out a recorded run with its final status.
func (s *Store) FinishRun(ctx context.Context, id string, status domain.RunStatus, detail string, finishedAt time.Time) error {
	query := squirrel.Update(runsTable).
		Set("status", string(status)).
		Set("detail", detail).
		Set("finished_at", finishedAt.UTC()).
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db)

	result, err := query.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := squirrel.Select("id", "command", "status", "detail", "started_at", "finished_at").
		From(runsTable).
		OrderBy("started_at DESC", "id DESC").
		Limit(uint64(limit)).
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var (
			run      domain.Run
			status   string
			detail   sql.NullString
			finished sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.Command, &status, &detail, &run.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		run.Status = domain.RunStatus(status)
		run.Detail = detail.String
		if finished.Valid {
			run.FinishedAt = finished.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// RecordNotification stores a published notification against its run. An
// empty runID keeps the notification but leaves the run link null.
func (s *Store) RecordNotification(ctx context.Context, runID string, n domain.Notification) error {
	query := squirrel.Insert(notificationsTable).
		Columns("id", "run_id", "severity", "title", "message", "source", "created_at").
		Values(n.ID, nullableString(runID), string(n.Severity), n.Title, n.Message, n.Source, n.CreatedAt.UTC()).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return fmt.Errorf("recording notification %s: %w", n.ID, err)
	}
	return nil
}

// RunNotifications returns the notifications recorded for one run, oldest
// first.
func (s *Store) RunNotifications(ctx context.Context, runID string) ([]domain.Notification, error) {
	query := squirrel.Select("id", "severity", "title", "message", "source", "created_at").
		From(notificationsTable).
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("created_at ASC", "id ASC").
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing notifications for run %s: %w", runID, err)
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var (
			n        domain.Notification
			severity string
			message  sql.NullString
			source   sql.NullString
		)
		if err := rows.Scan(&n.ID, &severity, &n.Title, &message, &source, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		n.Severity = domain.Severity(severity)
		n.Message = message.String
		n.Source = source.String
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing notifications for run %s: %w", runID, err)
	}
	return notes, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
