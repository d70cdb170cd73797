package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/kolapsis/pomo/internal/timeutil"
)

const selectInterval = `SELECT id, status, duration_sec, worked_sec, started_at, ended_at, run_started_at, heartbeat_at FROM intervals`

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, zero CGO).
// Each process opens its own store handle; cross-process writers are
// serialized by SQLite's own locking with a bounded busy timeout, after which
// operations fail rather than blocking forever.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the interval database and runs migrations.
// The database file is created with 0600 permissions and its parent directory
// with 0700.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}

		// Pre-create the file with restrictive permissions if it doesn't exist
		if _, err := os.Stat(path); os.IsNotExist(err) {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
			if err != nil {
				return nil, fmt.Errorf("creating database file: %w", err)
			}
			_ = f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	db.SetMaxIdleConns(1)

	// Bounded busy wait: contending writers fail after 5s instead of
	// blocking forever.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		slog.Info("applying migration", "version", i+1)
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Mutations ---

// Start creates a new running interval and its 'started' event.
// Returns *ActiveIntervalError when an active interval already exists; the
// partial unique index is the second line of defense against two processes
// starting at the same instant, and its violation maps to the same error.
func (s *SQLiteStore) Start(durationSec, now int64) (*Interval, error) {
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.Status.IsActive() {
		return nil, &ActiveIntervalError{Existing: latest}
	}

	iv := &Interval{
		ID:           uuid.NewString(),
		Status:       StatusRunning,
		DurationSec:  durationSec,
		StartedAt:    now,
		RunStartedAt: now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO intervals (id, duration_sec, status, started_at, worked_sec, run_started_at)
		 VALUES (?, ?, 'running', ?, 0, ?)`,
		iv.ID, durationSec, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			// Release the pool's only connection before re-reading, or
			// Latest would wait on the open transaction forever.
			_ = tx.Rollback()
			existing, _ := s.Latest()
			return nil, &ActiveIntervalError{Existing: existing}
		}
		return nil, fmt.Errorf("inserting interval: %w", err)
	}

	if err := insertEvent(tx, iv.ID, EventStarted, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing start: %w", err)
	}
	return iv, nil
}

// Pause moves a running interval to paused, checkpointing worked time up to
// now inside the same conditional update.
func (s *SQLiteStore) Pause(id string, now int64) error {
	return s.transition(id, []Status{StatusRunning}, EventPaused, now,
		`status = 'paused',
		 worked_sec = MIN(worked_sec + (? - run_started_at), duration_sec),
		 run_started_at = NULL, heartbeat_at = NULL`,
		now)
}

// Resume moves a paused or interrupted interval back to running.
func (s *SQLiteStore) Resume(id string, now int64) error {
	return s.transition(id, []Status{StatusPaused, StatusInterrupted}, EventResumed, now,
		`status = 'running', run_started_at = ?`,
		now)
}

// Cancel terminates a running, paused, or interrupted interval, crediting the
// in-progress segment when one exists.
func (s *SQLiteStore) Cancel(id string, now int64) error {
	return s.transition(id, []Status{StatusRunning, StatusPaused, StatusInterrupted}, EventCancelled, now,
		`status = 'cancelled',
		 worked_sec = CASE WHEN status = 'running' AND run_started_at IS NOT NULL
			THEN MIN(worked_sec + (? - run_started_at), duration_sec)
			ELSE worked_sec END,
		 ended_at = ?, run_started_at = NULL, heartbeat_at = NULL`,
		now, now)
}

// Finish marks a running interval as finished (awaiting resolution).
// Worker-only: the worker loop owns this transition.
func (s *SQLiteStore) Finish(id string, now int64) error {
	return s.transition(id, []Status{StatusRunning}, EventFinished, now,
		`status = 'finished', worked_sec = duration_sec, ended_at = ?,
		 run_started_at = NULL, heartbeat_at = NULL`,
		now)
}

// Resolve records the user's post-hoc classification of a finished interval.
// ended_at is deliberately left untouched: it records when the timer elapsed
// (set by Finish), not when the user made the resolution decision.
func (s *SQLiteStore) Resolve(id string, resolution Status, now int64) error {
	if resolution != StatusCompleted && resolution != StatusAbandoned {
		return fmt.Errorf("invalid resolution %q: must be completed or abandoned", resolution)
	}
	return s.transition(id, []Status{StatusFinished}, EventType(resolution), now,
		`status = ?`,
		string(resolution))
}

// Heartbeat records a liveness timestamp for a running interval. It emits no
// event and matching zero rows is not an error: a worker whose interval was
// paused or cancelled underneath it notices on its next tick.
func (s *SQLiteStore) Heartbeat(id string, now int64) error {
	_, err := s.db.Exec(
		"UPDATE intervals SET heartbeat_at = ? WHERE id = ? AND status = 'running'",
		now, id)
	if err != nil {
		return fmt.Errorf("updating heartbeat: %w", err)
	}
	return nil
}

// Recover reclassifies a running interval whose worker died as interrupted.
// Worked time is reconstructed from the last heartbeat when one was written;
// with no heartbeat the segment earns no credit. Under-crediting is the
// intended bias: the heartbeat is the only trustworthy checkpoint.
func (s *SQLiteStore) Recover(id string, now int64) error {
	return s.transition(id, []Status{StatusRunning}, EventInterrupted, now,
		`status = 'interrupted',
		 worked_sec = CASE WHEN heartbeat_at IS NOT NULL AND run_started_at IS NOT NULL
			THEN MIN(worked_sec + (heartbeat_at - run_started_at), duration_sec)
			ELSE worked_sec END,
		 run_started_at = NULL, heartbeat_at = NULL`)
}

// transition is the compare-and-swap primitive shared by all mutations: a
// single UPDATE guarded by id and the expected prior status set, plus one
// event row, in one transaction. Zero matched rows means a lost race and
// yields ErrConflict with nothing written.
func (s *SQLiteStore) transition(id string, from []Status, event EventType, now int64, set string, setArgs ...any) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	args := append([]any{}, setArgs...)
	args = append(args, id)
	for _, st := range from {
		args = append(args, string(st))
	}

	res, err := tx.Exec(
		"UPDATE intervals SET "+set+" WHERE id = ? AND status IN ("+placeholders+")",
		args...)
	if err != nil {
		return fmt.Errorf("applying %s transition: %w", event, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return ErrConflict
	}

	if err := insertEvent(tx, id, event, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing %s transition: %w", event, err)
	}
	return nil
}

func insertEvent(tx *sql.Tx, intervalID string, event EventType, at int64) error {
	_, err := tx.Exec(
		"INSERT INTO interval_events (interval_id, event_type, event_at) VALUES (?, ?, ?)",
		intervalID, string(event), at)
	if err != nil {
		return fmt.Errorf("inserting %s event: %w", event, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) &&
		(serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY)
}

// --- Reads ---

// Latest returns the most recently started interval, or nil.
func (s *SQLiteStore) Latest() (*Interval, error) {
	row := s.db.QueryRow(selectInterval + " ORDER BY started_at DESC, rowid DESC LIMIT 1")
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return iv, err
}

// ByID returns an interval by id, or nil.
func (s *SQLiteStore) ByID(id string) (*Interval, error) {
	row := s.db.QueryRow(selectInterval+" WHERE id = ?", id)
	iv, err := scanInterval(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return iv, err
}

// Recent returns the most recent intervals ordered by start time descending.
func (s *SQLiteStore) Recent(limit int) ([]Interval, error) {
	rows, err := s.db.Query(selectInterval+" ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("listing intervals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Interval
	for rows.Next() {
		iv, err := scanInterval(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *iv)
	}
	return out, rows.Err()
}

// Events returns the audit log for one interval in insertion order.
// limit <= 0 returns all rows.
func (s *SQLiteStore) Events(intervalID string, limit int) ([]Event, error) {
	query := "SELECT id, interval_id, event_type, event_at FROM interval_events WHERE interval_id = ? ORDER BY id"
	args := []any{intervalID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &e.IntervalID, &typ, &e.EventAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.EventType = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TodayCompletedCount counts intervals completed today: status completed and
// started between local midnight and now.
func (s *SQLiteStore) TodayCompletedCount(now int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM intervals WHERE started_at >= ? AND status = 'completed'",
		timeutil.StartOfDay(now)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting today's completed intervals: %w", err)
	}
	return count, nil
}

// DailyCompletedCounts returns per-local-day completed counts, newest day
// first. Days with zero completions are absent.
func (s *SQLiteStore) DailyCompletedCounts(limit int) ([]DailyCount, error) {
	rows, err := s.db.Query(
		`SELECT date(started_at, 'unixepoch', 'localtime') AS day, COUNT(*) AS cnt
		 FROM intervals WHERE status = 'completed'
		 GROUP BY day ORDER BY day DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing daily counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []DailyCount
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Completed); err != nil {
			return nil, fmt.Errorf("scanning daily count: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterval(row rowScanner) (*Interval, error) {
	var iv Interval
	var status string
	var endedAt, runStartedAt, heartbeatAt sql.NullInt64

	err := row.Scan(&iv.ID, &status, &iv.DurationSec, &iv.WorkedSec,
		&iv.StartedAt, &endedAt, &runStartedAt, &heartbeatAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning interval: %w", err)
	}

	iv.Status = Status(status)
	iv.EndedAt = endedAt.Int64
	iv.RunStartedAt = runStartedAt.Int64
	iv.HeartbeatAt = heartbeatAt.Int64

	return &iv, nil
}
