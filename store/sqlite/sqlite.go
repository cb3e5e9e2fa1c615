/*
Package sqlite provides a SQLite-backed implementation of calendar.Storage.

PURPOSE:
  Persists templates, placed instances, tracking records, day statuses,
  daily actuals and weekly submissions for the shift calendar.

KEY TABLES:
  shift_templates, absence_templates:   reusable definitions
  shift_instances, absence_instances:   placements (template_id is a weak
                                        reference, no foreign key)
  tracking_records:                     worked sessions
  day_statuses:                         confirmed/locked per date
  daily_actuals:                        planned vs. tracked snapshots
  weekly_submissions:                   submission queue records

INDEXES:
  - idx_weekly_submissions_week: UNIQUE, at most one record per week
  - idx_weekly_submissions_status: queue drains by status
  - idx_*_date: visible-range loads

CONCURRENCY:
  The pool is limited to one connection, which serializes writers the way
  SQLite does anyway and keeps ":memory:" databases on a single connection.
  Inside WithTx only the Storage passed to fn may be used.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/shifts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - calendar/storage.go: Interface definitions
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/shift-calendar/calendar"
)

// Store implements calendar.Storage using SQLite.
type Store struct {
	*queries
	db *sql.DB
}

var _ calendar.Storage = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{queries: &queries{db: db, now: time.Now}, db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// SetClock overrides the clock that stamps submission updates.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shift_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		color TEXT NOT NULL DEFAULT '',
		break_minutes INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS absence_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('vacation', 'sick')),
		is_full_day INTEGER NOT NULL DEFAULT 0,
		start_minute INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		color TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS shift_instances (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_shift_instances_date ON shift_instances(date);

	CREATE TABLE IF NOT EXISTS absence_instances (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		date TEXT NOT NULL,
		type TEXT NOT NULL,
		is_full_day INTEGER NOT NULL DEFAULT 0,
		start_minute INTEGER NOT NULL DEFAULT 0,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		color TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_absence_instances_date ON absence_instances(date);

	CREATE TABLE IF NOT EXISTS tracking_records (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		start_minute INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tracking_records_date ON tracking_records(date);

	CREATE TABLE IF NOT EXISTS day_statuses (
		date TEXT PRIMARY KEY,
		status TEXT NOT NULL CHECK (status IN ('confirmed', 'locked')),
		confirmed_at TEXT NOT NULL,
		submission_id TEXT
	);

	CREATE TABLE IF NOT EXISTS daily_actuals (
		date TEXT PRIMARY KEY,
		planned_minutes INTEGER NOT NULL,
		tracked_minutes INTEGER NOT NULL,
		source TEXT NOT NULL DEFAULT '',
		confirmed_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS weekly_submissions (
		id TEXT PRIMARY KEY,
		week_start TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'sending', 'sent', 'failed')),
		last_error TEXT NOT NULL DEFAULT '',
		summary_json TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_weekly_submissions_week ON weekly_submissions(week_start);
	CREATE INDEX IF NOT EXISTS idx_weekly_submissions_status ON weekly_submissions(status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(calendar.Storage) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{queries: &queries{db: sqlTx, now: s.now}}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	*queries
}

// WithTx joins the enclosing transaction.
func (ts *txStore) WithTx(_ context.Context, fn func(calendar.Storage) error) error {
	return fn(ts)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db  querier
	now func() time.Time
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (q *queries) ShiftTemplates(ctx context.Context) ([]calendar.ShiftTemplate, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, start_minute, duration_minutes, color, break_minutes
		FROM shift_templates ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift templates: %w", err)
	}
	defer rows.Close()

	var out []calendar.ShiftTemplate
	for rows.Next() {
		var t calendar.ShiftTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.StartTime, &t.DurationMinutes, &t.Color, &t.BreakMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan shift template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) SaveShiftTemplate(ctx context.Context, t calendar.ShiftTemplate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO shift_templates (id, name, start_minute, duration_minutes, color, break_minutes)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			start_minute = excluded.start_minute,
			duration_minutes = excluded.duration_minutes,
			color = excluded.color,
			break_minutes = excluded.break_minutes`,
		t.ID, t.Name, t.StartTime.Minutes(), t.DurationMinutes, t.Color, t.BreakMinutes)
	if err != nil {
		return fmt.Errorf("failed to save shift template: %w", err)
	}
	return nil
}

func (q *queries) DeleteShiftTemplate(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "shift_templates", id)
}

func (q *queries) AbsenceTemplates(ctx context.Context) ([]calendar.AbsenceTemplate, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, type, is_full_day, start_minute, duration_minutes, color
		FROM absence_templates ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query absence templates: %w", err)
	}
	defer rows.Close()

	var out []calendar.AbsenceTemplate
	for rows.Next() {
		var t calendar.AbsenceTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Type, &t.IsFullDay, &t.StartTime, &t.DurationMinutes, &t.Color); err != nil {
			return nil, fmt.Errorf("failed to scan absence template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *queries) SaveAbsenceTemplate(ctx context.Context, t calendar.AbsenceTemplate) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO absence_templates (id, name, type, is_full_day, start_minute, duration_minutes, color)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			is_full_day = excluded.is_full_day,
			start_minute = excluded.start_minute,
			duration_minutes = excluded.duration_minutes,
			color = excluded.color`,
		t.ID, t.Name, t.Type, t.IsFullDay, t.StartTime.Minutes(), t.DurationMinutes, t.Color)
	if err != nil {
		return fmt.Errorf("failed to save absence template: %w", err)
	}
	return nil
}

func (q *queries) DeleteAbsenceTemplate(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "absence_templates", id)
}

// =============================================================================
// INSTANCE STORE
// =============================================================================

func (q *queries) ShiftInstances(ctx context.Context, from, to calendar.DateKey) ([]calendar.ShiftInstance, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, template_id, date, start_minute, duration_minutes, name, color
		FROM shift_instances
		WHERE date >= ? AND date <= ?
		ORDER BY date, start_minute, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift instances: %w", err)
	}
	defer rows.Close()

	var out []calendar.ShiftInstance
	for rows.Next() {
		var i calendar.ShiftInstance
		if err := rows.Scan(&i.ID, &i.TemplateID, &i.Date, &i.StartTime, &i.DurationMinutes, &i.Name, &i.Color); err != nil {
			return nil, fmt.Errorf("failed to scan shift instance: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (q *queries) SaveShiftInstance(ctx context.Context, i calendar.ShiftInstance) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO shift_instances (id, template_id, date, start_minute, duration_minutes, name, color)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_id = excluded.template_id,
			date = excluded.date,
			start_minute = excluded.start_minute,
			duration_minutes = excluded.duration_minutes,
			name = excluded.name,
			color = excluded.color`,
		i.ID, i.TemplateID, i.Date, i.StartTime.Minutes(), i.DurationMinutes, i.Name, i.Color)
	if err != nil {
		return fmt.Errorf("failed to save shift instance: %w", err)
	}
	return nil
}

func (q *queries) DeleteShiftInstance(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "shift_instances", id)
}

func (q *queries) AbsenceInstances(ctx context.Context, from, to calendar.DateKey) ([]calendar.AbsenceInstance, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, template_id, date, type, is_full_day, start_minute, duration_minutes, name, color
		FROM absence_instances
		WHERE date >= ? AND date <= ?
		ORDER BY date, start_minute, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query absence instances: %w", err)
	}
	defer rows.Close()

	var out []calendar.AbsenceInstance
	for rows.Next() {
		var a calendar.AbsenceInstance
		if err := rows.Scan(&a.ID, &a.TemplateID, &a.Date, &a.Type, &a.IsFullDay, &a.StartTime, &a.DurationMinutes, &a.Name, &a.Color); err != nil {
			return nil, fmt.Errorf("failed to scan absence instance: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (q *queries) CreateAbsenceInstance(ctx context.Context, a calendar.AbsenceInstance) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO absence_instances
		(id, template_id, date, type, is_full_day, start_minute, duration_minutes, name, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TemplateID, a.Date, a.Type, a.IsFullDay, a.StartTime.Minutes(), a.DurationMinutes, a.Name, a.Color)
	if err != nil {
		return fmt.Errorf("failed to create absence instance: %w", err)
	}
	return nil
}

func (q *queries) DeleteAbsenceInstance(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "absence_instances", id)
}

// =============================================================================
// TRACKING STORE
// =============================================================================

func (q *queries) TrackingRecords(ctx context.Context, from, to calendar.DateKey) ([]calendar.TrackingRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, date, start_minute, duration_minutes, break_minutes, is_active, source
		FROM tracking_records
		WHERE date >= ? AND date <= ?
		ORDER BY date, start_minute, id`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking records: %w", err)
	}
	defer rows.Close()

	var out []calendar.TrackingRecord
	for rows.Next() {
		var r calendar.TrackingRecord
		if err := rows.Scan(&r.ID, &r.Date, &r.StartTime, &r.DurationMinutes, &r.BreakMinutes, &r.IsActive, &r.Source); err != nil {
			return nil, fmt.Errorf("failed to scan tracking record: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (q *queries) SaveTrackingRecord(ctx context.Context, r calendar.TrackingRecord) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO tracking_records (id, date, start_minute, duration_minutes, break_minutes, is_active, source)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			date = excluded.date,
			start_minute = excluded.start_minute,
			duration_minutes = excluded.duration_minutes,
			break_minutes = excluded.break_minutes,
			is_active = excluded.is_active,
			source = excluded.source`,
		r.ID, r.Date, r.StartTime.Minutes(), r.DurationMinutes, r.BreakMinutes, r.IsActive, r.Source)
	if err != nil {
		return fmt.Errorf("failed to save tracking record: %w", err)
	}
	return nil
}

func (q *queries) UpdateTrackingBreak(ctx context.Context, id string, minutes int) error {
	res, err := q.db.ExecContext(ctx, `UPDATE tracking_records SET break_minutes = ? WHERE id = ?`, minutes, id)
	if err != nil {
		return fmt.Errorf("failed to update tracking break: %w", err)
	}
	return requireRow(res)
}

func (q *queries) UpdateSession(ctx context.Context, id string, u calendar.SessionUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.ClockIn != nil {
		sets, args = append(sets, "start_minute = ?"), append(args, u.ClockIn.Minutes())
	}
	if u.DurationMinutes != nil {
		sets, args = append(sets, "duration_minutes = ?"), append(args, *u.DurationMinutes)
	}
	if u.Active != nil {
		sets, args = append(sets, "is_active = ?"), append(args, *u.Active)
	}
	if len(sets) == 0 {
		var exists int
		err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracking_records WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to look up tracking record: %w", err)
		}
		if exists == 0 {
			return calendar.ErrNotFound
		}
		return nil
	}

	query := "UPDATE tracking_records SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	res, err := q.db.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return requireRow(res)
}

func (q *queries) DeleteTrackingRecord(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "tracking_records", id)
}

// =============================================================================
// DAY STORE
// =============================================================================

func (q *queries) DayStatuses(ctx context.Context, from, to calendar.DateKey) ([]calendar.ConfirmedDay, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT date, status, confirmed_at, submission_id
		FROM day_statuses
		WHERE date >= ? AND date <= ?
		ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query day statuses: %w", err)
	}
	defer rows.Close()

	var out []calendar.ConfirmedDay
	for rows.Next() {
		var (
			d            calendar.ConfirmedDay
			confirmedAt  string
			submissionID sql.NullString
		)
		if err := rows.Scan(&d.Date, &d.Status, &confirmedAt, &submissionID); err != nil {
			return nil, fmt.Errorf("failed to scan day status: %w", err)
		}
		d.ConfirmedAt = parseTime(confirmedAt)
		d.SubmissionID = submissionID.String
		out = append(out, d)
	}
	return out, rows.Err()
}

func (q *queries) SaveDayStatuses(ctx context.Context, days []calendar.ConfirmedDay) error {
	for _, d := range days {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO day_statuses (date, status, confirmed_at, submission_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				status = excluded.status,
				confirmed_at = excluded.confirmed_at,
				submission_id = excluded.submission_id`,
			d.Date, d.Status, formatTime(d.ConfirmedAt), nullString(d.SubmissionID))
		if err != nil {
			return fmt.Errorf("failed to save day status %s: %w", d.Date, err)
		}
	}
	return nil
}

func (q *queries) SaveDailyActual(ctx context.Context, a calendar.DailyActual) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO daily_actuals (date, planned_minutes, tracked_minutes, source, confirmed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			planned_minutes = excluded.planned_minutes,
			tracked_minutes = excluded.tracked_minutes,
			source = excluded.source,
			confirmed_at = excluded.confirmed_at`,
		a.Date, a.PlannedMinutes, a.TrackedMinutes, a.Source, formatTime(a.ConfirmedAt))
	if err != nil {
		return fmt.Errorf("failed to save daily actual: %w", err)
	}
	return nil
}

func (q *queries) DailyActuals(ctx context.Context, from, to calendar.DateKey) ([]calendar.DailyActual, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT date, planned_minutes, tracked_minutes, source, confirmed_at
		FROM daily_actuals
		WHERE date >= ? AND date <= ?
		ORDER BY date`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily actuals: %w", err)
	}
	defer rows.Close()

	var out []calendar.DailyActual
	for rows.Next() {
		var (
			a           calendar.DailyActual
			confirmedAt string
		)
		if err := rows.Scan(&a.Date, &a.PlannedMinutes, &a.TrackedMinutes, &a.Source, &confirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan daily actual: %w", err)
		}
		a.ConfirmedAt = parseTime(confirmedAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// SUBMISSION STORE
// =============================================================================

const submissionColumns = `id, week_start, status, last_error, summary_json, attempts, created_at, updated_at`

func (q *queries) CreateWeeklySubmission(ctx context.Context, sub calendar.WeeklySubmission) error {
	summaryJSON, err := json.Marshal(sub.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO weekly_submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.WeekStart, sub.Status, sub.LastError, string(summaryJSON), sub.Attempts,
		formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return calendar.ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to create submission: %w", err)
	}
	return nil
}

func (q *queries) WeeklySubmission(ctx context.Context, id string) (*calendar.WeeklySubmission, error) {
	return q.submissionWhere(ctx, "id = ?", id)
}

func (q *queries) WeeklySubmissionByWeek(ctx context.Context, weekStart calendar.DateKey) (*calendar.WeeklySubmission, error) {
	return q.submissionWhere(ctx, "week_start = ?", weekStart)
}

func (q *queries) submissionWhere(ctx context.Context, where string, arg any) (*calendar.WeeklySubmission, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM weekly_submissions WHERE `+where, arg)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (q *queries) WeeklySubmissions(ctx context.Context, statuses ...calendar.SubmissionStatus) ([]calendar.WeeklySubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM weekly_submissions`
	args := make([]any, len(statuses))
	if len(statuses) > 0 {
		marks := make([]string, len(statuses))
		for i, st := range statuses {
			marks[i], args[i] = "?", st
		}
		query += ` WHERE status IN (` + strings.Join(marks, ", ") + `)`
	}
	query += ` ORDER BY created_at, week_start`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	defer rows.Close()

	var out []calendar.WeeklySubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (q *queries) UpdateWeeklySubmissionStatus(ctx context.Context, id string, status calendar.SubmissionStatus, lastError string) error {
	attempt := 0
	if status == calendar.SubmissionSending {
		attempt = 1
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE weekly_submissions
		SET status = ?, last_error = ?, attempts = attempts + ?, updated_at = ?
		WHERE id = ?`,
		status, lastError, attempt, formatTime(q.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update submission: %w", err)
	}
	return requireRow(res)
}

func (q *queries) DeleteWeeklySubmission(ctx context.Context, id string) error {
	return q.deleteByID(ctx, "weekly_submissions", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (calendar.WeeklySubmission, error) {
	var (
		sub         calendar.WeeklySubmission
		summaryJSON string
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&sub.ID, &sub.WeekStart, &sub.Status, &sub.LastError, &summaryJSON,
		&sub.Attempts, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, err
	}
	if err != nil {
		return sub, fmt.Errorf("failed to scan submission: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &sub.Summary); err != nil {
		return sub, fmt.Errorf("failed to decode summary of %s: %w", sub.ID, err)
	}
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	return sub, nil
}

// Helper functions

// deleteByID removes one row by primary key. table is always a constant.
func (q *queries) deleteByID(ctx context.Context, table, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return requireRow(res)
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	tables := []string{
		"weekly_submissions", "daily_actuals", "day_statuses", "tracking_records",
		"absence_instances", "shift_instances", "absence_templates", "shift_templates",
	}
	return s.WithTx(ctx, func(tx calendar.Storage) error {
		q := tx.(*txStore).queries
		for _, table := range tables {
			if _, err := q.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("reset %s: %w", table, err)
			}
		}
		return nil
	})
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return calendar.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
