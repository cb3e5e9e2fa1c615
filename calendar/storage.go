/*
storage.go - Persistence contract consumed by the calendar core

PURPOSE:
  The calendar state and reducer never perform I/O. Callers persist each
  transition through this contract; the confirmation engine and submission
  queue are the only components that call it directly.

KEY INTERFACES:
  TemplateStore:   shift and absence templates
  InstanceStore:   placed shifts and absences
  TrackingStore:   tracked sessions (break and clock-in/out updates)
  DayStore:        confirmed-day statuses and daily actual snapshots
  SubmissionStore: weekly submission records
  Storage:         all of the above plus WithTx for atomic multi-writes

CONVENTIONS:
  - Single-entity getters return (nil, nil) when nothing matches.
  - Updates and deletes of unknown ids return ErrNotFound.
  - Nothing here retries; callers surface failures as StorageError.

IMPLEMENTATIONS:
  - store/memory: in-memory, snapshot rollback (tests, dev)
  - store/sqlite: SQLite with auto-migrated schema
*/
package calendar

import "context"

type TemplateStore interface {
	ShiftTemplates(ctx context.Context) ([]ShiftTemplate, error)
	SaveShiftTemplate(ctx context.Context, t ShiftTemplate) error
	DeleteShiftTemplate(ctx context.Context, id string) error

	AbsenceTemplates(ctx context.Context) ([]AbsenceTemplate, error)
	SaveAbsenceTemplate(ctx context.Context, t AbsenceTemplate) error
	DeleteAbsenceTemplate(ctx context.Context, id string) error
}

type InstanceStore interface {
	// ShiftInstances returns instances dated within [from, to].
	ShiftInstances(ctx context.Context, from, to DateKey) ([]ShiftInstance, error)
	SaveShiftInstance(ctx context.Context, i ShiftInstance) error
	DeleteShiftInstance(ctx context.Context, id string) error

	AbsenceInstances(ctx context.Context, from, to DateKey) ([]AbsenceInstance, error)
	CreateAbsenceInstance(ctx context.Context, a AbsenceInstance) error
	DeleteAbsenceInstance(ctx context.Context, id string) error
}

// SessionUpdate is a partial update of a tracked session. Nil fields are
// left untouched.
type SessionUpdate struct {
	ClockIn         *TimeOfDay
	DurationMinutes *int
	Active          *bool
}

type TrackingStore interface {
	TrackingRecords(ctx context.Context, from, to DateKey) ([]TrackingRecord, error)
	SaveTrackingRecord(ctx context.Context, r TrackingRecord) error
	UpdateTrackingBreak(ctx context.Context, id string, minutes int) error
	UpdateSession(ctx context.Context, id string, u SessionUpdate) error
	DeleteTrackingRecord(ctx context.Context, id string) error
}

type DayStore interface {
	DayStatuses(ctx context.Context, from, to DateKey) ([]ConfirmedDay, error)
	SaveDayStatuses(ctx context.Context, days []ConfirmedDay) error

	SaveDailyActual(ctx context.Context, a DailyActual) error
	DailyActuals(ctx context.Context, from, to DateKey) ([]DailyActual, error)
}

type SubmissionStore interface {
	// CreateWeeklySubmission fails with ErrDuplicateSubmission when a record
	// for the same week already exists.
	CreateWeeklySubmission(ctx context.Context, s WeeklySubmission) error
	WeeklySubmission(ctx context.Context, id string) (*WeeklySubmission, error)
	WeeklySubmissionByWeek(ctx context.Context, weekStart DateKey) (*WeeklySubmission, error)
	// WeeklySubmissions lists records in any of statuses (all when empty),
	// oldest first.
	WeeklySubmissions(ctx context.Context, statuses ...SubmissionStatus) ([]WeeklySubmission, error)
	UpdateWeeklySubmissionStatus(ctx context.Context, id string, status SubmissionStatus, lastError string) error
	DeleteWeeklySubmission(ctx context.Context, id string) error
}

// Storage is the full adapter.
type Storage interface {
	TemplateStore
	InstanceStore
	TrackingStore
	DayStore
	SubmissionStore

	// WithTx runs fn atomically: if fn returns an error every write made
	// through the Storage passed to fn is discarded.
	WithTx(ctx context.Context, fn func(Storage) error) error
}
