/*
Package calendar is the scheduling core of the shift calendar.

PURPOSE:
  Holds the in-memory calendar state (templates, instances, tracking
  records, confirmed days), the pure reducer that mutates it, the
  confirmation engine that turns a past day into a persisted daily actual,
  and the storage contract everything persists through.

KEY CONCEPTS IN THIS FILE (types.go):
  - Template: reusable shift or absence definition
  - Instance: a template placed on a concrete date (name/color denormalized)
  - TrackingRecord: an actually worked session, possibly still running
  - ConfirmedDay: per-date confirmation/lock status
  - DailyActual: the persisted planned vs. tracked snapshot of a day
  - WeeklySubmission: a week queued for the backend

DAY STATUS MACHINE:
  unconfirmed ──confirm──▶ confirmed ──lock (enqueue)──▶ locked
                               ▲                           │
                               └────────── unlock ─────────┘

SEE ALSO:
  - window.go: time window arithmetic
  - reducer.go: the action → state transition function
  - confirmation.go: day confirmation and unlock
  - storage.go: persistence contract
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// TEMPLATES
// =============================================================================

// ShiftTemplate is a reusable shift definition.
type ShiftTemplate struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	StartTime       TimeOfDay `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Color           string    `json:"color"`
	BreakMinutes    int       `json:"breakMinutes"`
}

func (t ShiftTemplate) Validate() error {
	switch {
	case t.ID == "":
		return invalid("template id is required")
	case t.Name == "":
		return invalid("template name is required")
	case !t.StartTime.Valid():
		return invalid("template start time out of range")
	case t.DurationMinutes <= 0 || t.DurationMinutes > MinutesPerDay:
		return invalid(fmt.Sprintf("template duration must be 1..%d minutes", MinutesPerDay))
	case t.BreakMinutes < 0:
		return invalid("template break cannot be negative")
	}
	return nil
}

type AbsenceType string

const (
	AbsenceVacation AbsenceType = "vacation"
	AbsenceSick     AbsenceType = "sick"
)

func (t AbsenceType) Valid() bool { return t == AbsenceVacation || t == AbsenceSick }

// AbsenceTemplate is a reusable absence definition. Full-day templates
// ignore StartTime and DurationMinutes.
type AbsenceTemplate struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Type            AbsenceType `json:"type"`
	IsFullDay       bool        `json:"isFullDay"`
	StartTime       TimeOfDay   `json:"startTime"`
	DurationMinutes int         `json:"durationMinutes"`
	Color           string      `json:"color"`
}

func (t AbsenceTemplate) Validate() error {
	switch {
	case t.ID == "":
		return invalid("absence template id is required")
	case t.Name == "":
		return invalid("absence template name is required")
	case !t.Type.Valid():
		return invalid(fmt.Sprintf("unknown absence type %q", t.Type))
	case t.IsFullDay:
		return nil
	case !t.StartTime.Valid():
		return invalid("absence start time out of range")
	case t.DurationMinutes <= 0 || t.DurationMinutes > MinutesPerDay:
		return invalid(fmt.Sprintf("absence duration must be 1..%d minutes", MinutesPerDay))
	}
	return nil
}

// =============================================================================
// INSTANCES
// =============================================================================

// ShiftInstance is a shift placed on a date. TemplateID is a weak reference:
// the template may have been deleted since, which leaves the instance
// orphaned but otherwise intact.
type ShiftInstance struct {
	ID              string    `json:"id"`
	TemplateID      string    `json:"templateId"`
	Date            DateKey   `json:"date"`
	StartTime       TimeOfDay `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Name            string    `json:"name"`
	Color           string    `json:"color"`
}

// Window returns [start, end) in day-minutes of Date; end may exceed 1440.
func (i ShiftInstance) Window() (int, int) {
	return i.StartTime.Minutes(), i.StartTime.Minutes() + i.DurationMinutes
}

func (i ShiftInstance) Validate() error {
	switch {
	case i.ID == "":
		return invalid("instance id is required")
	case i.Date.IsZero():
		return invalid("instance date is required")
	case !i.StartTime.Valid():
		return invalid("instance start time out of range")
	case i.DurationMinutes <= 0 || i.DurationMinutes > MinutesPerDay:
		return invalid(fmt.Sprintf("instance duration must be 1..%d minutes", MinutesPerDay))
	}
	return nil
}

// AbsenceInstance is an absence placed on a date. Absences may overlap
// shifts; dimming affected shifts is a presentation concern.
type AbsenceInstance struct {
	ID              string      `json:"id"`
	TemplateID      string      `json:"templateId"`
	Date            DateKey     `json:"date"`
	Type            AbsenceType `json:"type"`
	IsFullDay       bool        `json:"isFullDay"`
	StartTime       TimeOfDay   `json:"startTime"`
	DurationMinutes int         `json:"durationMinutes"`
	Name            string      `json:"name"`
	Color           string      `json:"color"`
}

// Window returns [start, end) in day-minutes. Full-day absences occupy
// 00:00 through 23:59.
func (a AbsenceInstance) Window() (int, int) {
	if a.IsFullDay {
		return 0, MinutesPerDay - 1
	}
	return a.StartTime.Minutes(), a.StartTime.Minutes() + a.DurationMinutes
}

// =============================================================================
// TRACKING
// =============================================================================

// TrackingSource records how a session was captured.
type TrackingSource string

const (
	SourceManual   TrackingSource = "manual"
	SourceGeofence TrackingSource = "geofence"
	SourceMixed    TrackingSource = "mixed"
)

// TrackingRecord is an actually worked session. Active records have no
// fixed end: their duration is now − start, recomputed on every read.
type TrackingRecord struct {
	ID              string         `json:"id"`
	Date            DateKey        `json:"date"`
	StartTime       TimeOfDay      `json:"startTime"`
	DurationMinutes int            `json:"durationMinutes"`
	BreakMinutes    int            `json:"breakMinutes"`
	IsActive        bool           `json:"isActive"`
	Source          TrackingSource `json:"source,omitempty"`
}

// EffectiveDuration returns the stored duration, or for an active record the
// whole minutes elapsed between its start and now (never negative).
func (r TrackingRecord) EffectiveDuration(now time.Time) int {
	if !r.IsActive {
		return r.DurationMinutes
	}
	startedAt := r.Date.Time(now.Location()).Add(time.Duration(r.StartTime.Minutes()) * time.Minute)
	elapsed := int(now.Sub(startedAt) / time.Minute)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// End returns the end of the record in day-minutes of Date (may exceed 1440).
func (r TrackingRecord) End(now time.Time) int {
	return r.StartTime.Minutes() + r.EffectiveDuration(now)
}

func (r TrackingRecord) Validate() error {
	switch {
	case r.ID == "":
		return invalid("tracking id is required")
	case r.Date.IsZero():
		return invalid("tracking date is required")
	case !r.StartTime.Valid():
		return invalid("tracking start time out of range")
	case !r.IsActive && r.DurationMinutes < MinTrackingMinutes:
		return invalid(fmt.Sprintf("tracking duration must be at least %d minutes", MinTrackingMinutes))
	case r.BreakMinutes < 0:
		return invalid("tracking break cannot be negative")
	}
	return nil
}

// =============================================================================
// CONFIRMATION
// =============================================================================

type DayStatus string

const (
	DayConfirmed DayStatus = "confirmed"
	DayLocked    DayStatus = "locked"
)

// ConfirmedDay is the status of a date that has left "unconfirmed".
// SubmissionID is set while the day is locked by a weekly submission.
type ConfirmedDay struct {
	Date         DateKey   `json:"date"`
	Status       DayStatus `json:"status"`
	ConfirmedAt  time.Time `json:"confirmedAt"`
	SubmissionID string    `json:"submissionId,omitempty"`
}

// DailyActual is the persisted snapshot written when a day is confirmed.
type DailyActual struct {
	Date           DateKey        `json:"date"`
	PlannedMinutes int            `json:"plannedMinutes"`
	TrackedMinutes int            `json:"trackedMinutes"`
	Source         TrackingSource `json:"source,omitempty"`
	ConfirmedAt    time.Time      `json:"confirmedAt"`
}

// =============================================================================
// WEEKLY SUBMISSION
// =============================================================================

type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionSending SubmissionStatus = "sending"
	SubmissionSent    SubmissionStatus = "sent"
	SubmissionFailed  SubmissionStatus = "failed"
)

// Retryable reports whether a record in this status may be (re)sent.
func (s SubmissionStatus) Retryable() bool {
	return s == SubmissionPending || s == SubmissionFailed
}

// WeeklySummary is the payload sent to the backend for one week.
type WeeklySummary struct {
	WeekStart      DateKey       `json:"weekStartKey"`
	PlannedMinutes int           `json:"plannedMinutes"`
	TrackedMinutes int           `json:"trackedMinutes"`
	Days           []DailyActual `json:"perDayBreakdown"`
}

// WeeklySubmission tracks one week through the submission queue. Only the
// queue writes Status.
type WeeklySubmission struct {
	ID        string           `json:"id"`
	WeekStart DateKey          `json:"weekStartKey"`
	Status    SubmissionStatus `json:"status"`
	LastError string           `json:"lastError,omitempty"`
	Summary   WeeklySummary    `json:"summary"`
	Attempts  int              `json:"attempts"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
