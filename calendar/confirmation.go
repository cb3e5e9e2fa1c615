/*
confirmation.go - Day confirmation and unlock

PURPOSE:
  Confirming a past day freezes its planned and tracked totals into a
  DailyActual. Unlocking a day withdraws the weekly submission that locked
  it, provided the backend has not received it yet.

ORDERING:
  Both operations read in-memory state first, persist second and dispatch
  last. A storage failure therefore leaves the calendar untouched, and a
  rejected dispatch after a successful write is reported to the caller.
  ConfirmDay re-reads the stored status inside its transaction, so a lock
  written by the submission queue is never overwritten.

  Dates outside the range held in memory are aggregated from storage,
  with in-memory records taking precedence.

AGGREGATION:
  planned(date) = Σ MinutesOnDate over shift instances on date and date-1
  tracked(date) = Σ per record:
                    start date:   max(minutes on start date - break, 0)
                    next date:    overflow minutes
  Active sessions use now - start as their duration.

SEE ALSO:
  - window.go: MinutesOnDate, SplitAcrossMidnight
  - ../submission: the queue that locks confirmed weeks
*/
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"
)

// ConfirmationEngine confirms and unlocks days against a Calendar and its
// backing storage.
type ConfirmationEngine struct {
	cal     *Calendar
	storage Storage
	logger  *slog.Logger
}

func NewConfirmationEngine(cal *Calendar, storage Storage, logger *slog.Logger) *ConfirmationEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmationEngine{cal: cal, storage: storage, logger: logger}
}

// ConfirmDay computes and persists the daily actual for date, then marks it
// confirmed. Only dates strictly before today may be confirmed. Confirming
// an already confirmed day recomputes the totals but keeps the original
// confirmation time.
func (e *ConfirmationEngine) ConfirmDay(ctx context.Context, date DateKey) (DailyActual, error) {
	if date.IsZero() {
		return DailyActual{}, invalid("date is required")
	}
	now := e.cal.Now()
	if !date.Before(DateKeyOf(now)) {
		return DailyActual{}, rejected(ErrFutureDay, date)
	}

	s := e.cal.State()
	if s.IsLocked(date) {
		return DailyActual{}, rejected(ErrDayLocked, date)
	}
	if !e.cal.Covers(date) {
		var err error
		if s, err = e.withStored(ctx, s, date); err != nil {
			return DailyActual{}, err
		}
	}

	confirmedAt := now
	if prev, ok := s.DayStatus(date); ok && !prev.ConfirmedAt.IsZero() {
		confirmedAt = prev.ConfirmedAt
	}
	actual := ComputeDailyActual(s, date, now)

	var locked error
	err := e.storage.WithTx(ctx, func(tx Storage) error {
		stored, err := tx.DayStatuses(ctx, date, date)
		if err != nil {
			return err
		}
		for _, d := range stored {
			if d.Status == DayLocked {
				locked = rejected(ErrDayLocked, date)
				return locked
			}
			if !d.ConfirmedAt.IsZero() && d.ConfirmedAt.Before(confirmedAt) {
				confirmedAt = d.ConfirmedAt
			}
		}
		actual.ConfirmedAt = confirmedAt
		if err := tx.SaveDailyActual(ctx, actual); err != nil {
			return err
		}
		return tx.SaveDayStatuses(ctx, []ConfirmedDay{{
			Date:        date,
			Status:      DayConfirmed,
			ConfirmedAt: confirmedAt,
		}})
	})
	if locked != nil {
		return DailyActual{}, locked
	}
	if err != nil {
		return DailyActual{}, WrapStorage("confirm day", err)
	}

	if _, err := e.cal.Dispatch(ConfirmDay{Date: date, ConfirmedAt: confirmedAt}); err != nil {
		return DailyActual{}, err
	}

	e.logger.Info("day confirmed",
		"date", date,
		"planned_minutes", actual.PlannedMinutes,
		"tracked_minutes", actual.TrackedMinutes)
	return actual, nil
}

// withStored overlays s on the shifts and tracking stored for date and the
// day before. Records held in memory win.
func (e *ConfirmationEngine) withStored(ctx context.Context, s State, date DateKey) (State, error) {
	shifts, err := e.storage.ShiftInstances(ctx, date.AddDays(-1), date)
	if err != nil {
		return s, WrapStorage("load shift instances", err)
	}
	tracking, err := e.storage.TrackingRecords(ctx, date.AddDays(-1), date)
	if err != nil {
		return s, WrapStorage("load tracking", err)
	}

	merged := s
	merged.ShiftInstances = make(map[string]ShiftInstance, len(shifts)+len(s.ShiftInstances))
	for _, inst := range shifts {
		merged.ShiftInstances[inst.ID] = inst
	}
	copyInto(merged.ShiftInstances, s.ShiftInstances)
	merged.Tracking = make(map[string]TrackingRecord, len(tracking)+len(s.Tracking))
	for _, r := range tracking {
		merged.Tracking[r.ID] = r
	}
	copyInto(merged.Tracking, s.Tracking)
	return merged, nil
}

// UnlockDay withdraws the submission that locked date and returns every date
// it released. A submission already sent, or being sent, cannot be withdrawn.
func (e *ConfirmationEngine) UnlockDay(ctx context.Context, date DateKey) ([]DateKey, error) {
	s := e.cal.State()
	day, ok := s.DayStatus(date)
	if !ok || day.Status != DayLocked {
		return nil, &ValidationError{Reason: ErrInvalidInput, Date: date, Detail: "day is not locked"}
	}

	sub, err := e.storage.WeeklySubmission(ctx, day.SubmissionID)
	if err != nil {
		return nil, WrapStorage("load submission", err)
	}
	if sub != nil {
		switch sub.Status {
		case SubmissionSent:
			return nil, rejected(ErrAlreadySent, date)
		case SubmissionSending:
			return nil, rejected(ErrSendInFlight, date)
		}
	}

	released, err := e.releasedDays(ctx, s, day.SubmissionID, sub)
	if err != nil {
		return nil, err
	}

	err = e.storage.WithTx(ctx, func(tx Storage) error {
		if sub != nil {
			if err := tx.DeleteWeeklySubmission(ctx, sub.ID); err != nil {
				return err
			}
		}
		return tx.SaveDayStatuses(ctx, released)
	})
	if err != nil {
		return nil, WrapStorage("unlock day", err)
	}

	dates := make([]DateKey, len(released))
	for i, d := range released {
		dates[i] = d.Date
	}
	if _, err := e.cal.Dispatch(UnlockConfirmedDays{Dates: dates}); err != nil {
		return nil, err
	}

	e.logger.Info("days unlocked", "submission", day.SubmissionID, "dates", len(dates))
	return dates, nil
}

// releasedDays collects the confirmed statuses that replace every lock held
// by submissionID, both in memory and in storage for the submission's week.
func (e *ConfirmationEngine) releasedDays(ctx context.Context, s State, submissionID string, sub *WeeklySubmission) ([]ConfirmedDay, error) {
	byDate := map[DateKey]ConfirmedDay{}
	for _, date := range s.LockedBy(submissionID) {
		byDate[date] = s.ConfirmedDays[date]
	}
	if sub != nil {
		stored, err := e.storage.DayStatuses(ctx, sub.WeekStart, sub.WeekStart.AddDays(6))
		if err != nil {
			return nil, WrapStorage("load day statuses", err)
		}
		for _, d := range stored {
			if d.Status == DayLocked && d.SubmissionID == submissionID {
				if _, seen := byDate[d.Date]; !seen {
					byDate[d.Date] = d
				}
			}
		}
	}

	dates := slices.Sorted(maps.Keys(byDate))
	out := make([]ConfirmedDay, 0, len(dates))
	for _, date := range dates {
		d := byDate[date]
		d.Status, d.SubmissionID = DayConfirmed, ""
		out = append(out, d)
	}
	return out, nil
}

// WeekProgress counts how far a week is through confirmation.
type WeekProgress struct {
	WeekStart DateKey `json:"weekStart"`
	Confirmed int     `json:"confirmed"`
	Locked    int     `json:"locked"`
}

// ReadyToSubmit reports whether all seven days are confirmed and none is
// locked yet.
func (p WeekProgress) ReadyToSubmit() bool { return p.Confirmed == 7 && p.Locked == 0 }

// WeekProgress reports the confirmation progress of the week starting at
// weekStart.
func (e *ConfirmationEngine) WeekProgress(weekStart DateKey) WeekProgress {
	return ProgressOf(e.cal.State(), weekStart)
}

func ProgressOf(s State, weekStart DateKey) WeekProgress {
	p := WeekProgress{WeekStart: weekStart}
	for _, date := range weekStart.WeekDates() {
		d, ok := s.DayStatus(date)
		switch {
		case !ok:
		case d.Status == DayLocked:
			p.Locked++
		default:
			p.Confirmed++
		}
	}
	return p
}

// =============================================================================
// AGGREGATION
// =============================================================================

// ComputeDailyActual sums planned and tracked minutes on date. ConfirmedAt
// is left for the caller.
func ComputeDailyActual(s State, date DateKey, now time.Time) DailyActual {
	return DailyActual{
		Date:           date,
		PlannedMinutes: PlannedMinutes(s, date),
		TrackedMinutes: TrackedMinutes(s, date, now),
		Source:         trackingSource(s, date, now),
	}
}

// PlannedMinutes sums the minutes of every shift instance falling on date,
// including the overflow of shifts placed the day before.
func PlannedMinutes(s State, date DateKey) int {
	prev := date.AddDays(-1)
	total := 0
	for _, inst := range s.ShiftInstances {
		if inst.Date != date && inst.Date != prev {
			continue
		}
		total += MinutesOnDate(inst.Date, inst.StartTime, inst.DurationMinutes, date)
	}
	return total
}

// TrackedMinutes sums worked minutes on date. A record's break is charged to
// its start date only and never takes that date's share below zero.
func TrackedMinutes(s State, date DateKey, now time.Time) int {
	total := 0
	for _, r := range s.Tracking {
		total += trackedOn(r, date, now)
	}
	return total
}

func trackedOn(r TrackingRecord, date DateKey, now time.Time) int {
	if r.Date != date && r.Date != date.AddDays(-1) {
		return 0
	}
	minutes := MinutesOnDate(r.Date, r.StartTime, r.EffectiveDuration(now), date)
	if r.Date == date {
		minutes = max(minutes-r.BreakMinutes, 0)
	}
	return minutes
}

// trackingSource is the common source of the records contributing to date,
// or mixed when they differ. Records without a source count as manual.
func trackingSource(s State, date DateKey, now time.Time) TrackingSource {
	var source TrackingSource
	for _, r := range s.Tracking {
		if trackedOn(r, date, now) == 0 {
			continue
		}
		rs := r.Source
		if rs == "" {
			rs = SourceManual
		}
		switch {
		case source == "":
			source = rs
		case source != rs:
			return SourceMixed
		}
	}
	return source
}

// String renders progress for logs, e.g. "2024-01-15: 5 confirmed, 0 locked".
func (p WeekProgress) String() string {
	return fmt.Sprintf("%s: %d confirmed, %d locked", p.WeekStart, p.Confirmed, p.Locked)
}
