/*
command.go - Optimistic commands with explicit compensation

PURPOSE:
  UI intents are applied to memory first and persisted after. Execute makes
  every step explicit:

    1. validate against the current state  (Reduce, synchronous)
    2. apply the transition                 (Calendar.Dispatch)
    3. persist                              (Storage, may fail)
    4. on failure, dispatch the inverse     (compensating actions)

  The caller gets a StorageError and the calendar is back at its pre-action
  values for the touched entities. Nothing is retried here.

NOT HANDLED HERE:
  ConfirmDay, LockConfirmedDays and UnlockConfirmedDays persist before they
  transition; they belong to ConfirmationEngine and the submission queue.
*/
package calendar

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Executor runs actions against a Calendar and persists their effects.
type Executor struct {
	Calendar *Calendar
	Storage  Storage
	Logger   *slog.Logger
	NewID    func() string
}

func NewExecutor(cal *Calendar, storage Storage, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{Calendar: cal, Storage: storage, Logger: logger, NewID: uuid.NewString}
}

// PlaceShift places the armed template on date and persists the instance.
func (e *Executor) PlaceShift(ctx context.Context, date DateKey, slot *TimeOfDay) (ShiftInstance, error) {
	id := e.NewID()
	next, err := e.Execute(ctx, PlaceShift{Date: date, TimeSlot: slot, InstanceID: id})
	if err != nil {
		return ShiftInstance{}, err
	}
	return next.ShiftInstances[id], nil
}

// PlaceAbsence places the armed absence template on date.
func (e *Executor) PlaceAbsence(ctx context.Context, date DateKey) (AbsenceInstance, error) {
	id := e.NewID()
	next, err := e.Execute(ctx, PlaceAbsence{Date: date, InstanceID: id})
	if err != nil {
		return AbsenceInstance{}, err
	}
	return next.AbsenceInstances[id], nil
}

// Execute validates and applies a, persists it, and compensates on failure.
func (e *Executor) Execute(ctx context.Context, a Action) (State, error) {
	switch a.(type) {
	case ConfirmDay, LockConfirmedDays, UnlockConfirmedDays:
		return e.Calendar.State(), invalid(fmt.Sprintf("%s must go through its owning engine", a.actionName()))
	}

	if id := trackingID(a); id != "" {
		e.Calendar.markDirty(id)
		defer e.Calendar.clearDirty(id)
	}

	prev, next, err := e.Calendar.dispatch(a)
	if err != nil {
		return prev, err
	}

	if err := e.persist(ctx, a, next); err != nil {
		e.Logger.Warn("persist failed, compensating", "action", a.actionName(), "error", err)
		for _, inverse := range compensate(a, prev) {
			if _, cerr := e.Calendar.Dispatch(inverse); cerr != nil {
				e.Logger.Error("compensation rejected", "action", inverse.actionName(), "error", cerr)
			}
		}
		return e.Calendar.State(), WrapStorage(a.actionName(), err)
	}
	return next, nil
}

func (e *Executor) persist(ctx context.Context, a Action, next State) error {
	s := e.Storage
	switch a := a.(type) {
	case CreateShiftTemplate:
		return s.SaveShiftTemplate(ctx, a.Template)
	case UpdateShiftTemplate:
		return s.SaveShiftTemplate(ctx, a.Template)
	case DeleteShiftTemplate:
		return s.DeleteShiftTemplate(ctx, a.ID)
	case CreateAbsenceTemplate:
		return s.SaveAbsenceTemplate(ctx, a.Template)
	case UpdateAbsenceTemplate:
		return s.SaveAbsenceTemplate(ctx, a.Template)
	case DeleteAbsenceTemplate:
		return s.DeleteAbsenceTemplate(ctx, a.ID)

	case CreateShiftInstance:
		return s.SaveShiftInstance(ctx, a.Instance)
	case UpdateShiftInstance:
		return s.SaveShiftInstance(ctx, a.Instance)
	case PlaceShift:
		return s.SaveShiftInstance(ctx, next.ShiftInstances[a.InstanceID])
	case DeleteShiftInstance:
		return s.DeleteShiftInstance(ctx, a.ID)
	case CreateAbsenceInstance:
		return s.CreateAbsenceInstance(ctx, a.Instance)
	case PlaceAbsence:
		return s.CreateAbsenceInstance(ctx, next.AbsenceInstances[a.InstanceID])
	case DeleteAbsenceInstance:
		return s.DeleteAbsenceInstance(ctx, a.ID)

	case CreateTracking:
		return s.SaveTrackingRecord(ctx, a.Record)
	case ReplaceTracking:
		return s.SaveTrackingRecord(ctx, a.Record)
	case DeleteTracking:
		return s.DeleteTrackingRecord(ctx, a.ID)
	case UpdateTrackingStart:
		r := next.Tracking[a.ID]
		start, dur := r.StartTime, r.DurationMinutes
		return s.UpdateSession(ctx, a.ID, SessionUpdate{ClockIn: &start, DurationMinutes: &dur})
	case UpdateTrackingEnd:
		r := next.Tracking[a.ID]
		dur, active := r.DurationMinutes, r.IsActive
		return s.UpdateSession(ctx, a.ID, SessionUpdate{DurationMinutes: &dur, Active: &active})
	case UpdateTrackingBreak:
		return s.UpdateTrackingBreak(ctx, a.ID, a.Minutes)
	}
	// Arming, selection, hydration and refresh are memory-only.
	return nil
}

// compensate returns the actions that undo a, given the state a was
// applied to.
func compensate(a Action, prev State) []Action {
	rearm := func() []Action {
		switch {
		case prev.ArmedTemplateID != "":
			return []Action{ArmTemplate{TemplateID: prev.ArmedTemplateID}}
		case prev.ArmedAbsenceTemplateID != "":
			return []Action{ArmAbsenceTemplate{TemplateID: prev.ArmedAbsenceTemplateID}}
		}
		return nil
	}

	switch a := a.(type) {
	case CreateShiftTemplate:
		return []Action{DeleteShiftTemplate{ID: a.Template.ID}}
	case UpdateShiftTemplate:
		return []Action{UpdateShiftTemplate{Template: prev.ShiftTemplates[a.Template.ID]}}
	case DeleteShiftTemplate:
		return append([]Action{CreateShiftTemplate{Template: prev.ShiftTemplates[a.ID]}}, rearm()...)
	case CreateAbsenceTemplate:
		return []Action{DeleteAbsenceTemplate{ID: a.Template.ID}}
	case UpdateAbsenceTemplate:
		return []Action{UpdateAbsenceTemplate{Template: prev.AbsenceTemplates[a.Template.ID]}}
	case DeleteAbsenceTemplate:
		return append([]Action{CreateAbsenceTemplate{Template: prev.AbsenceTemplates[a.ID]}}, rearm()...)

	case CreateShiftInstance:
		return []Action{DeleteShiftInstance{ID: a.Instance.ID}}
	case PlaceShift:
		return append([]Action{DeleteShiftInstance{ID: a.InstanceID}}, rearm()...)
	case UpdateShiftInstance:
		return append([]Action{UpdateShiftInstance{Instance: prev.ShiftInstances[a.Instance.ID]}}, rearm()...)
	case DeleteShiftInstance:
		return append([]Action{CreateShiftInstance{Instance: prev.ShiftInstances[a.ID]}}, rearm()...)
	case CreateAbsenceInstance:
		return []Action{DeleteAbsenceInstance{ID: a.Instance.ID}}
	case PlaceAbsence:
		return append([]Action{DeleteAbsenceInstance{ID: a.InstanceID}}, rearm()...)
	case DeleteAbsenceInstance:
		return append([]Action{CreateAbsenceInstance{Instance: prev.AbsenceInstances[a.ID]}}, rearm()...)

	case CreateTracking:
		return []Action{DeleteTracking{ID: a.Record.ID}}
	case DeleteTracking:
		return []Action{ReplaceTracking{Record: prev.Tracking[a.ID]}}
	case ReplaceTracking:
		if old, ok := prev.Tracking[a.Record.ID]; ok {
			return []Action{ReplaceTracking{Record: old}}
		}
		return []Action{DeleteTracking{ID: a.Record.ID}}
	case UpdateTrackingStart:
		return []Action{ReplaceTracking{Record: prev.Tracking[a.ID]}}
	case UpdateTrackingEnd:
		return []Action{ReplaceTracking{Record: prev.Tracking[a.ID]}}
	case UpdateTrackingBreak:
		return []Action{ReplaceTracking{Record: prev.Tracking[a.ID]}}
	}
	return nil
}

func trackingID(a Action) string {
	switch a := a.(type) {
	case CreateTracking:
		return a.Record.ID
	case ReplaceTracking:
		return a.Record.ID
	case DeleteTracking:
		return a.ID
	case UpdateTrackingStart:
		return a.ID
	case UpdateTrackingEnd:
		return a.ID
	case UpdateTrackingBreak:
		return a.ID
	}
	return ""
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the visible range [from, to] from storage into a State.
// Instances and tracking from the day before from are included so overflow
// past midnight into the range is visible.
func Load(ctx context.Context, storage Storage, from, to DateKey) (State, error) {
	s := NewState()
	shiftTemplates, err := storage.ShiftTemplates(ctx)
	if err != nil {
		return s, WrapStorage("load shift templates", err)
	}
	absenceTemplates, err := storage.AbsenceTemplates(ctx)
	if err != nil {
		return s, WrapStorage("load absence templates", err)
	}
	shifts, err := storage.ShiftInstances(ctx, from.AddDays(-1), to)
	if err != nil {
		return s, WrapStorage("load shift instances", err)
	}
	absences, err := storage.AbsenceInstances(ctx, from, to)
	if err != nil {
		return s, WrapStorage("load absence instances", err)
	}
	tracking, err := storage.TrackingRecords(ctx, from.AddDays(-1), to)
	if err != nil {
		return s, WrapStorage("load tracking", err)
	}
	days, err := storage.DayStatuses(ctx, from.AddDays(-1), to.AddDays(1))
	if err != nil {
		return s, WrapStorage("load day statuses", err)
	}

	for _, t := range shiftTemplates {
		s.ShiftTemplates[t.ID] = t
	}
	for _, t := range absenceTemplates {
		s.AbsenceTemplates[t.ID] = t
	}
	for _, i := range shifts {
		s.ShiftInstances[i.ID] = i
	}
	for _, a := range absences {
		s.AbsenceInstances[a.ID] = a
	}
	for _, r := range tracking {
		s.Tracking[r.ID] = r
	}
	for _, d := range days {
		s.ConfirmedDays[d.Date] = d
	}
	return s, nil
}
