/*
reducer.go - The action → state transition function

PURPOSE:
  Reduce is the only way calendar state changes. It is synchronous, does no
  I/O and never mutates its input: every changed collection is copied, so a
  State handed to a subscriber stays valid forever.

REJECTION:
  A rejected action returns the input state unchanged together with a typed
  error (ValidationError, OverlapError or a not-found sentinel).

LOCKING:
  Any instance or tracking mutation touching a locked date is rejected.
  "Touching" includes the next date when the window crosses midnight, since
  the overflow contributes minutes to that date.

SEE ALSO:
  - actions.go: the action types
  - container.go: serialized dispatch and subscriber notification
*/
package calendar

import (
	"fmt"
	"time"
)

// Reduce applies a to s. now is used only to resolve the running end of
// active tracking sessions.
func Reduce(s State, a Action, now time.Time) (State, error) {
	switch a := a.(type) {
	case CreateShiftTemplate:
		return createShiftTemplate(s, a.Template)
	case UpdateShiftTemplate:
		return updateShiftTemplate(s, a.Template)
	case DeleteShiftTemplate:
		return deleteShiftTemplate(s, a.ID)
	case CreateAbsenceTemplate:
		return putAbsenceTemplate(s, a.Template, false)
	case UpdateAbsenceTemplate:
		return putAbsenceTemplate(s, a.Template, true)
	case DeleteAbsenceTemplate:
		return deleteAbsenceTemplate(s, a.ID)

	case CreateShiftInstance:
		return createShiftInstance(s, a.Instance)
	case UpdateShiftInstance:
		return updateShiftInstance(s, a.Instance)
	case DeleteShiftInstance:
		return deleteShiftInstance(s, a.ID)
	case CreateAbsenceInstance:
		return createAbsenceInstance(s, a.Instance)
	case DeleteAbsenceInstance:
		return deleteAbsenceInstance(s, a.ID)

	case ArmTemplate:
		if _, ok := s.ShiftTemplates[a.TemplateID]; !ok {
			return s, ErrTemplateNotFound
		}
		s.ArmedTemplateID, s.ArmedAbsenceTemplateID = a.TemplateID, ""
		return s, nil
	case ArmAbsenceTemplate:
		if _, ok := s.AbsenceTemplates[a.TemplateID]; !ok {
			return s, ErrTemplateNotFound
		}
		s.ArmedTemplateID, s.ArmedAbsenceTemplateID = "", a.TemplateID
		return s, nil
	case Disarm:
		return disarm(s), nil
	case SelectInstance:
		_, isShift := s.ShiftInstances[a.ID]
		_, isAbsence := s.AbsenceInstances[a.ID]
		if !isShift && !isAbsence {
			return s, ErrInstanceNotFound
		}
		return disarm(s), nil
	case PlaceShift:
		return placeShift(s, a)
	case PlaceAbsence:
		return placeAbsence(s, a)

	case ConfirmDay:
		return confirmDay(s, a)
	case LockConfirmedDays:
		return lockDays(s, a)
	case UnlockConfirmedDays:
		return unlockDays(s, a), nil

	case CreateTracking:
		return createTracking(s, a.Record)
	case DeleteTracking:
		return deleteTracking(s, a.ID, now)
	case ReplaceTracking:
		return replaceTracking(s, a.Record, now)
	case UpdateTrackingStart:
		return updateTrackingStart(s, a, now)
	case UpdateTrackingEnd:
		return updateTrackingEnd(s, a, now)
	case UpdateTrackingBreak:
		return updateTrackingBreak(s, a, now)

	case Hydrate:
		return hydrate(s, a.Snapshot, a.Skip), nil
	case RefreshTracking:
		return refreshTracking(s, a), nil
	}
	return s, invalid(fmt.Sprintf("unknown action %T", a))
}

// =============================================================================
// TEMPLATES
// =============================================================================

func createShiftTemplate(s State, t ShiftTemplate) (State, error) {
	if err := t.Validate(); err != nil {
		return s, err
	}
	if _, exists := s.ShiftTemplates[t.ID]; exists {
		return s, invalid(fmt.Sprintf("template %s already exists", t.ID))
	}
	s.ShiftTemplates = with(s.ShiftTemplates, t.ID, t)
	return s, nil
}

func updateShiftTemplate(s State, t ShiftTemplate) (State, error) {
	if _, exists := s.ShiftTemplates[t.ID]; !exists {
		return s, ErrTemplateNotFound
	}
	if err := t.Validate(); err != nil {
		return s, err
	}
	s.ShiftTemplates = with(s.ShiftTemplates, t.ID, t)
	return s, nil
}

func deleteShiftTemplate(s State, id string) (State, error) {
	if _, exists := s.ShiftTemplates[id]; !exists {
		return s, ErrTemplateNotFound
	}
	s.ShiftTemplates = without(s.ShiftTemplates, id)
	if s.ArmedTemplateID == id {
		s.ArmedTemplateID = ""
	}
	return s, nil
}

func putAbsenceTemplate(s State, t AbsenceTemplate, update bool) (State, error) {
	_, exists := s.AbsenceTemplates[t.ID]
	if update && !exists {
		return s, ErrTemplateNotFound
	}
	if !update && exists {
		return s, invalid(fmt.Sprintf("absence template %s already exists", t.ID))
	}
	if err := t.Validate(); err != nil {
		return s, err
	}
	s.AbsenceTemplates = with(s.AbsenceTemplates, t.ID, t)
	return s, nil
}

func deleteAbsenceTemplate(s State, id string) (State, error) {
	if _, exists := s.AbsenceTemplates[id]; !exists {
		return s, ErrTemplateNotFound
	}
	s.AbsenceTemplates = without(s.AbsenceTemplates, id)
	if s.ArmedAbsenceTemplateID == id {
		s.ArmedAbsenceTemplateID = ""
	}
	return s, nil
}

// =============================================================================
// INSTANCES
// =============================================================================

func createShiftInstance(s State, inst ShiftInstance) (State, error) {
	if err := inst.Validate(); err != nil {
		return s, err
	}
	if _, exists := s.ShiftInstances[inst.ID]; exists {
		return s, invalid(fmt.Sprintf("instance %s already exists", inst.ID))
	}
	if err := checkWindowUnlocked(s, inst.Date, inst.StartTime, inst.DurationMinutes); err != nil {
		return s, err
	}
	if err := checkOverlap(s, inst, ""); err != nil {
		return s, err
	}
	s.ShiftInstances = with(s.ShiftInstances, inst.ID, inst)
	return s, nil
}

func updateShiftInstance(s State, inst ShiftInstance) (State, error) {
	prev, exists := s.ShiftInstances[inst.ID]
	if !exists {
		return s, ErrInstanceNotFound
	}
	if err := inst.Validate(); err != nil {
		return s, err
	}
	if err := checkWindowUnlocked(s, prev.Date, prev.StartTime, prev.DurationMinutes); err != nil {
		return s, err
	}
	if err := checkWindowUnlocked(s, inst.Date, inst.StartTime, inst.DurationMinutes); err != nil {
		return s, err
	}
	if err := checkOverlap(s, inst, inst.ID); err != nil {
		return s, err
	}
	s.ShiftInstances = with(s.ShiftInstances, inst.ID, inst)
	return disarm(s), nil
}

func deleteShiftInstance(s State, id string) (State, error) {
	inst, exists := s.ShiftInstances[id]
	if !exists {
		return s, ErrInstanceNotFound
	}
	if err := checkWindowUnlocked(s, inst.Date, inst.StartTime, inst.DurationMinutes); err != nil {
		return s, err
	}
	s.ShiftInstances = without(s.ShiftInstances, id)
	return disarm(s), nil
}

func createAbsenceInstance(s State, inst AbsenceInstance) (State, error) {
	if inst.ID == "" || inst.Date.IsZero() || !inst.Type.Valid() {
		return s, invalid("absence instance requires id, date and a known type")
	}
	if _, exists := s.AbsenceInstances[inst.ID]; exists {
		return s, invalid(fmt.Sprintf("absence %s already exists", inst.ID))
	}
	if s.IsLocked(inst.Date) {
		return s, rejected(ErrDayLocked, inst.Date)
	}
	s.AbsenceInstances = with(s.AbsenceInstances, inst.ID, inst)
	return s, nil
}

func deleteAbsenceInstance(s State, id string) (State, error) {
	inst, exists := s.AbsenceInstances[id]
	if !exists {
		return s, ErrInstanceNotFound
	}
	if s.IsLocked(inst.Date) {
		return s, rejected(ErrDayLocked, inst.Date)
	}
	s.AbsenceInstances = without(s.AbsenceInstances, id)
	return disarm(s), nil
}

// =============================================================================
// PLACEMENT
// =============================================================================

func disarm(s State) State {
	s.ArmedTemplateID, s.ArmedAbsenceTemplateID = "", ""
	return s
}

func placeShift(s State, a PlaceShift) (State, error) {
	if s.ArmedTemplateID == "" {
		return s, rejected(ErrNoArmedTemplate, a.Date)
	}
	tmpl, ok := s.ShiftTemplates[s.ArmedTemplateID]
	if !ok {
		return s, ErrTemplateNotFound
	}
	start := tmpl.StartTime
	if a.TimeSlot != nil {
		start = *a.TimeSlot
	}
	return createShiftInstance(s, ShiftInstance{
		ID:              a.InstanceID,
		TemplateID:      tmpl.ID,
		Date:            a.Date,
		StartTime:       start,
		DurationMinutes: tmpl.DurationMinutes,
		Name:            tmpl.Name,
		Color:           tmpl.Color,
	})
}

func placeAbsence(s State, a PlaceAbsence) (State, error) {
	if s.ArmedAbsenceTemplateID == "" {
		return s, rejected(ErrNoArmedTemplate, a.Date)
	}
	tmpl, ok := s.AbsenceTemplates[s.ArmedAbsenceTemplateID]
	if !ok {
		return s, ErrTemplateNotFound
	}
	return createAbsenceInstance(s, AbsenceInstance{
		ID:              a.InstanceID,
		TemplateID:      tmpl.ID,
		Date:            a.Date,
		Type:            tmpl.Type,
		IsFullDay:       tmpl.IsFullDay,
		StartTime:       tmpl.StartTime,
		DurationMinutes: tmpl.DurationMinutes,
		Name:            tmpl.Name,
		Color:           tmpl.Color,
	})
}

func checkOverlap(s State, inst ShiftInstance, excludeID string) error {
	conflict, found := FindOverlappingInstance(inst.Date, inst.StartTime, inst.DurationMinutes, s.InstancesOn(inst.Date), excludeID)
	if found {
		return &OverlapError{Date: inst.Date, Conflict: conflict}
	}
	return nil
}

// checkWindowUnlocked rejects a window whose own date, or the next date
// when it crosses midnight, is locked.
func checkWindowUnlocked(s State, date DateKey, start TimeOfDay, duration int) error {
	if s.IsLocked(date) {
		return rejected(ErrDayLocked, date)
	}
	if start.Minutes()+duration > MinutesPerDay && s.IsLocked(date.AddDays(1)) {
		return rejected(ErrDayLocked, date.AddDays(1))
	}
	return nil
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func confirmDay(s State, a ConfirmDay) (State, error) {
	if a.Date.IsZero() {
		return s, invalid("date is required")
	}
	if s.IsLocked(a.Date) {
		return s, rejected(ErrDayLocked, a.Date)
	}
	s.ConfirmedDays = with(s.ConfirmedDays, a.Date, ConfirmedDay{
		Date:        a.Date,
		Status:      DayConfirmed,
		ConfirmedAt: a.ConfirmedAt,
	})
	return s, nil
}

func lockDays(s State, a LockConfirmedDays) (State, error) {
	if a.SubmissionID == "" {
		return s, invalid("submission id is required to lock days")
	}
	for _, date := range a.Dates {
		d, ok := s.ConfirmedDays[date]
		switch {
		case !ok:
			return s, rejected(ErrDayNotConfirmed, date)
		case d.Status == DayLocked && d.SubmissionID != a.SubmissionID:
			return s, rejected(ErrDayLocked, date)
		}
	}
	days := cloneMap(s.ConfirmedDays)
	for _, date := range a.Dates {
		d := days[date]
		d.Status, d.SubmissionID = DayLocked, a.SubmissionID
		days[date] = d
	}
	s.ConfirmedDays = days
	return s, nil
}

func unlockDays(s State, a UnlockConfirmedDays) State {
	days := cloneMap(s.ConfirmedDays)
	for _, date := range a.Dates {
		d, ok := days[date]
		if !ok || d.Status != DayLocked {
			continue
		}
		d.Status, d.SubmissionID = DayConfirmed, ""
		days[date] = d
	}
	s.ConfirmedDays = days
	return s
}

// =============================================================================
// TRACKING
// =============================================================================

func checkRecordUnlocked(s State, r TrackingRecord, now time.Time) error {
	return checkWindowUnlocked(s, r.Date, r.StartTime, r.EffectiveDuration(now))
}

func createTracking(s State, r TrackingRecord) (State, error) {
	if err := r.Validate(); err != nil {
		return s, err
	}
	if _, exists := s.Tracking[r.ID]; exists {
		return s, invalid(fmt.Sprintf("tracking record %s already exists", r.ID))
	}
	if err := checkWindowUnlocked(s, r.Date, r.StartTime, r.DurationMinutes); err != nil {
		return s, err
	}
	s.Tracking = with(s.Tracking, r.ID, r)
	return s, nil
}

func deleteTracking(s State, id string, now time.Time) (State, error) {
	r, exists := s.Tracking[id]
	if !exists {
		return s, ErrTrackingNotFound
	}
	if err := checkRecordUnlocked(s, r, now); err != nil {
		return s, err
	}
	s.Tracking = without(s.Tracking, id)
	return s, nil
}

func replaceTracking(s State, r TrackingRecord, now time.Time) (State, error) {
	if err := r.Validate(); err != nil {
		return s, err
	}
	if prev, exists := s.Tracking[r.ID]; exists {
		if err := checkRecordUnlocked(s, prev, now); err != nil {
			return s, err
		}
	}
	if err := checkRecordUnlocked(s, r, now); err != nil {
		return s, err
	}
	s.Tracking = with(s.Tracking, r.ID, r)
	return s, nil
}

// updateTrackingStart keeps the end fixed and clamps the new start so the
// record never drops below MinTrackingMinutes.
func updateTrackingStart(s State, a UpdateTrackingStart, now time.Time) (State, error) {
	r, exists := s.Tracking[a.ID]
	if !exists {
		return s, ErrTrackingNotFound
	}
	if !a.NewStart.Valid() {
		return s, invalid("start time out of range")
	}
	if err := checkRecordUnlocked(s, r, now); err != nil {
		return s, err
	}
	end := r.End(now)
	start := min(a.NewStart.Minutes(), end-MinTrackingMinutes)
	start = min(max(start, 0), MinutesPerDay-1)

	r.StartTime = TimeOfDay(start)
	if !r.IsActive {
		r.DurationMinutes = max(end-start, MinTrackingMinutes)
	}
	return replaceTracking(s, r, now)
}

// updateTrackingEnd keeps the start fixed. An end earlier than the start is
// read as the next day only when the record already crossed midnight;
// otherwise it is clamped to start+MinTrackingMinutes.
func updateTrackingEnd(s State, a UpdateTrackingEnd, now time.Time) (State, error) {
	r, exists := s.Tracking[a.ID]
	if !exists {
		return s, ErrTrackingNotFound
	}
	if !a.NewEnd.Valid() {
		return s, invalid("end time out of range")
	}
	if err := checkRecordUnlocked(s, r, now); err != nil {
		return s, err
	}
	start := r.StartTime.Minutes()
	end := a.NewEnd.Minutes()
	if end < start && r.End(now) > MinutesPerDay {
		end += MinutesPerDay
	}
	end = max(end, start+MinTrackingMinutes)

	r.DurationMinutes = end - start
	r.IsActive = false
	return replaceTracking(s, r, now)
}

func updateTrackingBreak(s State, a UpdateTrackingBreak, now time.Time) (State, error) {
	r, exists := s.Tracking[a.ID]
	if !exists {
		return s, ErrTrackingNotFound
	}
	if a.Minutes < 0 {
		return s, invalid("break cannot be negative")
	}
	if err := checkRecordUnlocked(s, r, now); err != nil {
		return s, err
	}
	r.BreakMinutes = a.Minutes
	s.Tracking = with(s.Tracking, r.ID, r)
	return s, nil
}

// =============================================================================
// LOADING
// =============================================================================

func hydrate(s State, snap State, skip map[string]bool) State {
	next := NewState()
	copyInto(next.ShiftTemplates, snap.ShiftTemplates)
	copyInto(next.AbsenceTemplates, snap.AbsenceTemplates)
	copyInto(next.ShiftInstances, snap.ShiftInstances)
	copyInto(next.AbsenceInstances, snap.AbsenceInstances)
	copyInto(next.Tracking, snap.Tracking)
	copyInto(next.ConfirmedDays, snap.ConfirmedDays)
	keepLocal(next.Tracking, s.Tracking, skip)

	if _, ok := next.ShiftTemplates[s.ArmedTemplateID]; ok {
		next.ArmedTemplateID = s.ArmedTemplateID
	}
	if _, ok := next.AbsenceTemplates[s.ArmedAbsenceTemplateID]; ok {
		next.ArmedAbsenceTemplateID = s.ArmedAbsenceTemplateID
	}
	return next
}

func refreshTracking(s State, a RefreshTracking) State {
	if !a.Reload {
		s.Tracking = cloneMap(s.Tracking)
		return s
	}
	fresh := make(map[string]TrackingRecord, len(a.Records))
	for _, r := range a.Records {
		fresh[r.ID] = r
	}
	keepLocal(fresh, s.Tracking, a.Skip)
	s.Tracking = fresh
	return s
}

// keepLocal overwrites fresh with the local version of every id in skip,
// including its absence.
func keepLocal(fresh, local map[string]TrackingRecord, skip map[string]bool) {
	for id := range skip {
		if r, ok := local[id]; ok {
			fresh[id] = r
		} else {
			delete(fresh, id)
		}
	}
}

// =============================================================================
// COPY-ON-WRITE HELPERS
// =============================================================================

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m)+1)
	copyInto(out, m)
	return out
}

func copyInto[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func with[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := cloneMap(m)
	out[k] = v
	return out
}

func without[K comparable, V any](m map[K]V, k K) map[K]V {
	out := cloneMap(m)
	delete(out, k)
	return out
}
