// Package memory provides an in-memory calendar.Storage for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/shift-calendar/calendar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu   sync.RWMutex
	data *data

	// Now stamps submission updates; defaults to time.Now.
	Now func() time.Time
}

type data struct {
	shiftTemplates   map[string]calendar.ShiftTemplate
	absenceTemplates map[string]calendar.AbsenceTemplate
	shifts           map[string]calendar.ShiftInstance
	absences         map[string]calendar.AbsenceInstance
	tracking         map[string]calendar.TrackingRecord
	days             map[calendar.DateKey]calendar.ConfirmedDay
	actuals          map[calendar.DateKey]calendar.DailyActual
	submissions      map[string]calendar.WeeklySubmission
	now              func() time.Time
}

func New() *Store {
	s := &Store{Now: time.Now}
	s.data = &data{
		shiftTemplates:   map[string]calendar.ShiftTemplate{},
		absenceTemplates: map[string]calendar.AbsenceTemplate{},
		shifts:           map[string]calendar.ShiftInstance{},
		absences:         map[string]calendar.AbsenceInstance{},
		tracking:         map[string]calendar.TrackingRecord{},
		days:             map[calendar.DateKey]calendar.ConfirmedDay{},
		actuals:          map[calendar.DateKey]calendar.DailyActual{},
		submissions:      map[string]calendar.WeeklySubmission{},
		now:              func() time.Time { return s.Now() },
	}
	return s
}

var _ calendar.Storage = (*Store)(nil)

func read[T any](s *Store, fn func(d *data) (T, error)) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(fn func(d *data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (s *Store) WithTx(ctx context.Context, fn func(calendar.Storage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&txView{d: s.data}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Reset clears all data (for testing/demo).
func (s *Store) Reset(context.Context) error {
	fresh := New()
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh.data.now = s.data.now
	s.data = fresh.data
	return nil
}

func (d *data) clone() *data {
	return &data{
		shiftTemplates:   cloneMap(d.shiftTemplates),
		absenceTemplates: cloneMap(d.absenceTemplates),
		shifts:           cloneMap(d.shifts),
		absences:         cloneMap(d.absences),
		tracking:         cloneMap(d.tracking),
		days:             cloneMap(d.days),
		actuals:          cloneMap(d.actuals),
		submissions:      cloneMap(d.submissions),
		now:              d.now,
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// =============================================================================
// TEMPLATES
// =============================================================================

func (s *Store) ShiftTemplates(context.Context) ([]calendar.ShiftTemplate, error) {
	return read(s, (*data).shiftTemplateList)
}

func (s *Store) SaveShiftTemplate(_ context.Context, t calendar.ShiftTemplate) error {
	return s.write(func(d *data) error { d.shiftTemplates[t.ID] = t; return nil })
}

func (s *Store) DeleteShiftTemplate(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.shiftTemplates, id) })
}

func (s *Store) AbsenceTemplates(context.Context) ([]calendar.AbsenceTemplate, error) {
	return read(s, (*data).absenceTemplateList)
}

func (s *Store) SaveAbsenceTemplate(_ context.Context, t calendar.AbsenceTemplate) error {
	return s.write(func(d *data) error { d.absenceTemplates[t.ID] = t; return nil })
}

func (s *Store) DeleteAbsenceTemplate(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.absenceTemplates, id) })
}

// =============================================================================
// INSTANCES
// =============================================================================

func (s *Store) ShiftInstances(_ context.Context, from, to calendar.DateKey) ([]calendar.ShiftInstance, error) {
	return read(s, func(d *data) ([]calendar.ShiftInstance, error) { return d.shiftRange(from, to), nil })
}

func (s *Store) SaveShiftInstance(_ context.Context, i calendar.ShiftInstance) error {
	return s.write(func(d *data) error { d.shifts[i.ID] = i; return nil })
}

func (s *Store) DeleteShiftInstance(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.shifts, id) })
}

func (s *Store) AbsenceInstances(_ context.Context, from, to calendar.DateKey) ([]calendar.AbsenceInstance, error) {
	return read(s, func(d *data) ([]calendar.AbsenceInstance, error) { return d.absenceRange(from, to), nil })
}

func (s *Store) CreateAbsenceInstance(_ context.Context, a calendar.AbsenceInstance) error {
	return s.write(func(d *data) error { d.absences[a.ID] = a; return nil })
}

func (s *Store) DeleteAbsenceInstance(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.absences, id) })
}

// =============================================================================
// TRACKING
// =============================================================================

func (s *Store) TrackingRecords(_ context.Context, from, to calendar.DateKey) ([]calendar.TrackingRecord, error) {
	return read(s, func(d *data) ([]calendar.TrackingRecord, error) { return d.trackingRange(from, to), nil })
}

func (s *Store) SaveTrackingRecord(_ context.Context, r calendar.TrackingRecord) error {
	return s.write(func(d *data) error { d.tracking[r.ID] = r; return nil })
}

func (s *Store) UpdateTrackingBreak(_ context.Context, id string, minutes int) error {
	return s.write(func(d *data) error { return d.updateBreak(id, minutes) })
}

func (s *Store) UpdateSession(_ context.Context, id string, u calendar.SessionUpdate) error {
	return s.write(func(d *data) error { return d.updateSession(id, u) })
}

func (s *Store) DeleteTrackingRecord(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.tracking, id) })
}

// =============================================================================
// DAYS
// =============================================================================

func (s *Store) DayStatuses(_ context.Context, from, to calendar.DateKey) ([]calendar.ConfirmedDay, error) {
	return read(s, func(d *data) ([]calendar.ConfirmedDay, error) { return d.dayRange(from, to), nil })
}

func (s *Store) SaveDayStatuses(_ context.Context, days []calendar.ConfirmedDay) error {
	return s.write(func(d *data) error { d.saveDays(days); return nil })
}

func (s *Store) SaveDailyActual(_ context.Context, a calendar.DailyActual) error {
	return s.write(func(d *data) error { d.actuals[a.Date] = a; return nil })
}

func (s *Store) DailyActuals(_ context.Context, from, to calendar.DateKey) ([]calendar.DailyActual, error) {
	return read(s, func(d *data) ([]calendar.DailyActual, error) { return d.actualRange(from, to), nil })
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

func (s *Store) CreateWeeklySubmission(_ context.Context, sub calendar.WeeklySubmission) error {
	return s.write(func(d *data) error { return d.createSubmission(sub) })
}

func (s *Store) WeeklySubmission(_ context.Context, id string) (*calendar.WeeklySubmission, error) {
	return read(s, func(d *data) (*calendar.WeeklySubmission, error) { return d.submission(id), nil })
}

func (s *Store) WeeklySubmissionByWeek(_ context.Context, weekStart calendar.DateKey) (*calendar.WeeklySubmission, error) {
	return read(s, func(d *data) (*calendar.WeeklySubmission, error) { return d.submissionByWeek(weekStart), nil })
}

func (s *Store) WeeklySubmissions(_ context.Context, statuses ...calendar.SubmissionStatus) ([]calendar.WeeklySubmission, error) {
	return read(s, func(d *data) ([]calendar.WeeklySubmission, error) { return d.submissionList(statuses), nil })
}

func (s *Store) UpdateWeeklySubmissionStatus(_ context.Context, id string, status calendar.SubmissionStatus, lastError string) error {
	return s.write(func(d *data) error { return d.updateSubmissionStatus(id, status, lastError) })
}

func (s *Store) DeleteWeeklySubmission(_ context.Context, id string) error {
	return s.write(func(d *data) error { return remove(d.submissions, id) })
}

// =============================================================================
// UNLOCKED OPERATIONS - shared by Store and txView
// =============================================================================

func remove[V any](m map[string]V, id string) error {
	if _, ok := m[id]; !ok {
		return calendar.ErrNotFound
	}
	delete(m, id)
	return nil
}

func inRange(date, from, to calendar.DateKey) bool {
	return !date.Before(from) && !date.After(to)
}

func (d *data) shiftTemplateList() ([]calendar.ShiftTemplate, error) {
	out := make([]calendar.ShiftTemplate, 0, len(d.shiftTemplates))
	for _, t := range d.shiftTemplates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *data) absenceTemplateList() ([]calendar.AbsenceTemplate, error) {
	out := make([]calendar.AbsenceTemplate, 0, len(d.absenceTemplates))
	for _, t := range d.absenceTemplates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *data) shiftRange(from, to calendar.DateKey) []calendar.ShiftInstance {
	var out []calendar.ShiftInstance
	for _, i := range d.shifts {
		if inRange(i.Date, from, to) {
			out = append(out, i)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Date != out[b].Date {
			return out[a].Date < out[b].Date
		}
		return out[a].StartTime < out[b].StartTime
	})
	return out
}

func (d *data) absenceRange(from, to calendar.DateKey) []calendar.AbsenceInstance {
	var out []calendar.AbsenceInstance
	for _, a := range d.absences {
		if inRange(a.Date, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (d *data) trackingRange(from, to calendar.DateKey) []calendar.TrackingRecord {
	var out []calendar.TrackingRecord
	for _, r := range d.tracking {
		if inRange(r.Date, from, to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

func (d *data) updateBreak(id string, minutes int) error {
	r, ok := d.tracking[id]
	if !ok {
		return calendar.ErrNotFound
	}
	r.BreakMinutes = minutes
	d.tracking[id] = r
	return nil
}

func (d *data) updateSession(id string, u calendar.SessionUpdate) error {
	r, ok := d.tracking[id]
	if !ok {
		return calendar.ErrNotFound
	}
	if u.ClockIn != nil {
		r.StartTime = *u.ClockIn
	}
	if u.DurationMinutes != nil {
		r.DurationMinutes = *u.DurationMinutes
	}
	if u.Active != nil {
		r.IsActive = *u.Active
	}
	d.tracking[id] = r
	return nil
}

func (d *data) dayRange(from, to calendar.DateKey) []calendar.ConfirmedDay {
	var out []calendar.ConfirmedDay
	for date, day := range d.days {
		if inRange(date, from, to) {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (d *data) saveDays(days []calendar.ConfirmedDay) {
	for _, day := range days {
		d.days[day.Date] = day
	}
}

func (d *data) actualRange(from, to calendar.DateKey) []calendar.DailyActual {
	var out []calendar.DailyActual
	for date, a := range d.actuals {
		if inRange(date, from, to) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (d *data) createSubmission(sub calendar.WeeklySubmission) error {
	if d.submissionByWeek(sub.WeekStart) != nil {
		return calendar.ErrDuplicateSubmission
	}
	if _, exists := d.submissions[sub.ID]; exists {
		return calendar.ErrDuplicateSubmission
	}
	d.submissions[sub.ID] = sub
	return nil
}

func (d *data) submission(id string) *calendar.WeeklySubmission {
	sub, ok := d.submissions[id]
	if !ok {
		return nil
	}
	return &sub
}

func (d *data) submissionByWeek(weekStart calendar.DateKey) *calendar.WeeklySubmission {
	for _, sub := range d.submissions {
		if sub.WeekStart == weekStart {
			return &sub
		}
	}
	return nil
}

func (d *data) submissionList(statuses []calendar.SubmissionStatus) []calendar.WeeklySubmission {
	want := map[calendar.SubmissionStatus]bool{}
	for _, st := range statuses {
		want[st] = true
	}
	var out []calendar.WeeklySubmission
	for _, sub := range d.submissions {
		if len(want) == 0 || want[sub.Status] {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].WeekStart < out[j].WeekStart
	})
	return out
}

func (d *data) updateSubmissionStatus(id string, status calendar.SubmissionStatus, lastError string) error {
	sub, ok := d.submissions[id]
	if !ok {
		return calendar.ErrNotFound
	}
	if status == calendar.SubmissionSending {
		sub.Attempts++
	}
	sub.Status = status
	sub.LastError = lastError
	sub.UpdatedAt = d.now()
	d.submissions[id] = sub
	return nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

// txView runs against the data of a Store whose lock WithTx already holds.
type txView struct {
	d *data
}

func (v *txView) WithTx(_ context.Context, fn func(calendar.Storage) error) error {
	return fn(v)
}

func (v *txView) ShiftTemplates(context.Context) ([]calendar.ShiftTemplate, error) {
	return v.d.shiftTemplateList()
}

func (v *txView) SaveShiftTemplate(_ context.Context, t calendar.ShiftTemplate) error {
	v.d.shiftTemplates[t.ID] = t
	return nil
}

func (v *txView) DeleteShiftTemplate(_ context.Context, id string) error {
	return remove(v.d.shiftTemplates, id)
}

func (v *txView) AbsenceTemplates(context.Context) ([]calendar.AbsenceTemplate, error) {
	return v.d.absenceTemplateList()
}

func (v *txView) SaveAbsenceTemplate(_ context.Context, t calendar.AbsenceTemplate) error {
	v.d.absenceTemplates[t.ID] = t
	return nil
}

func (v *txView) DeleteAbsenceTemplate(_ context.Context, id string) error {
	return remove(v.d.absenceTemplates, id)
}

func (v *txView) ShiftInstances(_ context.Context, from, to calendar.DateKey) ([]calendar.ShiftInstance, error) {
	return v.d.shiftRange(from, to), nil
}

func (v *txView) SaveShiftInstance(_ context.Context, i calendar.ShiftInstance) error {
	v.d.shifts[i.ID] = i
	return nil
}

func (v *txView) DeleteShiftInstance(_ context.Context, id string) error {
	return remove(v.d.shifts, id)
}

func (v *txView) AbsenceInstances(_ context.Context, from, to calendar.DateKey) ([]calendar.AbsenceInstance, error) {
	return v.d.absenceRange(from, to), nil
}

func (v *txView) CreateAbsenceInstance(_ context.Context, a calendar.AbsenceInstance) error {
	v.d.absences[a.ID] = a
	return nil
}

func (v *txView) DeleteAbsenceInstance(_ context.Context, id string) error {
	return remove(v.d.absences, id)
}

func (v *txView) TrackingRecords(_ context.Context, from, to calendar.DateKey) ([]calendar.TrackingRecord, error) {
	return v.d.trackingRange(from, to), nil
}

func (v *txView) SaveTrackingRecord(_ context.Context, r calendar.TrackingRecord) error {
	v.d.tracking[r.ID] = r
	return nil
}

func (v *txView) UpdateTrackingBreak(_ context.Context, id string, minutes int) error {
	return v.d.updateBreak(id, minutes)
}

func (v *txView) UpdateSession(_ context.Context, id string, u calendar.SessionUpdate) error {
	return v.d.updateSession(id, u)
}

func (v *txView) DeleteTrackingRecord(_ context.Context, id string) error {
	return remove(v.d.tracking, id)
}

func (v *txView) DayStatuses(_ context.Context, from, to calendar.DateKey) ([]calendar.ConfirmedDay, error) {
	return v.d.dayRange(from, to), nil
}

func (v *txView) SaveDayStatuses(_ context.Context, days []calendar.ConfirmedDay) error {
	v.d.saveDays(days)
	return nil
}

func (v *txView) SaveDailyActual(_ context.Context, a calendar.DailyActual) error {
	v.d.actuals[a.Date] = a
	return nil
}

func (v *txView) DailyActuals(_ context.Context, from, to calendar.DateKey) ([]calendar.DailyActual, error) {
	return v.d.actualRange(from, to), nil
}

func (v *txView) CreateWeeklySubmission(_ context.Context, sub calendar.WeeklySubmission) error {
	return v.d.createSubmission(sub)
}

func (v *txView) WeeklySubmission(_ context.Context, id string) (*calendar.WeeklySubmission, error) {
	return v.d.submission(id), nil
}

func (v *txView) WeeklySubmissionByWeek(_ context.Context, weekStart calendar.DateKey) (*calendar.WeeklySubmission, error) {
	return v.d.submissionByWeek(weekStart), nil
}

func (v *txView) WeeklySubmissions(_ context.Context, statuses ...calendar.SubmissionStatus) ([]calendar.WeeklySubmission, error) {
	return v.d.submissionList(statuses), nil
}

func (v *txView) UpdateWeeklySubmissionStatus(_ context.Context, id string, status calendar.SubmissionStatus, lastError string) error {
	return v.d.updateSubmissionStatus(id, status, lastError)
}

func (v *txView) DeleteWeeklySubmission(_ context.Context, id string) error {
	return remove(v.d.submissions, id)
}
