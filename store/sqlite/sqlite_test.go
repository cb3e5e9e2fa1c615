package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-calendar/calendar"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	monday  = calendar.MustDateKey("2026-03-09")
	created = time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
)

func newTestStore(t *testing.T) *Store {
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	store.SetClock(func() time.Time { return created.Add(time.Hour) })
	return store
}

func pendingSubmission(id string, week calendar.DateKey) calendar.WeeklySubmission {
	return calendar.WeeklySubmission{
		ID:        id,
		WeekStart: week,
		Status:    calendar.SubmissionPending,
		Summary: calendar.WeeklySummary{
			WeekStart:      week,
			PlannedMinutes: 2400,
			TrackedMinutes: 2310,
			Days: []calendar.DailyActual{
				{Date: week, PlannedMinutes: 480, TrackedMinutes: 450, Source: calendar.SourceManual, ConfirmedAt: created},
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// =============================================================================
// TEMPLATES & INSTANCES
// =============================================================================

func TestStore_ShiftTemplateRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tmpl := calendar.ShiftTemplate{ID: "early", Name: "Early", StartTime: calendar.MustTimeOfDay("06:00"), DurationMinutes: 480, Color: "#ff0000", BreakMinutes: 30}
	require.NoError(t, store.SaveShiftTemplate(ctx, tmpl))

	tmpl.Name = "Early (updated)"
	require.NoError(t, store.SaveShiftTemplate(ctx, tmpl))

	templates, err := store.ShiftTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, tmpl, templates[0])

	require.NoError(t, store.DeleteShiftTemplate(ctx, "early"))
	assert.ErrorIs(t, store.DeleteShiftTemplate(ctx, "early"), calendar.ErrNotFound)
}

func TestStore_AbsenceTemplateTypeConstraint(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok := calendar.AbsenceTemplate{ID: "vac", Name: "Vacation", Type: calendar.AbsenceVacation, IsFullDay: true}
	require.NoError(t, store.SaveAbsenceTemplate(ctx, ok))

	bad := calendar.AbsenceTemplate{ID: "x", Name: "Other", Type: "holiday", IsFullDay: true}
	assert.Error(t, store.SaveAbsenceTemplate(ctx, bad))

	templates, err := store.AbsenceTemplates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []calendar.AbsenceTemplate{ok}, templates)
}

func TestStore_InstancesByRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, date := range []calendar.DateKey{monday.AddDays(-1), monday, monday.AddDays(6), monday.AddDays(7)} {
		require.NoError(t, store.SaveShiftInstance(ctx, calendar.ShiftInstance{
			ID: string(rune('a' + i)), TemplateID: "gone", Date: date,
			StartTime: calendar.MustTimeOfDay("08:00"), DurationMinutes: 60, Name: "Shift",
		}))
	}

	week, err := store.ShiftInstances(ctx, monday, monday.AddDays(6))
	require.NoError(t, err)
	require.Len(t, week, 2)
	assert.Equal(t, monday, week[0].Date)
	assert.Equal(t, "gone", week[0].TemplateID, "template references are not enforced")

	abs := calendar.AbsenceInstance{ID: "abs", Date: monday, Type: calendar.AbsenceSick, IsFullDay: true, Name: "Sick"}
	require.NoError(t, store.CreateAbsenceInstance(ctx, abs))
	absences, err := store.AbsenceInstances(ctx, monday, monday)
	require.NoError(t, err)
	assert.Equal(t, []calendar.AbsenceInstance{abs}, absences)
}

// =============================================================================
// TRACKING
// =============================================================================

func TestStore_TrackingSessionUpdates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := calendar.TrackingRecord{ID: "t1", Date: monday, StartTime: calendar.MustTimeOfDay("08:00"), IsActive: true, Source: calendar.SourceGeofence}
	require.NoError(t, store.SaveTrackingRecord(ctx, rec))

	// Clock out
	dur, active := 240, false
	require.NoError(t, store.UpdateSession(ctx, "t1", calendar.SessionUpdate{DurationMinutes: &dur, Active: &active}))
	require.NoError(t, store.UpdateTrackingBreak(ctx, "t1", 30))

	// Move the start only
	start := calendar.MustTimeOfDay("07:30")
	require.NoError(t, store.UpdateSession(ctx, "t1", calendar.SessionUpdate{ClockIn: &start}))

	records, err := store.TrackingRecords(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, records, 1)
	got := records[0]
	assert.Equal(t, start, got.StartTime)
	assert.Equal(t, 240, got.DurationMinutes)
	assert.Equal(t, 30, got.BreakMinutes)
	assert.False(t, got.IsActive)
	assert.Equal(t, calendar.SourceGeofence, got.Source)

	assert.ErrorIs(t, store.UpdateTrackingBreak(ctx, "missing", 1), calendar.ErrNotFound)
	require.NoError(t, store.DeleteTrackingRecord(ctx, "t1"))
	assert.ErrorIs(t, store.DeleteTrackingRecord(ctx, "t1"), calendar.ErrNotFound)
}

// =============================================================================
// DAYS
// =============================================================================

func TestStore_DayStatusesAndActuals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDayStatuses(ctx, []calendar.ConfirmedDay{
		{Date: monday, Status: calendar.DayConfirmed, ConfirmedAt: created},
		{Date: monday.AddDays(1), Status: calendar.DayLocked, ConfirmedAt: created, SubmissionID: "sub-1"},
	}))
	require.NoError(t, store.SaveDailyActual(ctx, calendar.DailyActual{Date: monday, PlannedMinutes: 480, TrackedMinutes: 455, ConfirmedAt: created}))

	days, err := store.DayStatuses(ctx, monday, monday.AddDays(6))
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, calendar.DayConfirmed, days[0].Status)
	assert.Empty(t, days[0].SubmissionID)
	assert.Equal(t, "sub-1", days[1].SubmissionID)
	assert.True(t, created.Equal(days[0].ConfirmedAt))

	actuals, err := store.DailyActuals(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, 455, actuals[0].TrackedMinutes)
}

// =============================================================================
// SUBMISSIONS
// =============================================================================

func TestStore_SubmissionNotFoundIsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub, err := store.WeeklySubmission(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, sub)

	sub, err = store.WeeklySubmissionByWeek(ctx, monday)
	assert.NoError(t, err)
	assert.Nil(t, sub)
}

func TestStore_OneSubmissionPerWeek(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateWeeklySubmission(ctx, pendingSubmission("sub-1", monday)))
	err := store.CreateWeeklySubmission(ctx, pendingSubmission("sub-2", monday))
	assert.ErrorIs(t, err, calendar.ErrDuplicateSubmission)

	got, err := store.WeeklySubmissionByWeek(ctx, monday)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sub-1", got.ID)
	assert.Equal(t, 2310, got.Summary.TrackedMinutes)
	require.Len(t, got.Summary.Days, 1)
	assert.Equal(t, calendar.SourceManual, got.Summary.Days[0].Source)
}

func TestStore_SubmissionStatusTransitions(t *testing.T) {
	// GIVEN: A pending submission
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.CreateWeeklySubmission(ctx, pendingSubmission("sub-1", monday)))

	// WHEN: It is sent, fails, and is sent again
	require.NoError(t, store.UpdateWeeklySubmissionStatus(ctx, "sub-1", calendar.SubmissionSending, ""))
	require.NoError(t, store.UpdateWeeklySubmissionStatus(ctx, "sub-1", calendar.SubmissionFailed, "503"))
	require.NoError(t, store.UpdateWeeklySubmissionStatus(ctx, "sub-1", calendar.SubmissionSending, ""))

	// THEN: Each send counts as an attempt and the error is cleared
	sub, err := store.WeeklySubmission(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, calendar.SubmissionSending, sub.Status)
	assert.Equal(t, 2, sub.Attempts)
	assert.Empty(t, sub.LastError)
	assert.True(t, created.Add(time.Hour).Equal(sub.UpdatedAt))

	sending, err := store.WeeklySubmissions(ctx, calendar.SubmissionSending)
	require.NoError(t, err)
	assert.Len(t, sending, 1)
	pending, err := store.WeeklySubmissions(ctx, calendar.SubmissionPending, calendar.SubmissionFailed)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.ErrorIs(t, store.UpdateWeeklySubmissionStatus(ctx, "missing", calendar.SubmissionSent, ""), calendar.ErrNotFound)
}

func TestStore_WithTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("rollback on error", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx calendar.Storage) error {
			if err := tx.CreateWeeklySubmission(ctx, pendingSubmission("sub-1", monday)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		sub, err := store.WeeklySubmission(ctx, "sub-1")
		require.NoError(t, err)
		assert.Nil(t, sub)
	})

	t.Run("commit", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx calendar.Storage) error {
			if err := tx.CreateWeeklySubmission(ctx, pendingSubmission("sub-1", monday)); err != nil {
				return err
			}
			return tx.WithTx(ctx, func(inner calendar.Storage) error {
				return inner.SaveDayStatuses(ctx, []calendar.ConfirmedDay{
					{Date: monday, Status: calendar.DayLocked, ConfirmedAt: created, SubmissionID: "sub-1"},
				})
			})
		})
		require.NoError(t, err)

		days, err := store.DayStatuses(ctx, monday, monday)
		require.NoError(t, err)
		require.Len(t, days, 1)
		assert.Equal(t, calendar.DayLocked, days[0].Status)
	})
}
