package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-calendar/calendar"
)

var (
	monday = calendar.MustDateKey("2026-03-09")
	stamp  = time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
)

func newTestStore() *Store {
	s := New()
	s.Now = func() time.Time { return stamp }
	return s
}

func TestStore_WithTxRollsBack(t *testing.T) {
	// GIVEN: A store with one template
	s := newTestStore()
	ctx := context.Background()
	require.NoError(t, s.SaveShiftTemplate(ctx, calendar.ShiftTemplate{ID: "a", Name: "A", DurationMinutes: 60}))

	// WHEN: A transaction writes, then fails
	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx calendar.Storage) error {
		require.NoError(t, tx.DeleteShiftTemplate(ctx, "a"))
		require.NoError(t, tx.SaveShiftTemplate(ctx, calendar.ShiftTemplate{ID: "b", Name: "B", DurationMinutes: 60}))
		return boom
	})

	// THEN: Nothing it wrote is visible
	require.ErrorIs(t, err, boom)
	templates, err := s.ShiftTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "a", templates[0].ID)
}

func TestStore_WithTxCommits(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx calendar.Storage) error {
		return tx.WithTx(ctx, func(inner calendar.Storage) error {
			return inner.SaveDayStatuses(ctx, []calendar.ConfirmedDay{{Date: monday, Status: calendar.DayConfirmed, ConfirmedAt: stamp}})
		})
	})
	require.NoError(t, err)

	days, err := s.DayStatuses(ctx, monday, monday)
	require.NoError(t, err)
	assert.Len(t, days, 1)
}

func TestStore_DeleteMissing(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteShiftTemplate(ctx, "x"), calendar.ErrNotFound)
	assert.ErrorIs(t, s.DeleteShiftInstance(ctx, "x"), calendar.ErrNotFound)
	assert.ErrorIs(t, s.DeleteAbsenceInstance(ctx, "x"), calendar.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTrackingRecord(ctx, "x"), calendar.ErrNotFound)
	assert.ErrorIs(t, s.DeleteWeeklySubmission(ctx, "x"), calendar.ErrNotFound)
	assert.ErrorIs(t, s.UpdateSession(ctx, "x", calendar.SessionUpdate{}), calendar.ErrNotFound)
}

func TestStore_RangesAreInclusiveAndSorted(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()
	for _, date := range []calendar.DateKey{monday.AddDays(6), monday.AddDays(-1), monday, monday.AddDays(7)} {
		require.NoError(t, s.SaveShiftInstance(ctx, calendar.ShiftInstance{ID: string(date), Date: date, DurationMinutes: 60}))
	}

	got, err := s.ShiftInstances(ctx, monday, monday.AddDays(6))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, monday, got[0].Date)
	assert.Equal(t, monday.AddDays(6), got[1].Date)
}

func TestStore_Submissions(t *testing.T) {
	// GIVEN: Two weeks queued
	s := newTestStore()
	ctx := context.Background()
	first := calendar.WeeklySubmission{ID: "s1", WeekStart: monday, Status: calendar.SubmissionPending, CreatedAt: stamp}
	second := calendar.WeeklySubmission{ID: "s2", WeekStart: monday.AddDays(7), Status: calendar.SubmissionPending, CreatedAt: stamp.Add(time.Minute)}
	require.NoError(t, s.CreateWeeklySubmission(ctx, second))
	require.NoError(t, s.CreateWeeklySubmission(ctx, first))

	// WHEN: The same week is queued again
	dup := first
	dup.ID = "s3"
	err := s.CreateWeeklySubmission(ctx, dup)

	// THEN: It conflicts, and listing is oldest first
	assert.ErrorIs(t, err, calendar.ErrDuplicateSubmission)
	all, err := s.WeeklySubmissions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s1", all[0].ID)

	require.NoError(t, s.UpdateWeeklySubmissionStatus(ctx, "s1", calendar.SubmissionSending, ""))
	require.NoError(t, s.UpdateWeeklySubmissionStatus(ctx, "s1", calendar.SubmissionFailed, "timeout"))
	got, err := s.WeeklySubmission(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "timeout", got.LastError)
	assert.Equal(t, stamp, got.UpdatedAt)

	failed, err := s.WeeklySubmissions(ctx, calendar.SubmissionFailed)
	require.NoError(t, err)
	assert.Len(t, failed, 1)

	byWeek, err := s.WeeklySubmissionByWeek(ctx, monday.AddDays(14))
	require.NoError(t, err)
	assert.Nil(t, byWeek)
}
