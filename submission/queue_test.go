package submission_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-calendar/calendar"
	"github.com/warp/shift-calendar/store/memory"
	"github.com/warp/shift-calendar/submission"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	now    = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	monday = calendar.MustDateKey("2026-03-09")
)

// scriptedSender fails while fail is set and records every delivery.
type scriptedSender struct {
	fail error
	sent []calendar.WeeklySubmission
}

func (s *scriptedSender) Send(_ context.Context, sub calendar.WeeklySubmission) error {
	s.sent = append(s.sent, sub)
	return s.fail
}

type queueFixture struct {
	cal    *calendar.Calendar
	store  *memory.Store
	engine *calendar.ConfirmationEngine
	sender *scriptedSender
	queue  *submission.Queue
}

func newQueue(t *testing.T) *queueFixture {
	t.Helper()
	f := &queueFixture{store: memory.New(), sender: &scriptedSender{}}
	f.store.Now = func() time.Time { return now }
	f.cal = calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))
	f.engine = calendar.NewConfirmationEngine(f.cal, f.store, nil)
	n := 0
	f.queue = submission.NewQueue(f.cal, f.store, f.sender,
		submission.WithIDGenerator(func() string { n++; return fmt.Sprintf("sub-%d", n) }))
	return f
}

// confirmWeek tracks one hour on each day of the week and confirms it.
func (f *queueFixture) confirmWeek(t *testing.T, week calendar.DateKey) {
	t.Helper()
	ctx := context.Background()
	for i, date := range week.WeekDates() {
		_, err := f.cal.Dispatch(calendar.CreateTracking{Record: calendar.TrackingRecord{
			ID: fmt.Sprintf("%s-%d", week, i), Date: date, StartTime: calendar.MustTimeOfDay("09:00"), DurationMinutes: 60,
		}})
		require.NoError(t, err)
		_, err = f.engine.ConfirmDay(ctx, date)
		require.NoError(t, err)
	}
}

// =============================================================================
// ENQUEUE
// =============================================================================

func TestQueue_SubmitWeekLocksDays(t *testing.T) {
	// GIVEN: A fully confirmed week
	f := newQueue(t)
	ctx := context.Background()
	f.confirmWeek(t, monday)

	// WHEN: It is submitted
	sub, err := f.queue.SubmitWeek(ctx, monday)
	require.NoError(t, err)

	// THEN: A pending record holds the totals and all seven days are locked
	assert.Equal(t, "sub-1", sub.ID)
	assert.Equal(t, calendar.SubmissionPending, sub.Status)
	assert.Equal(t, 7*60, sub.Summary.TrackedMinutes)
	assert.Len(t, sub.Summary.Days, 7)

	for _, date := range monday.WeekDates() {
		assert.True(t, f.cal.State().IsLocked(date), date)
	}
	stored, err := f.store.DayStatuses(ctx, monday, monday.AddDays(6))
	require.NoError(t, err)
	for _, d := range stored {
		assert.Equal(t, calendar.DayLocked, d.Status)
		assert.Equal(t, "sub-1", d.SubmissionID)
	}
}

func TestQueue_ResubmitAfterFailedSendConflicts(t *testing.T) {
	// GIVEN: A week whose submission failed to send
	f := newQueue(t)
	ctx := context.Background()
	f.confirmWeek(t, monday)
	_, err := f.queue.SubmitWeek(ctx, monday)
	require.NoError(t, err)
	f.sender.fail = errors.New("backend unavailable")
	_, err = f.queue.ProcessQueue(ctx)
	require.NoError(t, err)

	// WHEN: The week is submitted again
	_, err = f.queue.SubmitWeek(ctx, monday)

	// THEN: The failed record is reported as the conflict, not the day lock
	require.ErrorIs(t, err, calendar.ErrDuplicateSubmission)
	assert.NotErrorIs(t, err, calendar.ErrDayLocked)
	var conflict *calendar.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "sub-1", conflict.Existing.ID)
	assert.Equal(t, calendar.SubmissionFailed, conflict.Existing.Status)

	subs, err := f.queue.List(ctx)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestQueue_EnqueueRejections(t *testing.T) {
	f := newQueue(t)
	ctx := context.Background()

	_, err := f.queue.SubmitWeek(ctx, monday.AddDays(1))
	assert.ErrorIs(t, err, calendar.ErrInvalidWeekStart)

	for _, date := range monday.WeekDates()[:6] {
		_, err := f.engine.ConfirmDay(ctx, date)
		require.NoError(t, err)
	}
	_, err = f.queue.SubmitWeek(ctx, monday)
	assert.ErrorIs(t, err, calendar.ErrWeekIncomplete)

	subs, err := f.queue.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// =============================================================================
// DRAIN
// =============================================================================

func TestQueue_FailureThenRetry(t *testing.T) {
	// GIVEN: A queued week and a backend that is down
	f := newQueue(t)
	ctx := context.Background()
	f.confirmWeek(t, monday)
	_, err := f.queue.SubmitWeek(ctx, monday)
	require.NoError(t, err)
	f.sender.fail = errors.New("503 service unavailable")

	// WHEN: The queue is drained
	results, err := f.queue.ProcessQueue(ctx)

	// THEN: The failure is recorded, not returned
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, calendar.SubmissionFailed, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Equal(t, "503 service unavailable", results[0].LastError)

	// WHEN: The backend recovers and the queue is drained again
	f.sender.fail = nil
	results, err = f.queue.ProcessQueue(ctx)

	// THEN: The record is sent on the second attempt
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, calendar.SubmissionSent, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts)
	assert.Empty(t, results[0].LastError)
	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, calendar.SubmissionSending, f.sender.sent[1].Status)

	// Sent records are never drained again
	results, err = f.queue.ProcessQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueue_PlanConfirmSubmitLifecycle(t *testing.T) {
	// GIVEN: An 08:00 shift of 8h placed on Monday
	f := newQueue(t)
	ctx := context.Background()
	exec := calendar.NewExecutor(f.cal, f.store, nil)
	for _, tmpl := range []calendar.ShiftTemplate{
		{ID: "full", Name: "Full", StartTime: calendar.MustTimeOfDay("08:00"), DurationMinutes: 480},
		{ID: "half", Name: "Half", StartTime: calendar.MustTimeOfDay("12:00"), DurationMinutes: 240},
	} {
		_, err := exec.Execute(ctx, calendar.CreateShiftTemplate{Template: tmpl})
		require.NoError(t, err)
	}
	_, err := exec.Execute(ctx, calendar.ArmTemplate{TemplateID: "full"})
	require.NoError(t, err)
	first, err := exec.PlaceShift(ctx, monday, nil)
	require.NoError(t, err)

	// WHEN: A 12:00 shift of 4h is placed on the same day
	_, err = exec.Execute(ctx, calendar.ArmTemplate{TemplateID: "half"})
	require.NoError(t, err)
	_, err = exec.PlaceShift(ctx, monday, nil)

	// THEN: It is rejected naming the first shift
	var overlap *calendar.OverlapError
	require.ErrorAs(t, err, &overlap)
	assert.Equal(t, first.ID, overlap.Conflict.ID)
	assert.Len(t, f.cal.State().ShiftInstances, 1)

	// WHEN: The week is confirmed
	var planned []int
	for _, date := range monday.WeekDates() {
		actual, err := f.engine.ConfirmDay(ctx, date)
		require.NoError(t, err)
		planned = append(planned, actual.PlannedMinutes)
	}

	// THEN: Monday carries the planned shift
	assert.Equal(t, []int{480, 0, 0, 0, 0, 0, 0}, planned)

	// WHEN: The week is submitted
	sub, err := f.queue.SubmitWeek(ctx, monday)
	require.NoError(t, err)

	// THEN: The record is pending and the week locked
	assert.Equal(t, calendar.SubmissionPending, sub.Status)
	assert.Equal(t, 480, sub.Summary.PlannedMinutes)
	assertWeekLocked(t, f, sub.ID)

	// WHEN: The first send fails
	f.sender.fail = errors.New("connection refused")
	results, err := f.queue.ProcessQueue(ctx)
	require.NoError(t, err)

	// THEN: The record is failed and the week stays locked
	require.Len(t, results, 1)
	assert.Equal(t, calendar.SubmissionFailed, results[0].Status)
	assertWeekLocked(t, f, sub.ID)

	// WHEN: The retry succeeds
	f.sender.fail = nil
	results, err = f.queue.ProcessQueue(ctx)
	require.NoError(t, err)

	// THEN: The record is sent and the week remains locked
	require.Len(t, results, 1)
	assert.Equal(t, calendar.SubmissionSent, results[0].Status)
	assertWeekLocked(t, f, sub.ID)
}

func assertWeekLocked(t *testing.T, f *queueFixture, subID string) {
	t.Helper()
	for _, date := range monday.WeekDates() {
		assert.True(t, f.cal.State().IsLocked(date), date)
	}
	stored, err := f.store.DayStatuses(context.Background(), monday, monday.AddDays(6))
	require.NoError(t, err)
	require.Len(t, stored, 7)
	for _, d := range stored {
		assert.Equal(t, calendar.DayLocked, d.Status, d.Date)
		assert.Equal(t, subID, d.SubmissionID, d.Date)
	}
}

func TestQueue_ProcessQueueFiltersByID(t *testing.T) {
	f := newQueue(t)
	ctx := context.Background()
	f.confirmWeek(t, monday)
	f.confirmWeek(t, monday.AddDays(-7))
	_, err := f.queue.SubmitWeek(ctx, monday)
	require.NoError(t, err)
	_, err = f.queue.SubmitWeek(ctx, monday.AddDays(-7))
	require.NoError(t, err)

	results, err := f.queue.ProcessQueue(ctx, "sub-2")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sub-2", results[0].ID)

	untouched, err := f.store.WeeklySubmission(ctx, "sub-1")
	require.NoError(t, err)
	require.NotNil(t, untouched)
	assert.Equal(t, calendar.SubmissionPending, untouched.Status)
}

func TestQueue_ReconcileInterruptedSends(t *testing.T) {
	// GIVEN: A record left in sending by a crash
	f := newQueue(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateWeeklySubmission(ctx, calendar.WeeklySubmission{
		ID: "stuck", WeekStart: monday, Status: calendar.SubmissionSending, Attempts: 1, CreatedAt: now,
	}))

	// WHEN: Reconciling at startup
	moved, err := f.queue.Reconcile(ctx)

	// THEN: It is failed and eligible for the next drain
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	sub, err := f.store.WeeklySubmission(ctx, "stuck")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, calendar.SubmissionFailed, sub.Status)
	assert.Equal(t, submission.InterruptedError, sub.LastError)

	results, err := f.queue.ProcessQueue(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, calendar.SubmissionSent, results[0].Status)
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize_OrdersAndClampsDays(t *testing.T) {
	summary := submission.Summarize(monday, []calendar.DailyActual{
		{Date: monday.AddDays(1), PlannedMinutes: 480, TrackedMinutes: 2000},
		{Date: monday, PlannedMinutes: -10, TrackedMinutes: 300},
	})

	require.Len(t, summary.Days, 2)
	assert.Equal(t, monday, summary.Days[0].Date)
	assert.Equal(t, 0, summary.Days[0].PlannedMinutes)
	assert.Equal(t, calendar.MinutesPerDay, summary.Days[1].TrackedMinutes)
	assert.Equal(t, 480, summary.PlannedMinutes)
	assert.Equal(t, 300+calendar.MinutesPerDay, summary.TrackedMinutes)
}
