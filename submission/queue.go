/*
Package submission moves fully confirmed weeks to the backend.

PURPOSE:
  A week whose seven days are confirmed is summarized, recorded as a
  pending WeeklySubmission and its days are locked. Draining the queue
  sends every pending or failed record exactly once per drain.

SUBMISSION STATUS MACHINE:
  pending ──drain──▶ sending ──ok──▶ sent (terminal)
     ▲                  │
     │                  └──error──▶ failed ──drain──▶ sending ...
     └───── (startup) sending left behind by a crash ──▶ failed

GUARANTEES:
  - At most one record per week; a second enqueue is a ConflictError.
  - Send failures are recorded on the record, never returned.
  - Drains are serialized; nothing retries automatically.

SEE ALSO:
  - sender.go: Sender contract and wire payload
  - http.go, amqp.go: Sender implementations
  - ../calendar/confirmation.go: UnlockDay withdraws unsent records
*/
package submission

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/shift-calendar/calendar"
)

// InterruptedError is recorded on records found in sending at startup.
const InterruptedError = "interrupted while sending"

type Queue struct {
	cal     *calendar.Calendar
	storage calendar.Storage
	sender  Sender
	logger  *slog.Logger
	newID   func() string

	drainMu sync.Mutex
}

type Option func(*Queue)

func WithLogger(logger *slog.Logger) Option { return func(q *Queue) { q.logger = logger } }

func WithIDGenerator(fn func() string) Option { return func(q *Queue) { q.newID = fn } }

func NewQueue(cal *calendar.Calendar, storage calendar.Storage, sender Sender, opts ...Option) *Queue {
	q := &Queue{
		cal:     cal,
		storage: storage,
		sender:  sender,
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// =============================================================================
// ENQUEUE
// =============================================================================

// SubmitWeek summarizes the week starting at weekStart from its persisted
// daily actuals and enqueues it.
func (q *Queue) SubmitWeek(ctx context.Context, weekStart calendar.DateKey) (calendar.WeeklySubmission, error) {
	if !weekStart.IsWeekStart() {
		return calendar.WeeklySubmission{}, &calendar.ValidationError{Reason: calendar.ErrInvalidWeekStart, Date: weekStart}
	}
	summary, err := q.SummarizeWeek(ctx, weekStart)
	if err != nil {
		return calendar.WeeklySubmission{}, err
	}
	return q.Enqueue(ctx, weekStart, summary)
}

// Enqueue records a pending submission for the week and locks its seven
// days. The record and the locks are persisted in one transaction before
// the calendar transitions. A week that already has a record, in any
// status, is a ConflictError; this is checked before the day locks, which
// such a record still holds.
func (q *Queue) Enqueue(ctx context.Context, weekStart calendar.DateKey, summary calendar.WeeklySummary) (calendar.WeeklySubmission, error) {
	if !weekStart.IsWeekStart() {
		return calendar.WeeklySubmission{}, &calendar.ValidationError{Reason: calendar.ErrInvalidWeekStart, Date: weekStart}
	}

	if existing, err := q.storage.WeeklySubmissionByWeek(ctx, weekStart); err != nil {
		return calendar.WeeklySubmission{}, calendar.WrapStorage("load submission", err)
	} else if existing != nil {
		return calendar.WeeklySubmission{}, &calendar.ConflictError{WeekStart: weekStart, Existing: *existing}
	}

	s := q.cal.State()
	dates := weekStart.WeekDates()
	for _, date := range dates {
		day, ok := s.DayStatus(date)
		switch {
		case !ok:
			return calendar.WeeklySubmission{}, &calendar.ValidationError{Reason: calendar.ErrWeekIncomplete, Date: date}
		case day.Status == calendar.DayLocked:
			return calendar.WeeklySubmission{}, &calendar.ValidationError{Reason: calendar.ErrDayLocked, Date: date}
		}
	}

	now := q.cal.Now()
	summary.WeekStart = weekStart
	sub := calendar.WeeklySubmission{
		ID:        q.newID(),
		WeekStart: weekStart,
		Status:    calendar.SubmissionPending,
		Summary:   summary,
		CreatedAt: now,
		UpdatedAt: now,
	}

	locked := make([]calendar.ConfirmedDay, len(dates))
	confirmed := make([]calendar.ConfirmedDay, len(dates))
	for i, date := range dates {
		confirmed[i] = s.ConfirmedDays[date]
		locked[i] = confirmed[i]
		locked[i].Status, locked[i].SubmissionID = calendar.DayLocked, sub.ID
	}

	err := q.storage.WithTx(ctx, func(tx calendar.Storage) error {
		if err := tx.CreateWeeklySubmission(ctx, sub); err != nil {
			return err
		}
		return tx.SaveDayStatuses(ctx, locked)
	})
	if errors.Is(err, calendar.ErrDuplicateSubmission) {
		existing, _ := q.storage.WeeklySubmissionByWeek(ctx, weekStart)
		if existing != nil {
			return calendar.WeeklySubmission{}, &calendar.ConflictError{WeekStart: weekStart, Existing: *existing}
		}
		return calendar.WeeklySubmission{}, &calendar.ConflictError{WeekStart: weekStart}
	}
	if err != nil {
		return calendar.WeeklySubmission{}, calendar.WrapStorage("enqueue week", err)
	}

	if _, err := q.cal.Dispatch(calendar.LockConfirmedDays{Dates: dates, SubmissionID: sub.ID}); err != nil {
		q.rollbackEnqueue(ctx, sub, confirmed)
		return calendar.WeeklySubmission{}, err
	}

	q.logger.Info("week enqueued", "week", weekStart, "id", sub.ID,
		"planned_minutes", summary.PlannedMinutes, "tracked_minutes", summary.TrackedMinutes)
	return sub, nil
}

// rollbackEnqueue undoes a persisted enqueue whose lock transition was
// rejected by the calendar.
func (q *Queue) rollbackEnqueue(ctx context.Context, sub calendar.WeeklySubmission, confirmed []calendar.ConfirmedDay) {
	err := q.storage.WithTx(ctx, func(tx calendar.Storage) error {
		if err := tx.DeleteWeeklySubmission(ctx, sub.ID); err != nil {
			return err
		}
		return tx.SaveDayStatuses(ctx, confirmed)
	})
	if err != nil {
		q.logger.Error("enqueue rollback failed", "week", sub.WeekStart, "id", sub.ID, "error", err)
	}
}

// SummarizeWeek totals the persisted daily actuals of the week. Each day is
// bounded to 0..24h.
func (q *Queue) SummarizeWeek(ctx context.Context, weekStart calendar.DateKey) (calendar.WeeklySummary, error) {
	actuals, err := q.storage.DailyActuals(ctx, weekStart, weekStart.AddDays(6))
	if err != nil {
		return calendar.WeeklySummary{}, calendar.WrapStorage("load daily actuals", err)
	}
	return Summarize(weekStart, actuals), nil
}

// Summarize builds a weekly summary from daily actuals, ordered by date.
func Summarize(weekStart calendar.DateKey, actuals []calendar.DailyActual) calendar.WeeklySummary {
	days := slices.Clone(actuals)
	slices.SortFunc(days, func(a, b calendar.DailyActual) int {
		switch {
		case a.Date < b.Date:
			return -1
		case a.Date > b.Date:
			return 1
		}
		return 0
	})

	summary := calendar.WeeklySummary{WeekStart: weekStart, Days: make([]calendar.DailyActual, 0, len(days))}
	for _, d := range days {
		d.PlannedMinutes = clampDay(d.PlannedMinutes)
		d.TrackedMinutes = clampDay(d.TrackedMinutes)
		summary.PlannedMinutes += d.PlannedMinutes
		summary.TrackedMinutes += d.TrackedMinutes
		summary.Days = append(summary.Days, d)
	}
	return summary
}

func clampDay(minutes int) int {
	return min(max(minutes, 0), calendar.MinutesPerDay)
}

// =============================================================================
// DRAIN
// =============================================================================

// ProcessQueue sends every pending or failed record, restricted to ids when
// given, and returns the records it touched in their final state. Send
// failures are recorded on the records; only a failure to list the queue is
// returned.
func (q *Queue) ProcessQueue(ctx context.Context, ids ...string) ([]calendar.WeeklySubmission, error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	eligible, err := q.storage.WeeklySubmissions(ctx, calendar.SubmissionPending, calendar.SubmissionFailed)
	if err != nil {
		return nil, calendar.WrapStorage("list submissions", err)
	}
	if len(ids) > 0 {
		eligible = slices.DeleteFunc(eligible, func(sub calendar.WeeklySubmission) bool {
			return !slices.Contains(ids, sub.ID)
		})
	}

	results := make([]calendar.WeeklySubmission, 0, len(eligible))
	for _, sub := range eligible {
		results = append(results, q.send(ctx, sub))
	}
	if len(results) > 0 {
		q.logger.Info("queue drained", "processed", len(results))
	}
	return results, nil
}

func (q *Queue) send(ctx context.Context, sub calendar.WeeklySubmission) calendar.WeeklySubmission {
	log := q.logger.With("week", sub.WeekStart, "id", sub.ID)

	if err := q.storage.UpdateWeeklySubmissionStatus(ctx, sub.ID, calendar.SubmissionSending, ""); err != nil {
		log.Error("mark sending failed", "error", err)
		return sub
	}
	sub.Status = calendar.SubmissionSending
	sub.Attempts++

	status, lastError := calendar.SubmissionSent, ""
	if err := q.sender.Send(ctx, sub); err != nil {
		serr := &calendar.SubmissionError{SubmissionID: sub.ID, Err: err}
		status, lastError = calendar.SubmissionFailed, err.Error()
		log.Warn("submission failed", "attempt", sub.Attempts, "error", serr)
	}

	if err := q.storage.UpdateWeeklySubmissionStatus(ctx, sub.ID, status, lastError); err != nil {
		// The record may have been withdrawn by an unlock while in flight.
		log.Error("record send outcome failed", "status", status, "error", err)
		sub.Status, sub.LastError = status, lastError
		return sub
	}

	if fresh, err := q.storage.WeeklySubmission(ctx, sub.ID); err == nil && fresh != nil {
		sub = *fresh
	} else {
		sub.Status, sub.LastError = status, lastError
	}
	if status == calendar.SubmissionSent {
		log.Info("submission sent", "attempt", sub.Attempts)
	}
	return sub
}

// Reconcile marks records left in sending by an interrupted process as
// failed so the next drain retries them. It returns how many it moved.
func (q *Queue) Reconcile(ctx context.Context) (int, error) {
	stuck, err := q.storage.WeeklySubmissions(ctx, calendar.SubmissionSending)
	if err != nil {
		return 0, calendar.WrapStorage("list submissions", err)
	}
	for _, sub := range stuck {
		if err := q.storage.UpdateWeeklySubmissionStatus(ctx, sub.ID, calendar.SubmissionFailed, InterruptedError); err != nil {
			return 0, calendar.WrapStorage("reconcile submission", err)
		}
		q.logger.Warn("submission interrupted while sending", "week", sub.WeekStart, "id", sub.ID)
	}
	return len(stuck), nil
}

// List returns every submission record, oldest first.
func (q *Queue) List(ctx context.Context) ([]calendar.WeeklySubmission, error) {
	subs, err := q.storage.WeeklySubmissions(ctx)
	if err != nil {
		return nil, calendar.WrapStorage("list submissions", err)
	}
	return subs, nil
}
