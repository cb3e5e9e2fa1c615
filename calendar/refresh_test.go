package calendar_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/shift-calendar/calendar"
	"github.com/warp/shift-calendar/store/memory"
)

func TestRefresher_LiveTickNotifiesWithoutReading(t *testing.T) {
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))
	var notified atomic.Int32
	cal.Subscribe(func(calendar.State) { notified.Add(1) })

	r := calendar.NewRefresher(cal, nil)
	require.NoError(t, r.Tick(context.Background()))
	assert.Equal(t, int32(1), notified.Load())
}

func TestRefresher_ReviewTickReloadsRange(t *testing.T) {
	// GIVEN: Storage holds a record the calendar has not seen, plus a
	// Sunday night session spilling into the range
	ctx := context.Background()
	store := memory.New()
	inRange := calendar.TrackingRecord{ID: "in", Date: monday, StartTime: calendar.MustTimeOfDay("09:00"), DurationMinutes: 60}
	overnight := calendar.TrackingRecord{ID: "overnight", Date: monday.AddDays(-1), StartTime: calendar.MustTimeOfDay("23:00"), DurationMinutes: 120}
	outside := calendar.TrackingRecord{ID: "outside", Date: monday.AddDays(-3), StartTime: 0, DurationMinutes: 30}
	for _, rec := range []calendar.TrackingRecord{inRange, overnight, outside} {
		require.NoError(t, store.SaveTrackingRecord(ctx, rec))
	}
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))

	// WHEN: A review tick runs for Monday..Sunday
	r := calendar.NewRefresher(cal, nil)
	r.Source = store
	r.Range = func() (calendar.DateKey, calendar.DateKey) { return monday, monday.AddDays(6) }
	require.NoError(t, r.Tick(ctx))

	// THEN: Records for the range and the day before are loaded
	tracking := cal.State().Tracking
	assert.Contains(t, tracking, "in")
	assert.Contains(t, tracking, "overnight")
	assert.NotContains(t, tracking, "outside")
	assert.Equal(t, 60+60, calendar.TrackedMinutes(cal.State(), monday, now))
}

// interleavedSource runs edit after reading and before returning, so the
// records it returns are already stale.
type interleavedSource struct {
	calendar.TrackingStore
	edit func()
}

func (s *interleavedSource) TrackingRecords(ctx context.Context, from, to calendar.DateKey) ([]calendar.TrackingRecord, error) {
	records, err := s.TrackingStore.TrackingRecords(ctx, from, to)
	if s.edit != nil {
		s.edit()
	}
	return records, err
}

func TestRefresher_KeepsEditPersistedDuringRead(t *testing.T) {
	// GIVEN: A stored record loaded into the calendar
	ctx := context.Background()
	store := memory.New()
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))
	exec := calendar.NewExecutor(cal, store, nil)
	_, err := exec.Execute(ctx, calendar.CreateTracking{Record: calendar.TrackingRecord{
		ID: "r1", Date: monday, StartTime: calendar.MustTimeOfDay("08:00"), DurationMinutes: 480,
	}})
	require.NoError(t, err)

	// WHEN: A break edit is applied and persisted while the tick is reading
	source := &interleavedSource{TrackingStore: store, edit: func() {
		_, err := exec.Execute(ctx, calendar.UpdateTrackingBreak{ID: "r1", Minutes: 30})
		require.NoError(t, err)
	}}
	r := calendar.NewRefresher(cal, nil)
	r.Source = source
	r.Range = func() (calendar.DateKey, calendar.DateKey) { return monday, monday.AddDays(6) }
	require.NoError(t, r.Tick(ctx))

	// THEN: The stale read does not undo the edit in memory
	assert.Equal(t, 30, cal.State().Tracking["r1"].BreakMinutes)
	stored, err := store.TrackingRecords(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 30, stored[0].BreakMinutes)

	// AND: The next tick reads the edit back normally
	source.edit = nil
	require.NoError(t, r.Tick(ctx))
	assert.Equal(t, 30, cal.State().Tracking["r1"].BreakMinutes)
}

func TestCalendar_GuardedHydrateKeepsLaterEdits(t *testing.T) {
	// GIVEN: A snapshot read before a tracking edit landed
	ctx := context.Background()
	store := memory.New()
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))
	exec := calendar.NewExecutor(cal, store, nil)
	_, err := exec.Execute(ctx, calendar.CreateTracking{Record: calendar.TrackingRecord{
		ID: "r1", Date: monday, StartTime: calendar.MustTimeOfDay("08:00"), DurationMinutes: 480,
	}})
	require.NoError(t, err)

	mark := cal.EditMark()
	snapshot, err := calendar.Load(ctx, store, monday, monday.AddDays(6))
	require.NoError(t, err)
	_, err = exec.Execute(ctx, calendar.UpdateTrackingBreak{ID: "r1", Minutes: 45})
	require.NoError(t, err)

	// WHEN: The stale snapshot is hydrated with the mark taken before the read
	_, err = cal.Dispatch(calendar.Hydrate{Snapshot: snapshot, From: monday, To: monday.AddDays(6), Since: mark})
	require.NoError(t, err)

	// THEN: The edit survives and the range is held
	assert.Equal(t, 45, cal.State().Tracking["r1"].BreakMinutes)
	assert.True(t, cal.Covers(monday))
	assert.True(t, cal.Covers(monday.AddDays(6)))
	assert.False(t, cal.Covers(monday.AddDays(7)))

	// AND: An unguarded hydrate replaces everything and drops the range
	_, err = cal.Dispatch(calendar.Hydrate{Snapshot: calendar.NewState()})
	require.NoError(t, err)
	assert.Empty(t, cal.State().Tracking)
	assert.False(t, cal.Covers(monday))
}

func TestRefresher_StartStop(t *testing.T) {
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))
	var notified atomic.Int32
	cal.Subscribe(func(calendar.State) { notified.Add(1) })

	r := calendar.NewRefresher(cal, nil)
	r.Interval = 5 * time.Millisecond
	r.Start(context.Background())
	r.Start(context.Background())

	assert.Eventually(t, func() bool { return notified.Load() >= 2 }, time.Second, time.Millisecond)

	r.Stop()
	after := notified.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, notified.Load(), "no ticks after Stop")
	r.Stop()
}
