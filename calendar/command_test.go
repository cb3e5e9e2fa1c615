package calendar_test

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
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	now    = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)
	monday = calendar.MustDateKey("2026-03-09")
)

var errDiskFull = errors.New("disk full")

// flakyStorage fails the named operations outside transactions.
type flakyStorage struct {
	calendar.Storage
	fail map[string]bool
}

func (f *flakyStorage) SaveShiftInstance(ctx context.Context, i calendar.ShiftInstance) error {
	if f.fail["SaveShiftInstance"] {
		return errDiskFull
	}
	return f.Storage.SaveShiftInstance(ctx, i)
}

func (f *flakyStorage) DeleteShiftTemplate(ctx context.Context, id string) error {
	if f.fail["DeleteShiftTemplate"] {
		return errDiskFull
	}
	return f.Storage.DeleteShiftTemplate(ctx, id)
}

func (f *flakyStorage) UpdateSession(ctx context.Context, id string, u calendar.SessionUpdate) error {
	if f.fail["UpdateSession"] {
		return errDiskFull
	}
	return f.Storage.UpdateSession(ctx, id, u)
}

func (f *flakyStorage) WithTx(ctx context.Context, fn func(calendar.Storage) error) error {
	if f.fail["WithTx"] {
		return errDiskFull
	}
	return f.Storage.WithTx(ctx, fn)
}

func newExecutor(t *testing.T) (*calendar.Executor, *memory.Store, *flakyStorage) {
	t.Helper()
	store := memory.New()
	flaky := &flakyStorage{Storage: store, fail: map[string]bool{}}
	cal := calendar.New(calendar.NewState(), calendar.WithClock(func() time.Time { return now }))

	exec := calendar.NewExecutor(cal, flaky, nil)
	n := 0
	exec.NewID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return exec, store, flaky
}

func createEarly(t *testing.T, exec *calendar.Executor) {
	t.Helper()
	_, err := exec.Execute(context.Background(), calendar.CreateShiftTemplate{Template: calendar.ShiftTemplate{
		ID: "tmpl-early", Name: "Early", StartTime: calendar.MustTimeOfDay("06:00"), DurationMinutes: 480,
	}})
	require.NoError(t, err)
}

// =============================================================================
// EXECUTE
// =============================================================================

func TestExecutor_PlaceShift_Persists(t *testing.T) {
	exec, store, _ := newExecutor(t)
	ctx := context.Background()
	createEarly(t, exec)

	_, err := exec.Execute(ctx, calendar.ArmTemplate{TemplateID: "tmpl-early"})
	require.NoError(t, err)
	inst, err := exec.PlaceShift(ctx, monday, nil)
	require.NoError(t, err)
	assert.Equal(t, "id-1", inst.ID)

	stored, err := store.ShiftInstances(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, inst, stored[0])
}

func TestExecutor_PlaceShift_CompensatesOnStorageFailure(t *testing.T) {
	// GIVEN: An armed template and a storage that cannot save instances
	exec, store, flaky := newExecutor(t)
	ctx := context.Background()
	createEarly(t, exec)
	_, err := exec.Execute(ctx, calendar.ArmTemplate{TemplateID: "tmpl-early"})
	require.NoError(t, err)
	flaky.fail["SaveShiftInstance"] = true

	// WHEN: Placing a shift
	_, err = exec.PlaceShift(ctx, monday, nil)

	// THEN: Storage error surfaced, instance removed from memory, template still armed
	require.Error(t, err)
	assert.ErrorIs(t, err, calendar.ErrStorage)
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, calendar.IsRetryable(err))

	s := exec.Calendar.State()
	assert.Empty(t, s.ShiftInstances)
	assert.Equal(t, "tmpl-early", s.ArmedTemplateID)

	stored, err := store.ShiftInstances(ctx, monday, monday)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestExecutor_DeleteTemplate_RestoredOnFailure(t *testing.T) {
	exec, _, flaky := newExecutor(t)
	ctx := context.Background()
	createEarly(t, exec)
	flaky.fail["DeleteShiftTemplate"] = true

	_, err := exec.Execute(ctx, calendar.DeleteShiftTemplate{ID: "tmpl-early"})
	require.ErrorIs(t, err, calendar.ErrStorage)
	assert.Contains(t, exec.Calendar.State().ShiftTemplates, "tmpl-early")
}

func TestExecutor_TrackingEdit_RestoredOnFailure(t *testing.T) {
	// GIVEN: A persisted 09:00-10:00 record
	exec, store, flaky := newExecutor(t)
	ctx := context.Background()
	rec := calendar.TrackingRecord{ID: "t1", Date: monday, StartTime: calendar.MustTimeOfDay("09:00"), DurationMinutes: 60}
	_, err := exec.Execute(ctx, calendar.CreateTracking{Record: rec})
	require.NoError(t, err)

	// WHEN: Moving the end fails to persist
	flaky.fail["UpdateSession"] = true
	_, err = exec.Execute(ctx, calendar.UpdateTrackingEnd{ID: "t1", NewEnd: calendar.MustTimeOfDay("11:00")})

	// THEN: The record is back at 60 minutes and no longer marked dirty
	require.ErrorIs(t, err, calendar.ErrStorage)
	assert.Equal(t, rec, exec.Calendar.State().Tracking["t1"])
	assert.False(t, exec.Calendar.IsDirty("t1"))

	stored, err := store.TrackingRecords(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, 60, stored[0].DurationMinutes)
}

func TestExecutor_TrackingEdit_PersistsSession(t *testing.T) {
	exec, store, _ := newExecutor(t)
	ctx := context.Background()
	rec := calendar.TrackingRecord{ID: "t1", Date: monday, StartTime: calendar.MustTimeOfDay("09:00"), DurationMinutes: 60}
	_, err := exec.Execute(ctx, calendar.CreateTracking{Record: rec})
	require.NoError(t, err)

	_, err = exec.Execute(ctx, calendar.UpdateTrackingStart{ID: "t1", NewStart: calendar.MustTimeOfDay("08:30")})
	require.NoError(t, err)

	stored, err := store.TrackingRecords(ctx, monday, monday)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, calendar.MustTimeOfDay("08:30"), stored[0].StartTime)
	assert.Equal(t, 90, stored[0].DurationMinutes)
}

func TestExecutor_RejectedActionTouchesNothing(t *testing.T) {
	exec, store, _ := newExecutor(t)
	ctx := context.Background()

	_, err := exec.PlaceShift(ctx, monday, nil)
	require.ErrorIs(t, err, calendar.ErrNoArmedTemplate)

	stored, err := store.ShiftInstances(ctx, monday, monday)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestExecutor_RefusesEngineOwnedActions(t *testing.T) {
	exec, _, _ := newExecutor(t)
	_, err := exec.Execute(context.Background(), calendar.ConfirmDay{Date: monday, ConfirmedAt: now})
	assert.ErrorIs(t, err, calendar.ErrInvalidInput)
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_IncludesPreviousDayOverflow(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	sunday := monday.AddDays(-1)

	require.NoError(t, store.SaveShiftInstance(ctx, calendar.ShiftInstance{
		ID: "night", Date: sunday, StartTime: calendar.MustTimeOfDay("22:00"), DurationMinutes: 480, Name: "Night",
	}))
	require.NoError(t, store.SaveShiftInstance(ctx, calendar.ShiftInstance{
		ID: "far", Date: monday.AddDays(-5), StartTime: 0, DurationMinutes: 60, Name: "Old",
	}))

	s, err := calendar.Load(ctx, store, monday, monday.AddDays(6))
	require.NoError(t, err)
	assert.Contains(t, s.ShiftInstances, "night")
	assert.NotContains(t, s.ShiftInstances, "far")
	assert.Equal(t, 360, calendar.PlannedMinutes(s, monday))
}
