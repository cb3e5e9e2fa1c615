/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	calendars for testing and demos. Each scenario creates templates,
	places shifts and records tracking through the executor, so the
	calendar in memory and the store stay in step.

AVAILABLE SCENARIOS:

	blank:          Shift and absence templates only
	rotating-week:  Early/late rotation last week, tracked manually
	night-shifts:   Overnight shifts last week with geofence sessions
	                crossing midnight, plus a sick day

HOW SCENARIOS WORK:
 1. Reset the store (clear all data) and empty the calendar
 2. Create the standard templates
 3. Arm a template and place it day by day
 4. Record tracking for the placed shifts

Dates are relative to today: "last week" is the full week before the
current one, so it can be confirmed and submitted right away.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "night-shifts"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Executor and calendar wiring
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/shift-calendar/calendar"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "blank",
		Name:        "Blank",
		Description: "Early, late and night templates plus vacation and sick leave",
		Category:    "templates",
	},
	{
		ID:          "rotating-week",
		Name:        "Rotating Week",
		Description: "Early shifts Monday to Wednesday, late shifts Thursday and Friday, tracked manually",
		Category:    "planning",
	},
	{
		ID:          "night-shifts",
		Name:        "Night Shifts",
		Description: "Overnight shifts with geofence sessions crossing midnight and a sick day",
		Category:    "tracking",
	},
}

// Resetter is implemented by stores that can be wiped for demos.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var load func(context.Context) error
	switch req.ScenarioID {
	case "blank":
		load = func(ctx context.Context) error { _, err := h.createStandardTemplates(ctx); return err }
	case "rotating-week":
		load = h.loadRotatingWeekScenario
	case "night-shifts":
		load = h.loadNightShiftsScenario
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if _, err := h.Calendar.Dispatch(calendar.Hydrate{Snapshot: calendar.NewState()}); err != nil {
		writeDomainError(w, "Failed to reset calendar", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeDomainError(w, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	if _, err := h.Executor.Execute(ctx, calendar.Disarm{}); err != nil {
		writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", "scenario", req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type standardTemplates struct {
	early, late, night calendar.ShiftTemplate
	vacation, sick     calendar.AbsenceTemplate
}

func (h *Handler) createStandardTemplates(ctx context.Context) (standardTemplates, error) {
	t := standardTemplates{
		early: calendar.ShiftTemplate{
			ID: h.Executor.NewID(), Name: "Early", StartTime: calendar.MustTimeOfDay("06:00"),
			DurationMinutes: 480, Color: "#f5a623", BreakMinutes: 30,
		},
		late: calendar.ShiftTemplate{
			ID: h.Executor.NewID(), Name: "Late", StartTime: calendar.MustTimeOfDay("14:00"),
			DurationMinutes: 480, Color: "#4a90e2", BreakMinutes: 30,
		},
		night: calendar.ShiftTemplate{
			ID: h.Executor.NewID(), Name: "Night", StartTime: calendar.MustTimeOfDay("22:00"),
			DurationMinutes: 480, Color: "#50356b", BreakMinutes: 30,
		},
		vacation: calendar.AbsenceTemplate{
			ID: h.Executor.NewID(), Name: "Vacation", Type: calendar.AbsenceVacation, IsFullDay: true, Color: "#7ed321",
		},
		sick: calendar.AbsenceTemplate{
			ID: h.Executor.NewID(), Name: "Sick", Type: calendar.AbsenceSick, IsFullDay: true, Color: "#d0021b",
		},
	}

	actions := []calendar.Action{
		calendar.CreateShiftTemplate{Template: t.early},
		calendar.CreateShiftTemplate{Template: t.late},
		calendar.CreateShiftTemplate{Template: t.night},
		calendar.CreateAbsenceTemplate{Template: t.vacation},
		calendar.CreateAbsenceTemplate{Template: t.sick},
	}
	for _, a := range actions {
		if _, err := h.Executor.Execute(ctx, a); err != nil {
			return t, err
		}
	}
	return t, nil
}

// placeWith arms tmpl and places it on each date.
func (h *Handler) placeWith(ctx context.Context, tmpl calendar.ShiftTemplate, dates ...calendar.DateKey) ([]calendar.ShiftInstance, error) {
	if _, err := h.Executor.Execute(ctx, calendar.ArmTemplate{TemplateID: tmpl.ID}); err != nil {
		return nil, err
	}
	placed := make([]calendar.ShiftInstance, 0, len(dates))
	for _, date := range dates {
		inst, err := h.Executor.PlaceShift(ctx, date, nil)
		if err != nil {
			return placed, err
		}
		placed = append(placed, inst)
	}
	return placed, nil
}

// track records a finished session for inst, shifted by startDelta and
// lengthened by extra minutes.
func (h *Handler) track(ctx context.Context, inst calendar.ShiftInstance, startDelta, extra, breakMinutes int, source calendar.TrackingSource) error {
	_, err := h.Executor.Execute(ctx, calendar.CreateTracking{Record: calendar.TrackingRecord{
		ID:              h.Executor.NewID(),
		Date:            inst.Date,
		StartTime:       calendar.TimeOfDay(inst.StartTime.Minutes() + startDelta),
		DurationMinutes: inst.DurationMinutes - startDelta + extra,
		BreakMinutes:    breakMinutes,
		Source:          source,
	}})
	return err
}

func (h *Handler) lastWeek() calendar.DateKey {
	return calendar.Today(h.Calendar.Clock()).WeekStart().AddDays(-7)
}

func (h *Handler) loadRotatingWeekScenario(ctx context.Context) error {
	t, err := h.createStandardTemplates(ctx)
	if err != nil {
		return err
	}
	week := h.lastWeek().WeekDates()

	early, err := h.placeWith(ctx, t.early, week[0], week[1], week[2])
	if err != nil {
		return err
	}
	late, err := h.placeWith(ctx, t.late, week[3], week[4])
	if err != nil {
		return err
	}

	// Clocked in a few minutes early, out a little late.
	for i, inst := range append(early, late...) {
		if err := h.track(ctx, inst, -5, 5*(i%3), 30, calendar.SourceManual); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadNightShiftsScenario(ctx context.Context) error {
	t, err := h.createStandardTemplates(ctx)
	if err != nil {
		return err
	}
	week := h.lastWeek().WeekDates()

	nights, err := h.placeWith(ctx, t.night, week[0], week[1], week[2], week[4])
	if err != nil {
		return err
	}
	for _, inst := range nights {
		if err := h.track(ctx, inst, -10, 15, 45, calendar.SourceGeofence); err != nil {
			return err
		}
	}

	if _, err := h.Executor.Execute(ctx, calendar.ArmAbsenceTemplate{TemplateID: t.sick.ID}); err != nil {
		return err
	}
	_, err = h.Executor.PlaceAbsence(ctx, week[3])
	return err
}
