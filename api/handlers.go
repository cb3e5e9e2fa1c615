/*
handlers.go - HTTP API handlers for the shift calendar

PURPOSE:
  Exposes the calendar engine via REST API. Each handler is one UI intent:
  it parses and validates the request, runs it through the executor,
  confirmation engine or submission queue, and serializes the result.

ENDPOINTS:
  Calendar:
    GET    /api/calendar?from&to              Load visible range
    GET    /api/weeks/{weekStart}             Week confirmation progress

  Templates:
    GET    /api/templates/shifts              List shift templates
    POST   /api/templates/shifts              Create shift template
    PUT    /api/templates/shifts/{id}         Update shift template
    DELETE /api/templates/shifts/{id}         Delete (instances become orphans)
    (same four under /api/templates/absences)

  Placement:
    POST   /api/placement/arm                 Arm a shift or absence template
    POST   /api/placement/disarm              Clear armed template
    POST   /api/placement/select              Select an instance (disarms)
    POST   /api/days/{date}/shifts            Place armed shift template
    POST   /api/days/{date}/absences          Place armed absence template
    PUT    /api/shifts/{id}                   Reschedule instance
    DELETE /api/shifts/{id}                   Delete instance
    DELETE /api/absences/{id}                 Delete absence

  Tracking:
    POST   /api/tracking                      Create record
    PATCH  /api/tracking/{id}/start|end|break Adjust record
    POST   /api/tracking/{id}/drag            Drag an edge on the grid
    DELETE /api/tracking/{id}                 Delete record

  Confirmation & submission:
    POST   /api/days/{date}/confirm           Confirm a past day
    POST   /api/days/{date}/unlock            Withdraw the week's submission
    POST   /api/weeks/{weekStart}/submit      Enqueue a fully confirmed week
    GET    /api/submissions                   List submission records
    POST   /api/submissions/process           Send now / retry

  Scenarios (demo only):
    GET    /api/scenarios                     List scenarios
    GET    /api/scenarios/current             Currently loaded scenario
    POST   /api/scenarios/load                Reset and load a scenario

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (overlap, locked day, duplicate submission, already sent)
  - 500: Storage and internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scenarios.go: Demo scenario loaders
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/shift-calendar/calendar"
	"github.com/warp/shift-calendar/submission"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Calendar     *calendar.Calendar
	Store        calendar.Storage
	Executor     *calendar.Executor
	Confirmation *calendar.ConfirmationEngine
	Queue        *submission.Queue
	Logger       *slog.Logger

	validate *validator.Validate

	rangeMu  sync.RWMutex
	from, to calendar.DateKey

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler wires the calendar engine components around cal and store.
func NewHandler(cal *calendar.Calendar, store calendar.Storage, queue *submission.Queue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	today := calendar.Today(cal.Clock())
	return &Handler{
		Calendar:     cal,
		Store:        store,
		Executor:     calendar.NewExecutor(cal, store, logger),
		Confirmation: calendar.NewConfirmationEngine(cal, store, logger),
		Queue:        queue,
		Logger:       logger,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
		from:         today.WeekStart(),
		to:           today.WeekStart().AddDays(6),
	}
}

// VisibleRange returns the range most recently loaded through GetCalendar.
func (h *Handler) VisibleRange() (calendar.DateKey, calendar.DateKey) {
	h.rangeMu.RLock()
	defer h.rangeMu.RUnlock()
	return h.from, h.to
}

// =============================================================================
// CALENDAR HANDLERS
// =============================================================================

// GetCalendar loads [from, to] from storage into the calendar and returns it.
// Both parameters default to the current week.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	from, to := h.VisibleRange()
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = calendar.ParseDateKey(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date (use YYYY-MM-DD)", err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = calendar.ParseDateKey(v); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date (use YYYY-MM-DD)", err)
			return
		}
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from", nil)
		return
	}
	if len(calendar.DatesBetween(from, to)) > 62 {
		writeError(w, http.StatusBadRequest, "Range too large (max 62 days)", nil)
		return
	}

	mark := h.Calendar.EditMark()
	snapshot, err := calendar.Load(r.Context(), h.Store, from, to)
	if err != nil {
		writeDomainError(w, "Failed to load calendar", err)
		return
	}
	state, err := h.Calendar.Dispatch(calendar.Hydrate{Snapshot: snapshot, From: from, To: to, Since: mark})
	if err != nil {
		writeDomainError(w, "Failed to load calendar", err)
		return
	}

	h.rangeMu.Lock()
	h.from, h.to = from, to
	h.rangeMu.Unlock()

	now := h.Calendar.Now()
	resp := CalendarResponse{From: from, To: to, State: state}
	for _, date := range calendar.DatesBetween(from, to) {
		resp.Days = append(resp.Days, toDayDTO(state, date, now))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetWeek returns the confirmation progress of a week.
func (h *Handler) GetWeek(w http.ResponseWriter, r *http.Request) {
	weekStart, ok := h.dateParam(w, r, "weekStart")
	if !ok {
		return
	}
	if !weekStart.IsWeekStart() {
		writeDomainError(w, "Invalid week", &calendar.ValidationError{Reason: calendar.ErrInvalidWeekStart, Date: weekStart})
		return
	}
	writeJSON(w, http.StatusOK, h.Confirmation.WeekProgress(weekStart))
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

func (h *Handler) ListShiftTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.ShiftTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shift templates", err)
		return
	}
	if templates == nil {
		templates = []calendar.ShiftTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *Handler) CreateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	var req ShiftTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := req.toTemplate(h.Executor.NewID())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	if _, err := h.Executor.Execute(r.Context(), calendar.CreateShiftTemplate{Template: t}); err != nil {
		writeDomainError(w, "Failed to create shift template", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateShiftTemplate(w http.ResponseWriter, r *http.Request) {
	var req ShiftTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := req.toTemplate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	if _, err := h.Executor.Execute(r.Context(), calendar.UpdateShiftTemplate{Template: t}); err != nil {
		writeDomainError(w, "Failed to update shift template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteShiftTemplate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Executor.Execute(r.Context(), calendar.DeleteShiftTemplate{ID: chi.URLParam(r, "id")}); err != nil {
		writeDomainError(w, "Failed to delete shift template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListAbsenceTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.Store.AbsenceTemplates(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list absence templates", err)
		return
	}
	if templates == nil {
		templates = []calendar.AbsenceTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *Handler) CreateAbsenceTemplate(w http.ResponseWriter, r *http.Request) {
	var req AbsenceTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := req.toTemplate(h.Executor.NewID())
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	if _, err := h.Executor.Execute(r.Context(), calendar.CreateAbsenceTemplate{Template: t}); err != nil {
		writeDomainError(w, "Failed to create absence template", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) UpdateAbsenceTemplate(w http.ResponseWriter, r *http.Request) {
	var req AbsenceTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := req.toTemplate(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	if _, err := h.Executor.Execute(r.Context(), calendar.UpdateAbsenceTemplate{Template: t}); err != nil {
		writeDomainError(w, "Failed to update absence template", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) DeleteAbsenceTemplate(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Executor.Execute(r.Context(), calendar.DeleteAbsenceTemplate{ID: chi.URLParam(r, "id")}); err != nil {
		writeDomainError(w, "Failed to delete absence template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req ShiftTemplateRequest) toTemplate(id string) (calendar.ShiftTemplate, error) {
	start, err := calendar.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return calendar.ShiftTemplate{}, err
	}
	return calendar.ShiftTemplate{
		ID:              id,
		Name:            req.Name,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		Color:           req.Color,
		BreakMinutes:    req.BreakMinutes,
	}, nil
}

func (req AbsenceTemplateRequest) toTemplate(id string) (calendar.AbsenceTemplate, error) {
	t := calendar.AbsenceTemplate{
		ID:              id,
		Name:            req.Name,
		Type:            calendar.AbsenceType(req.Type),
		IsFullDay:       req.IsFullDay,
		DurationMinutes: req.DurationMinutes,
		Color:           req.Color,
	}
	if req.StartTime != "" {
		start, err := calendar.ParseTimeOfDay(req.StartTime)
		if err != nil {
			return t, err
		}
		t.StartTime = start
	}
	return t, nil
}

// =============================================================================
// PLACEMENT HANDLERS
// =============================================================================

// Arm selects a template for placement. Kind defaults to shift.
func (h *Handler) Arm(w http.ResponseWriter, r *http.Request) {
	var req ArmRequest
	if !h.decode(w, r, &req) {
		return
	}
	var action calendar.Action = calendar.ArmTemplate{TemplateID: req.TemplateID}
	if req.Kind == "absence" {
		action = calendar.ArmAbsenceTemplate{TemplateID: req.TemplateID}
	}
	h.dispatch(w, r, action)
}

func (h *Handler) Disarm(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, calendar.Disarm{})
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.dispatch(w, r, calendar.SelectInstance{ID: req.InstanceID})
}

// dispatch runs a memory-only action and answers with the armed selection.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, a calendar.Action) {
	state, err := h.Executor.Execute(r.Context(), a)
	if err != nil {
		writeDomainError(w, "Action rejected", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"armedTemplateId":        state.ArmedTemplateID,
		"armedAbsenceTemplateId": state.ArmedAbsenceTemplateID,
	})
}

// PlaceShift places the armed template on the date. Without a time slot the
// template's own start time is used.
func (h *Handler) PlaceShift(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}
	var req PlaceShiftRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	var slot *calendar.TimeOfDay
	if req.TimeSlot != "" {
		t, err := calendar.ParseTimeOfDay(req.TimeSlot)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid time slot", err)
			return
		}
		slot = &t
	}

	inst, err := h.Executor.PlaceShift(r.Context(), date, slot)
	if err != nil {
		writeDomainError(w, "Failed to place shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *Handler) PlaceAbsence(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}
	inst, err := h.Executor.PlaceAbsence(r.Context(), date)
	if err != nil {
		writeDomainError(w, "Failed to place absence", err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// RescheduleShift moves an instance to a new date and start, optionally
// changing its duration.
func (h *Handler) RescheduleShift(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req RescheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	inst, ok := h.Calendar.State().ShiftInstances[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Shift not found", nil)
		return
	}
	date, err := calendar.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	start, err := calendar.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	inst.Date, inst.StartTime = date, start
	if req.DurationMinutes > 0 {
		inst.DurationMinutes = req.DurationMinutes
	}

	if _, err := h.Executor.Execute(r.Context(), calendar.UpdateShiftInstance{Instance: inst}); err != nil {
		writeDomainError(w, "Failed to reschedule shift", err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Executor.Execute(r.Context(), calendar.DeleteShiftInstance{ID: chi.URLParam(r, "id")}); err != nil {
		writeDomainError(w, "Failed to delete shift", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Executor.Execute(r.Context(), calendar.DeleteAbsenceInstance{ID: chi.URLParam(r, "id")}); err != nil {
		writeDomainError(w, "Failed to delete absence", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// TRACKING HANDLERS
// =============================================================================

func (h *Handler) CreateTracking(w http.ResponseWriter, r *http.Request) {
	var req CreateTrackingRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, err := calendar.ParseDateKey(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}
	start, err := calendar.ParseTimeOfDay(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time", err)
		return
	}
	source := calendar.TrackingSource(req.Source)
	if source == "" {
		source = calendar.SourceManual
	}

	rec := calendar.TrackingRecord{
		ID:              h.Executor.NewID(),
		Date:            date,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		BreakMinutes:    req.BreakMinutes,
		IsActive:        req.IsActive,
		Source:          source,
	}
	if _, err := h.Executor.Execute(r.Context(), calendar.CreateTracking{Record: rec}); err != nil {
		writeDomainError(w, "Failed to create tracking record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) UpdateTrackingStart(w http.ResponseWriter, r *http.Request) {
	var req TimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := calendar.ParseTimeOfDay(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time", err)
		return
	}
	id := chi.URLParam(r, "id")
	h.trackingAction(w, r, id, calendar.UpdateTrackingStart{ID: id, NewStart: t})
}

func (h *Handler) UpdateTrackingEnd(w http.ResponseWriter, r *http.Request) {
	var req TimeRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := calendar.ParseTimeOfDay(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time", err)
		return
	}
	id := chi.URLParam(r, "id")
	h.trackingAction(w, r, id, calendar.UpdateTrackingEnd{ID: id, NewEnd: t})
}

func (h *Handler) UpdateTrackingBreak(w http.ResponseWriter, r *http.Request) {
	var req BreakRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	h.trackingAction(w, r, id, calendar.UpdateTrackingBreak{ID: id, Minutes: req.Minutes})
}

// DragTracking moves one edge of a record by a drag distance rounded to the
// 5-minute grid. A drag shorter than half a step changes nothing.
func (h *Handler) DragTracking(w http.ResponseWriter, r *http.Request) {
	var req DragRequest
	if !h.decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	rec, ok := h.Calendar.State().Tracking[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Tracking record not found", nil)
		return
	}

	delta := calendar.RoundToStep(req.DeltaPixels, req.PixelsPerHour, calendar.DefaultStepMinutes)
	if delta == 0 {
		writeJSON(w, http.StatusOK, rec)
		return
	}

	now := h.Calendar.Now()
	var action calendar.Action
	switch req.Edge {
	case "start":
		start := min(max(rec.StartTime.Minutes()+delta, 0), calendar.MinutesPerDay-1)
		action = calendar.UpdateTrackingStart{ID: id, NewStart: calendar.TimeOfDay(start)}
	default:
		end := max(rec.End(now)+delta, 0)
		if end >= calendar.MinutesPerDay {
			if rec.End(now) <= calendar.MinutesPerDay {
				end = calendar.MinutesPerDay - 1
			} else {
				end %= calendar.MinutesPerDay
			}
		}
		action = calendar.UpdateTrackingEnd{ID: id, NewEnd: calendar.TimeOfDay(end)}
	}
	h.trackingAction(w, r, id, action)
}

func (h *Handler) trackingAction(w http.ResponseWriter, r *http.Request, id string, a calendar.Action) {
	state, err := h.Executor.Execute(r.Context(), a)
	if err != nil {
		writeDomainError(w, "Failed to update tracking record", err)
		return
	}
	writeJSON(w, http.StatusOK, state.Tracking[id])
}

func (h *Handler) DeleteTracking(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Executor.Execute(r.Context(), calendar.DeleteTracking{ID: chi.URLParam(r, "id")}); err != nil {
		writeDomainError(w, "Failed to delete tracking record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONFIRMATION HANDLERS
// =============================================================================

// ConfirmDay confirms a past day. When this completes the week, the week is
// enqueued and the queue drained in the same request; a failed send is
// reported on the submission, not as an HTTP error.
func (h *Handler) ConfirmDay(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}

	actual, err := h.Confirmation.ConfirmDay(r.Context(), date)
	if err != nil {
		writeDomainError(w, "Failed to confirm day", err)
		return
	}

	resp := ConfirmResponse{Actual: actual, Progress: h.Confirmation.WeekProgress(date.WeekStart())}
	if resp.Progress.ReadyToSubmit() && h.Queue != nil {
		sub, err := h.Queue.SubmitWeek(r.Context(), date.WeekStart())
		if err != nil {
			h.Logger.Warn("auto-submit failed", "week", date.WeekStart(), "error", err)
			resp.SubmissionError = err.Error()
		} else {
			if processed, err := h.Queue.ProcessQueue(r.Context(), sub.ID); err == nil && len(processed) == 1 {
				sub = processed[0]
			}
			dto := toSubmissionDTO(sub)
			resp.Submission = &dto
			resp.Progress = h.Confirmation.WeekProgress(date.WeekStart())
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) UnlockDay(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r, "date")
	if !ok {
		return
	}
	dates, err := h.Confirmation.UnlockDay(r.Context(), date)
	if err != nil {
		writeDomainError(w, "Failed to unlock day", err)
		return
	}
	writeJSON(w, http.StatusOK, UnlockResponse{Unlocked: dates})
}

// =============================================================================
// SUBMISSION HANDLERS
// =============================================================================

func (h *Handler) SubmitWeek(w http.ResponseWriter, r *http.Request) {
	weekStart, ok := h.dateParam(w, r, "weekStart")
	if !ok {
		return
	}
	sub, err := h.Queue.SubmitWeek(r.Context(), weekStart)
	if err != nil {
		writeDomainError(w, "Failed to submit week", err)
		return
	}
	writeJSON(w, http.StatusCreated, toSubmissionDTO(sub))
}

func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Queue.List(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionDTOs(subs))
}

// ProcessSubmissions drains the queue, restricted to ids when given. This
// backs both "Send now" and "Retry".
func (h *Handler) ProcessSubmissions(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	processed, err := h.Queue.ProcessQueue(r.Context(), req.IDs...)
	if err != nil {
		writeDomainError(w, "Failed to process submissions", err)
		return
	}
	writeJSON(w, http.StatusOK, toSubmissionDTOs(processed))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request, name string) (calendar.DateKey, bool) {
	date, err := calendar.ParseDateKey(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return "", false
	}
	return date, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the calendar error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrOverlap),
		errors.Is(err, calendar.ErrDuplicateSubmission),
		errors.Is(err, calendar.ErrAlreadySent),
		errors.Is(err, calendar.ErrSendInFlight),
		errors.Is(err, calendar.ErrDayLocked):
		return http.StatusConflict
	case calendar.IsNotFound(err):
		return http.StatusNotFound
	case calendar.IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
