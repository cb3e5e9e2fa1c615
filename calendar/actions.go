package calendar

import "time"

// Action is the closed set of calendar state transitions. Only types in this
// package implement it.
type Action interface {
	actionName() string
}

// =============================================================================
// TEMPLATES
// =============================================================================

type CreateShiftTemplate struct{ Template ShiftTemplate }
type UpdateShiftTemplate struct{ Template ShiftTemplate }

// DeleteShiftTemplate removes a template. Instances created from it remain,
// orphaned.
type DeleteShiftTemplate struct{ ID string }

type CreateAbsenceTemplate struct{ Template AbsenceTemplate }
type UpdateAbsenceTemplate struct{ Template AbsenceTemplate }
type DeleteAbsenceTemplate struct{ ID string }

// =============================================================================
// INSTANCES
// =============================================================================

type CreateShiftInstance struct{ Instance ShiftInstance }

// UpdateShiftInstance reschedules or edits an instance in place.
type UpdateShiftInstance struct{ Instance ShiftInstance }
type DeleteShiftInstance struct{ ID string }

type CreateAbsenceInstance struct{ Instance AbsenceInstance }
type DeleteAbsenceInstance struct{ ID string }

// =============================================================================
// PLACEMENT
// =============================================================================

// ArmTemplate selects a shift template for placement and disarms any
// absence template.
type ArmTemplate struct{ TemplateID string }

// ArmAbsenceTemplate selects an absence template and disarms any shift
// template.
type ArmAbsenceTemplate struct{ TemplateID string }

type Disarm struct{}

// SelectInstance records that the user interacted with an existing
// instance; it clears any armed template.
type SelectInstance struct{ ID string }

// PlaceShift creates an instance of the armed template on Date. A nil
// TimeSlot places it at the template's configured start time.
type PlaceShift struct {
	Date       DateKey
	TimeSlot   *TimeOfDay
	InstanceID string
}

// PlaceAbsence creates an instance of the armed absence template on Date.
type PlaceAbsence struct {
	Date       DateKey
	InstanceID string
}

// =============================================================================
// CONFIRMATION
// =============================================================================

// ConfirmDay marks Date confirmed. The past-day rule is enforced by the
// confirmation engine before dispatch, not here.
type ConfirmDay struct {
	Date        DateKey
	ConfirmedAt time.Time
}

type LockConfirmedDays struct {
	Dates        []DateKey
	SubmissionID string
}

type UnlockConfirmedDays struct{ Dates []DateKey }

// =============================================================================
// TRACKING
// =============================================================================

type CreateTracking struct{ Record TrackingRecord }
type DeleteTracking struct{ ID string }

// ReplaceTracking overwrites a record wholesale; used to compensate failed
// persistence of tracking edits.
type ReplaceTracking struct{ Record TrackingRecord }

// UpdateTrackingStart moves the start boundary, keeping the end fixed.
type UpdateTrackingStart struct {
	ID       string
	NewStart TimeOfDay
}

// UpdateTrackingEnd moves the end boundary, keeping the start fixed, and
// clocks out an active session.
type UpdateTrackingEnd struct {
	ID     string
	NewEnd TimeOfDay
}

type UpdateTrackingBreak struct {
	ID      string
	Minutes int
}

// =============================================================================
// LOADING
// =============================================================================

// Hydrate replaces the loaded collections with Snapshot's, keeping the armed
// template selection when the template still exists. From and To name the
// range Snapshot was loaded for; zero values mean no range is held. A
// non-zero Since keeps local tracking records edited after that mark, and
// those in Skip.
type Hydrate struct {
	Snapshot State
	From, To DateKey
	Since    EditMark
	Skip     map[string]bool
}

// RefreshTracking replaces tracking records with freshly read ones, except
// the ids in Skip (local edits not yet flushed). It always produces a new
// state so subscribers re-render active session durations.
type RefreshTracking struct {
	Records []TrackingRecord
	Skip    map[string]bool
	Reload  bool
	// Records edited after this mark are also kept.
	Since EditMark
}

func (CreateShiftTemplate) actionName() string   { return "CREATE_SHIFT_TEMPLATE" }
func (UpdateShiftTemplate) actionName() string   { return "UPDATE_SHIFT_TEMPLATE" }
func (DeleteShiftTemplate) actionName() string   { return "DELETE_SHIFT_TEMPLATE" }
func (CreateAbsenceTemplate) actionName() string { return "CREATE_ABSENCE_TEMPLATE" }
func (UpdateAbsenceTemplate) actionName() string { return "UPDATE_ABSENCE_TEMPLATE" }
func (DeleteAbsenceTemplate) actionName() string { return "DELETE_ABSENCE_TEMPLATE" }
func (CreateShiftInstance) actionName() string   { return "CREATE_SHIFT_INSTANCE" }
func (UpdateShiftInstance) actionName() string   { return "UPDATE_SHIFT_INSTANCE" }
func (DeleteShiftInstance) actionName() string   { return "DELETE_SHIFT_INSTANCE" }
func (CreateAbsenceInstance) actionName() string { return "CREATE_ABSENCE_INSTANCE" }
func (DeleteAbsenceInstance) actionName() string { return "DELETE_ABSENCE_INSTANCE" }
func (ArmTemplate) actionName() string           { return "ARM_TEMPLATE" }
func (ArmAbsenceTemplate) actionName() string    { return "ARM_ABSENCE_TEMPLATE" }
func (Disarm) actionName() string                { return "DISARM" }
func (SelectInstance) actionName() string        { return "SELECT_INSTANCE" }
func (PlaceShift) actionName() string            { return "PLACE_SHIFT" }
func (PlaceAbsence) actionName() string          { return "PLACE_ABSENCE" }
func (ConfirmDay) actionName() string            { return "CONFIRM_DAY" }
func (LockConfirmedDays) actionName() string     { return "LOCK_CONFIRMED_DAYS" }
func (UnlockConfirmedDays) actionName() string   { return "UNLOCK_CONFIRMED_DAYS" }
func (CreateTracking) actionName() string        { return "CREATE_TRACKING" }
func (DeleteTracking) actionName() string        { return "DELETE_TRACKING" }
func (ReplaceTracking) actionName() string       { return "REPLACE_TRACKING" }
func (UpdateTrackingStart) actionName() string   { return "UPDATE_TRACKING_START" }
func (UpdateTrackingEnd) actionName() string     { return "UPDATE_TRACKING_END" }
func (UpdateTrackingBreak) actionName() string   { return "UPDATE_TRACKING_BREAK" }
func (Hydrate) actionName() string               { return "HYDRATE" }
func (RefreshTracking) actionName() string       { return "REFRESH_TRACKING" }

// ActionName returns the wire name of an action, for logging.
func ActionName(a Action) string { return a.actionName() }
