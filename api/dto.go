/*
dto.go - Data Transfer Objects for API requests and responses

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags; handlers call
  h.validate.Struct before touching the calendar. Dates are YYYY-MM-DD,
  times of day are HH:MM.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-calendar/calendar"
	"github.com/warp/shift-calendar/submission"
)

// =============================================================================
// CALENDAR
// =============================================================================

// CalendarResponse is the visible range with per-day aggregates.
type CalendarResponse struct {
	From  calendar.DateKey `json:"from"`
	To    calendar.DateKey `json:"to"`
	State calendar.State   `json:"state"`
	Days  []DayDTO         `json:"days"`
}

type DayDTO struct {
	Date           calendar.DateKey           `json:"date"`
	Status         string                     `json:"status"`
	SubmissionID   string                     `json:"submissionId,omitempty"`
	PlannedMinutes int                        `json:"plannedMinutes"`
	TrackedMinutes int                        `json:"trackedMinutes"`
	Segments       []calendar.TrackingSegment `json:"segments"`
	OrphanedShifts []string                   `json:"orphanedShifts,omitempty"`
}

func toDayDTO(s calendar.State, date calendar.DateKey, now time.Time) DayDTO {
	d := DayDTO{
		Date:           date,
		Status:         "unconfirmed",
		PlannedMinutes: calendar.PlannedMinutes(s, date),
		TrackedMinutes: calendar.TrackedMinutes(s, date, now),
		Segments:       s.TrackingSegments(date, now),
	}
	if status, ok := s.DayStatus(date); ok {
		d.Status = string(status.Status)
		d.SubmissionID = status.SubmissionID
	}
	for _, inst := range s.InstancesOn(date) {
		if s.IsOrphaned(inst) {
			d.OrphanedShifts = append(d.OrphanedShifts, inst.ID)
		}
	}
	if d.Segments == nil {
		d.Segments = []calendar.TrackingSegment{}
	}
	return d
}

// =============================================================================
// TEMPLATES
// =============================================================================

type ShiftTemplateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1,max=1440"`
	Color           string `json:"color" validate:"omitempty,hexcolor"`
	BreakMinutes    int    `json:"breakMinutes" validate:"min=0"`
}

type AbsenceTemplateRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Type            string `json:"type" validate:"required,oneof=vacation sick"`
	IsFullDay       bool   `json:"isFullDay"`
	StartTime       string `json:"startTime" validate:"omitempty,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0,max=1440"`
	Color           string `json:"color" validate:"omitempty,hexcolor"`
}

// =============================================================================
// PLACEMENT
// =============================================================================

type ArmRequest struct {
	TemplateID string `json:"templateId" validate:"required"`
	Kind       string `json:"kind" validate:"omitempty,oneof=shift absence"`
}

type SelectRequest struct {
	InstanceID string `json:"instanceId" validate:"required"`
}

type PlaceShiftRequest struct {
	TimeSlot string `json:"timeSlot" validate:"omitempty,datetime=15:04"`
}

type RescheduleRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=1,max=1440"`
}

// =============================================================================
// TRACKING
// =============================================================================

type CreateTrackingRequest struct {
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string `json:"startTime" validate:"required,datetime=15:04"`
	DurationMinutes int    `json:"durationMinutes" validate:"min=0"`
	BreakMinutes    int    `json:"breakMinutes" validate:"min=0"`
	IsActive        bool   `json:"isActive"`
	Source          string `json:"source" validate:"omitempty,oneof=manual geofence mixed"`
}

type TimeRequest struct {
	Time string `json:"time" validate:"required,datetime=15:04"`
}

type BreakRequest struct {
	Minutes int `json:"minutes" validate:"min=0"`
}

// DragRequest moves one edge of a tracking record by a pixel distance on a
// grid of PixelsPerHour.
type DragRequest struct {
	Edge          string  `json:"edge" validate:"required,oneof=start end"`
	DeltaPixels   float64 `json:"deltaPixels"`
	PixelsPerHour float64 `json:"pixelsPerHour" validate:"required,gt=0"`
}

// =============================================================================
// CONFIRMATION & SUBMISSION
// =============================================================================

// ConfirmResponse reports the snapshot written for a day and, when the
// confirmation completed its week, the submission that followed.
type ConfirmResponse struct {
	Actual          calendar.DailyActual  `json:"actual"`
	Progress        calendar.WeekProgress `json:"progress"`
	Submission      *SubmissionDTO        `json:"submission,omitempty"`
	SubmissionError string                `json:"submissionError,omitempty"`
}

type UnlockResponse struct {
	Unlocked []calendar.DateKey `json:"unlocked"`
}

type ProcessRequest struct {
	IDs []string `json:"ids" validate:"omitempty,dive,required"`
}

type SubmissionDTO struct {
	ID             string                    `json:"id"`
	WeekStart      calendar.DateKey          `json:"weekStartKey"`
	WeekEnd        calendar.DateKey          `json:"weekEndKey"`
	Status         calendar.SubmissionStatus `json:"status"`
	LastError      string                    `json:"lastError,omitempty"`
	Attempts       int                       `json:"attempts"`
	PlannedMinutes int                       `json:"plannedMinutes"`
	TrackedMinutes int                       `json:"trackedMinutes"`
	PlannedHours   decimal.Decimal           `json:"plannedHours"`
	ActualHours    decimal.Decimal           `json:"actualHours"`
	Days           []calendar.DailyActual    `json:"perDayBreakdown"`
	CreatedAt      string                    `json:"createdAt"`
	UpdatedAt      string                    `json:"updatedAt"`
}

func toSubmissionDTO(s calendar.WeeklySubmission) SubmissionDTO {
	return SubmissionDTO{
		ID:             s.ID,
		WeekStart:      s.WeekStart,
		WeekEnd:        s.WeekStart.AddDays(6),
		Status:         s.Status,
		LastError:      s.LastError,
		Attempts:       s.Attempts,
		PlannedMinutes: s.Summary.PlannedMinutes,
		TrackedMinutes: s.Summary.TrackedMinutes,
		PlannedHours:   submission.Hours(s.Summary.PlannedMinutes),
		ActualHours:    submission.Hours(s.Summary.TrackedMinutes),
		Days:           s.Summary.Days,
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      s.UpdatedAt.Format(time.RFC3339),
	}
}

func toSubmissionDTOs(subs []calendar.WeeklySubmission) []SubmissionDTO {
	dtos := make([]SubmissionDTO, len(subs))
	for i, s := range subs {
		dtos[i] = toSubmissionDTO(s)
	}
	return dtos
}

// =============================================================================
// SCENARIOS
// =============================================================================

type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
