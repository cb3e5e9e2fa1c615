package submission

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/warp/shift-calendar/calendar"
)

// Sender delivers one weekly submission to the backend. A nil error means
// the backend accepted it; the queue never retries on its own.
type Sender interface {
	Send(ctx context.Context, sub calendar.WeeklySubmission) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, sub calendar.WeeklySubmission) error

func (f SenderFunc) Send(ctx context.Context, sub calendar.WeeklySubmission) error {
	return f(ctx, sub)
}

// =============================================================================
// WIRE PAYLOAD
// =============================================================================

// Payload is the JSON body delivered to the backend. Hours are carried with
// two decimals next to the exact minute counts.
type Payload struct {
	SubmissionID    string           `json:"submissionId"`
	WeekStartKey    calendar.DateKey `json:"weekStartKey"`
	WeekEndKey      calendar.DateKey `json:"weekEndKey"`
	PlannedMinutes  int              `json:"plannedMinutes"`
	TrackedMinutes  int              `json:"trackedMinutes"`
	PlannedHours    decimal.Decimal  `json:"plannedHours"`
	ActualHours     decimal.Decimal  `json:"actualHours"`
	PerDayBreakdown []DayPayload     `json:"perDayBreakdown"`
	ClientVersion   string           `json:"clientVersion,omitempty"`
}

type DayPayload struct {
	Date           calendar.DateKey        `json:"date"`
	PlannedMinutes int                     `json:"plannedMinutes"`
	TrackedMinutes int                     `json:"trackedMinutes"`
	PlannedHours   decimal.Decimal         `json:"plannedHours"`
	ActualHours    decimal.Decimal         `json:"actualHours"`
	Source         calendar.TrackingSource `json:"source,omitempty"`
}

// NewPayload renders sub for the wire.
func NewPayload(sub calendar.WeeklySubmission, clientVersion string) Payload {
	p := Payload{
		SubmissionID:    sub.ID,
		WeekStartKey:    sub.WeekStart,
		WeekEndKey:      sub.WeekStart.AddDays(6),
		PlannedMinutes:  sub.Summary.PlannedMinutes,
		TrackedMinutes:  sub.Summary.TrackedMinutes,
		PlannedHours:    Hours(sub.Summary.PlannedMinutes),
		ActualHours:     Hours(sub.Summary.TrackedMinutes),
		PerDayBreakdown: make([]DayPayload, 0, len(sub.Summary.Days)),
		ClientVersion:   clientVersion,
	}
	for _, d := range sub.Summary.Days {
		p.PerDayBreakdown = append(p.PerDayBreakdown, DayPayload{
			Date:           d.Date,
			PlannedMinutes: d.PlannedMinutes,
			TrackedMinutes: d.TrackedMinutes,
			PlannedHours:   Hours(d.PlannedMinutes),
			ActualHours:    Hours(d.TrackedMinutes),
			Source:         d.Source,
		})
	}
	return p
}

var sixty = decimal.NewFromInt(60)

// Hours converts minutes to hours rounded to two decimals.
func Hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).DivRound(sixty, 2)
}
