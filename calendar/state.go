package calendar

import (
	"maps"
	"slices"
	"sort"
	"time"
)

// State is the calendar's visible-range state. A State value is never
// mutated after it has been returned by Reduce; the reducer copies any map
// it changes.
type State struct {
	ShiftTemplates   map[string]ShiftTemplate   `json:"shiftTemplates"`
	AbsenceTemplates map[string]AbsenceTemplate `json:"absenceTemplates"`
	ShiftInstances   map[string]ShiftInstance   `json:"shiftInstances"`
	AbsenceInstances map[string]AbsenceInstance `json:"absenceInstances"`
	Tracking         map[string]TrackingRecord  `json:"tracking"`
	ConfirmedDays    map[DateKey]ConfirmedDay   `json:"confirmedDays"`

	// At most one of these is set.
	ArmedTemplateID        string `json:"armedTemplateId,omitempty"`
	ArmedAbsenceTemplateID string `json:"armedAbsenceTemplateId,omitempty"`
}

// NewState returns an empty state with all maps allocated.
func NewState() State {
	return State{
		ShiftTemplates:   map[string]ShiftTemplate{},
		AbsenceTemplates: map[string]AbsenceTemplate{},
		ShiftInstances:   map[string]ShiftInstance{},
		AbsenceInstances: map[string]AbsenceInstance{},
		Tracking:         map[string]TrackingRecord{},
		ConfirmedDays:    map[DateKey]ConfirmedDay{},
	}
}

// =============================================================================
// LOOKUPS
// =============================================================================

// TemplateFor resolves an instance's weak template reference. A false result
// means the instance is orphaned, which is a valid state.
func (s State) TemplateFor(inst ShiftInstance) (ShiftTemplate, bool) {
	t, ok := s.ShiftTemplates[inst.TemplateID]
	return t, ok
}

// IsOrphaned reports whether the instance's template no longer exists.
func (s State) IsOrphaned(inst ShiftInstance) bool {
	_, ok := s.TemplateFor(inst)
	return !ok
}

// DayStatus returns the status of date; ok is false for unconfirmed dates.
func (s State) DayStatus(date DateKey) (ConfirmedDay, bool) {
	d, ok := s.ConfirmedDays[date]
	return d, ok
}

// IsLocked reports whether date is locked by a submission.
func (s State) IsLocked(date DateKey) bool {
	d, ok := s.ConfirmedDays[date]
	return ok && d.Status == DayLocked
}

// InstancesOn returns the shift instances dated on date ordered by start.
func (s State) InstancesOn(date DateKey) []ShiftInstance {
	var out []ShiftInstance
	for _, inst := range s.ShiftInstances {
		if inst.Date == date {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ShiftInstanceList returns every instance ordered by date, start and id.
func (s State) ShiftInstanceList() []ShiftInstance {
	out := slices.Collect(maps.Values(s.ShiftInstances))
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TrackingOn returns the tracking records anchored on date ordered by start.
func (s State) TrackingOn(date DateKey) []TrackingRecord {
	var out []TrackingRecord
	for _, r := range s.Tracking {
		if r.Date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

// TrackingSegment is one rendered piece of a tracking record on a date.
type TrackingSegment struct {
	RecordID     string  `json:"recordId"`
	Date         DateKey `json:"date"`
	Segment      Segment `json:"segment"`
	Continuation bool    `json:"continuation"`
}

// TrackingSegments returns the segments of every record touching date:
// records anchored on date plus continuations of records from the day before.
func (s State) TrackingSegments(date DateKey, now time.Time) []TrackingSegment {
	var out []TrackingSegment
	prev := date.AddDays(-1)
	for _, r := range s.Tracking {
		today, overflow := SplitAcrossMidnight(r.StartTime, r.EffectiveDuration(now))
		switch {
		case r.Date == date:
			out = append(out, TrackingSegment{RecordID: r.ID, Date: date, Segment: today})
		case r.Date == prev && overflow != nil:
			out = append(out, TrackingSegment{RecordID: r.ID, Date: date, Segment: *overflow, Continuation: true})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment.Start < out[j].Segment.Start })
	return out
}

// LockedBy returns every date locked by submissionID, in date order.
func (s State) LockedBy(submissionID string) []DateKey {
	var dates []DateKey
	for date, d := range s.ConfirmedDays {
		if d.Status == DayLocked && d.SubmissionID == submissionID {
			dates = append(dates, date)
		}
	}
	slices.Sort(dates)
	return dates
}
