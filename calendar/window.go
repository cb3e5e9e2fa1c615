/*
window.go - Time window arithmetic for shifts, absences and tracked sessions

PURPOSE:
  Pure functions that reconcile planned shifts, absences and tracking
  records on a minute grid. Every caller (placement gate, reducer,
  confirmation aggregator, rendering) goes through the same helpers so a
  session beginning at 23:00 for 3 hours is split identically everywhere.

WINDOWS:
  A window is the half-open interval [start, start+duration) in day-minutes
  of the date it is anchored on. A window may run past 1440; the part past
  midnight is an overflow (continuation) credited to the next date, never a
  separate instance.

       23:00                 00:00              02:00
  day  |=========== 60 =======|
  next                        |====== 120 =======|

SEE ALSO:
  - reducer.go: placement and tracking adjustments use these helpers
  - confirmation.go: per-date aggregation via MinutesOnDate
*/
package calendar

import "math"

const (
	// MinutesPerDay is the length of a calendar day on the minute grid.
	MinutesPerDay = 1440

	// MinTrackingMinutes is the shortest duration a tracking record may be
	// adjusted down to.
	MinTrackingMinutes = 5

	// DefaultStepMinutes is the drag-to-adjust rounding step.
	DefaultStepMinutes = 5
)

// Segment is the portion of a window that falls on one calendar date.
type Segment struct {
	Start TimeOfDay `json:"start"`
	Len   int       `json:"len"`
}

// ToAbsoluteMinutes converts a date and wall-clock time into minutes since
// 1970-01-01 00:00, so windows on different dates compare directly.
func ToAbsoluteMinutes(date DateKey, t TimeOfDay) int {
	return date.DaysSinceEpoch()*MinutesPerDay + t.Minutes()
}

// OverlapMinutes returns the length of the intersection of [aStart, aEnd)
// and [bStart, bEnd). Empty or inverted intervals never overlap.
func OverlapMinutes(aStart, aEnd, bStart, bEnd int) int {
	lo := max(aStart, bStart)
	hi := min(aEnd, bEnd)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// FindOverlappingInstance scans the instances on date and returns the first
// whose window intersects [start, start+duration). excludeID skips the
// instance being edited in place.
func FindOverlappingInstance(date DateKey, start TimeOfDay, duration int, all []ShiftInstance, excludeID string) (ShiftInstance, bool) {
	aStart := start.Minutes()
	aEnd := aStart + duration
	for _, inst := range all {
		if inst.Date != date || (excludeID != "" && inst.ID == excludeID) {
			continue
		}
		bStart, bEnd := inst.Window()
		if OverlapMinutes(aStart, aEnd, bStart, bEnd) > 0 {
			return inst, true
		}
	}
	return ShiftInstance{}, false
}

// SplitAcrossMidnight splits a window into the segment on its own date and,
// when start+duration passes 1440, an overflow segment anchored at 00:00 of
// the next date. The segment lengths always sum to duration.
func SplitAcrossMidnight(start TimeOfDay, duration int) (Segment, *Segment) {
	if duration < 0 {
		duration = 0
	}
	end := start.Minutes() + duration
	if end <= MinutesPerDay {
		return Segment{Start: start, Len: duration}, nil
	}
	today := Segment{Start: start, Len: MinutesPerDay - start.Minutes()}
	return today, &Segment{Start: 0, Len: end - MinutesPerDay}
}

// MinutesOnDate returns how many minutes of a window anchored on anchor fall
// on target. Overflow longer than a day is capped at one full day.
func MinutesOnDate(anchor DateKey, start TimeOfDay, duration int, target DateKey) int {
	today, overflow := SplitAcrossMidnight(start, duration)
	switch {
	case target == anchor:
		return today.Len
	case overflow != nil && target == anchor.AddDays(1):
		return min(overflow.Len, MinutesPerDay)
	default:
		return 0
	}
}

// RoundToStep converts a drag distance into minutes rounded to the nearest
// multiple of stepMinutes. A drag shorter than half a step yields 0.
func RoundToStep(deltaPixels, pixelsPerHour float64, stepMinutes int) int {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if pixelsPerHour <= 0 || deltaPixels == 0 {
		return 0
	}
	minutes := deltaPixels / pixelsPerHour * 60
	steps := math.Round(minutes / float64(stepMinutes))
	if steps == 0 {
		return 0
	}
	return int(steps) * stepMinutes
}
