package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// DATE KEY - Calendar date used as the key for instances, records and statuses
// =============================================================================

// DateKey is a calendar date in YYYY-MM-DD form. Keys compare correctly as
// strings, so ordering and range filters never need to parse them.
type DateKey string

const dateLayout = "2006-01-02"

// Clock returns the current time. Injected everywhere "today" matters.
type Clock func() time.Time

// ParseDateKey validates and normalizes a YYYY-MM-DD string.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateKey(t.Format(dateLayout)), nil
}

// MustDateKey is ParseDateKey for literals; it panics on malformed input.
func MustDateKey(s string) DateKey {
	d, err := ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DateKeyOf returns the calendar date of t in t's own location.
func DateKeyOf(t time.Time) DateKey {
	return DateKey(t.Format(dateLayout))
}

// Today returns the date key of the clock's current time.
func Today(clock Clock) DateKey {
	if clock == nil {
		clock = time.Now
	}
	return DateKeyOf(clock())
}

func (d DateKey) String() string { return string(d) }

// Time returns midnight of the date in loc (UTC when loc is nil).
func (d DateKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Comparison
func (d DateKey) Before(other DateKey) bool { return d < other }
func (d DateKey) After(other DateKey) bool  { return d > other }
func (d DateKey) IsZero() bool              { return d == "" }

// Arithmetic
func (d DateKey) AddDays(n int) DateKey { return DateKeyOf(d.Time(time.UTC).AddDate(0, 0, n)) }

// Properties
func (d DateKey) Weekday() time.Weekday { return d.Time(time.UTC).Weekday() }

// DaysSinceEpoch counts whole days between 1970-01-01 and d.
func (d DateKey) DaysSinceEpoch() int {
	return int(d.Time(time.UTC).Unix() / 86400)
}

// WeekStart returns the Monday of the ISO week containing d.
func (d DateKey) WeekStart() DateKey {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// IsWeekStart reports whether d is a Monday.
func (d DateKey) IsWeekStart() bool { return d.Weekday() == time.Monday }

// WeekDates returns the seven dates Monday..Sunday of the week containing d.
func (d DateKey) WeekDates() []DateKey {
	start := d.WeekStart()
	dates := make([]DateKey, 7)
	for i := range dates {
		dates[i] = start.AddDays(i)
	}
	return dates
}

// DatesBetween returns every date in [from, to].
func DatesBetween(from, to DateKey) []DateKey {
	var dates []DateKey
	for d := from; !d.After(to); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// =============================================================================
// TIME OF DAY - Minutes since midnight, serialized as HH:MM
// =============================================================================

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (00:00 through 23:59).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay(h*60 + m), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Minutes returns the minute offset from midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool { return t >= 0 && int(t) < MinutesPerDay }

func (t TimeOfDay) String() string {
	m := int(t) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeOfDayOf returns the wall-clock time of t.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}
