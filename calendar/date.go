/*
Package calendar provides timezone-anchored civil dates.

PURPOSE:
  Payroll compares calendar days, not instants. A clock-in at 23:30 in
  Chicago is a different day than the same instant read in UTC. Every
  function here takes the *time.Location explicitly; nothing reads a
  process-wide zone.

KEY CONCEPTS:
  - Date: a civil date (year, month, day) with no zone attached
  - DateOf: the local date of an instant in a given location
  - StartOfDay / EndOfDay: the instants bounding a local date

USAGE:
  loc, _ := calendar.LoadLocation("America/Chicago")
  d := calendar.DateOf(clockIn, loc)
  from, to := d.StartOfDay(loc), d.EndOfDay(loc)

SEE ALSO:
  - payroll/period.go: period arithmetic on Dates
  - payroll/grouping.go: per-day bucketing
*/
package calendar

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Civil date, compared by calendar-day identity
// =============================================================================

// Date is a calendar date without a zone. The zero value is 0001-01-01.
// Internally it is held as midnight UTC so AddDate handles month lengths.
type Date struct {
	t time.Time
}

const layout = "2006-01-02"

// NewDate builds a date. Out-of-range values normalize like time.Date.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the local calendar date of t in loc. A nil loc means UTC.
func DateOf(t time.Time, loc *time.Location) Date {
	local := t.In(orUTC(loc))
	return NewDate(local.Year(), local.Month(), local.Day())
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for literals in tests and presets.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// LoadLocation wraps time.LoadLocation with a clearer error.
func LoadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", name, err)
	}
	return loc, nil
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.After(o) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.Before(o) }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) String() string        { return d.t.Format(layout) }

// Format formats the date with a time layout, e.g. "Jan 2".
func (d Date) Format(layout string) string { return d.t.Format(layout) }

// StartOfDay is local 00:00:00.000 of d in loc.
func (d Date) StartOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, orUTC(loc))
}

// EndOfDay is local 23:59:59.999 of d in loc.
func (d Date) EndOfDay(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), orUTC(loc))
}

// MarshalText implements encoding.TextMarshaler as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// DaysBetween returns to - from in whole days; negative when to is earlier.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// StartOfMonth is the first day of the month.
func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

// EndOfMonth is the last day of the month, leap years included.
func EndOfMonth(year int, month time.Month) Date {
	return NewDate(year, month+1, 1).AddDays(-1)
}

func orUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
