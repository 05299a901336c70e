package payroll

import (
	"time"

	"github.com/warp/payroll-engine/calendar"
)

// =============================================================================
// PAY PERIOD - Inclusive range of local dates
// =============================================================================

// PayPeriod is [Start, End], both days included.
type PayPeriod struct {
	Start calendar.Date
	End   calendar.Date
}

// Contains reports whether d falls in the period.
func (p PayPeriod) Contains(d calendar.Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days is the number of dates in the period.
func (p PayPeriod) Days() int { return calendar.DaysBetween(p.Start, p.End) + 1 }

// Bounds returns the instants from local 00:00 of Start to local
// 23:59:59.999 of End, for range queries against a time-entry store.
func (p PayPeriod) Bounds(loc *time.Location) (from, to time.Time) {
	return p.Start.StartOfDay(loc), p.End.EndOfDay(loc)
}

// Label renders "Jan 11 - Jan 17".
func (p PayPeriod) Label() string {
	return p.Start.Format("Jan 2") + " - " + p.End.Format("Jan 2")
}

func (p PayPeriod) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// Which selects the period relative to the reference instant.
type Which int

const (
	Current Which = iota
	Previous
)

// =============================================================================
// RESOLVER
// =============================================================================

// ResolvePeriod returns the current or previous pay period for the local
// date of ref in loc.
func ResolvePeriod(s Settings, ref time.Time, loc *time.Location, which Which) (PayPeriod, error) {
	current, err := PeriodFor(s, calendar.DateOf(ref, loc))
	if err != nil {
		return PayPeriod{}, err
	}
	switch which {
	case Current:
		return current, nil
	case Previous:
		return PeriodFor(s, current.Start.AddDays(-1))
	default:
		return PayPeriod{}, configErr("which", "", "must be current or previous")
	}
}

// PeriodFor returns the pay period containing date.
func PeriodFor(s Settings, date calendar.Date) (PayPeriod, error) {
	switch s.PeriodType {
	case PeriodWeekly:
		end := nextWeekday(date, s.PayDay)
		return PayPeriod{Start: end.AddDays(-6), End: end}, nil

	case PeriodBiweekly:
		if s.PeriodStartDate == nil {
			return PayPeriod{}, configErr("pay_period_start_date", "", "required for biweekly periods")
		}
		anchor := *s.PeriodStartDate
		k := calendar.FloorDiv(calendar.DaysBetween(anchor, date), 14)
		start := anchor.AddDays(14 * k)
		return PayPeriod{Start: start, End: start.AddDays(13)}, nil

	case PeriodSemimonthly:
		if date.Day() <= 15 {
			return PayPeriod{
				Start: calendar.StartOfMonth(date.Year(), date.Month()),
				End:   calendar.NewDate(date.Year(), date.Month(), 15),
			}, nil
		}
		return PayPeriod{
			Start: calendar.NewDate(date.Year(), date.Month(), 16),
			End:   calendar.EndOfMonth(date.Year(), date.Month()),
		}, nil

	case PeriodMonthly:
		return PayPeriod{
			Start: calendar.StartOfMonth(date.Year(), date.Month()),
			End:   calendar.EndOfMonth(date.Year(), date.Month()),
		}, nil

	default:
		return PayPeriod{}, configErr("pay_period_type", string(s.PeriodType), "unsupported pay period type")
	}
}

// nextWeekday is the first date on or after d that falls on wd.
func nextWeekday(d calendar.Date, wd time.Weekday) calendar.Date {
	ahead := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDays(ahead)
}
