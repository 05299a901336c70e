package payroll

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
)

// EntryHours is the effective worked hours of one entry at instant now.
//
// A recorded DurationHours wins. Otherwise the span is ClockIn to ClockOut
// (or now, if still open) less the break span BreakStart to BreakEnd (or
// now). Each span, and a recorded duration, is clamped at zero.
func EntryHours(e TimeEntry, now time.Time) decimal.Decimal {
	if e.DurationHours != nil {
		if e.DurationHours.IsNegative() {
			return decimal.Zero
		}
		return *e.DurationHours
	}

	end := now
	if e.ClockOut != nil {
		end = *e.ClockOut
	}
	worked := nonNegative(end.Sub(e.ClockIn))

	if e.BreakStart != nil {
		breakEnd := now
		if e.BreakEnd != nil {
			breakEnd = *e.BreakEnd
		}
		worked = nonNegative(worked - nonNegative(breakEnd.Sub(*e.BreakStart)))
	}
	return HoursOf(worked)
}

// GroupByDay sums entry hours per local date of ClockIn.
//
// Shifts are not split at midnight; an overnight shift counts entirely
// toward the day it started. Days that total zero are omitted. Buckets are
// returned in date order.
func GroupByDay(entries []TimeEntry, now time.Time, loc *time.Location) []DayBucket {
	byDay := make(map[calendar.Date]decimal.Decimal)
	for _, e := range entries {
		day := calendar.DateOf(e.ClockIn, loc)
		byDay[day] = byDay[day].Add(EntryHours(e, now))
	}

	buckets := make([]DayBucket, 0, len(byDay))
	for day, hours := range byDay {
		if hours.IsZero() {
			continue
		}
		buckets = append(buckets, DayBucket{Date: day, Hours: hours})
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Date.Before(buckets[j].Date)
	})
	return buckets
}

// TotalHours sums bucket hours.
func TotalHours(buckets []DayBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Hours)
	}
	return total
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
