/*
Package payroll provides the pay-period and earnings computation engine.

PURPOSE:
  Given an organization's payroll settings and a user's time entries, the
  engine answers three questions: which dates belong to the current (or
  previous) pay period, how many of the worked hours are regular versus
  overtime, and what that is worth at the user's hourly rate.

KEY CONCEPTS IN THIS FILE (types.go):
  - Settings: pay cadence, pay day, biweekly anchor and overtime policy
  - TimeEntry: a read-only clock-in/clock-out record
  - PayPeriod: inclusive [Start, End] local dates
  - DayBucket: hours worked on one local date
  - EarningsSummary: regular/overtime hours and pay

DESIGN PRINCIPLES:
  1. Pure: no I/O, no globals. "Now" and the timezone are parameters.
  2. Precision: hours and money are decimal.Decimal
  3. Explicit failure: bad settings are a *ConfigurationError, never a default
  4. Value inputs: callers pass structs by value, results are fresh values

USAGE:
  period, err := payroll.ResolvePeriod(settings, now, loc, payroll.Current)
  buckets := payroll.GroupByDay(entries, now, loc)
  summary, err := payroll.CalculateEarnings(payroll.TotalHours(buckets), rate, settings, buckets)

SEE ALSO:
  - period.go: pay period resolution
  - grouping.go: day bucketing
  - overtime.go: overtime rules
  - earnings.go: pay calculation
*/
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
)

// =============================================================================
// SETTINGS - Organization payroll configuration
// =============================================================================

// PeriodType is the pay period cadence.
type PeriodType string

const (
	PeriodWeekly      PeriodType = "weekly"
	PeriodBiweekly    PeriodType = "biweekly"
	PeriodSemimonthly PeriodType = "semimonthly" // 1st-15th, 16th-end of month
	PeriodMonthly     PeriodType = "monthly"
)

// OvertimeType names an overtime rule.
type OvertimeType string

const (
	OvertimeWeekly40 OvertimeType = "weekly40" // over 40h in the period
	OvertimeDaily8   OvertimeType = "daily8"   // over 8h in a day
	OvertimeCustom   OvertimeType = "custom"   // configured daily and/or period thresholds
)

// Settings is an organization's payroll configuration.
type Settings struct {
	PeriodType PeriodType
	PayDay     time.Weekday

	// PeriodStartDate is the first day of some biweekly period. Ignored
	// by the other cadences.
	PeriodStartDate *calendar.Date

	OvertimeEnabled bool
	OvertimeType    OvertimeType
	OvertimeRate    decimal.Decimal // multiplier, >= 1

	// Thresholds for OvertimeCustom. At least one must be set.
	DailyThreshold  *decimal.Decimal
	WeeklyThreshold *decimal.Decimal
}

// DefaultSettings is what an organization gets before it configures payroll:
// weekly periods ending Friday, overtime off, weekly40 at 1.5x.
func DefaultSettings() Settings {
	return Settings{
		PeriodType:   PeriodWeekly,
		PayDay:       time.Friday,
		OvertimeType: OvertimeWeekly40,
		OvertimeRate: decimal.NewFromFloat(1.5),
	}
}

// =============================================================================
// TIME ENTRY - Read-only input from the time-tracking store
// =============================================================================

// TimeEntry is one clocked shift. A nil ClockOut means the shift is still
// open and is measured against the evaluation instant.
type TimeEntry struct {
	ClockIn       time.Time
	ClockOut      *time.Time
	DurationHours *decimal.Decimal
	BreakStart    *time.Time
	BreakEnd      *time.Time
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// DayBucket is the hours worked on one local date.
type DayBucket struct {
	Date  calendar.Date
	Hours decimal.Decimal
}

// HoursSplit is the regular/overtime partition of worked hours.
type HoursSplit struct {
	Regular  decimal.Decimal
	Overtime decimal.Decimal
}

// Total is Regular + Overtime.
func (s HoursSplit) Total() decimal.Decimal { return s.Regular.Add(s.Overtime) }

// EarningsSummary is the money breakdown for a set of hours.
type EarningsSummary struct {
	RegularHours  decimal.Decimal
	OvertimeHours decimal.Decimal
	RegularPay    decimal.Decimal
	OvertimePay   decimal.Decimal
	TotalPay      decimal.Decimal
}

// Rounded returns a copy rounded to two decimal places for display.
func (e EarningsSummary) Rounded() EarningsSummary {
	return EarningsSummary{
		RegularHours:  e.RegularHours.Round(2),
		OvertimeHours: e.OvertimeHours.Round(2),
		RegularPay:    e.RegularPay.Round(2),
		OvertimePay:   e.OvertimePay.Round(2),
		TotalPay:      e.TotalPay.Round(2),
	}
}

var hourNanos = decimal.NewFromInt(int64(time.Hour))

// HoursOf converts a duration to decimal hours.
func HoursOf(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(hourNanos)
}

// Evaluation is the instant and zone a computation runs against. Open
// shifts are measured to Now; dates are read in Location.
type Evaluation struct {
	Now      time.Time
	Location *time.Location
}
