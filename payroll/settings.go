package payroll

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday accepts a weekday name in any case ("friday", "Friday").
func ParseWeekday(s string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, configErr("pay_day", s, "not a weekday name")
	}
	return wd, nil
}

// ParsePeriodType validates a cadence name.
func ParsePeriodType(s string) (PeriodType, error) {
	pt := PeriodType(s)
	switch pt {
	case PeriodWeekly, PeriodBiweekly, PeriodSemimonthly, PeriodMonthly:
		return pt, nil
	}
	return "", configErr("pay_period_type", s, "unsupported pay period type")
}

// ParseOvertimeType validates an overtime rule name.
func ParseOvertimeType(s string) (OvertimeType, error) {
	ot := OvertimeType(s)
	switch ot {
	case OvertimeWeekly40, OvertimeDaily8, OvertimeCustom:
		return ot, nil
	}
	return "", configErr("overtime_type", s, "unsupported overtime type")
}

// Validate checks every settings rule the engine relies on.
func (s Settings) Validate() error {
	if _, err := ParsePeriodType(string(s.PeriodType)); err != nil {
		return err
	}
	if s.PayDay < time.Sunday || s.PayDay > time.Saturday {
		return configErr("pay_day", s.PayDay.String(), "not a weekday")
	}
	if s.PeriodType == PeriodBiweekly && s.PeriodStartDate == nil {
		return configErr("pay_period_start_date", "", "required for biweekly periods")
	}
	if _, err := ParseOvertimeType(string(s.OvertimeType)); err != nil {
		return err
	}
	if s.OvertimeRate.LessThan(decimal.NewFromInt(1)) {
		return configErr("overtime_rate", s.OvertimeRate.String(), "must be at least 1.0")
	}
	if s.OvertimeEnabled {
		if _, err := RuleFor(s); err != nil {
			return err
		}
	}
	return nil
}
