package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// OVERTIME RULES - Closed set of variants, dispatched on OvertimeType
// =============================================================================

// OvertimeRule partitions day buckets into regular and overtime hours.
// Every rule preserves Regular + Overtime == TotalHours(buckets).
//
// The set is closed: rules are the types in this file and RuleFor is the
// only constructor from settings.
type OvertimeRule interface {
	Split(buckets []DayBucket) HoursSplit
	overtimeRule()
}

// NoOvertime counts every hour as regular.
type NoOvertime struct{}

// PeriodThreshold pays overtime for hours beyond Limit across all buckets.
type PeriodThreshold struct {
	Limit decimal.Decimal
}

// DailyThreshold pays overtime for hours beyond Limit within each day.
type DailyThreshold struct {
	Limit decimal.Decimal
}

// CombinedThreshold applies a daily limit, then moves regular hours that
// exceed the period limit into overtime. Either limit may be nil.
type CombinedThreshold struct {
	Daily  *decimal.Decimal
	Period *decimal.Decimal
}

func (NoOvertime) overtimeRule()        {}
func (PeriodThreshold) overtimeRule()   {}
func (DailyThreshold) overtimeRule()    {}
func (CombinedThreshold) overtimeRule() {}

var (
	fortyHours = decimal.NewFromInt(40)
	eightHours = decimal.NewFromInt(8)
)

// RuleFor selects the rule configured in s.
func RuleFor(s Settings) (OvertimeRule, error) {
	if !s.OvertimeEnabled {
		return NoOvertime{}, nil
	}
	switch s.OvertimeType {
	case OvertimeWeekly40:
		return PeriodThreshold{Limit: fortyHours}, nil
	case OvertimeDaily8:
		return DailyThreshold{Limit: eightHours}, nil
	case OvertimeCustom:
		if s.DailyThreshold == nil && s.WeeklyThreshold == nil {
			return nil, configErr("overtime_type", string(s.OvertimeType), "custom overtime needs a daily or weekly threshold")
		}
		if s.DailyThreshold != nil && !s.DailyThreshold.IsPositive() {
			return nil, configErr("daily_threshold", s.DailyThreshold.String(), "must be positive")
		}
		if s.WeeklyThreshold != nil && !s.WeeklyThreshold.IsPositive() {
			return nil, configErr("weekly_threshold", s.WeeklyThreshold.String(), "must be positive")
		}
		return CombinedThreshold{Daily: s.DailyThreshold, Period: s.WeeklyThreshold}, nil
	default:
		return nil, configErr("overtime_type", string(s.OvertimeType), "unsupported overtime type")
	}
}

// SplitOvertime partitions buckets under the rule configured in s.
// No rounding is applied.
func SplitOvertime(buckets []DayBucket, s Settings) (HoursSplit, error) {
	rule, err := RuleFor(s)
	if err != nil {
		return HoursSplit{}, err
	}
	return rule.Split(buckets), nil
}

func (NoOvertime) Split(buckets []DayBucket) HoursSplit {
	return HoursSplit{Regular: TotalHours(buckets), Overtime: decimal.Zero}
}

func (r PeriodThreshold) Split(buckets []DayBucket) HoursSplit {
	return splitAt(TotalHours(buckets), r.Limit)
}

func (r DailyThreshold) Split(buckets []DayBucket) HoursSplit {
	out := HoursSplit{Regular: decimal.Zero, Overtime: decimal.Zero}
	for _, b := range buckets {
		day := splitAt(b.Hours, r.Limit)
		out.Regular = out.Regular.Add(day.Regular)
		out.Overtime = out.Overtime.Add(day.Overtime)
	}
	return out
}

func (r CombinedThreshold) Split(buckets []DayBucket) HoursSplit {
	var out HoursSplit
	if r.Daily != nil {
		out = DailyThreshold{Limit: *r.Daily}.Split(buckets)
	} else {
		out = NoOvertime{}.Split(buckets)
	}
	if r.Period != nil {
		period := splitAt(out.Regular, *r.Period)
		out.Regular = period.Regular
		out.Overtime = out.Overtime.Add(period.Overtime)
	}
	return out
}

// splitAt is min(hours, limit) regular and max(hours-limit, 0) overtime.
func splitAt(hours, limit decimal.Decimal) HoursSplit {
	if hours.LessThanOrEqual(limit) {
		return HoursSplit{Regular: hours, Overtime: decimal.Zero}
	}
	return HoursSplit{Regular: limit, Overtime: hours.Sub(limit)}
}
