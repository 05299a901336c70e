package payroll

import (
	"github.com/shopspring/decimal"
)

// reconcileTolerance bounds |totalHours - sum(buckets)|.
var reconcileTolerance = decimal.New(1, -6)

// CalculateEarnings computes pay for totalHours at hourlyRate.
//
// A nil or non-positive rate means pay is not applicable: the result is
// (nil, nil), which is not the same as zero pay. totalHours must equal the
// sum of buckets so that Regular + Overtime == totalHours holds for every
// rule.
func CalculateEarnings(totalHours decimal.Decimal, hourlyRate *decimal.Decimal, s Settings, buckets []DayBucket) (*EarningsSummary, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if hourlyRate == nil || !hourlyRate.IsPositive() {
		return nil, nil
	}
	if totalHours.Sub(TotalHours(buckets)).Abs().GreaterThan(reconcileTolerance) {
		return nil, ErrHoursMismatch
	}

	split, err := SplitOvertime(buckets, s)
	if err != nil {
		return nil, err
	}

	rate := *hourlyRate
	regularPay := split.Regular.Mul(rate)
	overtimePay := split.Overtime.Mul(rate).Mul(s.OvertimeRate)

	return &EarningsSummary{
		RegularHours:  split.Regular,
		OvertimeHours: split.Overtime,
		RegularPay:    regularPay,
		OvertimePay:   overtimePay,
		TotalPay:      regularPay.Add(overtimePay),
	}, nil
}

// EarningsForEntries groups entries and computes earnings in one step.
// It returns the buckets alongside so callers can show per-day hours.
func EarningsForEntries(entries []TimeEntry, hourlyRate *decimal.Decimal, s Settings, at Evaluation) (*EarningsSummary, []DayBucket, error) {
	buckets := GroupByDay(entries, at.Now, at.Location)
	summary, err := CalculateEarnings(TotalHours(buckets), hourlyRate, s, buckets)
	if err != nil {
		return nil, nil, err
	}
	return summary, buckets, nil
}
