/*
Package report builds the organization payroll summary: what each employee
is owed for the current pay period.

OWED WINDOW:
  Hours are owed from max(last paid instant, current period start) onward.
  Only clocked-out shifts count. An employee with no hourly rate still gets
  hours, but Earnings is nil.

SEE ALSO:
  - payroll/earnings.go: the arithmetic
  - store/sqlite/sqlite.go: the data
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/timeclock"
	"go.uber.org/zap"
)

// Store is the persistence the summary reads and updates.
type Store interface {
	GetSettings(ctx context.Context, orgID string) (*sqlite.SettingsRecord, error)
	ListEmployees(ctx context.Context, orgID string) ([]sqlite.Employee, error)
	ListClosedShiftsSince(ctx context.Context, employeeID string, since time.Time) ([]timeclock.Shift, error)
	MarkPaid(ctx context.Context, orgID string, ids []string, paidAt time.Time) (int64, error)
}

// EmployeeSummary is one employee's row in the payroll summary.
type EmployeeSummary struct {
	EmployeeID   string
	Name         string
	Email        string
	HourlyRate   *decimal.Decimal
	LastPaidAt   *time.Time
	OwedSince    time.Time
	TotalHours   decimal.Decimal
	EntriesCount int
	JobsWorked   []string
	Days         []payroll.DayBucket
	Earnings     *payroll.EarningsSummary
	UnpaidSince  *UnpaidSince
}

// UnpaidSince is present only for employees that have been paid before.
type UnpaidSince struct {
	Start        time.Time
	TotalHours   decimal.Decimal
	TotalPay     decimal.Decimal
	EntriesCount int
}

// Summary is the organization-wide payroll report.
type Summary struct {
	OrganizationID string
	Settings       payroll.Settings
	Period         payroll.PayPeriod
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Employees      []EmployeeSummary
	TotalHours     decimal.Decimal
	TotalPay       decimal.Decimal
}

// Builder computes payroll summaries in one timezone.
type Builder struct {
	store  Store
	loc    *time.Location
	logger *zap.Logger
}

func NewBuilder(store Store, loc *time.Location, logger *zap.Logger) *Builder {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{store: store, loc: loc, logger: logger}
}

// Settings returns the organization's settings, or the defaults when it has
// never saved any. A stored but invalid document is an error.
func (b *Builder) Settings(ctx context.Context, orgID string) (payroll.Settings, error) {
	rec, err := b.store.GetSettings(ctx, orgID)
	if errors.Is(err, sqlite.ErrNotFound) {
		return payroll.DefaultSettings(), nil
	}
	if err != nil {
		return payroll.Settings{}, err
	}
	return factory.ParseSettings(rec.ConfigJSON)
}

// Summarize builds the payroll summary for the period containing now.
func (b *Builder) Summarize(ctx context.Context, orgID string, now time.Time) (*Summary, error) {
	settings, err := b.Settings(ctx, orgID)
	if err != nil {
		return nil, err
	}

	period, err := payroll.ResolvePeriod(settings, now, b.loc, payroll.Current)
	if err != nil {
		return nil, err
	}
	start, end := period.Bounds(b.loc)

	employees, err := b.store.ListEmployees(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	out := &Summary{
		OrganizationID: orgID,
		Settings:       settings,
		Period:         period,
		PeriodStart:    start,
		PeriodEnd:      end,
		TotalHours:     decimal.Zero,
		TotalPay:       decimal.Zero,
	}

	for _, emp := range employees {
		row, err := b.summarizeEmployee(ctx, emp, settings, start, now)
		if err != nil {
			return nil, err
		}
		out.TotalHours = out.TotalHours.Add(row.TotalHours)
		if row.Earnings != nil {
			out.TotalPay = out.TotalPay.Add(row.Earnings.TotalPay)
		}
		out.Employees = append(out.Employees, row)
	}

	b.logger.Debug("payroll summarized",
		zap.String("organization_id", orgID),
		zap.String("period", period.String()),
		zap.Int("employees", len(out.Employees)),
		zap.String("total_hours", out.TotalHours.String()),
	)
	return out, nil
}

func (b *Builder) summarizeEmployee(ctx context.Context, emp sqlite.Employee, settings payroll.Settings, periodStart, now time.Time) (EmployeeSummary, error) {
	row := EmployeeSummary{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		Email:      emp.Email,
		HourlyRate: emp.HourlyRate,
		LastPaidAt: emp.LastPaidAt,
		OwedSince:  periodStart,
	}

	since := periodStart
	if emp.LastPaidAt != nil && emp.LastPaidAt.After(periodStart) {
		row.OwedSince = *emp.LastPaidAt
		// Shifts clocked in at the paid instant are already paid.
		since = emp.LastPaidAt.Add(time.Millisecond)
	}

	shifts, err := b.store.ListClosedShiftsSince(ctx, emp.ID, since)
	if err != nil {
		return row, fmt.Errorf("failed to load shifts for %s: %w", emp.ID, err)
	}

	entries := make([]payroll.TimeEntry, 0, len(shifts))
	jobs := make(map[string]struct{})
	for _, sh := range shifts {
		entries = append(entries, sh.ToTimeEntry(now))
		if sh.JobTitle != "" {
			jobs[sh.JobTitle] = struct{}{}
		}
	}
	for job := range jobs {
		row.JobsWorked = append(row.JobsWorked, job)
	}
	sort.Strings(row.JobsWorked)

	row.Days = payroll.GroupByDay(entries, now, b.loc)
	row.TotalHours = payroll.TotalHours(row.Days)
	row.EntriesCount = len(entries)

	earnings, err := payroll.CalculateEarnings(row.TotalHours, emp.HourlyRate, settings, row.Days)
	if err != nil {
		return row, fmt.Errorf("earnings for %s: %w", emp.ID, err)
	}
	row.Earnings = earnings

	if emp.LastPaidAt != nil {
		unpaid := &UnpaidSince{
			Start:        *emp.LastPaidAt,
			TotalHours:   row.TotalHours.Round(2),
			TotalPay:     decimal.Zero,
			EntriesCount: row.EntriesCount,
		}
		if earnings != nil {
			unpaid.TotalPay = earnings.TotalPay.Round(2)
		}
		row.UnpaidSince = unpaid
	}
	return row, nil
}

// MarkPaid records paidAt as the last-paid instant for the listed employees
// of the organization. Employees of other organizations are ignored.
func (b *Builder) MarkPaid(ctx context.Context, orgID string, ids []string, paidAt time.Time) (int64, error) {
	n, err := b.store.MarkPaid(ctx, orgID, ids, paidAt)
	if err != nil {
		return 0, err
	}
	b.logger.Info("employees marked paid",
		zap.String("organization_id", orgID),
		zap.Int64("count", n),
		zap.Time("paid_at", paidAt),
	)
	return n, nil
}
