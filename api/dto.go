/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the payroll
  and timeclock domain types from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employee:  EmployeeDTO, CreateEmployeeRequest
  Timeclock: ShiftDTO, ClockInRequest, ClockActionRequest
  Payroll:   PayPeriodDTO, EarningsDTO, DayDTO, EmployeeEarningsResponse,
             PayrollSummaryResponse, MarkPaidRequest, MarkPaidResponse
  Settings:  factory.SettingsJSON is the wire form
  Scenarios: ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator in
  the handlers. Domain rules (settings, transitions) are checked by the
  domain packages.

MONEY AND HOURS:
  Decimals are serialized as JSON strings ("950.5") to avoid float loss.
  Formatted fields carry display strings ("$950.50", "7h 30m").

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: SettingsJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/timeclock"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateEmployeeRequest creates or updates an employee.
type CreateEmployeeRequest struct {
	ID             string           `json:"id" validate:"required,max=64"`
	OrganizationID string           `json:"organization_id" validate:"required,max=64"`
	Name           string           `json:"name" validate:"required,max=200"`
	Email          string           `json:"email" validate:"omitempty,email"`
	HourlyRate     *decimal.Decimal `json:"hourly_rate"`
}

// ClockInRequest starts a shift. At defaults to the server clock.
type ClockInRequest struct {
	At         *time.Time `json:"at"`
	JobTitle   string     `json:"job_title" validate:"max=100"`
	Notes      string     `json:"notes" validate:"max=500"`
	CapMinutes int        `json:"cap_minutes" validate:"omitempty,min=1,max=1440"`
}

// ClockActionRequest is the body of break and clock-out actions.
type ClockActionRequest struct {
	At *time.Time `json:"at"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// MarkPaidRequest marks employees paid through PaidAt.
type MarkPaidRequest struct {
	EmployeeIDs []string   `json:"employee_ids" validate:"required,min=1,dive,required"`
	PaidAt      *time.Time `json:"paid_at"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Name           string           `json:"name"`
	Email          string           `json:"email,omitempty"`
	HourlyRate     *decimal.Decimal `json:"hourly_rate"`
	LastPaidAt     *time.Time       `json:"last_paid_at"`
}

// ShiftDTO is a shift with its live soft-cap status.
type ShiftDTO struct {
	ID                 string          `json:"id"`
	EmployeeID         string          `json:"employee_id"`
	JobTitle           string          `json:"job_title,omitempty"`
	Notes              string          `json:"notes,omitempty"`
	ClockIn            time.Time       `json:"clock_in"`
	ClockOut           *time.Time      `json:"clock_out"`
	BreakStart         *time.Time      `json:"break_start,omitempty"`
	BreakEnd           *time.Time      `json:"break_end,omitempty"`
	State              string          `json:"state"`
	Flag               string          `json:"flag"`
	CapMinutes         int             `json:"cap_minutes"`
	NetWorkHours       decimal.Decimal `json:"net_work_hours"`
	EffectiveHours     decimal.Decimal `json:"effective_hours"`
	OverCapAt          *time.Time      `json:"over_cap_at,omitempty"`
	ProjectedOverCapAt *time.Time      `json:"projected_over_cap_at,omitempty"`
	ApproachingCap     bool            `json:"approaching_cap"`
}

// PayPeriodDTO is a resolved pay period.
type PayPeriodDTO struct {
	Start    string    `json:"start"`
	End      string    `json:"end"`
	Label    string    `json:"label"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Timezone string    `json:"timezone"`
}

// EarningsDTO is an earnings summary rounded to cents.
type EarningsDTO struct {
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	RegularPay    decimal.Decimal `json:"regular_pay"`
	OvertimePay   decimal.Decimal `json:"overtime_pay"`
	TotalPay      decimal.Decimal `json:"total_pay"`
	Formatted     FormattedDTO    `json:"formatted"`
}

type FormattedDTO struct {
	RegularHours  string `json:"regular_hours"`
	OvertimeHours string `json:"overtime_hours"`
	TotalPay      string `json:"total_pay"`
}

// DayDTO is one local day's hours.
type DayDTO struct {
	Date  string          `json:"date"`
	Hours decimal.Decimal `json:"hours"`
}

// EmployeeEarningsResponse is an employee's earnings over a date range.
// Earnings is null when the employee has no hourly rate.
type EmployeeEarningsResponse struct {
	EmployeeID string        `json:"employee_id"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	Period     *PayPeriodDTO `json:"period,omitempty"`
	Days       []DayDTO      `json:"days"`
	TotalHours string        `json:"total_hours"`
	Earnings   *EarningsDTO  `json:"earnings"`
}

// EmployeePayrollDTO is one row of the payroll summary.
type EmployeePayrollDTO struct {
	EmployeeID   string           `json:"employee_id"`
	Name         string           `json:"name"`
	Email        string           `json:"email,omitempty"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate"`
	LastPaidAt   *time.Time       `json:"last_paid_at"`
	OwedSince    time.Time        `json:"owed_since"`
	TotalHours   decimal.Decimal  `json:"total_hours"`
	EntriesCount int              `json:"entries_count"`
	JobsWorked   []string         `json:"jobs_worked"`
	Earnings     *EarningsDTO     `json:"earnings"`
	UnpaidSince  *UnpaidSinceDTO  `json:"unpaid_since"`
}

type UnpaidSinceDTO struct {
	Start        time.Time       `json:"start"`
	TotalHours   decimal.Decimal `json:"total_hours"`
	TotalPay     decimal.Decimal `json:"total_pay"`
	EntriesCount int             `json:"entries_count"`
}

// PayrollSummaryResponse is the organization payroll summary.
type PayrollSummaryResponse struct {
	OrganizationID string               `json:"organization_id"`
	Period         PayPeriodDTO         `json:"period"`
	Settings       factory.SettingsJSON `json:"settings"`
	Employees      []EmployeePayrollDTO `json:"employees"`
	TotalHours     decimal.Decimal      `json:"total_hours"`
	TotalPay       decimal.Decimal      `json:"total_pay"`
	Formatted      string               `json:"formatted_total_pay"`
}

type MarkPaidResponse struct {
	Count  int64     `json:"count"`
	PaidAt time.Time `json:"paid_at"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type SweepResponse struct {
	Flagged int `json:"flagged"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(emp sqlite.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:             emp.ID,
		OrganizationID: emp.OrganizationID,
		Name:           emp.Name,
		Email:          emp.Email,
		HourlyRate:     emp.HourlyRate,
		LastPaidAt:     emp.LastPaidAt,
	}
}

func toShiftDTO(sh timeclock.Shift, now time.Time) ShiftDTO {
	return ShiftDTO{
		ID:                 sh.ID,
		EmployeeID:         sh.EmployeeID,
		JobTitle:           sh.JobTitle,
		Notes:              sh.Notes,
		ClockIn:            sh.ClockIn,
		ClockOut:           sh.ClockOut,
		BreakStart:         sh.BreakStart,
		BreakEnd:           sh.BreakEnd,
		State:              string(sh.State),
		Flag:               string(sh.Flag),
		CapMinutes:         sh.CapMinutes,
		NetWorkHours:       payroll.HoursOf(sh.NetWork(now)).Round(2),
		EffectiveHours:     sh.EffectiveNetWorkHours(now).Round(2),
		OverCapAt:          sh.OverCapAt,
		ProjectedOverCapAt: sh.ProjectedOverCapAt(),
		ApproachingCap:     sh.IsApproachingCap(now, timeclock.CapReminderOffsetMins*time.Minute),
	}
}

func toPayPeriodDTO(p payroll.PayPeriod, loc *time.Location) PayPeriodDTO {
	start, end := p.Bounds(loc)
	return PayPeriodDTO{
		Start:    p.Start.String(),
		End:      p.End.String(),
		Label:    p.Label(),
		StartsAt: start,
		EndsAt:   end,
		Timezone: loc.String(),
	}
}

func toEarningsDTO(e *payroll.EarningsSummary) *EarningsDTO {
	if e == nil {
		return nil
	}
	r := e.Rounded()
	return &EarningsDTO{
		RegularHours:  r.RegularHours,
		OvertimeHours: r.OvertimeHours,
		RegularPay:    r.RegularPay,
		OvertimePay:   r.OvertimePay,
		TotalPay:      r.TotalPay,
		Formatted: FormattedDTO{
			RegularHours:  payroll.FormatHours(e.RegularHours),
			OvertimeHours: payroll.FormatHours(e.OvertimeHours),
			TotalPay:      payroll.FormatCurrency(e.TotalPay),
		},
	}
}

func toDayDTOs(buckets []payroll.DayBucket) []DayDTO {
	days := make([]DayDTO, 0, len(buckets))
	for _, b := range buckets {
		days = append(days, DayDTO{Date: b.Date.String(), Hours: b.Hours.Round(2)})
	}
	return days
}

func toPayrollSummaryResponse(s *report.Summary, loc *time.Location) PayrollSummaryResponse {
	resp := PayrollSummaryResponse{
		OrganizationID: s.OrganizationID,
		Period:         toPayPeriodDTO(s.Period, loc),
		Settings:       factory.FromSettings(s.Settings),
		Employees:      make([]EmployeePayrollDTO, 0, len(s.Employees)),
		TotalHours:     s.TotalHours.Round(2),
		TotalPay:       s.TotalPay.Round(2),
		Formatted:      payroll.FormatCurrency(s.TotalPay),
	}
	for _, e := range s.Employees {
		row := EmployeePayrollDTO{
			EmployeeID:   e.EmployeeID,
			Name:         e.Name,
			Email:        e.Email,
			HourlyRate:   e.HourlyRate,
			LastPaidAt:   e.LastPaidAt,
			OwedSince:    e.OwedSince,
			TotalHours:   e.TotalHours.Round(2),
			EntriesCount: e.EntriesCount,
			JobsWorked:   e.JobsWorked,
			Earnings:     toEarningsDTO(e.Earnings),
		}
		if row.JobsWorked == nil {
			row.JobsWorked = []string{}
		}
		if e.UnpaidSince != nil {
			row.UnpaidSince = &UnpaidSinceDTO{
				Start:        e.UnpaidSince.Start,
				TotalHours:   e.UnpaidSince.TotalHours,
				TotalPay:     e.UnpaidSince.TotalPay,
				EntriesCount: e.UnpaidSince.EntriesCount,
			}
		}
		resp.Employees = append(resp.Employees, row)
	}
	return resp
}
