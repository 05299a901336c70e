/*
Package factory converts JSON payroll configuration into payroll.Settings.

PURPOSE:
  Organization settings are stored and edited as JSON. The factory turns
  that JSON into validated payroll.Settings and back, so the storage layer,
  the HTTP API and the CLI share one schema.

JSON SCHEMA:
  {
    "pay_period_type": "biweekly",
    "pay_day": "friday",
    "pay_period_start_date": "2024-01-05",
    "overtime_enabled": true,
    "overtime_type": "daily8",
    "overtime_rate": 1.5,
    "daily_threshold": 10,
    "weekly_threshold": 40
  }

DEFAULTS:
  Absent fields take payroll.DefaultSettings() values (weekly, friday,
  weekly40, 1.5). Present fields are never replaced: an unrecognized value
  is a *payroll.ConfigurationError.

SEE ALSO:
  - payroll/settings.go: validation rules
  - store/sqlite/sqlite.go: persists SettingsJSON
*/
package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the JSON representation of payroll settings.
type SettingsJSON struct {
	PayPeriodType      string           `json:"pay_period_type,omitempty"`
	PayDay             string           `json:"pay_day,omitempty"`
	PayPeriodStartDate *calendar.Date   `json:"pay_period_start_date,omitempty"`
	OvertimeEnabled    bool             `json:"overtime_enabled"`
	OvertimeType       string           `json:"overtime_type,omitempty"`
	OvertimeRate       *decimal.Decimal `json:"overtime_rate,omitempty"`
	DailyThreshold     *decimal.Decimal `json:"daily_threshold,omitempty"`
	WeeklyThreshold    *decimal.Decimal `json:"weekly_threshold,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSettings decodes and validates a JSON settings document.
func ParseSettings(raw string) (payroll.Settings, error) {
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(raw), &sj); err != nil {
		return payroll.Settings{}, fmt.Errorf("invalid settings JSON: %w", err)
	}
	return sj.ToSettings()
}

// ToSettings converts the JSON form to validated settings.
func (sj SettingsJSON) ToSettings() (payroll.Settings, error) {
	s := payroll.DefaultSettings()

	if sj.PayPeriodType != "" {
		pt, err := payroll.ParsePeriodType(strings.ToLower(sj.PayPeriodType))
		if err != nil {
			return payroll.Settings{}, err
		}
		s.PeriodType = pt
	}
	if sj.PayDay != "" {
		wd, err := payroll.ParseWeekday(sj.PayDay)
		if err != nil {
			return payroll.Settings{}, err
		}
		s.PayDay = wd
	}
	if sj.OvertimeType != "" {
		ot, err := payroll.ParseOvertimeType(strings.ToLower(sj.OvertimeType))
		if err != nil {
			return payroll.Settings{}, err
		}
		s.OvertimeType = ot
	}
	if sj.OvertimeRate != nil {
		s.OvertimeRate = *sj.OvertimeRate
	}

	s.PeriodStartDate = sj.PayPeriodStartDate
	s.OvertimeEnabled = sj.OvertimeEnabled
	s.DailyThreshold = sj.DailyThreshold
	s.WeeklyThreshold = sj.WeeklyThreshold

	if err := s.Validate(); err != nil {
		return payroll.Settings{}, err
	}
	return s, nil
}

// FromSettings is the inverse of ToSettings.
func FromSettings(s payroll.Settings) SettingsJSON {
	rate := s.OvertimeRate
	return SettingsJSON{
		PayPeriodType:      string(s.PeriodType),
		PayDay:             strings.ToLower(s.PayDay.String()),
		PayPeriodStartDate: s.PeriodStartDate,
		OvertimeEnabled:    s.OvertimeEnabled,
		OvertimeType:       string(s.OvertimeType),
		OvertimeRate:       &rate,
		DailyThreshold:     s.DailyThreshold,
		WeeklyThreshold:    s.WeeklyThreshold,
	}
}

// MarshalSettings encodes settings as JSON.
func MarshalSettings(s payroll.Settings) (string, error) {
	b, err := json.Marshal(FromSettings(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
