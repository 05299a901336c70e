/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	payroll data. Each scenario saves settings for the demo organization,
	creates employees and records shifts relative to the server clock, so
	the current pay period always has something to show.

AVAILABLE SCENARIOS:

	weekly-overtime:  Weekly Friday periods, weekly40 overtime at 1.5x
	daily-overtime:   Semi-monthly periods, daily8 overtime at 2x
	biweekly-custom:  Anchored biweekly periods, custom 10h/40h thresholds
	forgot-clock-out: An open shift past its 16 hour soft cap

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save organization settings via factory JSON
 3. Create employees
 4. Record shifts through the timeclock state machine

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "weekly-overtime"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - factory/settings.go: Settings JSON schema
  - timeclock/shift.go: Shift transitions used by the loaders
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/timeclock"
	"go.uber.org/zap"
)

// DemoOrganization owns all scenario data.
const DemoOrganization = "demo"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioLoader func(h *Handler, ctx context.Context, now time.Time) error

var scenarios = []ScenarioDTO{
	{
		ID:          "weekly-overtime",
		Name:        "Weekly Overtime",
		Description: "Weekly periods ending Friday, overtime past 40 hours at 1.5x",
	},
	{
		ID:          "daily-overtime",
		Name:        "Daily Overtime",
		Description: "Semi-monthly periods, overtime past 8 hours a day at 2x",
	},
	{
		ID:          "biweekly-custom",
		Name:        "Biweekly Custom Thresholds",
		Description: "Anchored biweekly periods, overtime past 10h a day or 40h a period",
	},
	{
		ID:          "forgot-clock-out",
		Name:        "Forgot to Clock Out",
		Description: "An open shift that ran past the 16 hour soft cap",
	},
}

var scenarioLoaders = map[string]scenarioLoader{
	"weekly-overtime":  (*Handler).loadWeeklyOvertimeScenario,
	"daily-overtime":   (*Handler).loadDailyOvertimeScenario,
	"biweekly-custom":  (*Handler).loadBiweeklyCustomScenario,
	"forgot-clock-out": (*Handler).loadForgotClockOutScenario,
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	current := h.currentScenario
	h.scenarioMu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(h, ctx, h.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "loaded",
		"scenario":        req.ScenarioID,
		"organization_id": DemoOrganization,
	})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadWeeklyOvertimeScenario(ctx context.Context, now time.Time) error {
	if err := h.seedSettings(ctx, `{
		"pay_period_type": "weekly",
		"pay_day": "friday",
		"overtime_enabled": true,
		"overtime_type": "weekly40",
		"overtime_rate": 1.5
	}`); err != nil {
		return err
	}

	if err := h.seedEmployee(ctx, "emp-alice", "Alice Johnson", "20"); err != nil {
		return err
	}
	if err := h.seedEmployee(ctx, "emp-bob", "Bob Smith", "18.50"); err != nil {
		return err
	}
	// No rate: hours are tracked, earnings are not applicable.
	if err := h.seedEmployee(ctx, "emp-carol", "Carol Davis", ""); err != nil {
		return err
	}

	for day := 1; day <= 5; day++ {
		if err := h.seedShift(ctx, now, "emp-alice", "Warehouse", day, 7, 10*time.Hour, 0); err != nil {
			return err
		}
		if err := h.seedShift(ctx, now, "emp-bob", "Front desk", day, 9, 8*time.Hour, 30*time.Minute); err != nil {
			return err
		}
	}
	return h.seedShift(ctx, now, "emp-carol", "Volunteer", 2, 10, 6*time.Hour, 0)
}

func (h *Handler) loadDailyOvertimeScenario(ctx context.Context, now time.Time) error {
	if err := h.seedSettings(ctx, `{
		"pay_period_type": "semimonthly",
		"overtime_enabled": true,
		"overtime_type": "daily8",
		"overtime_rate": 2
	}`); err != nil {
		return err
	}

	if err := h.seedEmployee(ctx, "emp-dave", "Dave Wilson", "25"); err != nil {
		return err
	}
	if err := h.seedShift(ctx, now, "emp-dave", "Line cook", 2, 6, 10*time.Hour, 0); err != nil {
		return err
	}
	return h.seedShift(ctx, now, "emp-dave", "Line cook", 1, 6, 6*time.Hour, 0)
}

func (h *Handler) loadBiweeklyCustomScenario(ctx context.Context, now time.Time) error {
	anchor := calendar.DateOf(now, h.Location).AddDays(-6)
	if err := h.seedSettings(ctx, fmt.Sprintf(`{
		"pay_period_type": "biweekly",
		"pay_period_start_date": %q,
		"overtime_enabled": true,
		"overtime_type": "custom",
		"overtime_rate": 1.5,
		"daily_threshold": 10,
		"weekly_threshold": 40
	}`, anchor.String())); err != nil {
		return err
	}

	if err := h.seedEmployee(ctx, "emp-erin", "Erin Martinez", "30"); err != nil {
		return err
	}
	for day := 1; day <= 5; day++ {
		if err := h.seedShift(ctx, now, "emp-erin", "Technician", day, 6, 11*time.Hour, 0); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadForgotClockOutScenario(ctx context.Context, now time.Time) error {
	if err := h.seedSettings(ctx, `{"overtime_enabled": true}`); err != nil {
		return err
	}
	if err := h.seedEmployee(ctx, "emp-frank", "Frank Brown", "20"); err != nil {
		return err
	}

	open := timeclock.NewShift("emp-frank", now.Add(-17*time.Hour), h.CapMinutes)
	open.JobTitle = "Night security"
	return h.Store.SaveShift(ctx, open)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedSettings(ctx context.Context, raw string) error {
	settings, err := factory.ParseSettings(raw)
	if err != nil {
		return fmt.Errorf("scenario settings: %w", err)
	}
	normalized, err := factory.MarshalSettings(settings)
	if err != nil {
		return err
	}
	return h.Store.SaveSettings(ctx, DemoOrganization, normalized)
}

func (h *Handler) seedEmployee(ctx context.Context, id, name, rate string) error {
	emp := sqlite.Employee{ID: id, OrganizationID: DemoOrganization, Name: name}
	if rate != "" {
		r, err := decimal.NewFromString(rate)
		if err != nil {
			return err
		}
		emp.HourlyRate = &r
	}
	return h.Store.SaveEmployee(ctx, emp)
}

// seedShift records a closed shift daysAgo local days before now, starting at
// startHour, with net work worked and an optional break in the middle.
func (h *Handler) seedShift(ctx context.Context, now time.Time, employeeID, job string, daysAgo, startHour int, worked, breakFor time.Duration) error {
	day := calendar.DateOf(now, h.Location).AddDays(-daysAgo)
	clockIn := day.StartOfDay(h.Location).Add(time.Duration(startHour) * time.Hour)

	sh := timeclock.NewShift(employeeID, clockIn, h.CapMinutes)
	sh.JobTitle = job

	var err error
	cursor := clockIn
	if breakFor > 0 {
		cursor = cursor.Add(worked / 2)
		if sh, err = sh.StartBreak(cursor); err != nil {
			return err
		}
		cursor = cursor.Add(breakFor)
		if sh, err = sh.EndBreak(cursor); err != nil {
			return err
		}
		cursor = cursor.Add(worked - worked/2)
	} else {
		cursor = cursor.Add(worked)
	}

	if sh, err = sh.ClockOutAt(cursor); err != nil {
		return err
	}
	return h.Store.SaveShift(ctx, sh)
}
