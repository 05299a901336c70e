/*
scenarios_test.go - Tests for demo scenarios

PURPOSE:
	Loads every scenario through the router and checks that the demo
	organization ends up with the expected employees, shifts and earnings.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_LoadAll(t *testing.T) {
	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			s := newTestServer(t)

			rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": sc.ID})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
			assert.Equal(t, sc.ID, decode[ScenarioDTO](t, rec).ID)

			rec = s.do(t, http.MethodGet, "/api/organizations/"+DemoOrganization+"/payroll", nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[PayrollSummaryResponse](t, rec).Employees)
		})
	}
}

func TestScenarios_WeeklyOvertime(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "weekly-overtime"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-alice/earnings?from=2025-01-10&to=2025-01-14", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EmployeeEarningsResponse](t, rec)
	assert.Equal(t, "50h", resp.TotalHours)
	assert.Equal(t, "10", resp.Earnings.OvertimeHours.String())

	rec = s.do(t, http.MethodGet, "/api/employees/emp-carol/earnings?from=2025-01-10&to=2025-01-14", nil)
	assert.Contains(t, rec.Body.String(), `"earnings":null`)
}

func TestScenarios_UnknownAndReset(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "payday-party"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "forgot-clock-out"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/emp-frank", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestScenarios_ForgotClockOutIsSwept(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.h.loadForgotClockOutScenario(context.Background(), s.h.Now()))

	flagged, err := s.h.Sweeper.Sweep(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	open, err := s.h.Store.GetOpenShift(context.Background(), "emp-frank")
	require.NoError(t, err)
	assert.Equal(t, "OVER_CAP", string(open.Flag))
}

func TestScenarios_BiweeklyAnchorCoversLastWeek(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/scenarios/load", map[string]any{"scenario_id": "biweekly-custom"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/organizations/"+DemoOrganization+"/pay-period", nil)
	p := decode[PayPeriodDTO](t, rec)
	assert.Equal(t, "2025-01-09", p.Start)
	assert.Equal(t, "2025-01-22", p.End)

	// Five 11h days: 5h over the daily threshold, then 50 regular hours
	// cut to 40 by the period threshold.
	rec = s.do(t, http.MethodGet, "/api/organizations/"+DemoOrganization+"/payroll", nil)
	summary := decode[PayrollSummaryResponse](t, rec)
	require.Len(t, summary.Employees, 1)
	erin := summary.Employees[0]
	assert.Equal(t, "55", erin.TotalHours.String())
	assert.Equal(t, "40", erin.Earnings.RegularHours.String())
	assert.Equal(t, "15", erin.Earnings.OvertimeHours.String())
}
