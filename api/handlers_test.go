/*
handlers_test.go - HTTP tests for the payroll API

Tests run the full router against an in-memory SQLite store with a fixed
server clock (Wed 2025-01-15 12:00 America/Chicago).
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/store/sqlite"
	"go.uber.org/zap"
)

type testServer struct {
	h      *Handler
	router http.Handler
	loc    *time.Location
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := NewHandler(store, loc, zap.NewNop())
	fixed := time.Date(2025, time.January, 15, 12, 0, 0, 0, loc)
	h.Now = func() time.Time { return fixed }

	return &testServer{h: h, router: NewRouter(h), loc: loc}
}

func (s *testServer) local(day, hour int) time.Time {
	return time.Date(2025, time.January, day, hour, 0, 0, 0, s.loc)
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createEmployee(t *testing.T, id string, rate any) {
	t.Helper()
	body := map[string]any{"id": id, "organization_id": "org-1", "name": id}
	if rate != nil {
		body["hourly_rate"] = rate
	}
	rec := s.do(t, http.MethodPost, "/api/employees", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) work(t *testing.T, id string, from, to time.Time) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/employees/"+id+"/clock-in", map[string]any{"at": from})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, http.MethodPost, "/api/employees/"+id+"/clock-out", map[string]any{"at": to})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// SETTINGS & PAY PERIOD
// =============================================================================

func TestSettings_DefaultsThenReplace(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/organizations/org-1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[factory.SettingsJSON](t, rec)
	assert.Equal(t, "weekly", got.PayPeriodType)
	assert.Equal(t, "friday", got.PayDay)
	assert.False(t, got.OvertimeEnabled)

	rec = s.do(t, http.MethodPut, "/api/organizations/org-1/settings", map[string]any{
		"pay_period_type": "semimonthly", "overtime_enabled": true, "overtime_type": "daily8",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/organizations/org-1/settings", nil)
	got = decode[factory.SettingsJSON](t, rec)
	assert.Equal(t, "semimonthly", got.PayPeriodType)
	assert.Equal(t, "daily8", got.OvertimeType)
	assert.Equal(t, "1.5", got.OvertimeRate.String())
}

func TestSettings_RejectsInvalidConfiguration(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPut, "/api/organizations/org-1/settings", map[string]any{
		"pay_period_type": "biweekly",
	})

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "INVALID_CONFIGURATION", resp.Code)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "pay_period_start_date", details["field"])

	rec = s.do(t, http.MethodPut, "/api/organizations/org-1/settings", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPayPeriod(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name      string
		query     string
		wantStart string
		wantEnd   string
	}{
		{"current at server clock", "", "2025-01-11", "2025-01-17"},
		{"explicit at", "?at=2025-01-18T09:00:00-06:00", "2025-01-18", "2025-01-24"},
		{"previous", "?which=previous", "2025-01-04", "2025-01-10"},
		// 03:00 UTC on the 18th is still the 17th in Chicago.
		{"local date wins", "?at=2025-01-18T03:00:00Z", "2025-01-11", "2025-01-17"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, "/api/organizations/org-1/pay-period"+tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			p := decode[PayPeriodDTO](t, rec)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
			assert.Equal(t, "America/Chicago", p.Timezone)
		})
	}

	rec := s.do(t, http.MethodGet, "/api/organizations/org-1/pay-period", nil)
	p := decode[PayPeriodDTO](t, rec)
	assert.Equal(t, "Jan 11 - Jan 17", p.Label)
	assert.True(t, s.local(11, 0).Equal(p.StartsAt))

	rec = s.do(t, http.MethodGet, "/api/organizations/org-1/pay-period?which=next", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/organizations/org-1/pay-period?at=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// EMPLOYEES & TIMECLOCK
// =============================================================================

func TestCreateEmployee_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/employees", map[string]any{"id": "alice", "organization_id": "org-1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_FAILED", resp.Code)
	assert.Equal(t, "name is required", resp.Error)

	rec = s.do(t, http.MethodPost, "/api/employees", map[string]any{
		"id": "alice", "organization_id": "org-1", "name": "Alice", "email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/employees", map[string]any{
		"id": "alice", "organization_id": "org-1", "name": "Alice", "hourly_rate": -3,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	s.createEmployee(t, "alice", "20.50")
	rec = s.do(t, http.MethodGet, "/api/employees/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	emp := decode[EmployeeDTO](t, rec)
	assert.Equal(t, "20.5", emp.HourlyRate.String())

	rec = s.do(t, http.MethodGet, "/api/employees/nobody", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTimeclock_ShiftLifecycle(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", 20)
	base := "/api/employees/alice"

	// GIVEN: alice clocks in at 08:00
	rec := s.do(t, http.MethodPost, base+"/clock-in", map[string]any{"at": s.local(15, 8), "job_title": "Cashier"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	shift := decode[ShiftDTO](t, rec)
	assert.Equal(t, "WORKING", shift.State)
	assert.Equal(t, 960, shift.CapMinutes)

	// THEN: a second clock-in conflicts
	rec = s.do(t, http.MethodPost, base+"/clock-in", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// AND: ending a break that never started conflicts
	rec = s.do(t, http.MethodPost, base+"/break/end", map[string]any{"at": s.local(15, 9)})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/break/start", map[string]any{"at": s.local(15, 10)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ON_BREAK", decode[ShiftDTO](t, rec).State)

	rec = s.do(t, http.MethodPost, base+"/break/end", map[string]any{"at": s.local(15, 11)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Empty body uses the server clock (12:00).
	rec = s.do(t, http.MethodPost, base+"/clock-out", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	shift = decode[ShiftDTO](t, rec)
	assert.Equal(t, "CLOCKED_OUT", shift.State)
	assert.Equal(t, "3", shift.NetWorkHours.String())

	// WHEN: clocking out again
	rec = s.do(t, http.MethodPost, base+"/clock-out", nil)
	// THEN: there is no open shift
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/employees/nobody/clock-in", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/clock-in", map[string]any{"cap_minutes": 5000})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListEntries(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", 20)
	s.work(t, "alice", s.local(9, 8), s.local(9, 16))
	s.work(t, "alice", s.local(13, 8), s.local(13, 16))

	rec := s.do(t, http.MethodGet, "/api/employees/alice/entries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ShiftDTO](t, rec), 1, "defaults to the current period")

	rec = s.do(t, http.MethodGet, "/api/employees/alice/entries?from=2025-01-01&to=2025-01-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ShiftDTO](t, rec), 2)

	for _, q := range []string{"?from=2025-01-01", "?from=2025-01-31&to=2025-01-01", "?from=01/01/2025&to=2025-01-31"} {
		rec = s.do(t, http.MethodGet, "/api/employees/alice/entries"+q, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

// =============================================================================
// EARNINGS & PAYROLL
// =============================================================================

func TestGetEarnings_DailyOvertime(t *testing.T) {
	// GIVEN: daily8 overtime at 1.5x and a $20/h employee
	// AND:   10h on Monday and 6h on Tuesday
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/organizations/org-1/settings", map[string]any{
		"overtime_enabled": true, "overtime_type": "daily8",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	s.createEmployee(t, "alice", 20)
	s.work(t, "alice", s.local(13, 7), s.local(13, 17))
	s.work(t, "alice", s.local(14, 7), s.local(14, 13))

	// WHEN
	rec = s.do(t, http.MethodGet, "/api/employees/alice/earnings", nil)

	// THEN: 14h regular, 2h overtime, 14*20 + 2*30 = 340
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EmployeeEarningsResponse](t, rec)
	require.NotNil(t, resp.Period)
	assert.Equal(t, "Jan 11 - Jan 17", resp.Period.Label)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, "2025-01-13", resp.Days[0].Date)
	assert.Equal(t, "16h", resp.TotalHours)
	require.NotNil(t, resp.Earnings)
	assert.Equal(t, "14", resp.Earnings.RegularHours.String())
	assert.Equal(t, "2", resp.Earnings.OvertimeHours.String())
	assert.Equal(t, "340", resp.Earnings.TotalPay.String())
	assert.Equal(t, "$340.00", resp.Earnings.Formatted.TotalPay)
}

func TestGetEarnings_OpenShiftCountsToNow(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "alice", 10)
	rec := s.do(t, http.MethodPost, "/api/employees/alice/clock-in", map[string]any{"at": s.local(15, 8)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/employees/alice/earnings?from=2025-01-15&to=2025-01-15", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[EmployeeEarningsResponse](t, rec)
	assert.Nil(t, resp.Period)
	assert.Equal(t, "4h", resp.TotalHours)
	assert.Equal(t, "40", resp.Earnings.TotalPay.String())
}

func TestGetEarnings_NoRateIsNull(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "bob", nil)
	s.work(t, "bob", s.local(13, 9), s.local(13, 13))

	rec := s.do(t, http.MethodGet, "/api/employees/bob/earnings", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"earnings":null`)
	assert.Equal(t, "4h", decode[EmployeeEarningsResponse](t, rec).TotalHours)
}

func TestPayroll_SummaryAndMarkPaid(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/organizations/org-1/settings", map[string]any{"overtime_enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	s.createEmployee(t, "alice", 20)
	for _, day := range []int{11, 12, 13, 14} {
		s.work(t, "alice", s.local(day, 6), s.local(day, 17))
	}

	rec = s.do(t, http.MethodGet, "/api/organizations/org-1/payroll", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[PayrollSummaryResponse](t, rec)
	require.Len(t, summary.Employees, 1)
	alice := summary.Employees[0]
	assert.Equal(t, "44", alice.TotalHours.String())
	assert.Equal(t, 4, alice.EntriesCount)
	assert.Equal(t, "4", alice.Earnings.OvertimeHours.String())
	// 40*20 + 4*30
	assert.Equal(t, "920", summary.TotalPay.String())
	assert.Equal(t, "$920.00", summary.Formatted)

	rec = s.do(t, http.MethodPost, "/api/organizations/org-1/payroll/paid", map[string]any{"employee_ids": []string{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/organizations/org-1/payroll/paid", map[string]any{"employee_ids": []string{"alice"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(1), decode[MarkPaidResponse](t, rec).Count)

	rec = s.do(t, http.MethodGet, "/api/organizations/org-1/payroll", nil)
	summary = decode[PayrollSummaryResponse](t, rec)
	alice = summary.Employees[0]
	assert.Equal(t, 0, alice.EntriesCount)
	require.NotNil(t, alice.UnpaidSince)
	assert.True(t, alice.UnpaidSince.TotalPay.IsZero())
}

// =============================================================================
// SOFT CAP
// =============================================================================

func TestCapSweep_FlagsForgottenClockOut(t *testing.T) {
	s := newTestServer(t)
	s.createEmployee(t, "frank", 20)
	rec := s.do(t, http.MethodPost, "/api/employees/frank/clock-in", map[string]any{"at": s.local(14, 19)})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/admin/cap-sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[SweepResponse](t, rec).Flagged)

	rec = s.do(t, http.MethodPost, "/api/admin/cap-sweep", nil)
	assert.Equal(t, 0, decode[SweepResponse](t, rec).Flagged, "already flagged")

	rec = s.do(t, http.MethodGet, "/api/employees/frank/entries", nil)
	shifts := decode[[]ShiftDTO](t, rec)
	require.Len(t, shifts, 1)
	assert.Equal(t, "OVER_CAP", shifts[0].Flag)
	assert.Equal(t, "WORKING", shifts[0].State, "soft cap never clocks out")
	assert.Equal(t, "17", shifts[0].NetWorkHours.String())
	assert.Equal(t, "16", shifts[0].EffectiveHours.String())
	require.NotNil(t, shifts[0].OverCapAt)
	assert.True(t, s.local(15, 11).Equal(*shifts[0].OverCapAt))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
