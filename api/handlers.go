/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes pay period resolution, the timeclock and earnings via REST API.
  Handles HTTP request/response and JSON, and delegates to the payroll,
  timeclock and report packages.

ENDPOINTS:
  Organizations:
    GET    /api/organizations/{org}/settings      Payroll settings (defaults if unset)
    PUT    /api/organizations/{org}/settings      Replace payroll settings
    GET    /api/organizations/{org}/pay-period    Resolve current or previous period
    GET    /api/organizations/{org}/payroll       Payroll summary for the current period
    POST   /api/organizations/{org}/payroll/paid  Mark employees paid

  Employees:
    POST   /api/employees                         Create or update employee
    GET    /api/employees/{id}                    Get employee
    GET    /api/employees/{id}/entries            Shifts in a date range
    GET    /api/employees/{id}/earnings           Earnings in a date range

  Timeclock:
    POST   /api/employees/{id}/clock-in
    POST   /api/employees/{id}/break/start
    POST   /api/employees/{id}/break/end
    POST   /api/employees/{id}/clock-out

  Admin:
    POST   /api/admin/cap-sweep                   Run the soft-cap sweep now

  Scenarios (scenarios.go):
    GET    /api/scenarios                         List demo scenarios
    GET    /api/scenarios/current                 Currently loaded scenario
    POST   /api/scenarios/load                    Reset and load a scenario
    POST   /api/scenarios/reset                   Reset the database

DATE RANGES:
  from/to are local dates (YYYY-MM-DD) in the server timezone, inclusive.
  Without them the current pay period is used.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed or invalid input
  - 404: Employee, settings or open shift not found
  - 409: Conflicting shift state (already clocked in, not on break,
         shift changed by a concurrent request)
  - 422: Payroll configuration the engine cannot work with
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/report"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/timeclock"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Reports  *report.Builder
	Location *time.Location
	Logger   *zap.Logger

	// CapMinutes is the soft cap for new shifts.
	CapMinutes int
	// Now is the server clock. Tests replace it.
	Now func() time.Time

	Sweeper  *CapSweeper
	validate *validator.Validate

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler evaluating dates in loc.
func NewHandler(store *sqlite.Store, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Store:      store,
		Reports:    report.NewBuilder(store, loc, logger.Named("report")),
		Location:   loc,
		Logger:     logger,
		CapMinutes: timeclock.DefaultCapMinutes,
		Now:        time.Now,
		validate:   newValidator(),
	}
	h.Sweeper = NewCapSweeper(store, logger.Named("cap-sweeper"))
	h.Sweeper.Now = func() time.Time { return h.Now() }
	return h
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the organization's payroll settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	settings, err := h.Reports.Settings(r.Context(), org)
	if err != nil {
		h.writeDomainError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromSettings(settings))
}

// PutSettings validates and stores the organization's payroll settings.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	var req factory.SettingsJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	settings, err := req.ToSettings()
	if err != nil {
		h.writeDomainError(w, "Invalid payroll settings", err)
		return
	}

	raw, err := factory.MarshalSettings(settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to encode settings", err)
		return
	}
	if err := h.Store.SaveSettings(r.Context(), org, raw); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings", err)
		return
	}

	h.Logger.Info("payroll settings saved",
		zap.String("organization_id", org),
		zap.String("period_type", string(settings.PeriodType)),
		zap.Bool("overtime_enabled", settings.OvertimeEnabled),
	)
	writeJSON(w, http.StatusOK, factory.FromSettings(settings))
}

// =============================================================================
// PAY PERIOD & PAYROLL HANDLERS
// =============================================================================

// GetPayPeriod resolves the current or previous pay period at ?at (RFC3339,
// default now).
func (h *Handler) GetPayPeriod(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	which := payroll.Current
	switch r.URL.Query().Get("which") {
	case "", "current":
	case "previous":
		which = payroll.Previous
	default:
		writeError(w, http.StatusBadRequest, "which must be current or previous", nil)
		return
	}

	ref := h.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid at (use RFC3339)", err)
			return
		}
		ref = t
	}

	settings, err := h.Reports.Settings(r.Context(), org)
	if err != nil {
		h.writeDomainError(w, "Failed to load settings", err)
		return
	}

	period, err := payroll.ResolvePeriod(settings, ref, h.Location, which)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve pay period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayPeriodDTO(period, h.Location))
}

// GetPayroll returns the payroll summary for the current period.
func (h *Handler) GetPayroll(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	summary, err := h.Reports.Summarize(r.Context(), org, h.Now())
	if err != nil {
		h.writeDomainError(w, "Failed to build payroll summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollSummaryResponse(summary, h.Location))
}

// MarkPaid marks the listed employees paid through paid_at (default now).
func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	org := chi.URLParam(r, "org")

	var req MarkPaidRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	paidAt := h.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	n, err := h.Reports.MarkPaid(r.Context(), org, req.EmployeeIDs, paidAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark employees paid", err)
		return
	}
	writeJSON(w, http.StatusOK, MarkPaidResponse{Count: n, PaidAt: paidAt})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// CreateEmployee creates or updates an employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.HourlyRate != nil && req.HourlyRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "hourly_rate must not be negative", nil)
		return
	}

	emp := sqlite.Employee{
		ID:             req.ID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		Email:          req.Email,
		HourlyRate:     req.HourlyRate,
	}
	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}

	saved, err := h.Store.GetEmployee(r.Context(), emp.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to load employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(*saved))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// ListEntries returns the employee's shifts clocked in within the range.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.Now()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}

	rng, err := h.dateRange(ctx, r, emp.OrganizationID, now)
	if err != nil {
		h.writeDomainError(w, "Invalid date range", err)
		return
	}

	shifts, err := h.Store.ListShifts(ctx, emp.ID, rng.from.StartOfDay(h.Location), rng.to.EndOfDay(h.Location))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}

	out := make([]ShiftDTO, 0, len(shifts))
	for _, sh := range shifts {
		out = append(out, toShiftDTO(sh, now))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetEarnings computes the employee's earnings over the range. Open shifts
// count up to now.
func (h *Handler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.Now()

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}

	rng, err := h.dateRange(ctx, r, emp.OrganizationID, now)
	if err != nil {
		h.writeDomainError(w, "Invalid date range", err)
		return
	}

	shifts, err := h.Store.ListShifts(ctx, emp.ID, rng.from.StartOfDay(h.Location), rng.to.EndOfDay(h.Location))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load entries", err)
		return
	}

	entries := make([]payroll.TimeEntry, 0, len(shifts))
	for _, sh := range shifts {
		entries = append(entries, sh.ToTimeEntry(now))
	}

	summary, buckets, err := payroll.EarningsForEntries(entries, emp.HourlyRate, rng.settings,
		payroll.Evaluation{Now: now, Location: h.Location})
	if err != nil {
		h.writeDomainError(w, "Failed to compute earnings", err)
		return
	}

	resp := EmployeeEarningsResponse{
		EmployeeID: emp.ID,
		From:       rng.from.String(),
		To:         rng.to.String(),
		Days:       toDayDTOs(buckets),
		TotalHours: payroll.FormatHours(payroll.TotalHours(buckets)),
		Earnings:   toEarningsDTO(summary),
	}
	if rng.period != nil {
		p := toPayPeriodDTO(*rng.period, h.Location)
		resp.Period = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// TIMECLOCK HANDLERS
// =============================================================================

// ClockIn opens a new shift. An employee can have one open shift at a time.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ClockInRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	emp, err := h.Store.GetEmployee(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Employee not found", err)
		return
	}

	at := h.actionTime(req.At)
	capMinutes := req.CapMinutes
	if capMinutes == 0 {
		capMinutes = h.CapMinutes
	}

	sh := timeclock.NewShift(emp.ID, at, capMinutes)
	sh.JobTitle = req.JobTitle
	sh.Notes = req.Notes

	if err := h.Store.SaveShift(ctx, sh); err != nil {
		h.writeDomainError(w, "Failed to clock in", err)
		return
	}

	h.Logger.Info("clocked in", zap.String("employee_id", emp.ID), zap.String("shift_id", sh.ID), zap.Time("at", at))
	writeJSON(w, http.StatusCreated, toShiftDTO(sh, at))
}

// StartBreak pauses the open shift.
func (h *Handler) StartBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "start break", timeclock.Shift.StartBreak)
}

// EndBreak resumes the open shift.
func (h *Handler) EndBreak(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "end break", timeclock.Shift.EndBreak)
}

// ClockOut closes the open shift, applying the soft cap.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "clock out", timeclock.Shift.ClockOutAt)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, action string, apply func(timeclock.Shift, time.Time) (timeclock.Shift, error)) {
	ctx := r.Context()
	employeeID := chi.URLParam(r, "id")

	var req ClockActionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	at := h.actionTime(req.At)

	open, err := h.Store.GetOpenShift(ctx, employeeID)
	if err != nil {
		h.writeDomainError(w, "No open shift", err)
		return
	}

	next, err := apply(*open, at)
	if err != nil {
		h.writeDomainError(w, "Cannot "+action, err)
		return
	}
	if err := h.Store.UpdateShift(ctx, *open, next); err != nil {
		h.writeDomainError(w, "Failed to save shift", err)
		return
	}

	fields := []zap.Field{
		zap.String("employee_id", employeeID),
		zap.String("shift_id", next.ID),
		zap.String("state", string(next.State)),
	}
	if next.Flag == timeclock.FlagOverCap {
		fields = append(fields, zap.String("flag", string(next.Flag)))
	}
	h.Logger.Info(action, fields...)
	writeJSON(w, http.StatusOK, toShiftDTO(next, at))
}

// TriggerCapSweep runs the soft-cap sweep immediately.
func (h *Handler) TriggerCapSweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.Sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Cap sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepResponse{Flagged: n})
}

// =============================================================================
// HELPERS
// =============================================================================

type entryRange struct {
	from, to calendar.Date
	period   *payroll.PayPeriod
	settings payroll.Settings
}

// dateRange reads ?from&to, falling back to the current pay period.
func (h *Handler) dateRange(ctx context.Context, r *http.Request, orgID string, now time.Time) (entryRange, error) {
	settings, err := h.Reports.Settings(ctx, orgID)
	if err != nil {
		return entryRange{}, err
	}
	rng := entryRange{settings: settings}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		period, err := payroll.ResolvePeriod(settings, now, h.Location, payroll.Current)
		if err != nil {
			return entryRange{}, err
		}
		rng.from, rng.to, rng.period = period.Start, period.End, &period
		return rng, nil
	}
	if from == "" || to == "" {
		return entryRange{}, &inputError{msg: "from and to must be given together"}
	}

	if rng.from, err = calendar.ParseDate(from); err != nil {
		return entryRange{}, &inputError{msg: "invalid from (use YYYY-MM-DD)", err: err}
	}
	if rng.to, err = calendar.ParseDate(to); err != nil {
		return entryRange{}, &inputError{msg: "invalid to (use YYYY-MM-DD)", err: err}
	}
	if rng.to.Before(rng.from) {
		return entryRange{}, &inputError{msg: "to is before from"}
	}
	return rng, nil
}

func (h *Handler) actionTime(at *time.Time) time.Time {
	if at != nil {
		return *at
	}
	return h.Now()
}

// inputError is a client mistake that maps to 400.
type inputError struct {
	msg string
	err error
}

func (e *inputError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *inputError) Unwrap() error { return e.err }

// decodeAndValidate writes a 400 and returns false on failure. An empty
// body decodes as the zero request.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		details, msg := validationDetails(err)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg, Code: "VALIDATION_FAILED", Details: details})
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var cfgErr *payroll.ConfigurationError
	var inErr *inputError

	switch {
	case errors.As(err, &cfgErr):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   message,
			Code:    "INVALID_CONFIGURATION",
			Details: map[string]string{"field": cfgErr.Field, "value": cfgErr.Value, "reason": cfgErr.Reason},
		})
	case errors.As(err, &inErr):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, sqlite.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, sqlite.ErrShiftOpen), errors.Is(err, sqlite.ErrStale),
		errors.Is(err, timeclock.ErrInvalidTransition):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
