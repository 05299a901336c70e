/*
Package sqlite persists organizations' payroll settings, employees and shifts.

PURPOSE:
  The payroll engine is pure; this package is its storage collaborator. It
  holds the JSON settings document per organization, employee pay data
  (hourly rate, last-paid instant) and timeclock shifts with their soft-cap
  bookkeeping.

KEY TABLES:
  organization_settings: one JSON settings document per organization
  employees:             pay rate and last-paid instant per employee
  shifts:                timeclock shifts, open and closed

INDEXES:
  - idx_shifts_employee_clock_in: period and unpaid-since queries (hot path)
  - idx_unique_open_shift: at most one open shift per employee
  - idx_shifts_state: soft-cap sweep over open shifts

TIME STORAGE:
  Instants are stored as fixed-width UTC text (timeLayout) so that SQL string
  comparison orders them correctly.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode.
  Open shifts are read, transitioned in memory and written back, so
  UpdateShift and FlagOverCap only apply when the row still matches what
  was read; otherwise nothing is written.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - factory/settings.go: settings JSON schema
  - timeclock/shift.go: Shift lifecycle
  - report/summary.go: reads employees and shifts for payroll
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/timeclock"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrShiftOpen = errors.New("employee already has an open shift")
	ErrStale     = errors.New("shift changed since it was read")
)

// Fixed width so lexical order matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

// Store implements payroll persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS organization_settings (
		organization_id TEXT PRIMARY KEY,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		organization_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		hourly_rate TEXT,
		last_paid_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_employees_organization
		ON employees(organization_id);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
		job_title TEXT,
		notes TEXT,
		clock_in TEXT NOT NULL,
		clock_out TEXT,
		state TEXT NOT NULL,
		work_accum_ms INTEGER NOT NULL DEFAULT 0,
		last_state_change_at TEXT NOT NULL,
		break_start TEXT,
		break_end TEXT,
		cap_minutes INTEGER NOT NULL,
		flag TEXT NOT NULL,
		over_cap_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_employee_clock_in
		ON shifts(employee_id, clock_in);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_open_shift
		ON shifts(employee_id) WHERE state != 'CLOCKED_OUT';

	CREATE INDEX IF NOT EXISTS idx_shifts_state
		ON shifts(state);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SettingsRecord is an organization's stored settings document.
type SettingsRecord struct {
	OrganizationID string
	ConfigJSON     string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SaveSettings upserts an organization's settings document.
func (s *Store) SaveSettings(ctx context.Context, orgID, configJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO organization_settings (organization_id, config_json, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(organization_id) DO UPDATE SET
			config_json = excluded.config_json,
			version = organization_settings.version + 1,
			updated_at = excluded.updated_at
	`

	now := formatTime(time.Now())
	_, err := s.db.ExecContext(ctx, query, orgID, configJSON, now, now)
	return err
}

// GetSettings returns ErrNotFound when the organization has no settings.
func (s *Store) GetSettings(ctx context.Context, orgID string) (*SettingsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var r SettingsRecord
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx,
		"SELECT organization_id, config_json, version, created_at, updated_at FROM organization_settings WHERE organization_id = ?",
		orgID,
	).Scan(&r.OrganizationID, &r.ConfigJSON, &r.Version, &createdAt, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings for organization %s: %w", orgID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updatedAt)
	return &r, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// Employee is an hourly worker belonging to one organization.
type Employee struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	HourlyRate     *decimal.Decimal
	LastPaidAt     *time.Time
	CreatedAt      time.Time
}

// SaveEmployee upserts an employee. LastPaidAt is only changed by MarkPaid.
func (s *Store) SaveEmployee(ctx context.Context, emp Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, organization_id, name, email, hourly_rate, last_paid_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			organization_id = excluded.organization_id,
			name = excluded.name,
			email = excluded.email,
			hourly_rate = excluded.hourly_rate
	`

	created := emp.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.OrganizationID, emp.Name, nullString(emp.Email),
		nullDecimal(emp.HourlyRate), nullTime(emp.LastPaidAt), formatTime(created),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, organization_id, name, email, hourly_rate, last_paid_at, created_at FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns an organization's employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context, orgID string) ([]Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, organization_id, name, email, hourly_rate, last_paid_at, created_at FROM employees WHERE organization_id = ? ORDER BY name, id",
		orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// MarkPaid sets the last-paid instant for the given employees of one
// organization atomically. It returns how many rows were updated.
func (s *Store) MarkPaid(ctx context.Context, orgID string, ids []string, paidAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var updated int64
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			"UPDATE employees SET last_paid_at = ? WHERE id = ? AND organization_id = ?",
			formatTime(paidAt), id, orgID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to mark %s paid: %w", id, err)
		}
		n, _ := res.RowsAffected()
		updated += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (Employee, error) {
	var emp Employee
	var email, rate, lastPaid sql.NullString
	var createdAt string
	if err := row.Scan(&emp.ID, &emp.OrganizationID, &emp.Name, &email, &rate, &lastPaid, &createdAt); err != nil {
		return Employee{}, err
	}
	emp.Email = email.String
	emp.LastPaidAt = parseNullTime(lastPaid)
	emp.CreatedAt = parseTime(createdAt)
	if rate.Valid {
		d, err := decimal.NewFromString(rate.String)
		if err != nil {
			return Employee{}, fmt.Errorf("employee %s: bad hourly_rate %q: %w", emp.ID, rate.String, err)
		}
		emp.HourlyRate = &d
	}
	return emp, nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

const shiftColumns = `id, employee_id, job_title, notes, clock_in, clock_out, state,
	work_accum_ms, last_state_change_at, break_start, break_end,
	cap_minutes, flag, over_cap_at`

// SaveShift upserts a shift unconditionally. Use it for new shifts; changes
// to a shift read from the store go through UpdateShift. A second open
// shift for the same employee returns ErrShiftOpen.
func (s *Store) SaveShift(ctx context.Context, sh timeclock.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO shifts (` + shiftColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_title = excluded.job_title,
			notes = excluded.notes,
			clock_out = excluded.clock_out,
			state = excluded.state,
			work_accum_ms = excluded.work_accum_ms,
			last_state_change_at = excluded.last_state_change_at,
			break_start = excluded.break_start,
			break_end = excluded.break_end,
			cap_minutes = excluded.cap_minutes,
			flag = excluded.flag,
			over_cap_at = excluded.over_cap_at
	`

	_, err := s.db.ExecContext(ctx, query,
		sh.ID, sh.EmployeeID, nullString(sh.JobTitle), nullString(sh.Notes),
		formatTime(sh.ClockIn), nullTime(sh.ClockOut), string(sh.State),
		sh.WorkAccum.Milliseconds(), formatTime(sh.LastStateChangeAt),
		nullTime(sh.BreakStart), nullTime(sh.BreakEnd),
		sh.CapMinutes, string(sh.Flag), nullTime(sh.OverCapAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrShiftOpen
		}
		return fmt.Errorf("failed to save shift: %w", err)
	}
	return nil
}

// UpdateShift writes next over prev, the version it was derived from. If the
// stored row no longer matches prev (state, flag or last state change), the
// write is skipped and ErrStale is returned.
func (s *Store) UpdateShift(ctx context.Context, prev, next timeclock.Shift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE shifts SET
			job_title = ?, notes = ?, clock_out = ?, state = ?,
			work_accum_ms = ?, last_state_change_at = ?,
			break_start = ?, break_end = ?,
			cap_minutes = ?, flag = ?, over_cap_at = ?
		WHERE id = ? AND state = ? AND flag = ? AND last_state_change_at = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		nullString(next.JobTitle), nullString(next.Notes), nullTime(next.ClockOut), string(next.State),
		next.WorkAccum.Milliseconds(), formatTime(next.LastStateChangeAt),
		nullTime(next.BreakStart), nullTime(next.BreakEnd),
		next.CapMinutes, string(next.Flag), nullTime(next.OverCapAt),
		prev.ID, string(prev.State), string(prev.Flag), formatTime(prev.LastStateChangeAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrShiftOpen
		}
		return fmt.Errorf("failed to update shift: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update shift: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shift %s: %w", prev.ID, ErrStale)
	}
	return nil
}

// FlagOverCap marks an open shift OVER_CAP at overCapAt. It touches only the
// flag columns and reports false when the shift was closed, changed state
// after lastChange, or is already flagged.
func (s *Store) FlagOverCap(ctx context.Context, id string, overCapAt, lastChange time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE shifts SET flag = ?, over_cap_at = ?
		WHERE id = ? AND state != ? AND flag != ? AND last_state_change_at = ?
	`,
		string(timeclock.FlagOverCap), formatTime(overCapAt),
		id, string(timeclock.StateClockedOut), string(timeclock.FlagOverCap), formatTime(lastChange),
	)
	if err != nil {
		return false, fmt.Errorf("failed to flag shift: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to flag shift: %w", err)
	}
	return n > 0, nil
}

// GetShift retrieves a shift by ID.
func (s *Store) GetShift(ctx context.Context, id string) (*timeclock.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+shiftColumns+" FROM shifts WHERE id = ?", id)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("shift %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// GetOpenShift returns the employee's shift that is not clocked out.
func (s *Store) GetOpenShift(ctx context.Context, employeeID string) (*timeclock.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE employee_id = ? AND state != ?",
		employeeID, string(timeclock.StateClockedOut),
	)
	sh, err := scanShift(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("open shift for employee %s: %w", employeeID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

// ListShifts returns the employee's shifts with clock-in in [from, to].
func (s *Store) ListShifts(ctx context.Context, employeeID string, from, to time.Time) ([]timeclock.Shift, error) {
	return s.queryShifts(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE employee_id = ? AND clock_in >= ? AND clock_in <= ? ORDER BY clock_in",
		employeeID, formatTime(from), formatTime(to),
	)
}

// ListClosedShiftsSince returns clocked-out shifts with clock-in at or after since.
func (s *Store) ListClosedShiftsSince(ctx context.Context, employeeID string, since time.Time) ([]timeclock.Shift, error) {
	return s.queryShifts(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE employee_id = ? AND clock_in >= ? AND state = ? ORDER BY clock_in",
		employeeID, formatTime(since), string(timeclock.StateClockedOut),
	)
}

// ListOpenShifts returns every shift that is not clocked out.
func (s *Store) ListOpenShifts(ctx context.Context) ([]timeclock.Shift, error) {
	return s.queryShifts(ctx,
		"SELECT "+shiftColumns+" FROM shifts WHERE state != ? ORDER BY clock_in",
		string(timeclock.StateClockedOut),
	)
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]timeclock.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []timeclock.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

func scanShift(row scanner) (timeclock.Shift, error) {
	var sh timeclock.Shift
	var jobTitle, notes, clockOut, breakStart, breakEnd, overCapAt sql.NullString
	var clockIn, lastChange, state, flag string
	var workAccumMs int64

	err := row.Scan(
		&sh.ID, &sh.EmployeeID, &jobTitle, &notes, &clockIn, &clockOut, &state,
		&workAccumMs, &lastChange, &breakStart, &breakEnd,
		&sh.CapMinutes, &flag, &overCapAt,
	)
	if err != nil {
		return timeclock.Shift{}, err
	}

	sh.JobTitle = jobTitle.String
	sh.Notes = notes.String
	sh.ClockIn = parseTime(clockIn)
	sh.ClockOut = parseNullTime(clockOut)
	sh.State = timeclock.State(state)
	sh.WorkAccum = time.Duration(workAccumMs) * time.Millisecond
	sh.LastStateChangeAt = parseTime(lastChange)
	sh.BreakStart = parseNullTime(breakStart)
	sh.BreakEnd = parseNullTime(breakEnd)
	sh.Flag = timeclock.Flag(flag)
	sh.OverCapAt = parseNullTime(overCapAt)
	return sh, nil
}

// Reset clears all data. Used by tests and local demos.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"shifts", "employees", "organization_settings"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to reset %s: %w", table, err)
		}
	}
	return nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
