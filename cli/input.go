package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// entryFile is one element of the --entries JSON array.
type entryFile struct {
	ClockIn       time.Time        `json:"clock_in"`
	ClockOut      *time.Time       `json:"clock_out"`
	DurationHours *decimal.Decimal `json:"duration_hours"`
	BreakStart    *time.Time       `json:"break_start"`
	BreakEnd      *time.Time       `json:"break_end"`
}

// loadSettings reads a settings document. An empty path means defaults.
func loadSettings(path string) (payroll.Settings, error) {
	if path == "" {
		return payroll.DefaultSettings(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return payroll.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return factory.ParseSettings(string(raw))
}

func loadEntries(path string) ([]payroll.TimeEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}
	var files []entryFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, fmt.Errorf("invalid entries JSON: %w", err)
	}

	entries := make([]payroll.TimeEntry, 0, len(files))
	for i, f := range files {
		if f.ClockIn.IsZero() {
			return nil, fmt.Errorf("entry %d: clock_in is required", i)
		}
		entries = append(entries, payroll.TimeEntry{
			ClockIn:       f.ClockIn,
			ClockOut:      f.ClockOut,
			DurationHours: f.DurationHours,
			BreakStart:    f.BreakStart,
			BreakEnd:      f.BreakEnd,
		})
	}
	return entries, nil
}

func parseRate(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid --rate %q: %w", s, err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("--rate must not be negative")
	}
	return &rate, nil
}

// parseAt accepts RFC3339 or a bare local date (start of that day in loc).
func parseAt(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := calendar.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q (use RFC3339 or YYYY-MM-DD)", s)
	}
	return d.StartOfDay(loc), nil
}
