/*
Package timeclock tracks live shifts: clock in, breaks, clock out, and the
soft cap on net work time.

PURPOSE:
  A shift accumulates net work time only while WORKING. Breaks pause the
  accumulator. A shift that reaches its cap (16 hours by default) is flagged
  OVER_CAP but never clocked out automatically; payroll counts at most the
  cap for a flagged shift so a forgotten clock-out cannot run up cost.

STATE MACHINE:
  WORKING   --StartBreak--> ON_BREAK
  ON_BREAK  --EndBreak----> WORKING
  WORKING   --ClockOut----> CLOCKED_OUT
  ON_BREAK  --ClockOut----> CLOCKED_OUT

  Every other transition returns ErrInvalidTransition.

IMMUTABILITY:
  All operations take a Shift by value and return the updated copy.

SEE ALSO:
  - payroll/grouping.go: consumes Shift.ToTimeEntry
  - api/scheduler.go: periodic soft-cap sweep
*/
package timeclock

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	DefaultCapMinutes     = 960 // 16 hours
	CapReminderOffsetMins = 30
	secondsPerMinute      = 60
)

// State is where a shift is in its lifecycle.
type State string

const (
	StateWorking    State = "WORKING"
	StateOnBreak    State = "ON_BREAK"
	StateClockedOut State = "CLOCKED_OUT"
)

// Flag marks shifts that need review.
type Flag string

const (
	FlagNone           Flag = "NONE"
	FlagOverCap        Flag = "OVER_CAP"
	FlagEditPending    Flag = "EDIT_REQUEST_PENDING"
	FlagResolved       Flag = "RESOLVED"
	FlagForgotClockOut Flag = "FORGOT_CLOCK_OUT"
)

var ErrInvalidTransition = errors.New("invalid shift transition")

// TransitionError names the rejected transition.
type TransitionError struct {
	From   State
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// SHIFT
// =============================================================================

// Shift is one clock-in to clock-out span with soft-cap bookkeeping.
type Shift struct {
	ID         string
	EmployeeID string
	JobTitle   string
	Notes      string

	ClockIn  time.Time
	ClockOut *time.Time

	State             State
	WorkAccum         time.Duration
	LastStateChangeAt time.Time

	// Most recent break only. Earlier breaks are already settled into
	// WorkAccum.
	BreakStart *time.Time
	BreakEnd   *time.Time

	CapMinutes int
	Flag       Flag
	OverCapAt  *time.Time
}

// NewShift starts a WORKING shift at clockIn. capMinutes <= 0 uses the default.
func NewShift(employeeID string, clockIn time.Time, capMinutes int) Shift {
	if capMinutes <= 0 {
		capMinutes = DefaultCapMinutes
	}
	return Shift{
		ID:                uuid.NewString(),
		EmployeeID:        employeeID,
		ClockIn:           clockIn,
		State:             StateWorking,
		LastStateChangeAt: clockIn,
		CapMinutes:        capMinutes,
		Flag:              FlagNone,
	}
}

// Cap is the soft cap on net work.
func (s Shift) Cap() time.Duration { return time.Duration(s.CapMinutes) * time.Minute }

// CapSeconds is the cap expressed in seconds.
func (s Shift) CapSeconds() int64 { return int64(s.CapMinutes) * secondsPerMinute }

// Settle folds elapsed WORKING time up to now into the accumulator.
func (s Shift) Settle(now time.Time) Shift {
	if s.State == StateWorking {
		s.WorkAccum += elapsed(s.LastStateChangeAt, now)
	}
	s.LastStateChangeAt = now
	return s
}

// NetWork is accumulated work plus the running segment if WORKING.
func (s Shift) NetWork(now time.Time) time.Duration {
	if s.State == StateWorking {
		return s.WorkAccum + elapsed(s.LastStateChangeAt, now)
	}
	return s.WorkAccum
}

// NetWorkSeconds is NetWork in whole seconds.
func (s Shift) NetWorkSeconds(now time.Time) int64 {
	return int64(s.NetWork(now) / time.Second)
}

// EffectiveNetWork caps flagged shifts at the cap.
func (s Shift) EffectiveNetWork(now time.Time) time.Duration {
	net := s.NetWork(now)
	if s.Flag == FlagOverCap && net > s.Cap() {
		return s.Cap()
	}
	return net
}

// EffectiveNetWorkSeconds is EffectiveNetWork in whole seconds.
func (s Shift) EffectiveNetWorkSeconds(now time.Time) int64 {
	return int64(s.EffectiveNetWork(now) / time.Second)
}

// EffectiveNetWorkHours is EffectiveNetWork in decimal hours.
func (s Shift) EffectiveNetWorkHours(now time.Time) decimal.Decimal {
	return payroll.HoursOf(s.EffectiveNetWork(now))
}

// ProjectedOverCapAt is when the running segment reaches the cap. For a
// shift that is not WORKING it returns the recorded OverCapAt.
func (s Shift) ProjectedOverCapAt() *time.Time {
	if s.State != StateWorking {
		return s.OverCapAt
	}
	remaining := s.Cap() - s.WorkAccum
	if remaining <= 0 {
		at := s.LastStateChangeAt
		return &at
	}
	at := s.LastStateChangeAt.Add(remaining)
	return &at
}

// ApplySoftCapFlag flags the shift OVER_CAP once net work reaches the cap
// and records the crossing instant. It never clocks the shift out.
func (s Shift) ApplySoftCapFlag(now time.Time) Shift {
	net := s.NetWork(now)
	if net < s.Cap() || s.Flag == FlagOverCap {
		return s
	}
	s.Flag = FlagOverCap
	if s.OverCapAt == nil {
		// Not working: the crossing happened before the last state change
		// and is no longer recoverable, so record now.
		at := now
		if s.State == StateWorking {
			at = now.Add(-(net - s.Cap()))
		}
		s.OverCapAt = &at
	}
	return s
}

// IsApproachingCap is true within reminder of the cap but not yet over it.
func (s Shift) IsApproachingCap(now time.Time, reminder time.Duration) bool {
	if s.Flag == FlagOverCap {
		return false
	}
	net := s.NetWork(now)
	return net >= s.Cap()-reminder && net < s.Cap()
}

// IsOverCap reports whether net work has reached the cap.
func (s Shift) IsOverCap(now time.Time) bool {
	return s.NetWork(now) >= s.Cap()
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// StartBreak settles work and moves to ON_BREAK.
func (s Shift) StartBreak(now time.Time) (Shift, error) {
	if s.State != StateWorking {
		return s, &TransitionError{From: s.State, Action: "start break"}
	}
	s = s.Settle(now)
	s.State = StateOnBreak
	start := now
	s.BreakStart = &start
	s.BreakEnd = nil
	return s, nil
}

// EndBreak resumes WORKING.
func (s Shift) EndBreak(now time.Time) (Shift, error) {
	if s.State != StateOnBreak {
		return s, &TransitionError{From: s.State, Action: "end break"}
	}
	s.State = StateWorking
	s.LastStateChangeAt = now
	end := now
	s.BreakEnd = &end
	return s, nil
}

// ClockOutAt settles work, applies the soft cap and closes the shift.
// An open break is closed at now.
func (s Shift) ClockOutAt(now time.Time) (Shift, error) {
	switch s.State {
	case StateWorking:
		s = s.Settle(now)
	case StateOnBreak:
		end := now
		s.BreakEnd = &end
		s.LastStateChangeAt = now
	default:
		return s, &TransitionError{From: s.State, Action: "clock out"}
	}
	s = s.ApplySoftCapFlag(now)
	s.State = StateClockedOut
	out := now
	s.ClockOut = &out
	return s, nil
}

// DurationHours is the settled net work in hours.
func (s Shift) DurationHours() decimal.Decimal {
	return payroll.HoursOf(s.WorkAccum)
}

// ToTimeEntry converts the shift to engine input. Closed shifts carry their
// effective hours; open shifts carry a duration measured at now so breaks
// taken earlier in the shift are not counted twice.
func (s Shift) ToTimeEntry(now time.Time) payroll.TimeEntry {
	hours := s.EffectiveNetWorkHours(now)
	return payroll.TimeEntry{
		ClockIn:       s.ClockIn,
		ClockOut:      s.ClockOut,
		DurationHours: &hours,
		BreakStart:    s.BreakStart,
		BreakEnd:      s.BreakEnd,
	}
}

func elapsed(from, to time.Time) time.Duration {
	if d := to.Sub(from); d > 0 {
		return d
	}
	return 0
}
