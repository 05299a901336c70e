/*
scheduler.go - Periodic soft-cap sweep over open shifts

PURPOSE:
  A forgotten clock-out keeps a shift WORKING indefinitely. The sweeper
  periodically flags open shifts that reached their cap as OVER_CAP (the
  shift stays open) and logs a reminder for shifts within 30 minutes of it.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Only the flag columns are written, and only if the shift is unchanged
    since it was listed
  - Sweep can also be triggered on demand (POST /api/admin/cap-sweep)

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 minute)
  - Enabled: Whether the sweeper is active (default: true)

USAGE:
  sweeper := NewCapSweeper(store, logger)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - timeclock/shift.go: ApplySoftCapFlag, IsApproachingCap
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/timeclock"
	"go.uber.org/zap"
)

// CapSweeper flags open shifts that have run past their soft cap.
type CapSweeper struct {
	Store         *sqlite.Store
	Logger        *zap.Logger
	CheckInterval time.Duration
	Enabled       bool
	Now           func() time.Time

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewCapSweeper creates a new sweeper.
func NewCapSweeper(store *sqlite.Store, logger *zap.Logger) *CapSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapSweeper{
		Store:         store,
		Logger:        logger,
		CheckInterval: time.Minute,
		Enabled:       true,
		Now:           time.Now,
	}
}

// Start begins the sweeper.
func (cs *CapSweeper) Start() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.Logger.Info("cap sweeper disabled, not starting")
		return
	}
	if cs.ticker != nil {
		return
	}

	cs.ticker = time.NewTicker(cs.CheckInterval)
	cs.stop = make(chan struct{})
	cs.wg.Add(1)

	go cs.run(cs.ticker, cs.stop)

	cs.Logger.Info("cap sweeper started", zap.Duration("interval", cs.CheckInterval))
}

// Stop stops the sweeper and waits for an in-flight sweep.
func (cs *CapSweeper) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.ticker != nil {
		cs.ticker.Stop()
		close(cs.stop)
		cs.wg.Wait()
		cs.ticker = nil
		cs.Logger.Info("cap sweeper stopped")
	}
}

func (cs *CapSweeper) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer cs.wg.Done()

	// Run immediately on start
	cs.sweepAndLog()

	for {
		select {
		case <-ticker.C:
			cs.sweepAndLog()
		case <-stop:
			return
		}
	}
}

func (cs *CapSweeper) sweepAndLog() {
	if _, err := cs.Sweep(context.Background()); err != nil {
		cs.Logger.Error("cap sweep failed", zap.Error(err))
	}
}

// Sweep flags every open shift that reached its cap and returns how many
// were newly flagged.
func (cs *CapSweeper) Sweep(ctx context.Context) (int, error) {
	now := cs.Now()

	shifts, err := cs.Store.ListOpenShifts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list open shifts: %w", err)
	}

	flagged := 0
	reminder := timeclock.CapReminderOffsetMins * time.Minute
	for _, sh := range shifts {
		if sh.IsApproachingCap(now, reminder) {
			cs.Logger.Info("shift approaching soft cap",
				zap.String("employee_id", sh.EmployeeID),
				zap.String("shift_id", sh.ID),
				zap.Timep("projected_over_cap_at", sh.ProjectedOverCapAt()),
			)
			continue
		}

		next := sh.ApplySoftCapFlag(now)
		if next.Flag == sh.Flag {
			continue
		}
		ok, err := cs.Store.FlagOverCap(ctx, sh.ID, *next.OverCapAt, sh.LastStateChangeAt)
		if err != nil {
			return flagged, fmt.Errorf("failed to flag shift %s: %w", sh.ID, err)
		}
		if !ok {
			// Clocked out or changed state since it was listed.
			cs.Logger.Debug("shift changed during sweep, skipped", zap.String("shift_id", sh.ID))
			continue
		}
		flagged++
		cs.Logger.Warn("shift over soft cap",
			zap.String("employee_id", next.EmployeeID),
			zap.String("shift_id", next.ID),
			zap.Timep("over_cap_at", next.OverCapAt),
		)
	}

	cs.Logger.Debug("cap sweep complete", zap.Int("open", len(shifts)), zap.Int("flagged", flagged))
	return flagged, nil
}
