package timeclock_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/timeclock"
)

var clockIn = time.Date(2026, time.January, 3, 8, 0, 0, 0, time.UTC)

func after(d time.Duration) time.Time { return clockIn.Add(d) }

func TestNewShift_Defaults(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, timeclock.StateWorking, s.State)
	assert.Equal(t, timeclock.FlagNone, s.Flag)
	assert.Equal(t, 960, s.CapMinutes)
	assert.Equal(t, int64(16*3600), s.CapSeconds())
	assert.Equal(t, clockIn, s.LastStateChangeAt)
}

func TestSettle_OnlyAccumulatesWhileWorking(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	s = s.Settle(after(2 * time.Hour))
	assert.Equal(t, 2*time.Hour, s.WorkAccum)

	s, err := s.StartBreak(after(2 * time.Hour))
	require.NoError(t, err)
	s = s.Settle(after(3 * time.Hour))
	assert.Equal(t, 2*time.Hour, s.WorkAccum, "break time is not work time")
}

func TestSettle_KeepsSubSecondWork(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	// Two 1.5s work segments around a break add up to 3s, not 2s.
	s, err := s.StartBreak(after(1500 * time.Millisecond))
	require.NoError(t, err)
	s, err = s.EndBreak(after(2 * time.Second))
	require.NoError(t, err)
	s, err = s.ClockOutAt(after(3500 * time.Millisecond))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, s.WorkAccum)
	assert.Equal(t, int64(3), s.NetWorkSeconds(after(time.Hour)))
}

func TestNetWorkSeconds_ExcludesBreaks(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	s, err := s.StartBreak(after(4 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(4*3600), s.NetWorkSeconds(after(5*time.Hour)))

	s, err = s.EndBreak(after(4*time.Hour + 30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(5*3600+30*60), s.NetWorkSeconds(after(6*time.Hour)))

	s, err = s.ClockOutAt(after(8*time.Hour + 30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, timeclock.StateClockedOut, s.State)
	assert.Equal(t, "8", s.DurationHours().String())
	assert.Equal(t, after(8*time.Hour+30*time.Minute), *s.ClockOut)
}

func TestSoftCap_FlagsAtCrossingInstant(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	s = s.ApplySoftCapFlag(after(15 * time.Hour))
	assert.Equal(t, timeclock.FlagNone, s.Flag)

	s = s.ApplySoftCapFlag(after(17 * time.Hour))
	assert.Equal(t, timeclock.FlagOverCap, s.Flag)
	require.NotNil(t, s.OverCapAt)
	assert.Equal(t, after(16*time.Hour), *s.OverCapAt)
	assert.Equal(t, timeclock.StateWorking, s.State, "soft cap never clocks out")

	// Flagged again later: crossing instant is kept.
	s = s.ApplySoftCapFlag(after(20 * time.Hour))
	assert.Equal(t, after(16*time.Hour), *s.OverCapAt)
}

func TestSoftCap_EffectiveHoursCapped(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)
	s, err := s.ClockOutAt(after(20 * time.Hour))
	require.NoError(t, err)

	assert.Equal(t, timeclock.FlagOverCap, s.Flag)
	assert.Equal(t, int64(20*3600), s.NetWorkSeconds(after(21*time.Hour)))
	assert.Equal(t, int64(16*3600), s.EffectiveNetWorkSeconds(after(21*time.Hour)))
	assert.Equal(t, "16", s.EffectiveNetWorkHours(after(21*time.Hour)).String())
}

func TestSoftCap_OnBreakRecordsNow(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 60)
	s, err := s.StartBreak(after(90 * time.Minute))
	require.NoError(t, err)

	s = s.ApplySoftCapFlag(after(2 * time.Hour))

	assert.Equal(t, timeclock.FlagOverCap, s.Flag)
	assert.Equal(t, after(2*time.Hour), *s.OverCapAt)
}

func TestProjectedOverCapAt(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)
	s = s.Settle(after(10 * time.Hour))

	assert.Equal(t, after(16*time.Hour), *s.ProjectedOverCapAt())

	onBreak, err := s.StartBreak(after(10 * time.Hour))
	require.NoError(t, err)
	assert.Nil(t, onBreak.ProjectedOverCapAt())
}

func TestIsApproachingCap(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)
	reminder := timeclock.CapReminderOffsetMins * time.Minute

	assert.False(t, s.IsApproachingCap(after(15*time.Hour), reminder))
	assert.True(t, s.IsApproachingCap(after(15*time.Hour+30*time.Minute), reminder))
	assert.False(t, s.IsApproachingCap(after(16*time.Hour), reminder))
	assert.True(t, s.IsOverCap(after(16*time.Hour)))

	flagged := s.ApplySoftCapFlag(after(17 * time.Hour))
	assert.False(t, flagged.IsApproachingCap(after(15*time.Hour+45*time.Minute), reminder))
}

func TestTransitions_Invalid(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	_, err := s.EndBreak(after(time.Hour))
	assert.ErrorIs(t, err, timeclock.ErrInvalidTransition)

	onBreak, err := s.StartBreak(after(time.Hour))
	require.NoError(t, err)
	_, err = onBreak.StartBreak(after(2 * time.Hour))
	assert.ErrorIs(t, err, timeclock.ErrInvalidTransition)

	done, err := onBreak.ClockOutAt(after(2 * time.Hour))
	require.NoError(t, err)
	require.NotNil(t, done.BreakEnd)
	assert.Equal(t, after(2*time.Hour), *done.BreakEnd)

	_, err = done.ClockOutAt(after(3 * time.Hour))
	var trErr *timeclock.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, timeclock.StateClockedOut, trErr.From)
}

func TestTransitions_DoNotMutateReceiver(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)

	_, err := s.StartBreak(after(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, timeclock.StateWorking, s.State)
	assert.Nil(t, s.BreakStart)
}

func TestToTimeEntry_FeedsDayGrouping(t *testing.T) {
	s := timeclock.NewShift("emp-1", clockIn, 0)
	s, err := s.StartBreak(after(4 * time.Hour))
	require.NoError(t, err)
	s, err = s.EndBreak(after(5 * time.Hour))
	require.NoError(t, err)

	open := s.ToTimeEntry(after(9 * time.Hour))
	assert.Nil(t, open.ClockOut)
	assert.Equal(t, "8", payroll.EntryHours(open, after(9*time.Hour)).String())

	closed, err := s.ClockOutAt(after(9 * time.Hour))
	require.NoError(t, err)
	buckets := payroll.GroupByDay([]payroll.TimeEntry{closed.ToTimeEntry(after(30 * time.Hour))}, after(30*time.Hour), time.UTC)
	require.Len(t, buckets, 1)
	assert.Equal(t, "8", buckets[0].Hours.String())
}
