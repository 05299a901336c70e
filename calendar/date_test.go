package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/calendar"
)

func chicago(t *testing.T) *time.Location {
	loc, err := calendar.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func TestDateOf_UsesLocalCalendarDay(t *testing.T) {
	// 2025-03-11 03:30 UTC is still 2025-03-10 in Chicago (CDT, UTC-5).
	instant := time.Date(2025, time.March, 11, 3, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-03-10", calendar.DateOf(instant, chicago(t)).String())
	assert.Equal(t, "2025-03-11", calendar.DateOf(instant, time.UTC).String())
	assert.Equal(t, "2025-03-11", calendar.DateOf(instant, nil).String())
}

func TestEndOfMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  string
	}{
		{2024, time.February, "2024-02-29"},
		{2025, time.February, "2025-02-28"},
		{2025, time.April, "2025-04-30"},
		{2025, time.December, "2025-12-31"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, calendar.EndOfMonth(tt.year, tt.month).String())
	}
}

func TestDayBounds(t *testing.T) {
	loc := chicago(t)
	d := calendar.NewDate(2025, time.January, 17)

	start := d.StartOfDay(loc)
	end := d.EndOfDay(loc)

	assert.Equal(t, "2025-01-17T00:00:00-06:00", start.Format(time.RFC3339))
	assert.Equal(t, "2025-01-17T23:59:59.999-06:00", end.Format("2006-01-02T15:04:05.000Z07:00"))
	assert.Equal(t, d, calendar.DateOf(end, loc))
}

func TestDaysBetween_AcrossDST(t *testing.T) {
	// Civil dates ignore the 23h DST day.
	from := calendar.NewDate(2025, time.March, 8)
	to := calendar.NewDate(2025, time.March, 10)
	assert.Equal(t, 2, calendar.DaysBetween(from, to))
	assert.Equal(t, -2, calendar.DaysBetween(to, from))
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, 2, calendar.FloorDiv(29, 14))
	assert.Equal(t, 0, calendar.FloorDiv(0, 14))
	assert.Equal(t, -1, calendar.FloorDiv(-1, 14))
	assert.Equal(t, -1, calendar.FloorDiv(-14, 14))
	assert.Equal(t, -2, calendar.FloorDiv(-15, 14))
}

func TestDate_JSON(t *testing.T) {
	var got struct {
		D calendar.Date `json:"d"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2024-01-05"}`), &got))
	assert.Equal(t, calendar.NewDate(2024, time.January, 5), got.D)

	out, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2024-01-05"}`, string(out))

	_, err = calendar.ParseDate("01/05/2024")
	assert.Error(t, err)
}
