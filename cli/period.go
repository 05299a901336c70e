package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

type periodOutput struct {
	Start    calendar.Date `json:"start"`
	End      calendar.Date `json:"end"`
	Label    string        `json:"label"`
	Days     int           `json:"days"`
	Timezone string        `json:"timezone"`
}

var periodCmd = LeafCommand{
	Use:   "period",
	Short: "Resolve the pay period containing a moment",
	StrFlags: []StringFlag{
		{Name: "settings", Usage: "settings JSON file (default: weekly, Friday)"},
		{Name: "at", Usage: "RFC3339 time or YYYY-MM-DD (default: now)"},
		{Name: "tz", Usage: "IANA timezone", Default: config.DefaultTimezone},
	},
	BoolFlags: []BoolFlag{
		{Name: "previous", Usage: "resolve the period before the current one"},
		{Name: "json", Usage: "print JSON"},
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		settingsFlag, _ := cmd.Flags().GetString("settings")
		atFlag, _ := cmd.Flags().GetString("at")
		tzFlag, _ := cmd.Flags().GetString("tz")
		previous, _ := cmd.Flags().GetBool("previous")
		asJSON, _ := cmd.Flags().GetBool("json")

		return runPeriod(cmd, settingsFlag, atFlag, tzFlag, previous, asJSON, time.Now)
	},
}.Build()

func runPeriod(cmd *cobra.Command, settingsPath, at, tz string, previous, asJSON bool, nowFn func() time.Time) error {
	loc, err := calendar.LoadLocation(tz)
	if err != nil {
		return err
	}
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	ref, err := parseAt(at, loc, nowFn())
	if err != nil {
		return err
	}

	which := payroll.Current
	if previous {
		which = payroll.Previous
	}
	period, err := payroll.ResolvePeriod(settings, ref, loc, which)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(periodOutput{
			Start:    period.Start,
			End:      period.End,
			Label:    period.Label(),
			Days:     period.Days(),
			Timezone: loc.String(),
		})
	}
	_, _ = fmt.Fprintf(out, "%s (%s to %s, %d days)\n", period.Label(), period.Start, period.End, period.Days())
	return nil
}
