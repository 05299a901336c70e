package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/warp/payroll-engine/calendar"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/payroll"
)

type earningsOutput struct {
	Days       []dayOutput     `json:"days"`
	TotalHours decimal.Decimal `json:"total_hours"`
	Earnings   *moneyOutput    `json:"earnings"`
}

type moneyOutput struct {
	RegularHours  decimal.Decimal `json:"regular_hours"`
	OvertimeHours decimal.Decimal `json:"overtime_hours"`
	RegularPay    decimal.Decimal `json:"regular_pay"`
	OvertimePay   decimal.Decimal `json:"overtime_pay"`
	TotalPay      decimal.Decimal `json:"total_pay"`
}

type dayOutput struct {
	Date  calendar.Date   `json:"date"`
	Hours decimal.Decimal `json:"hours"`
}

var earningsCmd = LeafCommand{
	Use:   "earnings",
	Short: "Compute regular and overtime earnings for a set of time entries",
	StrFlags: []StringFlag{
		{Name: "settings", Usage: "settings JSON file (default: weekly, overtime off)"},
		{Name: "entries", Usage: "time entries JSON file"},
		{Name: "rate", Usage: "hourly rate (omit when the employee has none)"},
		{Name: "at", Usage: "evaluation time for open entries (default: now)"},
		{Name: "tz", Usage: "IANA timezone", Default: config.DefaultTimezone},
	},
	BoolFlags: []BoolFlag{
		{Name: "json", Usage: "print JSON"},
	},
	Required: []string{"entries"},
	RunE: func(cmd *cobra.Command, args []string) error {
		settingsFlag, _ := cmd.Flags().GetString("settings")
		entriesFlag, _ := cmd.Flags().GetString("entries")
		rateFlag, _ := cmd.Flags().GetString("rate")
		atFlag, _ := cmd.Flags().GetString("at")
		tzFlag, _ := cmd.Flags().GetString("tz")
		asJSON, _ := cmd.Flags().GetBool("json")

		return runEarnings(cmd, settingsFlag, entriesFlag, rateFlag, atFlag, tzFlag, asJSON, time.Now)
	},
}.Build()

func runEarnings(cmd *cobra.Command, settingsPath, entriesPath, rateFlag, at, tz string, asJSON bool, nowFn func() time.Time) error {
	loc, err := calendar.LoadLocation(tz)
	if err != nil {
		return err
	}
	settings, err := loadSettings(settingsPath)
	if err != nil {
		return err
	}
	entries, err := loadEntries(entriesPath)
	if err != nil {
		return err
	}
	rate, err := parseRate(rateFlag)
	if err != nil {
		return err
	}
	now, err := parseAt(at, loc, nowFn())
	if err != nil {
		return err
	}

	summary, buckets, err := payroll.EarningsForEntries(entries, rate, settings, payroll.Evaluation{Now: now, Location: loc})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		result := earningsOutput{
			Days:       make([]dayOutput, 0, len(buckets)),
			TotalHours: payroll.TotalHours(buckets),
		}
		for _, b := range buckets {
			result.Days = append(result.Days, dayOutput{Date: b.Date, Hours: b.Hours})
		}
		if summary != nil {
			r := summary.Rounded()
			result.Earnings = &moneyOutput{
				RegularHours:  r.RegularHours,
				OvertimeHours: r.OvertimeHours,
				RegularPay:    r.RegularPay,
				OvertimePay:   r.OvertimePay,
				TotalPay:      r.TotalPay,
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printEarnings(out, buckets, summary)
	return nil
}

func printEarnings(out io.Writer, buckets []payroll.DayBucket, summary *payroll.EarningsSummary) {
	for _, b := range buckets {
		_, _ = fmt.Fprintf(out, "%s  %s\n", b.Date, payroll.FormatHours(b.Hours))
	}
	_, _ = fmt.Fprintf(out, "Total hours: %s\n", payroll.FormatHours(payroll.TotalHours(buckets)))

	if summary == nil {
		_, _ = fmt.Fprintln(out, "Earnings:    n/a (no hourly rate)")
		return
	}
	_, _ = fmt.Fprintf(out, "Regular:     %s  %s\n", payroll.FormatHours(summary.RegularHours), payroll.FormatCurrency(summary.RegularPay))
	_, _ = fmt.Fprintf(out, "Overtime:    %s  %s\n", payroll.FormatHours(summary.OvertimeHours), payroll.FormatCurrency(summary.OvertimePay))
	_, _ = fmt.Fprintf(out, "Total pay:   %s\n", payroll.FormatCurrency(summary.TotalPay))
}
