// Package cli implements payctl, an offline front end to the payroll engine.
// It reads settings and time entries from JSON files, so pay periods and
// earnings can be checked without a running server or database.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "payctl",
	Short: "Resolve pay periods and compute earnings from JSON files",
}

func init() {
	rootCmd.AddCommand(periodCmd)
	rootCmd.AddCommand(earningsCmd)
}

func Execute() error {
	return rootCmd.Execute()
}
