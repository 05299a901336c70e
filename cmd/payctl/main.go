package main

import (
	"fmt"
	"os"

	"github.com/warp/payroll-engine/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "payctl: %v\n", err)
		os.Exit(1)
	}
}
