// Command forecastctl is the operator CLI for the forecasting service.
package main

import (
	"fmt"
	"os"

	"github.com/Kasha228/forecasting/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
