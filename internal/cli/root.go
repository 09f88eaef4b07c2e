// Package cli implements forecastctl, the operator command line for the
// forecasting service.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(os.Stdout, os.Stderr)
}

func NewRootCommandWithIO(out, errOut io.Writer) *cobra.Command {
	return newRootCommand(out, errOut)
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "forecastctl",
		Short:         "Operate the forecasting service",
		Long:          "forecastctl prepares the forecast store, exports the API description and runs one-off forecasts against local history files.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to the config file (default: config.yaml search path)")

	cmd.AddCommand(
		newMigrateCmd(a),
		newOpenAPICmd(a),
		newPredictCmd(a),
	)
	return cmd
}
