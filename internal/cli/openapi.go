package cli

import (
	"fmt"
	"os"

	"github.com/Kasha228/forecasting/internal/api/schema"
	"github.com/spf13/cobra"
)

func newOpenAPICmd(a *app) *cobra.Command {
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Write the OpenAPI document of the HTTP API",
		Example: `  forecastctl openapi --out swagger.json
  forecastctl openapi --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			switch format {
			case "json":
				data, err = schema.JSON()
			case "yaml", "yml":
				data, err = schema.YAML()
			default:
				return fmt.Errorf("unsupported format %q (want json or yaml)", format)
			}
			if err != nil {
				return err
			}
			if out == "" {
				_, err = a.stdout.Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "OpenAPI document saved to %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}
