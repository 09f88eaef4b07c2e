package cli

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/history"
	"github.com/spf13/cobra"
)

type predictOptions struct {
	algorithm      string
	eventsPath     string
	demandPath     string
	eventType      string
	horizon        float64
	alpha          float64
	beta           float64
	gamma          float64
	seasonality    int
	initialGap     float64
	maxPredictions int
	seed           uint64
}

func newPredictCmd(a *app) *cobra.Command {
	o := predictOptions{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run one forecast against local history files",
		Long: `Run a single forecast without the HTTP service or the forecast store.

Transaction algorithms read an array of event records (objects with stored_at
and/or retrieved_at) from --events. The demand algorithm returns the contents
of --demand.`,
		Example: `  forecastctl predict --algorithm holt_winters --events events.json --horizon 24 --seasonality 3
  forecastctl predict --algorithm poisson_process --events events.json --event-type storage --seed 42`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := history.FileSource{TransactionsPath: o.eventsPath, DemandPath: o.demandPath}
			registry := forecast.NewRegistry(src, forecast.NewSampler(o.seed))

			var (
				result any
				err    error
			)
			if slices.Contains(registry.Algorithms(forecast.FamilyDemand), o.algorithm) {
				result, err = registry.PredictDemand(cmd.Context(), o.algorithm, nil)
			} else {
				if o.eventsPath == "" {
					return fmt.Errorf("--events is required for %q", o.algorithm)
				}
				params := forecast.DefaultParams()
				params.Horizon = o.horizon
				params.Alpha, params.Beta, params.Gamma = o.alpha, o.beta, o.gamma
				params.Seasonality = o.seasonality
				params.MaxPredictions = o.maxPredictions
				if cmd.Flags().Changed("initial-gap") {
					gap := o.initialGap
					params.InitialGap = &gap
				}
				result, err = registry.PredictTransaction(cmd.Context(), o.algorithm, nil, o.eventType, params)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(a.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.algorithm, "algorithm", forecast.AlgorithmPoissonProcess, "algorithm identifier")
	f.StringVar(&o.eventsPath, "events", "", "JSON file with an array of event records")
	f.StringVar(&o.demandPath, "demand", "", "JSON file with demand history")
	f.StringVar(&o.eventType, "event-type", string(forecast.EventBoth), "storage, retrieval or both")
	f.Float64Var(&o.horizon, "horizon", forecast.DefaultHorizonHours, "forecast window in hours")
	f.Float64Var(&o.alpha, "alpha", forecast.DefaultAlpha, "level smoothing factor")
	f.Float64Var(&o.beta, "beta", forecast.DefaultBeta, "trend smoothing factor (holt_winters)")
	f.Float64Var(&o.gamma, "gamma", forecast.DefaultGamma, "seasonal smoothing factor (holt_winters)")
	f.IntVar(&o.seasonality, "seasonality", forecast.DefaultSeasonality, "season length in observations (holt_winters)")
	f.Float64Var(&o.initialGap, "initial-gap", 0, "seed gap in seconds (exponential_smoothing; default first observed gap)")
	f.IntVar(&o.maxPredictions, "max-predictions", forecast.DefaultMaxPredictions, "cap on projected instants")
	f.Uint64Var(&o.seed, "seed", 0, "random seed for poisson_process (0 = random)")
	return cmd
}
