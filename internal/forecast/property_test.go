package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func timestampsFromGaps(gaps []int) Timestamps {
	ts := make(Timestamps, 0, len(gaps)+1)
	cur := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ts = append(ts, cur)
	for _, g := range gaps {
		cur = cur.Add(time.Duration(g) * time.Second)
		ts = append(ts, cur)
	}
	return ts
}

func TestForecastProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	gaps := gen.SliceOf(gen.IntRange(1, 86400)).SuchThat(func(v []int) bool { return len(v) > 0 })

	properties.Property("arrival rate is gap count over span in hours", prop.ForAll(
		func(g []int) bool {
			ts := timestampsFromGaps(g)
			rate, err := ArrivalRate(ts)
			if err != nil {
				return false
			}
			span := ts.Last().Sub(ts[0]).Hours()
			return math.Abs(rate-float64(len(ts)-1)/span) < 1e-9*rate
		},
		gaps,
	))

	properties.Property("alpha=1 reproduces the observations", prop.ForAll(
		func(g []int) bool {
			ts := timestampsFromGaps(g)
			params := DefaultParams()
			params.Alpha = 1
			fit, err := ExponentialSmoothing{}.Fit(ts, params)
			if err != nil {
				return false
			}
			for i := range ts {
				if !ts[i].Equal(fit.Smoothed[i]) {
					return false
				}
			}
			return true
		},
		gaps,
	))

	properties.Property("seasonal index stays within the season", prop.ForAll(
		func(m, i int) bool {
			idx := HoltWintersState{Seasonal: make([]float64, m)}.SeasonIndex(i)
			return idx >= 0 && idx < m
		},
		gen.IntRange(2, 52),
		gen.IntRange(-1000, 100000),
	))

	properties.Property("projections stay within the horizon", prop.ForAll(
		func(g []int, horizon float64) bool {
			ts := timestampsFromGaps(g)
			params := DefaultParams()
			params.Horizon = horizon
			res, err := ExponentialSmoothing{}.Forecast(ts, params)
			if err != nil {
				return false
			}
			end := ts.Last().Add(hours(horizon))
			for _, s := range res.NextTransaction {
				at, err := ParseTimestamp(s)
				if err != nil || at.After(end) || !at.After(ts.Last()) {
					return false
				}
			}
			return true
		},
		gaps,
		gen.Float64Range(0, 48),
	))

	properties.TestingRun(t)
}
