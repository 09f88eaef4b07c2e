package forecast

import (
	"fmt"
	"time"
)

// ExponentialSmoothing smooths the inter-event gap with a single level and
// projects the last smoothed gap forward.
type ExponentialSmoothing struct{}

func (ExponentialSmoothing) Name() string { return AlgorithmExponentialSmoothing }

// SmoothingFit is the in-sample result of exponential smoothing.
type SmoothingFit struct {
	// Smoothed[i] is the smoothed instant for ts[i].
	Smoothed []time.Time
	// Gaps[i] is the smoothed gap (seconds) leading to Smoothed[i]; Gaps[0] is the seed.
	Gaps []float64
}

// LastGap is the gap used for projection.
func (f SmoothingFit) LastGap() float64 {
	return f.Gaps[len(f.Gaps)-1]
}

// Fit runs g_i = alpha*Δ_i + (1-alpha)*g_{i-1} over the history.
func (ExponentialSmoothing) Fit(ts Timestamps, params Params) (SmoothingFit, error) {
	if err := ts.RequireSingleOffset(); err != nil {
		return SmoothingFit{}, err
	}
	if len(ts) < 2 {
		return SmoothingFit{}, fmt.Errorf("%w: exponential smoothing needs at least 2 timestamps, got %d", ErrDegenerateRate, len(ts))
	}
	deltas := ts.Gaps()

	seed := deltas[0]
	if params.InitialGap != nil {
		seed = *params.InitialGap
	}

	alpha := params.Alpha
	fit := SmoothingFit{
		Smoothed: make([]time.Time, len(ts)),
		Gaps:     make([]float64, len(ts)),
	}
	fit.Smoothed[0] = ts[0]
	fit.Gaps[0] = seed
	for i := 1; i < len(ts); i++ {
		g := alpha*deltas[i-1] + (1-alpha)*fit.Gaps[i-1]
		fit.Gaps[i] = g
		fit.Smoothed[i] = fit.Smoothed[i-1].Add(seconds(g))
	}
	return fit, nil
}

// Forecast projects the last smoothed gap from the last known timestamp up to
// the horizon.
func (e ExponentialSmoothing) Forecast(ts Timestamps, params Params) (Result, error) {
	fit, err := e.Fit(ts, params)
	if err != nil {
		return Result{}, err
	}
	step := fit.LastGap()
	if step <= 0 {
		return Result{}, fmt.Errorf("%w: smoothed gap is %vs", ErrDegenerateRate, step)
	}
	predicted := project(ts.Last(), params.Horizon, params.maxPredictions(), func(int) float64 { return step })
	return Result{NextTransaction: predicted}, nil
}

// project walks forward from start, adding step(k) seconds on the k-th step,
// and returns every instant up to start+horizon (at most limit of them).
func project(start time.Time, horizonHours float64, limit int, step func(k int) float64) []string {
	end := start.Add(hours(horizonHours))
	out := make([]string, 0)
	cursor := start
	for k := 0; len(out) < limit; k++ {
		cursor = cursor.Add(seconds(step(k)))
		// An instant is emitted only if it lands inside the horizon, never one past it.
		if cursor.After(end) {
			break
		}
		out = append(out, FormatTimestamp(cursor))
	}
	return out
}

var _ TransactionStrategy = ExponentialSmoothing{}
