package forecast

import (
	"fmt"
	"time"
)

// HoltWinters applies additive triple exponential smoothing to the
// inter-event gaps: a level, a trend and one seasonal offset per position in
// the season.
type HoltWinters struct{}

func (HoltWinters) Name() string { return AlgorithmHoltWinters }

// HoltWintersState is the smoothing state after the last observation.
type HoltWintersState struct {
	Level    float64
	Trend    float64
	Seasonal []float64
	// Smoothed[i] is the smoothed instant for ts[i].
	Smoothed []time.Time
	// N is the number of observations consumed.
	N int
}

// SeasonIndex maps step i onto the seasonal array.
func (s HoltWintersState) SeasonIndex(i int) int {
	m := len(s.Seasonal)
	return ((i % m) + m) % m
}

// LastSeasonIndex is the seasonal position updated by the last observation.
func (s HoltWintersState) LastSeasonIndex() int {
	return s.SeasonIndex(s.N - 1)
}

// Step is the projected gap in seconds: level plus trend plus the most recent
// seasonal offset. Projection does not advance the season.
func (s HoltWintersState) Step() float64 {
	return s.Level + s.Trend + s.Seasonal[s.LastSeasonIndex()]
}

// Fit initializes level, trend and seasonal offsets from the start of the
// history and runs the recurrence over every gap.
func (HoltWinters) Fit(ts Timestamps, params Params) (HoltWintersState, error) {
	if err := ts.RequireSingleOffset(); err != nil {
		return HoltWintersState{}, err
	}
	m := params.Seasonality
	if m < 2 {
		return HoltWintersState{}, fmt.Errorf("%w: seasonality must be at least 2, got %d", ErrInvalidParameter, m)
	}
	n := len(ts)
	if n <= m {
		return HoltWintersState{}, fmt.Errorf("%w: need more than %d timestamps, got %d", ErrInsufficientSeasonalData, m, n)
	}
	delta := func(i int) float64 { return ts[i].Sub(ts[i-1]).Seconds() }

	// Level: mean gap over the first season.
	level := ts[m-1].Sub(ts[0]).Seconds() / float64(m-1)

	// Trend: overall mean gap with less than two seasons of data, otherwise the
	// mean per-step gap between matching positions of consecutive seasons,
	// relative to the level.
	var trend float64
	if n < 2*m {
		trend = ts[n-1].Sub(ts[0]).Seconds() / float64(n-1)
	} else {
		var sum float64
		for i := 0; i < m; i++ {
			sum += ts[i+m].Sub(ts[i]).Seconds() / float64(m)
		}
		trend = sum/float64(m) - level
	}

	seasonal := make([]float64, m)
	for j := 1; j < m; j++ {
		seasonal[j] = delta(j) - level
	}

	alpha, beta, gamma := params.Alpha, params.Beta, params.Gamma
	smoothed := make([]time.Time, n)
	smoothed[0] = ts[0]
	for i := 1; i < n; i++ {
		d := delta(i)
		prevSeason := seasonal[(i-1)%m]
		l := alpha*(d-prevSeason) + (1-alpha)*(level+trend)
		b := beta*(l-level) + (1-beta)*trend
		seasonal[i%m] = gamma*(d-l) + (1-gamma)*prevSeason
		level, trend = l, b
		smoothed[i] = smoothed[i-1].Add(seconds(level + trend + seasonal[i%m]))
	}

	return HoltWintersState{
		Level:    level,
		Trend:    trend,
		Seasonal: seasonal,
		Smoothed: smoothed,
		N:        n,
	}, nil
}

// Forecast projects from the last known timestamp, feeding each synthesized
// instant back as the base of the next one. Level, trend and the seasonal
// offset are frozen at their last fitted values.
func (h HoltWinters) Forecast(ts Timestamps, params Params) (Result, error) {
	state, err := h.Fit(ts, params)
	if err != nil {
		return Result{}, err
	}
	step := state.Step()
	if step <= 0 {
		return Result{}, fmt.Errorf("%w: projected gap is %vs", ErrDegenerateRate, step)
	}
	predicted := project(ts.Last(), params.Horizon, params.maxPredictions(), func(int) float64 { return step })
	return Result{NextTransaction: predicted}, nil
}

var _ TransactionStrategy = HoltWinters{}
