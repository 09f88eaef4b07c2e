package forecast

import "fmt"

// PoissonProcess models arrivals as a homogeneous Poisson process whose hourly
// rate is estimated from the historical gaps.
type PoissonProcess struct {
	sampler Sampler
}

// NewPoissonProcess creates the strategy with a default sampler used when
// Params.Sampler is nil.
func NewPoissonProcess(sampler Sampler) *PoissonProcess {
	return &PoissonProcess{sampler: sampler}
}

func (p *PoissonProcess) Name() string { return AlgorithmPoissonProcess }

// ArrivalRate estimates λ in events per hour: count(gaps) / (sum(gaps)/3600).
func ArrivalRate(ts Timestamps) (float64, error) {
	if len(ts) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 timestamps, got %d", ErrDegenerateRate, len(ts))
	}
	gaps := ts.Gaps()
	var total float64
	for _, g := range gaps {
		total += g
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: all %d timestamps are identical", ErrDegenerateRate, len(ts))
	}
	return float64(len(gaps)) / (total / 3600), nil
}

// Forecast draws N ~ Poisson(λ·horizon) arrivals, accumulates exponential
// inter-arrival times from the anchor and stops at the first one past the
// horizon.
func (p *PoissonProcess) Forecast(ts Timestamps, params Params) (Result, error) {
	rate, err := ArrivalRate(ts)
	if err != nil {
		return Result{}, err
	}
	sampler := params.Sampler
	if sampler == nil {
		sampler = p.sampler
	}
	if sampler == nil {
		return Result{}, fmt.Errorf("%w: no sampler configured", ErrInvalidParameter)
	}

	anchor := params.Anchor
	if anchor.IsZero() {
		anchor = ts.Last()
	}
	limit := hours(params.Horizon)
	maxOut := params.maxPredictions()

	n := sampler.Poisson(rate * params.Horizon)
	predicted := make([]string, 0, min(n, maxOut))
	current := anchor
	for i := 0; i < n && len(predicted) < maxOut; i++ {
		current = current.Add(hours(sampler.Exponential(rate)))
		// Arrivals only move forward.
		if current.Sub(anchor) > limit {
			break
		}
		predicted = append(predicted, FormatTimestamp(current))
	}
	return Result{NextTransaction: predicted}, nil
}

var _ TransactionStrategy = (*PoissonProcess)(nil)
