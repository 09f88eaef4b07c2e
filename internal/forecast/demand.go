package forecast

import "context"

// MovingAverage is the demand strategy. Averaging is not implemented yet: it
// returns the provider's demand history unchanged.
type MovingAverage struct {
	retriever *Retriever
}

// NewMovingAverage creates the demand strategy.
func NewMovingAverage(retriever *Retriever) *MovingAverage {
	return &MovingAverage{retriever: retriever}
}

func (m *MovingAverage) Name() string { return AlgorithmMovingAverage }

// Forecast fetches demand history for input and passes it through.
func (m *MovingAverage) Forecast(ctx context.Context, input InputData) (DemandResult, error) {
	history, err := m.retriever.Demand(ctx, input)
	if err != nil {
		return DemandResult{}, err
	}
	return DemandResult{Forecast: history}, nil
}

var _ DemandStrategy = (*MovingAverage)(nil)
