package forecast

import (
	"context"
	"fmt"
	"sort"
)

// TransactionStrategy forecasts from a sorted timestamp history.
type TransactionStrategy interface {
	Name() string
	Forecast(ts Timestamps, params Params) (Result, error)
}

// DemandStrategy forecasts demand for an item filter.
type DemandStrategy interface {
	Name() string
	Forecast(ctx context.Context, input InputData) (DemandResult, error)
}

// Registry dispatches forecast calls by algorithm identifier. It is built once
// by NewRegistry and never modified afterwards, so it is safe to share.
type Registry struct {
	retriever   *Retriever
	demand      map[string]DemandStrategy
	transaction map[string]TransactionStrategy
}

// NewRegistry wires the built-in strategies to source. sampler is the default
// random source of the Poisson strategy.
func NewRegistry(source HistorySource, sampler Sampler) *Registry {
	retriever := NewRetriever(source)
	demand := []DemandStrategy{NewMovingAverage(retriever)}
	transaction := []TransactionStrategy{
		NewPoissonProcess(sampler),
		ExponentialSmoothing{},
		HoltWinters{},
	}

	r := &Registry{
		retriever:   retriever,
		demand:      make(map[string]DemandStrategy, len(demand)),
		transaction: make(map[string]TransactionStrategy, len(transaction)),
	}
	for _, s := range demand {
		r.demand[s.Name()] = s
	}
	for _, s := range transaction {
		r.transaction[s.Name()] = s
	}
	return r
}

// Algorithms lists the identifiers registered for family, sorted.
func (r *Registry) Algorithms(family Family) []string {
	var names []string
	switch family {
	case FamilyDemand:
		for name := range r.demand {
			names = append(names, name)
		}
	case FamilyTransaction:
		for name := range r.transaction {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// PredictDemand runs a demand algorithm.
func (r *Registry) PredictDemand(ctx context.Context, algorithm string, input InputData) (DemandResult, error) {
	strategy, ok := r.demand[algorithm]
	if !ok {
		return DemandResult{}, fmt.Errorf("%w: %q is not a demand algorithm", ErrUnknownAlgorithm, algorithm)
	}
	return strategy.Forecast(ctx, input)
}

// PredictTransaction validates the request, retrieves the history and runs a
// transaction algorithm. Identifiers and parameters are checked before the
// history provider is contacted.
func (r *Registry) PredictTransaction(ctx context.Context, algorithm string, input InputData, eventType string, params Params) (Result, error) {
	strategy, ok := r.transaction[algorithm]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q is not a transaction algorithm", ErrUnknownAlgorithm, algorithm)
	}
	et, err := ParseEventType(eventType)
	if err != nil {
		return Result{}, err
	}
	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	ts, err := r.retriever.Transactions(ctx, input, et)
	if err != nil {
		return Result{}, err
	}
	return strategy.Forecast(ts, params)
}
