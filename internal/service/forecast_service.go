package service

import (
	"context"
	"errors"
	"time"

	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/models"
)

// DemandRequest asks for a demand forecast.
type DemandRequest struct {
	Algorithm         string
	AlgorithmVersion  string
	InputData         forecast.InputData
	PredictionHorizon *float64
}

// TransactionRequest asks for a transaction forecast. Nil tuning fields fall
// back to the algorithm defaults.
type TransactionRequest struct {
	Algorithm         string
	AlgorithmVersion  string
	EventType         string
	InputData         forecast.InputData
	PredictionHorizon *float64
	Alpha             *float64
	Beta              *float64
	Gamma             *float64
	Seasonality       *int
	InitialGap        *float64
}

// ForecastService runs forecasts and keeps a record of every successful run.
type ForecastService interface {
	CreateDemandForecast(ctx context.Context, req DemandRequest) (*models.Forecast, error)
	CreateTransactionForecast(ctx context.Context, req TransactionRequest) (*models.Forecast, error)
	ListForecasts(ctx context.Context, forecastType, id string) ([]*models.Forecast, error)
	GetForecast(ctx context.Context, forecastType, id string) (*models.Forecast, error)
	Algorithms(family forecast.Family) []string
}

// Options tunes the service. Zero values pick the defaults.
type Options struct {
	DefaultHorizonHours float64
	MaxPredictions      int
	// AnchorPoissonToNow measures the Poisson horizon from Clock instead of
	// the last known event.
	AnchorPoissonToNow bool
	CacheSize          int
	Clock              func() time.Time
	NewID              func() string
}

// outcome labels a forecast result for metrics.
func outcome(err error) string {
	kinds := []struct {
		err   error
		label string
	}{
		{forecast.ErrUnknownAlgorithm, "unknown_algorithm"},
		{forecast.ErrInvalidEventType, "invalid_event_type"},
		{forecast.ErrInvalidParameter, "invalid_parameter"},
		{forecast.ErrHistoryUnavailable, "history_unavailable"},
		{forecast.ErrNoValidHistory, "no_valid_history"},
		{forecast.ErrInvalidTimestamp, "invalid_timestamp"},
		{forecast.ErrInconsistentTimezone, "inconsistent_timezone"},
		{forecast.ErrInsufficientSeasonalData, "insufficient_seasonal_data"},
		{forecast.ErrDegenerateRate, "degenerate_rate"},
		{forecast.ErrUnsupportedEmbeddedHistory, "unsupported_embedded_history"},
	}
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.label
		}
	}
	return "error"
}
