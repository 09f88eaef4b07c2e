package forecast

import "errors"

// Errors returned by the forecasting engine. Callers match them with errors.Is;
// the wrapped message always says which input was rejected.
var (
	ErrUnknownAlgorithm           = errors.New("unknown algorithm")
	ErrInvalidEventType           = errors.New("invalid event type")
	ErrHistoryUnavailable         = errors.New("history unavailable")
	ErrNoValidHistory             = errors.New("no valid records to process after cleaning data")
	ErrInconsistentTimezone       = errors.New("timestamps do not share one timezone offset")
	ErrInsufficientSeasonalData   = errors.New("insufficient data for seasonality")
	ErrDegenerateRate             = errors.New("not enough history to estimate a rate")
	ErrUnsupportedEmbeddedHistory = errors.New("embedded history is not implemented yet")
	ErrInvalidTimestamp           = errors.New("invalid timestamp")
	ErrInvalidParameter           = errors.New("invalid parameter")
)
