package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Forecast types.
const (
	ForecastTypeDemand      = "demand"
	ForecastTypeTransaction = "transaction"
)

// DefaultAlgorithmVersion is recorded when the caller does not send one.
const DefaultAlgorithmVersion = "v1"

// ErrInvalidForecast is returned by Validate.
var ErrInvalidForecast = errors.New("invalid forecast record")

// Forecast is a persisted forecast run. Records are immutable once created:
// the store exposes no update path.
type Forecast struct {
	ID                string    `json:"id" db:"id"`
	Timestamp         time.Time `json:"timestamp" db:"timestamp"`
	ForecastType      string    `json:"forecast_type" db:"forecast_type"`
	InputData         JSON      `json:"input_data" db:"input_data"`
	Algorithm         string    `json:"algorithm" db:"algorithm"`
	AlgorithmVersion  string    `json:"algorithm_version" db:"algorithm_version"`
	PredictionHorizon *float64  `json:"prediction_horizon,omitempty" db:"prediction_horizon"`
	EventType         *string   `json:"event_type,omitempty" db:"event_type"` // transaction forecasts only
	PredictedOutput   JSON      `json:"predicted_output" db:"predicted_output"`
}

// Validate checks the fields every stored record must carry.
func (f *Forecast) Validate() error {
	switch {
	case f.ID == "":
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidForecast)
	case f.Timestamp.IsZero():
		return fmt.Errorf("%w: timestamp cannot be empty", ErrInvalidForecast)
	case f.Algorithm == "":
		return fmt.Errorf("%w: algorithm cannot be empty", ErrInvalidForecast)
	case len(f.PredictedOutput) == 0:
		return fmt.Errorf("%w: predicted_output cannot be empty", ErrInvalidForecast)
	}
	switch f.ForecastType {
	case ForecastTypeDemand:
	case ForecastTypeTransaction:
		if f.EventType == nil || *f.EventType == "" {
			return fmt.Errorf("%w: event_type cannot be empty", ErrInvalidForecast)
		}
	default:
		return fmt.Errorf("%w: unknown forecast_type %q", ErrInvalidForecast, f.ForecastType)
	}
	return nil
}

// JSON is a raw JSON document stored in a text/jsonb column.
type JSON json.RawMessage

// Value implements driver.Valuer. An empty document is stored as NULL.
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return string(j), nil
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSON(v)
	default:
		return fmt.Errorf("models.JSON: cannot scan %T", src)
	}
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*j = nil
		return nil
	}
	*j = append((*j)[:0], data...)
	return nil
}
