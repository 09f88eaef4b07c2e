package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Family separates demand algorithms from transaction algorithms.
type Family string

const (
	FamilyDemand      Family = "demand"
	FamilyTransaction Family = "transaction"
)

// Algorithm identifiers.
const (
	AlgorithmMovingAverage        = "moving_average"
	AlgorithmPoissonProcess       = "poisson_process"
	AlgorithmExponentialSmoothing = "exponential_smoothing"
	AlgorithmHoltWinters          = "holt_winters"
)

// EventType selects which timestamp fields of an event record are used.
type EventType string

const (
	EventStorage   EventType = "storage"
	EventRetrieval EventType = "retrieval"
	EventBoth      EventType = "both"
)

// ParseEventType validates s against the known event types.
func ParseEventType(s string) (EventType, error) {
	switch et := EventType(s); et {
	case EventStorage, EventRetrieval, EventBoth:
		return et, nil
	default:
		return "", fmt.Errorf("%w: %q (expected storage, retrieval or both)", ErrInvalidEventType, s)
	}
}

func (e EventType) storage() bool   { return e == EventStorage || e == EventBoth }
func (e EventType) retrieval() bool { return e == EventRetrieval || e == EventBoth }

// InputData is the caller supplied filter payload. It is forwarded to the
// history provider as-is.
type InputData map[string]any

// hasEmbedded reports whether key holds a non-empty value.
func (in InputData) hasEmbedded(key string) bool {
	if in == nil {
		return false
	}
	v, ok := in[key]
	if !ok {
		return false
	}
	return !isEmptyValue(v)
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case json.Number:
		return t.String() == "0"
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case json.RawMessage:
		return len(t) == 0 || string(t) == "null"
	default:
		return false
	}
}

// ConfidenceInterval bounds a forecast. No strategy fills it in yet; the field
// is part of the result contract so clients can rely on its presence.
type ConfidenceInterval struct {
	Level float64  `json:"level"`
	Lower []string `json:"lower"`
	Upper []string `json:"upper"`
}

// Result is the output of a transaction forecast.
type Result struct {
	NextTransaction    []string            `json:"next_transaction"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval"`
}

// DemandResult is the output of a demand forecast.
type DemandResult struct {
	Forecast           json.RawMessage     `json:"forecast"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval"`
}

// Default parameter values.
const (
	DefaultHorizonHours   = 1.0
	DefaultAlpha          = 0.2
	DefaultBeta           = 0.1
	DefaultGamma          = 0.3
	DefaultSeasonality    = 7
	DefaultMaxPredictions = 10000
)

// MaxHorizonHours is the largest horizon a time.Duration can hold.
const MaxHorizonHours = float64(math.MaxInt64 / int64(time.Hour))

// Params carries the tuning knobs shared by the transaction strategies.
type Params struct {
	// Horizon is the forward window in hours.
	Horizon     float64
	Alpha       float64
	Beta        float64
	Gamma       float64
	Seasonality int

	// InitialGap seeds the exponential smoothing recursion (seconds). When nil
	// the first observed gap is used.
	InitialGap *float64

	// Anchor is the instant the horizon is measured from. The zero value means
	// the last known timestamp.
	Anchor time.Time

	// MaxPredictions caps the number of projected instants.
	MaxPredictions int

	// Sampler drives the Poisson strategy. Nil means the registry default.
	Sampler Sampler
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		Horizon:        DefaultHorizonHours,
		Alpha:          DefaultAlpha,
		Beta:           DefaultBeta,
		Gamma:          DefaultGamma,
		Seasonality:    DefaultSeasonality,
		MaxPredictions: DefaultMaxPredictions,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if p.Horizon < 0 {
		return fmt.Errorf("%w: horizon must not be negative, got %v", ErrInvalidParameter, p.Horizon)
	}
	if !(p.Horizon <= MaxHorizonHours) {
		return fmt.Errorf("%w: horizon must be at most %v hours, got %v", ErrInvalidParameter, MaxHorizonHours, p.Horizon)
	}
	for _, c := range []struct {
		name string
		v    float64
	}{{"alpha", p.Alpha}, {"beta", p.Beta}, {"gamma", p.Gamma}} {
		if c.v < 0 || c.v > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidParameter, c.name, c.v)
		}
	}
	if p.Seasonality < 2 {
		return fmt.Errorf("%w: seasonality must be at least 2, got %d", ErrInvalidParameter, p.Seasonality)
	}
	if p.MaxPredictions < 0 {
		return fmt.Errorf("%w: max predictions must not be negative, got %d", ErrInvalidParameter, p.MaxPredictions)
	}
	return nil
}

func (p Params) maxPredictions() int {
	if p.MaxPredictions <= 0 {
		return DefaultMaxPredictions
	}
	return p.MaxPredictions
}

// FormatTimestamp renders a predicted instant. The layout is accepted back by
// the history parser.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
