package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Event record fields and the provider's sentinel for "absent".
const (
	FieldStoredAt    = "stored_at"
	FieldRetrievedAt = "retrieved_at"
	noneSentinel     = "None"

	transactionHistoryKey = "transaction_history"
	demandHistoryKey      = "demand_history"
)

// EventRecord is one raw record from the history provider.
type EventRecord map[string]any

// HistorySource fetches raw history. Implementations do network I/O and own
// timeouts and retries.
type HistorySource interface {
	TransactionHistory(ctx context.Context, filter InputData) ([]EventRecord, error)
	DemandHistory(ctx context.Context, filter InputData) (json.RawMessage, error)
}

// Timestamps is a chronologically sorted event sequence.
type Timestamps []time.Time

// Last returns the most recent instant. The sequence must not be empty.
func (ts Timestamps) Last() time.Time {
	return ts[len(ts)-1]
}

// Gaps returns the inter-event gaps in seconds.
func (ts Timestamps) Gaps() []float64 {
	if len(ts) < 2 {
		return nil
	}
	gaps := make([]float64, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		gaps[i-1] = ts[i].Sub(ts[i-1]).Seconds()
	}
	return gaps
}

// RequireSingleOffset fails with ErrInconsistentTimezone unless every instant
// carries the same UTC offset.
func (ts Timestamps) RequireSingleOffset() error {
	if len(ts) == 0 {
		return nil
	}
	_, want := ts[0].Zone()
	for i, t := range ts[1:] {
		if _, off := t.Zone(); off != want {
			return fmt.Errorf("%w: timestamp %d has offset %ds, expected %ds", ErrInconsistentTimezone, i+1, off, want)
		}
	}
	return nil
}

// Retriever validates caller input, pulls history from a HistorySource and
// turns it into Timestamps.
type Retriever struct {
	source HistorySource
}

// NewRetriever creates a retriever backed by source.
func NewRetriever(source HistorySource) *Retriever {
	return &Retriever{source: source}
}

// Transactions returns the sorted storage and/or retrieval instants for input.
func (r *Retriever) Transactions(ctx context.Context, input InputData, eventType EventType) (Timestamps, error) {
	if input.hasEmbedded(transactionHistoryKey) {
		return nil, fmt.Errorf("%w: %s must not be supplied inline", ErrUnsupportedEmbeddedHistory, transactionHistoryKey)
	}
	records, err := r.source.TransactionHistory(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: error getting transaction history: %w", ErrHistoryUnavailable, err)
	}
	return ExtractTimestamps(records, eventType)
}

// Demand returns the raw demand history for input.
func (r *Retriever) Demand(ctx context.Context, input InputData) (json.RawMessage, error) {
	if input.hasEmbedded(demandHistoryKey) {
		return nil, fmt.Errorf("%w: %s must not be supplied inline", ErrUnsupportedEmbeddedHistory, demandHistoryKey)
	}
	history, err := r.source.DemandHistory(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: error getting demand history: %w", ErrHistoryUnavailable, err)
	}
	return history, nil
}

// ExtractTimestamps pulls the fields selected by eventType out of records,
// skipping absent values and the "None" sentinel, and sorts the result.
func ExtractTimestamps(records []EventRecord, eventType EventType) (Timestamps, error) {
	ts := make(Timestamps, 0, len(records))
	for i, rec := range records {
		if eventType.storage() {
			t, ok, err := recordTime(rec, FieldStoredAt)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if ok {
				ts = append(ts, t)
			}
		}
		if eventType.retrieval() {
			t, ok, err := recordTime(rec, FieldRetrievedAt)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			if ok {
				ts = append(ts, t)
			}
		}
	}
	if len(ts) == 0 {
		return nil, ErrNoValidHistory
	}
	slices.SortStableFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
	return ts, nil
}

func recordTime(rec EventRecord, field string) (time.Time, bool, error) {
	raw, present := rec[field]
	if !present || raw == nil {
		return time.Time{}, false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return time.Time{}, false, fmt.Errorf("%w: %s is %T, expected string", ErrInvalidTimestamp, field, raw)
	}
	if s == "" || s == noneSentinel {
		return time.Time{}, false, nil
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%s: %w", field, err)
	}
	return t, true, nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
}

// ParseTimestamp parses an ISO-8601 instant with an explicit offset ("Z" is
// UTC). Fractional seconds are optional.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp with a timezone offset", ErrInvalidTimestamp, s)
}
