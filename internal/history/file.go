package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Kasha228/forecasting/internal/forecast"
)

// ErrNoDemandFile is returned by FileSource when no demand file was given.
var ErrNoDemandFile = errors.New("no demand history file configured")

// FileSource serves history from local JSON files. The transactions file holds
// an array of event records; the demand file is returned verbatim. The filter
// is ignored.
type FileSource struct {
	TransactionsPath string
	DemandPath       string
}

func (f FileSource) TransactionHistory(ctx context.Context, _ forecast.InputData) ([]forecast.EventRecord, error) {
	data, err := os.ReadFile(f.TransactionsPath)
	if err != nil {
		return nil, err
	}
	var records []forecast.EventRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, f.TransactionsPath, err)
	}
	return records, nil
}

func (f FileSource) DemandHistory(ctx context.Context, _ forecast.InputData) (json.RawMessage, error) {
	if f.DemandPath == "" {
		return nil, ErrNoDemandFile
	}
	data, err := os.ReadFile(f.DemandPath)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not JSON", ErrInvalidResponse, f.DemandPath)
	}
	return json.RawMessage(data), nil
}

var _ forecast.HistorySource = FileSource{}
