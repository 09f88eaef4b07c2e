package repository

import (
	"context"
	"errors"

	"github.com/Kasha228/forecasting/internal/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("forecast not found")
	// ErrAlreadyExists is returned when a record with the same id is stored twice.
	ErrAlreadyExists = errors.New("forecast already exists")
)

// ListFilter narrows List. Empty fields match everything.
type ListFilter struct {
	ForecastType string
	ID           string
	Limit        int
}

// ForecastRepository stores immutable forecast records.
type ForecastRepository interface {
	Create(ctx context.Context, f *models.Forecast) error
	Get(ctx context.Context, forecastType, id string) (*models.Forecast, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Forecast, error)
	Ping(ctx context.Context) error
	RunMigrations(ctx context.Context) error
	Close() error
}
