package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Kasha228/forecasting/internal/models"
	"github.com/Kasha228/forecasting/migrations"
	"github.com/jmoiron/sqlx"
)

const forecastColumns = `id, timestamp, forecast_type, input_data, algorithm, algorithm_version, prediction_horizon, event_type, predicted_output`

// SQLRepository is the sqlx-backed ForecastRepository shared by the SQLite
// and Postgres stores. Queries are written with ? and rebound per driver.
type SQLRepository struct {
	db      *sqlx.DB
	dialect string
	// isDuplicate recognizes the driver's unique-violation error.
	isDuplicate func(error) bool
}

// Close closes the database connection
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// Ping checks connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunMigrations applies every embedded migration for the dialect that has not
// been recorded in schema_migrations, in file name order.
func (r *SQLRepository) RunMigrations(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrations.FS, path.Join(r.dialect, "*.sql"))
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		var applied int
		if err := r.db.GetContext(ctx, &applied, r.db.Rebind(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`), version); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied > 0 {
			continue
		}
		body, err := fs.ReadFile(migrations.FS, file)
		if err != nil {
			return err
		}
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`), version, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// Create inserts f. Records are never updated; storing an existing id fails
// with ErrAlreadyExists.
func (r *SQLRepository) Create(ctx context.Context, f *models.Forecast) error {
	if err := f.Validate(); err != nil {
		return err
	}
	query := r.db.Rebind(`INSERT INTO forecasts (` + forecastColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	return instrumentQuery("create_forecast", func() error {
		_, err := r.db.ExecContext(ctx, query,
			f.ID,
			f.Timestamp.UTC(),
			f.ForecastType,
			f.InputData,
			f.Algorithm,
			f.AlgorithmVersion,
			f.PredictionHorizon,
			f.EventType,
			f.PredictedOutput,
		)
		if err != nil && r.isDuplicate(err) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, f.ID)
		}
		return err
	})
}

// Get returns the record of forecastType with id.
func (r *SQLRepository) Get(ctx context.Context, forecastType, id string) (*models.Forecast, error) {
	var f models.Forecast
	query := r.db.Rebind(`SELECT ` + forecastColumns + ` FROM forecasts WHERE forecast_type = ? AND id = ?`)
	err := instrumentQuery("get_forecast", func() error {
		err := r.db.GetContext(ctx, &f, query, forecastType, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	f.Timestamp = f.Timestamp.UTC()
	return &f, nil
}

// List returns records oldest first.
func (r *SQLRepository) List(ctx context.Context, filter ListFilter) ([]*models.Forecast, error) {
	var (
		where []string
		args  []any
	)
	if filter.ForecastType != "" {
		where = append(where, "forecast_type = ?")
		args = append(args, filter.ForecastType)
	}
	if filter.ID != "" {
		where = append(where, "id = ?")
		args = append(args, filter.ID)
	}
	query := `SELECT ` + forecastColumns + ` FROM forecasts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY timestamp ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	forecasts := []*models.Forecast{}
	err := instrumentQuery("list_forecasts", func() error {
		return r.db.SelectContext(ctx, &forecasts, r.db.Rebind(query), args...)
	})
	if err != nil {
		return nil, err
	}
	for _, f := range forecasts {
		f.Timestamp = f.Timestamp.UTC()
	}
	return forecasts, nil
}

var _ ForecastRepository = (*SQLRepository)(nil)
