package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Kasha228/forecasting/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "timestamp", "forecast_type", "input_data", "algorithm", "algorithm_version", "prediction_horizon", "event_type", "predicted_output"}

func newMockRepo(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepositoryFromDB(db), mock
}

func sampleForecast() *models.Forecast {
	et := "storage"
	horizon := 2.0
	return &models.Forecast{
		ID:                "0b5e5c8e-3b0f-4f5e-9a43-8d8b8a7c6f01",
		Timestamp:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		ForecastType:      models.ForecastTypeTransaction,
		InputData:         models.JSON(`{"item_id":"7"}`),
		Algorithm:         "holt_winters",
		AlgorithmVersion:  "v1",
		PredictionHorizon: &horizon,
		EventType:         &et,
		PredictedOutput:   models.JSON(`{"next_transaction":[],"confidence_interval":null}`),
	}
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	f := sampleForecast()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forecasts (id, timestamp, forecast_type, input_data, algorithm, algorithm_version, prediction_horizon, event_type, predicted_output) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)")).
		WithArgs(f.ID, sqlmock.AnyArg(), "transaction", `{"item_id":"7"}`, "holt_winters", "v1", 2.0, "storage", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), f))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO forecasts")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), sampleForecast())
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestPostgres_CreateRejectsInvalid(t *testing.T) {
	repo, mock := newMockRepo(t)
	f := sampleForecast()
	f.Algorithm = ""

	err := repo.Create(context.Background(), f)
	assert.ErrorIs(t, err, models.ErrInvalidForecast)
	assert.NoError(t, mock.ExpectationsWereMet(), "nothing may reach the database")
}

func TestPostgres_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	f := sampleForecast()

	rows := sqlmock.NewRows(columns).
		AddRow(f.ID, f.Timestamp, "transaction", []byte(`{"item_id":"7"}`), "holt_winters", "v1", 2.0, "storage", []byte(`{"next_transaction":["2024-03-01T13:00:00Z"]}`))
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecasts WHERE forecast_type = $1 AND id = $2")).
		WithArgs("transaction", f.ID).
		WillReturnRows(rows)

	got, err := repo.Get(context.Background(), "transaction", f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.True(t, f.Timestamp.Equal(got.Timestamp))
	require.NotNil(t, got.EventType)
	assert.Equal(t, "storage", *got.EventType)
	require.NotNil(t, got.PredictionHorizon)
	assert.Equal(t, 2.0, *got.PredictionHorizon)
	assert.JSONEq(t, `{"next_transaction":["2024-03-01T13:00:00Z"]}`, string(got.PredictedOutput))
}

func TestPostgres_GetNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM forecasts WHERE forecast_type = $1 AND id = $2")).
		WithArgs("demand", "missing").
		WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.Get(context.Background(), "demand", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_ListFilters(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(columns).
		AddRow("a", ts, "demand", nil, "moving_average", "v1", nil, nil, []byte(`{"forecast":[]}`))

	mock.ExpectQuery(regexp.QuoteMeta("FROM forecasts WHERE forecast_type = $1 AND id = $2 ORDER BY timestamp ASC, id ASC LIMIT $3")).
		WithArgs("demand", "a", 10).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), ListFilter{ForecastType: "demand", ID: "a", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].EventType)
	assert.Nil(t, got[0].InputData)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ListEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timestamp")).
		WillReturnRows(sqlmock.NewRows(columns))

	got, err := repo.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPostgres_RunMigrations(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations WHERE version = $1")).
		WithArgs("001_forecasts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS forecasts")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)")).
		WithArgs("001_forecasts", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RunMigrationsSkipsApplied(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS schema_migrations")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM schema_migrations")).
		WithArgs("001_forecasts").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, repo.RunMigrations(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
