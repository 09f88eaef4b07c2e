package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Kasha228/forecasting/internal/api/middleware"
	"github.com/Kasha228/forecasting/internal/api/schema"
	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/history"
	"github.com/Kasha228/forecasting/internal/models"
	"github.com/Kasha228/forecasting/internal/repository"
	"github.com/Kasha228/forecasting/internal/service"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService records the last request and answers with canned values.
type fakeService struct {
	err         error
	transaction service.TransactionRequest
	demand      service.DemandRequest
	listType    string
	listID      string
	records     map[string]*models.Forecast
}

func (f *fakeService) CreateDemandForecast(_ context.Context, req service.DemandRequest) (*models.Forecast, error) {
	f.demand = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Forecast{ID: "d-1", ForecastType: models.ForecastTypeDemand, Algorithm: req.Algorithm,
		AlgorithmVersion: "v1", PredictedOutput: models.JSON(`{"forecast":[1,2]}`)}, nil
}

func (f *fakeService) CreateTransactionForecast(_ context.Context, req service.TransactionRequest) (*models.Forecast, error) {
	f.transaction = req
	if f.err != nil {
		return nil, f.err
	}
	et := req.EventType
	return &models.Forecast{ID: "t-1", ForecastType: models.ForecastTypeTransaction, Algorithm: req.Algorithm,
		AlgorithmVersion: "v1", EventType: &et, PredictedOutput: models.JSON(`{"next_transaction":[]}`)}, nil
}

func (f *fakeService) ListForecasts(_ context.Context, forecastType, id string) ([]*models.Forecast, error) {
	f.listType, f.listID = forecastType, id
	return []*models.Forecast{}, f.err
}

func (f *fakeService) GetForecast(_ context.Context, forecastType, id string) (*models.Forecast, error) {
	if r, ok := f.records[forecastType+"/"+id]; ok {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeService) Algorithms(family forecast.Family) []string {
	if family == forecast.FamilyDemand {
		return []string{"moving_average"}
	}
	return []string{"exponential_smoothing", "holt_winters", "poisson_process"}
}

func newTestRouter(t *testing.T, svc service.ForecastService) *mux.Router {
	t.Helper()
	v, err := schema.NewValidator()
	require.NoError(t, err)
	h, err := NewHandler(svc, v, time.Second, nil)
	require.NoError(t, err)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	SetupRoutes(api, h)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var out APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestAPI_POST_Transaction_PassesTuning(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodPost, "/api/v1/transaction/",
		`{"algorithm":"holt_winters","event_type":"storage","prediction_horizon":12,"alpha":0.5,"seasonality":3,"input_data":{"item_id":"7"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	assert.Equal(t, "holt_winters", svc.transaction.Algorithm)
	assert.Equal(t, "storage", svc.transaction.EventType)
	require.NotNil(t, svc.transaction.PredictionHorizon)
	assert.Equal(t, 12.0, *svc.transaction.PredictionHorizon)
	require.NotNil(t, svc.transaction.Alpha)
	assert.Equal(t, 0.5, *svc.transaction.Alpha)
	assert.Nil(t, svc.transaction.Beta)
	require.NotNil(t, svc.transaction.Seasonality)
	assert.Equal(t, 3, *svc.transaction.Seasonality)
	assert.Equal(t, forecast.InputData{"item_id": "7"}, svc.transaction.InputData)

	var out models.Forecast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "t-1", out.ID)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestAPI_POST_Transaction_KeepsNumericFilterExact(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodPost, "/api/v1/transaction/",
		`{"algorithm":"poisson_process","event_type":"both","input_data":{"item_number":12345678901234567}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, json.Number("12345678901234567"), svc.transaction.InputData["item_number"])
}

func TestAPI_POST_Demand(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodPost, "/api/v1/demand", `{"algorithm":"moving_average","input_data":{"item_number":"A-1"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "moving_average", svc.demand.Algorithm)
	assert.Nil(t, svc.demand.PredictionHorizon)
}

func TestAPI_POST_RejectsBadBodies(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	rec := do(router, http.MethodPost, "/api/v1/transaction/", `{not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, ErrCodeInvalidRequest, decodeAPIError(t, rec).Code)

	rec = do(router, http.MethodPost, "/api/v1/transaction/", `{"algorithm":"poisson_process"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeAPIError(t, rec)
	assert.Equal(t, ErrCodeValidationFailed, apiErr.Code)
	assert.NotEmpty(t, apiErr.Details)
}

func TestAPI_POST_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unknown algorithm", fmt.Errorf("%w: %q", forecast.ErrUnknownAlgorithm, "magic"), http.StatusBadRequest, ErrCodeInvalidRequest},
		{"bad event type", forecast.ErrInvalidEventType, http.StatusBadRequest, ErrCodeInvalidRequest},
		{"bad parameter", forecast.ErrInvalidParameter, http.StatusBadRequest, ErrCodeValidationFailed},
		{"no valid history", forecast.ErrNoValidHistory, http.StatusBadRequest, ErrCodeValidationFailed},
		{"mixed offsets", forecast.ErrInconsistentTimezone, http.StatusBadRequest, ErrCodeValidationFailed},
		{"short season", forecast.ErrInsufficientSeasonalData, http.StatusBadRequest, ErrCodeValidationFailed},
		{"degenerate", forecast.ErrDegenerateRate, http.StatusBadRequest, ErrCodeValidationFailed},
		{"embedded history", forecast.ErrUnsupportedEmbeddedHistory, http.StatusNotImplemented, ErrCodeNotImplemented},
		{"provider down", fmt.Errorf("%w: %w", forecast.ErrHistoryUnavailable, errors.New("dial tcp")), http.StatusBadGateway, ErrCodeUpstreamUnavailable},
		{"breaker open", fmt.Errorf("%w: %w", forecast.ErrHistoryUnavailable, history.ErrCircuitOpen), http.StatusServiceUnavailable, ErrCodeCircuitBreaker},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeTimeout},
		{"store failure", errors.New("disk full"), http.StatusInternalServerError, ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeService{err: tt.err})
			rec := do(router, http.MethodPost, "/api/v1/transaction/", `{"algorithm":"poisson_process","event_type":"both"}`)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			apiErr := decodeAPIError(t, rec)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, apiErr.Message, "disk full")
			}
		})
	}
}

func TestAPI_POST_BodyTooLarge(t *testing.T) {
	router := newTestRouter(t, &fakeService{})
	limited := middleware.MaxBodySize(32)(router)

	body := `{"algorithm":"poisson_process","event_type":"both","input_data":{"item_id":"0123456789"}}`
	rec := do(limited, http.MethodPost, "/api/v1/transaction/", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, ErrCodeRequestTooLarge, decodeAPIError(t, rec).Code)
}

func TestAPI_GET_ListWithIDFilter(t *testing.T) {
	svc := &fakeService{}
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodGet, "/api/v1/transaction/?id=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ForecastTypeTransaction, svc.listType)
	assert.Equal(t, "abc", svc.listID)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPI_GET_ForecastByID(t *testing.T) {
	svc := &fakeService{records: map[string]*models.Forecast{
		"demand/d-9": {ID: "d-9", ForecastType: models.ForecastTypeDemand, Algorithm: "moving_average", PredictedOutput: models.JSON(`{}`)},
	}}
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodGet, "/api/v1/demand/d-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"d-9"`)

	rec = do(router, http.MethodGet, "/api/v1/transaction/d-9", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrCodeNotFound, decodeAPIError(t, rec).Code)

	rec = do(router, http.MethodGet, "/api/v1/other/d-9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_GET_AlgorithmsAndOpenAPI(t *testing.T) {
	router := newTestRouter(t, &fakeService{})

	rec := do(router, http.MethodGet, "/api/v1/algorithms", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var algos map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &algos))
	assert.Equal(t, []string{"moving_average"}, algos["demand"])
	assert.Len(t, algos["transaction"], 3)

	rec = do(router, http.MethodGet, "/api/v1/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
}

type stubSource struct {
	records []forecast.EventRecord
}

func (s stubSource) TransactionHistory(context.Context, forecast.InputData) ([]forecast.EventRecord, error) {
	return s.records, nil
}

func (s stubSource) DemandHistory(context.Context, forecast.InputData) (json.RawMessage, error) {
	return json.RawMessage(`[5,6]`), nil
}

func TestAPI_EndToEnd_StoreAndFetch(t *testing.T) {
	repo, err := repository.NewSQLiteRepository(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.RunMigrations(context.Background()))

	src := stubSource{records: []forecast.EventRecord{
		{"stored_at": "2024-01-01T00:00:00Z"},
		{"stored_at": "2024-01-01T01:00:00Z"},
		{"stored_at": "2024-01-01T02:00:00Z"},
	}}
	registry := forecast.NewRegistry(src, forecast.NewSampler(1))
	svc, err := service.NewForecastService(registry, repo, service.Options{CacheSize: 8}, nil)
	require.NoError(t, err)
	router := newTestRouter(t, svc)

	rec := do(router, http.MethodPost, "/api/v1/transaction/",
		`{"algorithm":"exponential_smoothing","event_type":"storage","prediction_horizon":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID              string `json:"id"`
		PredictedOutput struct {
			NextTransaction []string `json:"next_transaction"`
		} `json:"predicted_output"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, []string{"2024-01-01T03:00:00Z", "2024-01-01T04:00:00Z", "2024-01-01T05:00:00Z"},
		created.PredictedOutput.NextTransaction)

	rec = do(router, http.MethodGet, "/api/v1/transaction/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), created.ID)

	rec = do(router, http.MethodGet, "/api/v1/transaction/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []models.Forecast
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	rec = do(router, http.MethodGet, "/api/v1/demand/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
