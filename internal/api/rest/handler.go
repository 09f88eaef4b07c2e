// Package rest exposes the forecast service over HTTP under /api/v1.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Kasha228/forecasting/internal/api/schema"
	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/models"
	"github.com/Kasha228/forecasting/internal/pkg/logger"
	"github.com/Kasha228/forecasting/internal/service"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handler manages HTTP request handlers
type Handler struct {
	svc       service.ForecastService
	validator *schema.Validator
	openapi   []byte
	timeout   time.Duration
	log       *zap.Logger
}

// NewHandler creates a new HTTP handler. timeout bounds each forecast run;
// zero means no bound beyond the request context.
func NewHandler(svc service.ForecastService, validator *schema.Validator, timeout time.Duration, log *zap.Logger) (*Handler, error) {
	doc, err := schema.JSON()
	if err != nil {
		return nil, err
	}
	if validator == nil {
		if validator, err = schema.NewValidator(); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, validator: validator, openapi: doc, timeout: timeout, log: log.Named("rest")}, nil
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	for _, p := range []string{"/demand/", "/demand"} {
		router.HandleFunc(p, h.ListDemandForecasts).Methods(http.MethodGet)
		router.HandleFunc(p, h.CreateDemandForecast).Methods(http.MethodPost)
	}
	for _, p := range []string{"/transaction/", "/transaction"} {
		router.HandleFunc(p, h.ListTransactionForecasts).Methods(http.MethodGet)
		router.HandleFunc(p, h.CreateTransactionForecast).Methods(http.MethodPost)
	}
	router.HandleFunc("/algorithms", h.ListAlgorithms).Methods(http.MethodGet)
	router.HandleFunc("/openapi.json", h.OpenAPI).Methods(http.MethodGet)
	router.HandleFunc("/{forecast_type:demand|transaction}/{id}", h.GetForecast).Methods(http.MethodGet)
}

type demandBody struct {
	Algorithm         string             `json:"algorithm"`
	AlgorithmVersion  string             `json:"algorithm_version"`
	InputData         forecast.InputData `json:"input_data"`
	PredictionHorizon *float64           `json:"prediction_horizon"`
}

type transactionBody struct {
	Algorithm         string             `json:"algorithm"`
	AlgorithmVersion  string             `json:"algorithm_version"`
	EventType         string             `json:"event_type"`
	InputData         forecast.InputData `json:"input_data"`
	PredictionHorizon *float64           `json:"prediction_horizon"`
	Alpha             *float64           `json:"alpha"`
	Beta              *float64           `json:"beta"`
	Gamma             *float64           `json:"gamma"`
	Seasonality       *int               `json:"seasonality"`
	InitialGap        *float64           `json:"initial_gap"`
}

// CreateDemandForecast handles POST /demand/
func (h *Handler) CreateDemandForecast(w http.ResponseWriter, r *http.Request) {
	var body demandBody
	if !h.decode(w, r, h.validator.Demand, &body) {
		return
	}
	ctx, cancel := h.forecastContext(r.Context())
	defer cancel()

	record, err := h.svc.CreateDemandForecast(ctx, service.DemandRequest{
		Algorithm:         body.Algorithm,
		AlgorithmVersion:  body.AlgorithmVersion,
		InputData:         body.InputData,
		PredictionHorizon: body.PredictionHorizon,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// CreateTransactionForecast handles POST /transaction/
func (h *Handler) CreateTransactionForecast(w http.ResponseWriter, r *http.Request) {
	var body transactionBody
	if !h.decode(w, r, h.validator.Transaction, &body) {
		return
	}
	ctx, cancel := h.forecastContext(r.Context())
	defer cancel()

	record, err := h.svc.CreateTransactionForecast(ctx, service.TransactionRequest{
		Algorithm:         body.Algorithm,
		AlgorithmVersion:  body.AlgorithmVersion,
		EventType:         body.EventType,
		InputData:         body.InputData,
		PredictionHorizon: body.PredictionHorizon,
		Alpha:             body.Alpha,
		Beta:              body.Beta,
		Gamma:             body.Gamma,
		Seasonality:       body.Seasonality,
		InitialGap:        body.InitialGap,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// ListDemandForecasts handles GET /demand/ with an optional ?id= filter
func (h *Handler) ListDemandForecasts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ForecastTypeDemand)
}

// ListTransactionForecasts handles GET /transaction/ with an optional ?id= filter
func (h *Handler) ListTransactionForecasts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, models.ForecastTypeTransaction)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, forecastType string) {
	records, err := h.svc.ListForecasts(r.Context(), forecastType, r.URL.Query().Get("id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// GetForecast handles GET /{forecast_type}/{id}
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.svc.GetForecast(r.Context(), vars["forecast_type"], vars["id"])
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

// ListAlgorithms handles GET /algorithms
func (h *Handler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]string{
		string(forecast.FamilyDemand):      h.svc.Algorithms(forecast.FamilyDemand),
		string(forecast.FamilyTransaction): h.svc.Algorithms(forecast.FamilyTransaction),
	})
}

// OpenAPI handles GET /openapi.json
func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapi)
}

func (h *Handler) forecastContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}

// decode reads the body, checks it against the request schema and fills out.
// It writes the error response itself and reports whether to continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, validate func(any) error, out any) bool {
	reqID := logger.FromContext(r.Context())
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondStructuredError(w, http.StatusRequestEntityTooLarge, ErrCodeRequestTooLarge, "Request body too large", reqID, nil)
			return false
		}
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body", reqID, nil)
		return false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body", reqID, nil)
		return false
	}
	if err := validate(doc); err != nil {
		h.respondErr(w, r, err)
		return false
	}
	// Numbers inside input_data are forwarded to the provider as written.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		respondStructuredError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body", reqID, nil)
		return false
	}
	return true
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	reqID := logger.FromContext(r.Context())
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("request_id", reqID), zap.String("path", r.URL.Path), zap.Error(err))
		message = "Internal server error"
	}
	respondStructuredError(w, status, code, message, reqID, problemDetails(err))
}
