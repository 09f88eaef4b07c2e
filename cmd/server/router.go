package main

import (
	"net/http"
	"time"

	"github.com/Kasha228/forecasting/internal/api/middleware"
	"github.com/Kasha228/forecasting/internal/api/rest"
	"github.com/Kasha228/forecasting/internal/api/schema"
	"github.com/Kasha228/forecasting/internal/config"
	"github.com/Kasha228/forecasting/internal/service"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// newHandler assembles routes and the middleware chain. Route-aware middleware
// runs inside mux; tracing, CORS and limits wrap the whole router.
func newHandler(cfg *config.Config, svc service.ForecastService, db rest.Pinger, log *zap.Logger) (http.Handler, error) {
	validator, err := schema.NewValidator()
	if err != nil {
		return nil, err
	}
	h, err := rest.NewHandler(svc, validator, time.Duration(cfg.RequestTimeoutSec)*time.Second, log)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.StructuredLog(log), middleware.Recovery(log))

	rest.SetupHealthRoutes(router, rest.NewHealthzHandler(db))
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	rest.SetupRoutes(api, h)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.ResponseRequestIDHeader, "traceparent"},
		ExposedHeaders: []string{middleware.ResponseRequestIDHeader, middleware.TraceIDHeader},
	})

	var handler http.Handler = router
	handler = middleware.MaxBodySize(cfg.MaxBodyBytes)(handler)
	handler = middleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst)(handler)
	handler = middleware.SecureHeaders(handler)
	handler = c.Handler(handler)
	handler = middleware.Tracing(handler)
	return handler, nil
}
