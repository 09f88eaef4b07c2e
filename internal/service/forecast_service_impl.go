package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/models"
	"github.com/Kasha228/forecasting/internal/pkg/logger"
	"github.com/Kasha228/forecasting/internal/pkg/metrics"
	"github.com/Kasha228/forecasting/internal/pkg/tracing"
	"github.com/Kasha228/forecasting/internal/repository"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type forecastService struct {
	registry *forecast.Registry
	repo     repository.ForecastRepository
	cache    *lru.Cache[string, *models.Forecast]
	opts     Options
	log      *zap.Logger
}

// NewForecastService wires the registry to the store.
func NewForecastService(registry *forecast.Registry, repo repository.ForecastRepository, opts Options, log *zap.Logger) (ForecastService, error) {
	if opts.DefaultHorizonHours <= 0 {
		opts.DefaultHorizonHours = forecast.DefaultHorizonHours
	}
	if opts.MaxPredictions <= 0 {
		opts.MaxPredictions = forecast.DefaultMaxPredictions
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &forecastService{registry: registry, repo: repo, opts: opts, log: log.Named("forecast")}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, *models.Forecast](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("forecast cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

func (s *forecastService) Algorithms(family forecast.Family) []string {
	return s.registry.Algorithms(family)
}

func (s *forecastService) horizon(h *float64) float64 {
	if h == nil {
		return s.opts.DefaultHorizonHours
	}
	return *h
}

func (s *forecastService) CreateDemandForecast(ctx context.Context, req DemandRequest) (*models.Forecast, error) {
	ctx, span := tracing.StartSpanWithAttributes(ctx, "forecast.demand",
		attribute.String("forecast.algorithm", req.Algorithm),
	)
	defer span.End()

	start := time.Now()
	result, err := s.registry.PredictDemand(ctx, req.Algorithm, req.InputData)
	s.observe(ctx, models.ForecastTypeDemand, req.Algorithm, start, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	horizon := s.horizon(req.PredictionHorizon)
	record, err := s.newRecord(models.ForecastTypeDemand, req.Algorithm, req.AlgorithmVersion, req.InputData, &horizon, nil, result)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if err := s.store(ctx, record); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("forecast.id", record.ID))
	return record, nil
}

func (s *forecastService) CreateTransactionForecast(ctx context.Context, req TransactionRequest) (*models.Forecast, error) {
	ctx, span := tracing.StartSpanWithAttributes(ctx, "forecast.transaction",
		attribute.String("forecast.algorithm", req.Algorithm),
		attribute.String("forecast.event_type", req.EventType),
	)
	defer span.End()

	params := s.params(req)
	start := time.Now()
	result, err := s.registry.PredictTransaction(ctx, req.Algorithm, req.InputData, req.EventType, params)
	s.observe(ctx, models.ForecastTypeTransaction, req.Algorithm, start, err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("forecast.predictions", len(result.NextTransaction)))

	eventType := req.EventType
	record, err := s.newRecord(models.ForecastTypeTransaction, req.Algorithm, req.AlgorithmVersion, req.InputData, &params.Horizon, &eventType, result)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if err := s.store(ctx, record); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("forecast.id", record.ID))
	return record, nil
}

func (s *forecastService) params(req TransactionRequest) forecast.Params {
	p := forecast.DefaultParams()
	p.Horizon = s.horizon(req.PredictionHorizon)
	p.MaxPredictions = s.opts.MaxPredictions
	if req.Alpha != nil {
		p.Alpha = *req.Alpha
	}
	if req.Beta != nil {
		p.Beta = *req.Beta
	}
	if req.Gamma != nil {
		p.Gamma = *req.Gamma
	}
	if req.Seasonality != nil {
		p.Seasonality = *req.Seasonality
	}
	p.InitialGap = req.InitialGap
	if s.opts.AnchorPoissonToNow && req.Algorithm == forecast.AlgorithmPoissonProcess {
		p.Anchor = s.opts.Clock()
	}
	return p
}

func (s *forecastService) observe(ctx context.Context, family, algorithm string, start time.Time, err error) {
	label := outcome(err)
	metrics.ForecastsTotal.WithLabelValues(family, algorithm, label).Inc()
	if err != nil {
		s.log.Info("forecast rejected",
			zap.String("request_id", logger.FromContext(ctx)),
			zap.String("family", family),
			zap.String("algorithm", algorithm),
			zap.String("outcome", label),
			zap.Error(err),
		)
		return
	}
	metrics.ForecastDurationSeconds.WithLabelValues(family, algorithm).Observe(time.Since(start).Seconds())
}

func (s *forecastService) newRecord(forecastType, algorithm, version string, input forecast.InputData, horizon *float64, eventType *string, output any) (*models.Forecast, error) {
	predicted, err := json.Marshal(output)
	if err != nil {
		return nil, fmt.Errorf("encode predicted output: %w", err)
	}
	var inputJSON models.JSON
	if input != nil {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("encode input data: %w", err)
		}
		inputJSON = raw
	}
	if version == "" {
		version = models.DefaultAlgorithmVersion
	}
	return &models.Forecast{
		ID:                s.opts.NewID(),
		Timestamp:         s.opts.Clock().UTC(),
		ForecastType:      forecastType,
		InputData:         inputJSON,
		Algorithm:         algorithm,
		AlgorithmVersion:  version,
		PredictionHorizon: horizon,
		EventType:         eventType,
		PredictedOutput:   predicted,
	}, nil
}

func (s *forecastService) store(ctx context.Context, record *models.Forecast) error {
	if err := s.repo.Create(ctx, record); err != nil {
		s.log.Error("failed to store forecast",
			zap.String("request_id", logger.FromContext(ctx)),
			zap.String("forecast_id", record.ID),
			zap.Error(err),
		)
		return fmt.Errorf("store forecast: %w", err)
	}
	if s.cache != nil {
		s.cache.Add(cacheKey(record.ForecastType, record.ID), record)
	}
	return nil
}

func cacheKey(forecastType, id string) string {
	return forecastType + "/" + id
}

func (s *forecastService) ListForecasts(ctx context.Context, forecastType, id string) ([]*models.Forecast, error) {
	return s.repo.List(ctx, repository.ListFilter{ForecastType: forecastType, ID: id})
}

// GetForecast reads through the cache; records never change once stored.
func (s *forecastService) GetForecast(ctx context.Context, forecastType, id string) (*models.Forecast, error) {
	key := cacheKey(forecastType, id)
	if s.cache != nil {
		if f, ok := s.cache.Get(key); ok {
			metrics.ForecastCacheHitsTotal.Inc()
			return f, nil
		}
		metrics.ForecastCacheMissesTotal.Inc()
	}
	f, err := s.repo.Get(ctx, forecastType, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(key, f)
	}
	return f, nil
}
