// Command server runs the forecasting HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kasha228/forecasting/internal/config"
	"github.com/Kasha228/forecasting/internal/forecast"
	"github.com/Kasha228/forecasting/internal/history"
	"github.com/Kasha228/forecasting/internal/pkg/logger"
	"github.com/Kasha228/forecasting/internal/pkg/tracing"
	"github.com/Kasha228/forecasting/internal/repository"
	"github.com/Kasha228/forecasting/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "forecasting"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "forecasting: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("FORECASTING_CONFIG"))
	if err != nil {
		return err
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.Format = cfg.LogFormat
	logCfg.File = cfg.LogFile
	log, err := logger.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	shutdownTracing, err := tracing.Init(serviceName, cfg.Tracing.Endpoint, cfg.Tracing.SamplingRate)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("opening forecast store", zap.String("driver", cfg.DatabaseDriver))
	repo, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabasePath, cfg.DatabaseURL,
		cfg.DBWait.MaxRetries, cfg.DBWait.RetryDelay(), log)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := repo.RunMigrations(ctx); err != nil {
		return err
	}

	client, err := history.NewClient(history.Config{
		BaseURL:     cfg.History.BaseURL,
		Timeout:     cfg.History.Timeout(),
		MaxAttempts: cfg.History.MaxAttempts,
		RateLimit:   cfg.History.RateLimitPerSec,
		Burst:       cfg.History.RateLimitBurst,
	}, log)
	if err != nil {
		return err
	}

	registry := forecast.NewRegistry(client, forecast.NewSampler(cfg.Forecast.Seed))
	svc, err := service.NewForecastService(registry, repo, service.Options{
		DefaultHorizonHours: cfg.Forecast.DefaultHorizonHours,
		MaxPredictions:      cfg.Forecast.MaxPredictions,
		AnchorPoissonToNow:  cfg.Forecast.PoissonAnchor == config.AnchorNow,
		CacheSize:           cfg.Cache.Size,
	}, log)
	if err != nil {
		return err
	}

	handler, err := newHandler(cfg, svc, repo, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      time.Duration(cfg.RequestTimeoutSec)*time.Second + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.Int("port", cfg.Port),
			zap.String("history", cfg.History.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeoutSec)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("server exited", zap.Error(err))
	return err
}
