package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pinger is the part of a repository WaitForDatabase needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitForDatabase pings db up to maxRetries times, sleeping delay between
// attempts, and returns the last error when the database never answers.
func WaitForDatabase(ctx context.Context, db Pinger, maxRetries int, delay time.Duration, log *zap.Logger) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err = db.Ping(ctx); err == nil {
			return nil
		}
		log.Warn("database not ready",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)
		if attempt == maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("database unavailable after %d attempts: %w", maxRetries, err)
}

// Open builds the repository for driver and waits for it to answer.
func Open(ctx context.Context, driver, sqlitePath, postgresURL string, maxRetries int, delay time.Duration, log *zap.Logger) (*SQLRepository, error) {
	var (
		repo *SQLRepository
		err  error
	)
	switch driver {
	case "sqlite":
		repo, err = NewSQLiteRepository(sqlitePath)
	case "postgres":
		repo, err = NewPostgresRepository(postgresURL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := WaitForDatabase(ctx, repo, maxRetries, delay, log); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}
