package repository

import (
	"time"

	"github.com/Kasha228/forecasting/internal/pkg/metrics"
)

// instrumentQuery wraps a database query with timing and error metrics.
func instrumentQuery(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.DBQueryDurationSeconds.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil && err != ErrNotFound {
		metrics.DBQueryErrorsTotal.WithLabelValues(operation).Inc()
	}
	return err
}
