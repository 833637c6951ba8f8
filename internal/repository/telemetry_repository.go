package repository

import (
	"context"
	"time"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

// TelemetryRepository stores the time-series streams (latency samples,
// error reports) and serves the rollup's read paths over them.
type TelemetryRepository interface {
	InsertMetrics(ctx context.Context, metrics []domain.PerformanceMetric) error
	InsertErrors(ctx context.Context, reports []domain.ErrorReport) error

	// MetricDurations returns successful measurement durations for one
	// metric type in [from, to].
	MetricDurations(ctx context.Context, kioskID string, metric domain.MetricType, from, to time.Time) ([]int64, error)
	KioskErrorCounts(ctx context.Context, kioskID string, from, to time.Time) (*domain.ErrorDayCounts, error)
}
