package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type telemetryRepository struct {
	db *DB
}

func NewTelemetryRepository(db *DB) *telemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) InsertMetrics(ctx context.Context, metrics []domain.PerformanceMetric) error {
	if len(metrics) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO performance_metrics (
				ts, kiosk_id, session_id, metric_type, duration_ms,
				breakdown, context, success, error_message, created_at
			) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, NULLIF($9, ''), now())`)
		if err != nil {
			return fmt.Errorf("prepare metric insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range metrics {
			var breakdown, metricCtx []byte
			if m.Breakdown != nil {
				if breakdown, err = json.Marshal(m.Breakdown); err != nil {
					return fmt.Errorf("marshal breakdown: %w", err)
				}
			}
			if m.Context != nil {
				if metricCtx, err = json.Marshal(m.Context); err != nil {
					return fmt.Errorf("marshal metric context: %w", err)
				}
			}
			if _, err := stmt.ExecContext(ctx,
				m.Timestamp, m.KioskID, m.SessionID, string(m.MetricType),
				m.DurationMs, breakdown, metricCtx, m.Success, m.ErrorMessage,
			); err != nil {
				return fmt.Errorf("insert metric: %w", err)
			}
		}
		return nil
	})
}

func (r *telemetryRepository) InsertErrors(ctx context.Context, reports []domain.ErrorReport) error {
	if len(reports) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO error_reports (
				ts, kiosk_id, session_id, severity, category, error_code,
				error_message, stack_trace, device_state, app_version, resolved, created_at
			) VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, NULLIF($8, ''), $9, $10, FALSE, now())`)
		if err != nil {
			return fmt.Errorf("prepare error insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range reports {
			var state []byte
			if e.DeviceState != nil {
				if state, err = json.Marshal(e.DeviceState); err != nil {
					return fmt.Errorf("marshal device state: %w", err)
				}
			}
			if _, err := stmt.ExecContext(ctx,
				e.Timestamp, e.KioskID, e.SessionID, string(e.Severity), string(e.Category),
				e.ErrorCode, e.ErrorMessage, e.StackTrace, state, e.AppVersion,
			); err != nil {
				return fmt.Errorf("insert error report: %w", err)
			}
		}
		return nil
	})
}

func (r *telemetryRepository) MetricDurations(ctx context.Context, kioskID string, metric domain.MetricType, from, to time.Time) ([]int64, error) {
	durations := []int64{}
	err := r.db.SelectContext(ctx, &durations, `
		SELECT duration_ms FROM performance_metrics
		WHERE kiosk_id = $1 AND metric_type = $2
		  AND ts >= $3 AND ts <= $4
		  AND success`,
		kioskID, string(metric), from, to)
	if err != nil {
		return nil, fmt.Errorf("metric durations: %w", err)
	}
	return durations, nil
}

func (r *telemetryRepository) KioskErrorCounts(ctx context.Context, kioskID string, from, to time.Time) (*domain.ErrorDayCounts, error) {
	rows := []struct {
		Severity string `db:"severity"`
		Category string `db:"category"`
		Count    int    `db:"count"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT severity, category, COUNT(*) AS count
		FROM error_reports
		WHERE kiosk_id = $1 AND ts >= $2 AND ts <= $3
		GROUP BY severity, category`,
		kioskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("kiosk error counts: %w", err)
	}

	counts := &domain.ErrorDayCounts{
		BySeverity: map[domain.ErrorSeverity]int{},
		ByCategory: map[domain.ErrorCategory]int{},
	}
	for _, row := range rows {
		counts.Total += row.Count
		counts.BySeverity[domain.ErrorSeverity(row.Severity)] += row.Count
		counts.ByCategory[domain.ErrorCategory(row.Category)] += row.Count
	}
	return counts, nil
}
