package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/repository"
)

// TelemetryService ingests the raw time-series streams kiosks push up:
// latency measurements and error reports. Both arrive in batches.
type TelemetryService struct {
	telemetry repository.TelemetryRepository
}

func NewTelemetryService(telemetry repository.TelemetryRepository) *TelemetryService {
	return &TelemetryService{telemetry: telemetry}
}

type MetricInput struct {
	Timestamp    string                `json:"timestamp" binding:"required"`
	KioskID      string                `json:"kioskId" binding:"required"`
	SessionID    string                `json:"sessionId"`
	MetricType   domain.MetricType     `json:"metricType" binding:"required"`
	DurationMs   int64                 `json:"durationMs"`
	Breakdown    map[string]float64    `json:"breakdown"`
	Context      *domain.MetricContext `json:"context"`
	Success      *bool                 `json:"success"`
	ErrorMessage string                `json:"errorMessage"`
}

type ErrorReportInput struct {
	Timestamp    string               `json:"timestamp" binding:"required"`
	KioskID      string               `json:"kioskId" binding:"required"`
	SessionID    string               `json:"sessionId"`
	Severity     domain.ErrorSeverity `json:"severity" binding:"required"`
	Category     domain.ErrorCategory `json:"category"`
	ErrorCode    string               `json:"errorCode" binding:"required"`
	ErrorMessage string               `json:"errorMessage"`
	StackTrace   string               `json:"stackTrace"`
	DeviceState  *domain.DeviceState  `json:"deviceState"`
	AppVersion   string               `json:"appVersion"`
}

// IngestMetrics validates and stores a batch of latency measurements. The
// batch is atomic: one bad record rejects the whole payload so the kiosk can
// retry it untouched.
func (s *TelemetryService) IngestMetrics(ctx context.Context, inputs []MetricInput) (int, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: empty metric batch", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	metrics := make([]domain.PerformanceMetric, 0, len(inputs))
	for i, in := range inputs {
		if !in.MetricType.Valid() {
			return 0, fmt.Errorf("%w: metric %d has unsupported type %q", domain.ErrInvalidInput, i, in.MetricType)
		}
		ts, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("%w: metric %d has malformed timestamp %q", domain.ErrInvalidInput, i, in.Timestamp)
		}
		success := true
		if in.Success != nil {
			success = *in.Success
		}
		metrics = append(metrics, domain.PerformanceMetric{
			Timestamp:    ts.UTC(),
			KioskID:      in.KioskID,
			SessionID:    in.SessionID,
			MetricType:   in.MetricType,
			DurationMs:   in.DurationMs,
			Breakdown:    in.Breakdown,
			Context:      in.Context,
			Success:      success,
			ErrorMessage: in.ErrorMessage,
			CreatedAt:    now,
		})
	}

	if err := s.telemetry.InsertMetrics(ctx, metrics); err != nil {
		return 0, err
	}
	log.Debug().Int("count", len(metrics)).Msg("performance metrics ingested")
	return len(metrics), nil
}

// IngestErrors validates and stores a batch of error reports. Unrecognized
// categories fold into "unknown" rather than rejecting the report; losing a
// crash report over a category typo helps nobody.
func (s *TelemetryService) IngestErrors(ctx context.Context, inputs []ErrorReportInput) (int, error) {
	if len(inputs) == 0 {
		return 0, fmt.Errorf("%w: empty error batch", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	reports := make([]domain.ErrorReport, 0, len(inputs))
	for i, in := range inputs {
		if !in.Severity.Valid() {
			return 0, fmt.Errorf("%w: report %d has unsupported severity %q", domain.ErrInvalidInput, i, in.Severity)
		}
		ts, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("%w: report %d has malformed timestamp %q", domain.ErrInvalidInput, i, in.Timestamp)
		}
		category := in.Category
		if !category.Valid() {
			category = domain.CategoryUnknown
		}
		reports = append(reports, domain.ErrorReport{
			Timestamp:    ts.UTC(),
			KioskID:      in.KioskID,
			SessionID:    in.SessionID,
			Severity:     in.Severity,
			Category:     category,
			ErrorCode:    in.ErrorCode,
			ErrorMessage: in.ErrorMessage,
			StackTrace:   in.StackTrace,
			DeviceState:  in.DeviceState,
			AppVersion:   in.AppVersion,
			CreatedAt:    now,
		})
	}

	if err := s.telemetry.InsertErrors(ctx, reports); err != nil {
		return 0, err
	}
	log.Debug().Int("count", len(reports)).Msg("error reports ingested")
	return len(reports), nil
}
