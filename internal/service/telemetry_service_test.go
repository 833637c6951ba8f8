package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

func TestIngestMetrics(t *testing.T) {
	repo := newFakeTelemetryRepo()
	svc := NewTelemetryService(repo)

	count, err := svc.IngestMetrics(context.Background(), []MetricInput{
		{
			Timestamp:  "2025-06-15T10:00:00Z",
			KioskID:    "kiosk-1",
			MetricType: domain.MetricCapture,
			DurationMs: 1200,
		},
		{
			Timestamp:  "2025-06-15T10:01:00Z",
			KioskID:    "kiosk-1",
			MetricType: domain.MetricPrint,
			DurationMs: 8000,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Success defaults to true when the client omits it.
	assert.True(t, repo.metrics[0].Success)
}

func TestIngestMetricsAtomicBatch(t *testing.T) {
	repo := newFakeTelemetryRepo()
	svc := NewTelemetryService(repo)

	_, err := svc.IngestMetrics(context.Background(), []MetricInput{
		{Timestamp: "2025-06-15T10:00:00Z", KioskID: "kiosk-1", MetricType: domain.MetricCapture},
		{Timestamp: "2025-06-15T10:01:00Z", KioskID: "kiosk-1", MetricType: "teleport"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, repo.metrics, "a bad record rejects the whole batch")

	_, err = svc.IngestMetrics(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestErrors(t *testing.T) {
	repo := newFakeTelemetryRepo()
	svc := NewTelemetryService(repo)

	count, err := svc.IngestErrors(context.Background(), []ErrorReportInput{
		{
			Timestamp: "2025-06-15T10:00:00Z",
			KioskID:   "kiosk-1",
			Severity:  domain.SeverityCritical,
			Category:  domain.CategoryHardware,
			ErrorCode: "PRINTER_JAM",
		},
		{
			Timestamp: "2025-06-15T10:05:00Z",
			KioskID:   "kiosk-1",
			Severity:  domain.SeverityWarning,
			Category:  "gremlins",
			ErrorCode: "MYSTERY",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Unknown categories fold into unknown instead of dropping the report.
	assert.Equal(t, domain.CategoryUnknown, repo.errors[1].Category)
}

func TestIngestErrorsRejectsBadSeverity(t *testing.T) {
	repo := newFakeTelemetryRepo()
	svc := NewTelemetryService(repo)

	_, err := svc.IngestErrors(context.Background(), []ErrorReportInput{
		{Timestamp: "2025-06-15T10:00:00Z", KioskID: "kiosk-1", Severity: "catastrophic", ErrorCode: "X"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, repo.errors)
}
