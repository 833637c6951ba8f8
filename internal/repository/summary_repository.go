package repository

import (
	"context"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type SummaryRepository interface {
	// Upsert fully replaces the summary stored under (date, kioskId).
	Upsert(ctx context.Context, summary *domain.DailySummary) error
	Find(ctx context.Context, date, kioskID string) (*domain.DailySummary, error)
	List(ctx context.Context, filter domain.SummaryFilter, limit, offset int) ([]domain.DailySummary, int, error)
}
