package repository

import (
	"context"
	"time"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, session *domain.Session) error
	List(ctx context.Context, filter domain.SessionFilter, limit, offset int) ([]domain.Session, int, error)
	LatestByKiosk(ctx context.Context, kioskID string) (*domain.Session, error)

	// ActiveKiosks returns the distinct kiosk ids with a session started in
	// [from, to], optionally narrowed to one kiosk.
	ActiveKiosks(ctx context.Context, from, to time.Time, kioskID string) ([]string, error)
	KioskSessionStats(ctx context.Context, kioskID string, from, to time.Time) (*domain.SessionDayStats, error)
	KioskFunnelCounts(ctx context.Context, kioskID string, from, to time.Time) (*domain.FunnelDayCounts, error)
}
