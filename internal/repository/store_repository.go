package repository

import (
	"context"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

// StoreRepository reads the store directory and per-store settlement
// configuration. Both are maintained elsewhere; this core only reads them.
type StoreRepository interface {
	SettlementConfigs(ctx context.Context, storeIDs []string) (map[string]domain.StoreSettlementConfig, error)
	FindKiosk(ctx context.Context, kioskID string) (*domain.Kiosk, error)
}
