package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type storeRepository struct {
	db *DB
}

func NewStoreRepository(db *DB) *storeRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) SettlementConfigs(ctx context.Context, storeIDs []string) (map[string]domain.StoreSettlementConfig, error) {
	configs := make(map[string]domain.StoreSettlementConfig, len(storeIDs))
	if len(storeIDs) == 0 {
		return configs, nil
	}

	rows := []struct {
		ID            string   `db:"id"`
		ServerFeeRate *float64 `db:"server_fee_rate"`
		VATEnabled    bool     `db:"vat_enabled"`
	}{}
	query, args, err := sqlx.In(`SELECT id, server_fee_rate, vat_enabled FROM stores WHERE id IN (?)`, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("settlement configs: %w", err)
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("settlement configs: %w", err)
	}

	for _, row := range rows {
		configs[row.ID] = domain.StoreSettlementConfig{
			ServerFeeRate: row.ServerFeeRate,
			VATEnabled:    row.VATEnabled,
		}
	}
	return configs, nil
}

func (r *storeRepository) FindKiosk(ctx context.Context, kioskID string) (*domain.Kiosk, error) {
	var kiosk domain.Kiosk
	err := r.db.GetContext(ctx, &kiosk, `SELECT * FROM kiosks WHERE id = $1`, kioskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: kiosk %s", domain.ErrNotFound, kioskID)
	}
	if err != nil {
		return nil, fmt.Errorf("find kiosk: %w", err)
	}
	return &kiosk, nil
}
