package repository

import (
	"context"
	"time"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

// SalesRepository persists the monetary ledger and answers its grouping
// queries.
type SalesRepository interface {
	Create(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id string) (*domain.Sale, error)
	List(ctx context.Context, filter domain.SaleFilter, limit, offset int) ([]domain.Sale, int, error)

	// MarkRefunded flips a COMPLETED entry to REFUNDED, conditioned on the
	// status still being COMPLETED at write time. Returns false when the
	// condition no longer holds, so two concurrent refund attempts resolve
	// to exactly one winner.
	MarkRefunded(ctx context.Context, id string, at time.Time, reason, actor string, snapshot domain.RefundSnapshot) (bool, error)

	MonthlySettlement(ctx context.Context, period domain.Period, storeID string) ([]domain.MonthlySettlementRow, error)
	DomesticSettlement(ctx context.Context, period domain.Period, homeCountry string) ([]domain.DomesticSettlementRow, error)
	OverseasSettlement(ctx context.Context, period domain.Period, homeCountry string) ([]domain.OverseasSettlementRow, error)

	KioskSalesTotals(ctx context.Context, kioskID string, from, to time.Time) (*domain.SalesDayTotals, error)
}
