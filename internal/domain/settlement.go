package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinSettlementYear and MaxSettlementYear bound the accepted settlement
	// query range.
	MinSettlementYear = 2020
	MaxSettlementYear = 2100
)

// Period is a half-open UTC interval [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthlyPeriod builds the settlement period for one calendar month:
// [year-month-01T00:00:00Z, next-month-01T00:00:00Z).
func MonthlyPeriod(year, month int) (Period, error) {
	if year < MinSettlementYear || year > MaxSettlementYear {
		return Period{}, fmt.Errorf("%w: year %d out of range [%d, %d]",
			ErrInvalidInput, year, MinSettlementYear, MaxSettlementYear)
	}
	if month < 1 || month > 12 {
		return Period{}, fmt.Errorf("%w: month %d out of range [1, 12]", ErrInvalidInput, month)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// Contains reports whether t falls inside the half-open interval.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// StoreSettlementConfig is the per-store fee configuration, read-only to
// this core. Defaults apply when a store has no configured rate.
type StoreSettlementConfig struct {
	ServerFeeRate *float64 `json:"serverFeeRate"`
	VATEnabled    bool     `json:"vatEnabled"`
}

// Raw grouping rows as returned by the settlement queries, before fee
// configuration is applied.

type MonthlySettlementRow struct {
	StoreID          string          `db:"store_id"`
	StoreName        string          `db:"store_name"`
	CompletedAmount  decimal.Decimal `db:"completed_amount"`
	RefundedAmount   decimal.Decimal `db:"refunded_amount"`
	TransactionCount int             `db:"transaction_count"`
	RefundCount      int             `db:"refund_count"`
}

type DomesticSettlementRow struct {
	StoreID          string          `db:"store_id"`
	StoreName        string          `db:"store_name"`
	Revenue          decimal.Decimal `db:"revenue"`
	PopupRevenue     decimal.Decimal `db:"popup_revenue"`
	BeautyFee        decimal.Decimal `db:"beauty_fee"`
	TransactionCount int             `db:"transaction_count"`
}

type OverseasSettlementRow struct {
	StoreID          string          `db:"store_id"`
	StoreName        string          `db:"store_name"`
	CountryCode      string          `db:"country_code"`
	Currency         Currency        `db:"currency"`
	LocalRevenue     decimal.Decimal `db:"local_revenue"`
	RevenueKRW       decimal.Decimal `db:"revenue_krw"`
	TransactionCount int             `db:"transaction_count"`
}

// Derived settlement report rows. Money is rendered as exact decimal
// strings; these are never persisted.

type MonthlySettlement struct {
	StoreID          string `json:"storeId"`
	StoreName        string `json:"storeName"`
	CompletedAmount  string `json:"completedAmount"`
	RefundedAmount   string `json:"refundedAmount"`
	NetAmount        string `json:"netAmount"`
	ServerFee        string `json:"serverFee"`
	TransactionCount int    `json:"transactionCount"`
	RefundCount      int    `json:"refundCount"`
}

type DomesticSettlement struct {
	StoreID          string `json:"storeId"`
	StoreName        string `json:"storeName"`
	Revenue          string `json:"revenue"`
	PopupRevenue     string `json:"popupRevenue"`
	BeautyFee        string `json:"beautyFee"`
	ServerFee        string `json:"serverFee"`
	TransactionCount int    `json:"transactionCount"`
}

type OverseasSettlement struct {
	StoreID          string   `json:"storeId"`
	StoreName        string   `json:"storeName"`
	Country          string   `json:"country"`
	Currency         Currency `json:"currency"`
	LocalRevenue     string   `json:"localRevenue"`
	RevenueKRW       string   `json:"revenueKRW"`
	ServerFee        string   `json:"serverFee"`
	TransactionCount int      `json:"transactionCount"`
}
