package domain

import "github.com/shopspring/decimal"

// Raw per-kiosk per-day aggregation results as read from the store. The
// rollup service folds these into a DailySummary; ratios and rounding happen
// there, not in the queries.

type SessionDayStats struct {
	Total         int     `db:"total"`
	Completed     int     `db:"completed"`
	Abandoned     int     `db:"abandoned"`
	Timeout       int     `db:"timeout"`
	AvgDurationMs float64 `db:"avg_duration_ms"`
}

type FunnelDayCounts struct {
	Attract   int `db:"attract"`
	Engage    int `db:"engage"`
	Customize int `db:"customize"`
	Capture   int `db:"capture"`
	Edit      int `db:"edit"`
	Checkout  int `db:"checkout"`
	Payment   int `db:"payment"`
	Fulfill   int `db:"fulfill"`
}

type SalesDayTotals struct {
	TotalCount   int             `db:"total_count"`
	TotalAmount  decimal.Decimal `db:"total_amount"`
	CashCount    int             `db:"cash_count"`
	CashAmount   decimal.Decimal `db:"cash_amount"`
	CardCount    int             `db:"card_count"`
	CardAmount   decimal.Decimal `db:"card_amount"`
	RefundCount  int             `db:"refund_count"`
	RefundAmount decimal.Decimal `db:"refund_amount"`
}

type ErrorDayCounts struct {
	Total      int
	BySeverity map[ErrorSeverity]int
	ByCategory map[ErrorCategory]int
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	KioskID string
	StoreID string
	Status  SessionStatus
}

// RollupResult reports the outcome of one aggregation run. Failed counts
// kiosks whose aggregation errored; those never abort the run.
type RollupResult struct {
	Date      string   `json:"date"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Kiosks    []string `json:"kiosks,omitempty"`
}
