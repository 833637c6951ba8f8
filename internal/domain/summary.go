package domain

import "time"

type SessionStats struct {
	Total         int   `json:"total"`
	Completed     int   `json:"completed"`
	Abandoned     int   `json:"abandoned"`
	Timeout       int   `json:"timeout"`
	AvgDurationMs int64 `json:"avgDurationMs"`
}

type FunnelStats struct {
	Attract        int     `json:"attract"`
	Engage         int     `json:"engage"`
	Customize      int     `json:"customize"`
	Capture        int     `json:"capture"`
	Edit           int     `json:"edit"`
	Checkout       int     `json:"checkout"`
	Payment        int     `json:"payment"`
	Fulfill        int     `json:"fulfill"`
	ConversionRate float64 `json:"conversionRate"`
}

type PaymentTypeStats struct {
	Count  int   `json:"count"`
	Amount int64 `json:"amount"`
}

type PaymentSplit struct {
	Cash PaymentTypeStats `json:"cash"`
	Card PaymentTypeStats `json:"card"`
}

type SalesStats struct {
	TotalCount    int          `json:"totalCount"`
	TotalAmount   int64        `json:"totalAmount"`
	AvgAmount     int64        `json:"avgAmount"`
	ByPaymentType PaymentSplit `json:"byPaymentType"`
	RefundCount   int          `json:"refundCount"`
	RefundAmount  int64        `json:"refundAmount"`
}

type LatencyPercentiles struct {
	P50 int64 `json:"p50"`
	P95 int64 `json:"p95"`
	P99 int64 `json:"p99"`
}

type PerformanceStats struct {
	AppStart LatencyPercentiles `json:"appStart"`
	Capture  LatencyPercentiles `json:"capture"`
	Render   LatencyPercentiles `json:"render"`
	Print    LatencyPercentiles `json:"print"`
	Payment  LatencyPercentiles `json:"payment"`
}

type ErrorsBySeverity struct {
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warning  int `json:"warning"`
}

type ErrorsByCategory struct {
	Hardware int `json:"hardware"`
	Software int `json:"software"`
	Network  int `json:"network"`
	Payment  int `json:"payment"`
}

type ErrorStats struct {
	Total      int              `json:"total"`
	BySeverity ErrorsBySeverity `json:"bySeverity"`
	ByCategory ErrorsByCategory `json:"byCategory"`
}

// DailySummary is the denormalized once-per-kiosk-per-day aggregate. Keyed
// by (date, kioskId); every aggregation run fully replaces the previous
// document for that key.
type DailySummary struct {
	Date        string           `json:"date"`
	KioskID     string           `json:"kioskId"`
	StoreID     string           `json:"storeId"`
	GroupID     string           `json:"groupId"`
	CountryCode string           `json:"countryCode"`
	Sessions    SessionStats     `json:"sessions"`
	Funnel      FunnelStats      `json:"funnel"`
	Sales       SalesStats       `json:"sales"`
	Performance PerformanceStats `json:"performance"`
	Errors      ErrorStats       `json:"errors"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// SummaryFilter narrows daily summary listings.
type SummaryFilter struct {
	KioskID  string
	StoreID  string
	DateFrom string
	DateTo   string
}
