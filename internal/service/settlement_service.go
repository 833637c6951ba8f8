package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/snapframe/kiosk-analytics/internal/cache"
	"github.com/snapframe/kiosk-analytics/internal/config"
	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/repository"
	"github.com/snapframe/kiosk-analytics/internal/storage"
)

// SettlementService derives the monthly, domestic and overseas settlement
// reports from the ledger. Reports are pure reads; nothing here mutates
// sales.
type SettlementService struct {
	sales   repository.SalesRepository
	stores  repository.StoreRepository
	cache   cache.ReportCache
	archive storage.ObjectStorage

	homeCountry     string
	domesticFeeRate float64
	overseasFeeRate float64
}

func NewSettlementService(
	sales repository.SalesRepository,
	stores repository.StoreRepository,
	reportCache cache.ReportCache,
	archive storage.ObjectStorage,
	cfg config.SettlementConfig,
) *SettlementService {
	return &SettlementService{
		sales:           sales,
		stores:          stores,
		cache:           reportCache,
		archive:         archive,
		homeCountry:     cfg.HomeCountry,
		domesticFeeRate: cfg.DomesticFeeRate,
		overseasFeeRate: cfg.OverseasFeeRate,
	}
}

func reportCacheKey(view string, year, month int, storeID string) string {
	if storeID == "" {
		storeID = "all"
	}
	return fmt.Sprintf("%s:%04d-%02d:%s", view, year, month, storeID)
}

func (s *SettlementService) fromCache(ctx context.Context, key string, out any) bool {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("settlement report cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding malformed cached report")
		return false
	}
	return true
}

func (s *SettlementService) toCache(ctx context.Context, key string, report any) {
	raw, err := json.Marshal(report)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("settlement report cache write failed")
	}
}

// storeFeeRate resolves the per-store fee rate, falling back to the supplied
// default when the store has no configured override.
func storeFeeRate(configs map[string]domain.StoreSettlementConfig, storeID string, fallback float64) decimal.Decimal {
	if cfg, ok := configs[storeID]; ok && cfg.ServerFeeRate != nil {
		return decimal.NewFromFloat(*cfg.ServerFeeRate)
	}
	return decimal.NewFromFloat(fallback)
}

// Monthly builds the per-store monthly settlement. Completed sales are
// included by transaction time, refunds by refund time, so a refund always
// lands in the month it was issued regardless of when the sale happened.
func (s *SettlementService) Monthly(ctx context.Context, year, month int, storeID string) ([]domain.MonthlySettlement, error) {
	period, err := domain.MonthlyPeriod(year, month)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey("monthly", year, month, storeID)
	var cached []domain.MonthlySettlement
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.sales.MonthlySettlement(ctx, period, storeID)
	if err != nil {
		return nil, fmt.Errorf("monthly settlement query: %w", err)
	}

	configs, err := s.feeConfigs(ctx, monthlyStoreIDs(rows))
	if err != nil {
		return nil, err
	}

	report := make([]domain.MonthlySettlement, 0, len(rows))
	for _, row := range rows {
		net := row.CompletedAmount.Sub(row.RefundedAmount)
		rate := storeFeeRate(configs, row.StoreID, s.domesticFeeRate)
		report = append(report, domain.MonthlySettlement{
			StoreID:          row.StoreID,
			StoreName:        row.StoreName,
			CompletedAmount:  domain.AmountString(row.CompletedAmount),
			RefundedAmount:   domain.AmountString(row.RefundedAmount),
			NetAmount:        domain.AmountString(net),
			ServerFee:        domain.AmountString(net.Mul(rate)),
			TransactionCount: row.TransactionCount,
			RefundCount:      row.RefundCount,
		})
	}

	s.toCache(ctx, key, report)
	return report, nil
}

// Domestic builds the home-country settlement: completed sales only, fee on
// gross revenue, with popup revenue and beauty fees broken out.
func (s *SettlementService) Domestic(ctx context.Context, year, month int) ([]domain.DomesticSettlement, error) {
	period, err := domain.MonthlyPeriod(year, month)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey("domestic", year, month, "")
	var cached []domain.DomesticSettlement
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.sales.DomesticSettlement(ctx, period, s.homeCountry)
	if err != nil {
		return nil, fmt.Errorf("domestic settlement query: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StoreID)
	}
	configs, err := s.feeConfigs(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := make([]domain.DomesticSettlement, 0, len(rows))
	for _, row := range rows {
		rate := storeFeeRate(configs, row.StoreID, s.domesticFeeRate)
		report = append(report, domain.DomesticSettlement{
			StoreID:          row.StoreID,
			StoreName:        row.StoreName,
			Revenue:          domain.AmountString(row.Revenue),
			PopupRevenue:     domain.AmountString(row.PopupRevenue),
			BeautyFee:        domain.AmountString(row.BeautyFee),
			ServerFee:        domain.AmountString(row.Revenue.Mul(rate)),
			TransactionCount: row.TransactionCount,
		})
	}

	s.toCache(ctx, key, report)
	return report, nil
}

// Overseas builds the settlement for every store outside the home country,
// reporting both local-currency and KRW revenue.
func (s *SettlementService) Overseas(ctx context.Context, year, month int) ([]domain.OverseasSettlement, error) {
	period, err := domain.MonthlyPeriod(year, month)
	if err != nil {
		return nil, err
	}

	key := reportCacheKey("overseas", year, month, "")
	var cached []domain.OverseasSettlement
	if s.fromCache(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.sales.OverseasSettlement(ctx, period, s.homeCountry)
	if err != nil {
		return nil, fmt.Errorf("overseas settlement query: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StoreID)
	}
	configs, err := s.feeConfigs(ctx, ids)
	if err != nil {
		return nil, err
	}

	report := make([]domain.OverseasSettlement, 0, len(rows))
	for _, row := range rows {
		rate := storeFeeRate(configs, row.StoreID, s.overseasFeeRate)
		report = append(report, domain.OverseasSettlement{
			StoreID:          row.StoreID,
			StoreName:        row.StoreName,
			Country:          row.CountryCode,
			Currency:         row.Currency,
			LocalRevenue:     domain.AmountString(row.LocalRevenue),
			RevenueKRW:       domain.AmountString(row.RevenueKRW),
			ServerFee:        domain.AmountString(row.RevenueKRW.Mul(rate)),
			TransactionCount: row.TransactionCount,
		})
	}

	s.toCache(ctx, key, report)
	return report, nil
}

// ExportMonthlyCSV renders the monthly report as CSV and, when an archive
// backend is configured, uploads it under settlements/YYYY/MM.csv. The CSV
// bytes are returned either way.
func (s *SettlementService) ExportMonthlyCSV(ctx context.Context, year, month int, storeID string) ([]byte, error) {
	report, err := s.Monthly(ctx, year, month, storeID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"store_id", "store_name", "completed_amount", "refunded_amount", "net_amount", "server_fee", "transaction_count", "refund_count"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range report {
		record := []string{
			row.StoreID,
			row.StoreName,
			row.CompletedAmount,
			row.RefundedAmount,
			row.NetAmount,
			row.ServerFee,
			strconv.Itoa(row.TransactionCount),
			strconv.Itoa(row.RefundCount),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	if s.archive != nil {
		key := fmt.Sprintf("settlements/%04d/%02d.csv", year, month)
		if err := s.archive.UploadObject(ctx, key, buf.Bytes()); err != nil {
			return nil, fmt.Errorf("archive settlement csv: %w", err)
		}
		log.Info().Str("key", key).Int("rows", len(report)).Msg("settlement csv archived")
	}

	return buf.Bytes(), nil
}

func (s *SettlementService) feeConfigs(ctx context.Context, storeIDs []string) (map[string]domain.StoreSettlementConfig, error) {
	if len(storeIDs) == 0 {
		return map[string]domain.StoreSettlementConfig{}, nil
	}
	configs, err := s.stores.SettlementConfigs(ctx, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("load store fee configs: %w", err)
	}
	return configs, nil
}

func monthlyStoreIDs(rows []domain.MonthlySettlementRow) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.StoreID)
	}
	return ids
}

// ParseSettlementMonth parses the year and month query values shared by the
// settlement endpoints.
func ParseSettlementMonth(yearStr, monthStr string) (int, int, error) {
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed year %q", domain.ErrInvalidInput, yearStr)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: malformed month %q", domain.ErrInvalidInput, monthStr)
	}
	if _, err := domain.MonthlyPeriod(year, month); err != nil {
		return 0, 0, err
	}
	return year, month, nil
}
