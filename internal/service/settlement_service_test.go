package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snapframe/kiosk-analytics/internal/config"
	"github.com/snapframe/kiosk-analytics/internal/domain"
)

func settlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		HomeCountry:     "KOR",
		DomesticFeeRate: 0.07,
		OverseasFeeRate: 0.04,
	}
}

func recordSale(t *testing.T, svc *SalesService, mutate func(*CreateSaleInput)) *domain.Sale {
	t.Helper()
	in := validSaleInput()
	if mutate != nil {
		mutate(&in)
	}
	sale, err := svc.Record(context.Background(), in)
	require.NoError(t, err)
	return sale
}

func TestMonthlySettlementNetsRefunds(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	cache := newFakeReportCache()
	salesSvc := NewSalesService(salesRepo, cache)
	svc := NewSettlementService(salesRepo, newFakeStoreRepo(), cache, nil, settlementConfig())

	// Refund timestamps are stamped at refund time, so the whole scenario
	// lives in the current month.
	now := time.Now().UTC()
	ts := now.Format(time.RFC3339)

	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.Timestamp = ts
		in.TransactionID = "txn-a"
		in.AmountKRW = "100000"
	})
	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.Timestamp = ts
		in.TransactionID = "txn-b"
		in.AmountKRW = "50000"
	})
	refundTarget := recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.Timestamp = ts
		in.TransactionID = "txn-c"
		in.AmountKRW = "30000"
	})
	_, err := salesSvc.Refund(context.Background(), refundTarget.ID, "defective print", "admin")
	require.NoError(t, err)

	report, err := svc.Monthly(context.Background(), now.Year(), int(now.Month()), "")
	require.NoError(t, err)
	require.Len(t, report, 1)

	row := report[0]
	assert.Equal(t, "store-1", row.StoreID)
	assert.Equal(t, "150000", row.CompletedAmount)
	assert.Equal(t, "30000", row.RefundedAmount)
	assert.Equal(t, "120000", row.NetAmount)
	// Default 7% fee on the net amount.
	assert.Equal(t, "8400", row.ServerFee)
	assert.Equal(t, 2, row.TransactionCount)
	assert.Equal(t, 1, row.RefundCount)
}

func TestMonthlySettlementUsesStoreFeeOverride(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	storeRepo := newFakeStoreRepo()
	rate := 0.1
	storeRepo.configs["store-1"] = domain.StoreSettlementConfig{ServerFeeRate: &rate}

	salesSvc := NewSalesService(salesRepo, newFakeReportCache())
	svc := NewSettlementService(salesRepo, storeRepo, newFakeReportCache(), nil, settlementConfig())

	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.AmountKRW = "200000"
	})

	report, err := svc.Monthly(context.Background(), 2025, 6, "")
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "20000", report[0].ServerFee)
}

func TestMonthlySettlementRejectsBadPeriod(t *testing.T) {
	svc := NewSettlementService(newFakeSalesRepo(), newFakeStoreRepo(), newFakeReportCache(), nil, settlementConfig())

	_, err := svc.Monthly(context.Background(), 1999, 6, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Monthly(context.Background(), 2025, 13, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMonthlySettlementServedFromCache(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	cache := newFakeReportCache()
	salesSvc := NewSalesService(salesRepo, cache)
	svc := NewSettlementService(salesRepo, newFakeStoreRepo(), cache, nil, settlementConfig())

	recordSale(t, salesSvc, nil)

	first, err := svc.Monthly(context.Background(), 2025, 6, "")
	require.NoError(t, err)

	// A sale recorded after the report is cached is not visible until the
	// cache is invalidated.
	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.TransactionID = "txn-late"
	})

	second, err := svc.Monthly(context.Background(), 2025, 6, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, cache.InvalidateAll(context.Background()))

	third, err := svc.Monthly(context.Background(), 2025, 6, "")
	require.NoError(t, err)
	assert.Equal(t, 2, third[0].TransactionCount)
}

func TestDomesticSettlementHomeCountryOnly(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	salesSvc := NewSalesService(salesRepo, newFakeReportCache())
	svc := NewSettlementService(salesRepo, newFakeStoreRepo(), newFakeReportCache(), nil, settlementConfig())

	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.AmountKRW = "80000"
		in.Services = &CreateSaleServicesInput{
			Beauty: &CreateSaleServiceInput{Used: true, Fee: "3000"},
		}
	})
	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.TransactionID = "txn-jp"
		in.Store = domain.StoreRef{ID: "store-jp", Name: "Shibuya"}
		in.Country = domain.CountryRef{Code: "JPN", Name: "Japan"}
		in.Currency = domain.CurrencyJPY
		in.Amount = "1000"
		in.AmountKRW = "9150"
	})

	report, err := svc.Domestic(context.Background(), 2025, 6)
	require.NoError(t, err)
	require.Len(t, report, 1)

	row := report[0]
	assert.Equal(t, "store-1", row.StoreID)
	assert.Equal(t, "80000", row.Revenue)
	assert.Equal(t, "3000", row.BeautyFee)
	// Domestic fee applies to gross revenue, not net.
	assert.Equal(t, "5600", row.ServerFee)
}

func TestOverseasSettlementExcludesHomeCountry(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	salesSvc := NewSalesService(salesRepo, newFakeReportCache())
	svc := NewSettlementService(salesRepo, newFakeStoreRepo(), newFakeReportCache(), nil, settlementConfig())

	recordSale(t, salesSvc, nil)
	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.TransactionID = "txn-jp"
		in.Store = domain.StoreRef{ID: "store-jp", Name: "Shibuya"}
		in.Country = domain.CountryRef{Code: "JPN", Name: "Japan"}
		in.Currency = domain.CurrencyJPY
		in.Amount = "1500"
		in.ExchangeRate = "9.15"
		in.AmountKRW = "13725"
	})

	report, err := svc.Overseas(context.Background(), 2025, 6)
	require.NoError(t, err)
	require.Len(t, report, 1)

	row := report[0]
	assert.Equal(t, "store-jp", row.StoreID)
	assert.Equal(t, "JPN", row.Country)
	assert.Equal(t, domain.CurrencyJPY, row.Currency)
	assert.Equal(t, "1500", row.LocalRevenue)
	assert.Equal(t, "13725", row.RevenueKRW)
	// Overseas fee is 4% of the KRW revenue.
	assert.Equal(t, "549", row.ServerFee)
}

func TestExportMonthlyCSV(t *testing.T) {
	salesRepo := newFakeSalesRepo()
	salesSvc := NewSalesService(salesRepo, newFakeReportCache())
	svc := NewSettlementService(salesRepo, newFakeStoreRepo(), newFakeReportCache(), nil, settlementConfig())

	recordSale(t, salesSvc, func(in *CreateSaleInput) {
		in.AmountKRW = "100000"
	})

	data, err := svc.ExportMonthlyCSV(context.Background(), 2025, 6, "")
	require.NoError(t, err)

	csv := string(data)
	assert.Contains(t, csv, "store_id,store_name,completed_amount")
	assert.Contains(t, csv, "store-1,Gangnam,100000,0,100000,7000,1,0")
}
