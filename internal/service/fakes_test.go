package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

// In-memory repository implementations backing the service tests. They
// mirror the query semantics of the postgres layer closely enough to
// exercise the services' aggregation and state-machine logic.

type fakeSalesRepo struct {
	mu    sync.Mutex
	sales map[string]*domain.Sale
}

func newFakeSalesRepo() *fakeSalesRepo {
	return &fakeSalesRepo{sales: map[string]*domain.Sale{}}
}

func (r *fakeSalesRepo) Create(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sales {
		if existing.Store.ID == sale.Store.ID && existing.TransactionID == sale.TransactionID {
			return fmt.Errorf("%w: duplicate transaction %s", domain.ErrInvalidInput, sale.TransactionID)
		}
	}
	cp := *sale
	r.sales[sale.ID] = &cp
	return nil
}

func (r *fakeSalesRepo) FindByID(_ context.Context, id string) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	cp := *sale
	return &cp, nil
}

func (r *fakeSalesRepo) List(_ context.Context, filter domain.SaleFilter, limit, offset int) ([]domain.Sale, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Sale
	for _, sale := range r.sales {
		if filter.StoreID != "" && sale.Store.ID != filter.StoreID {
			continue
		}
		if filter.KioskID != "" && sale.Kiosk.ID != filter.KioskID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		if filter.From != nil && sale.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !sale.Timestamp.Before(*filter.To) {
			continue
		}
		matched = append(matched, *sale)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeSalesRepo) MarkRefunded(_ context.Context, id string, at time.Time, reason, actor string, snapshot domain.RefundSnapshot) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok {
		return false, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	if sale.Status != domain.SaleCompleted {
		return false, nil
	}
	sale.Status = domain.SaleRefunded
	sale.RefundedAt = &at
	sale.RefundReason = reason
	sale.RefundedBy = actor
	sale.RefundSnapshot = &snapshot
	sale.UpdatedAt = at
	return true, nil
}

func (r *fakeSalesRepo) MonthlySettlement(_ context.Context, period domain.Period, storeID string) ([]domain.MonthlySettlementRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := map[string]*domain.MonthlySettlementRow{}
	for _, sale := range r.sales {
		if storeID != "" && sale.Store.ID != storeID {
			continue
		}
		row := rows[sale.Store.ID]
		if row == nil {
			row = &domain.MonthlySettlementRow{StoreID: sale.Store.ID, StoreName: sale.Store.Name}
			rows[sale.Store.ID] = row
		}
		if sale.Status == domain.SaleCompleted && period.Contains(sale.Timestamp) {
			row.CompletedAmount = row.CompletedAmount.Add(sale.AmountKRW)
			row.TransactionCount++
		}
		if sale.Status == domain.SaleRefunded && sale.RefundedAt != nil && period.Contains(*sale.RefundedAt) {
			row.RefundedAmount = row.RefundedAmount.Add(sale.AmountKRW)
			row.RefundCount++
		}
	}
	return sortedMonthlyRows(rows), nil
}

func sortedMonthlyRows(rows map[string]*domain.MonthlySettlementRow) []domain.MonthlySettlementRow {
	out := make([]domain.MonthlySettlementRow, 0, len(rows))
	for _, row := range rows {
		if row.TransactionCount == 0 && row.RefundCount == 0 {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out
}

func (r *fakeSalesRepo) DomesticSettlement(_ context.Context, period domain.Period, homeCountry string) ([]domain.DomesticSettlementRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := map[string]*domain.DomesticSettlementRow{}
	for _, sale := range r.sales {
		if sale.Status != domain.SaleCompleted || sale.Country.Code != homeCountry || !period.Contains(sale.Timestamp) {
			continue
		}
		row := rows[sale.Store.ID]
		if row == nil {
			row = &domain.DomesticSettlementRow{StoreID: sale.Store.ID, StoreName: sale.Store.Name}
			rows[sale.Store.ID] = row
		}
		row.Revenue = row.Revenue.Add(sale.AmountKRW)
		row.TransactionCount++
		if sale.Popup != nil {
			row.PopupRevenue = row.PopupRevenue.Add(sale.AmountKRW)
		}
		if sale.Services != nil && sale.Services.Beauty != nil && sale.Services.Beauty.Used {
			row.BeautyFee = row.BeautyFee.Add(sale.Services.Beauty.Fee)
		}
	}
	out := make([]domain.DomesticSettlementRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out, nil
}

func (r *fakeSalesRepo) OverseasSettlement(_ context.Context, period domain.Period, homeCountry string) ([]domain.OverseasSettlementRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := map[string]*domain.OverseasSettlementRow{}
	for _, sale := range r.sales {
		if sale.Status != domain.SaleCompleted || sale.Country.Code == homeCountry || !period.Contains(sale.Timestamp) {
			continue
		}
		row := rows[sale.Store.ID]
		if row == nil {
			row = &domain.OverseasSettlementRow{
				StoreID:     sale.Store.ID,
				StoreName:   sale.Store.Name,
				CountryCode: sale.Country.Code,
				Currency:    sale.Currency,
			}
			rows[sale.Store.ID] = row
		}
		row.LocalRevenue = row.LocalRevenue.Add(sale.Amount)
		row.RevenueKRW = row.RevenueKRW.Add(sale.AmountKRW)
		row.TransactionCount++
	}
	out := make([]domain.OverseasSettlementRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StoreID < out[j].StoreID })
	return out, nil
}

func (r *fakeSalesRepo) KioskSalesTotals(_ context.Context, kioskID string, from, to time.Time) (*domain.SalesDayTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &domain.SalesDayTotals{}
	for _, sale := range r.sales {
		if sale.Kiosk.ID != kioskID {
			continue
		}
		inWindow := !sale.Timestamp.Before(from) && !sale.Timestamp.After(to)
		if sale.Status == domain.SaleCompleted && inWindow {
			totals.TotalCount++
			totals.TotalAmount = totals.TotalAmount.Add(sale.AmountKRW)
			switch sale.Payment.Type {
			case domain.PaymentCash:
				totals.CashCount++
				totals.CashAmount = totals.CashAmount.Add(sale.AmountKRW)
			case domain.PaymentCard:
				totals.CardCount++
				totals.CardAmount = totals.CardAmount.Add(sale.AmountKRW)
			}
		}
		if sale.Status == domain.SaleRefunded && sale.RefundedAt != nil &&
			!sale.RefundedAt.Before(from) && !sale.RefundedAt.After(to) {
			totals.RefundCount++
			totals.RefundAmount = totals.RefundAmount.Add(sale.AmountKRW)
		}
	}
	return totals, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]*domain.Session{}}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; ok {
		return fmt.Errorf("%w: duplicate session %s", domain.ErrInvalidInput, session.SessionID)
	}
	cp := *session
	r.sessions[session.SessionID] = &cp
	return nil
}

func (r *fakeSessionRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}
	cp := *session
	return &cp, nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.SessionID]; !ok {
		return fmt.Errorf("%w: session %s", domain.ErrNotFound, session.SessionID)
	}
	cp := *session
	r.sessions[session.SessionID] = &cp
	return nil
}

func (r *fakeSessionRepo) List(_ context.Context, filter domain.SessionFilter, limit, offset int) ([]domain.Session, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.Session
	for _, session := range r.sessions {
		if filter.KioskID != "" && session.KioskID != filter.KioskID {
			continue
		}
		if filter.StoreID != "" && session.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		matched = append(matched, *session)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartedAt.After(matched[j].StartedAt) })
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeSessionRepo) LatestByKiosk(_ context.Context, kioskID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *domain.Session
	for _, session := range r.sessions {
		if session.KioskID != kioskID {
			continue
		}
		if latest == nil || session.StartedAt.After(latest.StartedAt) {
			latest = session
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("%w: no sessions for kiosk %s", domain.ErrNotFound, kioskID)
	}
	cp := *latest
	return &cp, nil
}

func (r *fakeSessionRepo) ActiveKiosks(_ context.Context, from, to time.Time, kioskID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	for _, session := range r.sessions {
		if kioskID != "" && session.KioskID != kioskID {
			continue
		}
		if session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}
		seen[session.KioskID] = true
	}
	kiosks := make([]string, 0, len(seen))
	for id := range seen {
		kiosks = append(kiosks, id)
	}
	sort.Strings(kiosks)
	return kiosks, nil
}

func (r *fakeSessionRepo) KioskSessionStats(_ context.Context, kioskID string, from, to time.Time) (*domain.SessionDayStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.SessionDayStats{}
	var durSum float64
	var durCount int
	for _, session := range r.sessions {
		if session.KioskID != kioskID || session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}
		stats.Total++
		switch session.Status {
		case domain.SessionCompleted:
			stats.Completed++
		case domain.SessionAbandoned:
			stats.Abandoned++
		case domain.SessionTimeout:
			stats.Timeout++
		}
		if session.DurationMs != nil {
			durSum += float64(*session.DurationMs)
			durCount++
		}
	}
	if durCount > 0 {
		stats.AvgDurationMs = durSum / float64(durCount)
	}
	return stats, nil
}

func (r *fakeSessionRepo) KioskFunnelCounts(_ context.Context, kioskID string, from, to time.Time) (*domain.FunnelDayCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &domain.FunnelDayCounts{}
	for _, session := range r.sessions {
		if session.KioskID != kioskID || session.StartedAt.Before(from) || session.StartedAt.After(to) {
			continue
		}
		reached := func(stage domain.FunnelStage) bool {
			return session.Funnel.Stages[stage].Reached
		}
		if reached(domain.StageAttract) {
			counts.Attract++
		}
		if reached(domain.StageEngage) {
			counts.Engage++
		}
		if reached(domain.StageCustomize) {
			counts.Customize++
		}
		if reached(domain.StageCapture) {
			counts.Capture++
		}
		if reached(domain.StageEdit) {
			counts.Edit++
		}
		if reached(domain.StageCheckout) {
			counts.Checkout++
		}
		if reached(domain.StagePayment) {
			counts.Payment++
		}
		if reached(domain.StageFulfill) {
			counts.Fulfill++
		}
	}
	return counts, nil
}

type fakeTelemetryRepo struct {
	mu      sync.Mutex
	metrics []domain.PerformanceMetric
	errors  []domain.ErrorReport
}

func newFakeTelemetryRepo() *fakeTelemetryRepo {
	return &fakeTelemetryRepo{}
}

func (r *fakeTelemetryRepo) InsertMetrics(_ context.Context, metrics []domain.PerformanceMetric) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, metrics...)
	return nil
}

func (r *fakeTelemetryRepo) InsertErrors(_ context.Context, reports []domain.ErrorReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, reports...)
	return nil
}

func (r *fakeTelemetryRepo) MetricDurations(_ context.Context, kioskID string, metric domain.MetricType, from, to time.Time) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var durations []int64
	for _, m := range r.metrics {
		if m.KioskID != kioskID || m.MetricType != metric || !m.Success {
			continue
		}
		if m.Timestamp.Before(from) || m.Timestamp.After(to) {
			continue
		}
		durations = append(durations, m.DurationMs)
	}
	return durations, nil
}

func (r *fakeTelemetryRepo) KioskErrorCounts(_ context.Context, kioskID string, from, to time.Time) (*domain.ErrorDayCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := &domain.ErrorDayCounts{
		BySeverity: map[domain.ErrorSeverity]int{},
		ByCategory: map[domain.ErrorCategory]int{},
	}
	for _, e := range r.errors {
		if e.KioskID != kioskID || e.Timestamp.Before(from) || e.Timestamp.After(to) {
			continue
		}
		counts.Total++
		counts.BySeverity[e.Severity]++
		counts.ByCategory[e.Category]++
	}
	return counts, nil
}

type fakeSummaryRepo struct {
	mu        sync.Mutex
	summaries map[string]*domain.DailySummary
	upserts   int
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{summaries: map[string]*domain.DailySummary{}}
}

func summaryKey(date, kioskID string) string {
	return date + "|" + kioskID
}

func (r *fakeSummaryRepo) Upsert(_ context.Context, summary *domain.DailySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *summary
	r.summaries[summaryKey(summary.Date, summary.KioskID)] = &cp
	r.upserts++
	return nil
}

func (r *fakeSummaryRepo) Find(_ context.Context, date, kioskID string) (*domain.DailySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.summaries[summaryKey(date, kioskID)]
	if !ok {
		return nil, fmt.Errorf("%w: summary %s/%s", domain.ErrNotFound, date, kioskID)
	}
	cp := *summary
	return &cp, nil
}

func (r *fakeSummaryRepo) List(_ context.Context, filter domain.SummaryFilter, limit, offset int) ([]domain.DailySummary, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []domain.DailySummary
	for _, summary := range r.summaries {
		if filter.KioskID != "" && summary.KioskID != filter.KioskID {
			continue
		}
		if filter.StoreID != "" && summary.StoreID != filter.StoreID {
			continue
		}
		if filter.DateFrom != "" && summary.Date < filter.DateFrom {
			continue
		}
		if filter.DateTo != "" && summary.Date > filter.DateTo {
			continue
		}
		matched = append(matched, *summary)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Date != matched[j].Date {
			return matched[i].Date > matched[j].Date
		}
		return matched[i].KioskID < matched[j].KioskID
	})
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

type fakeStoreRepo struct {
	mu      sync.Mutex
	kiosks  map[string]*domain.Kiosk
	configs map[string]domain.StoreSettlementConfig
}

func newFakeStoreRepo() *fakeStoreRepo {
	return &fakeStoreRepo{
		kiosks:  map[string]*domain.Kiosk{},
		configs: map[string]domain.StoreSettlementConfig{},
	}
}

func (r *fakeStoreRepo) SettlementConfigs(_ context.Context, storeIDs []string) (map[string]domain.StoreSettlementConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]domain.StoreSettlementConfig{}
	for _, id := range storeIDs {
		if cfg, ok := r.configs[id]; ok {
			out[id] = cfg
		}
	}
	return out, nil
}

func (r *fakeStoreRepo) FindKiosk(_ context.Context, kioskID string) (*domain.Kiosk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kiosk, ok := r.kiosks[kioskID]
	if !ok {
		return nil, fmt.Errorf("%w: kiosk %s", domain.ErrNotFound, kioskID)
	}
	cp := *kiosk
	return &cp, nil
}

type fakeReportCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	invalidations int
}

func newFakeReportCache() *fakeReportCache {
	return &fakeReportCache{entries: map[string][]byte{}}
}

func (c *fakeReportCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	return raw, ok, nil
}

func (c *fakeReportCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeReportCache) InvalidateAll(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]byte{}
	c.invalidations++
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
