package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/repository"
	"github.com/snapframe/kiosk-analytics/internal/stats"
)

const summaryDateLayout = "2006-01-02"

// RollupService materializes the daily per-kiosk summaries. One run covers
// one calendar day; kiosks are aggregated in bounded concurrent batches and
// a failed kiosk never aborts the run.
type RollupService struct {
	sessions  repository.SessionRepository
	sales     repository.SalesRepository
	telemetry repository.TelemetryRepository
	summaries repository.SummaryRepository
	stores    repository.StoreRepository

	batchSize int
}

func NewRollupService(
	sessions repository.SessionRepository,
	sales repository.SalesRepository,
	telemetry repository.TelemetryRepository,
	summaries repository.SummaryRepository,
	stores repository.StoreRepository,
	batchSize int,
) *RollupService {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &RollupService{
		sessions:  sessions,
		sales:     sales,
		telemetry: telemetry,
		summaries: summaries,
		stores:    stores,
		batchSize: batchSize,
	}
}

// Aggregate runs the rollup for one UTC day. When kioskID is non-empty the
// run is restricted to that kiosk. Re-running a day replaces the previous
// summaries wholesale, so the operation is safe to repeat.
func (s *RollupService) Aggregate(ctx context.Context, date, kioskID string) (*domain.RollupResult, error) {
	day, err := time.ParseInLocation(summaryDateLayout, date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed date %q, want YYYY-MM-DD", domain.ErrInvalidInput, date)
	}

	from := day
	to := day.Add(24*time.Hour - time.Millisecond)

	kiosks, err := s.sessions.ActiveKiosks(ctx, from, to, kioskID)
	if err != nil {
		return nil, fmt.Errorf("list active kiosks: %w", err)
	}

	result := &domain.RollupResult{Date: date}
	if len(kiosks) == 0 {
		log.Info().Str("date", date).Msg("no active kiosks, nothing to aggregate")
		return result, nil
	}

	log.Info().Str("date", date).Int("kiosks", len(kiosks)).Int("batch_size", s.batchSize).Msg("rollup started")

	for start := 0; start < len(kiosks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(kiosks) {
			end = len(kiosks)
		}
		batch := kiosks[start:end]

		errs := make([]error, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				errs[i] = s.aggregateKiosk(ctx, date, id, from, to)
			}(i, id)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				result.Failed++
				log.Error().Err(err).Str("date", date).Str("kiosk_id", batch[i]).Msg("kiosk aggregation failed")
				continue
			}
			result.Processed++
			result.Kiosks = append(result.Kiosks, batch[i])
		}
	}

	log.Info().Str("date", date).Int("processed", result.Processed).Int("failed", result.Failed).Msg("rollup finished")
	return result, nil
}

// Summary returns the stored summary for one kiosk and day.
func (s *RollupService) Summary(ctx context.Context, date, kioskID string) (*domain.DailySummary, error) {
	if _, err := time.ParseInLocation(summaryDateLayout, date, time.UTC); err != nil {
		return nil, fmt.Errorf("%w: malformed date %q, want YYYY-MM-DD", domain.ErrInvalidInput, date)
	}
	return s.summaries.Find(ctx, date, kioskID)
}

// Summaries lists stored summaries matching the filter.
func (s *RollupService) Summaries(ctx context.Context, filter domain.SummaryFilter, limit, offset int) ([]domain.DailySummary, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.summaries.List(ctx, filter, limit, offset)
}

func (s *RollupService) aggregateKiosk(ctx context.Context, date, kioskID string, from, to time.Time) error {
	var (
		sessionStats *domain.SessionDayStats
		funnelCounts *domain.FunnelDayCounts
		salesTotals  *domain.SalesDayTotals
		perfStats    domain.PerformanceStats
		errorCounts  *domain.ErrorDayCounts
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		sessionStats, err = s.sessions.KioskSessionStats(gctx, kioskID, from, to)
		if err != nil {
			return fmt.Errorf("session stats: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		funnelCounts, err = s.sessions.KioskFunnelCounts(gctx, kioskID, from, to)
		if err != nil {
			return fmt.Errorf("funnel counts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		salesTotals, err = s.sales.KioskSalesTotals(gctx, kioskID, from, to)
		if err != nil {
			return fmt.Errorf("sales totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		for _, metric := range domain.SummaryMetricTypes {
			durations, err := s.telemetry.MetricDurations(gctx, kioskID, metric, from, to)
			if err != nil {
				return fmt.Errorf("durations for %s: %w", metric, err)
			}
			setPercentiles(&perfStats, metric, domain.LatencyPercentiles{
				P50: stats.Percentile(durations, 50),
				P95: stats.Percentile(durations, 95),
				P99: stats.Percentile(durations, 99),
			})
		}
		return nil
	})
	g.Go(func() error {
		var err error
		errorCounts, err = s.telemetry.KioskErrorCounts(gctx, kioskID, from, to)
		if err != nil {
			return fmt.Errorf("error counts: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	kctx := s.kioskContext(ctx, kioskID)
	now := time.Now().UTC()

	summary := &domain.DailySummary{
		Date:        date,
		KioskID:     kioskID,
		StoreID:     kctx.StoreID,
		GroupID:     kctx.GroupID,
		CountryCode: kctx.CountryCode,
		Sessions:    buildSessionStats(sessionStats),
		Funnel:      buildFunnelStats(funnelCounts),
		Sales:       buildSalesStats(salesTotals),
		Performance: perfStats,
		Errors:      buildErrorStats(errorCounts),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.summaries.Upsert(ctx, summary); err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}

// kioskContext resolves the store/group/country context for a summary. The
// kiosk directory is authoritative; kiosks missing from it fall back to the
// latest session seen, then to unknown. A resolution failure never fails the
// aggregation.
func (s *RollupService) kioskContext(ctx context.Context, kioskID string) domain.KioskContext {
	if kiosk, err := s.stores.FindKiosk(ctx, kioskID); err == nil {
		return domain.KioskContext{
			StoreID:     kiosk.StoreID,
			GroupID:     domain.UnknownContext,
			CountryCode: kiosk.CountryCode,
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("kiosk_id", kioskID).Msg("kiosk directory lookup failed")
	}

	if session, err := s.sessions.LatestByKiosk(ctx, kioskID); err == nil {
		return domain.KioskContext{
			StoreID:     orUnknown(session.StoreID),
			GroupID:     orUnknown(session.GroupID),
			CountryCode: orUnknown(session.CountryCode),
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Str("kiosk_id", kioskID).Msg("latest session lookup failed")
	}

	return domain.KioskContext{
		StoreID:     domain.UnknownContext,
		GroupID:     domain.UnknownContext,
		CountryCode: domain.UnknownContext,
	}
}

func orUnknown(v string) string {
	if v == "" {
		return domain.UnknownContext
	}
	return v
}

func buildSessionStats(in *domain.SessionDayStats) domain.SessionStats {
	return domain.SessionStats{
		Total:         in.Total,
		Completed:     in.Completed,
		Abandoned:     in.Abandoned,
		Timeout:       in.Timeout,
		AvgDurationMs: int64(in.AvgDurationMs),
	}
}

func buildFunnelStats(in *domain.FunnelDayCounts) domain.FunnelStats {
	out := domain.FunnelStats{
		Attract:   in.Attract,
		Engage:    in.Engage,
		Customize: in.Customize,
		Capture:   in.Capture,
		Edit:      in.Edit,
		Checkout:  in.Checkout,
		Payment:   in.Payment,
		Fulfill:   in.Fulfill,
	}
	if in.Attract > 0 {
		out.ConversionRate = stats.Round4(float64(in.Fulfill) / float64(in.Attract))
	}
	return out
}

func buildSalesStats(in *domain.SalesDayTotals) domain.SalesStats {
	out := domain.SalesStats{
		TotalCount:   in.TotalCount,
		TotalAmount:  in.TotalAmount.Round(0).IntPart(),
		RefundCount:  in.RefundCount,
		RefundAmount: in.RefundAmount.Round(0).IntPart(),
		ByPaymentType: domain.PaymentSplit{
			Cash: domain.PaymentTypeStats{Count: in.CashCount, Amount: in.CashAmount.Round(0).IntPart()},
			Card: domain.PaymentTypeStats{Count: in.CardCount, Amount: in.CardAmount.Round(0).IntPart()},
		},
	}
	if in.TotalCount > 0 {
		out.AvgAmount = in.TotalAmount.Div(decimal.NewFromInt(int64(in.TotalCount))).Round(0).IntPart()
	}
	return out
}

func buildErrorStats(in *domain.ErrorDayCounts) domain.ErrorStats {
	return domain.ErrorStats{
		Total: in.Total,
		BySeverity: domain.ErrorsBySeverity{
			Critical: in.BySeverity[domain.SeverityCritical],
			Error:    in.BySeverity[domain.SeverityError],
			Warning:  in.BySeverity[domain.SeverityWarning],
		},
		ByCategory: domain.ErrorsByCategory{
			Hardware: in.ByCategory[domain.CategoryHardware],
			Software: in.ByCategory[domain.CategorySoftware],
			Network:  in.ByCategory[domain.CategoryNetwork],
			Payment:  in.ByCategory[domain.CategoryPayment],
		},
	}
}

func setPercentiles(p *domain.PerformanceStats, metric domain.MetricType, lp domain.LatencyPercentiles) {
	switch metric {
	case domain.MetricAppStart:
		p.AppStart = lp
	case domain.MetricCapture:
		p.Capture = lp
	case domain.MetricRender:
		p.Render = lp
	case domain.MetricPrint:
		p.Print = lp
	case domain.MetricPayment:
		p.Payment = lp
	}
}
