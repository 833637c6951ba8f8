package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type summaryRepository struct {
	db *DB
}

func NewSummaryRepository(db *DB) *summaryRepository {
	return &summaryRepository{db: db}
}

type summaryRow struct {
	SummaryDate time.Time `db:"summary_date"`
	KioskID     string    `db:"kiosk_id"`
	StoreID     string    `db:"store_id"`
	GroupID     string    `db:"group_id"`
	CountryCode string    `db:"country_code"`
	Sessions    []byte    `db:"sessions"`
	Funnel      []byte    `db:"funnel"`
	Sales       []byte    `db:"sales"`
	Performance []byte    `db:"performance"`
	Errors      []byte    `db:"errors"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func summaryFromRow(row *summaryRow) (*domain.DailySummary, error) {
	s := &domain.DailySummary{
		Date:        row.SummaryDate.UTC().Format("2006-01-02"),
		KioskID:     row.KioskID,
		StoreID:     row.StoreID,
		GroupID:     row.GroupID,
		CountryCode: row.CountryCode,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	for name, pair := range map[string]struct {
		src []byte
		dst any
	}{
		"sessions":    {row.Sessions, &s.Sessions},
		"funnel":      {row.Funnel, &s.Funnel},
		"sales":       {row.Sales, &s.Sales},
		"performance": {row.Performance, &s.Performance},
		"errors":      {row.Errors, &s.Errors},
	} {
		if err := json.Unmarshal(pair.src, pair.dst); err != nil {
			return nil, fmt.Errorf("unmarshal summary %s: %w", name, err)
		}
	}
	return s, nil
}

// Upsert fully replaces the document under (summary_date, kiosk_id). The
// last writer's whole replacement wins; there is no partial merge.
func (r *summaryRepository) Upsert(ctx context.Context, summary *domain.DailySummary) error {
	sessions, err := json.Marshal(summary.Sessions)
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	funnel, err := json.Marshal(summary.Funnel)
	if err != nil {
		return fmt.Errorf("marshal funnel: %w", err)
	}
	sales, err := json.Marshal(summary.Sales)
	if err != nil {
		return fmt.Errorf("marshal sales: %w", err)
	}
	performance, err := json.Marshal(summary.Performance)
	if err != nil {
		return fmt.Errorf("marshal performance: %w", err)
	}
	errStats, err := json.Marshal(summary.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (
			summary_date, kiosk_id, store_id, group_id, country_code,
			sessions, funnel, sales, performance, errors, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (summary_date, kiosk_id) DO UPDATE SET
			store_id = EXCLUDED.store_id,
			group_id = EXCLUDED.group_id,
			country_code = EXCLUDED.country_code,
			sessions = EXCLUDED.sessions,
			funnel = EXCLUDED.funnel,
			sales = EXCLUDED.sales,
			performance = EXCLUDED.performance,
			errors = EXCLUDED.errors,
			updated_at = now()`,
		summary.Date, summary.KioskID, summary.StoreID, summary.GroupID, summary.CountryCode,
		sessions, funnel, sales, performance, errStats)
	if err != nil {
		return fmt.Errorf("upsert daily summary: %w", err)
	}
	return nil
}

func (r *summaryRepository) Find(ctx context.Context, date, kioskID string) (*domain.DailySummary, error) {
	var row summaryRow
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM daily_summaries WHERE summary_date = $1 AND kiosk_id = $2`,
		date, kioskID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: summary %s/%s", domain.ErrNotFound, date, kioskID)
	}
	if err != nil {
		return nil, fmt.Errorf("find summary: %w", err)
	}
	return summaryFromRow(&row)
}

func (r *summaryRepository) List(ctx context.Context, filter domain.SummaryFilter, limit, offset int) ([]domain.DailySummary, int, error) {
	where := `
		WHERE ($1 = '' OR kiosk_id = $1)
		  AND ($2 = '' OR store_id = $2)
		  AND ($3 = '' OR summary_date >= $3::date)
		  AND ($4 = '' OR summary_date <= $4::date)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM daily_summaries `+where,
		filter.KioskID, filter.StoreID, filter.DateFrom, filter.DateTo); err != nil {
		return nil, 0, fmt.Errorf("count summaries: %w", err)
	}

	var rows []summaryRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM daily_summaries `+where+` ORDER BY summary_date DESC, kiosk_id LIMIT $5 OFFSET $6`,
		filter.KioskID, filter.StoreID, filter.DateFrom, filter.DateTo, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list summaries: %w", err)
	}

	summaries := make([]domain.DailySummary, 0, len(rows))
	for i := range rows {
		s, err := summaryFromRow(&rows[i])
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, *s)
	}
	return summaries, total, nil
}
