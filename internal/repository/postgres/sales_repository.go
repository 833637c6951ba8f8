package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/snapframe/kiosk-analytics/internal/domain"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) *salesRepository {
	return &salesRepository{db: db}
}

type saleRow struct {
	ID            string          `db:"id"`
	TransactionID string          `db:"transaction_id"`
	SessionID     string          `db:"session_id"`
	Timestamp     time.Time       `db:"ts"`
	StoreID       string          `db:"store_id"`
	StoreName     string          `db:"store_name"`
	GroupID       string          `db:"group_id"`
	GroupName     string          `db:"group_name"`
	KioskID       string          `db:"kiosk_id"`
	KioskName     string          `db:"kiosk_name"`
	CountryCode   string          `db:"country_code"`
	CountryName   string          `db:"country_name"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	ExchangeRate  decimal.Decimal `db:"exchange_rate"`
	AmountKRW     decimal.Decimal `db:"amount_krw"`
	RateDate      time.Time       `db:"rate_date"`
	RateSource    string          `db:"rate_source"`
	PaymentType   string          `db:"payment_type"`
	Payment       []byte          `db:"payment"`
	Status        string          `db:"status"`
	FailedAt      *time.Time      `db:"failed_at"`
	FailReason    sql.NullString  `db:"fail_reason"`
	RefundedAt    *time.Time      `db:"refunded_at"`
	RefundReason  sql.NullString  `db:"refund_reason"`
	RefundedBy    sql.NullString  `db:"refunded_by"`

	RefundOriginalAmount    decimal.NullDecimal `db:"refund_original_amount"`
	RefundOriginalAmountKRW decimal.NullDecimal `db:"refund_original_amount_krw"`
	RefundOriginalStatus    sql.NullString      `db:"refund_original_status"`

	Discount   []byte              `db:"discount"`
	Product    []byte              `db:"product"`
	PopupID    sql.NullString      `db:"popup_id"`
	Popup      []byte              `db:"popup"`
	BeautyFee  decimal.NullDecimal `db:"beauty_fee"`
	Services   []byte              `db:"services"`
	Amounts    []byte              `db:"amounts"`
	Settlement []byte              `db:"settlement"`

	DimYear      int `db:"dim_year"`
	DimMonth     int `db:"dim_month"`
	DimWeek      int `db:"dim_week"`
	DimDayOfWeek int `db:"dim_day_of_week"`
	DimHour      int `db:"dim_hour"`
	DimQuarter   int `db:"dim_quarter"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func saleToRow(s *domain.Sale) (*saleRow, error) {
	row := &saleRow{
		ID:            s.ID,
		TransactionID: s.TransactionID,
		SessionID:     s.SessionID,
		Timestamp:     s.Timestamp,
		StoreID:       s.Store.ID,
		StoreName:     s.Store.Name,
		GroupID:       s.Store.GroupID,
		GroupName:     s.Store.GroupName,
		KioskID:       s.Kiosk.ID,
		KioskName:     s.Kiosk.Name,
		CountryCode:   s.Country.Code,
		CountryName:   s.Country.Name,
		Amount:        s.Amount,
		Currency:      string(s.Currency),
		ExchangeRate:  s.ExchangeRate,
		AmountKRW:     s.AmountKRW,
		RateDate:      s.RateDate,
		RateSource:    string(s.RateSource),
		PaymentType:   string(s.Payment.Type),
		Status:        string(s.Status),
		FailedAt:      s.FailedAt,
		FailReason:    nullString(s.FailReason),
		RefundedAt:    s.RefundedAt,
		RefundReason:  nullString(s.RefundReason),
		RefundedBy:    nullString(s.RefundedBy),
		DimYear:       s.TimeDimension.Year,
		DimMonth:      s.TimeDimension.Month,
		DimWeek:       s.TimeDimension.Week,
		DimDayOfWeek:  s.TimeDimension.DayOfWeek,
		DimHour:       s.TimeDimension.Hour,
		DimQuarter:    s.TimeDimension.Quarter,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}

	var err error
	if row.Payment, err = json.Marshal(s.Payment); err != nil {
		return nil, fmt.Errorf("marshal payment: %w", err)
	}
	if row.Product, err = json.Marshal(s.Product); err != nil {
		return nil, fmt.Errorf("marshal product: %w", err)
	}
	if s.Discount != nil {
		if row.Discount, err = json.Marshal(s.Discount); err != nil {
			return nil, fmt.Errorf("marshal discount: %w", err)
		}
	}
	if s.Popup != nil {
		row.PopupID = nullString(s.Popup.ID)
		if row.Popup, err = json.Marshal(s.Popup); err != nil {
			return nil, fmt.Errorf("marshal popup: %w", err)
		}
	}
	if s.Services != nil {
		if row.Services, err = json.Marshal(s.Services); err != nil {
			return nil, fmt.Errorf("marshal services: %w", err)
		}
		if s.Services.Beauty != nil {
			row.BeautyFee = decimal.NewNullDecimal(s.Services.Beauty.Fee)
		}
	}
	if s.Amounts != nil {
		if row.Amounts, err = json.Marshal(s.Amounts); err != nil {
			return nil, fmt.Errorf("marshal amounts: %w", err)
		}
	}
	if s.Settlement != nil {
		if row.Settlement, err = json.Marshal(s.Settlement); err != nil {
			return nil, fmt.Errorf("marshal settlement: %w", err)
		}
	}
	if s.RefundSnapshot != nil {
		row.RefundOriginalAmount = decimal.NewNullDecimal(s.RefundSnapshot.OriginalAmount)
		row.RefundOriginalAmountKRW = decimal.NewNullDecimal(s.RefundSnapshot.OriginalAmountKRW)
		row.RefundOriginalStatus = nullString(string(s.RefundSnapshot.OriginalStatus))
	}

	return row, nil
}

func saleFromRow(row *saleRow) (*domain.Sale, error) {
	s := &domain.Sale{
		ID:            row.ID,
		TransactionID: row.TransactionID,
		SessionID:     row.SessionID,
		Timestamp:     row.Timestamp,
		Store: domain.StoreRef{
			ID:        row.StoreID,
			Name:      row.StoreName,
			GroupID:   row.GroupID,
			GroupName: row.GroupName,
		},
		Kiosk:        domain.KioskRef{ID: row.KioskID, Name: row.KioskName},
		Country:      domain.CountryRef{Code: row.CountryCode, Name: row.CountryName},
		Amount:       row.Amount,
		Currency:     domain.Currency(row.Currency),
		ExchangeRate: row.ExchangeRate,
		AmountKRW:    row.AmountKRW,
		RateDate:     row.RateDate,
		RateSource:   domain.RateSource(row.RateSource),
		Status:       domain.SaleStatus(row.Status),
		FailedAt:     row.FailedAt,
		FailReason:   row.FailReason.String,
		RefundedAt:   row.RefundedAt,
		RefundReason: row.RefundReason.String,
		RefundedBy:   row.RefundedBy.String,
		TimeDimension: domain.TimeDimension{
			Year:      row.DimYear,
			Month:     row.DimMonth,
			Week:      row.DimWeek,
			DayOfWeek: row.DimDayOfWeek,
			Hour:      row.DimHour,
			Quarter:   row.DimQuarter,
		},
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}

	if err := json.Unmarshal(row.Payment, &s.Payment); err != nil {
		return nil, fmt.Errorf("unmarshal payment: %w", err)
	}
	if err := json.Unmarshal(row.Product, &s.Product); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	if len(row.Discount) > 0 {
		s.Discount = &domain.Discount{}
		if err := json.Unmarshal(row.Discount, s.Discount); err != nil {
			return nil, fmt.Errorf("unmarshal discount: %w", err)
		}
	}
	if len(row.Popup) > 0 {
		s.Popup = &domain.PopupAttribution{}
		if err := json.Unmarshal(row.Popup, s.Popup); err != nil {
			return nil, fmt.Errorf("unmarshal popup: %w", err)
		}
	}
	if len(row.Services) > 0 {
		s.Services = &domain.ServiceFees{}
		if err := json.Unmarshal(row.Services, s.Services); err != nil {
			return nil, fmt.Errorf("unmarshal services: %w", err)
		}
	}
	if len(row.Amounts) > 0 {
		s.Amounts = &domain.AmountBreakdown{}
		if err := json.Unmarshal(row.Amounts, s.Amounts); err != nil {
			return nil, fmt.Errorf("unmarshal amounts: %w", err)
		}
	}
	if len(row.Settlement) > 0 {
		s.Settlement = &domain.SettlementInfo{}
		if err := json.Unmarshal(row.Settlement, s.Settlement); err != nil {
			return nil, fmt.Errorf("unmarshal settlement: %w", err)
		}
	}
	if row.RefundOriginalStatus.Valid {
		s.RefundSnapshot = &domain.RefundSnapshot{
			OriginalAmount:    row.RefundOriginalAmount.Decimal,
			OriginalAmountKRW: row.RefundOriginalAmountKRW.Decimal,
			OriginalStatus:    domain.SaleStatus(row.RefundOriginalStatus.String),
		}
	}

	return s, nil
}

func (r *salesRepository) Create(ctx context.Context, sale *domain.Sale) error {
	row, err := saleToRow(sale)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sales (
			id, transaction_id, session_id, ts,
			store_id, store_name, group_id, group_name,
			kiosk_id, kiosk_name, country_code, country_name,
			amount, currency, exchange_rate, amount_krw, rate_date, rate_source,
			payment_type, payment, status,
			discount, product, popup_id, popup, beauty_fee, services,
			amounts, settlement,
			dim_year, dim_month, dim_week, dim_day_of_week, dim_hour, dim_quarter,
			created_at, updated_at
		) VALUES (
			:id, :transaction_id, :session_id, :ts,
			:store_id, :store_name, :group_id, :group_name,
			:kiosk_id, :kiosk_name, :country_code, :country_name,
			:amount, :currency, :exchange_rate, :amount_krw, :rate_date, :rate_source,
			:payment_type, :payment, :status,
			:discount, :product, :popup_id, :popup, :beauty_fee, :services,
			:amounts, :settlement,
			:dim_year, :dim_month, :dim_week, :dim_day_of_week, :dim_hour, :dim_quarter,
			:created_at, :updated_at
		)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("%w: transaction %s already recorded for store %s",
				domain.ErrInvalidInput, sale.TransactionID, sale.Store.ID)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	return nil
}

func (r *salesRepository) FindByID(ctx context.Context, id string) (*domain.Sale, error) {
	var row saleRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM sales WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: sale %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find sale: %w", err)
	}

	return saleFromRow(&row)
}

func (r *salesRepository) List(ctx context.Context, filter domain.SaleFilter, limit, offset int) ([]domain.Sale, int, error) {
	where := `WHERE ($1 = '' OR store_id = $1)
		AND ($2 = '' OR kiosk_id = $2)
		AND ($3 = '' OR status = $3)
		AND ($4::timestamptz IS NULL OR ts >= $4)
		AND ($5::timestamptz IS NULL OR ts < $5)`

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM sales `+where,
		filter.StoreID, filter.KioskID, string(filter.Status), filter.From, filter.To); err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	var rows []saleRow
	if err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM sales `+where+` ORDER BY ts DESC LIMIT $6 OFFSET $7`,
		filter.StoreID, filter.KioskID, string(filter.Status), filter.From, filter.To, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list sales: %w", err)
	}

	sales := make([]domain.Sale, 0, len(rows))
	for i := range rows {
		s, err := saleFromRow(&rows[i])
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *s)
	}
	return sales, total, nil
}

// MarkRefunded performs the conditional refund write. The status predicate
// makes it a compare-and-swap: of two concurrent refund attempts exactly one
// sees rows affected = 1.
func (r *salesRepository) MarkRefunded(ctx context.Context, id string, at time.Time, reason, actor string, snapshot domain.RefundSnapshot) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales SET
			status = $2,
			refunded_at = $3,
			refund_reason = $4,
			refunded_by = $5,
			refund_original_amount = $6,
			refund_original_amount_krw = $7,
			refund_original_status = $8,
			updated_at = now()
		WHERE id = $1 AND status = $9`,
		id,
		string(domain.SaleRefunded),
		at,
		reason,
		actor,
		snapshot.OriginalAmount,
		snapshot.OriginalAmountKRW,
		string(snapshot.OriginalStatus),
		string(domain.SaleCompleted),
	)
	if err != nil {
		return false, fmt.Errorf("mark refunded: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark refunded: %w", err)
	}
	return n == 1, nil
}

func (r *salesRepository) MonthlySettlement(ctx context.Context, period domain.Period, storeID string) ([]domain.MonthlySettlementRow, error) {
	query := `
		SELECT * FROM (
			SELECT
				store_id,
				MAX(store_name) AS store_name,
				COALESCE(SUM(amount_krw) FILTER (WHERE status = 'COMPLETED'), 0) AS completed_amount,
				COALESCE(SUM(refund_original_amount_krw) FILTER (WHERE status = 'REFUNDED'), 0) AS refunded_amount,
				COUNT(*) FILTER (WHERE status = 'COMPLETED') AS transaction_count,
				COUNT(*) FILTER (WHERE status = 'REFUNDED') AS refund_count
			FROM sales
			WHERE (
				(status = 'COMPLETED' AND ts >= $1 AND ts < $2)
				OR (status = 'REFUNDED' AND refunded_at >= $1 AND refunded_at < $2)
			)
			AND ($3 = '' OR store_id = $3)
			GROUP BY store_id
		) t
		ORDER BY (completed_amount - refunded_amount) DESC`

	rows := []domain.MonthlySettlementRow{}
	if err := r.db.SelectContext(ctx, &rows, query, period.Start, period.End, storeID); err != nil {
		return nil, fmt.Errorf("monthly settlement query: %w", err)
	}
	return rows, nil
}

func (r *salesRepository) DomesticSettlement(ctx context.Context, period domain.Period, homeCountry string) ([]domain.DomesticSettlementRow, error) {
	query := `
		SELECT * FROM (
			SELECT
				store_id,
				MAX(store_name) AS store_name,
				COALESCE(SUM(amount_krw), 0) AS revenue,
				COALESCE(SUM(amount_krw) FILTER (WHERE popup_id IS NOT NULL), 0) AS popup_revenue,
				COALESCE(SUM(beauty_fee), 0) AS beauty_fee,
				COUNT(*) AS transaction_count
			FROM sales
			WHERE status = 'COMPLETED'
			  AND ts >= $1 AND ts < $2
			  AND country_code = $3
			GROUP BY store_id
		) t
		ORDER BY revenue DESC`

	rows := []domain.DomesticSettlementRow{}
	if err := r.db.SelectContext(ctx, &rows, query, period.Start, period.End, homeCountry); err != nil {
		return nil, fmt.Errorf("domestic settlement query: %w", err)
	}
	return rows, nil
}

func (r *salesRepository) OverseasSettlement(ctx context.Context, period domain.Period, homeCountry string) ([]domain.OverseasSettlementRow, error) {
	query := `
		SELECT * FROM (
			SELECT
				store_id,
				MAX(store_name) AS store_name,
				MAX(country_code) AS country_code,
				MAX(currency) AS currency,
				COALESCE(SUM(amount), 0) AS local_revenue,
				COALESCE(SUM(amount_krw), 0) AS revenue_krw,
				COUNT(*) AS transaction_count
			FROM sales
			WHERE status = 'COMPLETED'
			  AND ts >= $1 AND ts < $2
			  AND country_code <> $3
			GROUP BY store_id
		) t
		ORDER BY revenue_krw DESC`

	rows := []domain.OverseasSettlementRow{}
	if err := r.db.SelectContext(ctx, &rows, query, period.Start, period.End, homeCountry); err != nil {
		return nil, fmt.Errorf("overseas settlement query: %w", err)
	}
	return rows, nil
}

func (r *salesRepository) KioskSalesTotals(ctx context.Context, kioskID string, from, to time.Time) (*domain.SalesDayTotals, error) {
	var totals domain.SalesDayTotals
	err := r.db.GetContext(ctx, &totals, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'COMPLETED') AS total_count,
			COALESCE(SUM(amount_krw) FILTER (WHERE status = 'COMPLETED'), 0) AS total_amount,
			COUNT(*) FILTER (WHERE status = 'COMPLETED' AND payment_type = 'CASH') AS cash_count,
			COALESCE(SUM(amount_krw) FILTER (WHERE status = 'COMPLETED' AND payment_type = 'CASH'), 0) AS cash_amount,
			COUNT(*) FILTER (WHERE status = 'COMPLETED' AND payment_type = 'CARD') AS card_count,
			COALESCE(SUM(amount_krw) FILTER (WHERE status = 'COMPLETED' AND payment_type = 'CARD'), 0) AS card_amount,
			0 AS refund_count,
			0 AS refund_amount
		FROM sales
		WHERE kiosk_id = $1 AND ts >= $2 AND ts <= $3`,
		kioskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("kiosk sales totals: %w", err)
	}

	var refunds struct {
		RefundCount  int             `db:"refund_count"`
		RefundAmount decimal.Decimal `db:"refund_amount"`
	}
	err = r.db.GetContext(ctx, &refunds, `
		SELECT
			COUNT(*) AS refund_count,
			COALESCE(SUM(amount_krw), 0) AS refund_amount
		FROM sales
		WHERE kiosk_id = $1 AND status = 'REFUNDED' AND refunded_at >= $2 AND refunded_at <= $3`,
		kioskID, from, to)
	if err != nil {
		return nil, fmt.Errorf("kiosk refund totals: %w", err)
	}

	totals.RefundCount = refunds.RefundCount
	totals.RefundAmount = refunds.RefundAmount
	return &totals, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
