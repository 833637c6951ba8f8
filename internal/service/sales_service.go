package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/snapframe/kiosk-analytics/internal/cache"
	"github.com/snapframe/kiosk-analytics/internal/domain"
	"github.com/snapframe/kiosk-analytics/internal/repository"
)

// SalesService owns the monetary ledger: recording entries, the refund
// transition, and serialization of exact amounts for the API.
type SalesService struct {
	sales repository.SalesRepository
	cache cache.ReportCache
}

func NewSalesService(sales repository.SalesRepository, reportCache cache.ReportCache) *SalesService {
	return &SalesService{sales: sales, cache: reportCache}
}

type CreateSaleDiscountInput struct {
	Roulette   string `json:"roulette"`
	Coupon     string `json:"coupon"`
	CouponCode string `json:"couponCode"`
}

type CreateSaleServiceInput struct {
	Used bool   `json:"used"`
	Fee  string `json:"fee"`
}

type CreateSaleServicesInput struct {
	Beauty *CreateSaleServiceInput `json:"beauty"`
	AI     *CreateSaleServiceInput `json:"ai"`
}

type CreateSaleAmountsInput struct {
	Gross    string          `json:"gross"`
	Discount string          `json:"discount"`
	Tax      string          `json:"tax"`
	Net      string          `json:"net"`
	Margin   string          `json:"margin"`
	Currency domain.Currency `json:"currency"`
}

type CreateSaleSettlementInput struct {
	Status        domain.SettlementStatus `json:"status"`
	ScheduledDate string                  `json:"scheduledDate"`
}

type CreateSaleProductInput struct {
	Type              domain.ProductType `json:"type"`
	FrameDesign       string             `json:"frameDesign"`
	FrameFormat       domain.FrameFormat `json:"frameFormat"`
	PrintCount        int                `json:"printCount"`
	IsAdditionalPrint bool               `json:"isAdditionalPrint"`
}

type CreateSaleInput struct {
	Timestamp     string                   `json:"timestamp" binding:"required"`
	SessionID     string                   `json:"sessionId" binding:"required"`
	TransactionID string                   `json:"transactionId" binding:"required"`
	Store         domain.StoreRef          `json:"store" binding:"required"`
	Kiosk         domain.KioskRef          `json:"kiosk" binding:"required"`
	Country       domain.CountryRef        `json:"country" binding:"required"`
	Amount        string                   `json:"amount" binding:"required"`
	Currency      domain.Currency          `json:"currency" binding:"required"`
	ExchangeRate  string                   `json:"exchangeRate"`
	AmountKRW     string                   `json:"amountKRW" binding:"required"`
	RateDate      string                   `json:"rateDate" binding:"required"`
	RateSource    domain.RateSource        `json:"rateSource"`
	Payment       domain.PaymentInfo       `json:"payment" binding:"required"`
	Product       CreateSaleProductInput   `json:"product" binding:"required"`
	Discount      *CreateSaleDiscountInput `json:"discount"`
	Popup         *domain.PopupAttribution `json:"popup"`
	Services      *CreateSaleServicesInput `json:"services"`
	Amounts       *CreateSaleAmountsInput  `json:"amounts"`
	Settlement    *CreateSaleSettlementInput `json:"settlement"`
}

func (in *CreateSaleInput) validate() error {
	if !in.Currency.Valid() {
		return fmt.Errorf("%w: unsupported currency %q", domain.ErrInvalidInput, in.Currency)
	}
	if !in.Payment.Type.Valid() {
		return fmt.Errorf("%w: unsupported payment type %q", domain.ErrInvalidInput, in.Payment.Type)
	}
	if !in.Product.Type.Valid() {
		return fmt.Errorf("%w: unsupported product type %q", domain.ErrInvalidInput, in.Product.Type)
	}
	if !in.Product.FrameFormat.Valid() {
		return fmt.Errorf("%w: unsupported frame format %q", domain.ErrInvalidInput, in.Product.FrameFormat)
	}
	return nil
}

// Record persists a new ledger entry with status COMPLETED. Enum validation
// rejects before any write; malformed money coerces to zero per the API
// contract.
func (s *SalesService) Record(ctx context.Context, in CreateSaleInput) (*domain.Sale, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339, in.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed timestamp %q", domain.ErrInvalidInput, in.Timestamp)
	}
	rateDate, err := time.Parse(time.RFC3339, in.RateDate)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed rate date %q", domain.ErrInvalidInput, in.RateDate)
	}

	now := time.Now().UTC()

	sale := &domain.Sale{
		ID:            uuid.NewString(),
		TransactionID: in.TransactionID,
		SessionID:     in.SessionID,
		Timestamp:     ts.UTC(),
		Store:         in.Store,
		Kiosk:         in.Kiosk,
		Country:       in.Country,
		Amount:        domain.ParseAmount(in.Amount),
		Currency:      in.Currency,
		ExchangeRate:  domain.ParseAmount(in.ExchangeRate),
		AmountKRW:     domain.ParseAmount(in.AmountKRW),
		RateDate:      rateDate.UTC(),
		RateSource:    in.RateSource,
		Payment:       in.Payment,
		Status:        domain.SaleCompleted,
		Product: domain.ProductInfo{
			Type:              in.Product.Type,
			FrameDesign:       in.Product.FrameDesign,
			FrameFormat:       in.Product.FrameFormat,
			PrintCount:        in.Product.PrintCount,
			IsAdditionalPrint: in.Product.IsAdditionalPrint,
		},
		Popup:         in.Popup,
		TimeDimension: domain.NewTimeDimension(ts),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if in.ExchangeRate == "" {
		sale.ExchangeRate = domain.ParseAmount("1")
	}
	if sale.RateSource == "" {
		sale.RateSource = domain.RateSourceFirebase
	}
	if sale.Product.PrintCount == 0 {
		sale.Product.PrintCount = 1
	}

	if in.Discount != nil {
		sale.Discount = &domain.Discount{
			Roulette:   domain.ParseAmount(in.Discount.Roulette),
			Coupon:     domain.ParseAmount(in.Discount.Coupon),
			CouponCode: in.Discount.CouponCode,
		}
	}
	if in.Services != nil {
		fees := &domain.ServiceFees{}
		if in.Services.Beauty != nil {
			fees.Beauty = &domain.ServiceFee{Used: in.Services.Beauty.Used, Fee: domain.ParseAmount(in.Services.Beauty.Fee)}
		}
		if in.Services.AI != nil {
			fees.AI = &domain.ServiceFee{Used: in.Services.AI.Used, Fee: domain.ParseAmount(in.Services.AI.Fee)}
		}
		if fees.Beauty != nil || fees.AI != nil {
			sale.Services = fees
		}
	}
	if in.Amounts != nil {
		sale.Amounts = &domain.AmountBreakdown{
			Gross:    domain.ParseAmount(in.Amounts.Gross),
			Discount: domain.ParseAmount(in.Amounts.Discount),
			Tax:      domain.ParseAmount(in.Amounts.Tax),
			Net:      domain.ParseAmount(in.Amounts.Net),
			Margin:   domain.ParseAmount(in.Amounts.Margin),
			Currency: in.Amounts.Currency,
		}
	}
	if in.Settlement != nil {
		scheduled, err := time.Parse(time.RFC3339, in.Settlement.ScheduledDate)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed settlement date %q", domain.ErrInvalidInput, in.Settlement.ScheduledDate)
		}
		sale.Settlement = &domain.SettlementInfo{
			Status:        in.Settlement.Status,
			ScheduledDate: scheduled.UTC(),
		}
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		return nil, err
	}

	log.Info().
		Str("sale_id", sale.ID).
		Str("store_id", sale.Store.ID).
		Str("kiosk_id", sale.Kiosk.ID).
		Str("amount_krw", domain.AmountString(sale.AmountKRW)).
		Msg("sale recorded")

	return sale, nil
}

func (s *SalesService) Get(ctx context.Context, id string) (*domain.Sale, error) {
	return s.sales.FindByID(ctx, id)
}

// ListFilter is the external query form of a ledger listing: timestamps
// arrive as RFC3339 strings.
type ListFilter struct {
	StoreID string
	KioskID string
	Status  string
	From    string
	To      string
}

func (s *SalesService) List(ctx context.Context, in ListFilter, limit, offset int) ([]*SaleResponse, int, error) {
	filter := domain.SaleFilter{
		StoreID: in.StoreID,
		KioskID: in.KioskID,
	}
	if in.Status != "" {
		status := domain.SaleStatus(in.Status)
		if !status.Valid() {
			return nil, 0, fmt.Errorf("%w: unsupported status %q", domain.ErrInvalidInput, in.Status)
		}
		filter.Status = status
	}
	if in.From != "" {
		from, err := time.Parse(time.RFC3339, in.From)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed from %q", domain.ErrInvalidInput, in.From)
		}
		t := from.UTC()
		filter.From = &t
	}
	if in.To != "" {
		to, err := time.Parse(time.RFC3339, in.To)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: malformed to %q", domain.ErrInvalidInput, in.To)
		}
		t := to.UTC()
		filter.To = &t
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	sales, total, err := s.sales.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]*SaleResponse, 0, len(sales))
	for i := range sales {
		responses = append(responses, s.Serialize(&sales[i]))
	}
	return responses, total, nil
}

// Refund transitions a COMPLETED entry to REFUNDED, stamping the audit
// block and the write-once snapshot of the pre-refund amounts. The write is
// conditioned on the status still being COMPLETED, so concurrent refund
// attempts resolve to exactly one winner.
func (s *SalesService) Refund(ctx context.Context, id, reason, actor string) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if sale.Status != domain.SaleCompleted {
		return nil, fmt.Errorf("%w: only completed sales can be refunded, sale %s is %s",
			domain.ErrInvalidState, id, sale.Status)
	}

	snapshot := domain.RefundSnapshot{
		OriginalAmount:    sale.Amount,
		OriginalAmountKRW: sale.AmountKRW,
		OriginalStatus:    sale.Status,
	}

	ok, err := s.sales.MarkRefunded(ctx, id, time.Now().UTC(), reason, actor, snapshot)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost the race against a concurrent refund.
		return nil, fmt.Errorf("%w: sale %s is no longer refundable", domain.ErrInvalidState, id)
	}

	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate settlement report cache after refund")
	}

	log.Info().Str("sale_id", id).Str("actor", actor).Msg("sale refunded")

	return s.sales.FindByID(ctx, id)
}

type DiscountResponse struct {
	Roulette   string `json:"roulette"`
	Coupon     string `json:"coupon"`
	CouponCode string `json:"couponCode,omitempty"`
}

type ServiceFeeResponse struct {
	Used bool   `json:"used"`
	Fee  string `json:"fee"`
}

type ServiceFeesResponse struct {
	Beauty *ServiceFeeResponse `json:"beauty,omitempty"`
	AI     *ServiceFeeResponse `json:"ai,omitempty"`
}

type AmountBreakdownResponse struct {
	Gross    string          `json:"gross"`
	Discount string          `json:"discount"`
	Tax      string          `json:"tax"`
	Net      string          `json:"net"`
	Margin   string          `json:"margin"`
	Currency domain.Currency `json:"currency"`
}

type RefundSnapshotResponse struct {
	OriginalAmount    string            `json:"originalAmount"`
	OriginalAmountKRW string            `json:"originalAmountKRW"`
	OriginalStatus    domain.SaleStatus `json:"originalStatus"`
}

// SaleResponse is the external form of a ledger entry: every monetary field
// rendered as an exact decimal string.
type SaleResponse struct {
	*domain.Sale
	Amount         string                   `json:"amount"`
	ExchangeRate   string                   `json:"exchangeRate"`
	AmountKRW      string                   `json:"amountKRW"`
	Discount       *DiscountResponse        `json:"discount,omitempty"`
	Services       *ServiceFeesResponse     `json:"services,omitempty"`
	Amounts        *AmountBreakdownResponse `json:"amounts,omitempty"`
	RefundSnapshot *RefundSnapshotResponse  `json:"refundSnapshot,omitempty"`
}

// Serialize converts exact decimal fields to their canonical string form.
func (s *SalesService) Serialize(sale *domain.Sale) *SaleResponse {
	resp := &SaleResponse{
		Sale:         sale,
		Amount:       domain.AmountString(sale.Amount),
		ExchangeRate: domain.AmountString(sale.ExchangeRate),
		AmountKRW:    domain.AmountString(sale.AmountKRW),
	}

	if sale.Discount != nil {
		resp.Discount = &DiscountResponse{
			Roulette:   domain.AmountString(sale.Discount.Roulette),
			Coupon:     domain.AmountString(sale.Discount.Coupon),
			CouponCode: sale.Discount.CouponCode,
		}
	}
	if sale.Services != nil {
		fees := &ServiceFeesResponse{}
		if sale.Services.Beauty != nil {
			fees.Beauty = &ServiceFeeResponse{Used: sale.Services.Beauty.Used, Fee: domain.AmountString(sale.Services.Beauty.Fee)}
		}
		if sale.Services.AI != nil {
			fees.AI = &ServiceFeeResponse{Used: sale.Services.AI.Used, Fee: domain.AmountString(sale.Services.AI.Fee)}
		}
		resp.Services = fees
	}
	if sale.Amounts != nil {
		resp.Amounts = &AmountBreakdownResponse{
			Gross:    domain.AmountString(sale.Amounts.Gross),
			Discount: domain.AmountString(sale.Amounts.Discount),
			Tax:      domain.AmountString(sale.Amounts.Tax),
			Net:      domain.AmountString(sale.Amounts.Net),
			Margin:   domain.AmountString(sale.Amounts.Margin),
			Currency: sale.Amounts.Currency,
		}
	}
	if sale.RefundSnapshot != nil {
		resp.RefundSnapshot = &RefundSnapshotResponse{
			OriginalAmount:    domain.AmountString(sale.RefundSnapshot.OriginalAmount),
			OriginalAmountKRW: domain.AmountString(sale.RefundSnapshot.OriginalAmountKRW),
			OriginalStatus:    sale.RefundSnapshot.OriginalStatus,
		}
	}

	return resp
}
