package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyVND Currency = "VND"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyKRW, CurrencyJPY, CurrencyUSD, CurrencyVND:
		return true
	}
	return false
}

type RateSource string

const (
	RateSourceFirebase    RateSource = "FIREBASE"
	RateSourceCached      RateSource = "CACHED"
	RateSourceAPIFallback RateSource = "API_FALLBACK"
)

type PaymentType string

const (
	PaymentCash PaymentType = "CASH"
	PaymentCard PaymentType = "CARD"
)

func (p PaymentType) Valid() bool {
	return p == PaymentCash || p == PaymentCard
}

type SaleStatus string

const (
	SaleCompleted SaleStatus = "COMPLETED"
	SaleFailed    SaleStatus = "FAILED"
	SaleRefunded  SaleStatus = "REFUNDED"
)

func (s SaleStatus) Valid() bool {
	switch s {
	case SaleCompleted, SaleFailed, SaleRefunded:
		return true
	}
	return false
}

type ProductType string

const (
	ProductPhoto   ProductType = "PHOTO"
	ProductBeauty  ProductType = "BEAUTY"
	ProductAI      ProductType = "AI"
	ProductFortune ProductType = "FORTUNE"
)

func (p ProductType) Valid() bool {
	switch p {
	case ProductPhoto, ProductBeauty, ProductAI, ProductFortune:
		return true
	}
	return false
}

type FrameFormat string

const (
	Frame3Cut FrameFormat = "3CUT"
	Frame4Cut FrameFormat = "4CUT"
	Frame6Cut FrameFormat = "6CUT"
	Frame8Cut FrameFormat = "8CUT"
)

func (f FrameFormat) Valid() bool {
	switch f {
	case Frame3Cut, Frame4Cut, Frame6Cut, Frame8Cut:
		return true
	}
	return false
}

type SettlementStatus string

const (
	SettlementPending  SettlementStatus = "PENDING"
	SettlementSettled  SettlementStatus = "SETTLED"
	SettlementDisputed SettlementStatus = "DISPUTED"
)

type StoreRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GroupID   string `json:"groupId,omitempty"`
	GroupName string `json:"groupName,omitempty"`
}

type KioskRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type CountryRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PaymentInfo carries the payment method plus whatever metadata the PG
// returned. Card fields stay empty for cash payments.
type PaymentInfo struct {
	Type              PaymentType `json:"type"`
	ReceiptNo         string      `json:"receiptNo,omitempty"`
	PGProvider        string      `json:"pgProvider,omitempty"`
	PGTransactionID   string      `json:"pgTransactionId,omitempty"`
	ApprovalNo        string      `json:"approvalNo,omitempty"`
	InstallmentMonths int         `json:"installmentMonths,omitempty"`
	TerminalID        string      `json:"terminalId,omitempty"`
	CardBrand         string      `json:"cardBrand,omitempty"`
	CardType          string      `json:"cardType,omitempty"`
	CardIssuer        string      `json:"cardIssuer,omitempty"`
	CardLast4         string      `json:"cardLast4,omitempty"`
	PGResponseCode    string      `json:"pgResponseCode,omitempty"`
	PGErrorMessage    string      `json:"pgErrorMessage,omitempty"`
}

type ProductInfo struct {
	Type              ProductType `json:"type"`
	FrameDesign       string      `json:"frameDesign"`
	FrameFormat       FrameFormat `json:"frameFormat"`
	PrintCount        int         `json:"printCount"`
	IsAdditionalPrint bool        `json:"isAdditionalPrint"`
}

type Discount struct {
	Roulette   decimal.Decimal `json:"roulette"`
	Coupon     decimal.Decimal `json:"coupon"`
	CouponCode string          `json:"couponCode,omitempty"`
}

type RevenueShare struct {
	StoreRate   float64 `json:"storeRate"`
	CorpRate    float64 `json:"corpRate"`
	LicenseRate float64 `json:"licenseRate"`
}

type PopupAttribution struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	CharacterID   string       `json:"characterId,omitempty"`
	CharacterName string       `json:"characterName,omitempty"`
	Revenue       RevenueShare `json:"revenue"`
}

type ServiceFee struct {
	Used bool            `json:"used"`
	Fee  decimal.Decimal `json:"fee"`
}

type ServiceFees struct {
	Beauty *ServiceFee `json:"beauty,omitempty"`
	AI     *ServiceFee `json:"ai,omitempty"`
}

// AmountBreakdown is the extended amount structure: gross price before
// discounts down to the margin kept by the head office.
type AmountBreakdown struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Net      decimal.Decimal `json:"net"`
	Margin   decimal.Decimal `json:"margin"`
	Currency Currency        `json:"currency"`
}

type SettlementInfo struct {
	Status        SettlementStatus `json:"status"`
	ScheduledDate time.Time        `json:"scheduledDate"`
	ProcessedAt   *time.Time       `json:"processedAt,omitempty"`
	BatchID       string           `json:"batchId,omitempty"`
}

// TimeDimension is precomputed at record time so reporting queries never
// redo calendar math.
type TimeDimension struct {
	Year      int `json:"year"`
	Month     int `json:"month"`
	Week      int `json:"week"`
	DayOfWeek int `json:"dayOfWeek"`
	Hour      int `json:"hour"`
	Quarter   int `json:"quarter"`
}

// NewTimeDimension derives the reporting dimensions from a UTC timestamp.
func NewTimeDimension(ts time.Time) TimeDimension {
	ts = ts.UTC()
	_, week := ts.ISOWeek()
	return TimeDimension{
		Year:      ts.Year(),
		Month:     int(ts.Month()),
		Week:      week,
		DayOfWeek: int(ts.Weekday()),
		Hour:      ts.Hour(),
		Quarter:   (int(ts.Month())-1)/3 + 1,
	}
}

// RefundSnapshot preserves the pre-refund amounts and status for audit.
// Written exactly once at refund time, never overwritten.
type RefundSnapshot struct {
	OriginalAmount    decimal.Decimal `json:"originalAmount"`
	OriginalAmountKRW decimal.Decimal `json:"originalAmountKRW"`
	OriginalStatus    SaleStatus      `json:"originalStatus"`
}

// Sale is one ledger entry: a completed or refunded point-of-sale
// transaction. Core fields are immutable after creation; the only permitted
// mutation is the COMPLETED -> REFUNDED transition.
type Sale struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transactionId"`
	SessionID     string    `json:"sessionId"`
	Timestamp     time.Time `json:"timestamp"`

	Store   StoreRef   `json:"store"`
	Kiosk   KioskRef   `json:"kiosk"`
	Country CountryRef `json:"country"`

	Amount       decimal.Decimal `json:"-"`
	Currency     Currency        `json:"currency"`
	ExchangeRate decimal.Decimal `json:"-"`
	AmountKRW    decimal.Decimal `json:"-"`
	RateDate     time.Time       `json:"rateDate"`
	RateSource   RateSource      `json:"rateSource"`

	Payment PaymentInfo `json:"payment"`
	Status  SaleStatus  `json:"status"`

	FailedAt   *time.Time `json:"failedAt,omitempty"`
	FailReason string     `json:"failReason,omitempty"`

	RefundedAt     *time.Time      `json:"refundedAt,omitempty"`
	RefundReason   string          `json:"refundReason,omitempty"`
	RefundedBy     string          `json:"refundedBy,omitempty"`
	RefundSnapshot *RefundSnapshot `json:"-"`

	Discount *Discount         `json:"-"`
	Product  ProductInfo       `json:"product"`
	Popup    *PopupAttribution `json:"popup,omitempty"`
	Services *ServiceFees      `json:"-"`

	Amounts    *AmountBreakdown `json:"-"`
	Settlement *SettlementInfo  `json:"settlement,omitempty"`

	TimeDimension TimeDimension `json:"timeDimension"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SaleFilter narrows ledger listings. Zero-value fields are ignored; From
// and To bound the transaction timestamp when set.
type SaleFilter struct {
	StoreID string
	KioskID string
	Status  SaleStatus
	From    *time.Time
	To      *time.Time
}
