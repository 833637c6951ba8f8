package domain

import "time"

type GroupGrade string

const (
	GradeMaster GroupGrade = "MASTER"
	GradeHigh   GroupGrade = "HIGH"
	GradeMid    GroupGrade = "MID"
	GradeLow    GroupGrade = "LOW"
)

// Store is a franchise location operating one or more kiosks.
type Store struct {
	ID            string     `json:"id" db:"id"`
	Name          string     `json:"name" db:"name"`
	GroupID       string     `json:"groupId" db:"group_id"`
	GroupName     string     `json:"groupName" db:"group_name"`
	GroupGrade    GroupGrade `json:"groupGrade" db:"group_grade"`
	CountryCode   string     `json:"countryCode" db:"country_code"`
	CountryName   string     `json:"countryName" db:"country_name"`
	Currency      Currency   `json:"currency" db:"currency"`
	ServerFeeRate *float64   `json:"serverFeeRate" db:"server_fee_rate"`
	VATEnabled    bool       `json:"vatEnabled" db:"vat_enabled"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
}

// Kiosk is one unattended photo booth, registered in the kiosk directory.
type Kiosk struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	StoreID     string    `json:"storeId" db:"store_id"`
	StoreName   string    `json:"storeName" db:"store_name"`
	CountryCode string    `json:"countryCode" db:"country_code"`
	CountryName string    `json:"countryName" db:"country_name"`
	Currency    Currency  `json:"currency" db:"currency"`
	ProgramType string    `json:"programType" db:"program_type"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// UnknownContext marks store/group/country fields that could not be
// resolved; a missing directory entry must never fail an aggregation run.
const UnknownContext = "unknown"

// KioskContext is the store/group/country context stamped on a daily
// summary.
type KioskContext struct {
	StoreID     string
	GroupID     string
	CountryCode string
}
