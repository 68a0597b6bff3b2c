package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanSummary is the per-farmer row pushed by the weekly export.
type LoanSummary struct {
	OwnerID            string          `json:"ownerId"`
	FarmerID           int64           `json:"farmerId"`
	FarmerName         string          `json:"farmerName"`
	MobileNumber       string          `json:"mobileNumber"`
	TotalLoan          decimal.Decimal `json:"totalLoan"`
	TotalLoanPaidBack  decimal.Decimal `json:"totalLoanPaidBack"`
	TotalLoanRemaining decimal.Decimal `json:"totalLoanRemaining"`
	OpenLoans          int             `json:"openLoans"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}
