package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanOperation names a balance-changing step recorded in a loan history.
type LoanOperation string

const (
	LoanOpCreate LoanOperation = "create"
	LoanOpDeduct LoanOperation = "deduct"
	LoanOpRevert LoanOperation = "revert"
	LoanOpDelete LoanOperation = "delete"
	LoanOpUpdate LoanOperation = "update"
)

// Time-of-day slots used for milk deliveries.
const (
	SlotMorning = "morning"
	SlotEvening = "evening"
)

// Farmer is the aggregate root of the ledger: it owns its loans and milk transactions.
type Farmer struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	FarmerID     int64     `json:"farmerId"`
	Name         string    `json:"farmerName"`
	MobileNumber string    `json:"mobileNumber"`
	Address      string    `json:"address"`
	MilkType     string    `json:"milkType"`
	Gender       string    `json:"gender"`
	JoiningDate  time.Time `json:"joiningDate"`

	TotalLoan          decimal.Decimal `json:"totalLoan"`
	TotalLoanPaidBack  decimal.Decimal `json:"totalLoanPaidBack"`
	TotalLoanRemaining decimal.Decimal `json:"totalLoanRemaining"`

	Loans        []Loan            `json:"loan"`
	Transactions []MilkTransaction `json:"transaction"`

	// Version is bumped on every successful save and checked to detect lost updates.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Loan is an advance against future milk payments.
type Loan struct {
	ID             string          `json:"id"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	LoanAmount     decimal.Decimal `json:"loanAmount"`
	LoanDate       time.Time       `json:"loanDate"`
	IsDeleted      bool            `json:"isDeleted"`
	History        []LoanEvent     `json:"history"`
}

// LoanEvent is one immutable audit row. LoanAmount is the balance after the
// operation and Delta the signed change it applied.
type LoanEvent struct {
	ChangedAt  time.Time       `json:"changedAt"`
	LoanDate   time.Time       `json:"loanDate"`
	LoanAmount decimal.Decimal `json:"loanAmount"`
	Delta      decimal.Decimal `json:"delta"`
	Operation  LoanOperation   `json:"operation"`
}

// Active reports whether the loan can still absorb milk payments.
func (l Loan) Active() bool {
	return !l.IsDeleted && l.LoanAmount.IsPositive()
}

// MilkTransaction is one milk delivery paid to the farmer.
type MilkTransaction struct {
	ID                string          `json:"id"`
	TransactionDate   time.Time       `json:"transactionDate"`
	TransactionTime   string          `json:"transactionTime"`
	MilkType          string          `json:"milkType"`
	MilkQuantity      decimal.Decimal `json:"milkQuantity"`
	Fat               decimal.Decimal `json:"fat"`
	SNF               decimal.Decimal `json:"snf"`
	PricePerLitre     decimal.Decimal `json:"pricePerLitre"`
	TransactionAmount decimal.Decimal `json:"transactionAmount"`
}

// Slot returns the delivery slot, falling back to the hour of the
// transaction date when no slot was recorded.
func (t MilkTransaction) Slot() string {
	switch normalizeLabel(t.TransactionTime) {
	case SlotMorning:
		return SlotMorning
	case SlotEvening:
		return SlotEvening
	}
	if t.TransactionDate.Hour() < 12 {
		return SlotMorning
	}
	return SlotEvening
}

// FindLoan returns the index of the loan with the given id, or -1.
func (f *Farmer) FindLoan(loanID string) int {
	for i := range f.Loans {
		if f.Loans[i].ID == loanID {
			return i
		}
	}
	return -1
}

// FindTransaction returns the index of the milk transaction with the given id, or -1.
func (f *Farmer) FindTransaction(transactionID string) int {
	for i := range f.Transactions {
		if f.Transactions[i].ID == transactionID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (f *Farmer) Clone() *Farmer {
	if f == nil {
		return nil
	}
	out := *f
	if f.Loans != nil {
		out.Loans = make([]Loan, len(f.Loans))
		for i, loan := range f.Loans {
			loan.History = append([]LoanEvent(nil), loan.History...)
			out.Loans[i] = loan
		}
	}
	out.Transactions = append([]MilkTransaction(nil), f.Transactions...)
	return &out
}
