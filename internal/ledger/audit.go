package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// ErrInvariant is returned when a farmer aggregate no longer balances.
var ErrInvariant = errors.New("ledger invariant violated")

// InvariantError names the broken rule and the values involved.
type InvariantError struct {
	FarmerID string
	LoanID   string
	Rule     string
	Want     decimal.Decimal
	Got      decimal.Decimal
}

func (e *InvariantError) Error() string {
	if e.LoanID != "" {
		return fmt.Sprintf("farmer %s loan %s: %s (want %s, got %s)", e.FarmerID, e.LoanID, e.Rule, e.Want, e.Got)
	}
	return fmt.Sprintf("farmer %s: %s (want %s, got %s)", e.FarmerID, e.Rule, e.Want, e.Got)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

// ReplayHistory folds the deltas of a loan history in order. Every row's
// snapshot must match the running balance.
func ReplayHistory(history []models.LoanEvent) (decimal.Decimal, error) {
	balance := decimal.Zero
	for i, ev := range history {
		balance = balance.Add(ev.Delta)
		if !balance.Equal(ev.LoanAmount) {
			return balance, fmt.Errorf("history row %d (%s): replayed %s, recorded %s: %w",
				i, ev.Operation, balance, ev.LoanAmount, ErrInvariant)
		}
	}
	return balance, nil
}

// Verify checks money conservation and non-negativity on a farmer aggregate
// and that every loan history replays to its current balance.
func Verify(f *models.Farmer) error {
	outstanding := decimal.Zero
	for _, loan := range f.Loans {
		if loan.LoanAmount.IsNegative() {
			return &InvariantError{FarmerID: f.ID, LoanID: loan.ID, Rule: "loan balance is negative", Want: decimal.Zero, Got: loan.LoanAmount}
		}
		if loan.IsDeleted && !loan.LoanAmount.IsZero() {
			return &InvariantError{FarmerID: f.ID, LoanID: loan.ID, Rule: "closed loan keeps a balance", Want: decimal.Zero, Got: loan.LoanAmount}
		}
		replayed, err := ReplayHistory(loan.History)
		if err != nil {
			return fmt.Errorf("farmer %s loan %s: %w", f.ID, loan.ID, err)
		}
		if !replayed.Equal(loan.LoanAmount) {
			return &InvariantError{FarmerID: f.ID, LoanID: loan.ID, Rule: "history does not replay to balance", Want: loan.LoanAmount, Got: replayed}
		}
		if !loan.IsDeleted {
			outstanding = outstanding.Add(loan.LoanAmount)
		}
	}

	if f.TotalLoanPaidBack.IsNegative() {
		return &InvariantError{FarmerID: f.ID, Rule: "paid back total is negative", Want: decimal.Zero, Got: f.TotalLoanPaidBack}
	}
	if f.TotalLoanRemaining.IsNegative() {
		return &InvariantError{FarmerID: f.ID, Rule: "remaining total is negative", Want: decimal.Zero, Got: f.TotalLoanRemaining}
	}
	if !f.TotalLoanRemaining.Equal(outstanding) {
		return &InvariantError{FarmerID: f.ID, Rule: "remaining total differs from open loans", Want: outstanding, Got: f.TotalLoanRemaining}
	}
	if sum := f.TotalLoanPaidBack.Add(f.TotalLoanRemaining); !sum.Equal(f.TotalLoan) {
		return &InvariantError{FarmerID: f.ID, Rule: "paid back plus remaining differs from total loan", Want: f.TotalLoan, Got: sum}
	}
	return nil
}
