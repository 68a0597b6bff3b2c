// Package ledger holds the loan reconciliation rules applied to a farmer
// aggregate. It is the only code allowed to touch loan balances and the
// three running totals of a farmer. Functions mutate the farmer in place;
// persisting the result atomically is up to the caller.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// Engine applies milk payments and administrative loan changes.
type Engine struct {
	now   func() time.Time
	newID func() string
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for history rows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how loan and transaction ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		if newID != nil {
			e.newID = newID
		}
	}
}

// NewEngine builds an Engine using wall-clock time and random UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocation reports what a single milk payment did to the loan ledger.
type Allocation struct {
	LoanID   string
	Deducted decimal.Decimal
	Income   decimal.Decimal
	Cleared  bool
}

// Allocate offsets a milk payment against the earliest open loan.
//
// Only one loan is ever touched. When the payment covers that loan's
// balance the loan is closed with a deduct row followed by a delete row and
// any surplus stays income.
func (e *Engine) Allocate(f *models.Farmer, amount decimal.Decimal) (Allocation, error) {
	if amount.IsNegative() {
		return Allocation{}, models.AmountInvalid("transactionAmount", "must not be negative")
	}

	result := Allocation{Income: amount}
	idx := firstOpenLoan(f)
	if idx < 0 || amount.IsZero() {
		return result, nil
	}

	loan := &f.Loans[idx]
	deducted := decimal.Min(amount, loan.LoanAmount)
	e.deduct(f, loan, deducted, e.now())

	result.LoanID = loan.ID
	result.Deducted = deducted
	result.Income = amount.Sub(deducted)
	result.Cleared = loan.IsDeleted
	return result, nil
}

// Revision reports the ledger effect of changing a milk payment amount.
type Revision struct {
	Difference decimal.Decimal
	Deducted   decimal.Decimal
	Reverted   decimal.Decimal
	LoanIDs    []string
}

// Revise reconciles the loans after a milk payment changed from oldAmount to
// newAmount. Unlike Allocate it may walk several loans. A decrease only
// restores what was previously deducted from each loan.
func (e *Engine) Revise(f *models.Farmer, oldAmount, newAmount decimal.Decimal) (Revision, error) {
	if newAmount.IsNegative() {
		return Revision{}, models.AmountInvalid("transactionAmount", "must not be negative")
	}

	diff := newAmount.Sub(oldAmount)
	rev := Revision{Difference: diff}
	if diff.IsZero() || !f.TotalLoanRemaining.IsPositive() {
		return rev, nil
	}

	at := e.now()
	remaining := diff.Abs()
	for i := range f.Loans {
		if !remaining.IsPositive() {
			break
		}
		loan := &f.Loans[i]
		if !loan.Active() {
			continue
		}

		adjustment := decimal.Min(remaining, loan.LoanAmount)
		if diff.IsPositive() {
			e.deduct(f, loan, adjustment, at)
			rev.Deducted = rev.Deducted.Add(adjustment)
			rev.LoanIDs = append(rev.LoanIDs, loan.ID)
		} else {
			revertAmount := decimal.Min(adjustment, RevertableAmount(*loan))
			if revertAmount.IsPositive() {
				e.revert(f, loan, revertAmount, at)
				rev.Reverted = rev.Reverted.Add(revertAmount)
				rev.LoanIDs = append(rev.LoanIDs, loan.ID)
			}
		}
		remaining = remaining.Sub(adjustment)
	}

	return rev, nil
}

// RevertableAmount is the net amount deducted from a loan so far: deduct
// rows minus revert rows. A revert can never restore more than this.
func RevertableAmount(loan models.Loan) decimal.Decimal {
	total := decimal.Zero
	for _, ev := range loan.History {
		// deduct rows carry a negative delta and revert rows a positive one.
		if ev.Operation == models.LoanOpDeduct || ev.Operation == models.LoanOpRevert {
			total = total.Sub(ev.Delta)
		}
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

func firstOpenLoan(f *models.Farmer) int {
	for i := range f.Loans {
		if f.Loans[i].Active() {
			return i
		}
	}
	return -1
}

// deduct moves amount from the loan balance into the paid-back total and
// closes the loan when its balance reaches zero.
func (e *Engine) deduct(f *models.Farmer, loan *models.Loan, amount decimal.Decimal, at time.Time) {
	loan.LoanAmount = loan.LoanAmount.Sub(amount)
	f.TotalLoanRemaining = f.TotalLoanRemaining.Sub(amount)
	f.TotalLoanPaidBack = f.TotalLoanPaidBack.Add(amount)
	appendEvent(loan, models.LoanOpDeduct, amount.Neg(), at)

	if !loan.LoanAmount.IsPositive() {
		loan.LoanAmount = decimal.Zero
		loan.IsDeleted = true
		appendEvent(loan, models.LoanOpDelete, decimal.Zero, at)
	}
}

func (e *Engine) revert(f *models.Farmer, loan *models.Loan, amount decimal.Decimal, at time.Time) {
	loan.LoanAmount = loan.LoanAmount.Add(amount)
	f.TotalLoanRemaining = f.TotalLoanRemaining.Add(amount)
	f.TotalLoanPaidBack = decimal.Max(decimal.Zero, f.TotalLoanPaidBack.Sub(amount))
	appendEvent(loan, models.LoanOpRevert, amount, at)
}

func appendEvent(loan *models.Loan, op models.LoanOperation, delta decimal.Decimal, at time.Time) {
	loan.History = append(loan.History, models.LoanEvent{
		ChangedAt:  at,
		LoanDate:   loan.LoanDate,
		LoanAmount: loan.LoanAmount,
		Delta:      delta,
		Operation:  op,
	})
}
