package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// CreateLoan appends a new loan to the farmer and grows the running totals.
func (e *Engine) CreateLoan(f *models.Farmer, amount decimal.Decimal, loanDate time.Time) (models.Loan, error) {
	if !amount.IsPositive() {
		return models.Loan{}, models.AmountInvalid("loanAmount", "must be greater than zero")
	}
	if loanDate.IsZero() {
		return models.Loan{}, models.Required("loanDate")
	}

	loan := models.Loan{
		ID:             e.newID(),
		OriginalAmount: amount,
		LoanAmount:     amount,
		LoanDate:       loanDate,
	}
	appendEvent(&loan, models.LoanOpCreate, amount, e.now())

	f.Loans = append(f.Loans, loan)
	f.TotalLoan = f.TotalLoan.Add(amount)
	f.TotalLoanRemaining = f.TotalLoanRemaining.Add(amount)
	return loan, nil
}

// UpdateLoan changes the issued amount (and optionally the date) of an open
// loan. The remaining balance and the totals shift by the same delta, so the
// amount already repaid is kept.
func (e *Engine) UpdateLoan(f *models.Farmer, loanID string, originalAmount decimal.Decimal, loanDate time.Time) (models.Loan, error) {
	if !originalAmount.IsPositive() {
		return models.Loan{}, models.AmountInvalid("loanAmount", "must be greater than zero")
	}

	idx := f.FindLoan(loanID)
	if idx < 0 {
		return models.Loan{}, models.NotFound("loan", loanID)
	}
	loan := &f.Loans[idx]
	if loan.IsDeleted {
		return models.Loan{}, models.Invalid("loanId", "loan is already closed")
	}

	delta := originalAmount.Sub(loan.OriginalAmount)
	remaining := loan.LoanAmount.Add(delta)
	if remaining.IsNegative() {
		return models.Loan{}, models.AmountInvalid("loanAmount", "is below the amount already repaid")
	}

	at := e.now()
	if !loanDate.IsZero() {
		loan.LoanDate = loanDate
	}
	loan.OriginalAmount = originalAmount
	loan.LoanAmount = remaining
	f.TotalLoan = f.TotalLoan.Add(delta)
	f.TotalLoanRemaining = f.TotalLoanRemaining.Add(delta)
	appendEvent(loan, models.LoanOpUpdate, delta, at)

	if remaining.IsZero() {
		loan.IsDeleted = true
		appendEvent(loan, models.LoanOpDelete, decimal.Zero, at)
	}
	return *loan, nil
}

// DeleteLoan closes a loan and writes off its unpaid balance. What was
// already repaid stays in the paid-back total.
func (e *Engine) DeleteLoan(f *models.Farmer, loanID string) (models.Loan, error) {
	idx := f.FindLoan(loanID)
	if idx < 0 {
		return models.Loan{}, models.NotFound("loan", loanID)
	}
	loan := &f.Loans[idx]
	if loan.IsDeleted {
		return models.Loan{}, models.Invalid("loanId", "loan is already closed")
	}

	writtenOff := loan.LoanAmount
	loan.LoanAmount = decimal.Zero
	loan.IsDeleted = true
	f.TotalLoanRemaining = f.TotalLoanRemaining.Sub(writtenOff)
	f.TotalLoan = f.TotalLoan.Sub(writtenOff)
	appendEvent(loan, models.LoanOpDelete, writtenOff.Neg(), e.now())
	return *loan, nil
}

// DeductLoan records a direct repayment against one loan outside the milk
// payment path.
func (e *Engine) DeductLoan(f *models.Farmer, loanID string, amount decimal.Decimal) (models.Loan, error) {
	if !amount.IsPositive() {
		return models.Loan{}, models.AmountInvalid("amount", "must be greater than zero")
	}

	idx := f.FindLoan(loanID)
	if idx < 0 {
		return models.Loan{}, models.NotFound("loan", loanID)
	}
	loan := &f.Loans[idx]
	if !loan.Active() {
		return models.Loan{}, models.Invalid("loanId", "loan is already closed")
	}
	if amount.GreaterThan(loan.LoanAmount) {
		return models.Loan{}, models.AmountInvalid("amount", "exceeds the remaining loan balance")
	}

	e.deduct(f, loan, amount, e.now())
	return *loan, nil
}
