package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// MilkInput carries the fields of a new milk delivery.
type MilkInput struct {
	TransactionDate time.Time
	TransactionTime string
	MilkType        string
	MilkQuantity    decimal.Decimal
	Fat             decimal.Decimal
	SNF             decimal.Decimal
	PricePerLitre   decimal.Decimal
	// TransactionAmount overrides quantity x price when set.
	TransactionAmount *decimal.Decimal
}

// Validate rejects missing or negative fields.
func (in MilkInput) Validate() error {
	if err := validateDelivery(in.TransactionDate, in.PricePerLitre, in.MilkQuantity); err != nil {
		return err
	}
	if in.Fat.IsNegative() {
		return models.AmountInvalid("fatPercentage", "must not be negative")
	}
	if in.SNF.IsNegative() {
		return models.AmountInvalid("snfPercentage", "must not be negative")
	}
	if in.TransactionAmount != nil && in.TransactionAmount.IsNegative() {
		return models.AmountInvalid("transactionAmount", "must not be negative")
	}
	return nil
}

// Amount is the payment owed for the delivery.
func (in MilkInput) Amount() decimal.Decimal {
	if in.TransactionAmount != nil {
		return *in.TransactionAmount
	}
	return in.MilkQuantity.Mul(in.PricePerLitre)
}

// MilkEdit carries the editable fields of a recorded delivery. Empty
// optional fields keep their stored value.
type MilkEdit struct {
	TransactionDate time.Time
	PricePerLitre   decimal.Decimal
	MilkQuantity    decimal.Decimal
	MilkType        string
	TransactionTime string
	Fat             *decimal.Decimal
	SNF             *decimal.Decimal
}

// Validate rejects missing or negative fields.
func (ed MilkEdit) Validate() error {
	if err := validateDelivery(ed.TransactionDate, ed.PricePerLitre, ed.MilkQuantity); err != nil {
		return err
	}
	if ed.Fat != nil && ed.Fat.IsNegative() {
		return models.AmountInvalid("fatPercentage", "must not be negative")
	}
	if ed.SNF != nil && ed.SNF.IsNegative() {
		return models.AmountInvalid("snfPercentage", "must not be negative")
	}
	return nil
}

func validateDelivery(date time.Time, price, quantity decimal.Decimal) error {
	switch {
	case date.IsZero():
		return models.Required("transactionDate")
	case price.IsZero():
		return models.Required("pricePerLitre")
	case quantity.IsZero():
		return models.Required("milkQuantity")
	case price.IsNegative():
		return models.AmountInvalid("pricePerLitre", "must not be negative")
	case quantity.IsNegative():
		return models.AmountInvalid("milkQuantity", "must not be negative")
	}
	return nil
}

// RecordMilk validates the delivery, allocates its payment against the loan
// ledger and appends the transaction to the farmer.
func (e *Engine) RecordMilk(f *models.Farmer, in MilkInput) (models.MilkTransaction, Allocation, error) {
	if err := in.Validate(); err != nil {
		return models.MilkTransaction{}, Allocation{}, err
	}

	amount := in.Amount()
	alloc, err := e.Allocate(f, amount)
	if err != nil {
		return models.MilkTransaction{}, Allocation{}, err
	}

	tx := models.MilkTransaction{
		ID:                e.newID(),
		TransactionDate:   in.TransactionDate,
		TransactionTime:   strings.ToLower(strings.TrimSpace(in.TransactionTime)),
		MilkType:          in.MilkType,
		MilkQuantity:      in.MilkQuantity,
		Fat:               in.Fat,
		SNF:               in.SNF,
		PricePerLitre:     in.PricePerLitre,
		TransactionAmount: amount,
	}
	f.Transactions = append(f.Transactions, tx)
	return tx, alloc, nil
}

// ReviseMilk applies an edit to a recorded delivery and reconciles the loan
// ledger with the new payment amount (quantity x price).
func (e *Engine) ReviseMilk(f *models.Farmer, transactionID string, ed MilkEdit) (models.MilkTransaction, Revision, error) {
	if err := ed.Validate(); err != nil {
		return models.MilkTransaction{}, Revision{}, err
	}

	idx := f.FindTransaction(transactionID)
	if idx < 0 {
		return models.MilkTransaction{}, Revision{}, models.NotFound("milk transaction", transactionID)
	}

	tx := &f.Transactions[idx]
	oldAmount := tx.TransactionAmount
	newAmount := ed.MilkQuantity.Mul(ed.PricePerLitre)

	rev, err := e.Revise(f, oldAmount, newAmount)
	if err != nil {
		return models.MilkTransaction{}, Revision{}, err
	}

	tx.TransactionDate = ed.TransactionDate
	tx.MilkQuantity = ed.MilkQuantity
	tx.PricePerLitre = ed.PricePerLitre
	tx.TransactionAmount = newAmount
	if ed.MilkType != "" {
		tx.MilkType = ed.MilkType
	}
	if slot := strings.ToLower(strings.TrimSpace(ed.TransactionTime)); slot != "" {
		tx.TransactionTime = slot
	}
	if ed.Fat != nil {
		tx.Fat = *ed.Fat
	}
	if ed.SNF != nil {
		tx.SNF = *ed.SNF
	}
	return *tx, rev, nil
}

// DeleteMilk removes a delivery record. Deductions it caused stay on the
// loan ledger; only edits reconcile loans.
func (e *Engine) DeleteMilk(f *models.Farmer, transactionID string) (models.MilkTransaction, error) {
	idx := f.FindTransaction(transactionID)
	if idx < 0 {
		return models.MilkTransaction{}, models.NotFound("milk transaction", transactionID)
	}
	removed := f.Transactions[idx]
	f.Transactions = append(f.Transactions[:idx], f.Transactions[idx+1:]...)
	return removed, nil
}
