// Package milk orchestrates every ledger mutation: it serializes work per
// farmer, loads the aggregate, applies the ledger rules, checks the result
// and saves it with an optimistic version check.
package milk

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/ledger"
	"github.com/mamadbah2/dairy/internal/repository"
	"github.com/mamadbah2/dairy/internal/service/notify"
)

// Service applies milk deliveries and loan changes to farmers.
type Service struct {
	store    repository.FarmerStore
	engine   *ledger.Engine
	notifier notify.Notifier
	locks    *farmerLocks
	attempts int
	logger   *zap.Logger
}

// NewService wires a Service. attempts bounds how often a write is retried
// after a version conflict.
func NewService(store repository.FarmerStore, engine *ledger.Engine, notifier notify.Notifier, attempts int, logger *zap.Logger) *Service {
	if engine == nil {
		engine = ledger.NewEngine()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		notifier: notifier,
		locks:    newFarmerLocks(),
		attempts: attempts,
		logger:   logger,
	}
}

// mutate runs fn against a freshly loaded farmer and persists the result.
// fn must be safe to run again: on a version conflict the farmer is reloaded
// and fn is applied to the new state.
func (s *Service) mutate(ctx context.Context, ownerID string, farmerID int64, op string, fn func(f *models.Farmer) error) (*models.Farmer, error) {
	unlock := s.locks.lock(ownerID, farmerID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		f, err := s.store.FindFarmerByOwnerAndID(ctx, ownerID, farmerID)
		if err != nil {
			return nil, err
		}

		if err := fn(f); err != nil {
			return nil, err
		}

		if err := ledger.Verify(f); err != nil {
			s.logger.Error("ledger check failed, farmer not saved",
				zap.String("op", op),
				zap.Int64("farmer_id", farmerID),
				zap.Error(err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		err = s.store.SaveFarmer(ctx, f)
		if err == nil {
			return f, nil
		}
		if !models.IsRetryable(err) || attempt >= s.attempts {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		s.logger.Warn("farmer changed concurrently, retrying",
			zap.String("op", op),
			zap.Int64("farmer_id", farmerID),
			zap.Int("attempt", attempt))
	}
}

// RecordMilkTransaction records a delivery and offsets its payment against
// the farmer's earliest open loan.
func (s *Service) RecordMilkTransaction(ctx context.Context, ownerID string, farmerID int64, in ledger.MilkInput) (*models.Farmer, error) {
	// invalid input is rejected before the farmer is loaded
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var alloc ledger.Allocation
	f, err := s.mutate(ctx, ownerID, farmerID, "record milk transaction", func(f *models.Farmer) error {
		var err error
		_, alloc, err = s.engine.RecordMilk(f, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("milk transaction recorded",
		zap.Int64("farmer_id", farmerID),
		zap.String("deducted", alloc.Deducted.String()),
		zap.String("income", alloc.Income.String()))

	if alloc.Cleared {
		s.notifyCleared(ctx, f, alloc.LoanID)
	}
	return f, nil
}

// ReviseMilkTransaction edits a delivery and reconciles the loans with the
// new payment amount.
func (s *Service) ReviseMilkTransaction(ctx context.Context, ownerID string, farmerID int64, transactionID string, ed ledger.MilkEdit) (*models.Farmer, error) {
	if err := ed.Validate(); err != nil {
		return nil, err
	}

	var rev ledger.Revision
	f, err := s.mutate(ctx, ownerID, farmerID, "revise milk transaction", func(f *models.Farmer) error {
		var err error
		_, rev, err = s.engine.ReviseMilk(f, transactionID, ed)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("milk transaction revised",
		zap.Int64("farmer_id", farmerID),
		zap.String("transaction_id", transactionID),
		zap.String("difference", rev.Difference.String()),
		zap.String("deducted", rev.Deducted.String()),
		zap.String("reverted", rev.Reverted.String()))

	if rev.Deducted.IsPositive() {
		for _, id := range rev.LoanIDs {
			if idx := f.FindLoan(id); idx >= 0 && f.Loans[idx].IsDeleted {
				s.notifyCleared(ctx, f, id)
			}
		}
	}
	return f, nil
}

// DeleteMilkTransaction removes a delivery. Loan balances are left as they are.
func (s *Service) DeleteMilkTransaction(ctx context.Context, ownerID string, farmerID int64, transactionID string) (*models.Farmer, error) {
	f, err := s.mutate(ctx, ownerID, farmerID, "delete milk transaction", func(f *models.Farmer) error {
		_, err := s.engine.DeleteMilk(f, transactionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("milk transaction deleted, loan balances unchanged",
		zap.Int64("farmer_id", farmerID),
		zap.String("transaction_id", transactionID))
	return f, nil
}

// CreateLoan advances a new loan to the farmer.
func (s *Service) CreateLoan(ctx context.Context, ownerID string, farmerID int64, amount decimal.Decimal, loanDate time.Time) (*models.Farmer, error) {
	f, err := s.mutate(ctx, ownerID, farmerID, "create loan", func(f *models.Farmer) error {
		_, err := s.engine.CreateLoan(f, amount, loanDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan created", zap.Int64("farmer_id", farmerID), zap.String("amount", amount.String()))
	return f, nil
}

// UpdateLoan changes the issued amount or date of an open loan.
func (s *Service) UpdateLoan(ctx context.Context, ownerID string, farmerID int64, loanID string, amount decimal.Decimal, loanDate time.Time) (*models.Farmer, error) {
	f, err := s.mutate(ctx, ownerID, farmerID, "update loan", func(f *models.Farmer) error {
		_, err := s.engine.UpdateLoan(f, loanID, amount, loanDate)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan updated", zap.Int64("farmer_id", farmerID), zap.String("loan_id", loanID))
	return f, nil
}

// DeleteLoan closes a loan and writes off what is left of it.
func (s *Service) DeleteLoan(ctx context.Context, ownerID string, farmerID int64, loanID string) (*models.Farmer, error) {
	f, err := s.mutate(ctx, ownerID, farmerID, "delete loan", func(f *models.Farmer) error {
		_, err := s.engine.DeleteLoan(f, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan deleted", zap.Int64("farmer_id", farmerID), zap.String("loan_id", loanID))
	return f, nil
}

// DeductLoan records a cash repayment against one loan.
func (s *Service) DeductLoan(ctx context.Context, ownerID string, farmerID int64, loanID string, amount decimal.Decimal) (*models.Farmer, error) {
	var cleared bool
	f, err := s.mutate(ctx, ownerID, farmerID, "deduct loan", func(f *models.Farmer) error {
		loan, err := s.engine.DeductLoan(f, loanID, amount)
		cleared = err == nil && loan.IsDeleted
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("loan repaid", zap.Int64("farmer_id", farmerID), zap.String("loan_id", loanID), zap.String("amount", amount.String()))
	if cleared {
		s.notifyCleared(ctx, f, loanID)
	}
	return f, nil
}

// LoanView is a loan together with the farmer it belongs to.
type LoanView struct {
	FarmerID     int64       `json:"farmerId"`
	FarmerName   string      `json:"farmerName"`
	MobileNumber string      `json:"mobileNumber"`
	Loan         models.Loan `json:"loan"`
}

// ListLoans returns the loans of every farmer of the owner, in farmer then
// creation order. Closed loans are skipped when activeOnly is set.
func (s *Service) ListLoans(ctx context.Context, ownerID string, activeOnly bool) ([]LoanView, error) {
	farmers, err := s.store.ListFarmers(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var out []LoanView
	for _, f := range farmers {
		for _, loan := range f.Loans {
			if activeOnly && loan.IsDeleted {
				continue
			}
			out = append(out, LoanView{
				FarmerID:     f.FarmerID,
				FarmerName:   f.Name,
				MobileNumber: f.MobileNumber,
				Loan:         loan,
			})
		}
	}
	return out, nil
}

// notifyCleared runs after the farmer is saved; a failed message never
// undoes the ledger change.
func (s *Service) notifyCleared(ctx context.Context, f *models.Farmer, loanID string) {
	idx := f.FindLoan(loanID)
	if idx < 0 {
		return
	}
	if err := s.notifier.LoanCleared(ctx, f, f.Loans[idx]); err != nil {
		s.logger.Warn("failed to send loan cleared notification",
			zap.Int64("farmer_id", f.FarmerID),
			zap.String("loan_id", loanID),
			zap.Error(err))
	}
}
