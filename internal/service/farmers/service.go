// Package farmers manages the farmer registry of a branch owner.
package farmers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
	"github.com/mamadbah2/dairy/internal/repository"
)

// Profile holds the editable, non-ledger fields of a farmer.
type Profile struct {
	Name         string
	MobileNumber string
	Address      string
	MilkType     string
	Gender       string
	JoiningDate  time.Time
}

// Validate requires every field, as the registration form does.
func (p Profile) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"farmerName", p.Name},
		{"mobileNumber", p.MobileNumber},
		{"address", p.Address},
		{"milkType", p.MilkType},
		{"gender", p.Gender},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return models.Required(r.field)
		}
	}
	if p.JoiningDate.IsZero() {
		return models.Required("joiningDate")
	}
	return nil
}

// Service exposes farmer CRUD scoped by owner.
type Service struct {
	store    repository.FarmerStore
	attempts int
	logger   *zap.Logger
}

func NewService(store repository.FarmerStore, attempts int, logger *zap.Logger) *Service {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, attempts: attempts, logger: logger}
}

// AddFarmer registers a farmer with empty loan totals.
func (s *Service) AddFarmer(ctx context.Context, ownerID string, farmerID int64, p Profile) (*models.Farmer, error) {
	if farmerID <= 0 {
		return nil, models.Required("farmerId")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	f := &models.Farmer{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		FarmerID: farmerID,
	}
	applyProfile(f, p)

	if err := s.store.InsertFarmer(ctx, f); err != nil {
		return nil, err
	}
	s.logger.Info("farmer registered", zap.String("owner_id", ownerID), zap.Int64("farmer_id", farmerID))
	return f, nil
}

func (s *Service) GetFarmer(ctx context.Context, ownerID string, farmerID int64) (*models.Farmer, error) {
	return s.store.FindFarmerByOwnerAndID(ctx, ownerID, farmerID)
}

// ListFarmers returns the owner's farmers ordered by farmer id.
func (s *Service) ListFarmers(ctx context.Context, ownerID string) ([]*models.Farmer, error) {
	return s.store.ListFarmers(ctx, ownerID)
}

// UpdateProfile replaces the profile fields. Ledger fields are carried over
// from the stored farmer.
func (s *Service) UpdateProfile(ctx context.Context, ownerID string, farmerID int64, p Profile) (*models.Farmer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		f, err := s.store.FindFarmerByOwnerAndID(ctx, ownerID, farmerID)
		if err != nil {
			return nil, err
		}
		applyProfile(f, p)

		err = s.store.SaveFarmer(ctx, f)
		if err == nil {
			s.logger.Info("farmer updated", zap.String("owner_id", ownerID), zap.Int64("farmer_id", farmerID))
			return f, nil
		}
		if !models.IsRetryable(err) || attempt >= s.attempts {
			return nil, fmt.Errorf("update farmer: %w", err)
		}
	}
}

func (s *Service) DeleteFarmer(ctx context.Context, ownerID string, farmerID int64) error {
	if err := s.store.DeleteFarmer(ctx, ownerID, farmerID); err != nil {
		return err
	}
	s.logger.Info("farmer deleted", zap.String("owner_id", ownerID), zap.Int64("farmer_id", farmerID))
	return nil
}

func applyProfile(f *models.Farmer, p Profile) {
	f.Name = strings.TrimSpace(p.Name)
	f.MobileNumber = strings.TrimSpace(p.MobileNumber)
	f.Address = strings.TrimSpace(p.Address)
	f.MilkType = strings.TrimSpace(p.MilkType)
	f.Gender = strings.TrimSpace(p.Gender)
	f.JoiningDate = p.JoiningDate
}
