// Package repository declares the storage contracts shared by the MongoDB
// and in-memory backends.
package repository

import (
	"context"
	"time"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// FarmerStore persists farmer aggregates. A farmer with its loans and
// transactions is always read and written as one document.
type FarmerStore interface {
	FindFarmerByOwnerAndID(ctx context.Context, ownerID string, farmerID int64) (*models.Farmer, error)
	// InsertFarmer stores a new farmer and sets its version to 1. It fails
	// with models.ErrDuplicate when the owner already uses the farmer id.
	InsertFarmer(ctx context.Context, farmer *models.Farmer) error
	// SaveFarmer replaces the stored farmer when its version still matches
	// farmer.Version and bumps the version. A moved version yields
	// models.ErrConflict.
	SaveFarmer(ctx context.Context, farmer *models.Farmer) error
	ListFarmers(ctx context.Context, ownerID string) ([]*models.Farmer, error)
	ListAllFarmers(ctx context.Context) ([]*models.Farmer, error)
	DeleteFarmer(ctx context.Context, ownerID string, farmerID int64) error
}

// RetailStore persists retail transactions.
type RetailStore interface {
	InsertRetail(ctx context.Context, tx *models.RetailTransaction) error
	FindRetail(ctx context.Context, ownerID, id string) (*models.RetailTransaction, error)
	UpdateRetail(ctx context.Context, tx *models.RetailTransaction) error
	DeleteRetail(ctx context.Context, ownerID, id string) error
	// ListRetail returns the owner's transactions with from <= time < to,
	// oldest first.
	ListRetail(ctx context.Context, ownerID string, from, to time.Time) ([]models.RetailTransaction, error)
}
