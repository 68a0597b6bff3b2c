// Package memory provides in-process store implementations used in tests
// and when no MongoDB URI is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

type farmerKey struct {
	ownerID  string
	farmerID int64
}

// FarmerStore keeps farmers in a map. Reads and writes copy the aggregate so
// callers never share state with the store.
type FarmerStore struct {
	mu      sync.RWMutex
	farmers map[farmerKey]*models.Farmer
	now     func() time.Time
}

func NewFarmerStore() *FarmerStore {
	return &FarmerStore{
		farmers: make(map[farmerKey]*models.Farmer),
		now:     time.Now,
	}
}

func (s *FarmerStore) FindFarmerByOwnerAndID(_ context.Context, ownerID string, farmerID int64) (*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.farmers[farmerKey{ownerID, farmerID}]
	if !ok {
		return nil, models.NotFound("farmer", formatFarmerID(farmerID))
	}
	return f.Clone(), nil
}

func (s *FarmerStore) InsertFarmer(_ context.Context, farmer *models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := farmerKey{farmer.OwnerID, farmer.FarmerID}
	if _, exists := s.farmers[k]; exists {
		return fmt.Errorf("farmer %d: %w", farmer.FarmerID, models.ErrDuplicate)
	}

	now := s.now()
	farmer.Version = 1
	farmer.CreatedAt = now
	farmer.UpdatedAt = now
	s.farmers[k] = farmer.Clone()
	return nil
}

func (s *FarmerStore) SaveFarmer(_ context.Context, farmer *models.Farmer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := farmerKey{farmer.OwnerID, farmer.FarmerID}
	stored, ok := s.farmers[k]
	if !ok {
		return models.NotFound("farmer", formatFarmerID(farmer.FarmerID))
	}
	if stored.Version != farmer.Version {
		return models.ErrConflict
	}

	farmer.Version++
	farmer.UpdatedAt = s.now()
	s.farmers[k] = farmer.Clone()
	return nil
}

func (s *FarmerStore) ListFarmers(_ context.Context, ownerID string) ([]*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Farmer
	for k, f := range s.farmers {
		if k.ownerID == ownerID {
			out = append(out, f.Clone())
		}
	}
	sortFarmers(out)
	return out, nil
}

func (s *FarmerStore) ListAllFarmers(_ context.Context) ([]*models.Farmer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Farmer, 0, len(s.farmers))
	for _, f := range s.farmers {
		out = append(out, f.Clone())
	}
	sortFarmers(out)
	return out, nil
}

func (s *FarmerStore) DeleteFarmer(_ context.Context, ownerID string, farmerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := farmerKey{ownerID, farmerID}
	if _, ok := s.farmers[k]; !ok {
		return models.NotFound("farmer", formatFarmerID(farmerID))
	}
	delete(s.farmers, k)
	return nil
}

func formatFarmerID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func sortFarmers(fs []*models.Farmer) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].OwnerID != fs[j].OwnerID {
			return fs[i].OwnerID < fs[j].OwnerID
		}
		return fs[i].FarmerID < fs[j].FarmerID
	})
}

// RetailStore keeps retail transactions per owner.
type RetailStore struct {
	mu  sync.RWMutex
	txs map[string][]models.RetailTransaction
}

func NewRetailStore() *RetailStore {
	return &RetailStore{txs: make(map[string][]models.RetailTransaction)}
}

func (s *RetailStore) InsertRetail(_ context.Context, tx *models.RetailTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.txs[tx.OwnerID] {
		if existing.ID == tx.ID {
			return models.ErrDuplicate
		}
	}
	s.txs[tx.OwnerID] = append(s.txs[tx.OwnerID], cloneRetail(*tx))
	return nil
}

func (s *RetailStore) FindRetail(_ context.Context, ownerID, id string) (*models.RetailTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.txs[ownerID] {
		if tx.ID == id {
			out := cloneRetail(tx)
			return &out, nil
		}
	}
	return nil, models.NotFound("retail transaction", id)
}

func (s *RetailStore) UpdateRetail(_ context.Context, tx *models.RetailTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.txs[tx.OwnerID]
	for i := range txs {
		if txs[i].ID == tx.ID {
			txs[i] = cloneRetail(*tx)
			return nil
		}
	}
	return models.NotFound("retail transaction", tx.ID)
}

func (s *RetailStore) DeleteRetail(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.txs[ownerID]
	for i := range txs {
		if txs[i].ID == id {
			s.txs[ownerID] = slices.Delete(txs, i, i+1)
			return nil
		}
	}
	return models.NotFound("retail transaction", id)
}

func (s *RetailStore) ListRetail(_ context.Context, ownerID string, from, to time.Time) ([]models.RetailTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.RetailTransaction
	for _, tx := range s.txs[ownerID] {
		if !tx.Time.Before(from) && tx.Time.Before(to) {
			out = append(out, cloneRetail(tx))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

func cloneRetail(tx models.RetailTransaction) models.RetailTransaction {
	tx.Items = append([]models.RetailItem(nil), tx.Items...)
	return tx
}
