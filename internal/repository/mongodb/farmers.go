package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/dairy/internal/domain/models"
)

// FarmerRepository stores one document per farmer, loans and transactions embedded.
type FarmerRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func (r *FarmerRepository) FindFarmerByOwnerAndID(ctx context.Context, ownerID string, farmerID int64) (*models.Farmer, error) {
	var doc farmerDoc
	err := r.coll.FindOne(ctx, bson.M{"ownerId": ownerID, "farmerId": farmerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound("farmer", fmt.Sprint(farmerID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find farmer %d: %w: %w", farmerID, models.ErrPersistence, err)
	}
	return fromFarmerDoc(doc)
}

func (r *FarmerRepository) InsertFarmer(ctx context.Context, farmer *models.Farmer) error {
	now := time.Now().UTC()
	farmer.Version = 1
	farmer.CreatedAt = now
	farmer.UpdatedAt = now

	doc, err := toFarmerDoc(farmer)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("farmer %d: %w", farmer.FarmerID, models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert farmer: %w: %w", models.ErrPersistence, err)
	}
	return nil
}

// SaveFarmer replaces the document only when the stored version equals
// farmer.Version, so a concurrent writer makes this call fail instead of
// being silently overwritten.
func (r *FarmerRepository) SaveFarmer(ctx context.Context, farmer *models.Farmer) error {
	expected := farmer.Version
	next := *farmer
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC()

	doc, err := toFarmerDoc(&next)
	if err != nil {
		return err
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": farmer.ID, "version": expected}, doc)
	if err != nil {
		return fmt.Errorf("failed to save farmer %d: %w: %w", farmer.FarmerID, models.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": farmer.ID})
		if err != nil {
			return fmt.Errorf("failed to check farmer %d: %w: %w", farmer.FarmerID, models.ErrPersistence, err)
		}
		if n == 0 {
			return models.NotFound("farmer", fmt.Sprint(farmer.FarmerID))
		}
		r.logger.Debug("stale farmer version",
			zap.Int64("farmer_id", farmer.FarmerID),
			zap.Int64("expected_version", expected),
		)
		return fmt.Errorf("farmer %d: %w", farmer.FarmerID, models.ErrConflict)
	}

	farmer.Version = next.Version
	farmer.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *FarmerRepository) ListFarmers(ctx context.Context, ownerID string) ([]*models.Farmer, error) {
	return r.list(ctx, bson.M{"ownerId": ownerID})
}

func (r *FarmerRepository) ListAllFarmers(ctx context.Context) ([]*models.Farmer, error) {
	return r.list(ctx, bson.M{})
}

func (r *FarmerRepository) list(ctx context.Context, filter bson.M) ([]*models.Farmer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ownerId", Value: 1}, {Key: "farmerId", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list farmers: %w: %w", models.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var docs []farmerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode farmers: %w: %w", models.ErrPersistence, err)
	}

	out := make([]*models.Farmer, 0, len(docs))
	for _, doc := range docs {
		f, err := fromFarmerDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (r *FarmerRepository) DeleteFarmer(ctx context.Context, ownerID string, farmerID int64) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"ownerId": ownerID, "farmerId": farmerID})
	if err != nil {
		return fmt.Errorf("failed to delete farmer %d: %w: %w", farmerID, models.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return models.NotFound("farmer", fmt.Sprint(farmerID))
	}
	return nil
}
