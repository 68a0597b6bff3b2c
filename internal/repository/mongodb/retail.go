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

// RetailRepository stores retail transactions, one document each.
type RetailRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func (r *RetailRepository) InsertRetail(ctx context.Context, tx *models.RetailTransaction) error {
	doc, err := toRetailDoc(tx)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("retail transaction %s: %w", tx.ID, models.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert retail transaction: %w: %w", models.ErrPersistence, err)
	}
	return nil
}

func (r *RetailRepository) FindRetail(ctx context.Context, ownerID, id string) (*models.RetailTransaction, error) {
	var doc retailDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "ownerId": ownerID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.NotFound("retail transaction", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find retail transaction: %w: %w", models.ErrPersistence, err)
	}
	tx, err := fromRetailDoc(doc)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *RetailRepository) UpdateRetail(ctx context.Context, tx *models.RetailTransaction) error {
	doc, err := toRetailDoc(tx)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": tx.ID, "ownerId": tx.OwnerID}, doc)
	if err != nil {
		return fmt.Errorf("failed to update retail transaction: %w: %w", models.ErrPersistence, err)
	}
	if res.MatchedCount == 0 {
		return models.NotFound("retail transaction", tx.ID)
	}
	return nil
}

func (r *RetailRepository) DeleteRetail(ctx context.Context, ownerID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "ownerId": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete retail transaction: %w: %w", models.ErrPersistence, err)
	}
	if res.DeletedCount == 0 {
		return models.NotFound("retail transaction", id)
	}
	return nil
}

func (r *RetailRepository) ListRetail(ctx context.Context, ownerID string, from, to time.Time) ([]models.RetailTransaction, error) {
	filter := bson.M{
		"ownerId": ownerID,
		"time":    bson.M{"$gte": from, "$lt": to},
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "time", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list retail transactions: %w: %w", models.ErrPersistence, err)
	}
	defer cur.Close(ctx)

	var docs []retailDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode retail transactions: %w: %w", models.ErrPersistence, err)
	}

	out := make([]models.RetailTransaction, 0, len(docs))
	for _, doc := range docs {
		tx, err := fromRetailDoc(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	r.logger.Debug("listed retail transactions", zap.String("owner_id", ownerID), zap.Int("count", len(out)))
	return out, nil
}
