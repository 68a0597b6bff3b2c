package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	farmersCollection = "farmers"
	retailCollection  = "retail_transactions"
)

// Store owns the MongoDB connection and hands out the collection repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewStore connects to MongoDB, verifies the connection and makes sure the
// indexes the repositories rely on exist.
func NewStore(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(farmersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "farmerId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("owner_farmer_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create farmer index: %w", err)
	}

	_, err = s.db.Collection(retailCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "time", Value: 1}},
		Options: options.Index().SetName("owner_time"),
	})
	if err != nil {
		return fmt.Errorf("failed to create retail index: %w", err)
	}

	s.logger.Debug("mongodb indexes ensured")
	return nil
}

// Farmers returns the farmer repository.
func (s *Store) Farmers() *FarmerRepository {
	return &FarmerRepository{
		coll:   s.db.Collection(farmersCollection),
		logger: s.logger.Named("farmers"),
	}
}

// Retail returns the retail transaction repository.
func (s *Store) Retail() *RetailRepository {
	return &RetailRepository{
		coll:   s.db.Collection(retailCollection),
		logger: s.logger.Named("retail"),
	}
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
