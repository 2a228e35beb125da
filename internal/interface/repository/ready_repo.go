package repository

import (
	"context"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoReadyRepository implements ReadyRepository
type MongoReadyRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoReadyRepository creates a new ready repository
func NewMongoReadyRepository(db *mongo.Database, logger logger.Logger) repository.ReadyRepository {
	collection := db.Collection("service_ready")

	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"date": 1},
	})

	return &MongoReadyRepository{
		collection: collection,
		logger:     logger,
	}
}

// ListByDate returns all readiness records of one date keyed by item id
func (r *MongoReadyRepository) ListByDate(ctx context.Context, date string) (map[string]entity.ReadyRecord, error) {
	return listByDate(ctx, r.collection, date, func(record entity.ReadyRecord) string {
		return record.ItemID
	})
}

// Watch streams readiness record changes for one date
func (r *MongoReadyRepository) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.ReadyRecord], error) {
	return watchDateKeyed[entity.ReadyRecord](ctx, r.collection, date, r.logger)
}

// Save upserts a readiness record under its deterministic document id
func (r *MongoReadyRepository) Save(ctx context.Context, record *entity.ReadyRecord) error {
	if record.UpdatedAt == nil {
		now := time.Now()
		record.UpdatedAt = &now
	}
	return saveDateKeyed(ctx, r.collection, record.Date, record.ItemID, record)
}
