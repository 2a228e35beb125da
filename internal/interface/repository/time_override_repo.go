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

// MongoTimeOverrideRepository implements TimeOverrideRepository
type MongoTimeOverrideRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoTimeOverrideRepository creates a new time override repository
func NewMongoTimeOverrideRepository(db *mongo.Database, logger logger.Logger) repository.TimeOverrideRepository {
	collection := db.Collection("service_time_overrides")

	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"date": 1},
	})

	return &MongoTimeOverrideRepository{
		collection: collection,
		logger:     logger,
	}
}

// ListByDate returns all override records of one date keyed by item id
func (r *MongoTimeOverrideRepository) ListByDate(ctx context.Context, date string) (map[string]entity.TimeOverrideRecord, error) {
	return listByDate(ctx, r.collection, date, func(record entity.TimeOverrideRecord) string {
		return record.ItemID
	})
}

// Watch streams override record changes for one date
func (r *MongoTimeOverrideRepository) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.TimeOverrideRecord], error) {
	return watchDateKeyed[entity.TimeOverrideRecord](ctx, r.collection, date, r.logger)
}

// Save upserts an override record under its deterministic document id
func (r *MongoTimeOverrideRepository) Save(ctx context.Context, record *entity.TimeOverrideRecord) error {
	if record.UpdatedAt == nil {
		now := time.Now()
		record.UpdatedAt = &now
	}
	return saveDateKeyed(ctx, r.collection, record.Date, record.ItemID, record)
}
