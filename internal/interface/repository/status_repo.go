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

// MongoStatusRepository implements StatusRepository
type MongoStatusRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoStatusRepository creates a new status repository
func NewMongoStatusRepository(db *mongo.Database, logger logger.Logger) repository.StatusRepository {
	collection := db.Collection("service_status")

	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.M{"date": 1},
	})

	return &MongoStatusRepository{
		collection: collection,
		logger:     logger,
	}
}

// ListByDate returns all done records of one date keyed by item id
func (r *MongoStatusRepository) ListByDate(ctx context.Context, date string) (map[string]entity.StatusRecord, error) {
	return listByDate(ctx, r.collection, date, func(record entity.StatusRecord) string {
		return record.ItemID
	})
}

// Watch streams done record changes for one date
func (r *MongoStatusRepository) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.StatusRecord], error) {
	return watchDateKeyed[entity.StatusRecord](ctx, r.collection, date, r.logger)
}

// Save upserts a done record under its deterministic document id
func (r *MongoStatusRepository) Save(ctx context.Context, record *entity.StatusRecord) error {
	if record.UpdatedAt == nil {
		now := time.Now()
		record.UpdatedAt = &now
	}
	return saveDateKeyed(ctx, r.collection, record.Date, record.ItemID, record)
}
