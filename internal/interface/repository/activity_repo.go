package repository

import (
	"context"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoActivityRepository implements ActivityRepository
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new activity repository
func NewMongoActivityRepository(db *mongo.Database) repository.ActivityRepository {
	collection := db.Collection("service_activity")

	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "date", Value: 1},
			{Key: "createdAt", Value: -1},
		},
	})

	return &MongoActivityRepository{
		collection: collection,
	}
}

// Append inserts one audit row
func (r *MongoActivityRepository) Append(ctx context.Context, entry *entity.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// ListRecent returns the newest entries of a date, capped at limit
func (r *MongoActivityRepository) ListRecent(ctx context.Context, date string, limit int) ([]entity.ActivityEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"date": date}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []entity.ActivityEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
