package repository

import (
	"context"
	"errors"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserSettingsRepository implements UserSettingsRepository
type MongoUserSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoUserSettingsRepository creates a new user settings repository
func NewMongoUserSettingsRepository(db *mongo.Database) repository.UserSettingsRepository {
	collection := db.Collection("user_settings")

	ctx := context.Background()
	collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"uid": 1},
		Options: options.Index().SetUnique(true),
	})

	return &MongoUserSettingsRepository{
		collection: collection,
	}
}

// Get returns the settings for a uid, or nil when none are stored
func (r *MongoUserSettingsRepository) Get(ctx context.Context, uid string) (*entity.UserSettings, error) {
	var settings entity.UserSettings
	err := r.collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// SavePin upserts the synced API PIN for a uid
func (r *MongoUserSettingsRepository) SavePin(ctx context.Context, uid, pin string) error {
	now := time.Now()
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"uid": uid},
		bson.M{"$set": bson.M{
			"apiPin":    pin,
			"updatedAt": now,
		}},
		opts,
	)
	return err
}
