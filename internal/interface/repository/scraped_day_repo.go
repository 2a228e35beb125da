package repository

import (
	"context"
	"errors"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoServiceDayRepository implements ServiceDayRepository over the
// upstream-owned scraped collection. Documents are keyed by date.
type MongoServiceDayRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoServiceDayRepository creates a new service day repository
func NewMongoServiceDayRepository(db *mongo.Database, logger logger.Logger) repository.ServiceDayRepository {
	return &MongoServiceDayRepository{
		collection: db.Collection("scraped-data"),
		logger:     logger,
	}
}

// Get returns the scraped document for a date, or nil when none exists
func (r *MongoServiceDayRepository) Get(ctx context.Context, date string) (*entity.ServiceDay, error) {
	var day entity.ServiceDay
	err := r.collection.FindOne(ctx, bson.M{"_id": date}).Decode(&day)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	day.Date = date
	return &day, nil
}

// Watch delivers the full document after every upstream rewrite; a nil value
// signals the document was deleted
func (r *MongoServiceDayRepository) Watch(ctx context.Context, date string) (<-chan *entity.ServiceDay, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"documentKey._id": date,
		}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	changes := make(chan *entity.ServiceDay)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				OperationType string             `bson:"operationType"`
				FullDocument  *entity.ServiceDay `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				r.logger.Error("Failed to decode scraped day event", "date", date, "error", err)
				continue
			}

			var day *entity.ServiceDay
			if event.OperationType != "delete" {
				if event.FullDocument == nil {
					continue
				}
				day = event.FullDocument
				day.Date = date
			}

			select {
			case changes <- day:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}
