package repository

import (
	"context"
	"regexp"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// changeEvent is the decoded shape of one change stream notification for
// date-keyed collections (documents with _id "{date}_{itemId}")
type changeEvent[T any] struct {
	OperationType string `bson:"operationType"`
	FullDocument  *T     `bson:"fullDocument"`
	DocumentKey   struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// watchDateKeyed opens a change stream over one date's documents of a keyed
// collection and adapts driver events onto the feed change vocabulary.
// Deletes carry no full document, so the item identity comes from the
// document key for every event type.
func watchDateKeyed[T any](ctx context.Context, collection *mongo.Collection, date string, log logger.Logger) (<-chan entity.FeedChange[T], error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"documentKey._id": bson.M{"$regex": "^" + regexp.QuoteMeta(date) + "_"},
		}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	changes := make(chan entity.FeedChange[T])
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event changeEvent[T]
			if err := stream.Decode(&event); err != nil {
				log.Error("Failed to decode change stream event",
					"collection", collection.Name(),
					"date", date,
					"error", err)
				continue
			}

			change := entity.FeedChange[T]{
				ItemID: utils.ItemIDFromDocID(event.DocumentKey.ID, date),
			}

			switch event.OperationType {
			case "insert":
				change.Type = entity.ChangeAdded
			case "update", "replace":
				change.Type = entity.ChangeModified
			case "delete":
				change.Type = entity.ChangeRemoved
			default:
				continue
			}

			if change.Type != entity.ChangeRemoved {
				if event.FullDocument == nil {
					continue
				}
				change.Entry = *event.FullDocument
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}

// listByDate loads all of one date's records keyed by item id
func listByDate[T any](ctx context.Context, collection *mongo.Collection, date string, itemID func(T) string) (map[string]T, error) {
	cursor, err := collection.Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := make(map[string]T)
	for cursor.Next(ctx) {
		var record T
		if err := cursor.Decode(&record); err != nil {
			return nil, err
		}
		records[itemID(record)] = record
	}
	return records, cursor.Err()
}

// saveDateKeyed upserts one record under the deterministic "{date}_{itemId}" id
func saveDateKeyed[T any](ctx context.Context, collection *mongo.Collection, date, itemID string, record T) error {
	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": utils.DocID(date, itemID)}, record, opts)
	return err
}
