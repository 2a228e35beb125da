package repository

import (
	"context"
	"errors"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoAccessRequestRepository implements AccessRequestRepository
type MongoAccessRequestRepository struct {
	collection *mongo.Collection
	logger     logger.Logger
}

// NewMongoAccessRequestRepository creates a new access request repository
func NewMongoAccessRequestRepository(db *mongo.Database, logger logger.Logger) repository.AccessRequestRepository {
	collection := db.Collection("access_requests")

	// One workflow record per uid
	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"uid": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	return &MongoAccessRequestRepository{
		collection: collection,
		logger:     logger,
	}
}

// Get returns the request for a uid, or nil when none exists yet
func (r *MongoAccessRequestRepository) Get(ctx context.Context, uid string) (*entity.AccessRequest, error) {
	var request entity.AccessRequest
	err := r.collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&request)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Save upserts the full request document keyed by uid
func (r *MongoAccessRequestRepository) Save(ctx context.Context, request *entity.AccessRequest) error {
	request.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"uid": request.UID}, request, opts)
	return err
}

// Watch streams request document changes for one uid until ctx ends
func (r *MongoAccessRequestRepository) Watch(ctx context.Context, uid string) (<-chan *entity.AccessRequest, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{
			"fullDocument.uid": uid,
			"operationType":    bson.M{"$in": bson.A{"insert", "update", "replace"}},
		}}},
	}

	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := r.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return nil, err
	}

	changes := make(chan *entity.AccessRequest)
	go func() {
		defer close(changes)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var event struct {
				FullDocument *entity.AccessRequest `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				r.logger.Error("Failed to decode access request change", "error", err, "uid", uid)
				continue
			}
			if event.FullDocument == nil {
				continue
			}
			select {
			case changes <- event.FullDocument:
			case <-ctx.Done():
				return
			}
		}
	}()

	return changes, nil
}

// MongoAllowlistRepository implements AllowlistRepository
type MongoAllowlistRepository struct {
	collection *mongo.Collection
}

// NewMongoAllowlistRepository creates a new allowlist repository
func NewMongoAllowlistRepository(db *mongo.Database) repository.AllowlistRepository {
	collection := db.Collection("staff_allowlist")

	ctx := context.Background()
	indexModel := mongo.IndexModel{
		Keys:    bson.M{"uid": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, indexModel)

	return &MongoAllowlistRepository{
		collection: collection,
	}
}

// Get returns the allowlist entry for a uid, or nil when absent
func (r *MongoAllowlistRepository) Get(ctx context.Context, uid string) (*entity.AllowlistEntry, error) {
	var entry entity.AllowlistEntry
	err := r.collection.FindOne(ctx, bson.M{"uid": uid}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Save upserts an allowlist entry keyed by uid
func (r *MongoAllowlistRepository) Save(ctx context.Context, entry *entity.AllowlistEntry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"uid": entry.UID}, entry, opts)
	return err
}

// MongoBlockRepository implements BlockRepository over the two veto collections
type MongoBlockRepository struct {
	uidBlocks   *mongo.Collection
	emailBlocks *mongo.Collection
}

// NewMongoBlockRepository creates a new block repository
func NewMongoBlockRepository(db *mongo.Database) repository.BlockRepository {
	uidBlocks := db.Collection("access_blocks_uid")
	emailBlocks := db.Collection("access_blocks_email")

	ctx := context.Background()
	uidBlocks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"uid": 1},
		Options: options.Index().SetUnique(true),
	})
	emailBlocks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"emailNormalized": 1},
		Options: options.Index().SetUnique(true),
	})

	return &MongoBlockRepository{
		uidBlocks:   uidBlocks,
		emailBlocks: emailBlocks,
	}
}

// IsBlocked reports whether a standing veto exists for the uid or email
func (r *MongoBlockRepository) IsBlocked(ctx context.Context, uid, emailNormalized string) (bool, error) {
	count, err := r.uidBlocks.CountDocuments(ctx, bson.M{"uid": uid}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if emailNormalized == "" {
		return false, nil
	}
	count, err = r.emailBlocks.CountDocuments(ctx, bson.M{"emailNormalized": emailNormalized}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveUIDBlock upserts a uid veto
func (r *MongoBlockRepository) SaveUIDBlock(ctx context.Context, block *entity.UIDBlock) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.uidBlocks.ReplaceOne(ctx, bson.M{"uid": block.UID}, block, opts)
	return err
}

// SaveEmailBlock upserts an email veto
func (r *MongoBlockRepository) SaveEmailBlock(ctx context.Context, block *entity.EmailBlock) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.emailBlocks.ReplaceOne(ctx, bson.M{"emailNormalized": block.EmailNormalized}, block, opts)
	return err
}
