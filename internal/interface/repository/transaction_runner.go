package repository

import (
	"context"

	"servicelist-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

// MongoTransactionRunner implements TransactionRunner over driver sessions
type MongoTransactionRunner struct {
	client *mongo.Client
}

// NewMongoTransactionRunner creates a new transaction runner
func NewMongoTransactionRunner(client *mongo.Client) repository.TransactionRunner {
	return &MongoTransactionRunner{
		client: client,
	}
}

// WithTransaction runs fn inside a session transaction. Repositories invoked
// with the callback context take part in the same transaction.
func (r *MongoTransactionRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
