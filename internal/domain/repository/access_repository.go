package repository

import (
	"context"

	"servicelist-service/internal/domain/entity"
)

// AccessRequestRepository defines the interface for access request records
type AccessRequestRepository interface {
	// Get returns nil without error when no request exists for the uid
	Get(ctx context.Context, uid string) (*entity.AccessRequest, error)
	Save(ctx context.Context, request *entity.AccessRequest) error
	Watch(ctx context.Context, uid string) (<-chan *entity.AccessRequest, error)
}

// AllowlistRepository defines the interface for allowlist entries
type AllowlistRepository interface {
	// Get returns nil without error when the uid has no entry
	Get(ctx context.Context, uid string) (*entity.AllowlistEntry, error)
	Save(ctx context.Context, entry *entity.AllowlistEntry) error
}

// BlockRepository defines the interface for the two block-list indices
type BlockRepository interface {
	IsBlocked(ctx context.Context, uid, emailNormalized string) (bool, error)
	SaveUIDBlock(ctx context.Context, block *entity.UIDBlock) error
	SaveEmailBlock(ctx context.Context, block *entity.EmailBlock) error
}

// TransactionRunner executes fn atomically; every store call made with the
// ctx passed to fn joins the same transaction
type TransactionRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
