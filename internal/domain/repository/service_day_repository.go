package repository

import (
	"context"

	"servicelist-service/internal/domain/entity"
)

// ServiceDayRepository reads the upstream-produced scraped document per date.
// The collection is read-only for this service; refreshes go through the
// upstream API which rewrites the document and bumps cachedAt.
type ServiceDayRepository interface {
	// Get returns nil without error when no document exists for the date
	Get(ctx context.Context, date string) (*entity.ServiceDay, error)
	// Watch delivers the current document after every change; nil signals the
	// document was deleted. The channel closes when ctx ends.
	Watch(ctx context.Context, date string) (<-chan *entity.ServiceDay, error)
}
