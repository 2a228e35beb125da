package repository

import (
	"context"

	"servicelist-service/internal/domain/entity"
)

// StatusRepository defines the interface for per-item done records
type StatusRepository interface {
	ListByDate(ctx context.Context, date string) (map[string]entity.StatusRecord, error)
	Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.StatusRecord], error)
	Save(ctx context.Context, record *entity.StatusRecord) error
}

// TimeOverrideRepository defines the interface for manual time adjustments
type TimeOverrideRepository interface {
	ListByDate(ctx context.Context, date string) (map[string]entity.TimeOverrideRecord, error)
	Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.TimeOverrideRecord], error)
	Save(ctx context.Context, record *entity.TimeOverrideRecord) error
}

// ReadyRepository defines the interface for vehicle readiness records
type ReadyRepository interface {
	ListByDate(ctx context.Context, date string) (map[string]entity.ReadyRecord, error)
	Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.ReadyRecord], error)
	Save(ctx context.Context, record *entity.ReadyRecord) error
}

// ActivityRepository defines the interface for the append-only audit log
type ActivityRepository interface {
	Append(ctx context.Context, entry *entity.ActivityEntry) error
	// ListRecent returns the newest entries first, capped at limit
	ListRecent(ctx context.Context, date string, limit int) ([]entity.ActivityEntry, error)
}

// UserSettingsRepository defines the interface for per-user settings (PIN sync)
type UserSettingsRepository interface {
	Get(ctx context.Context, uid string) (*entity.UserSettings, error)
	SavePin(ctx context.Context, uid, pin string) error
}
