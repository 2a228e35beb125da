package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/utils"
)

var (
	// ErrMissingItemID rejects writes against an item without identity
	ErrMissingItemID = errors.New("cannot update item without itemId")
	// ErrReadyPickupOnly rejects readiness writes on return items
	ErrReadyPickupOnly = errors.New("ready state is only available for deliveries")
	// ErrReadyNeedsPlate rejects readiness writes on items without a plate
	ErrReadyNeedsPlate = errors.New("cannot mark ready without license plate")
)

// ChecklistWriter applies staff mutations to the per-item records. Every
// write pairs the record upsert with its audit row in one transaction, so the
// activity log never diverges from the records it describes.
type ChecklistWriter struct {
	statuses  repository.StatusRepository
	overrides repository.TimeOverrideRepository
	ready     repository.ReadyRepository
	activity  repository.ActivityRepository
	tx        repository.TransactionRunner
	hideAfter time.Duration
	logger    logger.Logger
	now       func() time.Time
}

// NewChecklistWriter creates a new checklist writer
func NewChecklistWriter(
	statuses repository.StatusRepository,
	overrides repository.TimeOverrideRepository,
	ready repository.ReadyRepository,
	activity repository.ActivityRepository,
	tx repository.TransactionRunner,
	hideAfter time.Duration,
	logger logger.Logger,
) *ChecklistWriter {
	return &ChecklistWriter{
		statuses:  statuses,
		overrides: overrides,
		ready:     ready,
		activity:  activity,
		tx:        tx,
		hideAfter: hideAfter,
		logger:    logger,
		now:       time.Now,
	}
}

// SetDone toggles the done flag of one item. With forceCompleted the status
// timestamp is backdated past the hide window so the item moves to the
// completed bucket immediately instead of aging out.
func (w *ChecklistWriter) SetDone(ctx context.Context, date string, item entity.ServiceItem, displayTime string, done, forceCompleted bool, actor entity.Actor) error {
	if item.ItemID == "" {
		return ErrMissingItemID
	}

	updatedAt := w.now()
	if forceCompleted {
		updatedAt = ForceCompletedAt(updatedAt, w.hideAfter)
	}

	record := &entity.StatusRecord{
		Date:           date,
		ItemID:         item.ItemID,
		ServiceType:    item.ServiceType,
		Done:           done,
		UpdatedAt:      &updatedAt,
		UpdatedByUID:   actor.UID,
		UpdatedByName:  actor.FirstName(),
		UpdatedByEmail: actor.Email,
	}

	entry := w.baseEntry(entity.ActionStatusToggle, date, item, displayTime, actor)
	entry.Done = done

	return w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := w.statuses.Save(txCtx, record); err != nil {
			return err
		}
		return w.activity.Append(txCtx, entry)
	})
}

// SetTimeOverride records a manual HH:mm adjustment. Writing the time the
// item already displays is a no-op; the normalized value is returned either
// way so callers can echo it back.
func (w *ChecklistWriter) SetTimeOverride(ctx context.Context, date string, item entity.ServiceItem, previousTime, newTime string, actor entity.Actor) (string, error) {
	if item.ItemID == "" {
		return "", ErrMissingItemID
	}

	overrideTime, err := utils.NormalizeClock(newTime)
	if err != nil {
		return "", err
	}

	originalTime := strings.TrimSpace(item.Time)
	previousTime = strings.TrimSpace(previousTime)
	if previousTime == "" {
		previousTime = originalTime
	}
	if overrideTime == previousTime {
		return overrideTime, nil
	}

	record := &entity.TimeOverrideRecord{
		Date:           date,
		ItemID:         item.ItemID,
		ServiceType:    item.ServiceType,
		OriginalTime:   originalTime,
		OverrideTime:   overrideTime,
		UpdatedByUID:   actor.UID,
		UpdatedByName:  actor.FirstName(),
		UpdatedByEmail: actor.Email,
	}

	entry := w.baseEntry(entity.ActionTimeChange, date, item, overrideTime, actor)
	entry.OldTime = previousTime
	entry.NewTime = overrideTime

	err = w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := w.overrides.Save(txCtx, record); err != nil {
			return err
		}
		return w.activity.Append(txCtx, entry)
	})
	if err != nil {
		return "", err
	}
	return overrideTime, nil
}

// SetReady toggles vehicle readiness. Only pickup items with a plate qualify.
func (w *ChecklistWriter) SetReady(ctx context.Context, date string, item entity.ServiceItem, displayTime string, ready bool, actor entity.Actor) error {
	if item.ItemID == "" {
		return ErrMissingItemID
	}
	if item.ServiceType != entity.ServicePickup {
		return ErrReadyPickupOnly
	}
	plate := strings.TrimSpace(item.Plate)
	if plate == "" {
		return ErrReadyNeedsPlate
	}

	record := &entity.ReadyRecord{
		Date:           date,
		ItemID:         item.ItemID,
		ServiceType:    item.ServiceType,
		Ready:          ready,
		Plate:          plate,
		UpdatedByUID:   actor.UID,
		UpdatedByName:  actor.FirstName(),
		UpdatedByEmail: actor.Email,
	}

	entry := w.baseEntry(entity.ActionReadyToggle, date, item, displayTime, actor)
	entry.Ready = ready
	entry.Plate = plate

	return w.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := w.ready.Save(txCtx, record); err != nil {
			return err
		}
		return w.activity.Append(txCtx, entry)
	})
}

func (w *ChecklistWriter) baseEntry(action entity.ActionType, date string, item entity.ServiceItem, itemTime string, actor entity.Actor) *entity.ActivityEntry {
	if itemTime == "" {
		itemTime = item.Time
	}
	return &entity.ActivityEntry{
		ActionType:     action,
		Date:           date,
		ItemID:         item.ItemID,
		ServiceType:    item.ServiceType,
		CreatedAt:      w.now(),
		UpdatedByUID:   actor.UID,
		UpdatedByName:  actor.FirstName(),
		UpdatedByEmail: actor.Email,
		ItemName:       item.Name,
		ItemTime:       itemTime,
		ReservationID:  item.ReservationID,
	}
}
