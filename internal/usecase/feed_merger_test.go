package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicelist-service/internal/domain/entity"
)

func statusChange(changeType entity.ChangeType, itemID string, done bool, updatedAt time.Time) entity.FeedChange[entity.StatusRecord] {
	return entity.FeedChange[entity.StatusRecord]{
		ItemID: itemID,
		Type:   changeType,
		Entry: entity.StatusRecord{
			Date:      "2026-08-28",
			ItemID:    itemID,
			Done:      done,
			UpdatedAt: &updatedAt,
		},
	}
}

func TestMergeChangesEmptyBatchReturnsSameReference(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	next := MergeChanges(snapshot, nil)

	assert.True(t, sameReference(snapshot, next))
}

func TestMergeChangesIdenticalUpsertReturnsSameReference(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeModified, "item-1", true, now),
	})

	assert.True(t, sameReference(snapshot, next))
}

func TestMergeChangesTimestampComparedAtMillisecondPrecision(t *testing.T) {
	now := time.Now().Truncate(time.Millisecond)
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	// Sub-millisecond drift must not count as a change
	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeModified, "item-1", true, now.Add(300*time.Microsecond)),
	})

	assert.True(t, sameReference(snapshot, next))
}

func TestMergeChangesRealChangeReplacesEntry(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeModified, "item-1", false, now),
	})

	require.False(t, sameReference(snapshot, next))
	assert.False(t, next["item-1"].Done)
	// The input snapshot stays untouched
	assert.True(t, snapshot["item-1"].Done)
}

func TestMergeChangesRemoveAbsentKeyIsNoOp(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		{ItemID: "item-2", Type: entity.ChangeRemoved},
	})

	assert.True(t, sameReference(snapshot, next))
}

func TestMergeChangesRemoveDeletesKey(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
		statusChange(entity.ChangeAdded, "item-2", false, now),
	})

	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		{ItemID: "item-1", Type: entity.ChangeRemoved},
	})

	require.False(t, sameReference(snapshot, next))
	assert.NotContains(t, next, "item-1")
	assert.Contains(t, next, "item-2")
	assert.Contains(t, snapshot, "item-1")
}

func TestMergeChangesMixedBatchCopiesOnce(t *testing.T) {
	now := time.Now()
	snapshot := MergeChanges(map[string]entity.StatusRecord{}, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeAdded, "item-1", true, now),
	})

	next := MergeChanges(snapshot, []entity.FeedChange[entity.StatusRecord]{
		statusChange(entity.ChangeModified, "item-1", true, now), // identical, skipped
		statusChange(entity.ChangeAdded, "item-2", true, now),
		{ItemID: "item-1", Type: entity.ChangeRemoved},
	})

	require.False(t, sameReference(snapshot, next))
	assert.Len(t, next, 1)
	assert.Contains(t, next, "item-2")
	assert.Len(t, snapshot, 1)
}
