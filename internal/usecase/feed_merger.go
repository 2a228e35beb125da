package usecase

import (
	"servicelist-service/internal/domain/entity"
)

// MergeChanges applies an ordered batch of feed events to a keyed snapshot and
// returns the next snapshot. When no event changes anything — removals of
// absent keys, upserts field-identical to the current entry — the SAME map
// reference comes back, so callers can use reference equality as a cheap
// "did anything change" signal before rebuilding downstream state.
//
// The input snapshot is never mutated; the first real change copies it once
// and all later events in the batch mutate the copy.
func MergeChanges[T interface{ Equal(T) bool }](snapshot map[string]T, changes []entity.FeedChange[T]) map[string]T {
	next := snapshot
	copied := false

	copyOnce := func() {
		if copied {
			return
		}
		next = make(map[string]T, len(snapshot)+1)
		for key, value := range snapshot {
			next[key] = value
		}
		copied = true
	}

	for _, change := range changes {
		if change.ItemID == "" {
			continue
		}

		switch change.Type {
		case entity.ChangeRemoved:
			if _, exists := next[change.ItemID]; exists {
				copyOnce()
				delete(next, change.ItemID)
			}
		case entity.ChangeAdded, entity.ChangeModified:
			if current, exists := next[change.ItemID]; exists && current.Equal(change.Entry) {
				continue
			}
			copyOnce()
			next[change.ItemID] = change.Entry
		}
	}

	return next
}
