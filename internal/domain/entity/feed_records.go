package entity

import (
	"time"

	"servicelist-service/pkg/utils"
)

// ChangeType classifies one event of a change feed
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeRemoved  ChangeType = "removed"
)

// FeedChange is one ordered event of a keyed change feed. Entry is unset for
// removals.
type FeedChange[T any] struct {
	ItemID string
	Type   ChangeType
	Entry  T
}

// StatusRecord tracks the done state of one item on one date. At most one
// record exists per (date, itemId); records are never deleted.
type StatusRecord struct {
	Date           string      `bson:"date"`
	ItemID         string      `bson:"itemId"`
	ServiceType    ServiceType `bson:"serviceType,omitempty"`
	Done           bool        `bson:"done"`
	UpdatedAt      *time.Time  `bson:"updatedAt,omitempty"`
	UpdatedByUID   string      `bson:"updatedByUid,omitempty"`
	UpdatedByName  string      `bson:"updatedByName,omitempty"`
	UpdatedByEmail string      `bson:"updatedByEmail,omitempty"`
}

// Equal compares the fields the view model depends on, with timestamps at
// millisecond precision
func (s StatusRecord) Equal(other StatusRecord) bool {
	return s.Done == other.Done &&
		s.UpdatedByName == other.UpdatedByName &&
		s.UpdatedByEmail == other.UpdatedByEmail &&
		utils.SameTimestamp(s.UpdatedAt, other.UpdatedAt)
}

// TimeOverrideRecord carries a manual HH:mm adjustment for one item. The
// original scraped time is kept for audit and reset; absence of a record means
// "use the original time".
type TimeOverrideRecord struct {
	Date           string      `bson:"date"`
	ItemID         string      `bson:"itemId"`
	ServiceType    ServiceType `bson:"serviceType,omitempty"`
	OriginalTime   string      `bson:"originalTime"`
	OverrideTime   string      `bson:"overrideTime"`
	UpdatedAt      *time.Time  `bson:"updatedAt,omitempty"`
	UpdatedByUID   string      `bson:"updatedByUid,omitempty"`
	UpdatedByName  string      `bson:"updatedByName,omitempty"`
	UpdatedByEmail string      `bson:"updatedByEmail,omitempty"`
}

// Equal compares the fields the view model depends on
func (o TimeOverrideRecord) Equal(other TimeOverrideRecord) bool {
	return o.OverrideTime == other.OverrideTime &&
		o.OriginalTime == other.OriginalTime &&
		o.UpdatedByName == other.UpdatedByName &&
		o.UpdatedByEmail == other.UpdatedByEmail &&
		utils.SameTimestamp(o.UpdatedAt, other.UpdatedAt)
}

// ReadyRecord marks a delivery vehicle as prepared. Only meaningful for
// pickup items with a plate.
type ReadyRecord struct {
	Date           string      `bson:"date"`
	ItemID         string      `bson:"itemId"`
	ServiceType    ServiceType `bson:"serviceType,omitempty"`
	Ready          bool        `bson:"ready"`
	Plate          string      `bson:"plate"`
	UpdatedAt      *time.Time  `bson:"updatedAt,omitempty"`
	UpdatedByUID   string      `bson:"updatedByUid,omitempty"`
	UpdatedByName  string      `bson:"updatedByName,omitempty"`
	UpdatedByEmail string      `bson:"updatedByEmail,omitempty"`
}

// Equal compares the fields the view model depends on
func (r ReadyRecord) Equal(other ReadyRecord) bool {
	return r.Ready == other.Ready &&
		r.Plate == other.Plate &&
		r.UpdatedByName == other.UpdatedByName &&
		r.UpdatedByEmail == other.UpdatedByEmail &&
		utils.SameTimestamp(r.UpdatedAt, other.UpdatedAt)
}
