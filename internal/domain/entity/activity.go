package entity

import (
	"time"

	"servicelist-service/pkg/utils"
)

// ActionType classifies one audit row
type ActionType string

const (
	ActionStatusToggle ActionType = "status_toggle"
	ActionTimeChange   ActionType = "time_change"
	ActionReadyToggle  ActionType = "ready_toggle"
)

// ActivityEntry is one append-only audit row for a date. Entries are never
// mutated or deleted; only the most recent ones are served.
type ActivityEntry struct {
	ID             string      `bson:"_id,omitempty"`
	ActionType     ActionType  `bson:"actionType"`
	Date           string      `bson:"date"`
	ItemID         string      `bson:"itemId"`
	ServiceType    ServiceType `bson:"serviceType,omitempty"`
	Done           bool        `bson:"done"`
	Ready          bool        `bson:"ready,omitempty"`
	Plate          string      `bson:"plate,omitempty"`
	CreatedAt      time.Time   `bson:"createdAt"`
	UpdatedByUID   string      `bson:"updatedByUid,omitempty"`
	UpdatedByName  string      `bson:"updatedByName,omitempty"`
	UpdatedByEmail string      `bson:"updatedByEmail,omitempty"`
	ItemName       string      `bson:"itemName,omitempty"`
	ItemTime       string      `bson:"itemTime,omitempty"`
	ReservationID  string      `bson:"reservationId,omitempty"`
	OldTime        string      `bson:"oldTime,omitempty"`
	NewTime        string      `bson:"newTime,omitempty"`
}

// Actor identifies the staff member performing a checklist mutation
type Actor struct {
	UID         string
	DisplayName string
	Email       string
}

// FirstName returns the short name recorded on audit rows
func (a Actor) FirstName() string {
	return utils.UpdaterFirstName(a.DisplayName, a.Email)
}
