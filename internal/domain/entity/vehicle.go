package entity

import "time"

// Vehicle is a row of the fleet reference table, keyed by normalized plate
type Vehicle struct {
	ID        uint
	Plate     string
	Model     string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
