package entity

import (
	"strconv"
	"strings"
	"time"
)

// ServiceType distinguishes the two halves of a service day
type ServiceType string

const (
	ServicePickup ServiceType = "pickup"
	ServiceReturn ServiceType = "return"
)

// ServiceItem is one delivery or collection job for one date. The scheduled
// Time keeps the originally scraped value; manual adjustments live in
// TimeOverrideRecord.
type ServiceItem struct {
	ItemID        string      `bson:"itemId,omitempty" json:"itemId,omitempty"`
	ReservationID string      `bson:"id,omitempty" json:"id,omitempty"`
	ServiceType   ServiceType `bson:"serviceType,omitempty" json:"serviceType,omitempty"`
	Time          string      `bson:"time,omitempty" json:"time,omitempty"`
	Name          string      `bson:"name,omitempty" json:"name,omitempty"`
	Car           string      `bson:"car,omitempty" json:"car,omitempty"`
	Plate         string      `bson:"plate,omitempty" json:"plate,omitempty"`
	Phone         string      `bson:"phone,omitempty" json:"phone,omitempty"`
	FlightNumber  string      `bson:"flightNumber,omitempty" json:"flightNumber,omitempty"`
	Location      string      `bson:"location,omitempty" json:"location,omitempty"`
	Notes         string      `bson:"notes,omitempty" json:"notes,omitempty"`
	Extras        []string    `bson:"extras,omitempty" json:"extras,omitempty"`
}

// ServiceDay is the raw scraped document for one date
type ServiceDay struct {
	Date     string        `bson:"date"`
	CachedAt *time.Time    `bson:"cachedAt,omitempty"`
	Pickups  []ServiceItem `bson:"pickups"`
	Returns  []ServiceItem `bson:"returns"`
}

// FallbackItemID derives a deterministic identity for an upstream item that
// carries none. The positional index keeps items with identical fields apart
// within one fetch.
func FallbackItemID(item ServiceItem, date string, serviceType ServiceType, index int) string {
	fields := []string{
		date,
		string(serviceType),
		item.ReservationID,
		item.Time,
		item.Name,
		item.Car,
		item.Plate,
		strconv.Itoa(index),
	}

	for i, value := range fields {
		fields[i] = strings.ToLower(strings.TrimSpace(value))
	}

	return "fallback:" + strings.Join(fields, "|")
}

// NormalizeServiceDay assigns service types and stable item identities to the
// raw pickup/return lists of a date
func NormalizeServiceDay(date string, cachedAt *time.Time, pickups, returns []ServiceItem) *ServiceDay {
	return &ServiceDay{
		Date:     date,
		CachedAt: cachedAt,
		Pickups:  normalizeItems(pickups, date, ServicePickup),
		Returns:  normalizeItems(returns, date, ServiceReturn),
	}
}

func normalizeItems(items []ServiceItem, date string, serviceType ServiceType) []ServiceItem {
	normalized := make([]ServiceItem, len(items))
	for i, item := range items {
		if item.ServiceType == "" {
			item.ServiceType = serviceType
		}
		if item.ItemID == "" {
			item.ItemID = FallbackItemID(item, date, item.ServiceType, i)
		}
		normalized[i] = item
	}
	return normalized
}
