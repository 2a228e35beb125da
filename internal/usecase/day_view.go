package usecase

import (
	"sort"
	"strings"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/pkg/utils"
)

// ItemView is one renderable checklist row: the raw item plus everything the
// live feeds contribute to it.
type ItemView struct {
	entity.ServiceItem

	DisplayTime string `json:"displayTime"`
	HasOverride bool   `json:"hasOverride"`

	Done        bool       `json:"done"`
	DoneAt      *time.Time `json:"doneAt,omitempty"`
	DoneByName  string     `json:"doneByName,omitempty"`
	DoneByEmail string     `json:"doneByEmail,omitempty"`

	Ready       bool   `json:"ready"`
	ReadyByName string `json:"readyByName,omitempty"`

	// Completed means done long enough ago to leave the active list. It is a
	// sliding predicate over "now", so an item ages out without any new write.
	Completed bool `json:"completed"`

	// PlateKey indexes DayView.SharedPlates; empty when the plate is not
	// shared between the two sides of the day
	PlateKey string `json:"plateKey,omitempty"`
}

// SharedPlateMarker describes one vehicle that appears on both sides of a
// date, with the distinct display times of each side
type SharedPlateMarker struct {
	Plate        string   `json:"plate"`
	DisplayPlate string   `json:"displayPlate"`
	Color        string   `json:"color"`
	VehicleModel string   `json:"vehicleModel,omitempty"`
	PickupTimes  []string `json:"pickupTimes"`
	ReturnTimes  []string `json:"returnTimes"`
}

// DayView is the assembled view model for one date
type DayView struct {
	Date         string                        `json:"date"`
	CachedAt     *time.Time                    `json:"cachedAt,omitempty"`
	HasData      bool                          `json:"hasData"`
	Pickups      []ItemView                    `json:"pickups"`
	Returns      []ItemView                    `json:"returns"`
	SharedPlates map[string]*SharedPlateMarker `json:"sharedPlates"`
}

// IsCompleted is the active/completed partition predicate: done, with a
// timestamp, and older than the hide window. A done record without a
// timestamp stays active until the next write supplies one.
func IsCompleted(status entity.StatusRecord, now time.Time, hideAfter time.Duration) bool {
	if !status.Done || status.UpdatedAt == nil {
		return false
	}
	return now.Sub(*status.UpdatedAt) > hideAfter
}

// ForceCompletedAt returns the backdated timestamp a force-completed status
// carries. The extra 5 minutes over the hide window absorb clock skew between
// writer and readers, so the item leaves every active list immediately.
func ForceCompletedAt(now time.Time, hideAfter time.Duration) time.Time {
	return now.Add(-(hideAfter + 5*time.Minute))
}

// BuildDayView combines the scraped day with the current feed snapshots into
// the renderable view model. Pure with respect to its inputs.
func BuildDayView(
	day *entity.ServiceDay,
	statuses map[string]entity.StatusRecord,
	overrides map[string]entity.TimeOverrideRecord,
	ready map[string]entity.ReadyRecord,
	now time.Time,
	hideAfter time.Duration,
) *DayView {
	view := &DayView{
		SharedPlates: map[string]*SharedPlateMarker{},
	}
	if day == nil {
		view.Pickups = []ItemView{}
		view.Returns = []ItemView{}
		return view
	}

	view.Date = day.Date
	view.CachedAt = day.CachedAt
	view.HasData = true
	view.Pickups = buildItemViews(day.Pickups, statuses, overrides, ready, now, hideAfter)
	view.Returns = buildItemViews(day.Returns, statuses, overrides, ready, now, hideAfter)
	view.SharedPlates = buildSharedPlates(view.Pickups, view.Returns)

	markShared(view.Pickups, view.SharedPlates)
	markShared(view.Returns, view.SharedPlates)

	return view
}

func buildItemViews(
	items []entity.ServiceItem,
	statuses map[string]entity.StatusRecord,
	overrides map[string]entity.TimeOverrideRecord,
	ready map[string]entity.ReadyRecord,
	now time.Time,
	hideAfter time.Duration,
) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		view := ItemView{
			ServiceItem: item,
			DisplayTime: item.Time,
		}

		if override, ok := overrides[item.ItemID]; ok {
			if overrideTime := strings.TrimSpace(override.OverrideTime); overrideTime != "" {
				view.DisplayTime = overrideTime
				view.HasOverride = true
			}
		}

		if status, ok := statuses[item.ItemID]; ok {
			view.Done = status.Done
			view.DoneAt = status.UpdatedAt
			view.DoneByName = status.UpdatedByName
			view.DoneByEmail = status.UpdatedByEmail
			view.Completed = IsCompleted(status, now, hideAfter)
		}

		if readyRecord, ok := ready[item.ItemID]; ok {
			view.Ready = readyRecord.Ready
			view.ReadyByName = readyRecord.UpdatedByName
		}

		views = append(views, view)
	}
	return views
}

// buildSharedPlates finds plates present on both sides of the day. Shared
// plates are ranked lexicographically; the rank drives the color so it stays
// stable while the shared set does not change.
func buildSharedPlates(pickups, returns []ItemView) map[string]*SharedPlateMarker {
	pickupTimes := map[string][]string{}
	returnTimes := map[string][]string{}
	displayPlates := map[string]string{}

	collect := func(views []ItemView, times map[string][]string) {
		for _, view := range views {
			plate := utils.NormalizePlate(view.Plate)
			if plate == "" {
				continue
			}
			if _, ok := displayPlates[plate]; !ok && view.Plate != "" {
				displayPlates[plate] = strings.ToUpper(strings.TrimSpace(view.Plate))
			}
			times[plate] = append(times[plate], view.DisplayTime)
		}
	}
	collect(pickups, pickupTimes)
	collect(returns, returnTimes)

	var shared []string
	for plate := range pickupTimes {
		if _, ok := returnTimes[plate]; ok {
			shared = append(shared, plate)
		}
	}
	sort.Strings(shared)

	markers := make(map[string]*SharedPlateMarker, len(shared))
	for index, plate := range shared {
		markers[plate] = &SharedPlateMarker{
			Plate:        plate,
			DisplayPlate: displayPlates[plate],
			Color:        utils.PlateColor(index),
			PickupTimes:  uniqueTimes(pickupTimes[plate]),
			ReturnTimes:  uniqueTimes(returnTimes[plate]),
		}
	}
	return markers
}

func markShared(views []ItemView, markers map[string]*SharedPlateMarker) {
	for i := range views {
		plate := utils.NormalizePlate(views[i].Plate)
		if _, ok := markers[plate]; ok {
			views[i].PlateKey = plate
		}
	}
}

// uniqueTimes dedups while preserving first-seen order
func uniqueTimes(values []string) []string {
	seen := map[string]struct{}{}
	output := []string{}
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		output = append(output, normalized)
	}
	return output
}
