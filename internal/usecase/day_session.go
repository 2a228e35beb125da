package usecase

import (
	"context"
	"reflect"
	"sync"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
)

// DaySession owns the live state of one date: the scraped day document and
// the three change-feed snapshots, kept current by watch goroutines for as
// long as the session lives. Each session carries its own refresh controller,
// so the one-auto-attempt-per-cache-version ledger resets when a date's
// session is torn down.
type DaySession struct {
	date      string
	hideAfter time.Duration

	days      repository.ServiceDayRepository
	statuses  repository.StatusRepository
	overrides repository.TimeOverrideRepository
	ready     repository.ReadyRepository
	vehicles  repository.VehicleRepository
	refresh   *RefreshController

	logger  logger.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	day         *entity.ServiceDay
	statusMap   map[string]entity.StatusRecord
	overrideMap map[string]entity.TimeOverrideRecord
	readyMap    map[string]entity.ReadyRecord
	lastAccess  time.Time
}

func newDaySession(
	date string,
	days repository.ServiceDayRepository,
	statuses repository.StatusRepository,
	overrides repository.TimeOverrideRepository,
	ready repository.ReadyRepository,
	vehicles repository.VehicleRepository,
	refresh *RefreshController,
	hideAfter time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *DaySession {
	return &DaySession{
		date:        date,
		hideAfter:   hideAfter,
		days:        days,
		statuses:    statuses,
		overrides:   overrides,
		ready:       ready,
		vehicles:    vehicles,
		refresh:     refresh,
		logger:      logger,
		metrics:     m,
		statusMap:   map[string]entity.StatusRecord{},
		overrideMap: map[string]entity.TimeOverrideRecord{},
		readyMap:    map[string]entity.ReadyRecord{},
		lastAccess:  time.Now(),
	}
}

// start loads the initial snapshots and attaches the watch goroutines
func (s *DaySession) start(parent context.Context) error {
	s.ctx, s.cancel = context.WithCancel(parent)

	day, err := s.days.Get(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	statusMap, err := s.statuses.ListByDate(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	overrideMap, err := s.overrides.ListByDate(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	readyMap, err := s.ready.ListByDate(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}

	s.mu.Lock()
	s.day = s.normalizeDay(day)
	s.statusMap = statusMap
	s.overrideMap = overrideMap
	s.readyMap = readyMap
	s.mu.Unlock()

	dayChanges, err := s.days.Watch(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	statusChanges, err := s.statuses.Watch(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	overrideChanges, err := s.overrides.Watch(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}
	readyChanges, err := s.ready.Watch(s.ctx, s.date)
	if err != nil {
		s.cancel()
		return err
	}

	go s.consumeDay(dayChanges)
	go consumeFeed(s, statusChanges, func(m map[string]entity.StatusRecord) { s.statusMap = m }, func() map[string]entity.StatusRecord { return s.statusMap })
	go consumeFeed(s, overrideChanges, func(m map[string]entity.TimeOverrideRecord) { s.overrideMap = m }, func() map[string]entity.TimeOverrideRecord { return s.overrideMap })
	go consumeFeed(s, readyChanges, func(m map[string]entity.ReadyRecord) { s.readyMap = m }, func() map[string]entity.ReadyRecord { return s.readyMap })

	return nil
}

// stop cancels the watches; late events drain into the closed-channel paths
func (s *DaySession) stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *DaySession) consumeDay(changes <-chan *entity.ServiceDay) {
	for day := range changes {
		normalized := s.normalizeDay(day)
		s.mu.Lock()
		s.day = normalized
		s.mu.Unlock()
		s.metrics.FeedEventsApplied.Inc()
	}
}

// consumeFeed merges one feed's events into its snapshot. The merger returns
// the same reference for no-op events, which keeps the applied counter honest.
func consumeFeed[T interface{ Equal(T) bool }](s *DaySession, changes <-chan entity.FeedChange[T], store func(map[string]T), load func() map[string]T) {
	for change := range changes {
		s.mu.Lock()
		previous := load()
		next := MergeChanges(previous, []entity.FeedChange[T]{change})
		changed := !sameReference(previous, next)
		if changed {
			store(next)
		}
		s.mu.Unlock()

		if changed {
			s.metrics.FeedEventsApplied.Inc()
		}
	}
}

// Snapshot assembles the current view model. When the cached day is stale it
// also arms the background auto refresh, using the caller's PIN; the returned
// warning is the staleness banner to surface alongside the data.
func (s *DaySession) Snapshot(pin string) (*DayView, string) {
	s.mu.Lock()
	s.lastAccess = time.Now()
	day := s.day
	statusMap := s.statusMap
	overrideMap := s.overrideMap
	readyMap := s.readyMap
	s.mu.Unlock()

	// Auto refresh runs on the session context so it survives the request
	s.refresh.MaybeAutoRefresh(s.ctx, day, pin)

	view := BuildDayView(day, statusMap, overrideMap, readyMap, time.Now(), s.hideAfter)
	s.attachVehicleModels(view)

	return view, s.refresh.Warning()
}

// ManualRefresh forwards an operator-initiated refresh to the controller
func (s *DaySession) ManualRefresh(ctx context.Context, pin string) error {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
	return s.refresh.ManualRefresh(ctx, pin)
}

// FindItem locates one item of the day by id and resolves its display time
func (s *DaySession) FindItem(itemID string) (entity.ServiceItem, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.day == nil {
		return entity.ServiceItem{}, "", false
	}

	for _, items := range [][]entity.ServiceItem{s.day.Pickups, s.day.Returns} {
		for _, item := range items {
			if item.ItemID != itemID {
				continue
			}
			displayTime := item.Time
			if override, ok := s.overrideMap[itemID]; ok && override.OverrideTime != "" {
				displayTime = override.OverrideTime
			}
			return item, displayTime, true
		}
	}
	return entity.ServiceItem{}, "", false
}

func (s *DaySession) idleSince() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAccess
}

func (s *DaySession) normalizeDay(day *entity.ServiceDay) *entity.ServiceDay {
	if day == nil {
		return nil
	}
	return entity.NormalizeServiceDay(s.date, day.CachedAt, day.Pickups, day.Returns)
}

// attachVehicleModels enriches shared-plate markers from the fleet reference
// table; lookups are best-effort
func (s *DaySession) attachVehicleModels(view *DayView) {
	if s.vehicles == nil {
		return
	}
	for plate, marker := range view.SharedPlates {
		vehicle, err := s.vehicles.GetByPlate(s.ctx, plate)
		if err != nil {
			s.logger.Debug("Vehicle lookup failed", "plate", plate, "error", err)
			continue
		}
		if vehicle != nil {
			marker.VehicleModel = vehicle.Model
		}
	}
}

// sameReference reports whether two snapshots are the same map object,
// which is exactly the merger's "nothing changed" signal
func sameReference[T any](a, b map[string]T) bool {
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}
