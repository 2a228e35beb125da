package usecase

import (
	"context"
	"sync"
	"time"

	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
)

// DayHub hands out one live session per date, creating them lazily and
// tearing them down after a period without readers.
type DayHub struct {
	days        repository.ServiceDayRepository
	statuses    repository.StatusRepository
	overrides   repository.TimeOverrideRepository
	ready       repository.ReadyRepository
	vehicles    repository.VehicleRepository
	scraper     repository.ScrapeClient
	staleMaxAge time.Duration
	hideAfter   time.Duration
	idleTTL     time.Duration
	logger      logger.Logger
	metrics     *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*DaySession
}

// NewDayHub creates a new day hub
func NewDayHub(
	days repository.ServiceDayRepository,
	statuses repository.StatusRepository,
	overrides repository.TimeOverrideRepository,
	ready repository.ReadyRepository,
	vehicles repository.VehicleRepository,
	scraper repository.ScrapeClient,
	staleMaxAge time.Duration,
	hideAfter time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *DayHub {
	return &DayHub{
		days:        days,
		statuses:    statuses,
		overrides:   overrides,
		ready:       ready,
		vehicles:    vehicles,
		scraper:     scraper,
		staleMaxAge: staleMaxAge,
		hideAfter:   hideAfter,
		idleTTL:     15 * time.Minute,
		logger:      logger,
		metrics:     m,
		sessions:    map[string]*DaySession{},
	}
}

// Session returns the live session for a date, starting one if needed
func (h *DayHub) Session(ctx context.Context, date string) (*DaySession, error) {
	h.mu.Lock()
	if session, ok := h.sessions[date]; ok {
		h.mu.Unlock()
		return session, nil
	}
	h.mu.Unlock()

	refresh := NewRefreshController(date, h.scraper, h.staleMaxAge, h.logger, h.metrics)
	session := newDaySession(date, h.days, h.statuses, h.overrides, h.ready, h.vehicles, refresh, h.hideAfter, h.logger, h.metrics)

	// Sessions outlive the request that created them
	if err := session.start(context.Background()); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.sessions[date]; ok {
		// Lost the race to another request; keep the first session
		session.stop()
		return existing, nil
	}
	h.sessions[date] = session
	h.logger.Info("Day session started", "date", date)
	return session, nil
}

// Run evicts idle sessions until ctx ends. Meant to be started once at boot.
func (h *DayHub) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.stopAll()
			return
		case <-ticker.C:
			h.evictIdle()
		}
	}
}

func (h *DayHub) evictIdle() {
	cutoff := time.Now().Add(-h.idleTTL)

	h.mu.Lock()
	defer h.mu.Unlock()
	for date, session := range h.sessions {
		if session.idleSince().Before(cutoff) {
			session.stop()
			delete(h.sessions, date)
			h.logger.Info("Day session evicted", "date", date)
		}
	}
}

func (h *DayHub) stopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for date, session := range h.sessions {
		session.stop()
		delete(h.sessions, date)
	}
}
