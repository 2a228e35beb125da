package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
)

// Refresh sources
const (
	RefreshManual = "manual"
	RefreshAuto   = "auto"
)

// Operator-facing refresh copy
const (
	MsgPinRequired   = "Introduz o PIN da API para atualizar os serviços."
	MsgRefreshBusy   = "Já existe uma atualização em curso."
	WarnStaleNeedPin = "Dados desatualizados (mais de 2 horas). Introduz o PIN para atualizar."
	WarnAutoFailed   = "Dados desatualizados. Falha na atualização automática. Usa Atualizar para tentar novamente."
)

// ErrRefreshInFlight rejects a refresh while another one is running
var ErrRefreshInFlight = errors.New(MsgRefreshBusy)

// ErrPinRequired rejects a refresh without a PIN credential
var ErrPinRequired = errors.New(MsgPinRequired)

// RefreshController owns the refresh policy for one date: at most one
// automatic attempt per cache version, a single refresh in flight at a time,
// and a non-blocking staleness warning when the data can still be shown.
type RefreshController struct {
	date        string
	client      repository.ScrapeClient
	staleMaxAge time.Duration
	logger      logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time

	mu        sync.Mutex
	inFlight  bool
	attempted map[string]struct{}
	warning   string
}

// NewRefreshController creates a refresh controller for one date
func NewRefreshController(date string, client repository.ScrapeClient, staleMaxAge time.Duration, logger logger.Logger, m *metrics.Metrics) *RefreshController {
	return &RefreshController{
		date:        date,
		client:      client,
		staleMaxAge: staleMaxAge,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
		attempted:   map[string]struct{}{},
	}
}

// IsStale reports whether the cached day is old enough to refresh. A missing
// timestamp always counts as stale.
func (c *RefreshController) IsStale(cachedAt *time.Time) bool {
	if cachedAt == nil || cachedAt.IsZero() {
		return true
	}
	return c.now().Sub(*cachedAt) > c.staleMaxAge
}

// Warning returns the current non-blocking staleness banner, empty when clear
func (c *RefreshController) Warning() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warning
}

// ManualRefresh runs an operator-initiated refresh. It ignores staleness and
// the auto-attempt ledger, but still refuses to overlap a running refresh.
func (c *RefreshController) ManualRefresh(ctx context.Context, pin string) error {
	if pin == "" {
		c.metrics.RefreshAttempts.WithLabelValues(RefreshManual, "no_pin").Inc()
		return ErrPinRequired
	}

	if !c.acquire() {
		c.metrics.RefreshAttempts.WithLabelValues(RefreshManual, "busy").Inc()
		return ErrRefreshInFlight
	}
	defer c.release()

	_, err := c.client.FetchDay(ctx, c.date, pin, true)
	if err != nil {
		c.metrics.RefreshAttempts.WithLabelValues(RefreshManual, "error").Inc()
		c.logger.Warn("Manual refresh failed", "date", c.date, "error", err)
		return err
	}

	c.metrics.RefreshAttempts.WithLabelValues(RefreshManual, "success").Inc()
	c.setWarning("")
	return nil
}

// MaybeAutoRefresh evaluates staleness for the current cached day and fires
// at most one background refresh per (date, cache version). Repeat calls for
// the same cache version only refresh the warning banner. hasData tells the
// controller whether stale content is still renderable, which decides between
// a soft warning and none at all.
func (c *RefreshController) MaybeAutoRefresh(ctx context.Context, day *entity.ServiceDay, pin string) {
	var cachedAt *time.Time
	hasData := day != nil
	if hasData {
		cachedAt = day.CachedAt
	}

	if !c.IsStale(cachedAt) {
		c.setWarning("")
		return
	}

	if pin == "" {
		if hasData {
			c.setWarning(WarnStaleNeedPin)
		} else {
			c.setWarning(MsgPinRequired)
		}
		return
	}

	key := cacheVersionKey(day)

	c.mu.Lock()
	if _, tried := c.attempted[key]; tried || c.inFlight {
		c.mu.Unlock()
		return
	}
	c.attempted[key] = struct{}{}
	c.inFlight = true
	c.mu.Unlock()

	go func() {
		defer c.release()

		_, err := c.client.FetchDay(ctx, c.date, pin, true)
		if err != nil {
			c.metrics.RefreshAttempts.WithLabelValues(RefreshAuto, "error").Inc()
			c.logger.Warn("Auto refresh failed", "date", c.date, "cacheVersion", key, "error", err)
			if hasData {
				c.setWarning(WarnAutoFailed)
			} else {
				c.setWarning(err.Error())
			}
			return
		}

		c.metrics.RefreshAttempts.WithLabelValues(RefreshAuto, "success").Inc()
		c.setWarning("")
	}()
}

func (c *RefreshController) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return false
	}
	c.inFlight = true
	return true
}

func (c *RefreshController) release() {
	c.mu.Lock()
	c.inFlight = false
	c.mu.Unlock()
}

func (c *RefreshController) setWarning(value string) {
	c.mu.Lock()
	c.warning = value
	c.mu.Unlock()
}

// cacheVersionKey identifies one cache version of a date. A rewrite bumps
// cachedAt, producing a fresh key and re-arming the single auto attempt.
func cacheVersionKey(day *entity.ServiceDay) string {
	if day == nil {
		return "missing"
	}
	if day.CachedAt == nil || day.CachedAt.IsZero() {
		return "missing-cachedAt"
	}
	return strconv.FormatInt(day.CachedAt.UnixMilli(), 10)
}
