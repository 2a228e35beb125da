package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/internal/usecase"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
	"servicelist-service/pkg/utils"

	"github.com/go-playground/validator/v10"
)

// DayHandler serves the per-date checklist API. Every route requires an
// active allowlist entry.
type DayHandler struct {
	auth          *Authenticator
	hub           *usecase.DayHub
	writer        *usecase.ChecklistWriter
	activity      repository.ActivityRepository
	settings      repository.UserSettingsRepository
	activityLimit int
	validate      *validator.Validate
	logger        logger.Logger
	metrics       *metrics.Metrics
}

// NewDayHandler creates a new day handler
func NewDayHandler(
	auth *Authenticator,
	hub *usecase.DayHub,
	writer *usecase.ChecklistWriter,
	activity repository.ActivityRepository,
	settings repository.UserSettingsRepository,
	activityLimit int,
	logger logger.Logger,
	m *metrics.Metrics,
) *DayHandler {
	return &DayHandler{
		auth:          auth,
		hub:           hub,
		writer:        writer,
		activity:      activity,
		settings:      settings,
		activityLimit: activityLimit,
		validate:      validator.New(),
		logger:        logger,
		metrics:       m,
	}
}

type statusRequest struct {
	ItemID         string `json:"itemId" validate:"required"`
	Done           bool   `json:"done"`
	ForceCompleted bool   `json:"forceCompleted"`
}

type timeOverrideRequest struct {
	ItemID string `json:"itemId" validate:"required"`
	Time   string `json:"time" validate:"required"`
}

type readyRequest struct {
	ItemID string `json:"itemId" validate:"required"`
	Ready  bool   `json:"ready"`
}

// GetDay handles GET /api/v1/days/{date}: the assembled view model plus the
// staleness banner, arming the auto refresh as a side effect
func (h *DayHandler) GetDay(w http.ResponseWriter, r *http.Request) {
	identity, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	session, err := h.hub.Session(r.Context(), date)
	if err != nil {
		h.fail(w, "day_session", date, err)
		return
	}

	view, warning := session.Snapshot(h.resolvePin(r, identity.UID))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"data":         view,
		"staleWarning": warning,
	})
}

// Refresh handles POST /api/v1/days/{date}/refresh: the operator-initiated
// force refresh
func (h *DayHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	identity, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	session, err := h.hub.Session(r.Context(), date)
	if err != nil {
		h.fail(w, "day_session", date, err)
		return
	}

	if err := session.ManualRefresh(r.Context(), h.resolvePin(r, identity.UID)); err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, usecase.ErrPinRequired) {
			status = http.StatusBadRequest
		} else if errors.Is(err, usecase.ErrRefreshInFlight) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// SetStatus handles POST /api/v1/days/{date}/status
func (h *DayHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	identity, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	var body statusRequest
	if !h.decode(w, r, &body) {
		return
	}

	item, displayTime, ok := h.findItem(w, r, date, body.ItemID)
	if !ok {
		return
	}

	err := h.writer.SetDone(r.Context(), date, item, displayTime, body.Done, body.ForceCompleted, actorOf(identity))
	if err != nil {
		h.fail(w, "set_status", date, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// SetTimeOverride handles POST /api/v1/days/{date}/time-override
func (h *DayHandler) SetTimeOverride(w http.ResponseWriter, r *http.Request) {
	identity, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	var body timeOverrideRequest
	if !h.decode(w, r, &body) {
		return
	}
	if _, err := utils.NormalizeClock(body.Time); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, displayTime, ok := h.findItem(w, r, date, body.ItemID)
	if !ok {
		return
	}

	normalized, err := h.writer.SetTimeOverride(r.Context(), date, item, displayTime, body.Time, actorOf(identity))
	if err != nil {
		if errors.Is(err, usecase.ErrMissingItemID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.fail(w, "set_time_override", date, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"time": normalized,
	})
}

// SetReady handles POST /api/v1/days/{date}/ready
func (h *DayHandler) SetReady(w http.ResponseWriter, r *http.Request) {
	identity, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	var body readyRequest
	if !h.decode(w, r, &body) {
		return
	}

	item, displayTime, ok := h.findItem(w, r, date, body.ItemID)
	if !ok {
		return
	}

	err := h.writer.SetReady(r.Context(), date, item, displayTime, body.Ready, actorOf(identity))
	if err != nil {
		if errors.Is(err, usecase.ErrReadyPickupOnly) || errors.Is(err, usecase.ErrReadyNeedsPlate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.fail(w, "set_ready", date, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

// GetActivity handles GET /api/v1/days/{date}/activity
func (h *DayHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	_, date, ok := h.begin(w, r)
	if !ok {
		return
	}

	entries, err := h.activity.ListRecent(r.Context(), date, h.activityLimit)
	if err != nil {
		h.fail(w, "list_activity", date, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"entries": entries,
	})
}

// begin authorizes the caller and validates the date path segment
func (h *DayHandler) begin(w http.ResponseWriter, r *http.Request) (*entity.Identity, string, bool) {
	identity, err := h.auth.Authorize(r)
	if err != nil {
		if errors.Is(err, errNotAllowed) {
			writeError(w, http.StatusForbidden, "not_allowed")
		} else {
			writeError(w, http.StatusUnauthorized, "authentication_required")
		}
		return nil, "", false
	}

	date := r.PathValue("date")
	if !utils.IsValidServiceDate(date) {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return nil, "", false
	}
	return identity, date, true
}

func (h *DayHandler) decode(w http.ResponseWriter, r *http.Request, body interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return false
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return false
	}
	return true
}

func (h *DayHandler) findItem(w http.ResponseWriter, r *http.Request, date, itemID string) (entity.ServiceItem, string, bool) {
	session, err := h.hub.Session(r.Context(), date)
	if err != nil {
		h.fail(w, "day_session", date, err)
		return entity.ServiceItem{}, "", false
	}

	item, displayTime, found := session.FindItem(itemID)
	if !found {
		writeError(w, http.StatusNotFound, "item_not_found")
		return entity.ServiceItem{}, "", false
	}
	return item, displayTime, true
}

// resolvePin prefers the per-request header, falling back to the caller's
// synced settings
func (h *DayHandler) resolvePin(r *http.Request, uid string) string {
	if pin := r.Header.Get("X-PIN"); pin != "" {
		return pin
	}
	settings, err := h.settings.Get(r.Context(), uid)
	if err != nil || settings == nil {
		return ""
	}
	return settings.APIPin
}

func (h *DayHandler) fail(w http.ResponseWriter, operation, date string, err error) {
	h.logger.Error("Day request failed", "operation", operation, "date", date, "error", err)
	h.metrics.ErrorsCount.WithLabelValues(operation).Inc()
	writeError(w, http.StatusInternalServerError, "internal_error")
}

func actorOf(identity *entity.Identity) entity.Actor {
	return entity.Actor{
		UID:         identity.UID,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
	}
}
