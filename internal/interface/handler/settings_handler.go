package handler

import (
	"encoding/json"
	"net/http"

	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/utils"
)

// SettingsHandler syncs per-user settings across devices. Today that is just
// the scrape API PIN.
type SettingsHandler struct {
	auth     *Authenticator
	settings repository.UserSettingsRepository
	logger   logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(auth *Authenticator, settings repository.UserSettingsRepository, logger logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		auth:     auth,
		settings: settings,
		logger:   logger,
	}
}

type pinRequest struct {
	Pin string `json:"pin"`
}

// GetPin handles GET /api/v1/settings/pin
func (h *SettingsHandler) GetPin(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Authorize(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication_required")
		return
	}

	settings, err := h.settings.Get(r.Context(), identity.UID)
	if err != nil {
		h.logger.Error("Failed to load user settings", "uid", identity.UID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	pin := ""
	if settings != nil {
		pin = settings.APIPin
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":  true,
		"pin": pin,
	})
}

// SetPin handles PUT /api/v1/settings/pin. An empty pin clears the sync.
func (h *SettingsHandler) SetPin(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Authorize(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication_required")
		return
	}

	var body pinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	// The stored PIN is digits only; separators and whitespace are dropped
	if err := h.settings.SavePin(r.Context(), identity.UID, utils.NormalizePin(body.Pin)); err != nil {
		h.logger.Error("Failed to save user settings", "uid", identity.UID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}
