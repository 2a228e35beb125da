package handler

import (
	"net/http"
	"strconv"
	"time"

	"servicelist-service/internal/usecase"
	"servicelist-service/pkg/logger"
)

// maxStatusWait caps the long-poll window of the status endpoint
const maxStatusWait = 30 * time.Second

// AccessHandler exposes the access-request entry point
type AccessHandler struct {
	auth     *Authenticator
	approver *usecase.AccessApprover
	logger   logger.Logger
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(auth *Authenticator, approver *usecase.AccessApprover, logger logger.Logger) *AccessHandler {
	return &AccessHandler{
		auth:     auth,
		approver: approver,
		logger:   logger,
	}
}

// RequestAccess handles POST /api/v1/access/request. Any authenticated
// identity may call it; authorization is the outcome, not a precondition.
func (h *AccessHandler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Identify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication_required")
		return
	}

	decision, err := h.approver.RequestAccess(r.Context(), identity)
	if err != nil {
		h.logger.Error("Access request failed", "uid", identity.UID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"state":         decision.State,
		"requestStatus": decision.RequestStatus,
		"message":       decision.Message,
	})
}

// Status handles GET /api/v1/access/status: the live view onto the caller's
// request record. Without parameters it answers immediately; with
// known=<status>&wait=<seconds> it holds until the record leaves that status
// or the window ends, so the pending screen sees the decision arrive.
func (h *AccessHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, err := h.auth.Identify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "authentication_required")
		return
	}

	known := r.URL.Query().Get("known")
	wait := parseWaitSeconds(r.URL.Query().Get("wait"))

	decision, err := h.approver.AwaitDecision(r.Context(), identity.UID, known, wait)
	if err != nil {
		h.logger.Error("Access status failed", "uid", identity.UID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"state":         decision.State,
		"requestStatus": decision.RequestStatus,
		"message":       decision.Message,
	})
}

func parseWaitSeconds(value string) time.Duration {
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	wait := time.Duration(seconds) * time.Second
	if wait > maxStatusWait {
		return maxStatusWait
	}
	return wait
}
