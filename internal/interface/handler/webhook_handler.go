package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/usecase"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
)

// secretTokenHeader is set by Telegram on every webhook delivery
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler receives Telegram updates for the approval workflow
type WebhookHandler struct {
	approver *usecase.AccessApprover
	secret   string
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(approver *usecase.AccessApprover, secret string, logger logger.Logger, m *metrics.Metrics) *WebhookHandler {
	return &WebhookHandler{
		approver: approver,
		secret:   secret,
		logger:   logger,
		metrics:  m,
	}
}

// Handle processes POST /telegram/webhook. Validation failures are rejected
// at the edge before any state is touched; updates without a callback query
// are acknowledged and ignored.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	defer func() {
		h.metrics.WebhookLatency.Observe(time.Since(started).Seconds())
	}()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	headerSecret := r.Header.Get(secretTokenHeader)
	if headerSecret == "" || headerSecret != h.secret {
		writeError(w, http.StatusUnauthorized, "invalid_secret")
		return
	}

	var update entity.TelegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
		return
	}
	if update.CallbackQuery == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "ignored": true})
		return
	}

	result, err := h.approver.ResolveCallback(r.Context(), update.CallbackQuery)
	if err != nil {
		h.logger.Error("Webhook callback failed", "error", err)
		h.metrics.ErrorsCount.WithLabelValues("telegram_webhook").Inc()
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	switch result.Outcome {
	case usecase.OutcomeUnauthorized, usecase.OutcomeInvalidCallback:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"ignored": result.Outcome,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":          true,
			"state":       result.Outcome,
			"status":      result.Status,
			"mappedState": entity.MapRequestState(result.Status),
		})
	}
}
