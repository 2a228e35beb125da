package usecase

import (
	"context"
	"strings"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
	"servicelist-service/templates"
)

// Requester-facing access copy
const (
	MsgAccessAllowed      = "Acesso autorizado."
	MsgAccessBlocked      = "A tua conta está bloqueada. Contacta o administrador."
	MsgAccessDenied       = "Pedido recusado. Contacta o administrador para reabrir."
	MsgRequestSent        = "Pedido enviado. Aguarda aprovação no Telegram."
	MsgRequestAlreadySent = "Pedido já enviado. Aguarda aprovação no Telegram."
	MsgNotificationFailed = "Pedido registado, mas falhou o envio no Telegram. Contacta o administrador."
)

// Callback outcomes
const (
	OutcomeUpdated         = "updated"
	OutcomeAlreadyResolved = "already_resolved"
	OutcomeMissing         = "missing"
	OutcomeUnauthorized    = "unauthorized_chat"
	OutcomeInvalidCallback = "invalid_callback"
)

// AccessDecision is the caller-facing resolution of one access request call
type AccessDecision struct {
	State         entity.AccessState   `json:"state"`
	RequestStatus entity.RequestStatus `json:"requestStatus"`
	Message       string               `json:"message"`
}

// CallbackResult is the outcome of one approval-card tap
type CallbackResult struct {
	Outcome string
	Status  entity.RequestStatus
}

// AccessApprover runs the approval workflow: the request entry point invoked
// by authenticated users and the decision entry point driven by admin-chat
// callbacks. Every decision mutates the records in one transaction; Telegram
// calls stay outside it and never fail the workflow.
type AccessApprover struct {
	requests    repository.AccessRequestRepository
	allowlist   repository.AllowlistRepository
	blocks      repository.BlockRepository
	tx          repository.TransactionRunner
	telegram    repository.TelegramRepository
	adminChatID string
	cooldown    time.Duration
	logger      logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewAccessApprover creates a new access approver
func NewAccessApprover(
	requests repository.AccessRequestRepository,
	allowlist repository.AllowlistRepository,
	blocks repository.BlockRepository,
	tx repository.TransactionRunner,
	telegram repository.TelegramRepository,
	adminChatID string,
	cooldown time.Duration,
	logger logger.Logger,
	m *metrics.Metrics,
) *AccessApprover {
	return &AccessApprover{
		requests:    requests,
		allowlist:   allowlist,
		blocks:      blocks,
		tx:          tx,
		telegram:    telegram,
		adminChatID: adminChatID,
		cooldown:    cooldown,
		logger:      logger,
		metrics:     m,
		now:         time.Now,
	}
}

// RequestAccess registers or refreshes an access request for an authenticated
// identity and notifies the admin chat, honoring the notification cooldown.
func (a *AccessApprover) RequestAccess(ctx context.Context, identity *entity.Identity) (*AccessDecision, error) {
	now := a.now()

	entry, err := a.allowlist.Get(ctx, identity.UID)
	if err != nil {
		return nil, err
	}
	if entry != nil && entry.Active {
		a.metrics.AccessRequests.WithLabelValues(string(entity.AccessAllowed)).Inc()
		return &AccessDecision{
			State:         entity.AccessAllowed,
			RequestStatus: entity.RequestApproved,
			Message:       MsgAccessAllowed,
		}, nil
	}

	existing, err := a.requests.Get(ctx, identity.UID)
	if err != nil {
		return nil, err
	}

	blocked, err := a.blocks.IsBlocked(ctx, identity.UID, identity.EmailNormalized)
	if err != nil {
		return nil, err
	}
	if blocked {
		if err := a.markBlockedByList(ctx, identity, existing, now); err != nil {
			return nil, err
		}
		a.metrics.AccessRequests.WithLabelValues(string(entity.AccessBlocked)).Inc()
		return &AccessDecision{
			State:         entity.AccessBlocked,
			RequestStatus: entity.RequestBlocked,
			Message:       MsgAccessBlocked,
		}, nil
	}

	existingStatus := entity.RequestUnknown
	if existing != nil {
		existingStatus = entity.NormalizeRequestStatus(string(existing.Status))
	}

	switch existingStatus {
	case entity.RequestDenied:
		a.metrics.AccessRequests.WithLabelValues(string(entity.AccessDenied)).Inc()
		return &AccessDecision{
			State:         entity.AccessDenied,
			RequestStatus: entity.RequestDenied,
			Message:       MsgAccessDenied,
		}, nil
	case entity.RequestBlocked:
		a.metrics.AccessRequests.WithLabelValues(string(entity.AccessBlocked)).Inc()
		return &AccessDecision{
			State:         entity.AccessBlocked,
			RequestStatus: entity.RequestBlocked,
			Message:       MsgAccessBlocked,
		}, nil
	}

	shouldNotify := existingStatus != entity.RequestPending || a.cooldownElapsed(existing, now)

	request := a.buildPendingRequest(identity, existing, now, shouldNotify)
	if err := a.requests.Save(ctx, request); err != nil {
		return nil, err
	}
	a.metrics.AccessRequests.WithLabelValues(string(entity.AccessPending)).Inc()

	if !shouldNotify {
		return &AccessDecision{
			State:         entity.AccessPending,
			RequestStatus: entity.RequestPending,
			Message:       MsgRequestAlreadySent,
		}, nil
	}

	return a.notify(ctx, request, now)
}

// AwaitDecision reports the caller's current access resolution. With a wait
// window it holds until the stored request leaves the status the caller
// already knows, fed by the per-uid change feed, so a client can follow the
// admin decision without polling loops.
func (a *AccessApprover) AwaitDecision(ctx context.Context, uid, known string, wait time.Duration) (*AccessDecision, error) {
	status, err := a.currentStatus(ctx, uid)
	if err != nil {
		return nil, err
	}

	knownStatus := entity.NormalizeRequestStatus(known)
	if wait <= 0 || status != knownStatus {
		return decisionForStatus(status), nil
	}

	changes, err := a.requests.Watch(ctx, uid)
	if err != nil {
		return nil, err
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	for {
		select {
		case request, ok := <-changes:
			if !ok {
				return decisionForStatus(status), nil
			}
			if request == nil {
				continue
			}
			next := entity.NormalizeRequestStatus(string(request.Status))
			if next != knownStatus {
				return decisionForStatus(next), nil
			}
		case <-timer.C:
			return decisionForStatus(status), nil
		case <-ctx.Done():
			return decisionForStatus(status), nil
		}
	}
}

// currentStatus resolves the stored status of a caller; an active allowlist
// entry wins over whatever the request record says
func (a *AccessApprover) currentStatus(ctx context.Context, uid string) (entity.RequestStatus, error) {
	entry, err := a.allowlist.Get(ctx, uid)
	if err != nil {
		return entity.RequestUnknown, err
	}
	if entry != nil && entry.Active {
		return entity.RequestApproved, nil
	}

	request, err := a.requests.Get(ctx, uid)
	if err != nil {
		return entity.RequestUnknown, err
	}
	if request == nil {
		return entity.RequestUnknown, nil
	}
	return entity.NormalizeRequestStatus(string(request.Status)), nil
}

func decisionForStatus(status entity.RequestStatus) *AccessDecision {
	decision := &AccessDecision{
		State:         entity.MapRequestState(status),
		RequestStatus: status,
	}
	switch decision.State {
	case entity.AccessAllowed:
		decision.Message = MsgAccessAllowed
	case entity.AccessDenied:
		decision.Message = MsgAccessDenied
	case entity.AccessBlocked:
		decision.Message = MsgAccessBlocked
	}
	return decision
}

// ResolveCallback applies one admin tap from the approval card. The record
// mutation is transactional; answering the tap and editing the card happen
// after commit and are best-effort.
func (a *AccessApprover) ResolveCallback(ctx context.Context, query *entity.TelegramCallbackQuery) (*CallbackResult, error) {
	chatID := query.ChatIDString()
	if chatID != a.adminChatID {
		a.answerCallback(ctx, query.ID, templates.ToastUnauthorized)
		a.metrics.CallbackDecisions.WithLabelValues("none", OutcomeUnauthorized).Inc()
		return &CallbackResult{Outcome: OutcomeUnauthorized}, nil
	}

	data, ok := entity.ParseCallbackData(query.Data)
	if !ok {
		a.answerCallback(ctx, query.ID, templates.ToastInvalidAction)
		a.metrics.CallbackDecisions.WithLabelValues("none", OutcomeInvalidCallback).Inc()
		return &CallbackResult{Outcome: OutcomeInvalidCallback}, nil
	}

	var (
		outcome string
		status  entity.RequestStatus
		request *entity.AccessRequest
	)

	err := a.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := a.requests.Get(txCtx, data.UID)
		if err != nil {
			return err
		}
		if current == nil {
			outcome = OutcomeMissing
			status = entity.RequestStatus(OutcomeMissing)
			request = &entity.AccessRequest{UID: data.UID}
			return nil
		}

		request = current
		currentStatus := entity.NormalizeRequestStatus(string(current.Status))
		if currentStatus != entity.RequestPending {
			outcome = OutcomeAlreadyResolved
			status = currentStatus
			return nil
		}

		outcome = OutcomeUpdated
		return a.applyDecision(txCtx, current, data.Action, chatID, &status)
	})
	if err != nil {
		a.metrics.CallbackDecisions.WithLabelValues(string(data.Action), "error").Inc()
		a.answerCallback(ctx, query.ID, templates.ToastInternalError)
		return nil, err
	}

	a.metrics.CallbackDecisions.WithLabelValues(string(data.Action), outcome).Inc()

	switch outcome {
	case OutcomeUpdated:
		a.answerCallback(ctx, query.ID, templates.ToastDecided(status))
	case OutcomeAlreadyResolved:
		a.answerCallback(ctx, query.ID, templates.ToastAlreadyResolved(status))
	default:
		a.answerCallback(ctx, query.ID, templates.ToastNotFound)
	}

	if query.Message != nil && query.Message.MessageID != 0 {
		ref := entity.MessageRef{MessageID: query.Message.MessageID, ChatID: chatID}
		if err := a.telegram.EditResolvedMessage(ctx, ref, request, status); err != nil {
			a.metrics.TelegramSends.WithLabelValues("editMessageText", "error").Inc()
			a.logger.Warn("Failed to edit approval card", "uid", data.UID, "error", err)
		} else {
			a.metrics.TelegramSends.WithLabelValues("editMessageText", "success").Inc()
		}
	}

	return &CallbackResult{Outcome: outcome, Status: status}, nil
}

// applyDecision performs the per-action writes inside the transaction
func (a *AccessApprover) applyDecision(ctx context.Context, request *entity.AccessRequest, action entity.CallbackAction, chatID string, status *entity.RequestStatus) error {
	now := a.now()

	request.UpdatedAt = now
	request.DecisionAt = &now
	request.DecisionByChatID = chatID
	request.NotificationError = ""

	switch action {
	case entity.ActionApprove:
		if err := a.allowlist.Save(ctx, &entity.AllowlistEntry{
			UID:              request.UID,
			Email:            request.Email,
			DisplayName:      request.DisplayName,
			Active:           true,
			Role:             "staff",
			ApprovedAt:       now,
			ApprovedBy:       "telegram",
			ApprovedByChatID: chatID,
		}); err != nil {
			return err
		}
		request.Status = entity.RequestApproved
		request.DecisionType = "approve"

	case entity.ActionDeny:
		request.Status = entity.RequestDenied
		request.DecisionType = "deny"

	case entity.ActionBlock:
		emailNormalized := request.EmailNormalized
		if emailNormalized == "" {
			emailNormalized = strings.ToLower(strings.TrimSpace(request.Email))
		}

		if err := a.blocks.SaveUIDBlock(ctx, &entity.UIDBlock{
			UID:             request.UID,
			EmailNormalized: emailNormalized,
			BlockedAt:       now,
			BlockedByChatID: chatID,
			Reason:          "telegram_block",
		}); err != nil {
			return err
		}
		if emailNormalized != "" {
			if err := a.blocks.SaveEmailBlock(ctx, &entity.EmailBlock{
				EmailNormalized: emailNormalized,
				LastUID:         request.UID,
				BlockedAt:       now,
				BlockedByChatID: chatID,
				Reason:          "telegram_block",
			}); err != nil {
				return err
			}
		}
		request.Status = entity.RequestBlocked
		request.DecisionType = "block"
	}

	*status = request.Status
	return a.requests.Save(ctx, request)
}

// markBlockedByList records a request attempt that hit the block list.
// The attempt still counts, but no notification goes out.
func (a *AccessApprover) markBlockedByList(ctx context.Context, identity *entity.Identity, existing *entity.AccessRequest, now time.Time) error {
	request := &entity.AccessRequest{
		UID:               identity.UID,
		Email:             identity.Email,
		EmailNormalized:   identity.EmailNormalized,
		DisplayName:       identity.DisplayName,
		PhotoURL:          identity.PhotoURL,
		Status:            entity.RequestBlocked,
		RequestCount:      1,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastRequestedAt:   now,
		NotificationState: entity.NotificationSkipped,
		DecisionType:      "block",
		DecisionAt:        &now,
		DecisionByChatID:  "system:blocklist",
	}
	if existing != nil {
		request.RequestCount = existing.RequestCount + 1
		request.CreatedAt = existing.CreatedAt
		request.LastNotificationAt = existing.LastNotificationAt
		request.TelegramMessageID = existing.TelegramMessageID
		request.TelegramChatID = existing.TelegramChatID
	}
	return a.requests.Save(ctx, request)
}

func (a *AccessApprover) buildPendingRequest(identity *entity.Identity, existing *entity.AccessRequest, now time.Time, shouldNotify bool) *entity.AccessRequest {
	notificationState := entity.NotificationSkipped
	if shouldNotify {
		notificationState = entity.NotificationPending
	}

	request := &entity.AccessRequest{
		UID:               identity.UID,
		Email:             identity.Email,
		EmailNormalized:   identity.EmailNormalized,
		DisplayName:       identity.DisplayName,
		PhotoURL:          identity.PhotoURL,
		Status:            entity.RequestPending,
		RequestCount:      1,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastRequestedAt:   now,
		NotificationState: notificationState,
	}
	if existing != nil {
		request.RequestCount = existing.RequestCount + 1
		request.CreatedAt = existing.CreatedAt
		request.LastNotificationAt = existing.LastNotificationAt
		request.TelegramMessageID = existing.TelegramMessageID
		request.TelegramChatID = existing.TelegramChatID
	}
	return request
}

// cooldownElapsed reports whether enough time passed since the last
// notification to send another one; no previous notification always notifies
func (a *AccessApprover) cooldownElapsed(existing *entity.AccessRequest, now time.Time) bool {
	if existing == nil || existing.LastNotificationAt == nil {
		return true
	}
	return now.Sub(*existing.LastNotificationAt) >= a.cooldown
}

// notify posts the approval card and records the outcome on the request.
// A send failure downgrades to bookkeeping; the request stays registered.
func (a *AccessApprover) notify(ctx context.Context, request *entity.AccessRequest, now time.Time) (*AccessDecision, error) {
	ref, err := a.telegram.SendApprovalMessage(ctx, request)
	if err != nil {
		a.metrics.TelegramSends.WithLabelValues("sendMessage", "error").Inc()
		a.logger.Error("Failed to send Telegram approval message",
			"uid", request.UID,
			"error", err)

		request.NotificationState = entity.NotificationFailed
		request.NotificationError = truncate(err.Error(), 500)
		request.UpdatedAt = now
		if err := a.requests.Save(ctx, request); err != nil {
			return nil, err
		}

		return &AccessDecision{
			State:         entity.AccessPending,
			RequestStatus: entity.RequestPending,
			Message:       MsgNotificationFailed,
		}, nil
	}

	a.metrics.TelegramSends.WithLabelValues("sendMessage", "success").Inc()

	request.LastNotificationAt = &now
	request.NotificationState = entity.NotificationSent
	request.NotificationError = ""
	request.TelegramMessageID = ref.MessageID
	request.TelegramChatID = ref.ChatID
	request.UpdatedAt = now
	if err := a.requests.Save(ctx, request); err != nil {
		return nil, err
	}

	return &AccessDecision{
		State:         entity.AccessPending,
		RequestStatus: entity.RequestPending,
		Message:       MsgRequestSent,
	}, nil
}

func (a *AccessApprover) answerCallback(ctx context.Context, callbackID, text string) {
	if err := a.telegram.AnswerCallback(ctx, callbackID, text); err != nil {
		a.metrics.TelegramSends.WithLabelValues("answerCallbackQuery", "error").Inc()
		a.logger.Warn("Failed to answer callback query", "error", err)
		return
	}
	a.metrics.TelegramSends.WithLabelValues("answerCallbackQuery", "success").Inc()
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}
