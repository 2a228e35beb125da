package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/internal/domain/repository"
	"servicelist-service/pkg/logger"
	"servicelist-service/templates"
)

// TelegramRepository sends approval cards to the admin chat over the Bot API
type TelegramRepository struct {
	logger      logger.Logger
	baseURL     string
	botToken    string
	adminChatID string
	client      *http.Client
}

// NewTelegramRepository creates a new Telegram repository
func NewTelegramRepository(baseURL, botToken, adminChatID string, logger logger.Logger) repository.TelegramRepository {
	return &TelegramRepository{
		logger:      logger,
		baseURL:     baseURL,
		botToken:    botToken,
		adminChatID: adminChatID,
		client:      &http.Client{Timeout: 30 * time.Second},
	}
}

// SendApprovalMessage posts the pending card with the decision keyboard and
// returns where it landed so the card can be edited after the decision
func (r *TelegramRepository) SendApprovalMessage(ctx context.Context, request *entity.AccessRequest) (*entity.MessageRef, error) {
	payload := map[string]interface{}{
		"chat_id":                  r.adminChatID,
		"text":                     templates.FormatRequestMessage(request),
		"reply_markup":             templates.BuildKeyboard(request.UID),
		"disable_web_page_preview": true,
	}

	var result struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	}
	if err := r.call(ctx, "sendMessage", payload, &result); err != nil {
		return nil, err
	}

	chatID := r.adminChatID
	if result.Chat.ID != 0 {
		chatID = strconv.FormatInt(result.Chat.ID, 10)
	}

	r.logger.Info("Approval card sent",
		"uid", request.UID,
		"messageId", result.MessageID,
		"chatId", chatID)

	return &entity.MessageRef{
		MessageID: result.MessageID,
		ChatID:    chatID,
	}, nil
}

// EditResolvedMessage replaces the pending card with the decision text and
// strips the keyboard
func (r *TelegramRepository) EditResolvedMessage(ctx context.Context, ref entity.MessageRef, request *entity.AccessRequest, status entity.RequestStatus) error {
	if ref.ChatID == "" || ref.MessageID == 0 {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id":                  ref.ChatID,
		"message_id":               ref.MessageID,
		"text":                     templates.FormatResolvedMessage(request, status),
		"disable_web_page_preview": true,
		"reply_markup": entity.InlineKeyboardMarkup{
			InlineKeyboard: [][]entity.InlineKeyboardButton{},
		},
	}

	return r.call(ctx, "editMessageText", payload, nil)
}

// AnswerCallback acknowledges a button tap with a short toast
func (r *TelegramRepository) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if callbackID == "" {
		return nil
	}

	payload := map[string]interface{}{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        false,
	}

	return r.call(ctx, "answerCallbackQuery", payload, nil)
}

// SetWebhook registers the webhook URL and its shared secret with the Bot API
func (r *TelegramRepository) SetWebhook(ctx context.Context, url, secret string) error {
	payload := map[string]interface{}{
		"url":             url,
		"secret_token":    secret,
		"allowed_updates": []string{"callback_query"},
	}

	return r.call(ctx, "setWebhook", payload, nil)
}

// call posts one Bot API method and decodes its result envelope
func (r *TelegramRepository) call(ctx context.Context, method string, payload interface{}, result interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", r.baseURL, r.botToken, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("telegram %s returned status %d: %w", method, resp.StatusCode, err)
	}

	if !envelope.OK {
		return fmt.Errorf("telegram %s failed (%d): %s", method, resp.StatusCode, envelope.Description)
	}

	if result != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}
