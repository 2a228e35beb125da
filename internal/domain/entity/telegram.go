package entity

import (
	"strconv"
	"strings"
)

// CallbackAction is a decision taken from the approval card
type CallbackAction string

const (
	ActionApprove CallbackAction = "approve"
	ActionDeny    CallbackAction = "deny"
	ActionBlock   CallbackAction = "block"
)

// CallbackPrefix marks callback data produced by this service
const CallbackPrefix = "apr"

var callbackActionCodes = map[string]CallbackAction{
	"a": ActionApprove,
	"d": ActionDeny,
	"b": ActionBlock,
}

// CallbackData is the parsed "<prefix>|<code>|<uid>" payload of an inline button
type CallbackData struct {
	Action CallbackAction
	UID    string
}

// ParseCallbackData parses the wire payload of an approval-card button. The
// second return is false for anything that does not match the exact 3-part
// encoding with a recognized action code.
func ParseCallbackData(raw string) (*CallbackData, bool) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 || parts[0] != CallbackPrefix {
		return nil, false
	}

	action, ok := callbackActionCodes[parts[1]]
	if !ok || parts[2] == "" {
		return nil, false
	}

	return &CallbackData{Action: action, UID: parts[2]}, true
}

// EncodeCallbackData builds the wire payload for an approval-card button
func EncodeCallbackData(code, uid string) string {
	return CallbackPrefix + "|" + code + "|" + uid
}

// TelegramUpdate is the subset of a Telegram Bot API update the webhook
// consumes; everything without a callback query is acknowledged and ignored.
type TelegramUpdate struct {
	UpdateID      int64                  `json:"update_id"`
	CallbackQuery *TelegramCallbackQuery `json:"callback_query,omitempty"`
}

// TelegramCallbackQuery is an inline-button tap
type TelegramCallbackQuery struct {
	ID      string           `json:"id"`
	Data    string           `json:"data"`
	Message *TelegramMessage `json:"message,omitempty"`
}

// TelegramMessage is the message a callback originated from
type TelegramMessage struct {
	MessageID int64        `json:"message_id"`
	Chat      TelegramChat `json:"chat"`
}

// TelegramChat identifies the chat a message belongs to
type TelegramChat struct {
	ID int64 `json:"id"`
}

// ChatIDString returns the chat identity of the callback's message, empty when
// the update carries no message
func (q *TelegramCallbackQuery) ChatIDString() string {
	if q == nil || q.Message == nil {
		return ""
	}
	return strconv.FormatInt(q.Message.Chat.ID, 10)
}

// MessageRef addresses a previously sent Telegram message for later edits
type MessageRef struct {
	MessageID int64
	ChatID    string
}

// InlineKeyboardButton is one tappable action on an approval card
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup is the reply markup attached to an approval card
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}
