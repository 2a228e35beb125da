package entity

import (
	"strings"
	"time"
)

// RequestStatus is the lifecycle state of an access request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestDenied   RequestStatus = "denied"
	RequestBlocked  RequestStatus = "blocked"
	RequestUnknown  RequestStatus = "unknown"
)

// NormalizeRequestStatus maps an arbitrary stored value onto a known status
func NormalizeRequestStatus(value string) RequestStatus {
	switch RequestStatus(strings.ToLower(strings.TrimSpace(value))) {
	case RequestPending:
		return RequestPending
	case RequestApproved:
		return RequestApproved
	case RequestDenied:
		return RequestDenied
	case RequestBlocked:
		return RequestBlocked
	default:
		return RequestUnknown
	}
}

// AccessState is the caller-facing resolution of an access request
type AccessState string

const (
	AccessAllowed AccessState = "allowed"
	AccessPending AccessState = "pending"
	AccessDenied  AccessState = "denied"
	AccessBlocked AccessState = "blocked"
)

// MapRequestState projects a request status onto the caller-facing state
func MapRequestState(status RequestStatus) AccessState {
	switch status {
	case RequestApproved:
		return AccessAllowed
	case RequestBlocked:
		return AccessBlocked
	case RequestDenied:
		return AccessDenied
	default:
		return AccessPending
	}
}

// NotificationState tracks the Telegram side channel per request
type NotificationState string

const (
	NotificationPending NotificationState = "pending"
	NotificationSent    NotificationState = "sent"
	NotificationFailed  NotificationState = "failed"
	NotificationSkipped NotificationState = "skipped"
)

// Identity is the authenticated caller snapshot captured on a request
type Identity struct {
	UID             string
	Email           string
	EmailNormalized string
	DisplayName     string
	PhotoURL        string
}

// AccessRequest is the per-uid workflow record of the approval lifecycle.
// Status transitions happen only through the access approver; the Telegram
// linkage fields let the resolved card be edited later.
type AccessRequest struct {
	UID                string            `bson:"uid"`
	Email              string            `bson:"email"`
	EmailNormalized    string            `bson:"emailNormalized"`
	DisplayName        string            `bson:"displayName"`
	PhotoURL           string            `bson:"photoURL"`
	Status             RequestStatus     `bson:"status"`
	RequestCount       int               `bson:"requestCount"`
	CreatedAt          time.Time         `bson:"createdAt"`
	UpdatedAt          time.Time         `bson:"updatedAt"`
	LastRequestedAt    time.Time         `bson:"lastRequestedAt"`
	LastNotificationAt *time.Time        `bson:"lastNotificationAt,omitempty"`
	NotificationState  NotificationState `bson:"notificationState"`
	NotificationError  string            `bson:"notificationError"`
	DecisionType       string            `bson:"decisionType"`
	DecisionAt         *time.Time        `bson:"decisionAt,omitempty"`
	DecisionByChatID   string            `bson:"decisionByChatId"`
	TelegramMessageID  int64             `bson:"telegramMessageId,omitempty"`
	TelegramChatID     string            `bson:"telegramChatId,omitempty"`
}

// Label returns the best human-readable handle for the requester
func (r *AccessRequest) Label() string {
	if r.DisplayName != "" {
		return r.DisplayName
	}
	if r.Email != "" {
		return r.Email
	}
	return r.UID
}

// AllowlistEntry is the authoritative permission record. Presence with
// Active=true is the sole authorization predicate for the application.
type AllowlistEntry struct {
	UID              string    `bson:"uid"`
	Email            string    `bson:"email"`
	DisplayName      string    `bson:"displayName"`
	Active           bool      `bson:"active"`
	Role             string    `bson:"role"`
	ApprovedAt       time.Time `bson:"approvedAt"`
	ApprovedBy       string    `bson:"approvedBy"`
	ApprovedByChatID string    `bson:"approvedByChatId"`
}

// UIDBlock is a standing veto keyed by uid
type UIDBlock struct {
	UID             string    `bson:"uid"`
	EmailNormalized string    `bson:"emailNormalized"`
	BlockedAt       time.Time `bson:"blockedAt"`
	BlockedByChatID string    `bson:"blockedByChatId"`
	Reason          string    `bson:"reason"`
}

// EmailBlock is a standing veto keyed by normalized email
type EmailBlock struct {
	EmailNormalized string    `bson:"emailNormalized"`
	LastUID         string    `bson:"lastUid"`
	BlockedAt       time.Time `bson:"blockedAt"`
	BlockedByChatID string    `bson:"blockedByChatId"`
	Reason          string    `bson:"reason"`
}

// UserSettings holds per-user client settings synced across devices
type UserSettings struct {
	UID       string     `bson:"uid"`
	APIPin    string     `bson:"apiPin"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
}
