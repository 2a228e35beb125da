package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/templates"
)

const testAdminChatID = "1000"

type approverFixture struct {
	approver  *AccessApprover
	requests  *fakeRequestRepo
	allowlist *fakeAllowlistRepo
	blocks    *fakeBlockRepo
	telegram  *fakeTelegram
}

func newApproverFixture() *approverFixture {
	f := &approverFixture{
		requests:  newFakeRequestRepo(),
		allowlist: newFakeAllowlistRepo(),
		blocks:    newFakeBlockRepo(),
		telegram:  &fakeTelegram{},
	}
	f.approver = NewAccessApprover(
		f.requests, f.allowlist, f.blocks, fakeTxRunner{}, f.telegram,
		testAdminChatID, 15*time.Minute, newTestLogger(), newTestMetrics(),
	)
	return f
}

func testIdentity() *entity.Identity {
	return &entity.Identity{
		UID:             "u1",
		Email:           "Maria.Silva@example.com",
		EmailNormalized: "maria.silva@example.com",
		DisplayName:     "Maria Silva",
	}
}

func adminCallback(action, uid string) *entity.TelegramCallbackQuery {
	return &entity.TelegramCallbackQuery{
		ID:   "cb-1",
		Data: entity.EncodeCallbackData(action, uid),
		Message: &entity.TelegramMessage{
			MessageID: 42,
			Chat:      entity.TelegramChat{ID: 1000},
		},
	}
}

func TestRequestAccessFirstRequestNotifiesAdmin(t *testing.T) {
	f := newApproverFixture()

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessPending, decision.State)
	assert.Equal(t, MsgRequestSent, decision.Message)
	assert.Equal(t, 1, f.telegram.sendCount())

	saved, err := f.requests.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestPending, saved.Status)
	assert.Equal(t, 1, saved.RequestCount)
	assert.Equal(t, entity.NotificationSent, saved.NotificationState)
	require.NotNil(t, saved.LastNotificationAt)
	assert.Equal(t, int64(42), saved.TelegramMessageID)
}

func TestRequestAccessRepeatWithinCooldownSkipsNotification(t *testing.T) {
	f := newApproverFixture()

	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, MsgRequestAlreadySent, decision.Message)
	assert.Equal(t, 1, f.telegram.sendCount())

	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, 2, saved.RequestCount)
	// The skipped attempt keeps the original notification timestamp
	require.NotNil(t, saved.LastNotificationAt)
}

func TestRequestAccessRepeatAfterCooldownNotifiesAgain(t *testing.T) {
	f := newApproverFixture()

	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	// Age the last notification past the cooldown
	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	aged := saved.LastNotificationAt.Add(-16 * time.Minute)
	saved.LastNotificationAt = &aged
	require.NoError(t, f.requests.Save(context.Background(), saved))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, MsgRequestSent, decision.Message)
	assert.Equal(t, 2, f.telegram.sendCount())
}

func TestRequestAccessAllowlistedUserShortCircuits(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.allowlist.Save(context.Background(), &entity.AllowlistEntry{
		UID: "u1", Active: true, Role: "staff",
	}))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessAllowed, decision.State)
	assert.Equal(t, MsgAccessAllowed, decision.Message)
	assert.Equal(t, 0, f.telegram.sendCount())
}

func TestRequestAccessInactiveAllowlistEntryDoesNotAuthorize(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.allowlist.Save(context.Background(), &entity.AllowlistEntry{
		UID: "u1", Active: false,
	}))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessPending, decision.State)
	assert.Equal(t, 1, f.telegram.sendCount())
}

func TestRequestAccessBlocklistedUserIsRecordedWithoutNotification(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.blocks.SaveUIDBlock(context.Background(), &entity.UIDBlock{UID: "u1"}))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessBlocked, decision.State)
	assert.Equal(t, MsgAccessBlocked, decision.Message)
	assert.Equal(t, 0, f.telegram.sendCount())

	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestBlocked, saved.Status)
	assert.Equal(t, entity.NotificationSkipped, saved.NotificationState)
	assert.Equal(t, "system:blocklist", saved.DecisionByChatID)
}

func TestRequestAccessBlockedByEmailIndex(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.blocks.SaveEmailBlock(context.Background(), &entity.EmailBlock{
		EmailNormalized: "maria.silva@example.com",
	}))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessBlocked, decision.State)
	assert.Equal(t, 0, f.telegram.sendCount())
}

func TestRequestAccessDeniedRequestStaysDenied(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestDenied, RequestCount: 3,
	}))

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessDenied, decision.State)
	assert.Equal(t, MsgAccessDenied, decision.Message)
	assert.Equal(t, 0, f.telegram.sendCount())

	// The denied record stays untouched
	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, 3, saved.RequestCount)
}

func TestRequestAccessSendFailureKeepsRequestRegistered(t *testing.T) {
	f := newApproverFixture()
	f.telegram.failSends = true

	decision, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	assert.Equal(t, entity.AccessPending, decision.State)
	assert.Equal(t, MsgNotificationFailed, decision.Message)

	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestPending, saved.Status)
	assert.Equal(t, entity.NotificationFailed, saved.NotificationState)
	assert.Equal(t, "telegram unreachable", saved.NotificationError)
	assert.Nil(t, saved.LastNotificationAt)
}

func TestAwaitDecisionAnswersImmediatelyWhenStatusAlreadyMoved(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestApproved,
	}))

	decision, err := f.approver.AwaitDecision(context.Background(), "u1", "pending", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, entity.AccessAllowed, decision.State)
	assert.Equal(t, MsgAccessAllowed, decision.Message)
}

func TestAwaitDecisionDeliversDecisionFromFeed(t *testing.T) {
	f := newApproverFixture()
	f.requests.watch = make(chan *entity.AccessRequest, 1)
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestPending,
	}))

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.requests.watch <- &entity.AccessRequest{UID: "u1", Status: entity.RequestDenied}
	}()

	decision, err := f.approver.AwaitDecision(context.Background(), "u1", "pending", time.Second)
	require.NoError(t, err)

	assert.Equal(t, entity.AccessDenied, decision.State)
	assert.Equal(t, entity.RequestDenied, decision.RequestStatus)
	assert.Equal(t, MsgAccessDenied, decision.Message)
}

func TestAwaitDecisionIgnoresEventsInTheKnownStatus(t *testing.T) {
	f := newApproverFixture()
	f.requests.watch = make(chan *entity.AccessRequest, 2)
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestPending,
	}))

	// A repeated request bumps the record without moving the status
	f.requests.watch <- &entity.AccessRequest{UID: "u1", Status: entity.RequestPending, RequestCount: 2}
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.requests.watch <- &entity.AccessRequest{UID: "u1", Status: entity.RequestApproved}
	}()

	decision, err := f.approver.AwaitDecision(context.Background(), "u1", "pending", time.Second)
	require.NoError(t, err)

	assert.Equal(t, entity.AccessAllowed, decision.State)
}

func TestAwaitDecisionReturnsKnownStatusAtWindowEnd(t *testing.T) {
	f := newApproverFixture()
	f.requests.watch = make(chan *entity.AccessRequest, 1)
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestPending,
	}))

	started := time.Now()
	decision, err := f.approver.AwaitDecision(context.Background(), "u1", "pending", 30*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, entity.AccessPending, decision.State)
	assert.Equal(t, entity.RequestPending, decision.RequestStatus)
	assert.Less(t, time.Since(started), time.Second)
}

func TestAwaitDecisionAllowlistWinsOverStaleRequestRecord(t *testing.T) {
	f := newApproverFixture()
	require.NoError(t, f.allowlist.Save(context.Background(), &entity.AllowlistEntry{
		UID: "u1", Active: true,
	}))
	require.NoError(t, f.requests.Save(context.Background(), &entity.AccessRequest{
		UID: "u1", Status: entity.RequestPending,
	}))

	decision, err := f.approver.AwaitDecision(context.Background(), "u1", "pending", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, entity.AccessAllowed, decision.State)
}

func TestResolveCallbackApproveWritesAllowlistEntry(t *testing.T) {
	f := newApproverFixture()
	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	result, err := f.approver.ResolveCallback(context.Background(), adminCallback("a", "u1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUpdated, result.Outcome)
	assert.Equal(t, entity.RequestApproved, result.Status)

	entry, err := f.allowlist.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Active)
	assert.Equal(t, "staff", entry.Role)
	assert.Equal(t, "telegram", entry.ApprovedBy)
	assert.Equal(t, testAdminChatID, entry.ApprovedByChatID)

	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestApproved, saved.Status)
	assert.Equal(t, testAdminChatID, saved.DecisionByChatID)

	assert.Equal(t, []string{templates.ToastDecided(entity.RequestApproved)}, f.telegram.answers)
	assert.Equal(t, []entity.RequestStatus{entity.RequestApproved}, f.telegram.edits)
}

func TestResolveCallbackSecondTapIsIdempotent(t *testing.T) {
	f := newApproverFixture()
	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	first, err := f.approver.ResolveCallback(context.Background(), adminCallback("a", "u1"))
	require.NoError(t, err)
	require.Equal(t, OutcomeUpdated, first.Outcome)

	second, err := f.approver.ResolveCallback(context.Background(), adminCallback("d", "u1"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAlreadyResolved, second.Outcome)
	assert.Equal(t, entity.RequestApproved, second.Status)

	// The first decision stands
	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestApproved, saved.Status)
	assert.Contains(t, f.telegram.answers, templates.ToastAlreadyResolved(entity.RequestApproved))
}

func TestResolveCallbackBlockWritesBothBlockIndices(t *testing.T) {
	f := newApproverFixture()
	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	result, err := f.approver.ResolveCallback(context.Background(), adminCallback("b", "u1"))
	require.NoError(t, err)
	assert.Equal(t, entity.RequestBlocked, result.Status)

	blocked, err := f.blocks.IsBlocked(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.True(t, blocked)

	// The email index catches the same person on a fresh account
	blockedByEmail, err := f.blocks.IsBlocked(context.Background(), "u2", "maria.silva@example.com")
	require.NoError(t, err)
	assert.True(t, blockedByEmail)

	assert.Equal(t, "telegram_block", f.blocks.uids["u1"].Reason)
	assert.Equal(t, "telegram_block", f.blocks.emails["maria.silva@example.com"].Reason)
}

func TestResolveCallbackUnknownUID(t *testing.T) {
	f := newApproverFixture()

	result, err := f.approver.ResolveCallback(context.Background(), adminCallback("a", "ghost"))
	require.NoError(t, err)

	assert.Equal(t, OutcomeMissing, result.Outcome)
	assert.Contains(t, f.telegram.answers, templates.ToastNotFound)
}

func TestResolveCallbackRejectsForeignChat(t *testing.T) {
	f := newApproverFixture()
	_, err := f.approver.RequestAccess(context.Background(), testIdentity())
	require.NoError(t, err)

	query := adminCallback("a", "u1")
	query.Message.Chat.ID = 2000
	result, err := f.approver.ResolveCallback(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnauthorized, result.Outcome)
	assert.Contains(t, f.telegram.answers, templates.ToastUnauthorized)

	saved, _ := f.requests.Get(context.Background(), "u1")
	require.NotNil(t, saved)
	assert.Equal(t, entity.RequestPending, saved.Status)
}

func TestResolveCallbackRejectsMalformedData(t *testing.T) {
	f := newApproverFixture()

	query := adminCallback("a", "u1")
	query.Data = "apr|x|u1"
	result, err := f.approver.ResolveCallback(context.Background(), query)
	require.NoError(t, err)

	assert.Equal(t, OutcomeInvalidCallback, result.Outcome)
	assert.Contains(t, f.telegram.answers, templates.ToastInvalidAction)
}
