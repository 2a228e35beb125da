package usecase

import (
	"context"
	"errors"
	"sync"

	"servicelist-service/internal/domain/entity"
	"servicelist-service/pkg/logger"
	"servicelist-service/pkg/metrics"
)

// One registry per test binary; promauto panics on duplicate registration
var (
	testMetrics     *metrics.Metrics
	testMetricsOnce sync.Once
)

func newTestMetrics() *metrics.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = metrics.NewMetrics("usecase_test")
	})
	return testMetrics
}

func newTestLogger() logger.Logger {
	return logger.NewLogger()
}

// forwardUntilDone mirrors the store watches: the delivery channel closes as
// soon as ctx ends and nothing is delivered afterwards. A nil source acts as a
// feed that never emits.
func forwardUntilDone[T any](ctx context.Context, source chan T) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			select {
			case <-ctx.Done():
				return
			case event, ok := <-source:
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type fakeRequestRepo struct {
	mu    sync.Mutex
	items map[string]entity.AccessRequest
	watch chan *entity.AccessRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{items: map[string]entity.AccessRequest{}}
}

func (r *fakeRequestRepo) Get(ctx context.Context, uid string) (*entity.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request, ok := r.items[uid]; ok {
		copied := request
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeRequestRepo) Save(ctx context.Context, request *entity.AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[request.UID] = *request
	return nil
}

func (r *fakeRequestRepo) Watch(ctx context.Context, uid string) (<-chan *entity.AccessRequest, error) {
	return forwardUntilDone(ctx, r.watch), nil
}

type fakeAllowlistRepo struct {
	mu      sync.Mutex
	entries map[string]entity.AllowlistEntry
}

func newFakeAllowlistRepo() *fakeAllowlistRepo {
	return &fakeAllowlistRepo{entries: map[string]entity.AllowlistEntry{}}
}

func (r *fakeAllowlistRepo) Get(ctx context.Context, uid string) (*entity.AllowlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[uid]; ok {
		copied := entry
		return &copied, nil
	}
	return nil, nil
}

func (r *fakeAllowlistRepo) Save(ctx context.Context, entry *entity.AllowlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.UID] = *entry
	return nil
}

type fakeBlockRepo struct {
	mu     sync.Mutex
	uids   map[string]entity.UIDBlock
	emails map[string]entity.EmailBlock
}

func newFakeBlockRepo() *fakeBlockRepo {
	return &fakeBlockRepo{
		uids:   map[string]entity.UIDBlock{},
		emails: map[string]entity.EmailBlock{},
	}
}

func (r *fakeBlockRepo) IsBlocked(ctx context.Context, uid, emailNormalized string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uids[uid]; ok {
		return true, nil
	}
	if emailNormalized == "" {
		return false, nil
	}
	_, ok := r.emails[emailNormalized]
	return ok, nil
}

func (r *fakeBlockRepo) SaveUIDBlock(ctx context.Context, block *entity.UIDBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uids[block.UID] = *block
	return nil
}

func (r *fakeBlockRepo) SaveEmailBlock(ctx context.Context, block *entity.EmailBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emails[block.EmailNormalized] = *block
	return nil
}

// fakeTxRunner runs the callback directly; the fakes are already atomic
// enough for single-goroutine tests
type fakeTxRunner struct{}

func (fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeTelegram struct {
	mu        sync.Mutex
	failSends bool
	sends     []entity.AccessRequest
	answers   []string
	edits     []entity.RequestStatus
}

func (t *fakeTelegram) SendApprovalMessage(ctx context.Context, request *entity.AccessRequest) (*entity.MessageRef, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSends {
		return nil, errors.New("telegram unreachable")
	}
	t.sends = append(t.sends, *request)
	return &entity.MessageRef{MessageID: 42, ChatID: "1000"}, nil
}

func (t *fakeTelegram) EditResolvedMessage(ctx context.Context, ref entity.MessageRef, request *entity.AccessRequest, status entity.RequestStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.edits = append(t.edits, status)
	return nil
}

func (t *fakeTelegram) AnswerCallback(ctx context.Context, callbackID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.answers = append(t.answers, text)
	return nil
}

func (t *fakeTelegram) SetWebhook(ctx context.Context, url, secret string) error {
	return nil
}

func (t *fakeTelegram) sendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sends)
}

type fakeStatusRepo struct {
	mu      sync.Mutex
	initial map[string]entity.StatusRecord
	watch   chan entity.FeedChange[entity.StatusRecord]
	records []entity.StatusRecord
}

func (r *fakeStatusRepo) ListByDate(ctx context.Context, date string) (map[string]entity.StatusRecord, error) {
	if r.initial != nil {
		return r.initial, nil
	}
	return map[string]entity.StatusRecord{}, nil
}

func (r *fakeStatusRepo) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.StatusRecord], error) {
	return forwardUntilDone(ctx, r.watch), nil
}

func (r *fakeStatusRepo) Save(ctx context.Context, record *entity.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeStatusRepo) saved() []entity.StatusRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.StatusRecord(nil), r.records...)
}

type fakeOverrideRepo struct {
	mu      sync.Mutex
	initial map[string]entity.TimeOverrideRecord
	watch   chan entity.FeedChange[entity.TimeOverrideRecord]
	records []entity.TimeOverrideRecord
}

func (r *fakeOverrideRepo) ListByDate(ctx context.Context, date string) (map[string]entity.TimeOverrideRecord, error) {
	if r.initial != nil {
		return r.initial, nil
	}
	return map[string]entity.TimeOverrideRecord{}, nil
}

func (r *fakeOverrideRepo) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.TimeOverrideRecord], error) {
	return forwardUntilDone(ctx, r.watch), nil
}

func (r *fakeOverrideRepo) Save(ctx context.Context, record *entity.TimeOverrideRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeOverrideRepo) saved() []entity.TimeOverrideRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.TimeOverrideRecord(nil), r.records...)
}

type fakeReadyRepo struct {
	mu      sync.Mutex
	initial map[string]entity.ReadyRecord
	watch   chan entity.FeedChange[entity.ReadyRecord]
	records []entity.ReadyRecord
}

func (r *fakeReadyRepo) ListByDate(ctx context.Context, date string) (map[string]entity.ReadyRecord, error) {
	if r.initial != nil {
		return r.initial, nil
	}
	return map[string]entity.ReadyRecord{}, nil
}

func (r *fakeReadyRepo) Watch(ctx context.Context, date string) (<-chan entity.FeedChange[entity.ReadyRecord], error) {
	return forwardUntilDone(ctx, r.watch), nil
}

func (r *fakeReadyRepo) Save(ctx context.Context, record *entity.ReadyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeReadyRepo) saved() []entity.ReadyRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.ReadyRecord(nil), r.records...)
}

type fakeDayRepo struct {
	mu    sync.Mutex
	day   *entity.ServiceDay
	watch chan *entity.ServiceDay
}

func (r *fakeDayRepo) Get(ctx context.Context, date string) (*entity.ServiceDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.day, nil
}

func (r *fakeDayRepo) Watch(ctx context.Context, date string) (<-chan *entity.ServiceDay, error) {
	return forwardUntilDone(ctx, r.watch), nil
}

type fakeVehicleRepo struct {
	models map[string]string
}

func (r *fakeVehicleRepo) GetByPlate(ctx context.Context, plate string) (*entity.Vehicle, error) {
	if model, ok := r.models[plate]; ok {
		return &entity.Vehicle{Plate: plate, Model: model}, nil
	}
	return nil, nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []entity.ActivityEntry
}

func (r *fakeActivityRepo) Append(ctx context.Context, entry *entity.ActivityEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeActivityRepo) ListRecent(ctx context.Context, date string, limit int) ([]entity.ActivityEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := append([]entity.ActivityEntry(nil), r.entries...)
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (r *fakeActivityRepo) appended() []entity.ActivityEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.ActivityEntry(nil), r.entries...)
}

type fakeScrapeClient struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
}

func (c *fakeScrapeClient) FetchDay(ctx context.Context, date, pin string, forceRefresh bool) (*entity.ServiceDay, error) {
	c.mu.Lock()
	c.calls++
	release := c.release
	err := c.err
	c.mu.Unlock()

	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return &entity.ServiceDay{Date: date}, nil
}

func (c *fakeScrapeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
