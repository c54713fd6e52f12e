package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"docflow/internal/channel"
	"docflow/internal/model"
	"docflow/internal/repository"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/eventbus"
	"docflow/pkg/push"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(id, name, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &model.User{UserID: id, Name: name, Role: role}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.User
	for _, u := range m.users {
		if u.Role == role {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// ── Mock DocumentRepository ──

type mockDocumentRepo struct {
	mu        sync.Mutex
	docs      map[string]*model.Document
	updateErr error
}

func newMockDocumentRepo() *mockDocumentRepo {
	return &mockDocumentRepo{docs: make(map[string]*model.Document)}
}

func (m *mockDocumentRepo) Create(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.Number == doc.Number {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	cp := *doc
	m.docs[doc.DocumentID] = &cp
	return nil
}

func (m *mockDocumentRepo) GetByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.docs[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDocumentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Document, error) {
	return m.GetByID(ctx, id)
}

func (m *mockDocumentRepo) Update(_ context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.docs[doc.DocumentID]
	if !ok || stored.Version != doc.Version {
		return pkgerrors.ErrOptimisticLock
	}
	doc.Version++
	cp := *doc
	cp.Owner = nil
	m.docs[doc.DocumentID] = &cp
	return nil
}

func (m *mockDocumentRepo) get(id string) model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.docs[id]
}

// ── Mock ApprovalRepository ──

type mockApprovalRepo struct {
	mu    sync.Mutex
	votes []*model.Approval
}

func newMockApprovalRepo() *mockApprovalRepo {
	return &mockApprovalRepo{}
}

func (m *mockApprovalRepo) BatchCreate(_ context.Context, approvals []model.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range approvals {
		cp := approvals[i]
		m.votes = append(m.votes, &cp)
	}
	return nil
}

func (m *mockApprovalRepo) GetForCycle(_ context.Context, documentID, approverID string, cycle int) (*model.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.DocumentID == documentID && v.ApproverID == approverID && v.RevisionCycle == cycle {
			cp := *v
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockApprovalRepo) ListByCycle(_ context.Context, documentID string, cycle int) ([]model.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Approval
	for _, v := range m.votes {
		if v.DocumentID == documentID && v.RevisionCycle == cycle {
			result = append(result, *v)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Level < result[j].Level })
	return result, nil
}

func (m *mockApprovalRepo) ListAll(_ context.Context, documentID string) ([]model.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Approval
	for _, v := range m.votes {
		if v.DocumentID == documentID {
			result = append(result, *v)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RevisionCycle != result[j].RevisionCycle {
			return result[i].RevisionCycle < result[j].RevisionCycle
		}
		return result[i].Level < result[j].Level
	})
	return result, nil
}

func (m *mockApprovalRepo) SaveDecision(_ context.Context, approval *model.Approval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.votes {
		if v.ApprovalID == approval.ApprovalID {
			v.Status = approval.Status
			v.Comments = approval.Comments
			v.ApprovedAt = approval.ApprovedAt
			v.RejectedAt = approval.RejectedAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	mu        sync.Mutex
	items     []*model.Notification
	createErr error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *n
	m.items = append(m.items, &cp)
	return nil
}

func (m *mockNotificationRepo) FindLatest(_ context.Context, userID string, typ model.NotificationType, title string, since time.Time) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *model.Notification
	for _, n := range m.items {
		if n.UserID != userID || n.Type != typ || n.Title != title || n.CreatedAt.Before(since) {
			continue
		}
		if latest == nil || n.CreatedAt.After(latest.CreatedAt) {
			latest = n
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *mockNotificationRepo) GetByID(_ context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.NotificationID == id {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, filter repository.NotificationListFilter) ([]model.Notification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (!filter.UnreadOnly || !n.IsRead) {
			all = append(all, *n)
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := int64(len(all))
	start := filter.Offset
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, userID, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.NotificationID == id && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
		}
	}
	return nil
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var affected int64
	for _, n := range m.items {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &at
			affected++
		}
	}
	return affected, nil
}

// forUser 按用户与类型筛选（测试断言用）
func (m *mockNotificationRepo) forUser(userID string, typ model.NotificationType) []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Notification
	for _, n := range m.items {
		if n.UserID == userID && (typ == "" || n.Type == typ) {
			result = append(result, *n)
		}
	}
	return result
}

func (m *mockNotificationRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct {
	mu    sync.Mutex
	prefs map[string]*model.NotificationPreference
	err   error
}

func newMockPreferenceRepo() *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[string]*model.NotificationPreference)}
}

func (m *mockPreferenceRepo) GetByUserID(_ context.Context, userID string) (*model.NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.prefs[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) Upsert(_ context.Context, pref *model.NotificationPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *pref
	m.prefs[pref.UserID] = &cp
	return nil
}

// ── Mock PushTokenRepository ──

type mockPushTokenRepo struct {
	mu     sync.Mutex
	tokens []*model.PushToken
}

func newMockPushTokenRepo() *mockPushTokenRepo {
	return &mockPushTokenRepo{}
}

func (m *mockPushTokenRepo) Register(_ context.Context, token *model.PushToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	token.IsActive = true
	for _, t := range m.tokens {
		if t.Token == token.Token {
			t.UserID, t.Platform, t.IsActive = token.UserID, token.Platform, true
			token.PushTokenID = t.PushTokenID
			return nil
		}
	}
	if token.PushTokenID == "" {
		token.PushTokenID = "pt-" + token.Token
	}
	cp := *token
	m.tokens = append(m.tokens, &cp)
	return nil
}

func (m *mockPushTokenRepo) ListActiveByUser(_ context.Context, userID string) ([]model.PushToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.PushToken
	for _, t := range m.tokens {
		if t.UserID == userID && t.IsActive {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockPushTokenRepo) ListByUser(_ context.Context, userID string) ([]model.PushToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.PushToken
	for _, t := range m.tokens {
		if t.UserID == userID {
			result = append(result, *t)
		}
	}
	return result, nil
}

func (m *mockPushTokenRepo) Deactivate(_ context.Context, tokens []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tokens {
		for _, name := range tokens {
			if t.Token == name && t.IsActive {
				t.IsActive = false
				n++
			}
		}
	}
	return n, nil
}

func (m *mockPushTokenRepo) DeactivateForUser(_ context.Context, userID, token string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, t := range m.tokens {
		if t.UserID == userID && t.Token == token {
			t.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *mockPushTokenRepo) Touch(_ context.Context, tokens []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		for _, name := range tokens {
			if t.Token == name {
				t.LastUsedAt = &at
			}
		}
	}
	return nil
}

// ── 聚合 ──

type mockRepos struct {
	users         *mockUserRepo
	documents     *mockDocumentRepo
	approvals     *mockApprovalRepo
	notifications *mockNotificationRepo
	prefs         *mockPreferenceRepo
	tokens        *mockPushTokenRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		users:         newMockUserRepo(),
		documents:     newMockDocumentRepo(),
		approvals:     newMockApprovalRepo(),
		notifications: newMockNotificationRepo(),
		prefs:         newMockPreferenceRepo(),
		tokens:        newMockPushTokenRepo(),
	}
	repo := &repository.Repository{
		User:         m.users,
		Document:     m.documents,
		Approval:     m.approvals,
		Notification: m.notifications,
		Preference:   m.prefs,
		PushToken:    m.tokens,
	}
	return repo, m
}

// ── 测试替身：通道、网关、锁、事件流 ──

type recordingChannel struct {
	mu    sync.Mutex
	name  string
	wants func(model.Preferences) bool
	sent  []*model.Notification
	fail  bool
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Wants(p model.Preferences) bool { return c.wants(p) }

func (c *recordingChannel) Send(_ context.Context, n *model.Notification) channel.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	if c.fail {
		return channel.Result{Channel: c.name, Outcome: channel.OutcomeFailed, Error: "boom"}
	}
	return channel.Result{Channel: c.name, Outcome: channel.OutcomeDelivered}
}

func (c *recordingChannel) sentTo(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sent {
		if s.UserID == userID {
			n++
		}
	}
	return n
}

type stubGateway struct {
	mu     sync.Mutex
	topics []string
	tokens []string
	err    error
}

func (g *stubGateway) SendToToken(_ context.Context, token string, _ *push.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.tokens = append(g.tokens, token)
	return "msg-1", nil
}

func (g *stubGateway) SendToTokens(_ context.Context, tokens []string, _ *push.Message) (*push.MulticastResult, error) {
	return &push.MulticastResult{SuccessCount: len(tokens)}, nil
}

func (g *stubGateway) SendToTopic(_ context.Context, topic string, _ *push.Message) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.topics = append(g.topics, topic)
	return "msg-topic", nil
}

// stubLocker held=true 时锁被占用；freeAfter>0 时在第 freeAfter 次尝试后释放
type stubLocker struct {
	mu        sync.Mutex
	held      bool
	freeAfter int
	attempts  int
	err       error
}

func (l *stubLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held && l.freeAfter > 0 && l.attempts > l.freeAfter {
		l.held = false
	}
	if l.held {
		return nil, false, nil
	}
	return func() {}, true, nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []eventbus.WorkflowEvent
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, e eventbus.WorkflowEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingEvents) Close() error { return nil }

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// testClock 可手动推进的时钟
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errStorage = errors.New("storage unavailable")
