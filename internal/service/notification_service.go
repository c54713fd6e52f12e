package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docflow/internal/channel"
	"docflow/internal/dto"
	"docflow/internal/i18n"
	"docflow/internal/model"
	"docflow/internal/repository"
	pkgerrors "docflow/pkg/errors"
	applogger "docflow/pkg/logger"
	"docflow/pkg/metrics"
	"docflow/pkg/push"
	"docflow/pkg/response"
	"docflow/pkg/tracing"
)

// ── 通知模块业务错误 ──

var (
	ErrNotificationNotFound = fmt.Errorf("%w: 通知不存在", pkgerrors.ErrNotFound)
	ErrInvalidDispatch      = fmt.Errorf("%w: 通知参数不完整", pkgerrors.ErrValidation)
	ErrUnsupportedLanguage  = fmt.Errorf("%w: 不支持的语言", pkgerrors.ErrValidation)
	ErrPushTokenNotFound    = fmt.Errorf("%w: 推送 Token 不存在", pkgerrors.ErrNotFound)
	ErrPushUnavailable      = fmt.Errorf("%w: 推送服务未配置", pkgerrors.ErrChannelUnavailable)
	ErrPushSendFailed       = errors.New("推送发送失败")
)

// Audience 区分两类通知：通用通知不检查审批开关；审批通知检查 notifyApproval 并按用户语言渲染
type Audience int

const (
	AudienceGeneral Audience = iota
	AudienceApproval
)

// DispatchRequest 分发请求
type DispatchRequest struct {
	UserID   string
	Type     model.NotificationType
	Audience Audience

	// AudienceGeneral 使用
	Title   string
	Message string

	// AudienceApproval 使用
	MessageKey i18n.MessageKey
	Params     i18n.Params

	Link     string
	Priority model.Priority // 为空时通用通知默认 MEDIUM，审批通知默认 HIGH
	Data     map[string]interface{}
}

// NewLocalizedRequest 构造审批类（本地化）通知请求
func NewLocalizedRequest(userID string, typ model.NotificationType, key i18n.MessageKey, params i18n.Params, link string) *DispatchRequest {
	return &DispatchRequest{
		UserID:     userID,
		Type:       typ,
		Audience:   AudienceApproval,
		MessageKey: key,
		Params:     params,
		Link:       link,
	}
}

// DispatchStatus 分发结论
type DispatchStatus string

const (
	DispatchSent         DispatchStatus = "sent"
	DispatchDeduplicated DispatchStatus = "deduplicated"
	DispatchOptedOut     DispatchStatus = "opted_out"
)

// DispatchResult 分发结果；去重时 NotificationID 为已存在的通知
type DispatchResult struct {
	NotificationID string
	Status         DispatchStatus
	Channels       []channel.Result
}

// BulkResult 批量分发中单个用户的结果
type BulkResult struct {
	UserID string
	Result *DispatchResult
	Err    error
}

// NotificationService 通知分发与查询接口
type NotificationService interface {
	Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResult, error)
	// DispatchBulk 分批分发：批内并发，批间串行
	DispatchBulk(ctx context.Context, userIDs []string, req DispatchRequest) []BulkResult
	// PublishTopic 按默认语言渲染后推送到主题（不落库）
	PublishTopic(ctx context.Context, topic string, key i18n.MessageKey, params i18n.Params, link string) error

	List(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationListResponse, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)

	GetPreferences(ctx context.Context, userID string) (*dto.PreferenceResponse, error)
	UpdatePreferences(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error)

	RegisterToken(ctx context.Context, userID string, req *dto.RegisterPushTokenRequest) (*dto.PushTokenResponse, error)
	UnregisterToken(ctx context.Context, userID, token string) error
	ListTokens(ctx context.Context, userID string) ([]dto.PushTokenResponse, error)
	SendTestPush(ctx context.Context, userID string, req *dto.TestPushRequest) (*dto.TestPushResponse, error)
}

// NotificationDeps 分发器依赖；Gateway、Locker 可为 nil
type NotificationDeps struct {
	Channels  *channel.Registry
	Gateway   push.Gateway
	Locker    Locker
	Window    time.Duration
	BatchSize int
	Language  string
	ImageURL  string
	Now       func() time.Time
}

type notificationService struct {
	repo      *repository.Repository
	channels  *channel.Registry
	gateway   push.Gateway
	dedup     *DedupGuard
	prefs     *PreferenceResolver
	batchSize int
	imageURL  string
	now       func() time.Time
	logger    *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, deps NotificationDeps, logger *zap.Logger) NotificationService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.BatchSize <= 0 {
		deps.BatchSize = 50
	}
	if deps.Window <= 0 {
		deps.Window = 5 * time.Second
	}
	return &notificationService{
		repo:      repo,
		channels:  deps.Channels,
		gateway:   deps.Gateway,
		dedup:     NewDedupGuard(repo.Notification, deps.Locker, deps.Window, logger),
		prefs:     NewPreferenceResolver(repo.Preference, deps.Language, logger),
		batchSize: deps.BatchSize,
		imageURL:  deps.ImageURL,
		now:       deps.Now,
		logger:    logger,
	}
}

// ────────────────────── Dispatch ──────────────────────

func (s *notificationService) Dispatch(ctx context.Context, req *DispatchRequest) (result *DispatchResult, err error) {
	ctx, span := tracing.Start(ctx, "notification.Dispatch",
		attribute.String("user_id", req.UserID),
		attribute.String("type", string(req.Type)),
	)
	defer func() {
		status := "failed"
		if result != nil {
			status = string(result.Status)
			span.SetAttributes(attribute.String("status", status))
		}
		metrics.NotificationsDispatched.WithLabelValues(status).Inc()
		tracing.End(span, err)
	}()

	if req.UserID == "" || req.Type == "" {
		return nil, ErrInvalidDispatch
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return nil, ErrInvalidDispatch
	}

	prefs := s.prefs.Resolve(ctx, req.UserID)

	title, message := req.Title, req.Message
	priority := req.Priority
	switch req.Audience {
	case AudienceApproval:
		// 用户关闭审批通知时不落库
		if !prefs.ApprovalOptIn {
			return &DispatchResult{Status: DispatchOptedOut}, nil
		}
		rendered := i18n.Render(req.MessageKey, i18n.Language(prefs.Language), req.Params)
		title, message = rendered.Title, rendered.Message
		if priority == "" {
			priority = model.PriorityHigh
		}
	default:
		if strings.TrimSpace(title) == "" {
			return nil, ErrInvalidDispatch
		}
		if priority == "" {
			priority = model.PriorityMedium
		}
	}

	n, dup, err := s.persist(ctx, req, title, message, priority)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return dup, nil
	}

	return &DispatchResult{
		NotificationID: n.NotificationID,
		Status:         DispatchSent,
		Channels:       s.fanOut(ctx, n, prefs),
	}, nil
}

// log 优先使用请求级日志器
func (s *notificationService) log(ctx context.Context) *zap.Logger {
	return applogger.FromContext(ctx, s.logger)
}

// persist 去重检查与落库；命中去重时返回 dup
func (s *notificationService) persist(ctx context.Context, req *DispatchRequest, title, message string, priority model.Priority) (*model.Notification, *DispatchResult, error) {
	release, existingID, err := s.dedup.Enter(ctx, req.UserID, req.Type, title, s.now)
	if err != nil {
		s.log(ctx).Error("去重检查失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, nil, err
	}
	defer release()
	if existingID != "" {
		// 并发分发的同一通知已由锁持有者落库
		return nil, &DispatchResult{NotificationID: existingID, Status: DispatchDeduplicated}, nil
	}

	now := s.now()
	existingID, suppressed, err := s.dedup.ShouldSuppress(ctx, req.UserID, req.Type, title, now)
	if err != nil {
		s.log(ctx).Error("去重检查失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, nil, err
	}
	if suppressed {
		s.log(ctx).Debug("通知已去重",
			zap.String("user_id", req.UserID),
			zap.String("type", string(req.Type)),
			zap.String("existing_id", existingID),
		)
		return nil, &DispatchResult{NotificationID: existingID, Status: DispatchDeduplicated}, nil
	}

	n := &model.Notification{
		NotificationID: uuid.New().String(),
		UserID:         req.UserID,
		Type:           req.Type,
		Title:          title,
		Message:        message,
		Link:           req.Link,
		Priority:       priority,
		CreatedAt:      now,
	}
	if len(req.Data) > 0 {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: 通知附加数据无法序列化", pkgerrors.ErrValidation)
		}
		n.Data = datatypes.JSON(raw)
	}

	if err := s.repo.Notification.Create(ctx, n); err != nil {
		s.log(ctx).Error("保存通知失败", zap.String("user_id", req.UserID), zap.Error(err))
		return nil, nil, err
	}
	return n, nil, nil
}

// fanOut 并发投递到偏好允许的通道；通道之间互不影响
func (s *notificationService) fanOut(ctx context.Context, n *model.Notification, prefs model.Preferences) []channel.Result {
	channels := s.channels.For(prefs)
	if len(channels) == 0 {
		return nil
	}

	results := make([]channel.Result, len(channels))
	var g errgroup.Group
	for i, ch := range channels {
		g.Go(func() error {
			results[i] = ch.Send(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ────────────────────── DispatchBulk ──────────────────────

func (s *notificationService) DispatchBulk(ctx context.Context, userIDs []string, req DispatchRequest) []BulkResult {
	results := make([]BulkResult, len(userIDs))

	for start := 0; start < len(userIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				r := req
				r.UserID = userIDs[i]
				res, err := s.Dispatch(ctx, &r)
				if err != nil {
					s.log(ctx).Warn("批量分发单个用户失败", zap.String("user_id", r.UserID), zap.Error(err))
				}
				results[i] = BulkResult{UserID: r.UserID, Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

// ────────────────────── PublishTopic ──────────────────────

func (s *notificationService) PublishTopic(ctx context.Context, topic string, key i18n.MessageKey, params i18n.Params, link string) error {
	if s.gateway == nil {
		return ErrPushUnavailable
	}
	rendered := i18n.Render(key, s.prefs.defaultLanguage, params)
	_, err := s.gateway.SendToTopic(ctx, topic, &push.Message{
		Title:    rendered.Title,
		Body:     rendered.Message,
		ImageURL: s.imageURL,
		Link:     link,
		Data:     map[string]string{"type": string(key)},
	})
	return err
}

// ────────────────────── 查询与已读 ──────────────────────

func (s *notificationService) List(ctx context.Context, userID string, req *dto.NotificationListRequest) (*dto.NotificationListResponse, error) {
	page, pageSize := req.GetPage(), req.GetPageSize()

	items, total, err := s.repo.Notification.ListByUser(ctx, userID, repository.NotificationListFilter{
		UnreadOnly: req.UnreadOnly,
		Offset:     req.GetOffset(),
		Limit:      pageSize,
	})
	if err != nil {
		s.log(ctx).Error("查询通知列表失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	unread, err := s.repo.Notification.CountUnread(ctx, userID)
	if err != nil {
		s.log(ctx).Error("统计未读通知失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	list := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		list = append(list, toNotificationResponse(&items[i]))
	}

	return &dto.NotificationListResponse{
		Items:       list,
		Pagination:  response.NewPagination(total, page, pageSize),
		UnreadCount: unread,
	}, nil
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	n, err := s.repo.Notification.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	// 他人的通知按不存在处理
	if n.UserID != userID {
		return ErrNotificationNotFound
	}
	if n.IsRead {
		return nil
	}
	return s.repo.Notification.MarkRead(ctx, userID, id, s.now())
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	affected, err := s.repo.Notification.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		s.log(ctx).Error("全部标记已读失败", zap.String("user_id", userID), zap.Error(err))
		return 0, err
	}
	return affected, nil
}

// ────────────────────── 通知偏好 ──────────────────────

func (s *notificationService) GetPreferences(ctx context.Context, userID string) (*dto.PreferenceResponse, error) {
	return s.prefs.get(ctx, userID), nil
}

func (s *notificationService) UpdatePreferences(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	return s.prefs.update(ctx, userID, req)
}

// ────────────────────── 推送 Token ──────────────────────

func (s *notificationService) RegisterToken(ctx context.Context, userID string, req *dto.RegisterPushTokenRequest) (*dto.PushTokenResponse, error) {
	platform := req.Platform
	if platform == "" {
		platform = "web"
	}
	token := &model.PushToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: platform,
	}
	if err := s.repo.PushToken.Register(ctx, token); err != nil {
		s.log(ctx).Error("注册推送 Token 失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	resp := toPushTokenResponse(token)
	return &resp, nil
}

func (s *notificationService) UnregisterToken(ctx context.Context, userID, token string) error {
	affected, err := s.repo.PushToken.DeactivateForUser(ctx, userID, token)
	if err != nil {
		s.log(ctx).Error("注销推送 Token 失败", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if affected == 0 {
		return ErrPushTokenNotFound
	}
	return nil
}

func (s *notificationService) ListTokens(ctx context.Context, userID string) ([]dto.PushTokenResponse, error) {
	tokens, err := s.repo.PushToken.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := make([]dto.PushTokenResponse, 0, len(tokens))
	for i := range tokens {
		result = append(result, toPushTokenResponse(&tokens[i]))
	}
	return result, nil
}

func (s *notificationService) SendTestPush(ctx context.Context, userID string, req *dto.TestPushRequest) (*dto.TestPushResponse, error) {
	if s.gateway == nil {
		return nil, ErrPushUnavailable
	}

	tokens, err := s.repo.PushToken.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned := false
	for _, t := range tokens {
		if t.Token == req.Token {
			owned = true
			break
		}
	}
	if !owned {
		return nil, ErrPushTokenNotFound
	}

	title, body := req.Title, req.Body
	if title == "" {
		title = "测试推送"
	}
	if body == "" {
		body = "推送通道工作正常"
	}

	id, err := s.gateway.SendToToken(ctx, req.Token, &push.Message{
		Title:    title,
		Body:     body,
		ImageURL: s.imageURL,
		Data:     map[string]string{"type": string(model.NotificationSystem)},
	})
	if err != nil {
		s.log(ctx).Warn("测试推送失败", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPushSendFailed, err)
	}
	return &dto.TestPushResponse{MessageID: id}, nil
}

// ── 转换 ──

func toNotificationResponse(n *model.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.NotificationID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		Priority:  string(n.Priority),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if len(n.Data) > 0 {
		resp.Data = json.RawMessage(n.Data)
	}
	if n.ReadAt != nil {
		resp.ReadAt = n.ReadAt.Format(time.RFC3339)
	}
	return resp
}

func toPushTokenResponse(t *model.PushToken) dto.PushTokenResponse {
	resp := dto.PushTokenResponse{
		ID:        t.PushTokenID,
		Token:     t.Token,
		Platform:  t.Platform,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.LastUsedAt != nil {
		resp.LastUsedAt = t.LastUsedAt.Format(time.RFC3339)
	}
	return resp
}
