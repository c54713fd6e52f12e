package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"docflow/internal/model"
)

// NotificationListFilter 通知列表查询条件
type NotificationListFilter struct {
	UnreadOnly bool
	Offset     int
	Limit      int
}

// NotificationRepository 通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	// FindLatest 查询 since 之后同一用户、类型、标题的最新一条通知（去重窗口判定）
	FindLatest(ctx context.Context, userID string, typ model.NotificationType, title string, since time.Time) (*model.Notification, error)
	GetByID(ctx context.Context, id string) (*model.Notification, error)
	ListByUser(ctx context.Context, userID string, filter NotificationListFilter) ([]model.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	// MarkRead 仅标记未读的那一条，已读时不修改 read_at
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	// MarkAllRead 标记用户全部未读通知，返回影响行数
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) FindLatest(ctx context.Context, userID string, typ model.NotificationType, title string, since time.Time) (*model.Notification, error) {
	var n model.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND title = ? AND created_at >= ?", userID, typ, title, since).
		Order("created_at DESC").
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("notification_id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, filter NotificationListFilter) ([]model.Notification, int64, error) {
	var (
		items []model.Notification
		total int64
	)

	query := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if filter.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&items).Error
	return items, total, err
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		}).Error
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": at,
		})
	return result.RowsAffected, result.Error
}
