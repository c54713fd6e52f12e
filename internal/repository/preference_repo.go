package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
)

// PreferenceRepository 通知偏好数据访问接口
type PreferenceRepository interface {
	// GetByUserID 未设置偏好时返回 gorm.ErrRecordNotFound
	GetByUserID(ctx context.Context, userID string) (*model.NotificationPreference, error)
	Upsert(ctx context.Context, pref *model.NotificationPreference) error
}

type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) GetByUserID(ctx context.Context, userID string) (*model.NotificationPreference, error) {
	var pref model.NotificationPreference
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// Upsert 显式列出全部列：布尔零值在 Create 时会被 default:true 覆盖
func (r *preferenceRepo) Upsert(ctx context.Context, pref *model.NotificationPreference) error {
	now := time.Now()
	if pref.CreatedAt.IsZero() {
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now
	return r.db.WithContext(ctx).
		Select("*").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"notify_in_app":   pref.NotifyInApp,
				"notify_push":     pref.NotifyPush,
				"notify_approval": pref.NotifyApproval,
				"language":        pref.Language,
				"updated_at":      gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(pref).Error
}
