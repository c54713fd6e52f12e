package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
)

// PushTokenRepository 推送 Token 数据访问接口
type PushTokenRepository interface {
	// Register 注册或重新激活 Token；同一 Token 换绑用户时归属最新用户
	Register(ctx context.Context, token *model.PushToken) error
	ListActiveByUser(ctx context.Context, userID string) ([]model.PushToken, error)
	ListByUser(ctx context.Context, userID string) ([]model.PushToken, error)
	// Deactivate 批量停用 Token（推送服务判定失效），返回影响行数
	Deactivate(ctx context.Context, tokens []string) (int64, error)
	// DeactivateForUser 用户主动注销自己的 Token
	DeactivateForUser(ctx context.Context, userID, token string) (int64, error)
	Touch(ctx context.Context, tokens []string, at time.Time) error
}

type pushTokenRepo struct {
	db *gorm.DB
}

// NewPushTokenRepo 创建 PushTokenRepository 实例
func NewPushTokenRepo(db *gorm.DB) PushTokenRepository {
	return &pushTokenRepo{db: db}
}

func (r *pushTokenRepo) Register(ctx context.Context, token *model.PushToken) error {
	now := time.Now()
	if token.PushTokenID == "" {
		token.PushTokenID = uuid.New().String()
	}
	token.IsActive = true
	token.CreatedAt = now
	token.UpdatedAt = now
	return r.db.WithContext(ctx).
		Select("*").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "token"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"user_id":    token.UserID,
				"platform":   token.Platform,
				"is_active":  true,
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(token).Error
}

func (r *pushTokenRepo) ListActiveByUser(ctx context.Context, userID string) ([]model.PushToken, error) {
	var tokens []model.PushToken
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&tokens).Error
	return tokens, err
}

func (r *pushTokenRepo) ListByUser(ctx context.Context, userID string) ([]model.PushToken, error) {
	var tokens []model.PushToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&tokens).Error
	return tokens, err
}

func (r *pushTokenRepo) Deactivate(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.PushToken{}).
		Where("token IN ? AND is_active = ?", tokens, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

func (r *pushTokenRepo) DeactivateForUser(ctx context.Context, userID, token string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.PushToken{}).
		Where("user_id = ? AND token = ?", userID, token).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	return result.RowsAffected, result.Error
}

func (r *pushTokenRepo) Touch(ctx context.Context, tokens []string, at time.Time) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.PushToken{}).
		Where("token IN ?", tokens).
		Update("last_used_at", at).Error
}
