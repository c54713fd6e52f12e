package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"docflow/internal/dto"
	"docflow/internal/i18n"
	"docflow/internal/model"
	"docflow/internal/repository"
)

// PreferenceResolver 读取用户通知偏好；没有记录或读取失败时返回默认值，从不报错
type PreferenceResolver struct {
	prefs           repository.PreferenceRepository
	defaultLanguage i18n.Language
	logger          *zap.Logger
}

// NewPreferenceResolver 创建偏好解析器
func NewPreferenceResolver(prefs repository.PreferenceRepository, defaultLanguage string, logger *zap.Logger) *PreferenceResolver {
	lang, ok := i18n.ParseLanguage(defaultLanguage)
	if !ok {
		lang = i18n.DefaultLanguage
	}
	return &PreferenceResolver{prefs: prefs, defaultLanguage: lang, logger: logger}
}

// Resolve 返回字段完整的偏好
func (r *PreferenceResolver) Resolve(ctx context.Context, userID string) model.Preferences {
	pref, err := r.prefs.GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("读取通知偏好失败，使用默认值", zap.String("user_id", userID), zap.Error(err))
		}
		return model.DefaultPreferences(string(r.defaultLanguage))
	}
	return r.fromRecord(pref)
}

func (r *PreferenceResolver) fromRecord(pref *model.NotificationPreference) model.Preferences {
	return model.Preferences{
		InApp:         pref.NotifyInApp,
		Push:          pref.NotifyPush,
		ApprovalOptIn: pref.NotifyApproval,
		Language:      string(r.language(pref.Language)),
	}
}

// language 未设置或无法识别时使用默认语言
func (r *PreferenceResolver) language(raw *string) i18n.Language {
	if raw == nil {
		return r.defaultLanguage
	}
	lang, ok := i18n.ParseLanguage(*raw)
	if !ok {
		return r.defaultLanguage
	}
	return lang
}

// ────────────────────── 偏好读写（当前用户） ──────────────────────

func (r *PreferenceResolver) get(ctx context.Context, userID string) *dto.PreferenceResponse {
	return toPreferenceResponse(r.Resolve(ctx, userID))
}

func toPreferenceResponse(p model.Preferences) *dto.PreferenceResponse {
	return &dto.PreferenceResponse{
		NotifyInApp:    p.InApp,
		NotifyPush:     p.Push,
		NotifyApproval: p.ApprovalOptIn,
		Language:       p.Language,
	}
}

func (r *PreferenceResolver) update(ctx context.Context, userID string, req *dto.UpdatePreferenceRequest) (*dto.PreferenceResponse, error) {
	current := r.Resolve(ctx, userID)

	record := &model.NotificationPreference{
		UserID:         userID,
		NotifyInApp:    current.InApp,
		NotifyPush:     current.Push,
		NotifyApproval: current.ApprovalOptIn,
	}
	lang := current.Language
	record.Language = &lang

	if req.NotifyInApp != nil {
		record.NotifyInApp = *req.NotifyInApp
	}
	if req.NotifyPush != nil {
		record.NotifyPush = *req.NotifyPush
	}
	if req.NotifyApproval != nil {
		record.NotifyApproval = *req.NotifyApproval
	}
	if req.Language != nil {
		parsed, ok := i18n.ParseLanguage(*req.Language)
		if !ok {
			return nil, ErrUnsupportedLanguage
		}
		l := string(parsed)
		record.Language = &l
	}

	if err := r.prefs.Upsert(ctx, record); err != nil {
		r.logger.Error("保存通知偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	return toPreferenceResponse(r.fromRecord(record)), nil
}
