package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow/internal/dto"
	"docflow/internal/service"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/response"
)

// NotificationHandler 通知、偏好与推送 Token 的 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ── 通知 ──

// ListNotifications 当前用户的通知列表
// GET /api/v1/notifications?page=1&page_size=20&unread_only=true
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	var req dto.NotificationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, err := h.notificationSvc.List(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, list)
}

// MarkAsRead 标记单条已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.MarkAsRead(c.Request.Context(), userID, c.Param("id")); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// MarkAllAsRead 全部标记已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	affected, err := h.notificationSvc.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, dto.MarkAllReadResponse{Affected: affected})
}

// ── 偏好 ──

// GetPreferences 当前用户的通知偏好
// GET /api/v1/notification-preferences/me
func (h *NotificationHandler) GetPreferences(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	prefs, err := h.notificationSvc.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, prefs)
}

// UpdatePreferences 部分更新通知偏好
// PUT /api/v1/notification-preferences/me
func (h *NotificationHandler) UpdatePreferences(c *gin.Context) {
	var req dto.UpdatePreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	prefs, err := h.notificationSvc.UpdatePreferences(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, prefs)
}

// ── 推送 Token ──

// ListPushTokens 当前用户注册的设备
// GET /api/v1/push-tokens
func (h *NotificationHandler) ListPushTokens(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tokens, err := h.notificationSvc.ListTokens(c.Request.Context(), userID)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, gin.H{"list": tokens})
}

// RegisterPushToken 注册设备 Token（同一 Token 重复注册时改绑到当前用户）
// POST /api/v1/push-tokens
func (h *NotificationHandler) RegisterPushToken(c *gin.Context) {
	var req dto.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	token, err := h.notificationSvc.RegisterToken(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.Created(c, token)
}

// UnregisterPushToken 停用设备 Token
// DELETE /api/v1/push-tokens/:token
func (h *NotificationHandler) UnregisterPushToken(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.notificationSvc.UnregisterToken(c.Request.Context(), userID, c.Param("token")); err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, nil)
}

// SendTestPush 向自己的设备发送测试推送
// POST /api/v1/push-tokens/test
func (h *NotificationHandler) SendTestPush(c *gin.Context) {
	var req dto.TestPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.notificationSvc.SendTestPush(c.Request.Context(), userID, &req)
	if err != nil {
		h.handleNotificationError(c, err)
		return
	}

	response.OK(c, resp)
}

// handleNotificationError 通知模块错误码 21xxx，推送 22xxx
func (h *NotificationHandler) handleNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotificationNotFound):
		response.NotFound(c, 21001, "通知不存在")
	case errors.Is(err, service.ErrUnsupportedLanguage):
		response.BadRequest(c, 21002, "不支持的语言")
	case errors.Is(err, service.ErrPushTokenNotFound):
		response.NotFound(c, 22001, "推送 Token 不存在")
	case errors.Is(err, pkgerrors.ErrChannelUnavailable):
		response.Error(c, http.StatusServiceUnavailable, 22002, "推送服务未配置")
	case errors.Is(err, service.ErrPushSendFailed):
		response.ErrorWithDetails(c, http.StatusBadGateway, 22003, "推送发送失败", err.Error())
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 21003, "参数校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}
