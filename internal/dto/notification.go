package dto

// ── 通知模块 DTO ──

// NotificationListRequest 通知列表查询参数
type NotificationListRequest struct {
	PaginationRequest
	UnreadOnly bool `form:"unread_only"`
}

// NotificationResponse 通知响应
type NotificationResponse struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Link      string      `json:"link,omitempty"`
	Priority  string      `json:"priority"`
	Data      interface{} `json:"data,omitempty"`
	IsRead    bool        `json:"is_read"`
	ReadAt    string      `json:"read_at,omitempty"`
	CreatedAt string      `json:"created_at"`
}

// NotificationListResponse 通知列表（含未读数）
type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	Pagination  Pagination             `json:"pagination"`
	UnreadCount int64                  `json:"unread_count"`
}

// MarkAllReadResponse 全部已读结果
type MarkAllReadResponse struct {
	Affected int64 `json:"affected"`
}

// ── 通知偏好 DTO ──

// PreferenceResponse 通知偏好
type PreferenceResponse struct {
	NotifyInApp    bool   `json:"notify_in_app"`
	NotifyPush     bool   `json:"notify_push"`
	NotifyApproval bool   `json:"notify_approval"`
	Language       string `json:"language"`
}

// UpdatePreferenceRequest 更新通知偏好，未提供的字段保持不变
type UpdatePreferenceRequest struct {
	NotifyInApp    *bool   `json:"notify_in_app"`
	NotifyPush     *bool   `json:"notify_push"`
	NotifyApproval *bool   `json:"notify_approval"`
	Language       *string `json:"language" binding:"omitempty,max=16"`
}

// ── 推送 Token DTO ──

// RegisterPushTokenRequest 注册推送 Token
type RegisterPushTokenRequest struct {
	Token    string `json:"token"    binding:"required,max=512"`
	Platform string `json:"platform" binding:"omitempty,oneof=ios android web"`
}

// PushTokenResponse 推送 Token
type PushTokenResponse struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	Platform   string `json:"platform"`
	IsActive   bool   `json:"is_active"`
	LastUsedAt string `json:"last_used_at,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// TestPushRequest 测试推送（单个 Token）
type TestPushRequest struct {
	Token string `json:"token" binding:"required,max=512"`
	Title string `json:"title" binding:"omitempty,max=100"`
	Body  string `json:"body"  binding:"omitempty,max=500"`
}

// TestPushResponse 测试推送结果
type TestPushResponse struct {
	MessageID string `json:"message_id"`
}
