package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationReviewRequired     NotificationType = "DOCUMENT_REVIEW_REQUIRED"
	NotificationApprovalRequired   NotificationType = "DOCUMENT_APPROVAL_REQUIRED"
	NotificationAckRequired        NotificationType = "DOCUMENT_ACK_REQUIRED"
	NotificationValidationRequired NotificationType = "DOCUMENT_VALIDATION_REQUIRED"
	NotificationSigned             NotificationType = "DOCUMENT_SIGNED"
	NotificationAwaitingValidation NotificationType = "DOCUMENT_AWAITING_VALIDATION"
	NotificationSubmitted          NotificationType = "DOCUMENT_SUBMITTED"
	NotificationApproved           NotificationType = "DOCUMENT_APPROVED"
	NotificationRejected           NotificationType = "DOCUMENT_REJECTED"
	NotificationFinalized          NotificationType = "DOCUMENT_FINALIZED"
	NotificationSystem             NotificationType = "SYSTEM"
)

// Priority 通知优先级
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// Valid 是否为已定义的优先级
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Notification 通知消息表，对应 notifications
// 由分发器创建一次，之后只允许"标记已读"修改
type Notification struct {
	NotificationID string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         string           `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           NotificationType `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string           `gorm:"type:varchar(200);not null"                     json:"title"`
	Message        string           `gorm:"type:text;not null"                             json:"message"`
	Link           string           `gorm:"type:varchar(500);not null;default:''"          json:"link,omitempty"`
	Priority       Priority         `gorm:"type:varchar(10);not null;default:'MEDIUM'"     json:"priority"`
	Data           datatypes.JSON   `gorm:"type:jsonb"                                     json:"data,omitempty"`
	IsRead         bool             `gorm:"not null;default:false"                         json:"is_read"`
	ReadAt         *time.Time       `json:"read_at,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP;<-:create"   json:"created_at"`
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }

// NotificationPreference 通知偏好表，对应 notification_preferences（与 users 1:1）
// 没有记录时按默认值处理，见 service.PreferenceResolver
type NotificationPreference struct {
	UserID         string  `gorm:"type:uuid;primaryKey"   json:"user_id"`
	NotifyInApp    bool    `gorm:"not null;default:true"  json:"notify_in_app"`
	NotifyPush     bool    `gorm:"not null;default:false" json:"notify_push"`
	NotifyApproval bool    `gorm:"not null;default:true"  json:"notify_approval"`
	Language       *string `gorm:"type:varchar(8)"        json:"language,omitempty"`
	TimestampModel
}

// TableName 指定表名
func (NotificationPreference) TableName() string { return "notification_preferences" }

// PushToken 推送设备 Token 表，对应 push_tokens
type PushToken struct {
	PushTokenID string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      string     `gorm:"type:uuid;not null"                             json:"user_id"`
	Token       string     `gorm:"type:varchar(512);not null"                     json:"token"`
	Platform    string     `gorm:"type:varchar(20);not null;default:'web'"        json:"platform"` // ios | android | web
	IsActive    bool       `gorm:"not null;default:true"                          json:"is_active"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	TimestampModel
}

// TableName 指定表名
func (PushToken) TableName() string { return "push_tokens" }

// Preferences 解析后的通知偏好，所有字段总是有值（缺省值在解析边界填充）
type Preferences struct {
	InApp         bool
	Push          bool
	ApprovalOptIn bool
	Language      string
}

// DefaultPreferences 未设置偏好时的默认值
func DefaultPreferences(defaultLanguage string) Preferences {
	return Preferences{
		InApp:         true,
		Push:          false,
		ApprovalOptIn: true,
		Language:      defaultLanguage,
	}
}
