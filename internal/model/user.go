package model

// 角色常量：三级审批角色 + 校验人 + 管理员
const (
	RoleMember       = "member"
	RoleReviewer     = "reviewer"
	RoleApprover     = "approver"
	RoleAcknowledger = "acknowledger"
	RoleValidator    = "validator"
	RoleAdmin        = "admin"
)

// User 用户表，对应 users
// 本服务只读，用户的增删改由用户管理服务负责
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name         string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Email        string  `gorm:"type:varchar(255);not null;default:''"          json:"email"`
	Role         string  `gorm:"type:varchar(20);not null;default:'member'"     json:"role"`
	DepartmentID *string `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	TimestampModel
	SoftDelete
}

// TableName 指定表名
func (User) TableName() string { return "users" }
