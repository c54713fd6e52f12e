package model

import "time"

// 审批层级：严格有序，每级可有零到多个审批人
const (
	LevelReviewer     = 1
	LevelApprover     = 2
	LevelAcknowledger = 3
)

// Levels 按顺序列出全部层级
var Levels = []int{LevelReviewer, LevelApprover, LevelAcknowledger}

// ValidLevel 是否为已定义的层级
func ValidLevel(level int) bool {
	return level >= LevelReviewer && level <= LevelAcknowledger
}

// LevelForRole 由角色推导审批层级，非审批角色返回 0
func LevelForRole(role string) int {
	switch role {
	case RoleReviewer:
		return LevelReviewer
	case RoleApprover:
		return LevelApprover
	case RoleAcknowledger:
		return LevelAcknowledger
	}
	return 0
}

// VoteStatus 单张投票状态
type VoteStatus string

const (
	VoteStatusPending  VoteStatus = "PENDING"
	VoteStatusApproved VoteStatus = "APPROVED"
	VoteStatusRejected VoteStatus = "REJECTED"
)

// Approval 审批投票表，对应 document_approvals
// (document_id, approver_id, revision_cycle) 唯一：同一轮重复投票覆盖原记录
type Approval struct {
	ApprovalID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"approval_id"`
	DocumentID    string     `gorm:"type:uuid;not null"                             json:"document_id"`
	ApproverID    string     `gorm:"type:uuid;not null"                             json:"approver_id"`
	Level         int        `gorm:"type:smallint;not null"                         json:"level"`
	Status        VoteStatus `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"status"`
	Comments      string     `gorm:"type:text;not null;default:''"                  json:"comments"`
	RevisionCycle int        `gorm:"not null"                                       json:"revision_cycle"`
	RequestedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"requested_at"`
	ApprovedAt    *time.Time `json:"approved_at,omitempty"`
	RejectedAt    *time.Time `json:"rejected_at,omitempty"`
	TimestampModel

	// 关联
	Approver *User `gorm:"foreignKey:ApproverID;references:UserID" json:"approver,omitempty"`
}

// TableName 指定表名
func (Approval) TableName() string { return "document_approvals" }
