package model

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus 文档生命周期状态
type DocumentStatus string

const (
	DocumentStatusDraft              DocumentStatus = "DRAFT"
	DocumentStatusOnReview           DocumentStatus = "ON_REVIEW"
	DocumentStatusRevisionByReviewer DocumentStatus = "REVISION_BY_REVIEWER"
	DocumentStatusOnApproval         DocumentStatus = "ON_APPROVAL"
	DocumentStatusPendingAck         DocumentStatus = "PENDING_ACK"
	DocumentStatusApproved           DocumentStatus = "APPROVED"
	DocumentStatusWaitingValidation  DocumentStatus = "WAITING_VALIDATION"
	DocumentStatusDistributed        DocumentStatus = "DISTRIBUTED"
	DocumentStatusRejected           DocumentStatus = "REJECTED"
	DocumentStatusObsolete           DocumentStatus = "OBSOLETE"
)

// AcceptsVotes 文档处于审批中（三级任一）时才接受投票
func (s DocumentStatus) AcceptsVotes() bool {
	switch s {
	case DocumentStatusOnReview, DocumentStatusOnApproval, DocumentStatusPendingAck:
		return true
	}
	return false
}

// Submittable 可以（重新）提交审批的状态
func (s DocumentStatus) Submittable() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusRejected, DocumentStatusRevisionByReviewer:
		return true
	}
	return false
}

// ApprovalStatus 文档聚合审批状态
type ApprovalStatus string

const (
	ApprovalStatusPending    ApprovalStatus = "PENDING"
	ApprovalStatusInProgress ApprovalStatus = "IN_PROGRESS"
	ApprovalStatusApproved   ApprovalStatus = "APPROVED"
	ApprovalStatusRejected   ApprovalStatus = "REJECTED"
)

// DocumentCategory 校验归档分类
type DocumentCategory string

const (
	CategoryManagement  DocumentCategory = "MANAGEMENT"
	CategoryDistributed DocumentCategory = "DISTRIBUTED"
)

// Valid 是否为已定义的分类
func (c DocumentCategory) Valid() bool {
	return c == CategoryManagement || c == CategoryDistributed
}

// Document 文档表，对应 documents
// 内容与 PDF 渲染由文档服务负责，这里只保存审批流转需要的字段
type Document struct {
	DocumentID      string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	Number          string            `gorm:"type:varchar(50);not null"                      json:"number"`
	Title           string            `gorm:"type:varchar(200);not null"                     json:"title"`
	OwnerID         string            `gorm:"type:uuid;not null"                             json:"owner_id"`
	DepartmentID    *string           `gorm:"type:uuid"                                      json:"department_id,omitempty"`
	Status          DocumentStatus    `gorm:"type:varchar(30);not null;default:'DRAFT'"      json:"status"`
	ApprovalStatus  ApprovalStatus    `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"approval_status"`
	RevisionCycle   int               `gorm:"not null;default:0"                             json:"revision_cycle"`
	Category        *DocumentCategory `gorm:"type:varchar(20)"                               json:"category,omitempty"`
	FinalArtifact   datatypes.JSON    `gorm:"type:jsonb"                                     json:"final_artifact,omitempty"`
	ValidatedBy     *string           `gorm:"type:uuid"                                      json:"validated_by,omitempty"`
	ValidatedAt     *time.Time        `json:"validated_at,omitempty"`
	RejectionReason string            `gorm:"type:varchar(1000);not null;default:''"         json:"rejection_reason,omitempty"`
	VersionedModel

	// 关联
	Owner *User `gorm:"foreignKey:OwnerID;references:UserID" json:"owner,omitempty"`
}

// TableName 指定表名
func (Document) TableName() string { return "documents" }

// FinalArtifact 校验通过后生成的最终归档信息（签名合成 + 组织印章）
type FinalArtifact struct {
	StampID     string           `json:"stamp_id"`
	Category    DocumentCategory `json:"category"`
	ValidatedBy string           `json:"validated_by"`
	ValidatedAt time.Time        `json:"validated_at"`
	Signatures  []Signature      `json:"signatures"`
}

// Signature 单个审批人的签名记录
type Signature struct {
	ApproverID string    `json:"approver_id"`
	Name       string    `json:"name,omitempty"`
	Level      int       `json:"level"`
	ApprovedAt time.Time `json:"approved_at"`
}
