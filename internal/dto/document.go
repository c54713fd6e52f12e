package dto

// ── 文档模块 DTO ──

// CreateDocumentRequest 创建文档草稿
type CreateDocumentRequest struct {
	Number       string  `json:"number"        binding:"required,max=50"`
	Title        string  `json:"title"         binding:"required,min=1,max=200"`
	DepartmentID *string `json:"department_id" binding:"omitempty,uuid"`
}

// LevelApprovers 某一审批层级的审批人
type LevelApprovers struct {
	Level       int      `json:"level"        binding:"required,min=1,max=3"`
	ApproverIDs []string `json:"approver_ids" binding:"required,min=1,dive,uuid"`
}

// SubmitDocumentRequest 提交/重新提交审批
type SubmitDocumentRequest struct {
	Levels []LevelApprovers `json:"levels" binding:"required,min=1,dive"`
}

// DocumentResponse 文档响应
type DocumentResponse struct {
	ID              string      `json:"id"`
	Number          string      `json:"number"`
	Title           string      `json:"title"`
	Owner           UserBrief   `json:"owner"`
	DepartmentID    *string     `json:"department_id,omitempty"`
	Status          string      `json:"status"`
	ApprovalStatus  string      `json:"approval_status"`
	RevisionCycle   int         `json:"revision_cycle"`
	Category        string      `json:"category,omitempty"`
	FinalArtifact   interface{} `json:"final_artifact,omitempty"`
	ValidatedBy     string      `json:"validated_by,omitempty"`
	ValidatedAt     string      `json:"validated_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
	Version         int         `json:"version"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
}

// ── 审批模块 DTO ──

// VoteRequest 投票请求；level 缺省时由调用者角色推导
type VoteRequest struct {
	Decision string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	Comments string `json:"comments" binding:"omitempty,max=2000"`
	Level    *int   `json:"level"    binding:"omitempty"`
}

// VoteResponse 投票结果
type VoteResponse struct {
	DocumentID     string `json:"document_id"`
	Status         string `json:"status"`
	ApprovalStatus string `json:"approval_status"`
	RevisionCycle  int    `json:"revision_cycle"`
}

// ApprovalResponse 审批投票响应
type ApprovalResponse struct {
	ID            string    `json:"id"`
	Approver      UserBrief `json:"approver"`
	Level         int       `json:"level"`
	Status        string    `json:"status"`
	Comments      string    `json:"comments,omitempty"`
	RevisionCycle int       `json:"revision_cycle"`
	RequestedAt   string    `json:"requested_at"`
	ApprovedAt    string    `json:"approved_at,omitempty"`
	RejectedAt    string    `json:"rejected_at,omitempty"`
}

// ValidateDocumentRequest 校验归档请求
type ValidateDocumentRequest struct {
	Decision   string   `json:"decision"   binding:"required,oneof=APPROVE REJECT"`
	Category   string   `json:"category"   binding:"omitempty,oneof=MANAGEMENT DISTRIBUTED"`
	StampID    string   `json:"stamp_id"   binding:"omitempty,max=100"`
	Reason     string   `json:"reason"     binding:"omitempty,max=1000"`
	Recipients []string `json:"recipients" binding:"omitempty,dive,uuid"`
}
