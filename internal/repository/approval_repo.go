package repository

import (
	"context"

	"gorm.io/gorm"

	"docflow/internal/model"
)

// ApprovalRepository 审批投票数据访问接口
type ApprovalRepository interface {
	BatchCreate(ctx context.Context, approvals []model.Approval) error
	// GetForCycle 查询某审批人在指定轮次的投票行
	GetForCycle(ctx context.Context, documentID, approverID string, cycle int) (*model.Approval, error)
	// ListByCycle 查询指定轮次全部投票，按层级、发起时间升序
	ListByCycle(ctx context.Context, documentID string, cycle int) ([]model.Approval, error)
	// ListAll 查询文档全部轮次的投票（审计导出）
	ListAll(ctx context.Context, documentID string) ([]model.Approval, error)
	SaveDecision(ctx context.Context, approval *model.Approval) error
}

type approvalRepo struct {
	db *gorm.DB
}

// NewApprovalRepo 创建 ApprovalRepository 实例
func NewApprovalRepo(db *gorm.DB) ApprovalRepository {
	return &approvalRepo{db: db}
}

func (r *approvalRepo) BatchCreate(ctx context.Context, approvals []model.Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&approvals).Error
}

func (r *approvalRepo) GetForCycle(ctx context.Context, documentID, approverID string, cycle int) (*model.Approval, error) {
	var a model.Approval
	err := r.db.WithContext(ctx).
		Where("document_id = ? AND approver_id = ? AND revision_cycle = ?", documentID, approverID, cycle).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *approvalRepo) ListByCycle(ctx context.Context, documentID string, cycle int) ([]model.Approval, error) {
	var approvals []model.Approval
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("document_id = ? AND revision_cycle = ?", documentID, cycle).
		Order("level ASC, requested_at ASC").
		Find(&approvals).Error
	return approvals, err
}

func (r *approvalRepo) ListAll(ctx context.Context, documentID string) ([]model.Approval, error) {
	var approvals []model.Approval
	err := r.db.WithContext(ctx).
		Preload("Approver").
		Where("document_id = ?", documentID).
		Order("revision_cycle ASC, level ASC, requested_at ASC").
		Find(&approvals).Error
	return approvals, err
}

// SaveDecision 覆盖写入投票结果（状态、意见、通过/驳回时间）
func (r *approvalRepo) SaveDecision(ctx context.Context, approval *model.Approval) error {
	return r.db.WithContext(ctx).
		Model(&model.Approval{}).
		Where("approval_id = ?", approval.ApprovalID).
		Updates(map[string]interface{}{
			"status":      approval.Status,
			"comments":    approval.Comments,
			"approved_at": approval.ApprovedAt,
			"rejected_at": approval.RejectedAt,
			"updated_at":  gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}
