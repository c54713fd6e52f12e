package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docflow/internal/model"
	pkgerrors "docflow/pkg/errors"
)

// DocumentRepository 文档数据访问接口
type DocumentRepository interface {
	Create(ctx context.Context, doc *model.Document) error
	GetByID(ctx context.Context, id string) (*model.Document, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定文档行，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Document, error)
	Update(ctx context.Context, doc *model.Document) error
}

type documentRepo struct {
	db *gorm.DB
}

// NewDocumentRepo 创建 DocumentRepository 实例
func NewDocumentRepo(db *gorm.DB) DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Where("document_id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("document_id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Update 乐观锁更新：version 不匹配时返回 ErrOptimisticLock
func (r *documentRepo) Update(ctx context.Context, doc *model.Document) error {
	oldVersion := doc.Version
	result := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("document_id = ? AND version = ?", doc.DocumentID, oldVersion).
		Updates(map[string]interface{}{
			"status":           doc.Status,
			"approval_status":  doc.ApprovalStatus,
			"revision_cycle":   doc.RevisionCycle,
			"category":         doc.Category,
			"final_artifact":   doc.FinalArtifact,
			"validated_by":     doc.ValidatedBy,
			"validated_at":     doc.ValidatedAt,
			"rejection_reason": doc.RejectionReason,
			"updated_by":       doc.UpdatedBy,
			"updated_at":       gorm.Expr("CURRENT_TIMESTAMP"),
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	doc.Version = oldVersion + 1
	return nil
}
