package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"docflow/internal/dto"
	"docflow/internal/i18n"
	"docflow/internal/model"
	"docflow/internal/repository"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/eventbus"
	applogger "docflow/pkg/logger"
	"docflow/pkg/metrics"
	"docflow/pkg/tracing"
)

// ── 文档/审批模块业务错误 ──

var (
	ErrDocumentNotFound              = fmt.Errorf("%w: 文档不存在", pkgerrors.ErrNotFound)
	ErrApproverNotFound              = fmt.Errorf("%w: 审批人不存在", pkgerrors.ErrNotFound)
	ErrVoteNotFound                  = fmt.Errorf("%w: 当前轮次没有该审批人的投票", pkgerrors.ErrNotFound)
	ErrInvalidLevel                  = fmt.Errorf("%w: 审批层级无效", pkgerrors.ErrValidation)
	ErrInvalidDecision               = fmt.Errorf("%w: 投票结果无效", pkgerrors.ErrValidation)
	ErrNoApprovers                   = fmt.Errorf("%w: 至少需要一名审批人", pkgerrors.ErrValidation)
	ErrDuplicateApprover             = fmt.Errorf("%w: 同一审批人在一轮中只能出现一次", pkgerrors.ErrValidation)
	ErrLevelMismatch                 = fmt.Errorf("%w: 投票层级与审批人分配的层级不一致", pkgerrors.ErrValidation)
	ErrRejectionReasonRequired       = fmt.Errorf("%w: 驳回必须填写原因", pkgerrors.ErrValidation)
	ErrCategoryRequired              = fmt.Errorf("%w: 校验通过必须指定归档类别", pkgerrors.ErrValidation)
	ErrInvalidValidationDecision     = fmt.Errorf("%w: 校验结论无效", pkgerrors.ErrValidation)
	ErrNotDocumentOwner              = errors.New("只有文档所有者可以提交审批")
	ErrDocumentNumberExists          = errors.New("文档编号已存在")
	ErrDocumentNotSubmittable        = errors.New("文档当前状态不允许提交")
	ErrDocumentNotUnderReview        = errors.New("文档当前不在审批中")
	ErrDocumentNotAwaitingValidation = errors.New("文档未处于待校验状态")
)

// 校验结论
const (
	ValidationApprove = "APPROVE"
	ValidationReject  = "REJECT"
)

// WorkflowService 审批工作流接口
type WorkflowService interface {
	CreateDraft(ctx context.Context, req *dto.CreateDocumentRequest, ownerID string) (*dto.DocumentResponse, error)
	GetDocument(ctx context.Context, documentID string) (*dto.DocumentResponse, error)
	// Submit 提交或重新提交审批，开启新的修订轮次
	Submit(ctx context.Context, documentID string, req *dto.SubmitDocumentRequest, callerID string) (*dto.DocumentResponse, error)
	// RecordVote 记录投票并重新计算聚合状态；同一文档的投票串行执行
	RecordVote(ctx context.Context, documentID, approverID string, level int, decision model.VoteStatus, comments string) (*dto.VoteResponse, error)
	// GetApprovals 当前轮次的投票，按层级升序
	GetApprovals(ctx context.Context, documentID string) ([]dto.ApprovalResponse, error)
	// Validate 校验归档或驳回
	Validate(ctx context.Context, documentID string, req *dto.ValidateDocumentRequest, validatorID string) (*dto.DocumentResponse, error)
}

// WorkflowDeps 工作流依赖
type WorkflowDeps struct {
	Notifier          NotificationService
	Events            eventbus.Publisher
	DistributionTopic string
	Now               func() time.Time
}

type workflowService struct {
	repo              *repository.Repository
	notifier          NotificationService
	events            eventbus.Publisher
	distributionTopic string
	now               func() time.Time
	logger            *zap.Logger
}

// NewWorkflowService 创建 WorkflowService 实例
func NewWorkflowService(repo *repository.Repository, deps WorkflowDeps, logger *zap.Logger) WorkflowService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Events == nil {
		deps.Events = eventbus.NewNopPublisher()
	}
	return &workflowService{
		repo:              repo,
		notifier:          deps.Notifier,
		events:            deps.Events,
		distributionTopic: deps.DistributionTopic,
		now:               deps.Now,
		logger:            logger,
	}
}

// ────────────────────── CreateDraft ──────────────────────

func (s *workflowService) CreateDraft(ctx context.Context, req *dto.CreateDocumentRequest, ownerID string) (*dto.DocumentResponse, error) {
	doc := &model.Document{
		DocumentID:     uuid.New().String(),
		Number:         strings.TrimSpace(req.Number),
		Title:          strings.TrimSpace(req.Title),
		OwnerID:        ownerID,
		DepartmentID:   req.DepartmentID,
		Status:         model.DocumentStatusDraft,
		ApprovalStatus: model.ApprovalStatusPending,
	}
	doc.Version = 1
	doc.CreatedBy = &ownerID
	doc.UpdatedBy = &ownerID

	if err := s.repo.Document.Create(ctx, doc); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDocumentNumberExists
		}
		s.log(ctx).Error("创建文档失败", zap.Error(err))
		return nil, err
	}

	return s.GetDocument(ctx, doc.DocumentID)
}

// ────────────────────── GetDocument ──────────────────────

func (s *workflowService) GetDocument(ctx context.Context, documentID string) (*dto.DocumentResponse, error) {
	doc, err := s.repo.Document.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		s.log(ctx).Error("查询文档失败", zap.String("document_id", documentID), zap.Error(err))
		return nil, err
	}
	s.attachOwner(ctx, doc)
	return toDocumentResponse(doc), nil
}

// ────────────────────── Submit ──────────────────────

func (s *workflowService) Submit(ctx context.Context, documentID string, req *dto.SubmitDocumentRequest, callerID string) (*dto.DocumentResponse, error) {
	assignments, err := normalizeAssignments(req.Levels)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.approverID)
	}
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(users) != len(ids) {
		return nil, ErrApproverNotFound
	}

	var (
		doc   *model.Document
		votes []model.Approval
	)
	now := s.now()

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		doc, err = s.lockDocument(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if doc.OwnerID != callerID {
			return ErrNotDocumentOwner
		}
		if !doc.Status.Submittable() {
			return ErrDocumentNotSubmittable
		}

		doc.RevisionCycle++
		votes = make([]model.Approval, 0, len(assignments))
		for _, a := range assignments {
			votes = append(votes, model.Approval{
				ApprovalID:    uuid.New().String(),
				DocumentID:    doc.DocumentID,
				ApproverID:    a.approverID,
				Level:         a.level,
				Status:        model.VoteStatusPending,
				RevisionCycle: doc.RevisionCycle,
				RequestedAt:   now,
			})
		}
		if err := tx.Approval.BatchCreate(ctx, votes); err != nil {
			return err
		}

		doc.Status = statusForLevel(activeLevel(votes))
		doc.ApprovalStatus = ComputeAggregate(votes)
		doc.RejectionReason = ""
		doc.Category = nil
		doc.FinalArtifact = nil
		doc.ValidatedBy = nil
		doc.ValidatedAt = nil
		doc.UpdatedBy = &callerID
		return tx.Document.Update(ctx, doc)
	})
	if err != nil {
		return nil, s.wrapTxError("提交审批失败", documentID, err)
	}

	s.log(ctx).Info("文档已提交审批",
		zap.String("document_id", doc.DocumentID),
		zap.Int("revision_cycle", doc.RevisionCycle),
		zap.Int("approvers", len(votes)),
	)

	owner := s.attachOwner(ctx, doc)
	params := docParams(doc)
	params.RequesterName = owner.Name

	if level := activeLevel(votes); level > 0 {
		s.notifyLevel(ctx, doc, approversAt(votes, level), level, params)
	}
	s.notify(ctx, doc.OwnerID, model.NotificationSubmitted, i18n.KeySubmitted, params, doc)
	s.publish(ctx, "submitted", doc, callerID)

	return toDocumentResponse(doc), nil
}

type assignment struct {
	approverID string
	level      int
}

// normalizeAssignments 校验层级分配：层级合法、审批人不重复、至少一人；按层级升序返回
func normalizeAssignments(levels []dto.LevelApprovers) ([]assignment, error) {
	seen := make(map[string]struct{})
	byLevel := make(map[int][]string)
	for _, l := range levels {
		if !model.ValidLevel(l.Level) {
			return nil, ErrInvalidLevel
		}
		for _, id := range l.ApproverIDs {
			if _, dup := seen[id]; dup {
				return nil, ErrDuplicateApprover
			}
			seen[id] = struct{}{}
			byLevel[l.Level] = append(byLevel[l.Level], id)
		}
	}
	if len(seen) == 0 {
		return nil, ErrNoApprovers
	}

	result := make([]assignment, 0, len(seen))
	for _, level := range model.Levels {
		for _, id := range byLevel[level] {
			result = append(result, assignment{approverID: id, level: level})
		}
	}
	return result, nil
}

// ────────────────────── RecordVote ──────────────────────

// voteOutcome 事务内计算出的、提交后需要发出的事件
type voteOutcome struct {
	doc          *model.Document
	vote         *model.Approval
	votes        []model.Approval
	prevActive   int
	newActive    int
	prevAggr     model.ApprovalStatus
	newAggr      model.ApprovalStatus
	justRejected bool
}

func (s *workflowService) RecordVote(ctx context.Context, documentID, approverID string, level int, decision model.VoteStatus, comments string) (resp *dto.VoteResponse, err error) {
	ctx, span := tracing.Start(ctx, "workflow.RecordVote",
		attribute.String("document_id", documentID),
		attribute.Int("level", level),
		attribute.String("decision", string(decision)),
	)
	defer func() { tracing.End(span, err) }()

	if !model.ValidLevel(level) {
		return nil, ErrInvalidLevel
	}
	if decision != model.VoteStatusApproved && decision != model.VoteStatusRejected {
		return nil, ErrInvalidDecision
	}

	var out voteOutcome
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		doc, err := s.lockDocument(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if !doc.Status.AcceptsVotes() {
			return ErrDocumentNotUnderReview
		}

		// 只有本轮被分配的审批人可以投票
		vote, err := tx.Approval.GetForCycle(ctx, doc.DocumentID, approverID, doc.RevisionCycle)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVoteNotFound
			}
			return err
		}
		if vote.Level != level {
			return ErrLevelMismatch
		}

		before, err := tx.Approval.ListByCycle(ctx, doc.DocumentID, doc.RevisionCycle)
		if err != nil {
			return err
		}
		// 层级之间不强制投票顺序，当前层级只决定文档状态与通知对象
		prevActive := activeLevel(before)

		// 重新投票覆盖本轮记录，通过/驳回时间互斥
		now := s.now()
		vote.Status = decision
		vote.Comments = comments
		if decision == model.VoteStatusApproved {
			vote.ApprovedAt, vote.RejectedAt = &now, nil
		} else {
			vote.ApprovedAt, vote.RejectedAt = nil, &now
		}
		if err := tx.Approval.SaveDecision(ctx, vote); err != nil {
			return err
		}

		after, err := tx.Approval.ListByCycle(ctx, doc.DocumentID, doc.RevisionCycle)
		if err != nil {
			return err
		}

		out = voteOutcome{
			doc:        doc,
			vote:       vote,
			votes:      after,
			prevActive: prevActive,
			newActive:  activeLevel(after),
			prevAggr:   doc.ApprovalStatus,
			newAggr:    ComputeAggregate(after),
		}

		switch out.newAggr {
		case model.ApprovalStatusRejected:
			doc.Status = statusAfterRejection(vote.Level)
			doc.RejectionReason = comments
			out.justRejected = true
		case model.ApprovalStatusApproved:
			doc.Status = model.DocumentStatusWaitingValidation
		default:
			doc.Status = statusForLevel(out.newActive)
		}
		doc.ApprovalStatus = out.newAggr
		doc.UpdatedBy = &approverID
		return tx.Document.Update(ctx, doc)
	})
	if err != nil {
		return nil, s.wrapTxError("记录投票失败", documentID, err)
	}

	metrics.WorkflowVotes.WithLabelValues(string(decision)).Inc()
	s.log(ctx).Info("审批投票已记录",
		zap.String("document_id", documentID),
		zap.String("approver_id", approverID),
		zap.Int("level", level),
		zap.String("decision", string(decision)),
		zap.String("status", string(out.doc.Status)),
		zap.String("approval_status", string(out.newAggr)),
	)

	s.emitVoteEvents(ctx, &out, approverID)

	return &dto.VoteResponse{
		DocumentID:     out.doc.DocumentID,
		Status:         string(out.doc.Status),
		ApprovalStatus: string(out.newAggr),
		RevisionCycle:  out.doc.RevisionCycle,
	}, nil
}

// emitVoteEvents 事务提交后按状态变化发出通知与工作流事件
func (s *workflowService) emitVoteEvents(ctx context.Context, out *voteOutcome, approverID string) {
	doc := out.doc
	owner := s.attachOwner(ctx, doc)
	params := docParams(doc)
	params.RequesterName = owner.Name

	switch {
	case out.justRejected:
		params.Reason = out.vote.Comments
		s.notify(ctx, doc.OwnerID, model.NotificationRejected, i18n.KeyRejected, params, doc)
		s.publish(ctx, "rejected", doc, approverID)
		return

	case out.newAggr == model.ApprovalStatusApproved && out.prevAggr != model.ApprovalStatusApproved:
		s.notify(ctx, doc.OwnerID, model.NotificationAwaitingValidation, i18n.KeyAwaitingValidation, params, doc)
		validators, err := s.repo.User.ListByRole(ctx, model.RoleValidator)
		if err != nil {
			s.log(ctx).Warn("查询校验人失败", zap.String("document_id", doc.DocumentID), zap.Error(err))
		}
		for _, v := range validators {
			s.notify(ctx, v.UserID, model.NotificationValidationRequired, i18n.KeyValidationRequired, params, doc)
		}
		s.publish(ctx, "completed", doc, approverID)
		return
	}

	if out.vote.Status == model.VoteStatusApproved {
		signed := params
		signed.Role = roleForLevel(out.vote.Level)
		if signer, err := s.repo.User.GetByID(ctx, approverID); err == nil {
			signed.SignerName = signer.Name
		}
		s.notify(ctx, doc.OwnerID, model.NotificationSigned, i18n.KeySigned, signed, doc)
	}

	if out.newActive != out.prevActive && out.newActive > 0 {
		var pending []string
		for _, v := range out.votes {
			if v.Level == out.newActive && v.Status != model.VoteStatusApproved {
				pending = append(pending, v.ApproverID)
			}
		}
		s.notifyLevel(ctx, doc, pending, out.newActive, params)
	}
	s.publish(ctx, "voted", doc, approverID)
}

// ────────────────────── GetApprovals ──────────────────────

func (s *workflowService) GetApprovals(ctx context.Context, documentID string) ([]dto.ApprovalResponse, error) {
	doc, err := s.repo.Document.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	votes, err := s.repo.Approval.ListByCycle(ctx, doc.DocumentID, doc.RevisionCycle)
	if err != nil {
		s.log(ctx).Error("查询审批记录失败", zap.String("document_id", documentID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ApprovalResponse, 0, len(votes))
	for i := range votes {
		result = append(result, toApprovalResponse(&votes[i]))
	}
	return result, nil
}

// ────────────────────── Validate ──────────────────────

func (s *workflowService) Validate(ctx context.Context, documentID string, req *dto.ValidateDocumentRequest, validatorID string) (*dto.DocumentResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	category := model.DocumentCategory(req.Category)

	switch req.Decision {
	case ValidationReject:
		if reason == "" {
			return nil, ErrRejectionReasonRequired
		}
	case ValidationApprove:
		if !category.Valid() {
			return nil, ErrCategoryRequired
		}
	default:
		return nil, ErrInvalidValidationDecision
	}

	var doc *model.Document
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		doc, err = s.lockDocument(ctx, tx, documentID)
		if err != nil {
			return err
		}
		if doc.Status != model.DocumentStatusWaitingValidation || doc.ApprovalStatus != model.ApprovalStatusApproved {
			return ErrDocumentNotAwaitingValidation
		}

		if req.Decision == ValidationReject {
			doc.Status = model.DocumentStatusDraft
			doc.ApprovalStatus = model.ApprovalStatusRejected
			doc.RejectionReason = reason
			doc.UpdatedBy = &validatorID
			return tx.Document.Update(ctx, doc)
		}

		votes, err := tx.Approval.ListByCycle(ctx, doc.DocumentID, doc.RevisionCycle)
		if err != nil {
			return err
		}
		now := s.now()
		artifact, err := buildArtifact(req.StampID, category, validatorID, now, votes)
		if err != nil {
			return err
		}

		doc.Category = &category
		doc.FinalArtifact = artifact
		doc.ValidatedBy = &validatorID
		doc.ValidatedAt = &now
		doc.RejectionReason = ""
		if category == model.CategoryDistributed {
			doc.Status = model.DocumentStatusDistributed
		} else {
			doc.Status = model.DocumentStatusApproved
		}
		doc.UpdatedBy = &validatorID
		return tx.Document.Update(ctx, doc)
	})
	if err != nil {
		return nil, s.wrapTxError("文档校验失败", documentID, err)
	}

	s.log(ctx).Info("文档校验完成",
		zap.String("document_id", doc.DocumentID),
		zap.String("decision", req.Decision),
		zap.String("status", string(doc.Status)),
	)

	s.attachOwner(ctx, doc)
	params := docParams(doc)

	if req.Decision == ValidationReject {
		params.Reason = reason
		s.notify(ctx, doc.OwnerID, model.NotificationRejected, i18n.KeyRejected, params, doc)
		s.publish(ctx, "rejected", doc, validatorID)
		return toDocumentResponse(doc), nil
	}

	params.Category = string(category)
	s.notify(ctx, doc.OwnerID, model.NotificationFinalized, i18n.KeyFinalized, params, doc)

	if category == model.CategoryDistributed {
		s.distribute(ctx, doc, req.Recipients, params)
	}
	s.publish(ctx, "validated", doc, validatorID)

	return toDocumentResponse(doc), nil
}

// distribute 发布类文档：批量通知接收人并推送到分发主题
func (s *workflowService) distribute(ctx context.Context, doc *model.Document, recipients []string, params i18n.Params) {
	if len(recipients) > 0 && s.notifier != nil {
		req := NewLocalizedRequest("", model.NotificationApproved, i18n.KeyApproved, params, documentLink(doc))
		req.Data = map[string]interface{}{"document_id": doc.DocumentID}
		results := s.notifier.DispatchBulk(ctx, recipients, *req)

		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		s.log(ctx).Info("发布通知已分发",
			zap.String("document_id", doc.DocumentID),
			zap.Int("recipients", len(recipients)),
			zap.Int("failed", failed),
		)
	}

	if s.distributionTopic != "" && s.notifier != nil {
		err := s.notifier.PublishTopic(ctx, s.distributionTopic, i18n.KeyApproved, params, documentLink(doc))
		if err != nil {
			s.log(ctx).Warn("主题推送失败",
				zap.String("document_id", doc.DocumentID),
				zap.String("topic", s.distributionTopic),
				zap.Error(err),
			)
		}
	}
}

// buildArtifact 合成最终归档信息：印章 + 本轮全部通过的签名
func buildArtifact(stampID string, category model.DocumentCategory, validatorID string, at time.Time, votes []model.Approval) (datatypes.JSON, error) {
	if stampID == "" {
		stampID = "STAMP-" + uuid.New().String()
	}

	signatures := make([]model.Signature, 0, len(votes))
	for _, v := range votes {
		if v.Status != model.VoteStatusApproved || v.ApprovedAt == nil {
			continue
		}
		sig := model.Signature{ApproverID: v.ApproverID, Level: v.Level, ApprovedAt: *v.ApprovedAt}
		if v.Approver != nil {
			sig.Name = v.Approver.Name
		}
		signatures = append(signatures, sig)
	}

	raw, err := json.Marshal(model.FinalArtifact{
		StampID:     stampID,
		Category:    category,
		ValidatedBy: validatorID,
		ValidatedAt: at,
		Signatures:  signatures,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// ────────────────────── 内部方法 ──────────────────────

func (s *workflowService) lockDocument(ctx context.Context, tx *repository.Repository, documentID string) (*model.Document, error) {
	doc, err := tx.Document.GetByIDForUpdate(ctx, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// wrapTxError 业务错误原样返回，存储错误记录日志后返回
func (s *workflowService) wrapTxError(msg, documentID string, err error) error {
	if errors.Is(err, pkgerrors.ErrNotFound) || errors.Is(err, pkgerrors.ErrValidation) ||
		errors.Is(err, ErrNotDocumentOwner) || errors.Is(err, ErrDocumentNotSubmittable) ||
		errors.Is(err, ErrDocumentNotUnderReview) || errors.Is(err, ErrDocumentNotAwaitingValidation) {
		return err
	}
	s.logger.Error(msg, zap.String("document_id", documentID), zap.Error(err))
	return err
}

// log 优先使用请求级日志器（带 request_id/trace_id）
func (s *workflowService) log(ctx context.Context) *zap.Logger {
	return applogger.FromContext(ctx, s.logger)
}

// attachOwner 加载文档所有者（用于响应与通知文案）
func (s *workflowService) attachOwner(ctx context.Context, doc *model.Document) *model.User {
	if doc.Owner != nil {
		return doc.Owner
	}
	owner, err := s.repo.User.GetByID(ctx, doc.OwnerID)
	if err != nil {
		s.log(ctx).Warn("查询文档所有者失败", zap.String("owner_id", doc.OwnerID), zap.Error(err))
		return &model.User{UserID: doc.OwnerID}
	}
	doc.Owner = owner
	return owner
}

// notifyLevel 通知某层级的审批人
func (s *workflowService) notifyLevel(ctx context.Context, doc *model.Document, approverIDs []string, level int, params i18n.Params) {
	key, ok := i18n.LevelMessageKey(level)
	if !ok {
		return
	}
	typ := levelNotificationType(level)
	for _, id := range approverIDs {
		s.notify(ctx, id, typ, key, params, doc)
	}
}

// notify 分发失败只记录日志：工作流步骤已经提交
func (s *workflowService) notify(ctx context.Context, userID string, typ model.NotificationType, key i18n.MessageKey, params i18n.Params, doc *model.Document) {
	if s.notifier == nil {
		return
	}
	req := NewLocalizedRequest(userID, typ, key, params, documentLink(doc))
	req.Data = map[string]interface{}{"document_id": doc.DocumentID}
	if _, err := s.notifier.Dispatch(ctx, req); err != nil {
		s.log(ctx).Warn("工作流通知分发失败",
			zap.String("user_id", userID),
			zap.String("document_id", doc.DocumentID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// publish 工作流事件流发布失败只记录日志
func (s *workflowService) publish(ctx context.Context, typ string, doc *model.Document, actorID string) {
	err := s.events.Publish(ctx, eventbus.WorkflowEvent{
		Type:          typ,
		DocumentID:    doc.DocumentID,
		ActorID:       actorID,
		Status:        string(doc.Status),
		Aggregate:     string(doc.ApprovalStatus),
		RevisionCycle: doc.RevisionCycle,
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.log(ctx).Warn("工作流事件发布失败",
			zap.String("document_id", doc.DocumentID),
			zap.String("event", typ),
			zap.Error(err),
		)
	}
}

func levelNotificationType(level int) model.NotificationType {
	switch level {
	case model.LevelApprover:
		return model.NotificationApprovalRequired
	case model.LevelAcknowledger:
		return model.NotificationAckRequired
	default:
		return model.NotificationReviewRequired
	}
}

func roleForLevel(level int) string {
	switch level {
	case model.LevelApprover:
		return model.RoleApprover
	case model.LevelAcknowledger:
		return model.RoleAcknowledger
	default:
		return model.RoleReviewer
	}
}

func documentLink(doc *model.Document) string {
	return "/documents/" + doc.DocumentID
}

func docParams(doc *model.Document) i18n.Params {
	return i18n.Params{DocTitle: doc.Title, DocNumber: doc.Number}
}

// ── 转换 ──

func toDocumentResponse(doc *model.Document) *dto.DocumentResponse {
	resp := &dto.DocumentResponse{
		ID:              doc.DocumentID,
		Number:          doc.Number,
		Title:           doc.Title,
		Owner:           dto.UserBrief{ID: doc.OwnerID},
		DepartmentID:    doc.DepartmentID,
		Status:          string(doc.Status),
		ApprovalStatus:  string(doc.ApprovalStatus),
		RevisionCycle:   doc.RevisionCycle,
		RejectionReason: doc.RejectionReason,
		Version:         doc.Version,
		CreatedAt:       doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       doc.UpdatedAt.Format(time.RFC3339),
	}
	if doc.Owner != nil {
		resp.Owner.Name = doc.Owner.Name
		resp.Owner.Role = doc.Owner.Role
	}
	if doc.Category != nil {
		resp.Category = string(*doc.Category)
	}
	if len(doc.FinalArtifact) > 0 {
		resp.FinalArtifact = json.RawMessage(doc.FinalArtifact)
	}
	if doc.ValidatedBy != nil {
		resp.ValidatedBy = *doc.ValidatedBy
	}
	if doc.ValidatedAt != nil {
		resp.ValidatedAt = doc.ValidatedAt.Format(time.RFC3339)
	}
	return resp
}

func toApprovalResponse(a *model.Approval) dto.ApprovalResponse {
	resp := dto.ApprovalResponse{
		ID:            a.ApprovalID,
		Approver:      dto.UserBrief{ID: a.ApproverID},
		Level:         a.Level,
		Status:        string(a.Status),
		Comments:      a.Comments,
		RevisionCycle: a.RevisionCycle,
		RequestedAt:   a.RequestedAt.Format(time.RFC3339),
	}
	if a.Approver != nil {
		resp.Approver.Name = a.Approver.Name
		resp.Approver.Role = a.Approver.Role
	}
	if a.ApprovedAt != nil {
		resp.ApprovedAt = a.ApprovedAt.Format(time.RFC3339)
	}
	if a.RejectedAt != nil {
		resp.RejectedAt = a.RejectedAt.Format(time.RFC3339)
	}
	return resp
}
