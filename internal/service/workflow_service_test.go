package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"docflow/internal/channel"
	"docflow/internal/dto"
	"docflow/internal/model"
	pkgerrors "docflow/pkg/errors"
)

// ── 测试辅助 ──

const (
	ownerID     = "u-owner"
	reviewer1   = "u-reviewer-1"
	reviewer2   = "u-reviewer-2"
	approver1   = "u-approver-1"
	ackUser1    = "u-ack-1"
	validator1  = "u-validator-1"
	validator2  = "u-validator-2"
	recipient1  = "u-recipient-1"
	recipient2  = "u-recipient-2"
	distroTopic = "documents-distributed"
)

type workflowFixture struct {
	svc     *Service
	repos   *mockRepos
	clock   *testClock
	events  *recordingEvents
	gateway *stubGateway
}

func setupWorkflow() *workflowFixture {
	repo, repos := newMockRepos()
	clock := newTestClock()
	events := &recordingEvents{}
	gw := &stubGateway{}

	repos.users.add(ownerID, "张三", model.RoleMember)
	repos.users.add(reviewer1, "李审核", model.RoleReviewer)
	repos.users.add(reviewer2, "赵审核", model.RoleReviewer)
	repos.users.add(approver1, "王批准", model.RoleApprover)
	repos.users.add(ackUser1, "钱知悉", model.RoleAcknowledger)
	repos.users.add(validator1, "孙校验", model.RoleValidator)
	repos.users.add(validator2, "周校验", model.RoleValidator)

	rt := &recordingChannel{name: channel.RealtimeName, wants: func(p model.Preferences) bool { return p.InApp }}

	svc := NewService(repo,
		NotificationDeps{
			Channels:  channel.NewRegistry(rt),
			Gateway:   gw,
			Window:    5 * time.Second,
			BatchSize: 50,
			Language:  "zh",
			Now:       clock.Now,
		},
		WorkflowDeps{
			Events:            events,
			DistributionTopic: distroTopic,
			Now:               clock.Now,
		},
		zap.NewNop(),
	)

	return &workflowFixture{svc: svc, repos: repos, clock: clock, events: events, gateway: gw}
}

func (f *workflowFixture) draft(t *testing.T, number string) string {
	t.Helper()
	doc, err := f.svc.Workflow.CreateDraft(context.Background(), &dto.CreateDocumentRequest{Number: number, Title: "质量手册"}, ownerID)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	return doc.ID
}

func levels(pairs ...interface{}) *dto.SubmitDocumentRequest {
	req := &dto.SubmitDocumentRequest{}
	for i := 0; i+1 < len(pairs); i += 2 {
		req.Levels = append(req.Levels, dto.LevelApprovers{
			Level:       pairs[i].(int),
			ApproverIDs: pairs[i+1].([]string),
		})
	}
	return req
}

func threeLevels() *dto.SubmitDocumentRequest {
	return levels(
		model.LevelReviewer, []string{reviewer1},
		model.LevelApprover, []string{approver1},
		model.LevelAcknowledger, []string{ackUser1},
	)
}

func (f *workflowFixture) submitted(t *testing.T, number string, req *dto.SubmitDocumentRequest) string {
	t.Helper()
	id := f.draft(t, number)
	if _, err := f.svc.Workflow.Submit(context.Background(), id, req, ownerID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return id
}

func (f *workflowFixture) vote(t *testing.T, docID, approverID string, level int, decision model.VoteStatus, comments string) *dto.VoteResponse {
	t.Helper()
	f.clock.Advance(time.Second)
	resp, err := f.svc.Workflow.RecordVote(context.Background(), docID, approverID, level, decision, comments)
	if err != nil {
		t.Fatalf("RecordVote(%s): %v", approverID, err)
	}
	return resp
}

// awaitingValidation 三级全部通过，文档进入待校验
func (f *workflowFixture) awaitingValidation(t *testing.T, number string) string {
	t.Helper()
	id := f.submitted(t, number, threeLevels())
	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	f.vote(t, id, approver1, model.LevelApprover, model.VoteStatusApproved, "")
	f.vote(t, id, ackUser1, model.LevelAcknowledger, model.VoteStatusApproved, "")
	return id
}

func (f *workflowFixture) count(userID string, typ model.NotificationType) int {
	return len(f.repos.notifications.forUser(userID, typ))
}

// ── CreateDraft ──

func TestCreateDraft(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()

	doc, err := f.svc.Workflow.CreateDraft(ctx, &dto.CreateDocumentRequest{Number: " QM-001 ", Title: "质量手册"}, ownerID)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if doc.Number != "QM-001" || doc.Status != string(model.DocumentStatusDraft) ||
		doc.ApprovalStatus != string(model.ApprovalStatusPending) || doc.RevisionCycle != 0 {
		t.Errorf("unexpected draft: %+v", doc)
	}
	if doc.Owner.Name != "张三" {
		t.Errorf("owner name not loaded: %+v", doc.Owner)
	}

	_, err = f.svc.Workflow.CreateDraft(ctx, &dto.CreateDocumentRequest{Number: "QM-001", Title: "重复"}, ownerID)
	if !errors.Is(err, ErrDocumentNumberExists) {
		t.Errorf("expected ErrDocumentNumberExists, got %v", err)
	}

	if _, err := f.svc.Workflow.GetDocument(ctx, "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

// ── 三级审批完整流程 ──

func TestWorkflow_ThreeLevelApproval(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()

	id := f.draft(t, "QM-001")
	doc, err := f.svc.Workflow.Submit(ctx, id, threeLevels(), ownerID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if doc.Status != string(model.DocumentStatusOnReview) || doc.ApprovalStatus != string(model.ApprovalStatusPending) || doc.RevisionCycle != 1 {
		t.Fatalf("unexpected submit result: %+v", doc)
	}
	if f.count(reviewer1, model.NotificationReviewRequired) != 1 {
		t.Error("审核人应收到待审核通知")
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 0 {
		t.Error("批准人在审核完成前不应收到通知")
	}
	if f.count(ownerID, model.NotificationSubmitted) != 1 {
		t.Error("所有者应收到已提交通知")
	}

	steps := []struct {
		approver   string
		level      int
		wantAggr   model.ApprovalStatus
		wantStatus model.DocumentStatus
		notified   string
		notifyType model.NotificationType
	}{
		{reviewer1, model.LevelReviewer, model.ApprovalStatusInProgress, model.DocumentStatusOnApproval, approver1, model.NotificationApprovalRequired},
		{approver1, model.LevelApprover, model.ApprovalStatusInProgress, model.DocumentStatusPendingAck, ackUser1, model.NotificationAckRequired},
		{ackUser1, model.LevelAcknowledger, model.ApprovalStatusApproved, model.DocumentStatusWaitingValidation, validator1, model.NotificationValidationRequired},
	}
	for _, step := range steps {
		resp := f.vote(t, id, step.approver, step.level, model.VoteStatusApproved, "同意")
		if resp.ApprovalStatus != string(step.wantAggr) || resp.Status != string(step.wantStatus) {
			t.Fatalf("after %s: got %s/%s, want %s/%s", step.approver, resp.ApprovalStatus, resp.Status, step.wantAggr, step.wantStatus)
		}
		if f.count(step.notified, step.notifyType) != 1 {
			t.Errorf("after %s: %s should receive %s", step.approver, step.notified, step.notifyType)
		}
	}

	if f.count(ownerID, model.NotificationAwaitingValidation) != 1 {
		t.Errorf("待校验通知应恰好一条，实际 %d", f.count(ownerID, model.NotificationAwaitingValidation))
	}
	if f.count(validator2, model.NotificationValidationRequired) != 1 {
		t.Error("所有校验人都应收到通知")
	}

	// 全部通过后不再接受投票，也不会重复发送待校验通知
	_, err = f.svc.Workflow.RecordVote(ctx, id, ackUser1, model.LevelAcknowledger, model.VoteStatusApproved, "")
	if !errors.Is(err, ErrDocumentNotUnderReview) {
		t.Errorf("expected ErrDocumentNotUnderReview, got %v", err)
	}
	if f.count(ownerID, model.NotificationAwaitingValidation) != 1 {
		t.Error("待校验通知不应重复")
	}

	want := []string{"submitted", "voted", "voted", "completed"}
	if got := f.events.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestWorkflow_LevelWaitsForAllApprovers(t *testing.T) {
	f := setupWorkflow()
	id := f.submitted(t, "QM-002", levels(
		model.LevelReviewer, []string{reviewer1, reviewer2},
		model.LevelApprover, []string{approver1},
	))

	resp := f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	if resp.Status != string(model.DocumentStatusOnReview) || resp.ApprovalStatus != string(model.ApprovalStatusInProgress) {
		t.Errorf("同级未全部通过时应停留在审核: %+v", resp)
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 0 {
		t.Error("审核未完成时不应通知批准人")
	}

	resp = f.vote(t, id, reviewer2, model.LevelReviewer, model.VoteStatusApproved, "")
	if resp.Status != string(model.DocumentStatusOnApproval) {
		t.Errorf("expected ON_APPROVAL, got %s", resp.Status)
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 1 {
		t.Error("审核完成后应通知批准人")
	}
}

func TestWorkflow_SkipsEmptyLevels(t *testing.T) {
	f := setupWorkflow()
	id := f.draft(t, "QM-003")

	doc, err := f.svc.Workflow.Submit(context.Background(), id, levels(model.LevelApprover, []string{approver1}), ownerID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if doc.Status != string(model.DocumentStatusOnApproval) {
		t.Errorf("没有审核人时应直接进入批准，实际 %s", doc.Status)
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 1 {
		t.Error("批准人应立即收到通知")
	}
}

// ── Submit 校验 ──

func TestSubmit_Rejections(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.draft(t, "QM-010")

	tests := []struct {
		name    string
		docID   string
		req     *dto.SubmitDocumentRequest
		caller  string
		wantErr error
	}{
		{"没有审批人", id, levels(model.LevelReviewer, []string{}), ownerID, ErrNoApprovers},
		{"层级无效", id, levels(4, []string{reviewer1}), ownerID, ErrInvalidLevel},
		{"审批人重复", id, levels(model.LevelReviewer, []string{reviewer1}, model.LevelApprover, []string{reviewer1}), ownerID, ErrDuplicateApprover},
		{"审批人不存在", id, levels(model.LevelReviewer, []string{"u-ghost"}), ownerID, ErrApproverNotFound},
		{"非所有者", id, threeLevels(), reviewer1, ErrNotDocumentOwner},
		{"文档不存在", "missing", threeLevels(), ownerID, ErrDocumentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Workflow.Submit(ctx, tt.docID, tt.req, tt.caller)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if doc := f.repos.documents.get(id); doc.Status != model.DocumentStatusDraft || doc.RevisionCycle != 0 {
		t.Errorf("失败的提交不应修改文档: %+v", doc)
	}

	// 审批中的文档不能再次提交
	if _, err := f.svc.Workflow.Submit(ctx, id, threeLevels(), ownerID); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if _, err := f.svc.Workflow.Submit(ctx, id, threeLevels(), ownerID); !errors.Is(err, ErrDocumentNotSubmittable) {
		t.Errorf("expected ErrDocumentNotSubmittable, got %v", err)
	}
}

// ── RecordVote 信任边界 ──

func TestRecordVote_Rejections(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.submitted(t, "QM-020", threeLevels())

	tests := []struct {
		name     string
		approver string
		level    int
		decision model.VoteStatus
		wantErr  error
	}{
		{"未分配的审批人", validator1, model.LevelReviewer, model.VoteStatusApproved, ErrVoteNotFound},
		{"层级与分配不一致", reviewer1, model.LevelApprover, model.VoteStatusApproved, ErrLevelMismatch},
		{"结论无效", reviewer1, model.LevelReviewer, model.VoteStatusPending, ErrInvalidDecision},
		{"层级无效", reviewer1, 0, model.VoteStatusApproved, ErrInvalidLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Workflow.RecordVote(ctx, id, tt.approver, tt.level, tt.decision, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	// 未分配的审批人属于 NotFound 分类
	_, err := f.svc.Workflow.RecordVote(ctx, id, validator1, model.LevelReviewer, model.VoteStatusApproved, "")
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Errorf("expected NotFound category, got %v", err)
	}

	approvals, _ := f.svc.Workflow.GetApprovals(ctx, id)
	for _, a := range approvals {
		if a.Status != string(model.VoteStatusPending) {
			t.Errorf("被拒绝的投票不应写入: %+v", a)
		}
	}
	if doc := f.repos.documents.get(id); doc.ApprovalStatus != model.ApprovalStatusPending {
		t.Errorf("聚合状态不应变化: %s", doc.ApprovalStatus)
	}
}

func TestRecordVote_OutOfOrderLevelAccepted(t *testing.T) {
	f := setupWorkflow()
	id := f.submitted(t, "QM-021", threeLevels())

	// 批准人先于审核人投票：记录并聚合，文档仍停留在审核阶段
	resp := f.vote(t, id, approver1, model.LevelApprover, model.VoteStatusApproved, "")
	if resp.ApprovalStatus != string(model.ApprovalStatusInProgress) || resp.Status != string(model.DocumentStatusOnReview) {
		t.Fatalf("unexpected result: %+v", resp)
	}

	// 审核通过后直接进入知悉层级，已投票的批准人不再被通知
	resp = f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	if resp.Status != string(model.DocumentStatusPendingAck) {
		t.Errorf("expected PENDING_ACK, got %s", resp.Status)
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 0 {
		t.Error("已投票的批准人不应再收到待批准通知")
	}
	if f.count(ackUser1, model.NotificationAckRequired) != 1 {
		t.Error("知悉人应收到通知")
	}
}

// ── 驳回 ──

func TestRecordVote_ReviewerRejectionReturnsForRevision(t *testing.T) {
	f := setupWorkflow()
	id := f.submitted(t, "QM-030", threeLevels())

	resp := f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusRejected, "格式不符合模板")
	if resp.Status != string(model.DocumentStatusRevisionByReviewer) || resp.ApprovalStatus != string(model.ApprovalStatusRejected) {
		t.Fatalf("unexpected result: %+v", resp)
	}

	doc := f.repos.documents.get(id)
	if doc.RejectionReason != "格式不符合模板" {
		t.Errorf("rejection reason = %q", doc.RejectionReason)
	}

	rejected := f.repos.notifications.forUser(ownerID, model.NotificationRejected)
	if len(rejected) != 1 || !strings.Contains(rejected[0].Message, "格式不符合模板") {
		t.Errorf("所有者应收到包含原因的驳回通知: %+v", rejected)
	}
	if f.count(approver1, model.NotificationApprovalRequired) != 0 {
		t.Error("驳回后不应通知下一层级")
	}
	if types := f.events.types(); types[len(types)-1] != "rejected" {
		t.Errorf("last event = %s, want rejected", types[len(types)-1])
	}
}

func TestRecordVote_ApproverRejectionRejectsDocument(t *testing.T) {
	f := setupWorkflow()
	id := f.submitted(t, "QM-031", threeLevels())

	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	resp := f.vote(t, id, approver1, model.LevelApprover, model.VoteStatusRejected, "预算不足")

	if resp.Status != string(model.DocumentStatusRejected) || resp.ApprovalStatus != string(model.ApprovalStatusRejected) {
		t.Errorf("unexpected result: %+v", resp)
	}
	if f.count(ackUser1, model.NotificationAckRequired) != 0 {
		t.Error("驳回后不应通知知悉人")
	}

	// 驳回后文档不再接受投票
	_, err := f.svc.Workflow.RecordVote(context.Background(), id, ackUser1, model.LevelAcknowledger, model.VoteStatusApproved, "")
	if !errors.Is(err, ErrDocumentNotUnderReview) {
		t.Errorf("expected ErrDocumentNotUnderReview, got %v", err)
	}
}

func TestRecordVote_RevoteOverwrites(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.submitted(t, "QM-032", levels(model.LevelReviewer, []string{reviewer1, reviewer2}))

	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "初审通过")
	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusRejected, "发现遗漏")

	approvals, err := f.svc.Workflow.GetApprovals(ctx, id)
	if err != nil {
		t.Fatalf("GetApprovals: %v", err)
	}
	if len(approvals) != 2 {
		t.Fatalf("重新投票不应新增记录，实际 %d 条", len(approvals))
	}
	var mine dto.ApprovalResponse
	for _, a := range approvals {
		if a.Approver.ID == reviewer1 {
			mine = a
		}
	}
	if mine.Status != string(model.VoteStatusRejected) || mine.Comments != "发现遗漏" {
		t.Errorf("投票应被覆盖: %+v", mine)
	}
	if mine.ApprovedAt != "" || mine.RejectedAt == "" {
		t.Errorf("通过与驳回时间应互斥: %+v", mine)
	}
}

// ── 重新提交 ──

func TestSubmit_ResubmitStartsNewCycle(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.submitted(t, "QM-040", threeLevels())
	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusRejected, "请补充附录")

	f.clock.Advance(time.Minute)
	doc, err := f.svc.Workflow.Submit(ctx, id, threeLevels(), ownerID)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if doc.RevisionCycle != 2 || doc.Status != string(model.DocumentStatusOnReview) ||
		doc.ApprovalStatus != string(model.ApprovalStatusPending) || doc.RejectionReason != "" {
		t.Errorf("unexpected resubmit result: %+v", doc)
	}

	approvals, _ := f.svc.Workflow.GetApprovals(ctx, id)
	if len(approvals) != 3 {
		t.Fatalf("expected 3 approvals in new cycle, got %d", len(approvals))
	}
	for _, a := range approvals {
		if a.RevisionCycle != 2 || a.Status != string(model.VoteStatusPending) {
			t.Errorf("新轮次投票应为待处理: %+v", a)
		}
	}

	history, _ := f.repos.approvals.ListAll(ctx, id)
	if len(history) != 6 {
		t.Errorf("历史轮次应保留，expected 6 rows, got %d", len(history))
	}

	// 新轮次的投票不受上一轮驳回影响
	resp := f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	if resp.ApprovalStatus != string(model.ApprovalStatusInProgress) {
		t.Errorf("expected IN_PROGRESS, got %s", resp.ApprovalStatus)
	}
}

func TestRecordVote_PreviousCycleApproverRejected(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.submitted(t, "QM-041", threeLevels())
	f.vote(t, id, reviewer1, model.LevelReviewer, model.VoteStatusRejected, "格式不对")

	// 新一轮换了审核人，上一轮的审核人不再有投票权
	f.clock.Advance(time.Minute)
	req := levels(
		model.LevelReviewer, []string{reviewer2},
		model.LevelApprover, []string{approver1},
	)
	if _, err := f.svc.Workflow.Submit(ctx, id, req, ownerID); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	_, err := f.svc.Workflow.RecordVote(ctx, id, reviewer1, model.LevelReviewer, model.VoteStatusApproved, "")
	if !errors.Is(err, ErrVoteNotFound) {
		t.Errorf("expected ErrVoteNotFound, got %v", err)
	}
}

// ── Validate ──

func TestValidate_InputErrorsKeepState(t *testing.T) {
	f := setupWorkflow()
	ctx := context.Background()
	id := f.awaitingValidation(t, "QM-050")

	tests := []struct {
		name    string
		req     *dto.ValidateDocumentRequest
		wantErr error
	}{
		{"驳回缺少原因", &dto.ValidateDocumentRequest{Decision: ValidationReject, Reason: "   "}, ErrRejectionReasonRequired},
		{"通过缺少类别", &dto.ValidateDocumentRequest{Decision: ValidationApprove}, ErrCategoryRequired},
		{"结论无效", &dto.ValidateDocumentRequest{Decision: "MAYBE"}, ErrInvalidValidationDecision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Workflow.Validate(ctx, id, tt.req, validator1); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	doc := f.repos.documents.get(id)
	if doc.Status != model.DocumentStatusWaitingValidation || doc.ApprovalStatus != model.ApprovalStatusApproved {
		t.Errorf("校验失败不应改变状态: %s/%s", doc.Status, doc.ApprovalStatus)
	}
}

func TestValidate_NotAwaiting(t *testing.T) {
	f := setupWorkflow()
	id := f.submitted(t, "QM-051", threeLevels())

	_, err := f.svc.Workflow.Validate(context.Background(), id,
		&dto.ValidateDocumentRequest{Decision: ValidationApprove, Category: string(model.CategoryManagement)}, validator1)
	if !errors.Is(err, ErrDocumentNotAwaitingValidation) {
		t.Errorf("expected ErrDocumentNotAwaitingValidation, got %v", err)
	}
}

func TestValidate_RejectReturnsToDraft(t *testing.T) {
	f := setupWorkflow()
	id := f.awaitingValidation(t, "QM-052")
	f.clock.Advance(time.Minute)

	doc, err := f.svc.Workflow.Validate(context.Background(), id,
		&dto.ValidateDocumentRequest{Decision: ValidationReject, Reason: "缺少签章页"}, validator1)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if doc.Status != string(model.DocumentStatusDraft) || doc.ApprovalStatus != string(model.ApprovalStatusRejected) || doc.RejectionReason != "缺少签章页" {
		t.Errorf("unexpected result: %+v", doc)
	}

	rejected := f.repos.notifications.forUser(ownerID, model.NotificationRejected)
	if len(rejected) != 1 || !strings.Contains(rejected[0].Message, "缺少签章页") {
		t.Errorf("所有者应收到校验驳回通知: %+v", rejected)
	}

	// 校验驳回后可以重新提交
	if _, err := f.svc.Workflow.Submit(context.Background(), id, threeLevels(), ownerID); err != nil {
		t.Errorf("resubmit after validation rejection: %v", err)
	}
}

func TestValidate_ManagementBuildsArtifact(t *testing.T) {
	f := setupWorkflow()
	id := f.awaitingValidation(t, "QM-053")

	doc, err := f.svc.Workflow.Validate(context.Background(), id,
		&dto.ValidateDocumentRequest{Decision: ValidationApprove, Category: string(model.CategoryManagement)}, validator1)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if doc.Status != string(model.DocumentStatusApproved) || doc.Category != string(model.CategoryManagement) || doc.ValidatedBy != validator1 {
		t.Errorf("unexpected result: %+v", doc)
	}

	var artifact model.FinalArtifact
	if err := json.Unmarshal(f.repos.documents.get(id).FinalArtifact, &artifact); err != nil {
		t.Fatalf("artifact: %v", err)
	}
	if !strings.HasPrefix(artifact.StampID, "STAMP-") {
		t.Errorf("未指定印章时应生成默认印章: %q", artifact.StampID)
	}
	if len(artifact.Signatures) != 3 {
		t.Errorf("expected 3 signatures, got %d", len(artifact.Signatures))
	}

	if f.count(ownerID, model.NotificationFinalized) != 1 {
		t.Error("所有者应收到归档通知")
	}
	if len(f.gateway.topics) != 0 {
		t.Error("管理类文档不应推送到分发主题")
	}
	if types := f.events.types(); types[len(types)-1] != "validated" {
		t.Errorf("last event = %s, want validated", types[len(types)-1])
	}
}

func TestValidate_DistributedNotifiesRecipients(t *testing.T) {
	f := setupWorkflow()
	id := f.awaitingValidation(t, "QM-054")

	doc, err := f.svc.Workflow.Validate(context.Background(), id, &dto.ValidateDocumentRequest{
		Decision:   ValidationApprove,
		Category:   string(model.CategoryDistributed),
		StampID:    "ORG-STAMP-01",
		Recipients: []string{recipient1, recipient2},
	}, validator1)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if doc.Status != string(model.DocumentStatusDistributed) {
		t.Errorf("expected DISTRIBUTED, got %s", doc.Status)
	}

	for _, r := range []string{recipient1, recipient2} {
		if f.count(r, model.NotificationApproved) != 1 {
			t.Errorf("%s 应收到发布通知", r)
		}
	}
	if len(f.gateway.topics) != 1 || f.gateway.topics[0] != distroTopic {
		t.Errorf("应推送到分发主题: %v", f.gateway.topics)
	}

	var artifact model.FinalArtifact
	_ = json.Unmarshal(f.repos.documents.get(id).FinalArtifact, &artifact)
	if artifact.StampID != "ORG-STAMP-01" || artifact.Category != model.CategoryDistributed {
		t.Errorf("unexpected artifact: %+v", artifact)
	}
}

// ── 通知与事件失败不影响工作流 ──

func TestWorkflow_NotificationFailureIsNotFatal(t *testing.T) {
	f := setupWorkflow()
	f.repos.notifications.createErr = errStorage
	f.events.err = errors.New("broker down")

	id := f.awaitingValidation(t, "QM-060")

	doc := f.repos.documents.get(id)
	if doc.Status != model.DocumentStatusWaitingValidation || doc.ApprovalStatus != model.ApprovalStatusApproved {
		t.Errorf("通知失败不应影响状态流转: %s/%s", doc.Status, doc.ApprovalStatus)
	}
	if f.repos.notifications.count() != 0 {
		t.Error("no notifications should be stored")
	}
	if len(f.events.types()) != 4 {
		t.Errorf("事件仍应尝试发布，实际 %v", f.events.types())
	}
}

func TestWorkflow_ApprovalOptOutSkipsApprover(t *testing.T) {
	f := setupWorkflow()
	_ = f.repos.prefs.Upsert(context.Background(), &model.NotificationPreference{
		UserID: reviewer1, NotifyInApp: true, NotifyApproval: false,
	})

	id := f.submitted(t, "QM-061", threeLevels())
	if f.count(reviewer1, model.NotificationReviewRequired) != 0 {
		t.Error("关闭审批通知的用户不应收到通知")
	}
	if doc := f.repos.documents.get(id); doc.Status != model.DocumentStatusOnReview {
		t.Errorf("unexpected status %s", doc.Status)
	}
}
