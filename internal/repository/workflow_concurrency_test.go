//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"docflow/internal/channel"
	"docflow/internal/dto"
	"docflow/internal/model"
	"docflow/internal/repository"
	"docflow/internal/service"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/eventbus"
)

// countingEvents 统计工作流事件类型，不受通知去重影响
type countingEvents struct {
	mu     sync.Mutex
	counts map[string]int
}

func (e *countingEvents) Publish(_ context.Context, ev eventbus.WorkflowEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.counts[ev.Type]++
	return nil
}

func (e *countingEvents) Close() error { return nil }

func (e *countingEvents) count(typ string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts[typ]
}

// ═══════════════════════════════════════════════════════════
// Test: 同一文档的并发投票串行执行
// ═══════════════════════════════════════════════════════════

func TestRecordVote_ConcurrentVotesSerialized(t *testing.T) {
	const approvers = 8

	owner, doc, cleanup := setupDocument(t)
	defer cleanup()
	ctx := context.Background()

	reviewerIDs := make([]string, 0, approvers)
	for i := 0; i < approvers; i++ {
		u := &model.User{
			Name:  fmt.Sprintf("审核人%d", i),
			Email: fmt.Sprintf("reviewer%d-%d@example.com", i, time.Now().UnixNano()),
			Role:  model.RoleReviewer,
		}
		if err := testDB.WithContext(ctx).Create(u).Error; err != nil {
			t.Fatalf("创建审核人失败: %v", err)
		}
		reviewerIDs = append(reviewerIDs, u.UserID)
	}
	defer func() {
		userIDs := append([]string{owner.UserID}, reviewerIDs...)
		testDB.Where("user_id IN ?", userIDs).Delete(&model.Notification{})
		testDB.Unscoped().Where("user_id IN ?", reviewerIDs).Delete(&model.User{})
	}()

	events := &countingEvents{counts: make(map[string]int)}
	svc := service.NewService(repository.NewRepository(testDB),
		service.NotificationDeps{
			Channels:  channel.NewRegistry(),
			Window:    time.Nanosecond, // 关闭去重，重复通知不会被掩盖
			BatchSize: 10,
			Language:  "zh",
		},
		service.WorkflowDeps{Events: events},
		zap.NewNop(),
	)

	_, err := svc.Workflow.Submit(ctx, doc.DocumentID, &dto.SubmitDocumentRequest{
		Levels: []dto.LevelApprovers{{Level: model.LevelReviewer, ApproverIDs: reviewerIDs}},
	}, owner.UserID)
	if err != nil {
		t.Fatalf("提交审批失败: %v", err)
	}

	errs := make([]error, approvers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, id := range reviewerIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Workflow.RecordVote(ctx, doc.DocumentID, id, model.LevelReviewer, model.VoteStatusApproved, "")
		}()
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) {
			t.Errorf("投票 %d 出现乐观锁冲突，行锁未串行化: %v", i, err)
		} else if err != nil {
			t.Errorf("投票 %d 失败: %v", i, err)
		}
	}

	final, err := svc.Workflow.GetDocument(ctx, doc.DocumentID)
	if err != nil {
		t.Fatalf("查询文档失败: %v", err)
	}
	if final.ApprovalStatus != string(model.ApprovalStatusApproved) {
		t.Errorf("expected aggregate APPROVED, got %s", final.ApprovalStatus)
	}
	if final.Status != string(model.DocumentStatusWaitingValidation) {
		t.Errorf("expected WAITING_VALIDATION, got %s", final.Status)
	}

	var awaiting int64
	testDB.Model(&model.Notification{}).
		Where("user_id = ? AND type = ?", owner.UserID, model.NotificationAwaitingValidation).
		Count(&awaiting)
	if awaiting != 1 {
		t.Errorf("所有者应只收到一条待校验通知，实际 %d 条", awaiting)
	}
	if got := events.count("completed"); got != 1 {
		t.Errorf("completed 事件应只发布一次，实际 %d 次", got)
	}
}
