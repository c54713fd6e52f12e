package service

import (
	"go.uber.org/zap"

	"docflow/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Workflow     WorkflowService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
// 工作流通过 NotificationService 分发通知，workflow.Notifier 由这里注入
func NewService(
	repo *repository.Repository,
	notification NotificationDeps,
	workflow WorkflowDeps,
	logger *zap.Logger,
) *Service {
	notifier := NewNotificationService(repo, notification, logger)
	workflow.Notifier = notifier

	return &Service{
		Workflow:     NewWorkflowService(repo, workflow, logger),
		Notification: notifier,
		Export:       NewExportService(repo, logger),
	}
}
