package handler

import (
	"go.uber.org/zap"

	"docflow/config"
	"docflow/internal/service"
	"docflow/pkg/realtime"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Document     *DocumentHandler
	Notification *NotificationHandler
	Export       *ExportHandler
	WebSocket    *WebSocketHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(cfg *config.Config, svc *service.Service, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Document:     NewDocumentHandler(svc.Workflow),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export, cfg.Feature.ApprovalExportEnabled),
		WebSocket:    NewWebSocketHandler(hub, cfg.Server.CORS.AllowOrigins, logger),
	}
}
