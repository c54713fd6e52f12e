package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docflow/config"
	"docflow/internal/api/handler"
	"docflow/internal/api/middleware"
	"docflow/internal/model"
	"docflow/pkg/jwt"
	"docflow/pkg/redis"
)

const (
	maxBodyBytes    = 1 << 20
	rateLimitWindow = time.Minute
	voteRateLimit   = 60
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Tracing())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── 实时通知（浏览器 WebSocket 通过 query 传 Token） ──
	r.GET("/ws/notifications", middleware.JWTAuth(jwtMgr, rdb, logger, true), h.WebSocket.Serve)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, rdb, logger, false))
	{
		// 文档审批模块
		documents := v1.Group("/documents")
		{
			documents.POST("", h.Document.CreateDocument)
			documents.GET("/:id", h.Document.GetDocument)
			documents.POST("/:id/submit", h.Document.SubmitDocument)
			documents.GET("/:id/approvals", h.Document.ListApprovals)
			documents.POST("/:id/approvals",
				middleware.RateLimit(rdb, voteRateLimit, rateLimitWindow, logger),
				h.Document.Vote,
			)
			documents.GET("/:id/approvals/export", h.Export.ExportApprovals)
			documents.POST("/:id/validate",
				middleware.RoleAuth(model.RoleValidator, model.RoleAdmin),
				h.Document.ValidateDocument,
			)
		}

		// 通知模块
		notifications := v1.Group("/notifications")
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
			notifications.PUT("/:id/read", h.Notification.MarkAsRead)
		}

		// 通知偏好
		preferences := v1.Group("/notification-preferences")
		{
			preferences.GET("/me", h.Notification.GetPreferences)
			preferences.PUT("/me", h.Notification.UpdatePreferences)
		}

		// 推送设备
		pushTokens := v1.Group("/push-tokens")
		{
			pushTokens.GET("", h.Notification.ListPushTokens)
			pushTokens.POST("", h.Notification.RegisterPushToken)
			pushTokens.POST("/test",
				middleware.RateLimit(rdb, 5, rateLimitWindow, logger),
				h.Notification.SendTestPush,
			)
			pushTokens.DELETE("/:token", h.Notification.UnregisterPushToken)
		}
	}

	return r
}
