package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"docflow/pkg/realtime"
)

// WebSocketHandler 实时通知连接
type WebSocketHandler struct {
	hub      *realtime.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWebSocketHandler 创建 WebSocketHandler；Origin 白名单与 CORS 配置一致
func NewWebSocketHandler(hub *realtime.Hub, allowOrigins []string, logger *zap.Logger) *WebSocketHandler {
	origins := make(map[string]bool, len(allowOrigins))
	for _, o := range allowOrigins {
		origins[strings.TrimRight(o, "/")] = true
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 非浏览器客户端不带 Origin
				return origin == "" || origins[origin]
			},
		},
		logger: logger,
	}
}

// Serve 升级为 WebSocket 并订阅当前用户的通知频道
// GET /ws/notifications?token=<access token>
func (h *WebSocketHandler) Serve(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已写入错误响应
		h.logger.Warn("WebSocket 升级失败", zap.String("user_id", userID), zap.Error(err))
		return
	}

	h.hub.Serve(ws, userID)
}
