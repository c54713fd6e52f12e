package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// conn 单个 WebSocket 连接；写操作只在 writePump 中进行
type conn struct {
	ws     *websocket.Conn
	userID string
	send   chan []byte
}

// Hub 管理本实例上的全部 WebSocket 连接（userID -> 连接集合）
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*conn]struct{}

	logger *zap.Logger
}

// NewHub 创建连接管理器
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]map[*conn]struct{}),
		logger: logger,
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.userID]; !ok {
		h.conns[c.userID] = make(map[*conn]struct{})
	}
	h.conns[c.userID][c] = struct{}{}
	total := len(h.conns[c.userID])
	h.mu.Unlock()

	h.logger.Debug("WebSocket 已连接", zap.String("user_id", c.userID), zap.Int("connections", total))
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if set, ok := h.conns[c.userID]; ok {
		if _, exists := set[c]; exists {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.conns, c.userID)
		}
	}
	h.mu.Unlock()

	h.logger.Debug("WebSocket 已断开", zap.String("user_id", c.userID))
}

// Online 用户在本实例上的活跃连接数
func (h *Hub) Online(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Deliver 将消息投递给用户在本实例上的全部连接；发送缓冲已满的连接直接丢弃本条消息
func (h *Hub) Deliver(userID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns[userID] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("WebSocket 发送缓冲已满，丢弃消息", zap.String("user_id", userID))
		}
	}
}

// Serve 接管一个已升级的连接，阻塞直到连接关闭
func (h *Hub) Serve(ws *websocket.Conn, userID string) {
	c := &conn{ws: ws, userID: userID, send: make(chan []byte, sendBuffer)}
	h.add(c)

	go h.writePump(c)
	h.readPump(c)
}

// readPump 只处理 pong 与关闭；客户端不通过该连接发送业务消息
func (h *Hub) readPump(c *conn) {
	defer func() {
		h.remove(c)
		_ = c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Warn("WebSocket 写入失败", zap.String("user_id", c.userID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Run 订阅 Redis 用户频道并转发到本实例的连接，ctx 取消时退出
func (h *Hub) Run(ctx context.Context, sub *goredis.PubSub) {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, ok := UserIDFromChannel(msg.Channel)
			if !ok {
				continue
			}
			h.Deliver(userID, []byte(msg.Payload))
		}
	}
}
