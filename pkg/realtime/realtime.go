// Package realtime 实现站内实时通知通道：
// 每个用户一个私有频道 user-channel:{userId}，事件名固定为 notification。
package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"docflow/pkg/redis"
)

const (
	channelPrefix = "user-channel:"
	// ChannelPattern 订阅全部用户频道的模式
	ChannelPattern = channelPrefix + "*"
	// EventNotification 唯一的事件名
	EventNotification = "notification"
)

// ChannelName 由用户 ID 确定性地生成私有频道名
func ChannelName(userID string) string {
	return channelPrefix + userID
}

// UserIDFromChannel 从频道名解析用户 ID
func UserIDFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, channelPrefix)
	return id, id != ""
}

// Event 推送给客户端的事件信封
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Encode 序列化 notification 事件
func Encode(data interface{}) ([]byte, error) {
	return json.Marshal(Event{Event: EventNotification, Data: data})
}

// Publisher 向用户私有频道发布通知
type Publisher interface {
	Publish(ctx context.Context, userID string, data interface{}) error
}

// ── Redis 发布 ──

type redisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher 通过 Redis PUBLISH 发布，多实例部署时由各实例的 Hub 订阅转发
func NewRedisPublisher(client *redis.Client) Publisher {
	return &redisPublisher{client: client}
}

func (p *redisPublisher) Publish(ctx context.Context, userID string, data interface{}) error {
	payload, err := Encode(data)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, ChannelName(userID), payload)
}

// ── 本地发布 ──

type localPublisher struct {
	hub *Hub
}

// NewLocalPublisher 未配置 Redis 时直接投递到本进程的 Hub
func NewLocalPublisher(hub *Hub) Publisher {
	return &localPublisher{hub: hub}
}

func (p *localPublisher) Publish(ctx context.Context, userID string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := Encode(data)
	if err != nil {
		return err
	}
	p.hub.Deliver(userID, payload)
	return nil
}
