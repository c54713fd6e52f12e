// Package channel 定义通知投递通道。
// 分发器只遍历启动时构建好的 Registry，不在运行时判断通道是否可用。
package channel

import (
	"context"

	"docflow/internal/model"
	"docflow/pkg/push"
)

// Outcome 单个通道的投递结果
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomePartial   Outcome = "partial"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result 通道投递结果；失败只记录，不向分发器返回错误
type Result struct {
	Channel string                `json:"channel"`
	Outcome Outcome               `json:"outcome"`
	Error   string                `json:"error,omitempty"`
	Push    *push.MulticastResult `json:"-"`
}

// Channel 通知投递通道
type Channel interface {
	Name() string
	// Wants 用户偏好是否接收该通道
	Wants(pref model.Preferences) bool
	// Send 投递一条已持久化的通知，自行处理超时，不受调用方取消影响
	Send(ctx context.Context, n *model.Notification) Result
}

// Registry 启动时构建的已配置通道集合
type Registry struct {
	channels []Channel
}

// NewRegistry 创建通道集合，nil 通道（未配置）被忽略
func NewRegistry(channels ...Channel) *Registry {
	r := &Registry{}
	for _, ch := range channels {
		if ch != nil {
			r.channels = append(r.channels, ch)
		}
	}
	return r
}

// For 返回用户偏好需要的通道
func (r *Registry) For(pref model.Preferences) []Channel {
	if r == nil {
		return nil
	}
	var out []Channel
	for _, ch := range r.channels {
		if ch.Wants(pref) {
			out = append(out, ch)
		}
	}
	return out
}

// Names 已配置通道名
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		names = append(names, ch.Name())
	}
	return names
}

func failed(name string, err error) Result {
	return Result{Channel: name, Outcome: OutcomeFailed, Error: err.Error()}
}
