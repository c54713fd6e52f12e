// Package push 封装移动/网页推送网关（FCM）
package push

import (
	"context"
	"net/url"
	"strings"
)

// Message 推送内容；Link 发送前会改写为绝对地址
type Message struct {
	Title    string
	Body     string
	ImageURL string
	Link     string
	Data     map[string]string
}

// TokenResult 单个 Token 的发送结果
type TokenResult struct {
	Token     string
	Success   bool
	MessageID string
	Err       error
}

// MulticastResult 多 Token 发送结果
type MulticastResult struct {
	SuccessCount int
	FailureCount int
	FailedTokens []string
	Responses    []TokenResult
}

// Gateway 推送网关：单 Token、多 Token、主题三种发送方式
type Gateway interface {
	SendToToken(ctx context.Context, token string, msg *Message) (string, error)
	// SendToTokens 出错时若结果非 nil，其中仍是已送达批次的逐 Token 结果
	SendToTokens(ctx context.Context, tokens []string, msg *Message) (*MulticastResult, error)
	SendToTopic(ctx context.Context, topic string, msg *Message) (string, error)
}

// AbsoluteLink 将站内相对链接改写为 base 下的绝对地址，已是绝对地址时原样返回
func AbsoluteLink(base, link string) string {
	if link == "" {
		return strings.TrimRight(base, "/")
	}
	if u, err := url.Parse(link); err == nil && u.IsAbs() {
		return link
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(link, "/")
}
