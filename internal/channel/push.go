package channel

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docflow/internal/model"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/metrics"
	"docflow/pkg/push"
	"docflow/pkg/tracing"
)

// PushName 推送通道名
const PushName = "push"

// TokenStore 推送通道需要的 Token 存取能力
type TokenStore interface {
	ListActiveByUser(ctx context.Context, userID string) ([]model.PushToken, error)
	Deactivate(ctx context.Context, tokens []string) (int64, error)
	Touch(ctx context.Context, tokens []string, at time.Time) error
}

// PushChannel 移动/网页推送通道
type PushChannel struct {
	gateway  push.Gateway
	tokens   TokenStore
	imageURL string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPushChannel 创建推送通道
func NewPushChannel(gateway push.Gateway, tokens TokenStore, imageURL string, timeout time.Duration, logger *zap.Logger) *PushChannel {
	return &PushChannel{
		gateway:  gateway,
		tokens:   tokens,
		imageURL: imageURL,
		timeout:  timeout,
		logger:   logger,
	}
}

func (c *PushChannel) Name() string { return PushName }

func (c *PushChannel) Wants(pref model.Preferences) bool { return pref.Push }

func (c *PushChannel) Send(ctx context.Context, n *model.Notification) Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := tracing.Start(ctx, "channel.push.Send",
		attribute.String("user_id", n.UserID),
		attribute.String("notification_id", n.NotificationID),
	)
	result, err := c.send(ctx, n)
	tracing.End(span, err)

	if err != nil {
		c.logger.Warn("推送通道发送失败",
			zap.String("channel", PushName),
			zap.String("user_id", n.UserID),
			zap.String("notification_id", n.NotificationID),
			zap.Error(err),
		)
		result = failed(PushName, err)
	}
	metrics.ChannelDeliveries.WithLabelValues(PushName, string(result.Outcome)).Inc()
	return result
}

func (c *PushChannel) send(ctx context.Context, n *model.Notification) (Result, error) {
	tokens, err := c.tokens.ListActiveByUser(ctx, n.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("查询推送 Token 失败: %w", err)
	}
	if len(tokens) == 0 {
		return Result{Channel: PushName, Outcome: OutcomeSkipped}, nil
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	mr, sendErr := c.gateway.SendToTokens(ctx, values, &push.Message{
		Title:    n.Title,
		Body:     n.Message,
		ImageURL: c.imageURL,
		Link:     n.Link,
		Data: map[string]string{
			"notificationId": n.NotificationID,
			"type":           string(n.Type),
		},
	})
	if mr == nil {
		return Result{}, sendErr
	}

	// 部分批次失败时，已返回批次中的失效 Token 照常停用
	if len(mr.FailedTokens) > 0 {
		deactivated, err := c.tokens.Deactivate(ctx, mr.FailedTokens)
		if err != nil {
			c.logger.Warn("停用失效推送 Token 失败",
				zap.String("user_id", n.UserID),
				zap.Strings("tokens", mr.FailedTokens),
				zap.Error(err),
			)
		} else {
			metrics.PushTokensDeactivated.Add(float64(deactivated))
			c.logger.Info("已停用失效推送 Token",
				zap.String("user_id", n.UserID),
				zap.Int64("count", deactivated),
			)
		}
	}

	if mr.SuccessCount > 0 {
		succeeded := make([]string, 0, mr.SuccessCount)
		for _, r := range mr.Responses {
			if r.Success {
				succeeded = append(succeeded, r.Token)
			}
		}
		if err := c.tokens.Touch(ctx, succeeded, time.Now()); err != nil {
			c.logger.Debug("更新 Token 使用时间失败", zap.Error(err))
		}
	}

	result := Result{Channel: PushName, Outcome: OutcomeDelivered, Push: mr}
	switch {
	case mr.SuccessCount == 0:
		result.Outcome = OutcomeFailed
		result.Error = "全部推送 Token 发送失败"
	case mr.FailureCount > 0:
		result.Outcome = OutcomePartial
		result.Error = fmt.Sprintf("%v: %d/%d", pkgerrors.ErrPartialDelivery, mr.FailureCount, len(values))
	}
	if sendErr != nil {
		if mr.SuccessCount == 0 {
			result.Outcome = OutcomeFailed
		} else {
			result.Outcome = OutcomePartial
		}
		result.Error = fmt.Sprintf("%v: %v", pkgerrors.ErrPartialDelivery, sendErr)
	}
	return result, nil
}
