package channel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"docflow/internal/model"
	"docflow/pkg/metrics"
	"docflow/pkg/realtime"
	"docflow/pkg/tracing"
)

// RealtimeName 实时通道名
const RealtimeName = "realtime"

// RealtimeChannel 站内实时通道：发布到用户私有频道
type RealtimeChannel struct {
	publisher realtime.Publisher
	timeout   time.Duration
	logger    *zap.Logger
}

// NewRealtimeChannel 创建实时通道
func NewRealtimeChannel(publisher realtime.Publisher, timeout time.Duration, logger *zap.Logger) *RealtimeChannel {
	return &RealtimeChannel{publisher: publisher, timeout: timeout, logger: logger}
}

func (c *RealtimeChannel) Name() string { return RealtimeName }

func (c *RealtimeChannel) Wants(pref model.Preferences) bool { return pref.InApp }

func (c *RealtimeChannel) Send(ctx context.Context, n *model.Notification) Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	ctx, span := tracing.Start(ctx, "channel.realtime.Send",
		attribute.String("user_id", n.UserID),
		attribute.String("notification_id", n.NotificationID),
	)
	err := c.publisher.Publish(ctx, n.UserID, n)
	tracing.End(span, err)

	if err != nil {
		c.logger.Warn("实时通道发布失败",
			zap.String("channel", RealtimeName),
			zap.String("user_id", n.UserID),
			zap.String("notification_id", n.NotificationID),
			zap.Error(err),
		)
		metrics.ChannelDeliveries.WithLabelValues(RealtimeName, string(OutcomeFailed)).Inc()
		return failed(RealtimeName, err)
	}

	metrics.ChannelDeliveries.WithLabelValues(RealtimeName, string(OutcomeDelivered)).Inc()
	return Result{Channel: RealtimeName, Outcome: OutcomeDelivered}
}
