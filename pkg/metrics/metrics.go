// Package metrics 定义服务的 Prometheus 指标，由 /metrics 暴露
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NotificationsDispatched 通知分发结果计数（sent / deduplicated / opted_out / failed）
	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_notifications_dispatched_total",
			Help: "Total number of notification dispatch attempts by outcome",
		},
		[]string{"status"},
	)

	// ChannelDeliveries 各通道投递结果计数
	ChannelDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_channel_deliveries_total",
			Help: "Total number of channel deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// PushTokensDeactivated 因推送失败被停用的 Token 数
	PushTokensDeactivated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docflow_push_tokens_deactivated_total",
			Help: "Total number of push tokens deactivated after a failed send",
		},
	)

	// WorkflowVotes 审批投票计数
	WorkflowVotes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docflow_workflow_votes_total",
			Help: "Total number of recorded approval votes by decision",
		},
		[]string{"decision"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docflow_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
