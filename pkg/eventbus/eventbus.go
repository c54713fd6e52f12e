// Package eventbus 将工作流状态流转发布到 Kafka，供下游（审计、报表）订阅
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"docflow/config"
)

// WorkflowEvent 工作流事件
type WorkflowEvent struct {
	Type          string    `json:"type"` // submitted | voted | rejected | completed | validated
	DocumentID    string    `json:"document_id"`
	ActorID       string    `json:"actor_id"`
	Status        string    `json:"status"`
	Aggregate     string    `json:"aggregate"`
	RevisionCycle int       `json:"revision_cycle"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event WorkflowEvent) error
	Close() error
}

// ── Kafka ──

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher 创建 Kafka 发布者，按文档 ID 分区保证单文档事件有序
func NewKafkaPublisher(cfg *config.KafkaConfig, logger *zap.Logger) Publisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(msg, args...))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...))
		}),
	}
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event WorkflowEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化工作流事件失败: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.DocumentID),
		Value: payload,
		Time:  event.OccurredAt,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// ── Nop ──

type nopPublisher struct{}

// NewNopPublisher 未启用事件流时使用
func NewNopPublisher() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, WorkflowEvent) error { return nil }
func (nopPublisher) Close() error                                 { return nil }
