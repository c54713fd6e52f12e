package push

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"docflow/config"
)

// fcmMulticastLimit FCM 单次多播的 Token 上限
const fcmMulticastLimit = 500

type fcmGateway struct {
	client  *messaging.Client
	baseURL string
	logger  *zap.Logger
}

// NewFCMGateway 使用服务账号凭据初始化 FCM 客户端
func NewFCMGateway(ctx context.Context, cfg *config.NotificationConfig, logger *zap.Logger) (Gateway, error) {
	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: cfg.Push.ProjectID},
		option.WithCredentialsFile(cfg.Push.CredentialsFile),
	)
	if err != nil {
		return nil, fmt.Errorf("初始化 Firebase 失败: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化 FCM 客户端失败: %w", err)
	}

	logger.Info("推送网关初始化成功", zap.String("project_id", cfg.Push.ProjectID))
	return &fcmGateway{client: client, baseURL: cfg.PublicBaseURL, logger: logger}, nil
}

func (g *fcmGateway) SendToToken(ctx context.Context, token string, msg *Message) (string, error) {
	m := g.buildMessage(msg)
	m.Token = token
	return g.client.Send(ctx, m)
}

func (g *fcmGateway) SendToTopic(ctx context.Context, topic string, msg *Message) (string, error) {
	m := g.buildMessage(msg)
	m.Topic = topic
	return g.client.Send(ctx, m)
}

func (g *fcmGateway) SendToTokens(ctx context.Context, tokens []string, msg *Message) (*MulticastResult, error) {
	base := g.buildMessage(msg)

	result, err := sendChunked(ctx, tokens, fcmMulticastLimit, func(ctx context.Context, chunk []string) (*messaging.BatchResponse, error) {
		return g.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       chunk,
			Data:         base.Data,
			Notification: base.Notification,
			Webpush:      base.Webpush,
		})
	})
	if err != nil {
		g.logger.Warn("部分批次多播失败",
			zap.Int("tokens", len(tokens)),
			zap.Int("merged", len(result.Responses)),
			zap.Error(err),
		)
	}
	return result, err
}

// sendChunked 按 limit 分批多播；某批整体失败时继续后续批次
// 返回的 result 始终包含已成功返回批次的逐 Token 结果，err 汇总失败批次
func sendChunked(ctx context.Context, tokens []string, limit int, send func(ctx context.Context, chunk []string) (*messaging.BatchResponse, error)) (*MulticastResult, error) {
	result := &MulticastResult{}
	var errs []error

	for start := 0; start < len(tokens); start += limit {
		end := start + limit
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]

		resp, err := send(ctx, chunk)
		if err != nil {
			errs = append(errs, fmt.Errorf("第 %d-%d 个 Token: %w", start+1, end, err))
			continue
		}
		mergeBatch(result, chunk, resp)
	}

	return result, errors.Join(errs...)
}

func (g *fcmGateway) buildMessage(msg *Message) *messaging.Message {
	link := AbsoluteLink(g.baseURL, msg.Link)

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["link"] = link

	return &messaging.Message{
		Data: data,
		Notification: &messaging.Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			ImageURL: msg.ImageURL,
		},
		Webpush: &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: link},
		},
	}
}

// mergeBatch 将 FCM 批量响应按 Token 顺序合并到结果中
func mergeBatch(result *MulticastResult, tokens []string, resp *messaging.BatchResponse) {
	for i, r := range resp.Responses {
		if i >= len(tokens) {
			break
		}
		tr := TokenResult{Token: tokens[i], Success: r.Success, MessageID: r.MessageID, Err: r.Error}
		result.Responses = append(result.Responses, tr)
		if r.Success {
			result.SuccessCount++
		} else {
			result.FailureCount++
			result.FailedTokens = append(result.FailedTokens, tokens[i])
		}
	}
}
