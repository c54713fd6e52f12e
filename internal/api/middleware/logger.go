package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	applogger "docflow/pkg/logger"
)

// Logger 请求日志中间件（基于 Zap 结构化日志）
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// 请求级日志器随 ctx 传给 service，日志自带 request_id/trace_id
		ctx, reqLogger := applogger.WithRequest(c.Request.Context(), logger, c.GetString(requestIDKey))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", redactToken(query)),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		if statusCode >= 500 {
			reqLogger.Error("请求处理失败", fields...)
		} else if statusCode >= 400 {
			reqLogger.Warn("客户端错误", fields...)
		} else {
			reqLogger.Info("请求完成", fields...)
		}
	}
}

// redactToken WebSocket 连接通过 query 传递 Token，日志中隐藏
func redactToken(query string) string {
	if query == "" {
		return query
	}
	values, err := url.ParseQuery(query)
	if err != nil || !values.Has("token") {
		return query
	}
	values.Set("token", "***")
	return values.Encode()
}
