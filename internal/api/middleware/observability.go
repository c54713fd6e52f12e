package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"docflow/pkg/metrics"
	"docflow/pkg/tracing"
)

// Metrics 记录请求耗时；path 使用路由模板，避免 ID 造成标签基数膨胀
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, routePath(c), strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Tracing 为每个请求开启根 Span，下游 Service 的 Span 挂在其下
// 需注册在 RequestID 之后
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.Start(c.Request.Context(), "HTTP "+c.Request.Method+" "+routePath(c),
			attribute.String("http.method", c.Request.Method),
			attribute.String("request_id", c.GetString(requestIDKey)),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, strconv.Itoa(status))
		}
	}
}

func routePath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}
