package handler

import (
	"github.com/gin-gonic/gin"

	"docflow/pkg/response"
)

// 认证中间件写入的上下文键
const (
	ctxUserID       = "user_id"
	ctxRole         = "role"
	ctxDepartmentID = "department_id"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxUserID)
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	return mustGetString(c, ctxRole)
}

// GetDepartmentID 提取 department_id，未设置时返回空字符串
func GetDepartmentID(c *gin.Context) string {
	return c.GetString(ctxDepartmentID)
}

func mustGetString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}
