package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"docflow/internal/service"
	"docflow/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	enabled   bool
}

// NewExportHandler 创建 ExportHandler；enabled 对应 feature.approval_export_enabled
func NewExportHandler(exportSvc service.ExportService, enabled bool) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, enabled: enabled}
}

// ExportApprovals 导出审批台账
// GET /api/v1/documents/:id/approvals/export
func (h *ExportHandler) ExportApprovals(c *gin.Context) {
	if !h.enabled {
		response.Forbidden(c, 20103, "审批台账导出功能未开启")
		return
	}

	documentID := c.Param("id")
	if documentID == "" {
		response.BadRequest(c, 10001, "文档ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportApprovals(c.Request.Context(), documentID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(c, 20001, "文档不存在")
	case errors.Is(err, service.ErrExportNoApprovals):
		response.NotFound(c, 20101, "该文档暂无审批记录")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 20102, "生成 Excel 文件失败")
	default:
		response.InternalError(c)
	}
}
