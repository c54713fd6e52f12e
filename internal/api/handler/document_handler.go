package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"docflow/internal/dto"
	"docflow/internal/model"
	"docflow/internal/service"
	pkgerrors "docflow/pkg/errors"
	"docflow/pkg/response"
)

// DocumentHandler 文档审批 HTTP 处理器
type DocumentHandler struct {
	workflowSvc service.WorkflowService
}

// NewDocumentHandler 创建 DocumentHandler
func NewDocumentHandler(workflowSvc service.WorkflowService) *DocumentHandler {
	return &DocumentHandler{workflowSvc: workflowSvc}
}

// CreateDocument 创建文档草稿
// POST /api/v1/documents
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	doc, err := h.workflowSvc.CreateDraft(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.Created(c, doc)
}

// GetDocument 获取文档详情
// GET /api/v1/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	doc, err := h.workflowSvc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, doc)
}

// SubmitDocument 提交或重新提交审批
// POST /api/v1/documents/:id/submit
func (h *DocumentHandler) SubmitDocument(c *gin.Context) {
	var req dto.SubmitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	doc, err := h.workflowSvc.Submit(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, doc)
}

// ListApprovals 当前轮次的审批记录
// GET /api/v1/documents/:id/approvals
func (h *DocumentHandler) ListApprovals(c *gin.Context) {
	approvals, err := h.workflowSvc.GetApprovals(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": approvals})
}

// Vote 审批投票；未指定层级时由调用者角色推导
// POST /api/v1/documents/:id/approvals
func (h *DocumentHandler) Vote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	level := model.LevelForRole(role)
	if req.Level != nil {
		level = *req.Level
	}

	resp, err := h.workflowSvc.RecordVote(c.Request.Context(), c.Param("id"), callerID, level, model.VoteStatus(req.Decision), req.Comments)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, resp)
}

// ValidateDocument 校验归档或驳回（校验人/管理员）
// POST /api/v1/documents/:id/validate
func (h *DocumentHandler) ValidateDocument(c *gin.Context) {
	var req dto.ValidateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	doc, err := h.workflowSvc.Validate(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleDocumentError(c, err)
		return
	}

	response.OK(c, doc)
}

// handleDocumentError 文档模块错误码 20xxx
func (h *DocumentHandler) handleDocumentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound):
		response.NotFound(c, 20001, "文档不存在")
	case errors.Is(err, service.ErrApproverNotFound):
		response.BadRequest(c, 20002, "审批人不存在")
	case errors.Is(err, service.ErrVoteNotFound):
		response.Forbidden(c, 20003, "当前轮次没有您的审批任务")
	case errors.Is(err, service.ErrNotDocumentOwner):
		response.Forbidden(c, 20004, "只有文档所有者可以提交审批")
	case errors.Is(err, service.ErrDocumentNumberExists):
		response.Conflict(c, 20005, "文档编号已存在")
	case errors.Is(err, service.ErrDocumentNotSubmittable):
		response.Conflict(c, 20006, "文档当前状态不允许提交")
	case errors.Is(err, service.ErrDocumentNotUnderReview):
		response.Conflict(c, 20007, "文档当前不在审批中")
	case errors.Is(err, service.ErrDocumentNotAwaitingValidation):
		response.Conflict(c, 20008, "文档未处于待校验状态")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 20009, "文档已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 20010, "参数校验失败", err.Error())
	default:
		response.InternalError(c)
	}
}
