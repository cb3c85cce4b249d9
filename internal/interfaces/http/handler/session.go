package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/interfaces/http/dto"
)

// SessionStore 读取与删除会话快照
type SessionStore interface {
	Load(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionLister 按客户端列出会话
type SessionLister interface {
	ListByClient(ctx context.Context, clientID string, pagination repository.Pagination) (*repository.PagedResult[*entity.Session], error)
}

// SessionHandler 会话处理器
type SessionHandler struct {
	store  SessionStore
	lister SessionLister
}

// NewSessionHandler 创建会话处理器
func NewSessionHandler(store SessionStore, lister SessionLister) *SessionHandler {
	return &SessionHandler{store: store, lister: lister}
}

// Get 获取会话快照，可直接作为续跑请求的 session 字段
// @Summary 获取会话
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[entity.Session]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	s, err := h.store.Load(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, s)
}

// Files 获取会话的交付文件
// @Summary 获取交付文件
// @Tags Sessions
// @Produce json
// @Param sid path string true "会话 ID"
// @Success 200 {object} dto.Response[dto.SessionFilesResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid}/files [get]
func (h *SessionHandler) Files(c *gin.Context) {
	s, err := h.store.Load(c.Request.Context(), dto.BindSessionID(c))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.NewSessionFilesResponse(s))
}

// Delete 删除会话
// @Summary 删除会话
// @Tags Sessions
// @Param sid path string true "会话 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/sessions/{sid} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.store.Delete(c.Request.Context(), dto.BindSessionID(c)); err != nil {
		dto.AppError(c, err)
		return
	}
	dto.NoContent(c)
}

// List 按客户端分页列出会话
// @Summary 会话列表
// @Tags Sessions
// @Produce json
// @Param client_id query string true "客户端标识，也可通过 X-Client-ID 传递"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} dto.Response[[]dto.SessionSummary]
// @Router /v1/sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	if h.lister == nil {
		dto.ServiceUnavailable(c, "session listing is not configured")
		return
	}
	clientID := dto.ClientID(c)
	if clientID == "" {
		dto.BadRequest(c, "client_id is required")
		return
	}

	result, err := h.lister.ListByClient(c.Request.Context(), clientID, dto.BindPage(c))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToSessionSummaries(result.Items), dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}
