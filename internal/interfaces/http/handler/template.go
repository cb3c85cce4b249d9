package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/interfaces/http/dto"
)

// TemplateService 模板查询与维护
type TemplateService interface {
	Get(ctx context.Context, id string) (*entity.Template, error)
	List(ctx context.Context, filter repository.TemplateFilter) ([]*entity.Template, error)
	Create(ctx context.Context, tpl *entity.Template) (*entity.Template, error)
	Update(ctx context.Context, id string, tpl *entity.Template) (*entity.Template, error)
	Delete(ctx context.Context, id string) error
}

// TemplateHandler 模板处理器
type TemplateHandler struct {
	templates TemplateService
}

// NewTemplateHandler 创建模板处理器
func NewTemplateHandler(templates TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// List 列出内置与自定义模板
// @Summary 模板列表
// @Tags Templates
// @Produce json
// @Param tag query string false "标签"
// @Param category query string false "分类"
// @Success 200 {object} dto.Response[[]dto.TemplateSummary]
// @Router /v1/templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	tpls, err := h.templates.List(c.Request.Context(), repository.TemplateFilter{
		Tag:      c.Query("tag"),
		Category: c.Query("category"),
	})
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, dto.ToTemplateSummaries(tpls))
}

// Get 获取模板完整定义
// @Summary 获取模板
// @Tags Templates
// @Produce json
// @Param tid path string true "模板 ID"
// @Success 200 {object} dto.Response[entity.TemplateDocument]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/templates/{tid} [get]
func (h *TemplateHandler) Get(c *gin.Context) {
	tpl, err := h.templates.Get(c.Request.Context(), dto.BindTemplateID(c))
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, tpl)
}

// Create 新建自定义模板
// @Summary 创建模板
// @Tags Templates
// @Accept json
// @Produce json
// @Param body body entity.TemplateDocument true "模板"
// @Success 201 {object} dto.Response[entity.TemplateDocument]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var tpl entity.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		dto.BadRequest(c, "invalid template: "+err.Error())
		return
	}
	created, err := h.templates.Create(c.Request.Context(), &tpl)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Created(c, created)
}

// Update 更新自定义模板
// @Summary 更新模板
// @Tags Templates
// @Accept json
// @Produce json
// @Param tid path string true "模板 ID"
// @Param body body entity.TemplateDocument true "模板"
// @Success 200 {object} dto.Response[entity.TemplateDocument]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/templates/{tid} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var tpl entity.Template
	if err := c.ShouldBindJSON(&tpl); err != nil {
		dto.BadRequest(c, "invalid template: "+err.Error())
		return
	}
	updated, err := h.templates.Update(c.Request.Context(), dto.BindTemplateID(c), &tpl)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Success(c, updated)
}

// Delete 删除自定义模板
// @Summary 删除模板
// @Tags Templates
// @Param tid path string true "模板 ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/templates/{tid} [delete]
func (h *TemplateHandler) Delete(c *gin.Context) {
	if err := h.templates.Delete(c.Request.Context(), dto.BindTemplateID(c)); err != nil {
		dto.AppError(c, err)
		return
	}
	dto.NoContent(c)
}
