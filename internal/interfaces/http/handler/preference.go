package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/interfaces/http/dto"
	apperrors "script-studio-api/pkg/errors"
)

// PreferenceHandler 客户端偏好处理器
type PreferenceHandler struct {
	prefs repository.PreferenceRepository
}

// NewPreferenceHandler 创建偏好处理器
func NewPreferenceHandler(prefs repository.PreferenceRepository) *PreferenceHandler {
	return &PreferenceHandler{prefs: prefs}
}

// Get 获取偏好
// @Summary 获取偏好
// @Tags Preferences
// @Produce json
// @Param client_id path string true "客户端标识"
// @Success 200 {object} dto.Response[dto.PreferenceResponse]
// @Failure 404 {object} dto.ErrorResponse
// @Router /v1/preferences/{client_id} [get]
func (h *PreferenceHandler) Get(c *gin.Context) {
	clientID := strings.TrimSpace(c.Param("client_id"))
	pref, err := h.prefs.Get(c.Request.Context(), clientID)
	if err != nil {
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to load preference"))
		return
	}
	if pref == nil {
		dto.NotFound(c, "preference not found")
		return
	}
	dto.Success(c, dto.ToPreferenceResponse(pref))
}

// Put 覆盖偏好
// @Summary 更新偏好
// @Tags Preferences
// @Accept json
// @Produce json
// @Param client_id path string true "客户端标识"
// @Param body body dto.PreferenceRequest true "偏好"
// @Success 200 {object} dto.Response[dto.PreferenceResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/preferences/{client_id} [put]
func (h *PreferenceHandler) Put(c *gin.Context) {
	clientID := strings.TrimSpace(c.Param("client_id"))
	var body dto.PreferenceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	pref := body.ToEntity(clientID)
	if err := h.prefs.Put(c.Request.Context(), pref); err != nil {
		dto.AppError(c, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to save preference"))
		return
	}
	dto.Success(c, dto.ToPreferenceResponse(pref))
}
