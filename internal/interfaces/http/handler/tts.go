package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/application/generation/tts"
	"script-studio-api/internal/interfaces/http/dto"
)

// TTSHandler 语音切分处理器
type TTSHandler struct {
	limit int
}

// NewTTSHandler 创建语音切分处理器，limit 为片段上限
func NewTTSHandler(limit int) *TTSHandler {
	return &TTSHandler{limit: tts.NewChunker(limit).Limit()}
}

// Chunks 切分脚本文本
// @Summary 语音切分
// @Tags TTS
// @Accept json
// @Produce json
// @Param body body dto.TTSChunkRequest true "文本"
// @Success 200 {object} dto.Response[dto.TTSChunkResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/tts/chunks [post]
func (h *TTSHandler) Chunks(c *gin.Context) {
	var req dto.TTSChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if req.ChunkSize < 0 || req.ChunkSize > h.limit {
		dto.BadRequest(c, fmt.Sprintf("chunk_size must be between 1 and %d", h.limit))
		return
	}

	size := req.ChunkSize
	if size == 0 {
		size = h.limit
	}
	chunker := tts.NewChunker(size)
	chunks := chunker.Split(req.Text)
	if chunks == nil {
		chunks = []string{}
	}
	dto.Success(c, &dto.TTSChunkResponse{
		Chunks: chunks,
		Count:  len(chunks),
		Limit:  chunker.Limit(),
	})
}
