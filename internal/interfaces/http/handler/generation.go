package handler

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"

	"script-studio-api/internal/application/generation/jobs"
	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/interfaces/http/dto"
	"script-studio-api/internal/interfaces/http/sse"
	"script-studio-api/pkg/logger"
)

// SessionStarter 开始一次流式运行
type SessionStarter interface {
	Start(ctx context.Context, req session.Request) (*session.Stream, error)
}

// JobEnqueuer 投递后台运行
type JobEnqueuer interface {
	Enqueue(ctx context.Context, req session.Request) (*jobs.Ticket, error)
}

// GenerationHandler 生成处理器
type GenerationHandler struct {
	runner   SessionStarter
	enqueuer JobEnqueuer
}

// NewGenerationHandler 创建生成处理器，enqueuer 为 nil 时后台生成不可用
func NewGenerationHandler(runner SessionStarter, enqueuer JobEnqueuer) *GenerationHandler {
	return &GenerationHandler{runner: runner, enqueuer: enqueuer}
}

func bindGeneration(c *gin.Context) (session.Request, bool) {
	var body dto.GenerationRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return session.Request{}, false
	}
	if !body.HasSource() {
		dto.BadRequest(c, "one of template_id, template, session or session_id is required")
		return session.Request{}, false
	}
	return body.ToRequest(dto.ClientID(c)), true
}

// Stream 开始或续跑一次生成并以 SSE 推送事件
// @Summary 流式生成
// @Description 每帧为 "data: <JSON>\n\n"，以 complete 或 error 事件结束
// @Tags Generations
// @Accept json
// @Produce text/event-stream
// @Param body body dto.GenerationRequest true "生成请求"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "会话正在运行"
// @Router /v1/generations/stream [post]
func (h *GenerationHandler) Stream(c *gin.Context) {
	req, ok := bindGeneration(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	st, err := h.runner.Start(ctx, req)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("X-Session-ID", st.SessionID)

	events := st.Events()
	frames := 0
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			if err := sse.WriteFrame(w, ev); err != nil {
				logger.Warn(ctx, "failed to write event", "session_id", st.SessionID, "error", err.Error())
				return false
			}
			frames++
			return !ev.IsTerminal()
		case <-ctx.Done():
			// 客户端断开，运行器负责暂停并写检查点
			return false
		}
	})
	logger.Debug(ctx, "event stream closed", "session_id", st.SessionID, "frames", frames)
}

// Enqueue 创建会话并投递后台运行
// @Summary 后台生成
// @Tags Generations
// @Accept json
// @Produce json
// @Param body body dto.GenerationRequest true "生成请求"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/generations [post]
func (h *GenerationHandler) Enqueue(c *gin.Context) {
	if h.enqueuer == nil {
		dto.ServiceUnavailable(c, "background generation is not configured")
		return
	}
	req, ok := bindGeneration(c)
	if !ok {
		return
	}

	ticket, err := h.enqueuer.Enqueue(c.Request.Context(), req)
	if err != nil {
		dto.AppError(c, err)
		return
	}
	dto.Accepted(c, &dto.JobResponse{
		JobID:     ticket.JobID,
		SessionID: ticket.SessionID,
		StreamID:  ticket.StreamID,
	})
}
