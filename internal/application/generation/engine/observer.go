package engine

import (
	"context"

	"script-studio-api/internal/domain/entity"
	apperrors "script-studio-api/pkg/errors"
	"script-studio-api/pkg/logger"
)

// MessageEvent 一条新消息及当前进度
type MessageEvent struct {
	Message     *entity.Message
	Progress    int
	CurrentStep string
}

// Observer 引擎的事件出口，调用发生在引擎所在的 goroutine 中
type Observer interface {
	OnMessage(ctx context.Context, ev MessageEvent)
	OnIterationFailed(ctx context.Context, stepID string, index int, err error)
	// OnCheckpoint 每完成一个工作单元后调用，可用于持久化快照
	OnCheckpoint(ctx context.Context, session *entity.Session)
}

// NopObserver 空实现，可嵌入只关心部分事件的观察者
type NopObserver struct{}

func (NopObserver) OnMessage(context.Context, MessageEvent)               {}
func (NopObserver) OnIterationFailed(context.Context, string, int, error) {}
func (NopObserver) OnCheckpoint(context.Context, *entity.Session)         {}

// LogObserver 将事件写入结构化日志
type LogObserver struct{}

func (LogObserver) OnMessage(ctx context.Context, ev MessageEvent) {
	logger.Debug(ctx, "generation message",
		"role", ev.Message.Role,
		"step_label", ev.CurrentStep,
		"chars", ev.Message.Chars,
		"progress", ev.Progress,
	)
}

func (LogObserver) OnIterationFailed(ctx context.Context, stepID string, index int, err error) {
	logger.Warn(ctx, "loop iteration failed, continuing",
		"loop_step", stepID,
		"iteration", index,
		"code", apperrors.CodeOf(err),
		"error", err.Error(),
	)
}

func (LogObserver) OnCheckpoint(context.Context, *entity.Session) {}

// Observers 依次转发给多个观察者
type Observers []Observer

func (o Observers) OnMessage(ctx context.Context, ev MessageEvent) {
	for _, x := range o {
		x.OnMessage(ctx, ev)
	}
}

func (o Observers) OnIterationFailed(ctx context.Context, stepID string, index int, err error) {
	for _, x := range o {
		x.OnIterationFailed(ctx, stepID, index, err)
	}
}

func (o Observers) OnCheckpoint(ctx context.Context, session *entity.Session) {
	for _, x := range o {
		x.OnCheckpoint(ctx, session)
	}
}
