package engine

import (
	"strings"

	"script-studio-api/internal/config"
	"script-studio-api/internal/domain/entity"
)

// LoopProgress 推断某个 LOOP 步骤已经完成的迭代（序号从 1 开始）
type LoopProgress interface {
	Completed(session *entity.Session, step *entity.LoopStep) map[int]bool
}

// OutputCountProgress 以该 LOOP 步骤已累积的输出数量推断：前 n 次迭代视为完成。
// 迭代失败且没有输出时推断会偏移，需要精确续跑时使用 MarkerProgress。
type OutputCountProgress struct{}

// Completed 实现 LoopProgress
func (OutputCountProgress) Completed(session *entity.Session, step *entity.LoopStep) map[int]bool {
	n := len(session.LoopOutputs[step.ID])
	done := make(map[int]bool, n)
	for i := 1; i <= n; i++ {
		done[i] = true
	}
	return done
}

// MarkerProgress 读取会话中持久化的逐次完成标记
type MarkerProgress struct{}

// Completed 实现 LoopProgress
func (MarkerProgress) Completed(session *entity.Session, step *entity.LoopStep) map[int]bool {
	marks := session.LoopMarkers[step.ID]
	done := make(map[int]bool, len(marks))
	for _, i := range marks {
		done[i] = true
	}
	return done
}

// LoopProgressFor 根据配置选择策略
func LoopProgressFor(name string) LoopProgress {
	if strings.EqualFold(name, config.LoopResumeMarkers) {
		return MarkerProgress{}
	}
	return OutputCountProgress{}
}
