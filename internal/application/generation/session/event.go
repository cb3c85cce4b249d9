// Package session 将模板执行包装为可推送的事件流，并负责超时、检查点与续跑
package session

import (
	"script-studio-api/internal/application/generation/assembler"
	"script-studio-api/internal/domain/entity"
	apperrors "script-studio-api/pkg/errors"
)

// EventType 事件类型
type EventType string

const (
	EventMessage  EventType = "message"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event 推送给客户端的一帧
type Event struct {
	Type        EventType           `json:"type"`
	SessionID   string              `json:"session_id,omitempty"`
	Message     *entity.Message     `json:"message,omitempty"`
	Progress    int                 `json:"progress"`
	CurrentStep string              `json:"current_step,omitempty"`
	Session     *entity.Session     `json:"session,omitempty"`
	Files       []assembler.File    `json:"files,omitempty"`
	Error       string              `json:"error,omitempty"`
	Code        apperrors.ErrorCode `json:"code,omitempty"`
}

// IsTerminal complete 与 error 之后不会再有事件
func (e Event) IsTerminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}
