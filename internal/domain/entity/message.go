package entity

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 对话中的一轮消息，创建后不再修改
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	StepID    string    `json:"step_id"`
	Chars     int       `json:"chars"`
	Tokens    int       `json:"tokens,omitempty"`
}

// NewMessage 创建消息
func NewMessage(role Role, content, stepID string, at time.Time) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: at,
		StepID:    stepID,
		Chars:     utf8.RuneCountInString(content),
	}
}
