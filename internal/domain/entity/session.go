// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus 会话状态
type SessionStatus string

const (
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusPaused    SessionStatus = "paused"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusError     SessionStatus = "error"
)

// IsTerminal 是否终态
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusError
}

// Session 一次脚本生成运行的完整状态
type Session struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Template   *Template `json:"template,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Model      string    `json:"model,omitempty"`

	Messages         []*Message    `json:"messages"`
	CurrentStepIndex int           `json:"current_step_index"`
	Status           SessionStatus `json:"status"`

	// Variables 运行中的变量表（用户输入 + 各步骤 output_var）
	Variables map[string]string `json:"variables"`
	// Lists 数组变量（LOOP 迭代的来源）
	Lists map[string][]string `json:"lists,omitempty"`
	// Responses 按 output_var 归档的模型回复，供输出组装使用
	Responses map[string]string `json:"ai_responses"`
	// LoopMarkers 每个 LOOP 步骤已完成的迭代序号（从 1 开始）
	LoopMarkers map[string][]int `json:"loop_markers,omitempty"`
	// LoopOutputs 每个 LOOP 步骤按完成顺序累积的迭代输出
	LoopOutputs map[string][]string `json:"loop_outputs,omitempty"`

	GeneratedFiles GeneratedFiles `json:"generated_files"`
	Stats          Stats          `json:"stats"`
	Error          string         `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession 创建新会话
func NewSession(templateID string, inputs map[string]string) *Session {
	now := time.Now()
	vars := make(map[string]string, len(inputs))
	for k, v := range inputs {
		vars[k] = v
	}
	return &Session{
		ID:         uuid.NewString(),
		TemplateID: templateID,
		Messages:   []*Message{},
		Status:     SessionStatusRunning,
		Variables:  vars,
		Lists:      map[string][]string{},
		Responses:  map[string]string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Normalize 补齐反序列化后可能缺失的集合字段
func (s *Session) Normalize() {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Messages == nil {
		s.Messages = []*Message{}
	}
	if s.Variables == nil {
		s.Variables = map[string]string{}
	}
	if s.Lists == nil {
		s.Lists = map[string][]string{}
	}
	if s.Responses == nil {
		s.Responses = map[string]string{}
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
}

// AppendMessage 追加消息并更新统计
func (s *Session) AppendMessage(m *Message) {
	s.Messages = append(s.Messages, m)
	s.Stats.TotalChars += m.Chars
	switch m.Role {
	case RoleUser:
		s.Stats.UserMessages++
	case RoleAssistant:
		s.Stats.AssistantMessages++
	}
	s.UpdatedAt = m.Timestamp
}

// LastMessages 返回最近 n 条消息
func (s *Session) LastMessages(n int) []*Message {
	if n <= 0 || len(s.Messages) == 0 {
		return nil
	}
	if n > len(s.Messages) {
		n = len(s.Messages)
	}
	return s.Messages[len(s.Messages)-n:]
}

// MarkLoopIteration 记录 LOOP 步骤完成的迭代
func (s *Session) MarkLoopIteration(stepID string, index int) {
	if s.LoopMarkers == nil {
		s.LoopMarkers = map[string][]int{}
	}
	s.LoopMarkers[stepID] = append(s.LoopMarkers[stepID], index)
}

// AppendLoopOutput 记录 LOOP 步骤一次迭代的最终输出，同时汇入主题文件
func (s *Session) AppendLoopOutput(stepID, text string) {
	if s.LoopOutputs == nil {
		s.LoopOutputs = map[string][]string{}
	}
	s.LoopOutputs[stepID] = append(s.LoopOutputs[stepID], text)
	s.GeneratedFiles.AppendTopic(text)
}

// Clone 深拷贝会话，用于快照持久化
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]*Message(nil), s.Messages...)
	c.Variables = cloneStringMap(s.Variables)
	c.Responses = cloneStringMap(s.Responses)
	c.Lists = make(map[string][]string, len(s.Lists))
	for k, v := range s.Lists {
		c.Lists[k] = append([]string(nil), v...)
	}
	if s.LoopMarkers != nil {
		c.LoopMarkers = make(map[string][]int, len(s.LoopMarkers))
		for k, v := range s.LoopMarkers {
			c.LoopMarkers[k] = append([]int(nil), v...)
		}
	}
	if s.LoopOutputs != nil {
		c.LoopOutputs = make(map[string][]string, len(s.LoopOutputs))
		for k, v := range s.LoopOutputs {
			c.LoopOutputs[k] = append([]string(nil), v...)
		}
	}
	c.GeneratedFiles = s.GeneratedFiles.clone()
	return &c
}

// Stats 会话统计
type Stats struct {
	TotalChars        int   `json:"total_chars"`
	UserMessages      int   `json:"user_messages"`
	AssistantMessages int   `json:"assistant_messages"`
	ProviderCalls     int   `json:"provider_calls"`
	FailedIterations  int   `json:"failed_iterations"`
	DurationMs        int64 `json:"duration_ms"`
	// 预留字段，暂不计算
	PromptTokens     int     `json:"prompt_tokens,omitempty"`
	CompletionTokens int     `json:"completion_tokens,omitempty"`
	EstimatedCost    float64 `json:"estimated_cost,omitempty"`
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
