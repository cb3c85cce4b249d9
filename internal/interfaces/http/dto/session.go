package dto

import (
	"time"

	"script-studio-api/internal/application/generation/assembler"
	"script-studio-api/internal/domain/entity"
)

// SessionFilesResponse 会话的交付文件
type SessionFilesResponse struct {
	SessionID string           `json:"session_id"`
	Status    string           `json:"status"`
	Files     []assembler.File `json:"files"`
	Topics    []string         `json:"topics,omitempty"`
}

// NewSessionFilesResponse 根据会话组装交付文件
func NewSessionFilesResponse(s *entity.Session) *SessionFilesResponse {
	return &SessionFilesResponse{
		SessionID: s.ID,
		Status:    string(s.Status),
		Files:     assembler.Assemble(s.Responses),
		Topics:    s.GeneratedFiles.Topics,
	}
}

// SessionSummary 会话列表项
type SessionSummary struct {
	ID               string       `json:"id"`
	TemplateID       string       `json:"template_id"`
	Status           string       `json:"status"`
	CurrentStepIndex int          `json:"current_step_index"`
	Stats            entity.Stats `json:"stats"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// ToSessionSummaries 转换会话列表
func ToSessionSummaries(sessions []*entity.Session) []*SessionSummary {
	out := make([]*SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, &SessionSummary{
			ID:               s.ID,
			TemplateID:       s.TemplateID,
			Status:           string(s.Status),
			CurrentStepIndex: s.CurrentStepIndex,
			Stats:            s.Stats,
			CreatedAt:        s.CreatedAt,
			UpdatedAt:        s.UpdatedAt,
		})
	}
	return out
}
