package dto

import (
	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/domain/entity"
)

// GenerationRequest 开始或续跑一次生成
type GenerationRequest struct {
	TemplateID string            `json:"template_id"`
	Template   *entity.Template  `json:"template"`
	Inputs     map[string]string `json:"inputs"`
	Session    *entity.Session   `json:"session"`
	SessionID  string            `json:"session_id"`
	Provider   string            `json:"provider"`
	Model      string            `json:"model"`
	APIKeys    []string          `json:"api_keys"`
	ClientID   string            `json:"client_id"`
}

// HasSource 至少需要模板或可续跑的会话
func (r *GenerationRequest) HasSource() bool {
	return r.TemplateID != "" || r.Template != nil || r.Session != nil || r.SessionID != ""
}

// ToRequest 转换为运行请求，请求体未带 client_id 时使用请求头中的值
func (r *GenerationRequest) ToRequest(clientID string) session.Request {
	if r.ClientID != "" {
		clientID = r.ClientID
	}
	return session.Request{
		TemplateID: r.TemplateID,
		Template:   r.Template,
		Inputs:     r.Inputs,
		Session:    r.Session,
		SessionID:  r.SessionID,
		Provider:   r.Provider,
		Model:      r.Model,
		APIKeys:    r.APIKeys,
		ClientID:   clientID,
	}
}

// JobResponse 后台生成受理结果
type JobResponse struct {
	JobID     string `json:"job_id"`
	SessionID string `json:"session_id"`
	StreamID  string `json:"stream_id,omitempty"`
}
