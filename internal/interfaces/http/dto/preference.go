package dto

import (
	"time"

	"script-studio-api/internal/domain/entity"
)

// PreferenceRequest 更新客户端偏好
type PreferenceRequest struct {
	Provider       string              `json:"provider"`
	Model          string              `json:"model"`
	APIKeys        map[string][]string `json:"api_keys"`
	LastTemplateID string              `json:"last_template_id"`
}

// ToEntity 转换为偏好实体
func (r *PreferenceRequest) ToEntity(clientID string) *entity.Preference {
	return &entity.Preference{
		ClientID:       clientID,
		Provider:       r.Provider,
		Model:          r.Model,
		APIKeys:        r.APIKeys,
		LastTemplateID: r.LastTemplateID,
	}
}

// PreferenceResponse 偏好响应，密钥只返回数量
type PreferenceResponse struct {
	ClientID       string         `json:"client_id"`
	Provider       string         `json:"provider,omitempty"`
	Model          string         `json:"model,omitempty"`
	KeyCounts      map[string]int `json:"key_counts,omitempty"`
	LastTemplateID string         `json:"last_template_id,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ToPreferenceResponse 转换偏好响应
func ToPreferenceResponse(p *entity.Preference) *PreferenceResponse {
	resp := &PreferenceResponse{
		ClientID:       p.ClientID,
		Provider:       p.Provider,
		Model:          p.Model,
		LastTemplateID: p.LastTemplateID,
		UpdatedAt:      p.UpdatedAt,
	}
	if len(p.APIKeys) > 0 {
		resp.KeyCounts = make(map[string]int, len(p.APIKeys))
		for provider, keys := range p.APIKeys {
			resp.KeyCounts[provider] = len(keys)
		}
	}
	return resp
}
