package entity

import "time"

// Preference 客户端偏好（按不透明 client_id 存储）
type Preference struct {
	ClientID       string              `json:"client_id"`
	Provider       string              `json:"provider,omitempty"`
	Model          string              `json:"model,omitempty"`
	APIKeys        map[string][]string `json:"api_keys,omitempty"`
	LastTemplateID string              `json:"last_template_id,omitempty"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// KeysFor 返回某个提供商的密钥列表
func (p *Preference) KeysFor(provider string) []string {
	if p == nil || p.APIKeys == nil {
		return nil
	}
	return p.APIKeys[provider]
}
