package redis

import (
	"context"
	"fmt"
	"time"

	"script-studio-api/internal/domain/entity"
)

// PreferenceStore 客户端偏好存储，不设过期
type PreferenceStore struct {
	client *Client
}

// NewPreferenceStore 创建偏好存储
func NewPreferenceStore(client *Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

// Get 读取偏好
func (s *PreferenceStore) Get(ctx context.Context, clientID string) (*entity.Preference, error) {
	var pref entity.Preference
	found, err := s.client.getJSON(ctx, PreferenceKey(clientID), &pref)
	if err != nil {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &pref, nil
}

// Put 覆盖写入偏好
func (s *PreferenceStore) Put(ctx context.Context, pref *entity.Preference) error {
	pref.UpdatedAt = time.Now()
	if err := s.client.setJSON(ctx, PreferenceKey(pref.ClientID), pref, 0); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}
