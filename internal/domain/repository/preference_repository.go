package repository

import (
	"context"

	"script-studio-api/internal/domain/entity"
)

// PreferenceRepository 客户端偏好键值存储
type PreferenceRepository interface {
	// Get 不存在时返回 nil, nil
	Get(ctx context.Context, clientID string) (*entity.Preference, error)
	Put(ctx context.Context, pref *entity.Preference) error
}
