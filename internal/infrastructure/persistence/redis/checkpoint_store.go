package redis

import (
	"context"
	"fmt"
	"time"

	"script-studio-api/internal/domain/entity"
)

// DefaultCheckpointTTL 会话快照默认保留时间
const DefaultCheckpointTTL = 24 * time.Hour

// CheckpointStore 将运行中的会话快照写入 session:<id>
type CheckpointStore struct {
	client *Client
	ttl    time.Duration
}

// NewCheckpointStore 创建快照存储
func NewCheckpointStore(client *Client) *CheckpointStore {
	ttl := client.config.CheckpointTTL
	if ttl <= 0 {
		ttl = DefaultCheckpointTTL
	}
	return &CheckpointStore{client: client, ttl: ttl}
}

// Save 覆盖写入快照并刷新过期时间
func (s *CheckpointStore) Save(ctx context.Context, session *entity.Session) error {
	if err := s.client.setJSON(ctx, SessionKey(session.ID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load 读取快照
func (s *CheckpointStore) Load(ctx context.Context, id string) (*entity.Session, error) {
	var session entity.Session
	found, err := s.client.getJSON(ctx, SessionKey(id), &session)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if !found {
		return nil, nil
	}
	session.Normalize()
	return &session, nil
}

// Delete 删除快照
func (s *CheckpointStore) Delete(ctx context.Context, id string) error {
	return s.client.del(ctx, SessionKey(id))
}
