package repository

import (
	"context"

	"script-studio-api/internal/domain/entity"
)

// SessionRepository 会话持久化（终态与暂停态）
type SessionRepository interface {
	// Save 按 ID 插入或覆盖
	Save(ctx context.Context, session *entity.Session) error
	// GetByID 不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
	ListByClient(ctx context.Context, clientID string, pagination Pagination) (*PagedResult[*entity.Session], error)
}

// CheckpointStore 运行中会话的短期快照
type CheckpointStore interface {
	Save(ctx context.Context, session *entity.Session) error
	// Load 不存在时返回 nil, nil
	Load(ctx context.Context, id string) (*entity.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionLock 保证同一会话同时只有一个运行
type SessionLock interface {
	// Acquire 获取成功返回释放函数；已被占用时返回 false
	Acquire(ctx context.Context, sessionID string) (release func(), ok bool, err error)
}
