package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"script-studio-api/pkg/logger"
)

// releaseScript 仅当锁仍由本次持有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionLock 基于 SET NX 的会话运行锁
type SessionLock struct {
	client *Client
	ttl    time.Duration
}

// NewSessionLock 创建会话锁，ttl 应覆盖单次运行的最长时间
func NewSessionLock(client *Client, ttl time.Duration) *SessionLock {
	if ttl <= 0 {
		ttl = 20 * time.Minute
	}
	return &SessionLock{client: client, ttl: ttl}
}

// Acquire 获取锁，已被占用时返回 ok=false
func (l *SessionLock) Acquire(ctx context.Context, sessionID string) (func(), bool, error) {
	ctx, span := tracer.Start(ctx, "redis.SessionLock.Acquire")
	defer span.End()

	key := SessionLockKey(sessionID)
	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client.rdb, []string{key}, token).Err(); err != nil {
			logger.Warn(releaseCtx, "failed to release session lock", "session_id", sessionID, "error", err.Error())
		}
	}
	return release, true, nil
}
