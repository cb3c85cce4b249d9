package redis

import "fmt"

const (
	sessionKeyPrefix  = "session:"
	lockKeyPrefix     = "lock:session:"
	prefKeyPrefix     = "pref:"
	templateKeyPrefix = "template:"
)

// SessionKey 会话快照键
func SessionKey(sessionID string) string { return sessionKeyPrefix + sessionID }

// SessionLockKey 会话运行锁键
func SessionLockKey(sessionID string) string { return lockKeyPrefix + sessionID }

// PreferenceKey 客户端偏好键
func PreferenceKey(clientID string) string { return prefKeyPrefix + clientID }

// TemplateKey 模板缓存键
func TemplateKey(templateID string) string { return templateKeyPrefix + templateID }

// BuildRateLimitKey 构建客户端限流键
func BuildRateLimitKey(clientID, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientID, endpoint)
}
