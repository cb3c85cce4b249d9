package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"script-studio-api/internal/config"
	"script-studio-api/internal/domain/entity"
	"script-studio-api/internal/domain/repository"
)

// unreachableClient 指向无服务端口，用于验证降级路径
func unreachableClient() *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewClientWithRedis(rdb, &config.RedisConfig{CheckpointTTL: time.Hour})
}

type stubTemplates struct {
	repository.TemplateRepository
	byID    map[string]*entity.Template
	created []string
}

func (s *stubTemplates) GetByID(_ context.Context, id string) (*entity.Template, error) {
	return s.byID[id], nil
}

func (s *stubTemplates) Create(_ context.Context, tpl *entity.Template) error {
	s.created = append(s.created, tpl.ID)
	return nil
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", SessionKey("abc"))
	assert.Equal(t, "lock:session:abc", SessionLockKey("abc"))
	assert.Equal(t, "pref:c1", PreferenceKey("c1"))
	assert.Equal(t, "template:doc", TemplateKey("doc"))
	assert.Equal(t, "ratelimit:c1:generate", BuildRateLimitKey("c1", "generate"))
}

func TestCachedTemplateRepositoryReadsThroughWhenCacheDown(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	next := &stubTemplates{byID: map[string]*entity.Template{"doc": {ID: "doc", Name: "Doc"}}}
	repo := NewCachedTemplateRepository(next, NewCache(client), time.Minute)

	tpl, err := repo.GetByID(context.Background(), "doc")
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, "Doc", tpl.Name)

	missing, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Create(context.Background(), &entity.Template{ID: "new"}))
	assert.Equal(t, []string{"new"}, next.created)
}

func TestStoresSurfaceConnectionErrors(t *testing.T) {
	client := unreachableClient()
	defer client.Close()
	ctx := context.Background()

	_, err := NewCheckpointStore(client).Load(ctx, "s1")
	assert.Error(t, err)

	_, ok, err := NewSessionLock(client, time.Minute).Acquire(ctx, "s1")
	assert.Error(t, err)
	assert.False(t, ok)

	_, _, err = NewRateLimiter(client).Allow(ctx, BuildRateLimitKey("c1", "generate"), 5, time.Minute)
	assert.Error(t, err)
}

func TestCheckpointStoreTTL(t *testing.T) {
	client := NewClientWithRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), nil)
	defer client.Close()
	assert.Equal(t, DefaultCheckpointTTL, NewCheckpointStore(client).ttl)
}
