// Package wire 提供依赖注入配置
package wire

import (
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"

	"script-studio-api/internal/application/generation/engine"
	"script-studio-api/internal/application/generation/jobs"
	"script-studio-api/internal/application/generation/rotation"
	"script-studio-api/internal/application/generation/session"
	"script-studio-api/internal/application/generation/topics"
	"script-studio-api/internal/application/templates"
	"script-studio-api/internal/config"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/infrastructure/llm"
	"script-studio-api/internal/infrastructure/messaging"
	"script-studio-api/internal/infrastructure/persistence/postgres"
	"script-studio-api/internal/infrastructure/persistence/redis"
	"script-studio-api/internal/interfaces/http/handler"
	"script-studio-api/internal/interfaces/http/middleware"
	"script-studio-api/internal/interfaces/http/router"
)

// Worker 后台任务进程依赖
type Worker struct {
	Consumer *messaging.Consumer
	Jobs     *jobs.Worker
}

// Bootstrap 初始化进程依赖：建表并校验内置模板
type Bootstrap struct {
	PgClient     *postgres.Client
	TxManager    repository.Transactor
	TemplateRepo *postgres.TemplateRepository
	Catalog      *templates.Catalog
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTemplateRepository,
	postgres.NewSessionRepository,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
	redis.NewCheckpointStore,
	redis.NewPreferenceStore,
	ProvideSessionLock,
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(repository.PreferenceRepository), new(*redis.PreferenceStore)),
)

// GenerationSet 模板、引擎与会话运行器
var GenerationSet = wire.NewSet(
	templates.LoadBuiltin,
	ProvideTemplateRepository,
	templates.NewService,
	llm.NewRegistry,
	ProvideEngine,
	ProvideStores,
	ProvideRunner,
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	jobs.NewEnqueuer,
	wire.Bind(new(jobs.SessionRunner), new(*session.Runner)),
	wire.Bind(new(jobs.Publisher), new(*messaging.Producer)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewGenerationHandler,
	handler.NewSessionHandler,
	handler.NewTemplateHandler,
	handler.NewPreferenceHandler,
	ProvideTTSHandler,
	ProvideRateLimitMiddleware,
	wire.Bind(new(handler.SessionStarter), new(*session.Runner)),
	wire.Bind(new(handler.JobEnqueuer), new(*jobs.Enqueuer)),
	wire.Bind(new(handler.SessionStore), new(*session.Runner)),
	wire.Bind(new(handler.SessionLister), new(*postgres.SessionRepository)),
	wire.Bind(new(handler.TemplateService), new(*templates.Service)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)

// WorkerSet 后台任务提供者集合
var WorkerSet = wire.NewSet(
	ProvideConsumer,
	jobs.NewWorker,
	wire.Bind(new(jobs.SessionRunner), new(*session.Runner)),
	wire.Struct(new(Worker), "*"),
)

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres, cfg.Observability.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSessionLock 锁的有效期略长于单次运行上限
func ProvideSessionLock(client *redis.Client, cfg *config.Config) *redis.SessionLock {
	ttl := cfg.Generation.SessionTimeout
	if ttl > 0 {
		ttl += 5 * time.Minute
	}
	return redis.NewSessionLock(client, ttl)
}

// ProvideTemplateRepository 自定义模板读穿 Redis 缓存
func ProvideTemplateRepository(repo *postgres.TemplateRepository, cache *redis.Cache, cfg *config.Config) repository.TemplateRepository {
	return redis.NewCachedTemplateRepository(repo, cache, cfg.Cache.Redis.TemplateTTL)
}

// ProvideEngine 根据生成配置构造模板执行引擎
func ProvideEngine(cfg *config.Config) *engine.Engine {
	gen := cfg.Generation
	return engine.New(
		rotation.New(rotation.PolicyFromConfig(gen), rotation.TimerSleeper),
		topics.NewExtractor(gen.TopicMinBlockRunes),
		engine.Options{
			StepDelay:            gen.StepDelay,
			ContextWindow:        gen.ContextWindow,
			StrictVariables:      gen.StrictVariables,
			LoopFailureThreshold: gen.LoopFailureThreshold,
			LoopProgress:         engine.LoopProgressFor(gen.LoopResume),
		},
	)
}

// ProvideStores 会话运行器的持久化依赖
func ProvideStores(checkpoints *redis.CheckpointStore, sessions *postgres.SessionRepository, prefs *redis.PreferenceStore, lock *redis.SessionLock) session.Stores {
	return session.Stores{
		Checkpoints: checkpoints,
		Sessions:    sessions,
		Preferences: prefs,
		Lock:        lock,
	}
}

// ProvideRunner 提供会话运行器
func ProvideRunner(eng *engine.Engine, tpls *templates.Service, registry *llm.Registry, stores session.Stores, cfg *config.Config) *session.Runner {
	return session.NewRunner(eng, tpls, registry, stores, session.Options{
		Timeout:    cfg.Generation.SessionTimeout,
		Checkpoint: cfg.Generation.Checkpoint,
	})
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(client.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideConsumer 提供生成任务消费者
func ProvideConsumer(client *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	return messaging.NewConsumer(client.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamScriptGen,
		Group:         messaging.GroupWithPrefix(rs.ConsumerGroupPrefix, messaging.ConsumerGroupScriptWorker),
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),
	})
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	return handler.NewHealthHandler(cfg.App.Version, pg, rc)
}

// ProvideTTSHandler 提供语音切分处理器
func ProvideTTSHandler(cfg *config.Config) *handler.TTSHandler {
	return handler.NewTTSHandler(cfg.TTS.ChunkSize)
}

// ProvideRateLimitMiddleware 生成接口限流
func ProvideRateLimitMiddleware(cfg *config.Config, limiter middleware.RateLimiter) gin.HandlerFunc {
	return middleware.RateLimit(cfg.Security.RateLimit, limiter, redis.BuildRateLimitKey)
}
