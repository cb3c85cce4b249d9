//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"script-studio-api/internal/application/templates"
	"script-studio-api/internal/config"
	"script-studio-api/internal/domain/repository"
	"script-studio-api/internal/infrastructure/persistence/postgres"
	"script-studio-api/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		GenerationSet,
		MessagingSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化后台任务进程
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		PostgresSet,
		RedisSet,
		GenerationSet,
		WorkerSet,
	)
	return nil, nil, nil
}

// InitializeBootstrap 仅初始化 PostgreSQL 与内置模板（用于 bootstrap）
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*Bootstrap, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		postgres.NewTxManager,
		wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
		postgres.NewTemplateRepository,
		templates.LoadBuiltin,
		wire.Struct(new(Bootstrap), "*"),
	)
	return nil, nil, nil
}
