package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"script-studio-api/internal/config"
	"script-studio-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）与内置模板
	deps, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize bootstrap: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := deps.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated")

	// 4. 检查与内置模板同 ID 的自定义模板，它们永远不会被读取到
	prune := os.Getenv("BOOTSTRAP_PRUNE_SHADOWED") == "true"
	builtins := deps.Catalog.All()
	shadowed := 0
	err = deps.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, tpl := range builtins {
			existing, err := deps.TemplateRepo.GetByID(txCtx, tpl.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				continue
			}
			shadowed++
			if !prune {
				fmt.Printf("Custom template %q is shadowed by a built-in template\n", tpl.ID)
				continue
			}
			if err := deps.TemplateRepo.Delete(txCtx, tpl.ID); err != nil {
				return err
			}
			fmt.Printf("Removed shadowed custom template %q\n", tpl.ID)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("failed to verify built-in templates: %v", err)
	}

	fmt.Printf("Built-in templates: %d, shadowed custom templates: %d\n", len(builtins), shadowed)
	fmt.Println("System bootstrap completed successfully!")
}
