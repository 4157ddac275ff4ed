package main

import (
	"context"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ashwinyue/shop-ai/internal/config"
	"github.com/ashwinyue/shop-ai/internal/database"
	"github.com/ashwinyue/shop-ai/internal/repository"
	"github.com/ashwinyue/shop-ai/internal/service"
	logx "github.com/ashwinyue/shop-ai/pkg/logger"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "shop-ai",
		Short:         "shop-ai: AI shopping assistant service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "config file path")

	root.AddCommand(
		serveCmd(&configPath),
		reindexCmd(&configPath),
		tokenCmd(&configPath),
		seedCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		logx.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./configs/config.yaml"
}

// loadConfig 加载配置、初始化日志并补齐密钥
func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.App.Environment})

	if cfg.Secrets.Provider == "ssm" {
		store, err := config.NewDefaultParamStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := config.ResolveSecrets(ctx, cfg, store); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// app 运行期依赖
type app struct {
	cfg   *config.Config
	db    *database.DB
	redis *redis.Client
	svc   *service.Services
}

// bootstrap 初始化数据库、Redis 和全部服务
func bootstrap(ctx context.Context, configPath string) (*app, error) {
	cfg, err := loadConfig(ctx, configPath)
	if err != nil {
		return nil, err
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	logx.Info().Str("driver", cfg.Database.Driver).Msg("database connected")

	a := &app{cfg: cfg, db: db}

	var rdb redis.UniversalClient
	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			logx.Warn().Err(err).Str("addr", cfg.Redis.GetAddr()).Msg("redis unavailable, caches disabled")
			_ = a.redis.Close()
			a.redis = nil
		} else {
			rdb = a.redis
		}
	}

	svc, err := service.NewServices(ctx, repository.NewRepositories(db.DB), cfg, rdb, service.Components{})
	if err != nil {
		a.close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func (a *app) close() {
	if a.svc != nil {
		if err := a.svc.Close(); err != nil {
			logx.Warn().Err(err).Msg("close services")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
